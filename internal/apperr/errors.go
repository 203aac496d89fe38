// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNoInput       = errors.New("no input file")
	ErrNotFound      = errors.New("not found")
	ErrOutsideRoot   = errors.New("path escapes content root")
	ErrAlreadyExists = errors.New("already exists")
)
