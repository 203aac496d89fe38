package docservice

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/starford/mdstrip/internal/apperr"
)

// MaxAssetSize caps uploaded asset files.
const MaxAssetSize = 10 << 20 // 10 MB

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true,
	}

	// MimeToExt maps detected or declared content types to file extensions.
	MimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Asset describes a file saved under the assets directory.
type Asset struct {
	Path          string `json:"path"`
	Size          int    `json:"size"`
	MarkdownImage string `json:"markdownImage"`
}

// SaveAsset validates data and stores it as <assetsDir>/<filename>. The
// returned Markdown image points at the asset relative to the content root.
func (s *Service) SaveAsset(assetsDir, filename string, data []byte) (*Asset, error) {
	if len(data) > MaxAssetSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", len(data), MaxAssetSize)
	}
	filename = SanitizeFilename(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("unsupported file extension: %q (allowed: png, jpg, jpeg, gif, webp, svg)", ext)
	}
	if err := validateMagicBytes(data, ext); err != nil {
		return nil, err
	}

	rel := path.Join(strings.Trim(assetsDir, "/"), filename)
	if s.store.Exists(rel) {
		return nil, fmt.Errorf("%s: %w", rel, apperr.ErrAlreadyExists)
	}
	if err := s.store.Write(rel, data); err != nil {
		return nil, err
	}
	return &Asset{
		Path:          rel,
		Size:          len(data),
		MarkdownImage: fmt.Sprintf("![%s](%s)", strings.TrimSuffix(filename, ext), rel),
	}, nil
}

// SanitizeFilename strips path separators and unsafe characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." || name == "_" {
		name = uuid.New().String()
	}
	return name
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	if ext == ".svg" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}

	detected := http.DetectContentType(data)
	want := MimeToExt[strings.Split(detected, ";")[0]]

	switch ext {
	case ".jpg", ".jpeg":
		if want != ".jpg" {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	default:
		if want != ext {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	}
	return nil
}
