package storage

import (
	"path"
	"strings"
)

// Resources is the on-disk resource index: a slug exists when
// <dir>/<category>/<slug>.md is a file under the content root.
type Resources struct {
	store Provider
	dir   string
}

// NewResources creates a resource index over store rooted at dir.
func NewResources(store Provider, dir string) *Resources {
	return &Resources{store: store, dir: strings.Trim(dir, "/")}
}

// Exists reports whether a resource document exists for slug. Slugs that
// would leave the category directory never match.
func (r *Resources) Exists(category, slug string) bool {
	if slug == "" || strings.ContainsAny(slug, `/\`) || slug == "." || slug == ".." {
		return false
	}
	return r.store.Exists(path.Join(r.dir, category, slug+".md"))
}
