package rewrite

import (
	"path"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Resource categories known to the resolver.
const (
	CategoryGlossary = "glossary"
	CategoryAPI      = "api"
)

// ResourceIndex answers whether a local resource document exists for a slug.
// Implementations must be read-only.
type ResourceIndex interface {
	Exists(category, slug string) bool
}

// StaticIndex is an in-memory ResourceIndex keyed by category, then slug.
type StaticIndex map[string]map[string]struct{}

// NewStaticIndex builds a StaticIndex holding slugs under category.
func NewStaticIndex(category string, slugs ...string) StaticIndex {
	idx := StaticIndex{}
	for _, s := range slugs {
		idx.Add(category, s)
	}
	return idx
}

// Add registers slug under category.
func (s StaticIndex) Add(category, slug string) {
	if s[category] == nil {
		s[category] = map[string]struct{}{}
	}
	s[category][slug] = struct{}{}
}

// Exists implements ResourceIndex.
func (s StaticIndex) Exists(category, slug string) bool {
	_, ok := s[category][slug]
	return ok
}

// LinkConfig holds the canonical documentation site layout.
type LinkConfig struct {
	Origin       string
	Locale       string
	ResourcesDir string
	AssetsDir    string
}

// DefaultLinks points at the public MDN site.
func DefaultLinks() LinkConfig {
	return LinkConfig{
		Origin:       "https://developer.mozilla.org",
		Locale:       "en-US",
		ResourcesDir: "resources",
		AssetsDir:    "assets",
	}
}

// DocsPrefix is the root-relative path under which documentation pages live.
func (c LinkConfig) DocsPrefix() string {
	return "/" + c.Locale + "/docs/"
}

// DocsURL joins parts under the canonical documentation root.
func (c LinkConfig) DocsURL(parts ...string) string {
	return strings.TrimRight(c.Origin, "/") + c.DocsPrefix() + strings.Join(parts, "/")
}

// Reference records how one macro term was resolved.
type Reference struct {
	Category string `json:"category"`
	Term     string `json:"term"`
	Target   string `json:"target"`
	Local    bool   `json:"local"`
}

// Resolver turns terms into link targets.
type Resolver struct {
	index ResourceIndex
	links LinkConfig
}

// NewResolver creates a Resolver. A nil index means nothing is local.
func NewResolver(index ResourceIndex, links LinkConfig) *Resolver {
	if index == nil {
		index = StaticIndex{}
	}
	return &Resolver{index: index, links: links}
}

// Glossary resolves a glossary term for the document at docPath. A local
// resource wins; otherwise the canonical remote glossary page is used.
func (r *Resolver) Glossary(term, docPath string) Reference {
	ref := Reference{Category: CategoryGlossary, Term: term}
	if r.index.Exists(CategoryGlossary, term) {
		ref.Local = true
		ref.Target = RelativePrefix(docPath) + path.Join(r.links.ResourcesDir, CategoryGlossary, term+".md")
		return ref
	}
	ref.Target = r.links.DocsURL("Glossary", CanonicalSlug(term))
	return ref
}

// API resolves an "Interface.member" term to the Web API reference. It never
// consults the resource index.
func (r *Resolver) API(term string) Reference {
	iface, member, found := strings.Cut(term, ".")
	parts := []string{"Web", "API", iface}
	if found {
		member = strings.TrimSuffix(member, "()")
		if member != "" {
			parts = append(parts, member)
		}
	}
	return Reference{Category: CategoryAPI, Term: term, Target: r.links.DocsURL(parts...)}
}

// RelativePrefix returns one "../" per directory level of docPath, so that a
// path relative to the content root can be reached from the document.
func RelativePrefix(docPath string) string {
	p := path.Clean(filepath.ToSlash(docPath))
	p = strings.TrimLeft(p, "/")
	if p == "." || p == "" {
		return ""
	}
	return strings.Repeat("../", strings.Count(p, "/"))
}

// CanonicalSlug upper-cases the first letter of every word and joins the
// words with underscores: "web component" becomes "Web_Component".
func CanonicalSlug(term string) string {
	words := strings.Fields(term)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, "_")
}
