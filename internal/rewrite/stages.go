package rewrite

import (
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

// Stage names, in pipeline order.
const (
	StageWrappedGlossary = "wrapped-glossary"
	StageGlossary        = "glossary"
	StageScaffold        = "scaffold"
	StageDocsLinks       = "docs-links"
	StageImages          = "images"
	StageHTMLElement     = "htmlelement"
	StageCSSXref         = "cssxref"
	StageHTTPStatus      = "httpstatus"
	StageDOMXref         = "domxref"
)

// stage is one text-to-text rewrite rule.
type stage interface {
	Name() string
	Apply(text string, doc *docState) (string, int)
}

// docState carries per-invocation data through the stages.
type docState struct {
	path string
	refs []Reference
}

func (d *docState) record(ref Reference) {
	d.refs = append(d.refs, ref)
}

// Grammars for every macro family the pipeline understands.
var (
	glossaryGrammar = Grammar{
		Names:   []string{"Glossary", "glossary"},
		MinArgs: 1,
		MaxArgs: 2,
	}
	wrappedGlossaryGrammar = Grammar{
		Names:   []string{"Glossary", "glossary"},
		MinArgs: 1,
		MaxArgs: 2,
		Wrapped: true,
	}
	scaffoldGrammar = Grammar{
		Names:           scaffoldNames(),
		CaseInsensitive: true,
		MinArgs:         0,
		MaxArgs:         Unbounded,
		EatNewline:      true,
	}
	htmlElementGrammar = Grammar{
		Names:           []string{"htmlelement"},
		CaseInsensitive: true,
		MinArgs:         1,
		MaxArgs:         2,
	}
	cssXrefGrammar = Grammar{
		Names:   []string{"cssxref"},
		MinArgs: 1,
		MaxArgs: 2,
	}
	httpStatusGrammar = Grammar{
		Names:   []string{"HTTPStatus"},
		MinArgs: 1,
		MaxArgs: 2,
	}
	domXrefGrammar = Grammar{
		Names:   []string{"domxref"},
		MinArgs: 1,
		MaxArgs: 2,
	}
)

func scaffoldNames() []string {
	nav := []string{"PreviousMenuNext", "PreviousMenu", "NextMenuPrevious", "PreviousNext", "NextMenu"}
	names := []string{"LearnSidebar", "GlossarySidebar", "QuickLinksWithSubpages"}
	for _, n := range nav {
		names = append(names, n, "LearnSidebar"+n)
	}
	return names
}

// macroStage rewrites one macro family through a Grammar.
type macroStage struct {
	name   string
	m      *matcher
	render func(Match, *docState) (string, bool)
}

func (s *macroStage) Name() string { return s.name }

func (s *macroStage) Apply(text string, doc *docState) (string, int) {
	return s.m.replaceAll(text, func(mt Match) (string, bool) {
		return s.render(mt, doc)
	})
}

func newWrappedGlossaryStage(r *Resolver) stage {
	return &macroStage{
		name: StageWrappedGlossary,
		m:    newMatcher(wrappedGlossaryGrammar),
		render: func(mt Match, doc *docState) (string, bool) {
			term := mt.Arg(0)
			if term == "" {
				return "", false
			}
			ref := r.Glossary(term, doc.path)
			doc.record(ref)
			return mt.Open + `<a href="` + ref.Target + `">` + mt.Label() + `</a>` + mt.Close, true
		},
	}
}

func newGlossaryStage(r *Resolver) stage {
	return &macroStage{
		name: StageGlossary,
		m:    newMatcher(glossaryGrammar),
		render: func(mt Match, doc *docState) (string, bool) {
			term := mt.Arg(0)
			if term == "" {
				return "", false
			}
			ref := r.Glossary(term, doc.path)
			doc.record(ref)
			return "[" + mt.Label() + "](" + ref.Target + ")", true
		},
	}
}

func newScaffoldStage() stage {
	return &macroStage{
		name: StageScaffold,
		m:    newMatcher(scaffoldGrammar),
		render: func(Match, *docState) (string, bool) {
			return "", true
		},
	}
}

func newHTMLElementStage(links LinkConfig) stage {
	return &macroStage{
		name: StageHTMLElement,
		m:    newMatcher(htmlElementGrammar),
		render: func(mt Match, _ *docState) (string, bool) {
			tag := mt.Arg(0)
			if tag == "" {
				return "", false
			}
			return "[`<" + mt.Label() + ">`](" + links.DocsURL("Web", "HTML", "Element", tag) + ")", true
		},
	}
}

func newCSSXrefStage(links LinkConfig) stage {
	return &macroStage{
		name: StageCSSXref,
		m:    newMatcher(cssXrefGrammar),
		render: func(mt Match, _ *docState) (string, bool) {
			prop := mt.Arg(0)
			if prop == "" {
				return "", false
			}
			return "[`" + mt.Label() + "`](" + links.DocsURL("Web", "CSS", prop) + ")", true
		},
	}
}

func newHTTPStatusStage(links LinkConfig) stage {
	return &macroStage{
		name: StageHTTPStatus,
		m:    newMatcher(httpStatusGrammar),
		render: func(mt Match, _ *docState) (string, bool) {
			code := mt.Arg(0)
			if code == "" {
				return "", false
			}
			return "[" + mt.Label() + "](" + links.DocsURL("Web", "HTTP", "Status", code) + ")", true
		},
	}
}

func newDOMXrefStage(r *Resolver) stage {
	return &macroStage{
		name: StageDOMXref,
		m:    newMatcher(domXrefGrammar),
		render: func(mt Match, doc *docState) (string, bool) {
			term := mt.Arg(0)
			if term == "" {
				return "", false
			}
			ref := r.API(term)
			doc.record(ref)
			return "[" + mt.Label() + "](" + ref.Target + ")", true
		},
	}
}

// docsLinkStage turns root-relative documentation links into absolute ones.
type docsLinkStage struct {
	re     *regexp.Regexp
	origin string
}

func newDocsLinkStage(links LinkConfig) stage {
	prefix := regexp.QuoteMeta(links.DocsPrefix())
	return &docsLinkStage{
		re:     regexp.MustCompile(`\[([^\]]*)\]\((` + prefix + `[^)\s]*)\)`),
		origin: strings.TrimRight(links.Origin, "/"),
	}
}

func (s *docsLinkStage) Name() string { return StageDocsLinks }

func (s *docsLinkStage) Apply(text string, _ *docState) (string, int) {
	hits := 0
	out := s.re.ReplaceAllStringFunc(text, func(m string) string {
		hits++
		sub := s.re.FindStringSubmatch(m)
		return "[" + sub[1] + "](" + s.origin + sub[2] + ")"
	})
	return out, hits
}

// imageStage moves relative image sources under the assets folder. The
// negative lookahead keeps URLs, absolute paths, anchors and sources that
// are already under the assets folder untouched.
type imageStage struct {
	re     *regexp2.Regexp
	assets string
}

func newImageStage(links LinkConfig) stage {
	assets := strings.Trim(links.AssetsDir, "/")
	guard := regexp2.Escape(assets + "/")
	pattern := `!\[(?<alt>[^\]]*)\]\(` +
		`(?!` + guard + `|\./` + guard + `|/|#|[A-Za-z][A-Za-z0-9+.\-]*:)` +
		`(?<src>[^)\s]+)(?<title>\s+"[^"]*")?\)`
	re := regexp2.MustCompile(pattern, regexp2.None)
	return &imageStage{re: re, assets: assets}
}

func (s *imageStage) Name() string { return StageImages }

func (s *imageStage) Apply(text string, _ *docState) (string, int) {
	hits := 0
	out, err := s.re.ReplaceFunc(text, func(m regexp2.Match) string {
		hits++
		src := strings.TrimPrefix(m.GroupByName("src").String(), "./")
		return "![" + m.GroupByName("alt").String() + "](" + s.assets + "/" + src + m.GroupByName("title").String() + ")"
	}, -1, -1)
	if err != nil {
		return text, 0
	}
	return out, hits
}
