package rewrite

import (
	"regexp"
	"sort"
	"strings"
)

// Unbounded lifts the upper arity limit of a Grammar.
const Unbounded = -1

var quotedArgRe = regexp.MustCompile(`"([^"]*)"`)

// Grammar describes one macro family: which names it answers to, how many
// quoted string arguments it takes, and whether it sits directly inside an
// HTML element.
type Grammar struct {
	Names           []string
	CaseInsensitive bool
	MinArgs         int
	MaxArgs         int
	// Wrapped requires <tag ...> immediately before and </tag> immediately after.
	Wrapped bool
	// EatNewline consumes one trailing newline with the macro.
	EatNewline bool
}

// Match is one occurrence of a macro found by a Grammar.
type Match struct {
	Text  string
	Name  string
	Args  []string
	Open  string
	Close string
}

// Arg returns the i-th argument or "" when absent.
func (m Match) Arg(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}

// Label returns the second argument when it is present and non-empty,
// otherwise the first.
func (m Match) Label() string {
	if l := m.Arg(1); l != "" {
		return l
	}
	return m.Arg(0)
}

// Compile builds the pattern for g. It panics on an empty name list.
func (g Grammar) Compile() *regexp.Regexp {
	if len(g.Names) == 0 {
		panic("rewrite: grammar without names")
	}
	names := make([]string, len(g.Names))
	for i, n := range g.Names {
		names[i] = regexp.QuoteMeta(n)
	}
	// Longer names first so PreviousMenuNext wins over PreviousMenu.
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	alt := strings.Join(names, "|")
	if g.CaseInsensitive {
		alt = "(?i:" + alt + ")"
	}

	var b strings.Builder
	if g.Wrapped {
		b.WriteString(`(?P<open><[A-Za-z][A-Za-z0-9-]*(?:\s[^<>]*)?>)`)
	}
	b.WriteString(`\{\{\s*(?P<name>` + alt + `)`)
	b.WriteString(`(?:\(\s*(?P<args>(?:"[^"]*"\s*,\s*)*"[^"]*")?\s*\))?\s*\}\}`)
	if g.Wrapped {
		b.WriteString(`(?P<close></[A-Za-z][A-Za-z0-9-]*\s*>)`)
	}
	if g.EatNewline {
		b.WriteString(`(?:\r?\n)?`)
	}
	return regexp.MustCompile(b.String())
}

// accepts reports whether n arguments fit the grammar's arity.
func (g Grammar) accepts(n int) bool {
	if n < g.MinArgs {
		return false
	}
	return g.MaxArgs == Unbounded || n <= g.MaxArgs
}

// matcher pairs a grammar with its compiled pattern.
type matcher struct {
	grammar Grammar
	re      *regexp.Regexp
	open    int
	name    int
	args    int
	close   int
}

func newMatcher(g Grammar) *matcher {
	re := g.Compile()
	return &matcher{
		grammar: g,
		re:      re,
		open:    re.SubexpIndex("open"),
		name:    re.SubexpIndex("name"),
		args:    re.SubexpIndex("args"),
		close:   re.SubexpIndex("close"),
	}
}

// replaceAll finds every non-overlapping match in text, asks render for a
// replacement and splices the accepted ones back. Declined matches and
// matches with the wrong arity stay as they are.
func (m *matcher) replaceAll(text string, render func(Match) (string, bool)) (string, int) {
	locs := m.re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, 0
	}

	var b strings.Builder
	last, hits := 0, 0
	for _, loc := range locs {
		mt := m.match(text, loc)
		if !m.grammar.accepts(len(mt.Args)) {
			continue
		}
		out, ok := render(mt)
		if !ok {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(out)
		last = loc[1]
		hits++
	}
	if hits == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), hits
}

func (m *matcher) match(text string, loc []int) Match {
	group := func(i int) string {
		if i < 0 || loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}
	mt := Match{
		Text:  text[loc[0]:loc[1]],
		Name:  group(m.name),
		Open:  group(m.open),
		Close: group(m.close),
	}
	if raw := group(m.args); raw != "" {
		for _, a := range quotedArgRe.FindAllStringSubmatch(raw, -1) {
			mt.Args = append(mt.Args, a[1])
		}
	}
	return mt
}
