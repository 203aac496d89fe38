package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrammar_MatchArgs(t *testing.T) {
	m := newMatcher(Grammar{Names: []string{"Glossary"}, MinArgs: 1, MaxArgs: 2})

	var got []Match
	out, n := m.replaceAll(`a {{Glossary("x")}} b {{ Glossary( "y" , "Y label" ) }}`, func(mt Match) (string, bool) {
		got = append(got, mt)
		return "#", true
	})

	assert.Equal(t, "a # b #", out)
	assert.Equal(t, 2, n)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"x"}, got[0].Args)
	assert.Equal(t, "x", got[0].Label())
	assert.Equal(t, []string{"y", "Y label"}, got[1].Args)
	assert.Equal(t, "Y label", got[1].Label())
	assert.Equal(t, "Glossary", got[1].Name)
}

func TestGrammar_Arity(t *testing.T) {
	m := newMatcher(Grammar{Names: []string{"cssxref"}, MinArgs: 1, MaxArgs: 1})
	in := `{{cssxref}} {{cssxref("a", "b")}} {{cssxref("c")}}`
	out, n := m.replaceAll(in, func(mt Match) (string, bool) { return mt.Arg(0), true })
	assert.Equal(t, `{{cssxref}} {{cssxref("a", "b")}} c`, out)
	assert.Equal(t, 1, n)
}

func TestGrammar_CaseInsensitive(t *testing.T) {
	m := newMatcher(Grammar{Names: []string{"htmlelement"}, CaseInsensitive: true, MinArgs: 1, MaxArgs: 2})
	out, n := m.replaceAll(`{{HTMLElement("a")}}{{HtmlElement("b")}}`, func(mt Match) (string, bool) { return mt.Arg(0), true })
	assert.Equal(t, "ab", out)
	assert.Equal(t, 2, n)
}

func TestGrammar_Wrapped(t *testing.T) {
	m := newMatcher(Grammar{Names: []string{"Glossary"}, MinArgs: 1, MaxArgs: 2, Wrapped: true})

	var got Match
	out, n := m.replaceAll(`<span title="t">{{Glossary("x")}}</span> {{Glossary("bare")}}`, func(mt Match) (string, bool) {
		got = mt
		return mt.Open + "X" + mt.Close, true
	})
	assert.Equal(t, `<span title="t">X</span> {{Glossary("bare")}}`, out)
	assert.Equal(t, 1, n)
	assert.Equal(t, `<span title="t">`, got.Open)
	assert.Equal(t, `</span>`, got.Close)
}

func TestGrammar_EatNewlineAndUnbounded(t *testing.T) {
	m := newMatcher(Grammar{Names: []string{"Nav"}, MinArgs: 0, MaxArgs: Unbounded, EatNewline: true})
	out, n := m.replaceAll("{{Nav}}\n{{Nav(\"a\",\"b\",\"c\",\"d\")}}\nrest", func(Match) (string, bool) { return "", true })
	assert.Equal(t, "rest", out)
	assert.Equal(t, 2, n)
}

func TestGrammar_EatNewlineCRLF(t *testing.T) {
	m := newMatcher(Grammar{Names: []string{"Nav"}, MinArgs: 0, MaxArgs: Unbounded, EatNewline: true})
	out, n := m.replaceAll("{{Nav}}\r\nrest\r\n", func(Match) (string, bool) { return "", true })
	assert.Equal(t, "rest\r\n", out)
	assert.Equal(t, 1, n)
}

func TestGrammar_DeclinedLeavesText(t *testing.T) {
	m := newMatcher(Grammar{Names: []string{"Glossary"}, MinArgs: 1, MaxArgs: 2})
	in := `{{Glossary("x")}}`
	out, n := m.replaceAll(in, func(Match) (string, bool) { return "", false })
	assert.Equal(t, in, out)
	assert.Zero(t, n)
}

func TestGrammar_CompilePanicsWithoutNames(t *testing.T) {
	assert.Panics(t, func() { Grammar{}.Compile() })
}
