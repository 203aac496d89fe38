package rewrite

import (
	"bytes"
	"regexp"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var residualRe = regexp.MustCompile(`\{\{\s*([A-Za-z][A-Za-z0-9_-]*)`)

// Residual is a macro left in the text that no stage rewrote.
type Residual struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// ScanResiduals lists macros still present outside code. Fenced and indented
// code blocks and inline code spans are ignored.
func ScanResiduals(src string) []Residual {
	if !bytes.Contains([]byte(src), []byte("{{")) {
		return nil
	}
	source := []byte(src)
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	var blocks []text.Segment
	var code [][2]int
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindCodeSpan:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					code = append(code, [2]int{t.Segment.Start, t.Segment.Stop})
				}
			}
			return ast.WalkSkipChildren, nil
		}
		if n.Type() == ast.TypeBlock {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				blocks = append(blocks, lines.At(i))
			}
		}
		return ast.WalkContinue, nil
	})

	inCode := func(pos int) bool {
		for _, c := range code {
			if pos >= c[0] && pos < c[1] {
				return true
			}
		}
		return false
	}

	var out []Residual
	for _, seg := range blocks {
		line := seg.Value(source)
		for _, loc := range residualRe.FindAllSubmatchIndex(line, -1) {
			pos := seg.Start + loc[0]
			if inCode(pos) {
				continue
			}
			out = append(out, Residual{
				Name: string(line[loc[2]:loc[3]]),
				Line: 1 + bytes.Count(source[:pos], []byte("\n")),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}
