// Package rewrite turns documentation-platform macros in Markdown into plain
// Markdown links, or removes them.
package rewrite

// StageHits counts the replacements one stage made.
type StageHits struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// Report describes what a pipeline run did to one document.
type Report struct {
	Stages     []StageHits `json:"stages"`
	References []Reference `json:"references"`
	Residuals  []Residual  `json:"residuals"`
}

// Rewrites returns the total number of replacements across all stages.
func (r *Report) Rewrites() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Count
	}
	return n
}

// Result is the output of Pipeline.Run.
type Result struct {
	Text   string
	Report Report
}

// Changed reports whether the text differs from input.
func (r *Result) Changed(input string) bool {
	return r.Text != input
}

// Pipeline applies every stage in a fixed order. It holds no per-document
// state and is safe for concurrent use.
type Pipeline struct {
	stages   []stage
	resolver *Resolver
}

// New builds the pipeline. The wrapped glossary stage must precede the bare
// one: the bare pattern also matches the macro inside an HTML element.
func New(index ResourceIndex, links LinkConfig) *Pipeline {
	r := NewResolver(index, links)
	return &Pipeline{
		resolver: r,
		stages: []stage{
			newWrappedGlossaryStage(r),
			newGlossaryStage(r),
			newScaffoldStage(),
			newDocsLinkStage(links),
			newImageStage(links),
			newHTMLElementStage(links),
			newCSSXrefStage(links),
			newHTTPStatusStage(links),
			newDOMXrefStage(r),
		},
	}
}

// Resolver exposes the link resolver used by the pipeline.
func (p *Pipeline) Resolver() *Resolver {
	return p.resolver
}

// StageNames lists the stages in execution order.
func (p *Pipeline) StageNames() []string {
	out := make([]string, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.Name()
	}
	return out
}

// Run rewrites text for the document at docPath (relative to the content
// root) and reports per-stage hits, resolved references and leftover macros.
func (p *Pipeline) Run(text, docPath string) *Result {
	doc := &docState{path: docPath}
	report := Report{Stages: make([]StageHits, 0, len(p.stages))}

	for _, s := range p.stages {
		var n int
		text, n = s.Apply(text, doc)
		report.Stages = append(report.Stages, StageHits{Stage: s.Name(), Count: n})
	}

	report.References = doc.refs
	report.Residuals = ScanResiduals(text)
	return &Result{Text: text, Report: report}
}

// Rewrite is Run without the report.
func (p *Pipeline) Rewrite(text, docPath string) string {
	doc := &docState{path: docPath}
	for _, s := range p.stages {
		text, _ = s.Apply(text, doc)
	}
	return text
}
