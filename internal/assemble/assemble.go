// Package assemble implements the Two-Pass Document Assembler (spec
// §4.7): Pass 1 renders every block in document order to Markdown while
// tracking bookmark-to-page mappings with a line-count page estimator;
// Pass 2 walks the recorded heading list to emit a validated table of
// contents.
//
// Grounded on tsawler-tabula/model/document.go's TableOfContents /
// TOCEntry (the teacher computes a TOC by walking headings across pages;
// this assembler generalizes that into a two-pass renderer that also
// produces the page numbers the teacher's TOC only reads off an
// already-known PDF layout) and model/table.go's ToMarkdown (the pipe
// table row-and-separator rendering is reused verbatim for
// document.Table, translated-cell-first).
package assemble

import (
	"fmt"
	"strings"

	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/perr"
	"github.com/pdfxlate/pdfxlate/internal/trace"
)

// TOCEntry is one table-of-contents line, grounded on the teacher's
// model.TOCEntry shape, extended with a BookmarkID for the anchor link
// Markdown needs in place of the teacher's BBox/FontSize (irrelevant
// once layout has been reduced to a content-block stream).
type TOCEntry struct {
	Level      int
	Text       string
	BookmarkID string
	Page       int
}

// Result is the assembler's output: the rendered document plus the
// bookmark/page bookkeeping Pass 2 validates against.
type Result struct {
	Markdown string
	TOC      []TOCEntry
}

// Assembler renders a document.Document to Markdown in two passes.
type Assembler struct {
	Estimator EstimatorOptions
}

// New constructs an Assembler with the spec's default estimator tuning.
func New() *Assembler {
	return &Assembler{Estimator: DefaultEstimatorOptions()}
}

// Assemble runs both passes over doc and returns the rendered Markdown
// plus its TOC, or a perr.Error of KindAssemblerInvariantViolated if
// Pass 2's heading/TOC equality check fails.
func (a *Assembler) Assemble(doc *document.Document, tr *trace.Trace) (Result, error) {
	var body strings.Builder
	est := NewLineEstimator(a.Estimator)

	var toc []TOCEntry
	bookmarkPages := map[string]int{}

	for _, b := range doc.AllBlocks() {
		page := est.Advance(b)
		if h, ok := b.(*document.Heading); ok {
			bookmarkPages[h.BookmarkID] = page
		}
		renderBlock(&body, b)
	}

	if len(doc.Footnotes) > 0 {
		renderFootnotes(&body, doc.Footnotes)
	}

	for _, h := range doc.Headings() {
		toc = append(toc, TOCEntry{
			Level:      h.Level,
			Text:       textFor(h.Base()),
			BookmarkID: h.BookmarkID,
			Page:       bookmarkPages[h.BookmarkID],
		})
	}

	if err := a.validateTOC(doc, toc); err != nil {
		return Result{}, err
	}

	var referenced []string
	for _, e := range toc {
		referenced = append(referenced, e.BookmarkID)
	}
	assigned := map[string]bool{}
	for id := range bookmarkPages {
		assigned[id] = true
	}
	if err := trace.AssertBookmarksResolve(assigned, referenced); err != nil {
		return Result{}, err
	}

	if tr != nil {
		tr.RecordAudit("assembly", doc.Audit())
	}

	return Result{Markdown: renderTOC(toc) + "\n" + body.String(), TOC: toc}, nil
}

// validateTOC enforces spec §4.7 Pass 2's fail-fast rule: the TOC must
// contain exactly one entry per heading, in document order.
func (a *Assembler) validateTOC(doc *document.Document, toc []TOCEntry) error {
	headings := doc.Headings()
	if len(headings) != len(toc) {
		return perr.New(perr.KindAssemblerInvariantViolated, "assembly",
			fmt.Errorf("%d headings but %d TOC entries", len(headings), len(toc)))
	}
	for i, h := range headings {
		if h.BookmarkID != toc[i].BookmarkID {
			return perr.New(perr.KindAssemblerInvariantViolated, "assembly",
				fmt.Errorf("heading/TOC order mismatch at position %d: heading bookmark %q, TOC bookmark %q",
					i, h.BookmarkID, toc[i].BookmarkID))
		}
	}
	return nil
}

// textFor prefers the translated text, falling back to the original —
// the same "translate in place, original survives as fallback" rule
// the executor applies to a quarantined block.
func textFor(c *document.Common) string {
	if c.TranslatedText != "" {
		return c.TranslatedText
	}
	return c.OriginalText
}

func renderTOC(toc []TOCEntry) string {
	if len(toc) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Table of Contents\n\n")
	for _, e := range toc {
		indent := strings.Repeat("  ", e.Level-1)
		fmt.Fprintf(&b, "%s- [%s](#%s) (p. %d)\n", indent, e.Text, e.BookmarkID, e.Page)
	}
	b.WriteString("\n")
	return b.String()
}

func renderBlock(b *strings.Builder, block document.Block) {
	switch v := block.(type) {
	case *document.Heading:
		fmt.Fprintf(b, "<a id=\"%s\"></a>\n\n%s %s\n\n", v.BookmarkID, strings.Repeat("#", clampLevel(v.Level)), textFor(&v.Common))
	case *document.Paragraph:
		fmt.Fprintf(b, "%s\n\n", textFor(&v.Common))
	case *document.ListItem:
		renderListItem(b, v)
	case *document.Table:
		b.WriteString(renderTable(v))
		if v.CaptionID != "" {
			b.WriteString("\n")
		}
	case *document.Caption:
		fmt.Fprintf(b, "*%s*\n\n", textFor(&v.Common))
	case *document.MathFormula:
		renderMath(b, v)
	case *document.CodeBlock:
		fmt.Fprintf(b, "```%s\n%s\n```\n\n", v.Language, v.OriginalText)
	case *document.ImagePlaceholder:
		fmt.Fprintf(b, "![](%s)\n\n", v.ImageAssetID)
	}
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

func renderListItem(b *strings.Builder, l *document.ListItem) {
	indent := strings.Repeat("  ", l.NestingLevel)
	marker := l.Marker
	if marker == "" {
		marker = "-"
	}
	fmt.Fprintf(b, "%s%s %s\n", indent, marker, textFor(&l.Common))
}

func renderMath(b *strings.Builder, m *document.MathFormula) {
	if m.DisplayMode == document.DisplayBlock {
		fmt.Fprintf(b, "$$\n%s\n$$\n\n", m.Latex)
		return
	}
	fmt.Fprintf(b, "$%s$", m.Latex)
}

// renderTable is grounded on tsawler-tabula/model/table.go's ToMarkdown,
// adapted to read Cell.TranslatedText (falling back to Cell.Text). Row 0
// is always rendered as the Markdown header row followed by the
// separator; document.Table.HeaderRows is not consulted.
func renderTable(t *document.Table) string {
	if len(t.Rows) == 0 {
		return ""
	}
	var b strings.Builder

	writeRow := func(row []document.Cell) {
		for j, cell := range row {
			text := cell.TranslatedText
			if text == "" {
				text = cell.Text
			}
			b.WriteString("| ")
			b.WriteString(strings.ReplaceAll(text, "\n", " "))
			b.WriteString(" ")
			if j == len(row)-1 {
				b.WriteString("|")
			}
		}
		b.WriteString("\n")
	}

	writeRow(t.Rows[0])
	for j := range t.Rows[0] {
		b.WriteString("|---")
		if j == len(t.Rows[0])-1 {
			b.WriteString("|")
		}
	}
	b.WriteString("\n")
	for i := 1; i < len(t.Rows); i++ {
		writeRow(t.Rows[i])
	}
	b.WriteString("\n")
	return b.String()
}

func renderFootnotes(b *strings.Builder, footnotes []*document.Footnote) {
	b.WriteString("## Notes\n\n")
	for _, f := range footnotes {
		fmt.Fprintf(b, "[%s] %s\n", f.ReferenceID, textFor(&f.Common))
	}
	b.WriteString("\n")
}
