package assemble

import (
	"strings"
	"testing"

	"github.com/pdfxlate/pdfxlate/internal/document"
)

func newDocWithHeadingsAndParagraph() *document.Document {
	doc := document.NewDocument("doc-1", "es")
	p := &document.Page{}
	h1 := document.NewHeading("h1", 1, document.BBox{}, "Introduction", 1, "bm-1")
	h1.TranslatedText = "Introducción"
	para := document.NewParagraph("p1", 1, document.BBox{}, "Hello world")
	para.TranslatedText = "Hola mundo"
	h2 := document.NewHeading("h2", 1, document.BBox{}, "Conclusion", 1, "bm-2")
	h2.TranslatedText = "Conclusión"
	p.Blocks = []document.Block{h1, para, h2}
	doc.AddPage(p)
	return doc
}

func TestAssemble_RendersHeadingsAndParagraphs(t *testing.T) {
	doc := newDocWithHeadingsAndParagraph()
	res, err := New().Assemble(doc, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !strings.Contains(res.Markdown, "# Introducción") {
		t.Errorf("Markdown missing translated heading:\n%s", res.Markdown)
	}
	if !strings.Contains(res.Markdown, "Hola mundo") {
		t.Errorf("Markdown missing translated paragraph:\n%s", res.Markdown)
	}
	if !strings.Contains(res.Markdown, `<a id="bm-1">`) {
		t.Errorf("Markdown missing bookmark anchor:\n%s", res.Markdown)
	}
}

func TestAssemble_TOCHasOneEntryPerHeadingInOrder(t *testing.T) {
	doc := newDocWithHeadingsAndParagraph()
	res, err := New().Assemble(doc, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(res.TOC) != 2 {
		t.Fatalf("len(TOC) = %d, want 2", len(res.TOC))
	}
	if res.TOC[0].BookmarkID != "bm-1" || res.TOC[1].BookmarkID != "bm-2" {
		t.Errorf("TOC = %+v, want bm-1 then bm-2", res.TOC)
	}
	if !strings.Contains(res.Markdown, "Table of Contents") {
		t.Error("Markdown missing TOC section")
	}
}

func TestAssemble_TableRendersTranslatedCellsWithFallback(t *testing.T) {
	doc := document.NewDocument("doc-1", "es")
	tbl := document.NewTable("t1", 1, document.BBox{}, 2, 2)
	tbl.Rows[0][0].Text = "Name"
	tbl.Rows[0][0].TranslatedText = "Nombre"
	tbl.Rows[0][1].Text = "Age"
	tbl.Rows[1][0].Text = "Alice"
	tbl.Rows[1][1].Text = "30"
	doc.AddPage(&document.Page{Blocks: []document.Block{tbl}})

	res, err := New().Assemble(doc, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !strings.Contains(res.Markdown, "| Nombre | Age |") {
		t.Errorf("Markdown missing translated header row:\n%s", res.Markdown)
	}
	if !strings.Contains(res.Markdown, "| Alice | 30 |") {
		t.Errorf("Markdown missing fallback-to-original data row:\n%s", res.Markdown)
	}
}

func TestAssemble_MathAndCodeBlocksPreserveVerbatimContent(t *testing.T) {
	doc := document.NewDocument("doc-1", "es")
	m := document.NewMathFormula("m1", 1, document.BBox{}, "E=mc^2", document.DisplayBlock)
	code := document.NewCodeBlock("c1", 1, document.BBox{}, "fmt.Println(\"hi\")", "go")
	doc.AddPage(&document.Page{Blocks: []document.Block{m, code}})

	res, err := New().Assemble(doc, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !strings.Contains(res.Markdown, "E=mc^2") {
		t.Errorf("Markdown missing LaTeX source:\n%s", res.Markdown)
	}
	if !strings.Contains(res.Markdown, "```go") || !strings.Contains(res.Markdown, "fmt.Println(\"hi\")") {
		t.Errorf("Markdown missing fenced code block:\n%s", res.Markdown)
	}
}

func TestAssemble_FootnotesRenderInTrailingNotesSection(t *testing.T) {
	doc := document.NewDocument("doc-1", "es")
	doc.AddPage(&document.Page{Blocks: []document.Block{document.NewParagraph("p1", 1, document.BBox{}, "body text")}})
	fn := document.NewFootnote("f1", 1, document.BBox{}, "see reference", "1", 1)
	doc.Footnotes = append(doc.Footnotes, fn)

	res, err := New().Assemble(doc, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !strings.Contains(res.Markdown, "## Notes") {
		t.Errorf("Markdown missing Notes section:\n%s", res.Markdown)
	}
	if !strings.Contains(res.Markdown, "[1] see reference") {
		t.Errorf("Markdown missing footnote text:\n%s", res.Markdown)
	}
}

func TestAssemble_LineEstimatorAdvancesPageAcrossManyParagraphs(t *testing.T) {
	doc := document.NewDocument("doc-1", "es")
	var blocks []document.Block
	for i := 0; i < 30; i++ {
		blocks = append(blocks, document.NewParagraph("p", 1, document.BBox{}, strings.Repeat("x", 80)))
	}
	doc.AddPage(&document.Page{Blocks: blocks})

	res, err := New().Assemble(doc, nil)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if res.Markdown == "" {
		t.Error("Markdown is empty")
	}
}
