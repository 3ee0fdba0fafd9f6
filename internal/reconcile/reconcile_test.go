package reconcile

import (
	"context"
	"testing"

	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/extract"
)

type fakeLayoutExtractor struct {
	out LayoutOutputFunc
}

type LayoutOutputFunc func() extract.LayoutOutput

func (f fakeLayoutExtractor) ExtractLayout(ctx context.Context, pdfPath string, pages extract.PageRange) (extract.LayoutOutput, error) {
	return f.out(), nil
}

type fakeVisualExtractor struct {
	images []extract.ImageAsset
}

func (f fakeVisualExtractor) ExtractVisuals(ctx context.Context, pdfPath string) (extract.VisualOutput, error) {
	return extract.VisualOutput{Images: f.images}, nil
}

func onePageFragments() extract.LayoutOutput {
	return extract.LayoutOutput{
		Pages: []extract.LayoutPage{
			{
				PageIndex: 0,
				Width:     612,
				Height:    792,
				Fragments: []extract.Fragment{
					{Text: "Chapter One", BBox: extract.BBox{X: 72, Y: 700, Width: 200, Height: 24}, FontSize: 24, FontName: "Helvetica-Bold"},
					{Text: "This is the opening paragraph of the chapter.", BBox: extract.BBox{X: 72, Y: 660, Width: 400, Height: 14}, FontSize: 12, FontName: "Helvetica"},
					{Text: "It continues onto a second line without a gap.", BBox: extract.BBox{X: 72, Y: 645, Width: 400, Height: 14}, FontSize: 12, FontName: "Helvetica"},
					{Text: "1. First item", BBox: extract.BBox{X: 72, Y: 600, Width: 200, Height: 14}, FontSize: 12, FontName: "Helvetica"},
					{Text: "2. Second item", BBox: extract.BBox{X: 72, Y: 585, Width: 200, Height: 14}, FontSize: 12, FontName: "Helvetica"},
					{Text: "42", BBox: extract.BBox{X: 300, Y: 20, Width: 20, Height: 10}, FontSize: 9, FontName: "Helvetica"},
				},
			},
		},
	}
}

func TestReconcileClassifiesHeadingParagraphAndList(t *testing.T) {
	r := New(fakeLayoutExtractor{out: onePageFragments}, nil)
	doc, err := r.Reconcile(context.Background(), "fake.pdf", "doc1", "fr")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("len(Pages) = %d, want 1", len(doc.Pages))
	}

	var headings, paragraphs, items int
	for _, b := range doc.AllBlocks() {
		switch b.Kind() {
		case document.KindHeading:
			headings++
		case document.KindParagraph:
			paragraphs++
		case document.KindListItem:
			items++
		}
	}
	if headings != 1 {
		t.Errorf("headings = %d, want 1", headings)
	}
	if paragraphs != 1 {
		t.Errorf("paragraphs = %d, want 1 (merged continuation)", paragraphs)
	}
	if items != 2 {
		t.Errorf("list items = %d, want 2", items)
	}
}

func TestReconcileDropsBottomMarginPageNumber(t *testing.T) {
	r := New(fakeLayoutExtractor{out: onePageFragments}, nil)
	doc, err := r.Reconcile(context.Background(), "fake.pdf", "doc1", "fr")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	for _, b := range doc.AllBlocks() {
		if b.Base().OriginalText == "42" {
			t.Errorf("bare page number %q survived artifact filtering", b.Base().OriginalText)
		}
	}
}

func TestReconcilePlacesImageAndAttachesCaption(t *testing.T) {
	layout := func() extract.LayoutOutput {
		return extract.LayoutOutput{
			Pages: []extract.LayoutPage{
				{
					PageIndex: 0,
					Width:     612,
					Height:    792,
					Fragments: []extract.Fragment{
						{Text: "Body text above the figure.", BBox: extract.BBox{X: 72, Y: 500, Width: 400, Height: 14}, FontSize: 12, FontName: "Helvetica"},
						{Text: "Figure 1: A diagram of the system.", BBox: extract.BBox{X: 72, Y: 400, Width: 400, Height: 14}, FontSize: 10, FontName: "Helvetica"},
					},
				},
			},
		}
	}
	visual := fakeVisualExtractor{images: []extract.ImageAsset{
		{AssetID: "img1", Binary: []byte{1, 2, 3}, MimeType: "image/png", BBox: extract.BBox{X: 72, Y: 430, Width: 300, Height: 100}, PageIndex: 0, MinDimPx: 100, AspectRatio: 3},
	}}
	r := New(fakeLayoutExtractor{out: layout}, visual)
	doc, err := r.Reconcile(context.Background(), "fake.pdf", "doc1", "fr")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	imgs := doc.ImagePlaceholders()
	if len(imgs) != 1 {
		t.Fatalf("len(ImagePlaceholders) = %d, want 1", len(imgs))
	}
	if imgs[0].CaptionID == "" {
		t.Errorf("image has no attached caption")
	}
	if !doc.AssetIDs["img1"] {
		t.Errorf("AssetIDs does not contain %q", "img1")
	}
}

func TestReconcileExtractsFootnoteToTailSection(t *testing.T) {
	layout := func() extract.LayoutOutput {
		return extract.LayoutOutput{
			Pages: []extract.LayoutPage{
				{
					PageIndex: 0,
					Width:     612,
					Height:    792,
					Fragments: []extract.Fragment{
						{Text: "A claim requiring a citation [1].", BBox: extract.BBox{X: 72, Y: 700, Width: 400, Height: 14}, FontSize: 12, FontName: "Helvetica"},
						{Text: "1. Source material, 2024.", BBox: extract.BBox{X: 72, Y: 40, Width: 300, Height: 10}, FontSize: 9, FontName: "Helvetica"},
					},
				},
			},
		}
	}
	r := New(fakeLayoutExtractor{out: layout}, nil)
	doc, err := r.Reconcile(context.Background(), "fake.pdf", "doc1", "fr")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(doc.Footnotes) != 1 {
		t.Fatalf("len(Footnotes) = %d, want 1", len(doc.Footnotes))
	}
	if doc.Footnotes[0].ReferenceID != "1" {
		t.Errorf("ReferenceID = %q, want %q", doc.Footnotes[0].ReferenceID, "1")
	}
}

func TestReconcileMergesHeadingSplitAcrossPageBreak(t *testing.T) {
	layout := func() extract.LayoutOutput {
		return extract.LayoutOutput{
			Pages: []extract.LayoutPage{
				{
					PageIndex: 0,
					Width:     612,
					Height:    792,
					Fragments: []extract.Fragment{
						{Text: "This chapter explains configuration.", BBox: extract.BBox{X: 72, Y: 700, Width: 400, Height: 14}, FontSize: 12, FontName: "Helvetica"},
						{Text: "Configuring the Network", BBox: extract.BBox{X: 72, Y: 650, Width: 200, Height: 24}, FontSize: 24, FontName: "Helvetica-Bold"},
					},
				},
				{
					PageIndex: 1,
					Width:     612,
					Height:    792,
					Fragments: []extract.Fragment{
						{Text: "and Related Services", BBox: extract.BBox{X: 72, Y: 700, Width: 200, Height: 24}, FontSize: 24, FontName: "Helvetica-Bold"},
						{Text: "More details follow.", BBox: extract.BBox{X: 72, Y: 650, Width: 400, Height: 14}, FontSize: 12, FontName: "Helvetica"},
					},
				},
			},
		}
	}
	r := New(fakeLayoutExtractor{out: layout}, nil)
	doc, err := r.Reconcile(context.Background(), "fake.pdf", "doc1", "fr")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	headings := doc.Headings()
	if len(headings) != 1 {
		t.Fatalf("len(Headings) = %d, want 1 (merged across the page break)", len(headings))
	}
	want := "Configuring the Network and Related Services"
	if headings[0].OriginalText != want {
		t.Errorf("merged heading text = %q, want %q", headings[0].OriginalText, want)
	}
	if headings[0].BookmarkID == "" {
		t.Errorf("merged heading has no bookmark id")
	}
}

func TestReconcileDoesNotMergeHeadingsEndingWithPunctuation(t *testing.T) {
	layout := func() extract.LayoutOutput {
		return extract.LayoutOutput{
			Pages: []extract.LayoutPage{
				{
					PageIndex: 0,
					Width:     612,
					Height:    792,
					Fragments: []extract.Fragment{
						{Text: "Introduction:", BBox: extract.BBox{X: 72, Y: 700, Width: 200, Height: 24}, FontSize: 24, FontName: "Helvetica-Bold"},
						{Text: "and Scope of This Document", BBox: extract.BBox{X: 72, Y: 650, Width: 200, Height: 24}, FontSize: 24, FontName: "Helvetica-Bold"},
						{Text: "This body paragraph sets the document's body font size.", BBox: extract.BBox{X: 72, Y: 400, Width: 400, Height: 14}, FontSize: 12, FontName: "Helvetica"},
					},
				},
			},
		}
	}
	r := New(fakeLayoutExtractor{out: layout}, nil)
	doc, err := r.Reconcile(context.Background(), "fake.pdf", "doc1", "fr")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(doc.Headings()) != 2 {
		t.Errorf("len(Headings) = %d, want 2 (first ends with terminal punctuation, must not merge)", len(doc.Headings()))
	}
}

func TestReconcileDemotesOverlongHeadingByCharacterCount(t *testing.T) {
	longHeading := "Comprehensive Internationalization Considerations Regarding Multilingual Documentation Infrastructure Requirements"
	if len(longHeading) <= 100 || wordCount(longHeading) > 15 {
		t.Fatalf("fixture invariant broken: want <=15 words and >100 chars, got %d words, %d chars", wordCount(longHeading), len(longHeading))
	}
	layout := func() extract.LayoutOutput {
		return extract.LayoutOutput{
			Pages: []extract.LayoutPage{
				{
					PageIndex: 0,
					Width:     612,
					Height:    792,
					Fragments: []extract.Fragment{
						{Text: longHeading, BBox: extract.BBox{X: 72, Y: 700, Width: 500, Height: 24}, FontSize: 24, FontName: "Helvetica-Bold"},
						{Text: "This body paragraph runs long enough that twelve-point text outweighs the oversized heading line when the reconciler picks the body size.", BBox: extract.BBox{X: 72, Y: 680, Width: 500, Height: 14}, FontSize: 12, FontName: "Helvetica"},
					},
				},
			},
		}
	}
	r := New(fakeLayoutExtractor{out: layout}, nil)
	doc, err := r.Reconcile(context.Background(), "fake.pdf", "doc1", "fr")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(doc.Headings()) != 0 {
		t.Errorf("len(Headings) = %d, want 0 (demoted to Paragraph for exceeding HeadingMaxChars)", len(doc.Headings()))
	}
	var paragraphs int
	for _, b := range doc.AllBlocks() {
		if b.Kind() == document.KindParagraph {
			paragraphs++
		}
	}
	if paragraphs != 1 {
		t.Errorf("paragraphs = %d, want 1", paragraphs)
	}
}
