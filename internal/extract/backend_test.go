package extract

import (
	"testing"

	"github.com/ledongthuc/pdf"
)

func textSpan(s string, x, y, fontSize float64, font string) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, FontSize: fontSize, Font: font}
}

func TestRowToFragmentsSplitsOnWideGap(t *testing.T) {
	row := pdf.Row{Content: []pdf.Text{
		textSpan("Name", 72, 700, 10, "Helvetica"),
		textSpan("Quantity", 300, 700, 10, "Helvetica"),
	}}
	frags := rowToFragments(&row, 0)
	if len(frags) != 2 {
		t.Fatalf("len(frags) = %d, want 2 (wide gap should split into cells)", len(frags))
	}
	if frags[0].Text != "Name" || frags[1].Text != "Quantity" {
		t.Errorf("frags = %+v", frags)
	}
}

func TestRowToFragmentsMergesCloseWords(t *testing.T) {
	row := pdf.Row{Content: []pdf.Text{
		textSpan("Hello", 72, 700, 10, "Helvetica-Bold"),
		textSpan(" ", 100, 700, 10, "Helvetica-Bold"),
		textSpan("World", 106, 700, 10, "Helvetica-Bold"),
	}}
	frags := rowToFragments(&row, 0)
	if len(frags) != 1 {
		t.Fatalf("len(frags) = %d, want 1 (close words stay in one cell)", len(frags))
	}
	if frags[0].Text != "Hello World" {
		t.Errorf("Text = %q, want %q", frags[0].Text, "Hello World")
	}
	if !frags[0].Bold {
		t.Errorf("Bold = false, want true for Helvetica-Bold")
	}
}

func TestRowToFragmentsDropsPostScriptLeakage(t *testing.T) {
	row := pdf.Row{Content: []pdf.Text{
		textSpan("gsave 0 0 moveto", 72, 700, 10, "Helvetica"),
	}}
	if frags := rowToFragments(&row, 0); len(frags) != 0 {
		t.Errorf("len(frags) = %d, want 0 (PostScript operator leakage dropped)", len(frags))
	}
}

func TestIsPostScriptCode(t *testing.T) {
	cases := map[string]bool{
		"gsave 1 0 0 setrgbcolor":  true,
		"/Helvetica def":           true,
		"This is normal prose.":    false,
		"Figure 1: System diagram": false,
	}
	for text, want := range cases {
		if got := isPostScriptCode(text); got != want {
			t.Errorf("isPostScriptCode(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestResolveRange(t *testing.T) {
	if s, e := resolveRange(PageRange{}, 10); s != 1 || e != 10 {
		t.Errorf("zero value = %d,%d, want 1,10", s, e)
	}
	if s, e := resolveRange(PageRange{Start: 3, End: 5}, 10); s != 3 || e != 5 {
		t.Errorf("bounded range = %d,%d, want 3,5", s, e)
	}
	if s, e := resolveRange(PageRange{End: 100}, 10); s != 1 || e != 10 {
		t.Errorf("end beyond count = %d,%d, want 1,10", s, e)
	}
}

func TestEstimatedImageBBoxSlicesPageEvenly(t *testing.T) {
	b0 := estimatedImageBBox(600, 900, 0, 3)
	b1 := estimatedImageBBox(600, 900, 1, 3)
	b2 := estimatedImageBBox(600, 900, 2, 3)
	if b0.Height != 300 || b1.Height != 300 || b2.Height != 300 {
		t.Fatalf("heights = %v,%v,%v, want 300 each", b0.Height, b1.Height, b2.Height)
	}
	if b0.Y <= b1.Y || b1.Y <= b2.Y {
		t.Errorf("slices are not stacked top to bottom: %v,%v,%v", b0.Y, b1.Y, b2.Y)
	}
}

func TestMimeTypeFromExt(t *testing.T) {
	cases := map[string]string{
		"img.PNG":    "image/png",
		"page1.jpg":  "image/jpeg",
		"page1.jpeg": "image/jpeg",
		"page1.bin":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := mimeTypeFromExt(name); got != want {
			t.Errorf("mimeTypeFromExt(%q) = %q, want %q", name, got, want)
		}
	}
}
