// Package document defines the structured content model that flows through
// the translation pipeline: a closed ContentBlock variant owned by an
// ordered Document of Pages, plus the invariants that must hold at every
// stage boundary.
//
// The variant shape is grounded on the teacher library's model.Element
// interface (one struct per kind, a ZIndex/Type/BoundingBox trio of
// accessors) generalized with the fields the translation pipeline needs:
// translated_text, bookmark ids, footnote cross-references, and the
// preserve-block marker.
package document

// BlockKind tags a ContentBlock's variant.
type BlockKind int

const (
	KindUnknown BlockKind = iota
	KindHeading
	KindParagraph
	KindListItem
	KindFootnote
	KindTable
	KindCaption
	KindMathFormula
	KindCodeBlock
	KindImagePlaceholder
)

func (k BlockKind) String() string {
	switch k {
	case KindHeading:
		return "Heading"
	case KindParagraph:
		return "Paragraph"
	case KindListItem:
		return "ListItem"
	case KindFootnote:
		return "Footnote"
	case KindTable:
		return "Table"
	case KindCaption:
		return "Caption"
	case KindMathFormula:
		return "MathFormula"
	case KindCodeBlock:
		return "CodeBlock"
	case KindImagePlaceholder:
		return "ImagePlaceholder"
	default:
		return "Unknown"
	}
}

// Preserve reports whether blocks of this kind are never translated —
// original_text is carried verbatim through the pipeline (spec invariant 5).
func (k BlockKind) Preserve() bool {
	switch k {
	case KindMathFormula, KindCodeBlock, KindImagePlaceholder:
		return true
	default:
		return false
	}
}

// Common holds the fields every ContentBlock variant shares.
type Common struct {
	ID             string
	PageNumber     int
	BoundingBox    BBox
	OriginalText   string
	TranslatedText string
	Metadata       map[string]string
}

// Block is the closed ContentBlock interface. Every variant embeds Common
// and reports its own Kind; components switch on Kind rather than growing
// an inheritance hierarchy (spec §9 design note).
type Block interface {
	Kind() BlockKind
	Base() *Common
}

func newCommon(id string, page int, bbox BBox, original string) Common {
	return Common{ID: id, PageNumber: page, BoundingBox: bbox, OriginalText: original, Metadata: map[string]string{}}
}

// Heading is a document heading, level 1 (title) through 6.
type Heading struct {
	Common
	Level      int
	BookmarkID string
	Numbering  string // e.g. "1.2.3", empty if unnumbered
}

func (h *Heading) Kind() BlockKind { return KindHeading }
func (h *Heading) Base() *Common   { return &h.Common }

// NewHeading constructs a Heading block.
func NewHeading(id string, page int, bbox BBox, text string, level int, bookmarkID string) *Heading {
	return &Heading{Common: newCommon(id, page, bbox, text), Level: level, BookmarkID: bookmarkID}
}

// Paragraph is a run of body text.
type Paragraph struct {
	Common
	IsContinuation bool // true when merged from a preceding fragment (§4.1 step 5)
}

func (p *Paragraph) Kind() BlockKind { return KindParagraph }
func (p *Paragraph) Base() *Common   { return &p.Common }

// NewParagraph constructs a Paragraph block.
func NewParagraph(id string, page int, bbox BBox, text string) *Paragraph {
	return &Paragraph{Common: newCommon(id, page, bbox, text)}
}

// ListMarkerKind distinguishes bullet, numeric, and lettered list markers.
type ListMarkerKind int

const (
	MarkerBullet ListMarkerKind = iota
	MarkerNumber
	MarkerLetter
	MarkerRoman
)

// ListItem is one entry of an ordered or unordered list.
type ListItem struct {
	Common
	Marker       string
	MarkerKind   ListMarkerKind
	NestingLevel int
	Ordered      bool
}

func (l *ListItem) Kind() BlockKind { return KindListItem }
func (l *ListItem) Base() *Common   { return &l.Common }

// NewListItem constructs a ListItem block.
func NewListItem(id string, page int, bbox BBox, text, marker string, nesting int, ordered bool) *ListItem {
	return &ListItem{Common: newCommon(id, page, bbox, text), Marker: marker, NestingLevel: nesting, Ordered: ordered}
}

// Footnote is a relocated tail-section note; ReferenceID matches exactly one
// inline marker embedded in some Paragraph's text (spec invariant 2).
type Footnote struct {
	Common
	ReferenceID string
	OriginPage  int
}

func (f *Footnote) Kind() BlockKind { return KindFootnote }
func (f *Footnote) Base() *Common   { return &f.Common }

// NewFootnote constructs a Footnote block.
func NewFootnote(id string, page int, bbox BBox, text, referenceID string, originPage int) *Footnote {
	return &Footnote{Common: newCommon(id, page, bbox, text), ReferenceID: referenceID, OriginPage: originPage}
}

// Cell is a single Table cell; text is translated in place (no per-cell Block).
type Cell struct {
	Text           string
	TranslatedText string
}

// Table is a grid of cells, grounded on the extractor's tables.Detector output.
type Table struct {
	Common
	Rows       [][]Cell
	HeaderRows int // 0 or 1 per spec
	CaptionID  string
}

func (t *Table) Kind() BlockKind { return KindTable }
func (t *Table) Base() *Common   { return &t.Common }

// RowCount and ColCount describe the table's shape.
func (t *Table) RowCount() int { return len(t.Rows) }
func (t *Table) ColCount() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// NewTable constructs an empty rows x cols Table.
func NewTable(id string, page int, bbox BBox, rows, cols int) *Table {
	t := &Table{Common: newCommon(id, page, bbox, ""), Rows: make([][]Cell, rows)}
	for i := range t.Rows {
		t.Rows[i] = make([]Cell, cols)
	}
	return t
}

// Caption is text attached to a Table or ImagePlaceholder (spec invariant 3:
// TargetID must resolve to an existing block of one of those two kinds).
type Caption struct {
	Common
	TargetID string
}

func (c *Caption) Kind() BlockKind { return KindCaption }
func (c *Caption) Base() *Common   { return &c.Common }

// NewCaption constructs a Caption block.
func NewCaption(id string, page int, bbox BBox, text, targetID string) *Caption {
	return &Caption{Common: newCommon(id, page, bbox, text), TargetID: targetID}
}

// DisplayMode distinguishes inline math ($...$) from block math ($$...$$).
type DisplayMode int

const (
	DisplayInline DisplayMode = iota
	DisplayBlock
)

// MathFormula carries LaTeX source verbatim; it is never translated
// (spec invariant 5 — TranslatedText is either empty or an exact copy of
// OriginalText; the pipeline copies OriginalText into it when the router
// assigns the preserve strategy).
type MathFormula struct {
	Common
	Latex       string
	DisplayMode DisplayMode
}

func (m *MathFormula) Kind() BlockKind { return KindMathFormula }
func (m *MathFormula) Base() *Common   { return &m.Common }

// NewMathFormula constructs a MathFormula block.
func NewMathFormula(id string, page int, bbox BBox, latex string, mode DisplayMode) *MathFormula {
	return &MathFormula{Common: newCommon(id, page, bbox, latex), Latex: latex, DisplayMode: mode}
}

// CodeBlock carries literal source text verbatim; like MathFormula, it is
// never translated.
type CodeBlock struct {
	Common
	Language string // optional, empty if undetected
}

func (c *CodeBlock) Kind() BlockKind { return KindCodeBlock }
func (c *CodeBlock) Base() *Common   { return &c.Common }

// NewCodeBlock constructs a CodeBlock block.
func NewCodeBlock(id string, page int, bbox BBox, text, language string) *CodeBlock {
	return &CodeBlock{Common: newCommon(id, page, bbox, text), Language: language}
}

// SpatialRelationship describes how an image relates to its nearest text block.
type SpatialRelationship int

const (
	SpatialBefore SpatialRelationship = iota
	SpatialAfter
	SpatialAlongside
	SpatialWrapped
)

// ImagePlaceholder references a binary asset stored out-of-band; the bytes
// themselves never pass through translation (spec invariant 4, 7).
type ImagePlaceholder struct {
	Common
	ImageAssetID        string
	CaptionID           string
	SpatialRelationship SpatialRelationship
	ReadingOrderPosition int
}

func (i *ImagePlaceholder) Kind() BlockKind { return KindImagePlaceholder }
func (i *ImagePlaceholder) Base() *Common   { return &i.Common }

// NewImagePlaceholder constructs an ImagePlaceholder block.
func NewImagePlaceholder(id string, page int, bbox BBox, assetID string) *ImagePlaceholder {
	return &ImagePlaceholder{Common: newCommon(id, page, bbox, ""), ImageAssetID: assetID}
}
