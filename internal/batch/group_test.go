package batch

import (
	"testing"

	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/router"
)

func TestGroupBlocks_CombinesConsecutiveSameStrategyBlocks(t *testing.T) {
	blocks := []document.Block{
		document.NewParagraph("p1", 1, document.BBox{}, "one"),
		document.NewParagraph("p2", 1, document.BBox{}, "two"),
		document.NewParagraph("p3", 1, document.BBox{}, "three"),
	}
	decisions := []router.Decision{
		{Strategy: router.StrategyMarkdownAwareCost, Importance: router.ImportanceLow},
		{Strategy: router.StrategyMarkdownAwareCost, Importance: router.ImportanceLow},
		{Strategy: router.StrategyMarkdownAwareCost, Importance: router.ImportanceLow},
	}
	groups := GroupBlocks(blocks, decisions, "es", DefaultGroupingOptions())
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	if len(groups[0].Blocks) != 3 {
		t.Errorf("group size = %d, want 3", len(groups[0].Blocks))
	}
}

func TestGroupBlocks_HeadingsAreNeverGrouped(t *testing.T) {
	blocks := []document.Block{
		document.NewParagraph("p1", 1, document.BBox{}, "one"),
		document.NewHeading("h1", 1, document.BBox{}, "Title", 1, "bm-1"),
		document.NewParagraph("p2", 1, document.BBox{}, "two"),
	}
	decisions := []router.Decision{
		{Strategy: router.StrategyMarkdownAwareCost, Importance: router.ImportanceLow},
		{Strategy: router.StrategyMarkdownAwareQuality, Importance: router.ImportanceHigh},
		{Strategy: router.StrategyMarkdownAwareCost, Importance: router.ImportanceLow},
	}
	groups := GroupBlocks(blocks, decisions, "es", DefaultGroupingOptions())
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3 (heading forces a split both sides)", len(groups))
	}
	if len(groups[1].Blocks) != 1 || groups[1].Blocks[0].Base().ID != "h1" {
		t.Errorf("groups[1] = %+v, want singleton heading group", groups[1])
	}
}

func TestGroupBlocks_PreserveStrategyBlocksAreDropped(t *testing.T) {
	blocks := []document.Block{
		document.NewParagraph("p1", 1, document.BBox{}, "one"),
		document.NewMathFormula("m1", 1, document.BBox{}, "E=mc^2", document.DisplayInline),
		document.NewParagraph("p2", 1, document.BBox{}, "two"),
	}
	decisions := []router.Decision{
		{Strategy: router.StrategyMarkdownAwareCost, Importance: router.ImportanceLow},
		{Strategy: router.StrategyPreserve, Importance: router.ImportanceHigh},
		{Strategy: router.StrategyMarkdownAwareCost, Importance: router.ImportanceLow},
	}
	groups := GroupBlocks(blocks, decisions, "es", DefaultGroupingOptions())
	for _, g := range groups {
		for _, b := range g.Blocks {
			if b.Base().ID == "m1" {
				t.Fatal("preserve-strategy block should never appear in a batch group")
			}
		}
	}
}

func TestGroupBlocks_RespectsMaxItemsPerGroup(t *testing.T) {
	var blocks []document.Block
	var decisions []router.Decision
	for i := 0; i < 10; i++ {
		blocks = append(blocks, document.NewParagraph("p", 1, document.BBox{}, "word"))
		decisions = append(decisions, router.Decision{Strategy: router.StrategyMarkdownAwareCost})
	}
	opts := DefaultGroupingOptions()
	opts.MaxItemsPerGroup = 4
	groups := GroupBlocks(blocks, decisions, "es", opts)
	for _, g := range groups {
		if len(g.Blocks) > 4 {
			t.Errorf("group size = %d, want <= 4", len(g.Blocks))
		}
	}
	total := 0
	for _, g := range groups {
		total += len(g.Blocks)
	}
	if total != 10 {
		t.Errorf("total blocks across groups = %d, want 10", total)
	}
}

func TestGroupBlocks_RespectsMaxGroupSizeChars(t *testing.T) {
	longText := ""
	for i := 0; i < 100; i++ {
		longText += "0123456789"
	}
	blocks := []document.Block{
		document.NewParagraph("p1", 1, document.BBox{}, longText),
		document.NewParagraph("p2", 1, document.BBox{}, longText),
	}
	decisions := []router.Decision{
		{Strategy: router.StrategyMarkdownAwareCost},
		{Strategy: router.StrategyMarkdownAwareCost},
	}
	opts := DefaultGroupingOptions()
	opts.MaxGroupSizeChars = 1500
	groups := GroupBlocks(blocks, decisions, "es", opts)
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2 (combined size exceeds the cap)", len(groups))
	}
}

func TestGroupBlocks_TablesAreAlwaysSingleton(t *testing.T) {
	blocks := []document.Block{
		document.NewTable("t1", 1, document.BBox{}, 2, 2),
		document.NewTable("t2", 1, document.BBox{}, 2, 2),
	}
	decisions := []router.Decision{
		{Strategy: router.StrategySelfCorrecting, Importance: router.ImportanceHigh},
		{Strategy: router.StrategySelfCorrecting, Importance: router.ImportanceHigh},
	}
	groups := GroupBlocks(blocks, decisions, "es", DefaultGroupingOptions())
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	for _, g := range groups {
		if len(g.Blocks) != 1 {
			t.Errorf("table group size = %d, want 1", len(g.Blocks))
		}
	}
}
