// Package batch implements the Async Batch Executor (spec §4.6): it
// groups translatable blocks into bounded-size batches and dispatches
// them concurrently, under a rate cap, to the Self-Correcting Translator.
//
// Grouping sizing is grounded on tsawler-tabula's rag.SizeLimit model
// (soft/hard limits over a measurement unit), adapted here from chunk
// sizing to batch-group sizing: character count is a hard limit, item
// count is a hard limit, and a block's own kind can force a singleton
// group regardless of either.
package batch

import (
	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/router"
)

// GroupingOptions tunes the grouping policy (spec §6.4 "grouping"
// config section).
type GroupingOptions struct {
	Enable            bool
	MaxGroupSizeChars int
	MaxItemsPerGroup  int
}

// DefaultGroupingOptions returns the spec §4.6 defaults.
func DefaultGroupingOptions() GroupingOptions {
	return GroupingOptions{Enable: true, MaxGroupSizeChars: 12000, MaxItemsPerGroup: 8}
}

// Group is one unit of work handed to the Executor: either several
// compatible blocks combined into a single translation call, or exactly
// one block when the kind or strategy forbids combination.
type Group struct {
	Blocks     []document.Block
	Decisions  []router.Decision
	Strategy   router.Strategy
	TargetLang string
}

// MaxImportance returns the highest router.Importance across the
// group's members, used to pick a prompt style for the whole batch.
func (g Group) MaxImportance() router.Importance {
	max := router.ImportanceLow
	for _, d := range g.Decisions {
		if d.Importance > max {
			max = d.Importance
		}
	}
	return max
}

// TotalChars returns the combined OriginalText length across the
// group's members.
func (g Group) TotalChars() int {
	n := 0
	for _, b := range g.Blocks {
		n += len(b.Base().OriginalText)
	}
	return n
}

// neverGrouped reports whether a block of this kind is always a
// singleton group (spec §4.6: "Headings and preserve-blocks are never
// grouped with others"; tables are added here because each table's
// cells are already combined internally by the executor and a table
// must never also absorb unrelated paragraphs).
func neverGrouped(k document.BlockKind) bool {
	switch k {
	case document.KindHeading, document.KindTable:
		return true
	default:
		return false
	}
}

// GroupBlocks applies the spec §4.6 grouping policy to an ordered block
// list and the routing decision computed for each block (decisions[i]
// corresponds to blocks[i]). Blocks routed to StrategyPreserve are
// dropped: they never reach the batch executor, since the pipeline
// controller copies their text verbatim without a translation call.
func GroupBlocks(blocks []document.Block, decisions []router.Decision, targetLang string, opts GroupingOptions) []Group {
	var groups []Group
	var cur *Group

	flush := func() {
		if cur != nil {
			groups = append(groups, *cur)
			cur = nil
		}
	}

	for i, b := range blocks {
		d := decisions[i]
		if d.Strategy == router.StrategyPreserve {
			flush()
			continue
		}

		singleton := !opts.Enable || neverGrouped(b.Kind()) || d.Strategy == router.StrategySelfCorrecting
		if singleton {
			flush()
			groups = append(groups, Group{
				Blocks:     []document.Block{b},
				Decisions:  []router.Decision{d},
				Strategy:   d.Strategy,
				TargetLang: targetLang,
			})
			continue
		}

		if cur != nil && cur.Strategy == d.Strategy &&
			len(cur.Blocks) < opts.MaxItemsPerGroup &&
			cur.TotalChars()+len(b.Base().OriginalText) <= opts.MaxGroupSizeChars {
			cur.Blocks = append(cur.Blocks, b)
			cur.Decisions = append(cur.Decisions, d)
			continue
		}

		flush()
		cur = &Group{
			Blocks:     []document.Block{b},
			Decisions:  []router.Decision{d},
			Strategy:   d.Strategy,
			TargetLang: targetLang,
		}
	}
	flush()
	return groups
}
