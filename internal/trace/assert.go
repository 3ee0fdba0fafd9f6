package trace

import (
	"fmt"

	"github.com/pdfxlate/pdfxlate/internal/perr"
)

// AssertImagePreservation enforces spec invariant 7: the number of
// images placed in the translated document must equal the number
// extracted from the source PDF. A violation is document-fatal — it
// means an ImagePlaceholder was dropped or duplicated between
// reconciliation and this check, which the pipeline runs before assembly.
func AssertImagePreservation(originalCount, translatedCount int) error {
	if originalCount != translatedCount {
		return perr.New(perr.KindImagePreservationViolation, "assembly",
			fmt.Errorf("original image count %d != translated image count %d", originalCount, translatedCount))
	}
	return nil
}

// AssertHeadingsMatchTOC enforces spec §4.7's Pass 2 fail-fast rule: the
// table of contents must contain exactly one entry per heading, in the
// same order, with no heading skipped and no stray TOC entry.
func AssertHeadingsMatchTOC(headingIDs, tocEntryIDs []string) error {
	if len(headingIDs) != len(tocEntryIDs) {
		return perr.New(perr.KindAssemblerInvariantViolated, "assembly",
			fmt.Errorf("%d headings but %d TOC entries", len(headingIDs), len(tocEntryIDs)))
	}
	for i := range headingIDs {
		if headingIDs[i] != tocEntryIDs[i] {
			return perr.New(perr.KindAssemblerInvariantViolated, "assembly",
				fmt.Errorf("heading/TOC order mismatch at position %d: heading %q, TOC entry %q", i, headingIDs[i], tocEntryIDs[i]))
		}
	}
	return nil
}

// AssertBookmarksResolve enforces that every bookmark id referenced by a
// TOC entry was actually assigned to some heading during reconciliation
// (spec §4.1 step 5 / §8's "dangling bookmark" property).
func AssertBookmarksResolve(assignedBookmarkIDs map[string]bool, referencedBookmarkIDs []string) error {
	for _, id := range referencedBookmarkIDs {
		if !assignedBookmarkIDs[id] {
			return perr.New(perr.KindAssemblerInvariantViolated, "assembly",
				fmt.Errorf("TOC references bookmark id %q which no heading was assigned", id))
		}
	}
	return nil
}
