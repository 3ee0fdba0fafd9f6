package pipeline

import (
	"errors"

	"github.com/pdfxlate/pdfxlate/internal/perr"
	"github.com/pdfxlate/pdfxlate/internal/trace"
)

// Outcome summarizes one ProcessDocument call for the command surface to
// report and to pick an exit code from (spec §6.5).
type Outcome struct {
	DocumentID string
	Trace      *trace.Trace

	// QuarantineCount is how many blocks of this document are recorded
	// in the quarantine store.
	QuarantineCount int

	// TranslatableBlockCount excludes preserve-kind blocks, which never
	// reach the translator.
	TranslatableBlockCount int

	// EndpointUnreachable is true when every translatable block in the
	// document was quarantined — a total endpoint outage rather than a
	// handful of blocked prompts — which the command surface reports
	// distinctly (exit 3) from a partial-success run (exit 4).
	EndpointUnreachable bool
}

// ExitCode maps one document's outcome and terminal error, if any, to the
// spec §6.5 process exit code: 0 success, 1 configuration error, 2 fatal
// extractor error, 3 translation endpoint unreachable, 4 quarantine
// populated (partial success). Every other terminal error, including
// assembler invariant and image-preservation violations, maps to 5.
func ExitCode(outcome *Outcome, err error) int {
	if err != nil {
		var pe *perr.Error
		if errors.As(err, &pe) {
			switch pe.Kind {
			case perr.KindConfigInvalid:
				return 1
			case perr.KindExtractorTimeout, perr.KindExtractorUnavailable, perr.KindExtractorCorruptInput:
				return 2
			case perr.KindAssemblerInvariantViolated, perr.KindImagePreservationViolation:
				return 5
			}
		}
		return 5
	}
	if outcome != nil && outcome.EndpointUnreachable {
		return 3
	}
	if outcome != nil && outcome.QuarantineCount > 0 {
		return 4
	}
	return 0
}
