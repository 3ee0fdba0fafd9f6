package translate

import (
	"fmt"
	"strings"

	"github.com/pdfxlate/pdfxlate/internal/transport"
)

// PromptStyle selects the verbosity of system instructions sent alongside
// a translation request, ported from translation_strategy_manager.py's
// _get_prompt_style: high-importance content gets full context, low
// importance gets the cheapest instruction set.
type PromptStyle int

const (
	PromptDetailed PromptStyle = iota
	PromptStandard
	PromptSimple
)

func buildSystemPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the given text into %s. Respond with only the translation, no commentary.\n", req.TargetLanguage)
	if req.SystemInstructions != "" {
		b.WriteString(req.SystemInstructions)
		b.WriteString("\n")
	}
	return b.String()
}

// SystemInstructions builds the system_instructions field for a request
// at the given style, including the transport-token preservation hint and
// an optional glossary hint.
func SystemInstructions(style PromptStyle, glossaryHint string) string {
	var b strings.Builder
	switch style {
	case PromptDetailed:
		b.WriteString("This is high-value content: translate with full fidelity to meaning, register, and structure. ")
	case PromptStandard:
		b.WriteString("Translate accurately and naturally. ")
	default:
		b.WriteString("Translate concisely. ")
	}
	b.WriteString(transport.InstructionHint())
	if glossaryHint != "" {
		b.WriteString(" ")
		b.WriteString(glossaryHint)
	}
	return b.String()
}

// CorrectionSystemInstructions builds the targeted correction prompt for
// a self-correcting retry (spec §4.4 step 3), naming the specific
// structural violation so the retry has something concrete to fix.
func CorrectionSystemInstructions(base, correctionPrompt string) string {
	if correctionPrompt == "" {
		return base
	}
	return base + "\n" + correctionPrompt
}
