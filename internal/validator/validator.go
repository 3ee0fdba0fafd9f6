// Package validator implements StructuredContentValidator (spec §4.4):
// it checks a translated block's structural invariants against its
// original text (tables, code fences, LaTeX, lists) and, on failure,
// produces a targeted correction prompt naming the specific violation.
// Ported from structured_content_validator.py, generalized from a
// dataclass result into a Go Result with named Issue values instead of
// free-text strings, so callers can branch on violation kind.
package validator

import (
	"fmt"
	"regexp"
	"strings"
)

// ContentType names the structural category a block's text belongs to.
type ContentType int

const (
	TypeUnknown ContentType = iota
	TypeTable
	TypeCodeBlock
	TypeLatexFormula
	TypeList
)

func (c ContentType) String() string {
	switch c {
	case TypeTable:
		return "table"
	case TypeCodeBlock:
		return "code_block"
	case TypeLatexFormula:
		return "latex_formula"
	case TypeList:
		return "list"
	default:
		return "unknown"
	}
}

// Issue is one structural violation found between original and
// translated text, carrying enough detail to build a targeted
// correction prompt (spec §4.4 step 3).
type Issue struct {
	Description   string
	SuggestedFix  string
}

// Result is the outcome of validating one block's translation.
type Result struct {
	Valid       bool
	ContentType ContentType
	Issues      []Issue
	Confidence  float64
}

// CorrectionPrompt renders the issues into the targeted correction
// instruction described in spec §4.4 step 3.
func (r Result) CorrectionPrompt() string {
	if len(r.Issues) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("The previous translation has structural problems that must be fixed:\n")
	for _, iss := range r.Issues {
		fmt.Fprintf(&b, "- %s. %s.\n", iss.Description, iss.SuggestedFix)
	}
	return b.String()
}

var (
	markdownTableRow = regexp.MustCompile(`(?m)\|.*\|`)
	tableSeparator   = regexp.MustCompile(`\|[\s\-:]+\|`)
	tableSepLineOnly = regexp.MustCompile(`^\s*\|[\s\-:]+\|\s*$`)
	codeFenceBlock   = regexp.MustCompile(`(?s)` + "```" + `[\s\S]*?` + "```")
	codeFenceLang    = regexp.MustCompile(`(?m)^` + "```" + `(\w*)$`)
	displayMath      = regexp.MustCompile(`(?s)\$\$[\s\S]*?\$\$`)
	inlineMath       = regexp.MustCompile(`\$[^$]+\$`)
	latexEnvBegin    = regexp.MustCompile(`\\begin\{(\w+)\}`)
	latexEnvEnd      = regexp.MustCompile(`\\end\{(\w+)\}`)
	latexCommand     = regexp.MustCompile(`\\[a-zA-Z]+`)
	bulletList       = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList     = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
)

// Validate detects the content type of original and dispatches to the
// matching structural check.
func Validate(original, translated string) Result {
	switch detectType(original) {
	case TypeTable:
		return validateTable(original, translated)
	case TypeCodeBlock:
		return validateCodeBlock(original, translated)
	case TypeLatexFormula:
		return validateLatex(original, translated)
	case TypeList:
		return validateList(original, translated)
	default:
		return validateGeneral(original, translated)
	}
}

func detectType(text string) ContentType {
	switch {
	case markdownTableRow.MatchString(text):
		return TypeTable
	case codeFenceBlock.MatchString(text):
		return TypeCodeBlock
	case displayMath.MatchString(text) || hasBalancedEnv(text) || latexCommand.MatchString(text):
		return TypeLatexFormula
	case bulletList.MatchString(text) || numberedList.MatchString(text):
		return TypeList
	default:
		return TypeUnknown
	}
}

func hasBalancedEnv(text string) bool {
	return len(latexEnvBegin.FindAllStringSubmatch(text, -1)) > 0
}
