package validator

import (
	"fmt"
	"reflect"
)

// validateLatex checks math-delimiter balance and, per the original
// implementation's \begin{X}/\end{X} pairing, that the sequence of
// environment names used matches between original and translated text
// (the "tag-name equality" check, not just a bare count comparison).
func validateLatex(original, translated string) Result {
	var issues []Issue

	origDisplay := len(displayMath.FindAllString(original, -1))
	transDisplay := len(displayMath.FindAllString(translated, -1))
	if origDisplay != transDisplay {
		issues = append(issues, Issue{
			Description:  "display math ($$...$$) delimiter count mismatch",
			SuggestedFix: "preserve every $$ display math delimiter",
		})
	}

	origInline := len(inlineMath.FindAllString(original, -1))
	transInline := len(inlineMath.FindAllString(translated, -1))
	if origInline != transInline {
		issues = append(issues, Issue{
			Description:  "inline math ($...$) delimiter count mismatch",
			SuggestedFix: "preserve every $ inline math delimiter",
		})
	}

	origEnvs := envNames(original)
	transEnvs := envNames(translated)
	if !reflect.DeepEqual(origEnvs, transEnvs) {
		issues = append(issues, Issue{
			Description:  "LaTeX environment structure changed",
			SuggestedFix: "keep \\begin{...}/\\end{...} environments and their names unchanged",
		})
	}

	origCommands := len(latexCommand.FindAllString(original, -1))
	transCommands := len(latexCommand.FindAllString(translated, -1))
	if abs(origCommands-transCommands) > 1 {
		issues = append(issues, Issue{
			Description:  fmt.Sprintf("LaTeX command count changed: %d -> %d", origCommands, transCommands),
			SuggestedFix: "keep the same \\commands (e.g. \\frac, \\sum, \\alpha) present in the original",
		})
	}

	confidence := 1.0 - float64(len(issues))*0.35
	if confidence < 0 {
		confidence = 0
	}
	return Result{Valid: len(issues) == 0, ContentType: TypeLatexFormula, Issues: issues, Confidence: confidence}
}

// envNames extracts \begin{X} names paired with a matching \end{X} of the
// same name, in order, skipping any begin that never finds a same-named
// end (a mismatched tag name, not just a mismatched count).
func envNames(text string) []string {
	begins := latexEnvBegin.FindAllStringSubmatchIndex(text, -1)
	ends := latexEnvEnd.FindAllStringSubmatch(text, -1)

	endNames := make([]string, len(ends))
	for i, e := range ends {
		endNames[i] = e[1]
	}

	var names []string
	for _, loc := range begins {
		name := text[loc[2]:loc[3]]
		if containsString(endNames, name) {
			names = append(names, name)
		}
	}
	return names
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
