package validator

import "reflect"

func validateCodeBlock(original, translated string) Result {
	var issues []Issue

	origFences := codeFenceLang.FindAllStringSubmatch(original, -1)
	transFences := codeFenceLang.FindAllStringSubmatch(translated, -1)

	if len(origFences) != len(transFences) {
		issues = append(issues, Issue{
			Description:  "code fence count mismatch",
			SuggestedFix: "preserve every ``` code fence in the translation",
		})
	}

	origLangs := fenceLangs(origFences)
	transLangs := fenceLangs(transFences)
	if !reflect.DeepEqual(origLangs, transLangs) {
		issues = append(issues, Issue{
			Description:  "programming language tags changed",
			SuggestedFix: "keep the original language tags (e.g. ```go) unchanged",
		})
	}

	confidence := 1.0 - float64(len(issues))*0.4
	if confidence < 0 {
		confidence = 0
	}
	return Result{Valid: len(issues) == 0, ContentType: TypeCodeBlock, Issues: issues, Confidence: confidence}
}

func fenceLangs(matches [][]string) []string {
	var out []string
	for _, m := range matches {
		if len(m) > 1 && m[1] != "" {
			out = append(out, m[1])
		}
	}
	return out
}
