package validator

import (
	"fmt"
	"regexp"
	"strings"
)

var listItemIndent = regexp.MustCompile(`(?m)^([ \t]*)(?:[-*+]|\d+\.)\s+`)

func validateList(original, translated string) Result {
	var issues []Issue

	origBullets := len(bulletList.FindAllString(original, -1))
	transBullets := len(bulletList.FindAllString(translated, -1))
	if origBullets != transBullets {
		issues = append(issues, Issue{
			Description:  fmt.Sprintf("bullet list item count changed: %d -> %d", origBullets, transBullets),
			SuggestedFix: "maintain the same number of bullet list items",
		})
	}

	origNumbered := len(numberedList.FindAllString(original, -1))
	transNumbered := len(numberedList.FindAllString(translated, -1))
	if origNumbered != transNumbered {
		issues = append(issues, Issue{
			Description:  fmt.Sprintf("numbered list item count changed: %d -> %d", origNumbered, transNumbered),
			SuggestedFix: "maintain the same number of numbered list items",
		})
	}

	origDepths := listItemDepths(original)
	transDepths := listItemDepths(translated)
	if len(origDepths) == len(transDepths) && !depthsEqual(origDepths, transDepths) {
		issues = append(issues, Issue{
			Description:  "list nesting structure changed",
			SuggestedFix: "keep each item at its original indentation depth",
		})
	}

	confidence := 1.0 - float64(len(issues))*0.3
	if confidence < 0 {
		confidence = 0
	}
	return Result{Valid: len(issues) == 0, ContentType: TypeList, Issues: issues, Confidence: confidence}
}

// listItemDepths returns each list item's nesting depth, in document order,
// derived from its leading indentation (two spaces or one tab per level,
// the same convention assemble.go's ListItem rendering uses).
func listItemDepths(text string) []int {
	matches := listItemIndent.FindAllStringSubmatch(text, -1)
	depths := make([]int, len(matches))
	for i, m := range matches {
		indent := m[1]
		depths[i] = strings.Count(indent, "\t") + len(indent)/2
	}
	return depths
}

func depthsEqual(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func validateGeneral(original, translated string) Result {
	var issues []Issue

	origLen := len(strings.TrimSpace(original))
	transLen := len(strings.TrimSpace(translated))

	switch {
	case float64(transLen) < float64(origLen)*0.3:
		issues = append(issues, Issue{
			Description:  "translation appears too short",
			SuggestedFix: "translate the complete content, nothing omitted",
		})
	case float64(transLen) > float64(origLen)*3:
		issues = append(issues, Issue{
			Description:  "translation appears too long",
			SuggestedFix: "avoid adding explanatory text not present in the original",
		})
	}

	confidence := 0.7
	if len(issues) > 0 {
		confidence = 0.4
	}
	return Result{Valid: len(issues) == 0, ContentType: TypeUnknown, Issues: issues, Confidence: confidence}
}
