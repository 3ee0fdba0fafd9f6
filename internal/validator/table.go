package validator

import (
	"fmt"
	"strings"
)

func validateTable(original, translated string) Result {
	var issues []Issue

	origRows := extractTableRows(original)
	transRows := extractTableRows(translated)

	rowDiff := abs(len(origRows) - len(transRows))
	maxRowDiff := len(origRows) / 10
	if maxRowDiff < 1 {
		maxRowDiff = 1
	}
	if rowDiff > maxRowDiff {
		issues = append(issues, Issue{
			Description:  fmt.Sprintf("row count mismatch: original has %d rows, translated has %d", len(origRows), len(transRows)),
			SuggestedFix: fmt.Sprintf("regenerate preserving exactly %d rows", len(origRows)),
		})
	}

	if len(origRows) > 0 && len(transRows) > 0 {
		origCols := avgColumnCount(origRows)
		transCols := avgColumnCount(transRows)
		if abs2(origCols-transCols) > 1 {
			issues = append(issues, Issue{
				Description:  fmt.Sprintf("column count mismatch: original has ~%.1f columns, translated has ~%.1f", origCols, transCols),
				SuggestedFix: "maintain the same number of columns in each row",
			})
		}
	}

	origHasSep := tableSeparator.MatchString(original)
	transHasSep := tableSeparator.MatchString(translated)
	if origHasSep && !transHasSep {
		issues = append(issues, Issue{
			Description:  "table header separator missing in translation",
			SuggestedFix: "add the header separator row (e.g. |---|---|)",
		})
	}

	confidence := 1.0 - float64(len(issues))*0.3
	if confidence < 0 {
		confidence = 0
	}
	return Result{Valid: len(issues) == 0, ContentType: TypeTable, Issues: issues, Confidence: confidence}
}

func extractTableRows(text string) []string {
	var rows []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "|") && !tableSepLineOnly.MatchString(line) {
			rows = append(rows, strings.TrimSpace(line))
		}
	}
	return rows
}

func avgColumnCount(rows []string) float64 {
	var counts []int
	limit := len(rows)
	if limit > 3 {
		limit = 3
	}
	for _, row := range rows[:limit] {
		if strings.Contains(row, "|") {
			counts = append(counts, strings.Count(row, "|")-1)
		}
	}
	if len(counts) == 0 {
		return 0
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	return float64(sum) / float64(len(counts))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func abs2(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
