package watcher

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

// Thresholds for complexity alerts.
const (
	cyclomaticJump       = 5
	maintainabilityDrop  = 15
	maintainabilityFloor = 40
)

// Compare detects notable changes between two analyses of the same file and
// returns alerts. prev is nil for the first analysis.
func Compare(prev, curr *analysis.CodeAnalysis) []Alert {
	var alerts []Alert
	now := time.Now()

	if curr.Failed() {
		return []Alert{{
			Level:   "critical",
			Title:   "Analysis failed",
			Message: "The file could not be analyzed; showing a placeholder result",
			Time:    now,
		}}
	}

	if prev == nil || prev.Failed() {
		if n := len(curr.Errors); n > 0 {
			alerts = append(alerts, Alert{
				Level:   "warning",
				Title:   "Errors found",
				Message: fmt.Sprintf("%d error(s), %d warning(s)", n, len(curr.Warnings)),
				Time:    now,
			})
		}
		return alerts
	}

	alerts = append(alerts, compareErrors(prev, curr, now)...)
	alerts = append(alerts, compareComplexity(prev, curr, now)...)
	return alerts
}

// findingKey identifies a finding across edits. Lines are left out because
// they shift as code is added above.
func findingKey(r analysis.AnalysisResult) string {
	return r.RuleID + "\x00" + r.Message
}

func compareErrors(prev, curr *analysis.CodeAnalysis, now time.Time) []Alert {
	var alerts []Alert

	before := make(map[string]int, len(prev.Errors))
	for _, r := range prev.Errors {
		before[findingKey(r)]++
	}
	after := make(map[string]int, len(curr.Errors))
	for _, r := range curr.Errors {
		after[findingKey(r)]++
	}

	seen := make(map[string]int)
	for _, r := range curr.Errors {
		k := findingKey(r)
		seen[k]++
		if seen[k] > before[k] {
			alerts = append(alerts, Alert{
				Level:   "critical",
				Title:   fmt.Sprintf("New error: %s", r.RuleID),
				Message: fmt.Sprintf("line %d: %s", r.Line, r.Message),
				Time:    now,
			})
		}
	}

	fixed := 0
	for k, n := range before {
		if after[k] < n {
			fixed += n - after[k]
		}
	}
	if fixed > 0 {
		alerts = append(alerts, Alert{
			Level:   "info",
			Title:   "Errors fixed",
			Message: fmt.Sprintf("%d error(s) fixed since the last save", fixed),
			Time:    now,
		})
	}
	return alerts
}

func compareComplexity(prev, curr *analysis.CodeAnalysis, now time.Time) []Alert {
	var alerts []Alert
	p, c := prev.Complexity, curr.Complexity

	if c.Cyclomatic-p.Cyclomatic >= cyclomaticJump {
		alerts = append(alerts, Alert{
			Level:   "warning",
			Title:   "Complexity jump",
			Message: fmt.Sprintf("Cyclomatic complexity rose from %d to %d", p.Cyclomatic, c.Cyclomatic),
			Time:    now,
		})
	}

	switch {
	case c.Maintainability < maintainabilityFloor && p.Maintainability >= maintainabilityFloor:
		alerts = append(alerts, Alert{
			Level:   "critical",
			Title:   "Low maintainability",
			Message: fmt.Sprintf("Maintainability fell to %d (was %d)", c.Maintainability, p.Maintainability),
			Time:    now,
		})
	case p.Maintainability-c.Maintainability >= maintainabilityDrop:
		alerts = append(alerts, Alert{
			Level:   "warning",
			Title:   "Maintainability drop",
			Message: fmt.Sprintf("Maintainability fell from %d to %d", p.Maintainability, c.Maintainability),
			Time:    now,
		})
	}
	return alerts
}
