package watcher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

func withErrors(msgs ...string) *analysis.CodeAnalysis {
	a := &analysis.CodeAnalysis{Complexity: analysis.ComplexityMetrics{Cyclomatic: 1, Maintainability: 90}}
	for i, m := range msgs {
		a.Errors = append(a.Errors, analysis.AnalysisResult{RuleID: "rule", Line: i + 1, Message: m, Severity: analysis.SeverityError})
	}
	return a
}

func titles(alerts []Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Title
	}
	return out
}

func TestCompare_FirstAnalysis(t *testing.T) {
	assert.Empty(t, Compare(nil, withErrors()))

	alerts := Compare(nil, withErrors("a", "b"))
	require.Len(t, alerts, 1)
	assert.Equal(t, "warning", alerts[0].Level)
	assert.Equal(t, "2 error(s), 0 warning(s)", alerts[0].Message)
}

func TestCompare_NewErrors(t *testing.T) {
	alerts := Compare(withErrors("a"), withErrors("a", "b"))
	require.Len(t, alerts, 1)
	assert.Equal(t, "critical", alerts[0].Level)
	assert.Equal(t, "New error: rule", alerts[0].Title)
	assert.Equal(t, "line 2: b", alerts[0].Message)
}

func TestCompare_LineShiftIsNotNew(t *testing.T) {
	prev := withErrors("a")
	curr := withErrors("a")
	curr.Errors[0].Line = 10
	assert.Empty(t, Compare(prev, curr))
}

func TestCompare_DuplicateMessagesCounted(t *testing.T) {
	alerts := Compare(withErrors("a"), withErrors("a", "a"))
	assert.Equal(t, []string{"New error: rule"}, titles(alerts))
}

func TestCompare_ErrorsFixed(t *testing.T) {
	alerts := Compare(withErrors("a", "b", "b"), withErrors("b"))
	require.Len(t, alerts, 1)
	assert.Equal(t, "info", alerts[0].Level)
	assert.Equal(t, "2 error(s) fixed since the last save", alerts[0].Message)
}

func TestCompare_Complexity(t *testing.T) {
	tests := []struct {
		name       string
		cyclomatic int
		maintain   int
		wantTitles []string
	}{
		{"unchanged", 1, 90, nil},
		{"small growth", 5, 80, nil},
		{"cyclomatic jump", 6, 85, []string{"Complexity jump"}},
		{"maintainability drop", 2, 70, []string{"Maintainability drop"}},
		{"below floor", 2, 39, []string{"Low maintainability"}},
		{"jump and floor", 12, 30, []string{"Complexity jump", "Low maintainability"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			curr := withErrors()
			curr.Complexity = analysis.ComplexityMetrics{Cyclomatic: tc.cyclomatic, Maintainability: tc.maintain}
			got := titles(Compare(withErrors(), curr))
			if tc.wantTitles == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.wantTitles, got)
		})
	}
}

func TestCompare_Failure(t *testing.T) {
	failure := analysis.NewEngine().FailureAnalysis("x", analysis.LanguageJavaScript, errors.New("boom"))

	alerts := Compare(withErrors(), &failure)
	assert.Equal(t, []string{"Analysis failed"}, titles(alerts))

	// Recovering from a failure is treated like a first analysis.
	assert.Empty(t, Compare(&failure, withErrors()))
}
