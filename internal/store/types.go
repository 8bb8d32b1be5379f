// Package store provides SQLite persistence for analysis history and the
// learner progress derived from it.
package store

import (
	"errors"
	"time"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

// ErrNotFound is returned when a lookup matches no stored analysis.
var ErrNotFound = errors.New("store: not found")

// Summary is one row of analysis history.
type Summary struct {
	ID              string            `json:"id"`
	User            string            `json:"user"`
	Language        analysis.Language `json:"language"`
	CreatedAt       time.Time         `json:"created_at"`
	Errors          int               `json:"errors"`
	Warnings        int               `json:"warnings"`
	Suggestions     int               `json:"suggestions"`
	Cyclomatic      int               `json:"cyclomatic"`
	Maintainability int               `json:"maintainability"`
}

// Finding is a stored analysis result, flattened for aggregation.
type Finding struct {
	AnalysisID string            `json:"analysis_id"`
	RuleID     string            `json:"rule_id"`
	Severity   analysis.Severity `json:"severity"`
	Category   analysis.Category `json:"category"`
	Line       int               `json:"line"`
	Column     int               `json:"column"`
	Message    string            `json:"message"`
}

// CategoryCount is the number of findings in a category.
type CategoryCount struct {
	Category analysis.Category `json:"category"`
	Count    int               `json:"count"`
}
