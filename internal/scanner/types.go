// Package scanner discovers source files to analyze and scores the health of
// a set of analyzed files.
package scanner

import "github.com/blackwell-systems/codecoach/internal/analysis"

// Source is a discovered file with a supported language.
type Source struct {
	// Path is the filesystem path as discovered (relative paths stay relative).
	Path string `json:"path"`

	// Language is detected from the file extension.
	Language analysis.Language `json:"language"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`
}

// FileReport pairs a source file with its analysis.
type FileReport struct {
	Source   Source                `json:"source"`
	Analysis analysis.CodeAnalysis `json:"analysis"`
}

// Health summarizes a set of analyzed files.
type Health struct {
	Files           int     `json:"files"`
	ErrorFreeFiles  int     `json:"error_free_files"`
	Errors          int     `json:"errors"`
	Warnings        int     `json:"warnings"`
	Suggestions     int     `json:"suggestions"`
	Maintainability float64 `json:"maintainability"`

	// Score is the computed health score (0-100).
	Score float64 `json:"score"`
}
