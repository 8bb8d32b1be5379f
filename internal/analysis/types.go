// Package analysis provides the rule-based snippet analysis engine: the rule
// registry, complexity and pattern heuristics, and learner personalization.
package analysis

import (
	"strings"
	"time"
)

// Severity is the bucket a finding lands in.
type Severity string

// Severity levels. Errors, warnings and suggestions map one-to-one onto these.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ParseSeverity converts a string to a Severity. Returns false for anything
// other than error, warning or info.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityError:
		return SeverityError, true
	case SeverityWarning:
		return SeverityWarning, true
	case SeverityInfo:
		return SeverityInfo, true
	default:
		return "", false
	}
}

// Category groups rules by the kind of problem they detect.
type Category string

// Rule categories.
const (
	CategorySyntax       Category = "syntax"
	CategoryLogic        Category = "logic"
	CategoryStyle        Category = "style"
	CategoryPerformance  Category = "performance"
	CategorySecurity     Category = "security"
	CategoryBestPractice Category = "best-practice"
)

// Categories lists every category in execution order.
var Categories = []Category{
	CategorySyntax,
	CategoryLogic,
	CategoryBestPractice,
	CategoryStyle,
	CategoryPerformance,
	CategorySecurity,
}

// ParseCategory converts a string to a Category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Language identifies the source language of a snippet.
type Language string

// Supported languages. Rules with no language restriction apply to any
// language string, including ones not listed here.
const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguagePython     Language = "python"
)

// NormalizeLanguage lowercases the language and resolves common aliases.
func NormalizeLanguage(s string) Language {
	switch l := strings.ToLower(strings.TrimSpace(s)); l {
	case "js", "jsx", "node", "javascript":
		return LanguageJavaScript
	case "ts", "tsx", "typescript":
		return LanguageTypeScript
	case "py", "python3", "python":
		return LanguagePython
	default:
		return Language(l)
	}
}

// UserLevel is the learner's self-reported proficiency.
type UserLevel string

// User levels, from least to most experienced.
const (
	LevelBeginner     UserLevel = "beginner"
	LevelIntermediate UserLevel = "intermediate"
	LevelAdvanced     UserLevel = "advanced"
	LevelExpert       UserLevel = "expert"
)

// ParseUserLevel converts a string to a UserLevel, defaulting to beginner.
func ParseUserLevel(s string) (UserLevel, bool) {
	switch l := UserLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		return l, true
	default:
		return LevelBeginner, false
	}
}

// Options controls which rules run for a single analysis.
type Options struct {
	Language                   Language  `json:"language"`
	UserLevel                  UserLevel `json:"user_level"`
	IncludePerformanceAnalysis bool      `json:"include_performance_analysis"`
	IncludeSecurity            bool      `json:"include_security"`
}

// Position is a 1-based line/column location in a snippet.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Edit is a machine-applicable replacement of the text between Start and End
// (end-exclusive) on a single line.
type Edit struct {
	Line        int    `json:"line"`
	StartColumn int    `json:"start_column"`
	EndColumn   int    `json:"end_column"`
	NewText     string `json:"new_text"`
}

// AnalysisResult is a single finding produced by a rule or by the
// personalization layer.
type AnalysisResult struct {
	RuleID      string    `json:"rule_id"`
	Severity    Severity  `json:"severity"`
	Category    Category  `json:"category"`
	Line        int       `json:"line"`
	Column      int       `json:"column"`
	End         *Position `json:"end,omitempty"`
	Message     string    `json:"message"`
	Explanation string    `json:"explanation,omitempty"`
	// Suggestion holds the fix for errors and the improvement text for
	// suggestions.
	Suggestion string `json:"suggestion,omitempty"`
	Edit       *Edit  `json:"edit,omitempty"`
}

// ComplexityMetrics holds the heuristic complexity scores of a snippet.
type ComplexityMetrics struct {
	Cyclomatic      int `json:"cyclomatic"`
	Cognitive       int `json:"cognitive"`
	Maintainability int `json:"maintainability"`
}

// DetectedPattern is an idiom recognized in a snippet.
type DetectedPattern struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// CodeAnalysis is the aggregate result of one analysis pass. It is built once
// and never mutated after Analyze returns it.
type CodeAnalysis struct {
	ID          string            `json:"id"`
	Code        string            `json:"code"`
	Language    Language          `json:"language"`
	Errors      []AnalysisResult  `json:"errors"`
	Warnings    []AnalysisResult  `json:"warnings"`
	Suggestions []AnalysisResult  `json:"suggestions"`
	Complexity  ComplexityMetrics `json:"complexity"`
	Patterns    []DetectedPattern `json:"patterns"`
	CreatedAt   time.Time         `json:"created_at"`
}

// All returns every finding in errors, warnings, suggestions order.
func (a *CodeAnalysis) All() []AnalysisResult {
	all := make([]AnalysisResult, 0, len(a.Errors)+len(a.Warnings)+len(a.Suggestions))
	all = append(all, a.Errors...)
	all = append(all, a.Warnings...)
	all = append(all, a.Suggestions...)
	return all
}

// Failed reports whether a is the synthetic aggregate of a failed analysis.
func (a *CodeAnalysis) Failed() bool {
	for _, r := range a.Errors {
		if r.RuleID == RuleAnalysisFailure {
			return true
		}
	}
	return false
}

// UserProgress summarizes what a learner tends to get wrong and right.
type UserProgress struct {
	CommonMistakes   []string `json:"common_mistakes"`
	Strengths        []string `json:"strengths"`
	ImprovementAreas []string `json:"improvement_areas"`
}

// ExerciseContext describes the exercise a snippet was written for.
type ExerciseContext struct {
	ExpectedPatterns []string `json:"expected_patterns"`
	Difficulty       string   `json:"difficulty"`
	Topic            string   `json:"topic"`
}

// FeedbackContext is optional caller-supplied data used to personalize an
// analysis. Any field may be nil.
type FeedbackContext struct {
	PreviousAnalysis *CodeAnalysis    `json:"previous_analysis,omitempty"`
	UserProgress     *UserProgress    `json:"user_progress,omitempty"`
	ExerciseContext  *ExerciseContext `json:"exercise_context,omitempty"`
}

// Synthetic rule ids emitted outside the registry.
const (
	RuleAnalysisFailure     = "analysis-failure"
	RuleImprovementFeedback = "improvement-feedback"
	RuleRepeatedIssue       = "repeated-issue"
	RuleExpectedPattern     = "expected-pattern"
	RuleFocusArea           = "focus-area"
	ruleTopicPrefix         = "topic-"
)
