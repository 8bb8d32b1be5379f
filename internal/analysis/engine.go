package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Engine runs registered rules against a snippet and assembles the result
// aggregate. An Engine is safe for concurrent use.
type Engine struct {
	registry *Registry
	extra    []Rule

	complexity func(code string) ComplexityMetrics
	patterns   func(code string, lang Language) []DetectedPattern
	now        func() time.Time
	newID      func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRules registers additional rules after the built-in set.
func WithRules(rules ...Rule) EngineOption {
	return func(e *Engine) {
		e.extra = append(e.extra, rules...)
	}
}

// WithRegistry replaces the built-in rule set. Rules passed with WithRules
// are ignored when a registry is given.
func WithRegistry(r *Registry) EngineOption {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithClock sets the time source used for CreatedAt.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine with every built-in rule registered.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		complexity: CalculateComplexity,
		patterns:   DetectPatterns,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry(append(BuiltinRules(), e.extra...)...)
	}
	e.extra = nil
	return e
}

// Registry returns the engine's rule set.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Analyze runs every applicable rule against code and returns the aggregate.
// fctx may be nil. Analyze never panics: a failing rule is skipped, and any
// other failure yields FailureAnalysis.
func (e *Engine) Analyze(code string, opts Options, fctx *FeedbackContext) (a CodeAnalysis) {
	opts = normalizeOptions(opts)
	defer func() {
		if r := recover(); r != nil {
			recordPipelineFailure()
			log.Error().
				Str("language", string(opts.Language)).
				Interface("panic", r).
				Msg("analysis pipeline failed")
			a = e.FailureAnalysis(code, opts.Language, fmt.Errorf("%v", r))
		}
	}()
	recordAnalysis(opts.Language)

	a = e.newAnalysis(code, opts.Language)
	if strings.TrimSpace(code) == "" {
		return a
	}

	results := dedupe(e.runRules(code, opts))
	if fctx != nil {
		results = dedupe(append(results, personalize(code, opts, results, fctx)...))
	}
	a.Complexity = e.complexity(code)
	a.Patterns = e.patterns(code, opts.Language)
	bucket(&a, results)
	return a
}

// FailureAnalysis builds the aggregate returned when analysis could not
// complete. It holds a single error with rule id analysis-failure.
func (e *Engine) FailureAnalysis(code string, lang Language, cause error) CodeAnalysis {
	a := e.newAnalysis(code, lang)
	explanation := "The analyzer hit an internal problem and could not check this code."
	if cause != nil {
		log.Debug().Err(cause).Msg("building failure analysis")
	}
	a.Errors = append(a.Errors, AnalysisResult{
		RuleID:      RuleAnalysisFailure,
		Severity:    SeverityError,
		Category:    CategorySyntax,
		Line:        1,
		Column:      1,
		Message:     "Analysis failed",
		Explanation: explanation,
		Suggestion:  "Edit the code and try again.",
	})
	return a
}

func (e *Engine) newAnalysis(code string, lang Language) CodeAnalysis {
	return CodeAnalysis{
		ID:          e.newID(),
		Code:        code,
		Language:    lang,
		Errors:      []AnalysisResult{},
		Warnings:    []AnalysisResult{},
		Suggestions: []AnalysisResult{},
		Patterns:    []DetectedPattern{},
		CreatedAt:   e.now().UTC(),
	}
}

// stages returns the rule categories to run, in execution order.
func stages(opts Options) [][]Category {
	s := [][]Category{
		{CategorySyntax},
		{CategoryLogic, CategoryBestPractice},
		{CategoryStyle},
	}
	if opts.IncludePerformanceAnalysis {
		s = append(s, []Category{CategoryPerformance})
	}
	if opts.IncludeSecurity {
		s = append(s, []Category{CategorySecurity})
	}
	return s
}

func (e *Engine) runRules(code string, opts Options) []AnalysisResult {
	var all []AnalysisResult
	for _, cats := range stages(opts) {
		for _, rule := range e.registry.ByCategory(opts.Language, cats...) {
			all = append(all, runRule(rule, code, opts)...)
		}
	}
	return all
}

// runRule executes one rule check. A panic drops the rule's contribution.
// Results are stamped with the rule's metadata where the check left it out.
func runRule(rule Rule, code string, opts Options) (results []AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			recordRuleFailure(rule.ID)
			log.Warn().
				Str("rule", rule.ID).
				Str("language", string(opts.Language)).
				Interface("panic", r).
				Msg("rule check failed, skipping")
			results = nil
		}
	}()
	if rule.Check == nil {
		return nil
	}
	results = rule.Check(code, opts)
	for i := range results {
		res := &results[i]
		if res.RuleID == "" {
			res.RuleID = rule.ID
		}
		if _, ok := ParseSeverity(string(res.Severity)); !ok {
			res.Severity = rule.Severity
			if _, ok := ParseSeverity(string(res.Severity)); !ok {
				res.Severity = SeverityInfo
			}
		}
		if res.Category == "" {
			res.Category = rule.Category
		}
		res.Line = max(res.Line, 1)
		res.Column = max(res.Column, 1)
	}
	return results
}

type resultKey struct {
	rule    string
	line    int
	column  int
	message string
}

// dedupe drops repeated findings, keeping the first occurrence.
func dedupe(results []AnalysisResult) []AnalysisResult {
	seen := make(map[resultKey]struct{}, len(results))
	out := make([]AnalysisResult, 0, len(results))
	for _, r := range results {
		k := resultKey{r.RuleID, r.Line, r.Column, r.Message}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func bucket(a *CodeAnalysis, results []AnalysisResult) {
	for _, r := range results {
		switch r.Severity {
		case SeverityError:
			a.Errors = append(a.Errors, r)
		case SeverityWarning:
			a.Warnings = append(a.Warnings, r)
		default:
			a.Suggestions = append(a.Suggestions, r)
		}
	}
}

func normalizeOptions(opts Options) Options {
	opts.Language = NormalizeLanguage(string(opts.Language))
	opts.UserLevel, _ = ParseUserLevel(string(opts.UserLevel))
	return opts
}

func countSeverity(results []AnalysisResult, sev Severity) int {
	n := 0
	for _, r := range results {
		if r.Severity == sev {
			n++
		}
	}
	return n
}
