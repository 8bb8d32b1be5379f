package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blackwell-systems/codecoach/internal/analysis"
	"github.com/blackwell-systems/codecoach/internal/fixer"
)

// analyzeArgs are the arguments shared by the analysis tools. Unset fields
// fall back to the server defaults.
type analyzeArgs struct {
	Code               string                    `json:"code"`
	Language           string                    `json:"language,omitempty"`
	UserLevel          string                    `json:"user_level,omitempty"`
	IncludePerformance *bool                     `json:"include_performance,omitempty"`
	IncludeSecurity    *bool                     `json:"include_security,omitempty"`
	Personalize        bool                      `json:"personalize,omitempty"`
	Save               bool                      `json:"save,omitempty"`
	Exercise           *analysis.ExerciseContext `json:"exercise,omitempty"`
}

// listRulesArgs filters list_rules.
type listRulesArgs struct {
	Language string `json:"language,omitempty"`
	Category string `json:"category,omitempty"`
}

// SuggestResult is the payload of suggest_improvements.
type SuggestResult struct {
	Suggestions []analysis.AnalysisResult `json:"suggestions"`
}

// RulesResult is the payload of list_rules.
type RulesResult struct {
	Rules []analysis.RuleInfo `json:"rules"`
}

// FixResult is the payload of fix_code.
type FixResult struct {
	Fixed   string         `json:"fixed"`
	Applied []fixer.Change `json:"applied"`
	Skipped []fixer.Change `json:"skipped"`
}

var errNoHistory = errors.New("history is not configured for this server")

var (
	analyzeSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"code":{"type":"string","description":"Source snippet to analyze"},` +
		`"language":{"type":"string","description":"javascript, typescript or python (aliases like js, ts, py accepted)"},` +
		`"user_level":{"type":"string","enum":["beginner","intermediate","advanced","expert"]},` +
		`"include_performance":{"type":"boolean"},` +
		`"include_security":{"type":"boolean"},` +
		`"personalize":{"type":"boolean","description":"Use stored history to personalize feedback"},` +
		`"save":{"type":"boolean","description":"Store the analysis in history"},` +
		`"exercise":{"type":"object","properties":{"expected_patterns":{"type":"array","items":{"type":"string"}},"difficulty":{"type":"string"},"topic":{"type":"string"}}}` +
		`},"required":["code"],"additionalProperties":false}`)
	suggestSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"code":{"type":"string"},` +
		`"language":{"type":"string"},` +
		`"user_level":{"type":"string","enum":["beginner","intermediate","advanced","expert"]},` +
		`"exercise":{"type":"object"}` +
		`},"required":["code"]}`)
	fixSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"code":{"type":"string"},` +
		`"language":{"type":"string"}` +
		`},"required":["code"]}`)
	listRulesSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"language":{"type":"string","description":"Only rules that run for this language"},` +
		`"category":{"type":"string","enum":["syntax","logic","style","performance","security","best-practice"]}` +
		`},"additionalProperties":false}`)
	noArgsSchema = json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`)
)

// addTools registers the MCP tool handlers on s.
func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "analyze_code",
		Description: "Analyze a code snippet and return errors, warnings, suggestions, complexity and detected patterns.",
		InputSchema: analyzeSchema,
		Handler:     s.handleAnalyzeCode,
	})
	s.registerTool(toolDef{
		Name:        "suggest_improvements",
		Description: "Improvement tips for a snippet, tailored to the learner's level.",
		InputSchema: suggestSchema,
		Handler:     s.handleSuggestImprovements,
	})
	s.registerTool(toolDef{
		Name:        "fix_code",
		Description: "Apply the automatic fixes the analyzer knows for a snippet and return the fixed code.",
		InputSchema: fixSchema,
		Handler:     s.handleFixCode,
	})
	s.registerTool(toolDef{
		Name:        "list_rules",
		Description: "List the analysis rules, optionally filtered by language and category.",
		InputSchema: listRulesSchema,
		Handler:     s.handleListRules,
	})
	s.registerTool(toolDef{
		Name:        "get_progress",
		Description: "Common mistakes, strengths and improvement areas derived from stored history.",
		InputSchema: noArgsSchema,
		Handler:     s.handleGetProgress,
	})
}

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// options merges per-call arguments over the server defaults.
func (s *Server) options(a analyzeArgs) (analysis.Options, error) {
	opts := s.defaults
	if a.Language != "" {
		opts.Language = analysis.NormalizeLanguage(a.Language)
	}
	if a.UserLevel != "" {
		level, ok := analysis.ParseUserLevel(a.UserLevel)
		if !ok {
			return opts, fmt.Errorf("unknown user_level %q", a.UserLevel)
		}
		opts.UserLevel = level
	}
	if a.IncludePerformance != nil {
		opts.IncludePerformanceAnalysis = *a.IncludePerformance
	}
	if a.IncludeSecurity != nil {
		opts.IncludeSecurity = *a.IncludeSecurity
	}
	return opts, nil
}

func (s *Server) handleAnalyzeCode(_ context.Context, args json.RawMessage) (any, error) {
	var a analyzeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.options(a)
	if err != nil {
		return nil, err
	}

	var fctx *analysis.FeedbackContext
	if a.Personalize {
		if s.db == nil {
			return nil, errNoHistory
		}
		fctx, err = s.db.FeedbackContext(s.user, opts.Language, s.window)
		if err != nil {
			return nil, err
		}
	}
	if a.Exercise != nil {
		if fctx == nil {
			fctx = &analysis.FeedbackContext{}
		}
		fctx.ExerciseContext = a.Exercise
	}

	result := s.analyzer.Analyze(a.Code, opts, fctx)

	if a.Save {
		if s.db == nil {
			return nil, errNoHistory
		}
		if err := s.db.SaveAnalysis(s.user, result); err != nil {
			return nil, fmt.Errorf("saving analysis: %w", err)
		}
	}
	return result, nil
}

func (s *Server) handleSuggestImprovements(_ context.Context, args json.RawMessage) (any, error) {
	var a analyzeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.options(a)
	if err != nil {
		return nil, err
	}
	var fctx *analysis.FeedbackContext
	if a.Exercise != nil {
		fctx = &analysis.FeedbackContext{ExerciseContext: a.Exercise}
	}
	return SuggestResult{Suggestions: s.analyzer.Engine().ImprovementSuggestions(a.Code, opts, fctx)}, nil
}

func (s *Server) handleFixCode(_ context.Context, args json.RawMessage) (any, error) {
	var a analyzeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.options(a)
	if err != nil {
		return nil, err
	}
	result := s.analyzer.Analyze(a.Code, opts, nil)
	fix := fixer.Apply(a.Code, result.All())
	return FixResult{Fixed: fix.Fixed, Applied: fix.Applied, Skipped: fix.Skipped}, nil
}

func (s *Server) handleListRules(_ context.Context, args json.RawMessage) (any, error) {
	var a listRulesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	var category analysis.Category
	if a.Category != "" {
		c, ok := analysis.ParseCategory(a.Category)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", a.Category)
		}
		category = c
	}
	lang := analysis.NormalizeLanguage(a.Language)

	out := RulesResult{Rules: []analysis.RuleInfo{}}
	for _, r := range s.analyzer.Engine().Registry().Rules() {
		if a.Language != "" && !r.AppliesTo(lang) {
			continue
		}
		if category != "" && r.Category != category {
			continue
		}
		out.Rules = append(out.Rules, r.Info())
	}
	return out, nil
}

func (s *Server) handleGetProgress(_ context.Context, _ json.RawMessage) (any, error) {
	if s.db == nil {
		return nil, errNoHistory
	}
	return s.db.Progress(s.user, s.window)
}
