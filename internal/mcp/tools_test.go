package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/codecoach/internal/analysis"
	"github.com/blackwell-systems/codecoach/internal/cache"
	"github.com/blackwell-systems/codecoach/internal/store"
)

func newTestServer(t *testing.T, db *store.DB) *Server {
	t.Helper()
	a := cache.NewAnalyzer(analysis.NewEngine(), cache.New(16, 0))
	return NewServer(a, Options{
		Defaults: analysis.Options{Language: analysis.LanguageJavaScript, UserLevel: analysis.LevelBeginner},
		DB:       db,
		User:     "ana",
	})
}

// callTool invokes a registered tool handler directly.
func callTool(t *testing.T, s *Server, name, args string) (any, error) {
	t.Helper()
	for _, tool := range s.tools {
		if tool.Name == name {
			return tool.Handler(context.Background(), json.RawMessage(args))
		}
	}
	t.Fatalf("tool %q not registered", name)
	return nil, nil
}

func TestAddTools_RegistersAll(t *testing.T) {
	s := newTestServer(t, nil)
	var names []string
	for _, tool := range s.tools {
		names = append(names, tool.Name)
		assert.True(t, json.Valid(tool.InputSchema), tool.Name)
	}
	assert.Equal(t, []string{"analyze_code", "suggest_improvements", "fix_code", "list_rules", "get_progress"}, names)
}

func TestAnalyzeCode(t *testing.T) {
	s := newTestServer(t, nil)
	result, err := callTool(t, s, "analyze_code", `{"code":"const x = 5\nconsole.log(x)"}`)
	require.NoError(t, err)

	a, ok := result.(analysis.CodeAnalysis)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, analysis.LanguageJavaScript, a.Language)
	assert.Len(t, a.Warnings, 2)
}

func TestAnalyzeCode_OptionsOverrideDefaults(t *testing.T) {
	s := newTestServer(t, nil)
	result, err := callTool(t, s, "analyze_code", `{"code":"const userInput = 'x'; eval(userInput);","include_security":true}`)
	require.NoError(t, err)
	a := result.(analysis.CodeAnalysis)
	require.Len(t, a.Errors, 1)
	assert.Equal(t, analysis.CategorySecurity, a.Errors[0].Category)

	py, err := callTool(t, s, "analyze_code", `{"code":"def f()\n    return 1","language":"py"}`)
	require.NoError(t, err)
	assert.Equal(t, analysis.LanguagePython, py.(analysis.CodeAnalysis).Language)
}

func TestAnalyzeCode_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	_, err := callTool(t, s, "analyze_code", `{"code":"x","user_level":"guru"}`)
	assert.ErrorContains(t, err, `unknown user_level "guru"`)

	_, err = callTool(t, s, "analyze_code", `{"code":1}`)
	assert.ErrorContains(t, err, "invalid arguments")

	_, err = callTool(t, s, "analyze_code", `{"code":"x","personalize":true}`)
	assert.ErrorIs(t, err, errNoHistory)
}

func TestAnalyzeCode_SaveAndPersonalize(t *testing.T) {
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	s := newTestServer(t, db)

	for i := 0; i < 2; i++ {
		_, err := callTool(t, s, "analyze_code", `{"code":"const x = 5\nconsole.log(x)","save":true}`)
		require.NoError(t, err)
	}

	progress, err := callTool(t, s, "get_progress", `{}`)
	require.NoError(t, err)
	assert.Contains(t, progress.(analysis.UserProgress).CommonMistakes, "Missing semicolon")

	result, err := callTool(t, s, "analyze_code", `{"code":"const y = 6\n","personalize":true}`)
	require.NoError(t, err)
	a := result.(analysis.CodeAnalysis)
	var repeated int
	for _, w := range a.Warnings {
		if w.RuleID == analysis.RuleRepeatedIssue {
			repeated++
		}
	}
	assert.Equal(t, 1, repeated)
}

func TestAnalyzeCode_Exercise(t *testing.T) {
	s := newTestServer(t, nil)
	result, err := callTool(t, s, "analyze_code",
		`{"code":"const x = 1;","exercise":{"expected_patterns":["map"],"topic":"loops"}}`)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, r := range result.(analysis.CodeAnalysis).Suggestions {
		ids[r.RuleID] = true
	}
	assert.True(t, ids[analysis.RuleExpectedPattern])
	assert.True(t, ids["topic-loops"])
}

func TestSuggestImprovements(t *testing.T) {
	s := newTestServer(t, nil)
	result, err := callTool(t, s, "suggest_improvements", `{"code":"let a = 1;\nlet b = 2;\nlet c = a + b;\nconsole.log(c);","user_level":"beginner"}`)
	require.NoError(t, err)

	r := result.(SuggestResult)
	require.NotNil(t, r.Suggestions)
	for _, sug := range r.Suggestions {
		assert.Equal(t, analysis.SeverityInfo, sug.Severity)
	}
}

func TestFixCode(t *testing.T) {
	s := newTestServer(t, nil)
	result, err := callTool(t, s, "fix_code", `{"code":"var x = 5\nif (x == 5) {\n  console.log(x);\n}"}`)
	require.NoError(t, err)

	r := result.(FixResult)
	assert.Equal(t, "let x = 5;\nif (x === 5) {\n  console.log(x);\n}", r.Fixed)
	assert.Len(t, r.Applied, 3)
}

func TestListRules(t *testing.T) {
	s := newTestServer(t, nil)

	all, err := callTool(t, s, "list_rules", `{}`)
	require.NoError(t, err)
	assert.Len(t, all.(RulesResult).Rules, analysis.NewEngine().Registry().Len())

	py, err := callTool(t, s, "list_rules", `{"language":"py","category":"syntax"}`)
	require.NoError(t, err)
	rules := py.(RulesResult).Rules
	require.NotEmpty(t, rules)
	ids := map[string]bool{}
	for _, r := range rules {
		assert.Equal(t, analysis.CategorySyntax, r.Category)
		ids[r.ID] = true
	}
	assert.True(t, ids["py-missing-colon"])
	assert.False(t, ids["js-missing-semicolon"])

	_, err = callTool(t, s, "list_rules", `{"category":"vibes"}`)
	assert.ErrorContains(t, err, "unknown category")
}

func TestGetProgress_NoHistory(t *testing.T) {
	_, err := callTool(t, newTestServer(t, nil), "get_progress", `{}`)
	assert.ErrorIs(t, err, errNoHistory)
}
