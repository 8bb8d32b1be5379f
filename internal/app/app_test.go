package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/codecoach/internal/analysis"
	"github.com/blackwell-systems/codecoach/internal/store"
)

// isolate points HOME at a fresh directory so config and history stay
// inside the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	return home
}

// execute runs the root command with args and stdin, returning stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	if args == nil {
		// A nil slice makes cobra fall back to os.Args.
		args = []string{}
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestRoot_ListsCommands(t *testing.T) {
	isolate(t)
	out, err := execute(t, "")
	require.NoError(t, err)
	for _, name := range []string{"analyze", "suggest", "rules", "watch", "history", "mcp"} {
		assert.Contains(t, out, name)
	}
}

func TestCommands_Registered(t *testing.T) {
	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range []string{"analyze", "suggest", "rules", "watch", "history", "mcp"} {
		assert.True(t, registered[name], name)
	}
}

func TestAnalyze_StdinJSON(t *testing.T) {
	isolate(t)
	out, err := execute(t, "const x = 5\nconsole.log(x)", "analyze", "--json")
	require.NoError(t, err)

	var a analysis.CodeAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, analysis.LanguageJavaScript, a.Language)
	assert.Len(t, a.Warnings, 2)
	assert.Empty(t, a.Errors)
}

func TestAnalyze_Text(t *testing.T) {
	isolate(t)
	out, err := execute(t, "const x = 5", "analyze", "-")
	require.NoError(t, err)
	assert.Contains(t, out, stdinPath)
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "Missing semicolon")
	assert.Contains(t, out, "[js-missing-semicolon]")
	assert.Contains(t, out, "Maintainability:")
}

func TestAnalyze_Files(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("const x = 5;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("def f()\n    return 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	out, err := execute(t, "", "analyze", dir, "--format", "json", "--jobs", "2")
	require.NoError(t, err)

	var got analyzeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Files, 2)
	assert.Equal(t, "a.js", filepath.Base(got.Files[0].Source.Path))
	assert.Equal(t, analysis.LanguageJavaScript, got.Files[0].Analysis.Language)
	assert.Equal(t, "b.py", filepath.Base(got.Files[1].Source.Path))
	assert.Equal(t, analysis.LanguagePython, got.Files[1].Analysis.Language)
	assert.NotEmpty(t, got.Files[1].Analysis.Errors)

	assert.Equal(t, 2, got.Health.Files)
	assert.Equal(t, 1, got.Health.ErrorFreeFiles)
}

func TestAnalyze_NoSources(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "analyze", t.TempDir())
	assert.ErrorContains(t, err, "no supported source files")
}

func TestAnalyze_Formats(t *testing.T) {
	isolate(t)

	out, err := execute(t, "const x = 5", "analyze", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "language: javascript")
	assert.Contains(t, out, "rule_id: js-missing-semicolon")

	out, err = execute(t, "const x = 5", "analyze", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Code analysis (javascript)")

	out, err = execute(t, "const x = 5", "analyze", "--format", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>")
	assert.NotContains(t, out, "<script")

	_, err = execute(t, "const x = 5", "analyze", "--format", "pdf")
	assert.ErrorContains(t, err, `unknown format "pdf"`)
}

func TestAnalyze_Options(t *testing.T) {
	isolate(t)
	code := "const userInput = 'x'; eval(userInput);"

	out, err := execute(t, code, "analyze", "--json")
	require.NoError(t, err)
	var plain analysis.CodeAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &plain))
	assert.Empty(t, plain.Errors)

	out, err = execute(t, code, "analyze", "--json", "--security")
	require.NoError(t, err)
	var secure analysis.CodeAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &secure))
	require.Len(t, secure.Errors, 1)
	assert.Equal(t, analysis.CategorySecurity, secure.Errors[0].Category)

	_, err = execute(t, code, "analyze", "--level", "guru")
	assert.ErrorContains(t, err, `unknown level "guru"`)
}

func TestAnalyze_Fix(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "fix.js")
	require.NoError(t, os.WriteFile(path, []byte("var x = 5\n"), 0o600))

	out, err := execute(t, "", "analyze", path, "--fix", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "fixed "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "let x = 5;\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestAnalyze_FixStdin(t *testing.T) {
	isolate(t)
	out, err := execute(t, "var x = 5", "analyze", "--fix", "--format", "markdown")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "let x = 5;\n"), out)
}

func TestAnalyze_Strict(t *testing.T) {
	isolate(t)
	_, err := execute(t, "function f() {\n", "analyze", "--strict")
	assert.ErrorIs(t, err, errFindings)

	_, err = execute(t, "const x = 5;\n", "analyze", "--strict")
	assert.NoError(t, err)
}

func TestAnalyze_SaveAndHistory(t *testing.T) {
	home := isolate(t)

	for i := 0; i < 2; i++ {
		_, err := execute(t, "const x = 5", "analyze", "--save")
		require.NoError(t, err)
	}
	assert.FileExists(t, filepath.Join(home, ".config", "codecoach", "codecoach.db"))

	out, err := execute(t, "", "history", "--json")
	require.NoError(t, err)
	var h historyOutput
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, "default", h.User)
	assert.Len(t, h.Recent, 2)
	assert.Equal(t, []string{"Missing semicolon"}, h.Progress.CommonMistakes)
	assert.Contains(t, h.Categories, store.CategoryCount{Category: analysis.CategorySyntax, Count: 2})

	text, err := execute(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, text, "Common mistakes:")
	assert.Contains(t, text, "Missing semicolon")
}

func TestAnalyze_Personalize(t *testing.T) {
	isolate(t)
	for i := 0; i < 2; i++ {
		_, err := execute(t, "const x = 5", "analyze", "--save")
		require.NoError(t, err)
	}

	out, err := execute(t, "const y = 6", "analyze", "--personalize", "--json")
	require.NoError(t, err)
	var a analysis.CodeAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))

	var repeated bool
	for _, w := range a.Warnings {
		if w.RuleID == analysis.RuleRepeatedIssue {
			repeated = true
		}
	}
	assert.True(t, repeated, "expected a repeated-issue warning")
}

func TestHistory_Empty(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored analyses")
}

func TestRules(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "rules", "--json", "--language", "py", "--category", "syntax")
	require.NoError(t, err)
	var infos []analysis.RuleInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	ids := map[string]bool{}
	for _, r := range infos {
		assert.Equal(t, analysis.CategorySyntax, r.Category)
		ids[r.ID] = true
	}
	assert.True(t, ids["py-missing-colon"])
	assert.False(t, ids["js-missing-semicolon"])

	text, err := execute(t, "", "rules")
	require.NoError(t, err)
	assert.Contains(t, text, "js-missing-semicolon")
	assert.Contains(t, text, "rule(s)")

	_, err = execute(t, "", "rules", "--severity", "fatal")
	assert.ErrorContains(t, err, `unknown severity "fatal"`)
}

func TestFilterRules(t *testing.T) {
	rules := analysis.NewEngine().Registry().Rules()

	errorsOnly, err := filterRules(rules, "", "", "error")
	require.NoError(t, err)
	require.NotEmpty(t, errorsOnly)
	for _, r := range errorsOnly {
		assert.Equal(t, analysis.SeverityError, r.Severity)
	}

	all, err := filterRules(rules, "", "", "")
	require.NoError(t, err)
	assert.Len(t, all, len(rules))

	_, err = filterRules(rules, "", "vibes", "")
	assert.ErrorContains(t, err, "unknown category")
}

func TestSuggest_Exercise(t *testing.T) {
	isolate(t)
	out, err := execute(t, "const x = 1;", "suggest", "--topic", "loops", "--expect", "map, ", "--json")
	require.NoError(t, err)

	var results []analysis.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	ids := map[string]bool{}
	for _, r := range results {
		assert.Equal(t, analysis.SeverityInfo, r.Severity)
		ids[r.RuleID] = true
	}
	assert.True(t, ids["topic-loops"])
	assert.True(t, ids[analysis.RuleExpectedPattern])
}

func TestExerciseContext(t *testing.T) {
	assert.Nil(t, exerciseContext("", ""))

	fctx := exerciseContext("", " map ,,filter")
	require.NotNil(t, fctx)
	assert.Equal(t, []string{"map", "filter"}, fctx.ExerciseContext.ExpectedPatterns)
}

func TestMCP_Initialize(t *testing.T) {
	isolate(t)
	out, err := execute(t, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`+"\n", "mcp")
	require.NoError(t, err)
	assert.Contains(t, out, `"name":"codecoach"`)
}

func TestWatch_InvalidNotifyLevel(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "watch", t.TempDir(), "--notify", "loud")
	assert.ErrorContains(t, err, `unknown notify level "loud"`)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	v := struct {
		Name  string   `json:"name"`
		Lines []string `json:"lines"`
	}{Name: "x", Lines: []string{"a", "b"}}
	require.NoError(t, writeYAML(&buf, v))

	assert.Equal(t, "name: x\nlines:\n  - a\n  - b\n", buf.String())

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "x", back["name"])
}

func TestMetricsHandler(t *testing.T) {
	analysis.NewEngine().Analyze("const x = 5;", analysis.Options{Language: analysis.LanguageJavaScript}, nil)

	srv := httptest.NewServer(metricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "codecoach_analyses_total")
}
