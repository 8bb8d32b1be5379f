package analysis

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alertPack = `
[[rule]]
id = "no-alert"
name = "alert()"
severity = "warning"
category = "best-practice"
languages = ["js", "ts"]
pattern = '\balert\s*\('
message = "Avoid alert()"
explanation = "alert blocks the page until the user dismisses it."
fix = "Show the message in the page instead."
`

func TestParseRulePack(t *testing.T) {
	rules, err := ParseRulePack([]byte(alertPack))
	require.NoError(t, err)
	require.Len(t, rules, 1)

	r := rules[0]
	assert.Equal(t, "no-alert", r.ID)
	assert.Equal(t, SeverityWarning, r.Severity)
	assert.Equal(t, CategoryBestPractice, r.Category)
	assert.Equal(t, []Language{LanguageJavaScript, LanguageTypeScript}, r.Languages)
	assert.NotNil(t, r.Check)
}

func TestParseRulePack_RunsInEngine(t *testing.T) {
	rules, err := ParseRulePack([]byte(alertPack))
	require.NoError(t, err)

	e := NewEngine(WithRules(rules...))
	a := e.Analyze("alert('hi');\n// alert('ignored in comments');", jsOpts(), nil)

	got := withRuleID(a.Warnings, "no-alert")
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Line)
	assert.Equal(t, 1, got[0].Column)
	assert.Equal(t, "Show the message in the page instead.", got[0].Suggestion)

	py := e.Analyze("alert('hi')", Options{Language: LanguagePython}, nil)
	assert.Empty(t, withRuleID(py.All(), "no-alert"))
}

func TestParseRulePack_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed toml", "[[rule]\nid = "},
		{"bad regexp", "[[rule]]\nid = \"x\"\nseverity = \"info\"\ncategory = \"style\"\npattern = '('\nmessage = \"m\""},
		{"bad severity", "[[rule]]\nid = \"x\"\nseverity = \"fatal\"\ncategory = \"style\"\npattern = 'a'\nmessage = \"m\""},
		{"bad category", "[[rule]]\nid = \"x\"\nseverity = \"info\"\ncategory = \"vibes\"\npattern = 'a'\nmessage = \"m\""},
		{"missing id", "[[rule]]\nseverity = \"info\"\ncategory = \"style\"\npattern = 'a'\nmessage = \"m\""},
		{"missing message", "[[rule]]\nid = \"x\"\nseverity = \"info\"\ncategory = \"style\"\npattern = 'a'"},
		{"missing pattern", "[[rule]]\nid = \"x\"\nseverity = \"info\"\ncategory = \"style\"\nmessage = \"m\""},
		{"duplicate id", "[[rule]]\nid = \"x\"\nseverity = \"info\"\ncategory = \"style\"\npattern = 'a'\nmessage = \"m\"\n[[rule]]\nid = \"x\"\nseverity = \"info\"\ncategory = \"style\"\npattern = 'b'\nmessage = \"m\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRulePack([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRulePack), "got %v", err)
		})
	}
}

func TestLoadRulePack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alert.toml")
	require.NoError(t, os.WriteFile(path, []byte(alertPack), 0o644))

	rules, err := LoadRulePack(path)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	_, err = LoadRulePack(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidRulePack))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
