package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

func sample() analysis.CodeAnalysis {
	return analysis.NewEngine().Analyze("const x = 5\nconsole.log(x)", analysis.Options{Language: "js"}, nil)
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sample())

	assert.True(t, strings.HasPrefix(md, "# Code analysis (javascript)\n"))
	assert.Contains(t, md, "**0 errors, 2 warnings, 1 suggestion**")
	assert.Contains(t, md, "| Cyclomatic | 1 |")
	assert.Contains(t, md, "## Warnings")
	assert.Contains(t, md, "`js-missing-semicolon`")
	assert.NotContains(t, md, "## Errors")
	assert.Contains(t, md, "```javascript\nconst x = 5\nconsole.log(x)\n```\n")
}

func TestMarkdown_EmptyAnalysis(t *testing.T) {
	md := Markdown(analysis.CodeAnalysis{})
	assert.Contains(t, md, "# Code analysis (unknown)")
	assert.Contains(t, md, "**0 errors, 0 warnings, 0 suggestions**")
	assert.NotContains(t, md, "## Code")
}

func TestCodeFence(t *testing.T) {
	assert.Equal(t, "```", codeFence("plain"))
	assert.Equal(t, "```", codeFence("a `b` c"))
	assert.Equal(t, "````", codeFence("x = ```y```"))
}

func TestHTML(t *testing.T) {
	html, err := HTML(sample())
	require.NoError(t, err)

	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<code>js-missing-semicolon</code>")
	assert.Contains(t, html, "console.log(x)")
}

func TestHTML_Sanitized(t *testing.T) {
	a := analysis.CodeAnalysis{
		Language: analysis.LanguageJavaScript,
		Code:     "document.write('<script>alert(1)</script>')",
		Warnings: []analysis.AnalysisResult{{
			RuleID:   "custom",
			Line:     1,
			Column:   1,
			Message:  `<script>alert(1)</script><a href="javascript:alert(1)">x</a>`,
			Severity: analysis.SeverityWarning,
		}},
	}
	html, err := HTML(a)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "javascript:alert")
	assert.Contains(t, html, "&lt;script&gt;")
}
