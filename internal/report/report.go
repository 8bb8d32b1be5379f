// Package report renders an analysis as a Markdown or sanitized HTML
// feedback panel.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

// Markdown renders a as a GitHub-flavored Markdown document.
func Markdown(a analysis.CodeAnalysis) string {
	var sb strings.Builder

	lang := string(a.Language)
	if lang == "" {
		lang = "unknown"
	}
	fmt.Fprintf(&sb, "# Code analysis (%s)\n\n", lang)
	fmt.Fprintf(&sb, "**%s, %s, %s**\n\n",
		count(len(a.Errors), "error"), count(len(a.Warnings), "warning"), count(len(a.Suggestions), "suggestion"))

	sb.WriteString("## Complexity\n\n")
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Cyclomatic | %d |\n", a.Complexity.Cyclomatic)
	fmt.Fprintf(&sb, "| Cognitive | %d |\n", a.Complexity.Cognitive)
	fmt.Fprintf(&sb, "| Maintainability | %d/171 |\n\n", a.Complexity.Maintainability)

	writeFindings(&sb, "Errors", a.Errors)
	writeFindings(&sb, "Warnings", a.Warnings)
	writeFindings(&sb, "Suggestions", a.Suggestions)

	if len(a.Patterns) > 0 {
		sb.WriteString("## Patterns\n\n")
		for _, p := range a.Patterns {
			fmt.Fprintf(&sb, "- **%s** (%.0f%%): %s\n", p.Name, p.Confidence*100, p.Description)
		}
		sb.WriteString("\n")
	}

	if a.Code != "" {
		fence := codeFence(a.Code)
		sb.WriteString("## Code\n\n")
		fmt.Fprintf(&sb, "%s%s\n%s\n%s\n", fence, lang, strings.TrimRight(a.Code, "\n"), fence)
	}
	return sb.String()
}

func writeFindings(sb *strings.Builder, title string, results []analysis.AnalysisResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	for _, r := range results {
		fmt.Fprintf(sb, "- **Line %d, col %d** `%s`: %s\n", r.Line, r.Column, r.RuleID, r.Message)
		if r.Explanation != "" {
			fmt.Fprintf(sb, "  - %s\n", r.Explanation)
		}
		if r.Suggestion != "" {
			fmt.Fprintf(sb, "  - Suggestion: %s\n", r.Suggestion)
		}
	}
	sb.WriteString("\n")
}

// codeFence returns a backtick fence longer than any backtick run in code.
func codeFence(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}

func count(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

// HTML renders a as sanitized HTML.
func HTML(a analysis.CodeAnalysis) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(a)), &buf); err != nil {
		return "", fmt.Errorf("rendering analysis %s: %w", a.ID, err)
	}
	return policy.Sanitize(buf.String()), nil
}
