package app

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/codecoach/internal/analysis"
	"github.com/blackwell-systems/codecoach/internal/output"
	"github.com/blackwell-systems/codecoach/internal/scanner"
)

// renderAnalysis prints one analysis as the terminal feedback panel.
func renderAnalysis(w io.Writer, title string, a analysis.CodeAnalysis, showCode bool) {
	fmt.Fprintln(w, output.Section(title))
	fmt.Fprintln(w)

	if showCode && a.Code != "" {
		fmt.Fprintln(w, output.NumberLines(output.Highlight(a.Code, string(a.Language))))
		fmt.Fprintln(w)
	}

	findings := a.All()
	if len(findings) == 0 {
		fmt.Fprintln(w, output.StyleSuccess.Render(" No issues found."))
	}
	for _, r := range findings {
		renderFinding(w, r)
	}
	if len(findings) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, " %s %s\n",
		output.StyleLabel.Render("Maintainability:"),
		output.ScoreBar(math.Min(float64(a.Complexity.Maintainability), 100), 20))
	fmt.Fprintf(w, " %s %s\n",
		output.StyleLabel.Render("Complexity:"),
		output.StyleValue.Render(fmt.Sprintf("%d / %d", a.Complexity.Cyclomatic, a.Complexity.Cognitive)))
	if len(a.Patterns) > 0 {
		names := make([]string, 0, len(a.Patterns))
		for _, p := range a.Patterns {
			names = append(names, p.Name)
		}
		fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Patterns:"), strings.Join(names, ", "))
	}
	fmt.Fprintln(w)
}

func renderFinding(w io.Writer, r analysis.AnalysisResult) {
	label := output.SeverityStyle(r.Severity).Render(output.SeverityLabel(r.Severity))
	fmt.Fprintf(w, " %s %s %s %s\n",
		label,
		output.StyleMuted.Render(fmt.Sprintf("%d:%d", r.Line, r.Column)),
		r.Message,
		output.StyleMuted.Render("["+r.RuleID+"]"))
	if r.Explanation != "" {
		fmt.Fprintf(w, "       %s\n", output.StyleMuted.Render(r.Explanation))
	}
	if r.Suggestion != "" {
		fmt.Fprintf(w, "       %s %s\n", output.StyleInfo.Render("→"), r.Suggestion)
	}
}

// renderSummary prints the per-file table and the health score of a
// multi-file run.
func renderSummary(w io.Writer, reports []scanner.FileReport, health scanner.Health) {
	fmt.Fprintln(w, output.Section("Summary"))
	fmt.Fprintln(w)

	tbl := output.NewTable("File", "Language", "Errors", "Warnings", "Tips", "Maintainability")
	for _, r := range reports {
		tbl.AddRow(
			r.Source.Path,
			string(r.Analysis.Language),
			countCell(len(r.Analysis.Errors), output.StyleError),
			countCell(len(r.Analysis.Warnings), output.StyleWarning),
			fmt.Sprintf("%d", len(r.Analysis.Suggestions)),
			fmt.Sprintf("%d", r.Analysis.Complexity.Maintainability),
		)
	}
	fmt.Fprint(w, tbl.Render())
	fmt.Fprintln(w)

	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Health:"), output.ScoreBar(health.Score, 20))
	fmt.Fprintf(w, " %s %s\n",
		output.StyleLabel.Render("Error-free files:"),
		output.StyleValue.Render(fmt.Sprintf("%d/%d", health.ErrorFreeFiles, health.Files)))
	fmt.Fprintln(w)
}

func countCell(n int, style lipgloss.Style) string {
	if n == 0 {
		return output.StyleMuted.Render("0")
	}
	return style.Render(fmt.Sprintf("%d", n))
}

// writeJSON encodes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML encodes v as block-style YAML with the same field names as the
// JSON output. Going through JSON keeps the json tags and field order.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
