package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/codecoach/internal/analysis"
	"github.com/blackwell-systems/codecoach/internal/output"
)

var (
	rulesLanguage string
	rulesCategory string
	rulesSeverity string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the analysis rules",
	Long: `List every registered rule, including rules from configured rule
packs. Filter by the language a rule runs for, its category, or its
severity.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringVarP(&rulesLanguage, "language", "l", "", "Only rules that run for this language")
	rulesCmd.Flags().StringVarP(&rulesCategory, "category", "c", "", "Only rules in this category")
	rulesCmd.Flags().StringVarP(&rulesSeverity, "severity", "s", "", "Only rules with this severity")
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	infos, err := filterRules(engine.Registry().Rules(), rulesLanguage, rulesCategory, rulesSeverity)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, infos)
	}
	renderRules(out, infos)
	return nil
}

// filterRules keeps the rules matching every non-empty filter.
func filterRules(rules []analysis.Rule, language, category, severity string) ([]analysis.RuleInfo, error) {
	var cat analysis.Category
	if category != "" {
		c, ok := analysis.ParseCategory(category)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", category)
		}
		cat = c
	}
	var sev analysis.Severity
	if severity != "" {
		s, ok := analysis.ParseSeverity(severity)
		if !ok {
			return nil, fmt.Errorf("unknown severity %q", severity)
		}
		sev = s
	}
	lang := analysis.NormalizeLanguage(language)

	infos := []analysis.RuleInfo{}
	for _, r := range rules {
		if language != "" && !r.AppliesTo(lang) {
			continue
		}
		if cat != "" && r.Category != cat {
			continue
		}
		if sev != "" && r.Severity != sev {
			continue
		}
		infos = append(infos, r.Info())
	}
	return infos, nil
}

func renderRules(w io.Writer, infos []analysis.RuleInfo) {
	fmt.Fprintln(w, output.Section("Rules"))
	fmt.Fprintln(w)

	tbl := output.NewTable("Rule", "Severity", "Category", "Languages", "Description")
	for _, r := range infos {
		langs := "all"
		if len(r.Languages) > 0 {
			names := make([]string, len(r.Languages))
			for i, l := range r.Languages {
				names[i] = string(l)
			}
			langs = strings.Join(names, ",")
		}
		tbl.AddRow(
			r.ID,
			output.SeverityStyle(r.Severity).Render(string(r.Severity)),
			string(r.Category),
			langs,
			r.Description,
		)
	}
	fmt.Fprint(w, tbl.Render())
	fmt.Fprintln(w)
	fmt.Fprintln(w, output.StyleMuted.Render(fmt.Sprintf(" %d rule(s)", len(infos))))
}
