package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/codecoach/internal/analysis"
	"github.com/blackwell-systems/codecoach/internal/output"
	"github.com/blackwell-systems/codecoach/internal/scanner"
)

var (
	suggestOpts   analysisFlags
	suggestTopic  string
	suggestExpect string
	suggestLimit  int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [file|-]",
	Short: "Show improvement tips for your level",
	Long: `Suggest prints tips that move a snippet toward more idiomatic code.
The tips depend on the learner level: beginners hear about naming and
comments, experts about architecture and types. An exercise topic and
expected patterns add exercise-specific hints.

Examples:
  codecoach suggest loop.js --level beginner
  codecoach suggest solution.py --topic loops --expect "for ,range("`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSuggest,
}

func init() {
	suggestOpts.register(suggestCmd)
	suggestCmd.Flags().StringVar(&suggestTopic, "topic", "", "Exercise topic (loops, functions, conditionals, classes, async)")
	suggestCmd.Flags().StringVar(&suggestExpect, "expect", "", "Comma-separated snippets the solution is expected to contain")
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 0, "Maximum number of suggestions to show (0 for all)")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	opts, err := suggestOpts.options(cmd)
	if err != nil {
		return err
	}

	var code []byte
	if len(args) == 0 || args[0] == "-" {
		code, err = io.ReadAll(cmd.InOrStdin())
	} else {
		code, err = os.ReadFile(args[0])
		if lang, ok := scanner.DetectLanguage(args[0]); ok && suggestOpts.language == "" {
			opts.Language = lang
		}
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}
	suggestions := engine.ImprovementSuggestions(string(code), opts, exerciseContext(suggestTopic, suggestExpect))
	if suggestLimit > 0 && len(suggestions) > suggestLimit {
		suggestions = suggestions[:suggestLimit]
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, suggestions)
	}
	renderSuggestions(out, opts.UserLevel, suggestions)
	return nil
}

// exerciseContext builds the exercise input from the flags, or nil when
// neither is set.
func exerciseContext(topic, expect string) *analysis.FeedbackContext {
	if topic == "" && expect == "" {
		return nil
	}
	ex := &analysis.ExerciseContext{Topic: topic}
	for _, p := range strings.Split(expect, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ex.ExpectedPatterns = append(ex.ExpectedPatterns, p)
		}
	}
	return &analysis.FeedbackContext{ExerciseContext: ex}
}

func renderSuggestions(w io.Writer, level analysis.UserLevel, suggestions []analysis.AnalysisResult) {
	fmt.Fprintln(w, output.Section(fmt.Sprintf("Suggestions (%s)", level)))
	fmt.Fprintln(w)

	if len(suggestions) == 0 {
		fmt.Fprintln(w, output.StyleMuted.Render(" No suggestions for this snippet."))
		fmt.Fprintln(w)
		return
	}
	for i, s := range suggestions {
		fmt.Fprintf(w, " %s %s %s\n",
			output.StyleBold.Render(fmt.Sprintf("%d.", i+1)),
			s.Message,
			output.StyleMuted.Render("("+string(s.Category)+")"))
		if s.Explanation != "" {
			fmt.Fprintf(w, "    %s\n", output.StyleMuted.Render(s.Explanation))
		}
		if s.Suggestion != "" {
			fmt.Fprintf(w, "    %s %s\n", output.StyleInfo.Render("→"), s.Suggestion)
		}
		fmt.Fprintln(w)
	}
}
