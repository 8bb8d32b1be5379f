package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/codecoach/internal/analysis"
	"github.com/blackwell-systems/codecoach/internal/output"
	"github.com/blackwell-systems/codecoach/internal/store"
)

var (
	historyLimit int
	historyUser  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored analyses and your progress",
	Long: `History lists the most recent analyses stored with --save and the
progress summary derived from them: recurring mistakes, clean categories,
and the categories with the most findings.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of analyses to list")
	historyCmd.Flags().StringVar(&historyUser, "user", "", "History owner (default: the configured user)")
	rootCmd.AddCommand(historyCmd)
}

// historyOutput is the JSON shape of the history command.
type historyOutput struct {
	User       string                `json:"user"`
	Recent     []store.Summary       `json:"recent"`
	Progress   analysis.UserProgress `json:"progress"`
	Categories []store.CategoryCount `json:"categories"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	user := historyUser
	if user == "" {
		user = cfg.User
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	recent, err := db.RecentAnalyses(user, historyLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	progress, err := db.Progress(user, cfg.HistoryWindow)
	if err != nil {
		return err
	}
	totals, err := db.CategoryTotals(user, cfg.HistoryWindow)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		if recent == nil {
			recent = []store.Summary{}
		}
		return writeJSON(out, historyOutput{User: user, Recent: recent, Progress: progress, Categories: totals})
	}
	renderHistory(out, user, recent, progress, totals)
	return nil
}

func renderHistory(w io.Writer, user string, recent []store.Summary, progress analysis.UserProgress, totals []store.CategoryCount) {
	fmt.Fprintln(w, output.Section("History: "+user))
	fmt.Fprintln(w)

	if len(recent) == 0 {
		fmt.Fprintln(w, output.StyleMuted.Render(" No stored analyses. Run 'codecoach analyze --save' to start a history."))
		fmt.Fprintln(w)
		return
	}

	tbl := output.NewTable("When", "Language", "Errors", "Trend", "Warnings", "Tips", "Maintainability")
	for i, s := range recent {
		// Rows are newest first, so the trend compares with the next row.
		trend := output.StyleMuted.Render("·")
		if i+1 < len(recent) {
			trend = output.TrendArrow(s.Errors-recent[i+1].Errors, true)
		}
		tbl.AddRow(
			s.CreatedAt.Local().Format(time.DateTime),
			string(s.Language),
			fmt.Sprintf("%d", s.Errors),
			trend,
			fmt.Sprintf("%d", s.Warnings),
			fmt.Sprintf("%d", s.Suggestions),
			fmt.Sprintf("%d", s.Maintainability),
		)
	}
	fmt.Fprint(w, tbl.Render())
	fmt.Fprintln(w)

	fmt.Fprintln(w, output.Section("Progress"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Common mistakes:"), listOrNone(progress.CommonMistakes))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Strengths:"), listOrNone(progress.Strengths))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Improvement areas:"), listOrNone(progress.ImprovementAreas))
	fmt.Fprintln(w)

	if len(totals) > 0 {
		ct := output.NewTable("Category", "Findings")
		for _, c := range totals {
			ct.AddRow(string(c.Category), fmt.Sprintf("%d", c.Count))
		}
		fmt.Fprint(w, ct.Render())
		fmt.Fprintln(w)
	}
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return output.StyleMuted.Render("none")
	}
	return strings.Join(items, ", ")
}
