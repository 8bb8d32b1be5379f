package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/codecoach/internal/analysis"
	"github.com/blackwell-systems/codecoach/internal/cache"
	"github.com/blackwell-systems/codecoach/internal/fixer"
	"github.com/blackwell-systems/codecoach/internal/report"
	"github.com/blackwell-systems/codecoach/internal/scanner"
	"github.com/blackwell-systems/codecoach/internal/store"
)

const stdinPath = "<stdin>"

var (
	analyzeOpts        analysisFlags
	analyzeFormat      string
	analyzeSave        bool
	analyzePersonalize bool
	analyzeFix         bool
	analyzeShowCode    bool
	analyzeStrict      bool
	analyzeJobs        int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...|-]",
	Short: "Analyze files or stdin and explain the findings",
	Long: `Analyze source files and print educational feedback for each one.
Directories are walked for supported files. With no arguments, or with
"-", the snippet is read from stdin.

Examples:
  codecoach analyze main.js
  codecoach analyze src/ --security --format markdown
  cat snippet.py | codecoach analyze --language python --level intermediate
  codecoach analyze app.js --fix`,
	RunE: runAnalyze,
}

func init() {
	analyzeOpts.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "text", "Output format: text, json, yaml, markdown, html")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store the analyses in history")
	analyzeCmd.Flags().BoolVar(&analyzePersonalize, "personalize", false, "Tailor feedback using stored history")
	analyzeCmd.Flags().BoolVar(&analyzeFix, "fix", false, "Apply automatic fixes (files are rewritten, stdin is printed)")
	analyzeCmd.Flags().BoolVar(&analyzeShowCode, "show-code", false, "Print the highlighted source above the findings")
	analyzeCmd.Flags().BoolVar(&analyzeStrict, "strict", false, "Exit with an error when any errors are found")
	analyzeCmd.Flags().IntVarP(&analyzeJobs, "jobs", "j", runtime.NumCPU(), "Files analyzed in parallel")
	rootCmd.AddCommand(analyzeCmd)
}

// errFindings is returned in strict mode when errors were reported.
var errFindings = errors.New("errors found")

func runAnalyze(cmd *cobra.Command, args []string) error {
	opts, err := analyzeOpts.options(cmd)
	if err != nil {
		return err
	}
	format := strings.ToLower(analyzeFormat)
	if flagJSON {
		format = "json"
	}
	switch format {
	case "text", "json", "yaml", "markdown", "md", "html":
	default:
		return fmt.Errorf("unknown format %q", analyzeFormat)
	}

	analyzer, err := newAnalyzer()
	if err != nil {
		return err
	}

	var db *store.DB
	if analyzeSave || analyzePersonalize {
		db, err = openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
	}

	var reports []scanner.FileReport
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		code, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		src := scanner.Source{Path: stdinPath, Language: opts.Language, Size: int64(len(code))}
		a, err := analyzeOne(analyzer, db, string(code), opts)
		if err != nil {
			return err
		}
		reports = []scanner.FileReport{{Source: src, Analysis: a}}
	} else {
		reports, err = analyzeFiles(cmd.Context(), analyzer, db, args, opts, analyzeOpts.language != "")
		if err != nil {
			return err
		}
	}

	if analyzeSave {
		for _, r := range reports {
			if err := db.SaveAnalysis(cfg.User, r.Analysis); err != nil {
				return fmt.Errorf("saving %s: %w", r.Source.Path, err)
			}
		}
		log.Debug().Int("analyses", len(reports)).Str("user", cfg.User).Msg("saved to history")
	}

	out := cmd.OutOrStdout()
	if analyzeFix {
		if err := applyFixes(out, reports); err != nil {
			return err
		}
	}
	if err := writeReports(out, format, reports); err != nil {
		return err
	}

	if analyzeStrict {
		for _, r := range reports {
			if len(r.Analysis.Errors) > 0 {
				return errFindings
			}
		}
	}
	return nil
}

// analyzeOne runs a single analysis, personalized when requested.
func analyzeOne(a *cache.Analyzer, db *store.DB, code string, opts analysis.Options) (analysis.CodeAnalysis, error) {
	var fctx *analysis.FeedbackContext
	if analyzePersonalize {
		var err error
		fctx, err = db.FeedbackContext(cfg.User, analysis.NormalizeLanguage(string(opts.Language)), cfg.HistoryWindow)
		if err != nil {
			return analysis.CodeAnalysis{}, fmt.Errorf("loading history: %w", err)
		}
	}
	return a.Analyze(code, opts, fctx), nil
}

// analyzeFiles analyzes every supported file under paths, at most
// analyzeJobs at a time. Results keep the discovery order.
func analyzeFiles(ctx context.Context, a *cache.Analyzer, db *store.DB, paths []string, opts analysis.Options, forceLanguage bool) ([]scanner.FileReport, error) {
	sources, err := scanner.DiscoverSources(paths)
	if err != nil {
		return nil, fmt.Errorf("discovering sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no supported source files in %s", strings.Join(paths, ", "))
	}

	reports := make([]scanner.FileReport, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	if analyzeJobs > 0 {
		g.SetLimit(analyzeJobs)
	}
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			code, err := os.ReadFile(src.Path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", src.Path, err)
			}
			fileOpts := opts
			if !forceLanguage {
				fileOpts.Language = src.Language
			}
			res, err := analyzeOne(a, db, string(code), fileOpts)
			if err != nil {
				return err
			}
			log.Debug().Str("path", src.Path).Int("findings", len(res.All())).Msg("analyzed")
			reports[i] = scanner.FileReport{Source: src, Analysis: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// applyFixes rewrites each file with its automatic fixes. Stdin input is
// printed instead.
func applyFixes(w io.Writer, reports []scanner.FileReport) error {
	for _, r := range reports {
		fix := fixer.Apply(r.Analysis.Code, r.Analysis.All())
		if !fix.Changed() {
			continue
		}
		if r.Source.Path == stdinPath {
			fmt.Fprint(w, fix.Fixed)
			if !strings.HasSuffix(fix.Fixed, "\n") {
				fmt.Fprintln(w)
			}
			continue
		}
		info, err := os.Stat(r.Source.Path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(r.Source.Path, []byte(fix.Fixed), info.Mode().Perm()); err != nil {
			return fmt.Errorf("writing %s: %w", r.Source.Path, err)
		}
		fmt.Fprintf(w, "fixed %s (%d change(s))\n", r.Source.Path, len(fix.Applied))
		fmt.Fprint(w, fixer.Diff(fix))
	}
	return nil
}

// analyzeOutput is the machine-readable shape of a multi-file run.
type analyzeOutput struct {
	Files  []scanner.FileReport `json:"files"`
	Health scanner.Health       `json:"health"`
}

func writeReports(w io.Writer, format string, reports []scanner.FileReport) error {
	single := len(reports) == 1
	switch format {
	case "json", "yaml":
		var v any = analyzeOutput{Files: reports, Health: scanner.ComputeHealth(reports)}
		if single {
			v = reports[0].Analysis
		}
		if format == "yaml" {
			return writeYAML(w, v)
		}
		return writeJSON(w, v)

	case "markdown", "md":
		for i, r := range reports {
			if i > 0 {
				fmt.Fprint(w, "\n---\n\n")
			}
			if !single {
				fmt.Fprintf(w, "<!-- %s -->\n", r.Source.Path)
			}
			fmt.Fprint(w, report.Markdown(r.Analysis))
		}
		return nil

	case "html":
		for i, r := range reports {
			if i > 0 {
				fmt.Fprintln(w, "<hr>")
			}
			html, err := report.HTML(r.Analysis)
			if err != nil {
				return fmt.Errorf("rendering %s: %w", r.Source.Path, err)
			}
			fmt.Fprint(w, html)
		}
		return nil
	}

	for _, r := range reports {
		renderAnalysis(w, r.Source.Path, r.Analysis, analyzeShowCode)
	}
	if !single {
		renderSummary(w, reports, scanner.ComputeHealth(reports))
	}
	return nil
}
