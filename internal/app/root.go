// Package app contains the Cobra command tree for codecoach.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/codecoach/internal/analysis"
	"github.com/blackwell-systems/codecoach/internal/cache"
	"github.com/blackwell-systems/codecoach/internal/config"
	"github.com/blackwell-systems/codecoach/internal/mcp"
	"github.com/blackwell-systems/codecoach/internal/output"
	"github.com/blackwell-systems/codecoach/internal/store"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
	mcp.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "codecoach",
	Short: "Educational feedback for code snippets",
	Long: `codecoach analyzes JavaScript, TypeScript and Python code and explains
what it finds: syntax errors, logic slips, style and best-practice issues,
and optionally performance and security concerns. Feedback is tailored to
the learner's level and, with history enabled, to their recurring mistakes.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "codecoach", appVersion)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Use a subcommand:")
		fmt.Fprintln(out, "  analyze   Analyze files or stdin and explain the findings")
		fmt.Fprintln(out, "  suggest   Show improvement tips for your level")
		fmt.Fprintln(out, "  rules     List the analysis rules")
		fmt.Fprintln(out, "  watch     Re-analyze files as they change")
		fmt.Fprintln(out, "  history   Show stored analyses and your progress")
		fmt.Fprintln(out, "  mcp       Serve the analyzer over MCP stdio")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/codecoach/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")
}

// cfg is loaded once per invocation by setup.
var cfg *config.Config

// setup loads the configuration, then configures logging and color.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = c

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		TimeFormat: time.Kitchen,
		NoColor:    flagNoColor || !cfg.Output.Color,
	}).With().Timestamp().Logger()

	output.AutoColor(os.Stdout)
	if flagNoColor || !cfg.Output.Color {
		output.SetNoColor(true)
	}
	return nil
}

// newEngine builds an engine with the built-in rules plus any configured
// rule packs.
func newEngine() (*analysis.Engine, error) {
	var extra []analysis.Rule
	for _, path := range cfg.RulePacks {
		rules, err := analysis.LoadRulePack(path)
		if err != nil {
			return nil, fmt.Errorf("loading rule pack: %w", err)
		}
		log.Debug().Str("path", path).Int("rules", len(rules)).Msg("rule pack loaded")
		extra = append(extra, rules...)
	}
	if len(extra) == 0 {
		return analysis.NewEngine(), nil
	}
	return analysis.NewEngine(analysis.WithRules(extra...)), nil
}

// newAnalyzer wraps newEngine with the configured cache.
func newAnalyzer() (*cache.Analyzer, error) {
	engine, err := newEngine()
	if err != nil {
		return nil, err
	}
	return cache.NewAnalyzer(engine, cache.New(cfg.Cache.Size, cfg.Cache.TTL)), nil
}

// openStore opens the history database at the configured path.
func openStore() (*store.DB, error) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return db, nil
}

// analysisFlags are the per-command overrides of the analysis settings.
type analysisFlags struct {
	language    string
	level       string
	performance bool
	security    bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "Language (javascript, typescript, python); detected from the file extension when omitted")
	cmd.Flags().StringVar(&f.level, "level", "", "Learner level: beginner, intermediate, advanced, expert")
	cmd.Flags().BoolVar(&f.performance, "performance", false, "Include performance checks")
	cmd.Flags().BoolVar(&f.security, "security", false, "Include security checks")
}

// options merges the flags over the configured defaults.
func (f *analysisFlags) options(cmd *cobra.Command) (analysis.Options, error) {
	opts := cfg.Options()
	if f.language != "" {
		opts.Language = analysis.NormalizeLanguage(f.language)
	}
	if f.level != "" {
		level, ok := analysis.ParseUserLevel(f.level)
		if !ok {
			return opts, fmt.Errorf("unknown level %q", f.level)
		}
		opts.UserLevel = level
	}
	if cmd.Flags().Changed("performance") {
		opts.IncludePerformanceAnalysis = f.performance
	}
	if cmd.Flags().Changed("security") {
		opts.IncludeSecurity = f.security
	}
	return opts, nil
}
