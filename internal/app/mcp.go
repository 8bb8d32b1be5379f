package app

import (
	"fmt"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/codecoach/internal/mcp"
	"github.com/blackwell-systems/codecoach/internal/store"
)

var (
	mcpHistory     bool
	mcpMetricsAddr string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analyzer over MCP stdio",
	Long: `Start a Model Context Protocol stdio server so editors and agents can
request feedback. The server exposes these tools:

  analyze_code          Errors, warnings, suggestions, complexity and patterns
  suggest_improvements  Level-specific improvement tips
  fix_code              Apply the automatic fixes and return the fixed code
  list_rules            The rule catalogue, filterable by language and category
  get_progress          Recurring mistakes and focus areas (needs --history)

Example MCP configuration:
  {"mcpServers":{"codecoach":{"command":"codecoach","args":["mcp","--history"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpHistory, "history", false, "Enable saving, personalization and get_progress using the history database")
	mcpCmd.Flags().StringVar(&mcpMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	analyzer, err := newAnalyzer()
	if err != nil {
		return err
	}

	opts := mcp.Options{
		Defaults: cfg.Options(),
		User:     cfg.User,
		Window:   cfg.HistoryWindow,
	}
	if mcpHistory {
		var db *store.DB
		db, err = openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		opts.DB = db
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
	defer stop()

	if mcpMetricsAddr != "" {
		go func() {
			if err := serveMetrics(ctx, mcpMetricsAddr); err != nil {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	srv := mcp.NewServer(analyzer, opts)
	if err := srv.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
