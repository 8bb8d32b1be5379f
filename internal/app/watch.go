package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/codecoach/internal/config"
	"github.com/blackwell-systems/codecoach/internal/output"
	"github.com/blackwell-systems/codecoach/internal/store"
	"github.com/blackwell-systems/codecoach/internal/watcher"
)

var (
	watchOpts        analysisFlags
	watchDaemon      bool
	watchStop        bool
	watchQuiet       bool
	watchNotify      string
	watchSave        bool
	watchPersonalize bool
	watchDebounce    time.Duration
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-analyze files as they change",
	Long: `Watch a file or directory and re-analyze source files as they are
saved. Rapid saves are debounced per file, so only the latest content is
analyzed. Each result is compared with the previous analysis of the same
file, and notable changes (new errors, fixed errors, complexity jumps)
are reported as alerts.

Examples:
  codecoach watch                       # watch the current directory
  codecoach watch src/ --notify warning # desktop notifications for warnings and up
  codecoach watch --save --personalize  # build history while you work
  codecoach watch --daemon &            # run in background, write PID file
  codecoach watch --stop                # stop the background daemon`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchOpts.register(watchCmd)
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "Run in background mode (write PID file, log to file)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop a running background daemon")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	watchCmd.Flags().StringVar(&watchNotify, "notify", "", "Send desktop notifications for alerts at or above this level (info, warning, critical)")
	watchCmd.Flags().BoolVar(&watchSave, "save", false, "Store every analysis in history")
	watchCmd.Flags().BoolVar(&watchPersonalize, "personalize", false, "Tailor feedback using stored history")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before analyzing a change (default from config)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	rootCmd.AddCommand(watchCmd)
}

// pidFilePath returns the path to the daemon PID file.
func pidFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.pid")
}

// logFilePath returns the path to the daemon log file.
func logFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.log")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStop {
		return stopDaemon()
	}

	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	switch watchNotify {
	case "", "info", "warning", "critical":
	default:
		return fmt.Errorf("unknown notify level %q", watchNotify)
	}

	opts, err := watchOpts.options(cmd)
	if err != nil {
		return err
	}
	delay := cfg.Debounce
	if watchDebounce > 0 {
		delay = watchDebounce
	}
	analyzer, err := newAnalyzer()
	if err != nil {
		return err
	}

	var db *store.DB
	if watchSave || watchPersonalize {
		db, err = openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
	defer stop()

	out := cmd.OutOrStdout()
	if watchDaemon {
		logFile, cleanup, err := startDaemon()
		if err != nil {
			return err
		}
		defer cleanup()
		out = logFile
	}

	if watchMetricsAddr != "" {
		go func() {
			if err := serveMetrics(ctx, watchMetricsAddr); err != nil {
				log.Error().Err(err).Str("addr", watchMetricsAddr).Msg("metrics server failed")
			}
		}()
	}

	var mu sync.Mutex
	eventFn := func(ev watcher.Event) {
		if db != nil && watchSave {
			if err := db.SaveAnalysis(cfg.User, ev.Analysis); err != nil {
				log.Warn().Err(err).Str("path", ev.Path).Msg("saving analysis")
			}
		}
		for _, a := range ev.Alerts {
			if watchNotify != "" && watcher.AtLeast(a, watchNotify) {
				_ = watcher.Notify(a)
			}
		}
		if watchQuiet && !watchDaemon {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		printEvent(out, ev)
	}

	w := watcher.New(root, analyzer, delay, opts, eventFn)
	if watchPersonalize {
		progress, err := db.Progress(cfg.User, cfg.HistoryWindow)
		if err != nil {
			return err
		}
		w.Progress = &progress
	}

	if !watchQuiet {
		fmt.Fprintf(out, "codecoach watching %s... (debounce %s)\n", root, delay)
	}
	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if !watchQuiet {
			fmt.Fprintln(out, "\nStopped.")
		}
		return nil
	}
	return err
}

// startDaemon writes the PID file and opens the log file. The actual
// backgrounding should be done by the caller (nohup, &, etc.) since Go
// cannot reliably fork.
func startDaemon() (io.Writer, func(), error) {
	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating config dir: %w", err)
	}

	if pid, err := readPID(); err == nil {
		if processExists(pid) {
			return nil, nil, fmt.Errorf("daemon already running (PID %d). Use --stop to stop it", pid)
		}
		_ = os.Remove(pidFilePath())
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return nil, nil, fmt.Errorf("writing PID file: %w", err)
	}

	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = os.Remove(pidFilePath())
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	output.SetNoColor(true)
	fmt.Fprintf(logFile, "[%s] daemon started (PID %d)\n", time.Now().Format(time.DateTime), pid)

	cleanup := func() {
		fmt.Fprintf(logFile, "[%s] daemon stopped\n", time.Now().Format(time.DateTime))
		_ = logFile.Close()
		_ = os.Remove(pidFilePath())
	}
	return logFile, cleanup, nil
}

// readPID reads the daemon PID from the PID file.
func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

// printEvent prints one debounced analysis and its alerts.
func printEvent(w io.Writer, ev watcher.Event) {
	a := ev.Analysis
	status := output.StyleSuccess.Render(checkMark())
	if len(a.Errors) > 0 {
		status = output.StyleError.Render("✗")
	}
	fmt.Fprintf(w, "[%s] %s %s  %s\n",
		a.CreatedAt.Local().Format("15:04:05"),
		status,
		ev.Path,
		output.StyleMuted.Render(fmt.Sprintf("%d error(s), %d warning(s), %d tip(s), maintainability %d",
			len(a.Errors), len(a.Warnings), len(a.Suggestions), a.Complexity.Maintainability)))
	for _, r := range a.Errors {
		renderFinding(w, r)
	}
	for _, alert := range ev.Alerts {
		printAlert(w, alert)
	}
}

// printAlert formats and prints an alert to the terminal.
func printAlert(w io.Writer, a watcher.Alert) {
	fmt.Fprintf(w, "         %s %s\n", alertIcon(a.Level), a.Title)
	if a.Message != "" {
		fmt.Fprintf(w, "           %s\n", a.Message)
	}
}

// alertIcon returns the terminal indicator for an alert level.
func alertIcon(level string) string {
	switch level {
	case "critical":
		return output.StyleError.Render("!!")
	case "warning":
		return output.StyleWarning.Render("! ")
	case "info":
		return output.StyleSuccess.Render(checkMark() + " ")
	default:
		return "  "
	}
}

// checkMark returns a terminal check mark indicator.
func checkMark() string {
	return "\xe2\x9c\x93"
}
