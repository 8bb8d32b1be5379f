package watcher

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Notify sends a desktop notification for the given alert. On macOS it uses
// osascript, on Linux it tries notify-send. If neither is available, it falls
// back to printing to stderr.
func Notify(alert Alert) error {
	switch runtime.GOOS {
	case "darwin":
		return notifyMacOS(alert)
	case "linux":
		return notifyLinux(alert)
	default:
		return notifyFallback(alert)
	}
}

// notifyMacOS sends a notification via osascript on macOS.
func notifyMacOS(alert Alert) error {
	script := fmt.Sprintf(
		`display notification %q with title "codecoach" subtitle %q`,
		alert.Message, alert.Title,
	)
	cmd := exec.Command("osascript", "-e", script)
	if err := cmd.Run(); err != nil {
		// Fall back to stderr if osascript fails.
		return notifyFallback(alert)
	}
	return nil
}

// notifyLinux sends a notification via notify-send on Linux.
func notifyLinux(alert Alert) error {
	_, err := exec.LookPath("notify-send")
	if err != nil {
		return notifyFallback(alert)
	}

	title := fmt.Sprintf("codecoach: %s", alert.Title)
	cmd := exec.Command("notify-send", title, alert.Message)
	if err := cmd.Run(); err != nil {
		return notifyFallback(alert)
	}
	return nil
}

// notifyFallback prints the alert to stderr when no desktop notification
// system is available.
func notifyFallback(alert Alert) error {
	_, err := fmt.Fprintln(os.Stderr, FormatAlert(alert))
	return err
}

// FormatAlert renders an alert as a single line.
func FormatAlert(alert Alert) string {
	if alert.Path == "" {
		return fmt.Sprintf("[%s] %s: %s", alert.Level, alert.Title, alert.Message)
	}
	return fmt.Sprintf("[%s] %s: %s: %s", alert.Level, filepath.Base(alert.Path), alert.Title, alert.Message)
}

var levelRank = map[string]int{"info": 0, "warning": 1, "critical": 2}

// AtLeast reports whether alert is at or above the given level. Unknown
// levels rank as info.
func AtLeast(alert Alert, level string) bool {
	return levelRank[alert.Level] >= levelRank[level]
}
