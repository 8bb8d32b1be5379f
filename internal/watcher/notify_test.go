package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifyFallback_WritesToStderr(t *testing.T) {
	assert.NoError(t, notifyFallback(Alert{Level: "info", Title: "Errors fixed", Message: "1 error(s) fixed"}))
}

func TestFormatAlert(t *testing.T) {
	assert.Equal(t, "[info] Errors fixed: 1 error(s) fixed",
		FormatAlert(Alert{Level: "info", Title: "Errors fixed", Message: "1 error(s) fixed"}))
	assert.Equal(t, "[critical] app.js: New error: unclosed-bracket: line 3: boom",
		FormatAlert(Alert{Level: "critical", Title: "New error: unclosed-bracket", Message: "line 3: boom", Path: "/src/app.js"}))
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		level, min string
		want       bool
	}{
		{"info", "info", true},
		{"info", "warning", false},
		{"warning", "warning", true},
		{"critical", "warning", true},
		{"warning", "critical", false},
		{"", "info", true},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, AtLeast(Alert{Level: tc.level}, tc.min), "%s >= %s", tc.level, tc.min)
	}
}
