// Package config provides configuration loading and defaults for codecoach.
package config

import "time"

// DefaultConfigDir is the default location for codecoach configuration.
const DefaultConfigDir = "~/.config/codecoach"

// DefaultDBName is the filename for the SQLite history database.
const DefaultDBName = "codecoach.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// Analysis defaults.
const (
	DefaultLanguage  = "javascript"
	DefaultUserLevel = "beginner"
	DefaultDebounce  = 500 * time.Millisecond
)

// DefaultUser names the learner when none is configured.
const DefaultUser = "default"

// DefaultHistoryWindow is how many recent analyses feed progress.
const DefaultHistoryWindow = 20

// DefaultCache holds the default analysis cache bounds.
var DefaultCache = Cache{
	Size: 256,
	TTL:  10 * time.Minute,
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}

// DefaultLog holds the default logging preferences.
var DefaultLog = Log{
	Level: "warn",
}
