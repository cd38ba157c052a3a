// Package config provides configuration management for the hrc CLI.
//
// Values are layered with koanf: built-in defaults, then an hrc.yaml file,
// then HRC_* environment variables, then explicitly set command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Mode        string        `koanf:"mode"`
	Command     string        `koanf:"cmd"`
	LogLevel    string        `koanf:"log_level"`
	LogFile     string        `koanf:"log_file"` // "-" disables the file sink
	Color       string        `koanf:"color"`
	WatchDirs   []string      `koanf:"watch"`
	Extensions  []string      `koanf:"extensions"`
	Debounce    time.Duration `koanf:"debounce"`
	OutputPath  string        `koanf:"out"`
	HistoryPath string        `koanf:"history"` // "-" disables the history store
	Verbose     bool          `koanf:"verbose"`
	Output      string        `koanf:"output"`
}

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Output formats for parse and history.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Disabled is the path value that turns off the log file or history store.
const Disabled = "-"

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultColor    = ColorAuto
	DefaultDebounce = 150 * time.Millisecond
	DefaultOutput   = OutputText
)

// DefaultExtensions are the file extensions watched when none are configured.
var DefaultExtensions = []string{".c", ".h"}

// LogFileDisabled reports whether logging to a file is turned off.
func (c *Config) LogFileDisabled() bool { return c.LogFile == Disabled }

// HistoryDisabled reports whether build history is turned off.
func (c *Config) HistoryDisabled() bool { return c.HistoryPath == Disabled }
