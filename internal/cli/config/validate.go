package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/hrc/internal/logging"
	"github.com/leapstack-labs/hrc/internal/supervisor"
)

// Validate checks if the configuration is valid. The mode and command are
// only required by the root run and are checked by ValidateRun.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color %q (want auto, always or never)", c.Color)
	}

	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("invalid output format %q (want text, json or yaml)", c.Output)
	}

	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}

	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	return nil
}

// ValidateRun checks the settings needed to supervise a program.
func (c *Config) ValidateRun() error {
	if c.Mode == "" {
		return fmt.Errorf("a mode is required\nHint: pass --stateful (-s) or --stateless (-sl)")
	}
	if _, err := supervisor.ParseMode(c.Mode); err != nil {
		return err
	}
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("a compiler command is required\nHint: pass --cmd \"gcc main.c -o main\"")
	}
	return nil
}
