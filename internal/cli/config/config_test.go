package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at fresh temp dirs so no
// real hrc.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	ResetConfig()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.BoolP("stateful", "s", false, "")
	fs.Bool("stateless", false, "")
	fs.StringP("cmd", "c", "", "")
	fs.String("log-level", "", "")
	fs.String("log-file", "", "")
	fs.String("color", "", "")
	fs.StringSlice("watch", nil, "")
	fs.StringSlice("extensions", nil, "")
	fs.Duration("debounce", 0, "")
	fs.String("out", "", "")
	fs.String("history", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Mode)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, filepath.Join(home, ".hrc", "hrc.log"), cfg.LogFile)
	assert.Equal(t, filepath.Join(home, ".hrc", "history.db"), cfg.HistoryPath)
	assert.Equal(t, ColorAuto, cfg.Color)
	assert.Equal(t, []string{".c", ".h"}, cfg.Extensions)
	assert.Equal(t, 150*time.Millisecond, cfg.Debounce)
	assert.Equal(t, OutputText, cfg.Output)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      map[string]string
		args     []string
		check    func(t *testing.T, cfg *Config)
		wantFile bool
	}{
		{
			name:     "file over defaults",
			file:     "mode: stateful\ncmd: gcc main.c\nlog_level: debug\ndebounce: 1s\nextensions: [.c, .h, .inc]\n",
			wantFile: true,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "stateful", cfg.Mode)
				assert.Equal(t, "gcc main.c", cfg.Command)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, time.Second, cfg.Debounce)
				assert.Equal(t, []string{".c", ".h", ".inc"}, cfg.Extensions)
			},
		},
		{
			name: "env over file",
			file: "log_level: debug\n",
			env:  map[string]string{"HRC_LOG_LEVEL": "trace", "HRC_EXTENSIONS": ".c,.cc", "HRC_DEBOUNCE": "40ms"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "trace", cfg.LogLevel)
				assert.Equal(t, []string{".c", ".cc"}, cfg.Extensions)
				assert.Equal(t, 40*time.Millisecond, cfg.Debounce)
			},
		},
		{
			name: "flags over env",
			env:  map[string]string{"HRC_LOG_LEVEL": "trace", "HRC_CMD": "cc a.c"},
			args: []string{"--log-level", "warn", "--cmd", "clang b.c", "--watch", "src,include", "--debounce", "2s"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "warn", cfg.LogLevel)
				assert.Equal(t, "clang b.c", cfg.Command)
				assert.Equal(t, []string{"src", "include"}, cfg.WatchDirs)
				assert.Equal(t, 2*time.Second, cfg.Debounce)
			},
		},
		{
			name: "unset flags keep lower layers",
			env:  map[string]string{"HRC_COLOR": "never"},
			args: []string{"-v"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ColorNever, cfg.Color)
				assert.True(t, cfg.Verbose)
			},
		},
		{
			name: "stateless switch sets mode",
			file: "mode: stateful\n",
			args: []string{"--stateless"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "stateless", cfg.Mode)
			},
		},
		{
			name: "stateful switch sets mode",
			args: []string{"-s"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "stateful", cfg.Mode)
			},
		},
		{
			name: "explicitly false switch is ignored",
			env:  map[string]string{"HRC_MODE": "Stateless"},
			args: []string{"--stateful=false"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "stateless", cfg.Mode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if tt.file != "" {
				writeFile(t, "hrc.yaml", tt.file)
			}
			for key, val := range tt.env {
				t.Setenv(key, val)
			}
			fs := newFlagSet()
			require.NoError(t, fs.Parse(tt.args))

			cfg, err := LoadConfig("", fs)
			require.NoError(t, err)
			tt.check(t, cfg)
			if tt.wantFile {
				assert.Equal(t, filepath.Join(".", "hrc.yaml"), GetConfigFileUsed())
			}
		})
	}
}

func TestLoadConfig_HomeConfig(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".hrc", "hrc.yaml"), "color: always\n")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, ColorAlways, cfg.Color)
	assert.Equal(t, filepath.Join(home, ".hrc", "hrc.yaml"), GetConfigFileUsed())
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "output: json\nhistory: \"-\"\nlog_file: \"-\"\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.True(t, cfg.HistoryDisabled())
	assert.True(t, cfg.LogFileDisabled())
	assert.Equal(t, path, GetConfigFileUsed())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoadConfig_ExpandsEnvVarsInPaths(t *testing.T) {
	isolate(t)
	t.Setenv("BUILD_ROOT", "/tmp/builds")
	writeFile(t, "hrc.yaml", "out: ${BUILD_ROOT}/app\nwatch: [\"${BUILD_ROOT}/src\"]\nhistory: ${UNSET_HRC_VAR}/h.db\n")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/builds/app", cfg.OutputPath)
	assert.Equal(t, []string{"/tmp/builds/src"}, cfg.WatchDirs)
	assert.Equal(t, "${UNSET_HRC_VAR}/h.db", cfg.HistoryPath, "unknown variables are left alone")
}

func TestLoadConfig_Invalid(t *testing.T) {
	isolate(t)
	t.Setenv("HRC_COLOR", "rainbow")

	_, err := LoadConfig("", nil)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{LogLevel: "info", Color: ColorAuto, Output: OutputText, Extensions: []string{".c"}}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "chatty" }, errSubstr: "chatty"},
		{name: "bad color", mutate: func(c *Config) { c.Color = "sometimes" }, errSubstr: "invalid color"},
		{name: "bad output", mutate: func(c *Config) { c.Output = "xml" }, errSubstr: "invalid output format"},
		{name: "negative debounce", mutate: func(c *Config) { c.Debounce = -time.Second }, errSubstr: "debounce"},
		{name: "extension without dot", mutate: func(c *Config) { c.Extensions = []string{"c"} }, errSubstr: "must start with a dot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateRun(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		errSubstr string
	}{
		{name: "ok", cfg: Config{Mode: "stateful", Command: "gcc main.c"}},
		{name: "missing mode", cfg: Config{Command: "gcc main.c"}, errSubstr: "a mode is required"},
		{name: "unknown mode", cfg: Config{Mode: "lazy", Command: "gcc main.c"}, errSubstr: "unknown mode"},
		{name: "missing command", cfg: Config{Mode: "stateless", Command: "  "}, errSubstr: "compiler command is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateRun()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errSubstr)
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")
}
