// Package config loads the mim.yaml settings shared by the CLI subcommands.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding a config path.
const EnvVar = "MIM_CONFIG"

// FileName is looked up in the working directory.
const FileName = "mim.yaml"

// Config holds the effective settings after defaults are applied.
type Config struct {
	Path      string `yaml:"-"`
	LogLevel  string `yaml:"log_level"`
	Color     *bool  `yaml:"color"`
	MaxDepth  int    `yaml:"max_depth"`
	Stdstream Stream `yaml:"stdstream"`
	REPL      REPL   `yaml:"repl"`
}

// Stream configures the stdstream builtin.
type Stream struct {
	End *string `yaml:"end"`
	Sep *string `yaml:"sep"`
}

// REPL configures the interactive prompt.
type REPL struct {
	History  string `yaml:"history"`
	Prompt   string `yaml:"prompt"`
	Continue string `yaml:"continue"`
}

// ValidationError aggregates invalid settings.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("config: invalid settings")
	if e.Path != "" {
		b.WriteString(" in ")
		b.WriteString(e.Path)
	}
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Default returns the settings used when no file is found.
func Default() *Config {
	color := true
	end, sep := "\n", " "
	return &Config{
		LogLevel:  "warn",
		Color:     &color,
		MaxDepth:  2048,
		Stdstream: Stream{End: &end, Sep: &sep},
		REPL: REPL{
			History:  defaultHistory(),
			Prompt:   "==> ",
			Continue: "... ",
		},
	}
}

func defaultHistory() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mim", "history")
}

// Candidates lists the paths Load tries, in order. explicit comes from the
// --config flag and may be empty.
func Candidates(explicit string) []string {
	var paths []string
	if explicit != "" {
		paths = append(paths, explicit)
	}
	if env := os.Getenv(EnvVar); env != "" {
		paths = append(paths, env)
	}
	paths = append(paths, FileName)
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "mim", "config.yaml"))
	}
	return paths
}

// Load reads the first existing candidate over the defaults. An explicit
// path that does not exist is an error; missing fallbacks are skipped.
func Load(explicit string) (*Config, error) {
	for i, path := range Candidates(explicit) {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) && (explicit == "" || i > 0) {
				continue
			}
			return nil, fmt.Errorf("config: open %s: %w", path, err)
		}
		return LoadFile(path)
	}
	return Default(), nil
}

// LoadFile reads a single config file over the defaults.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
			return nil, verr
		}
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Decode reads YAML settings from r over the defaults. Unknown keys are
// rejected and an empty document keeps every default.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var raw Config
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	cfg.merge(&raw)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(o *Config) {
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Color != nil {
		c.Color = o.Color
	}
	if o.MaxDepth != 0 {
		c.MaxDepth = o.MaxDepth
	}
	if o.Stdstream.End != nil {
		c.Stdstream.End = o.Stdstream.End
	}
	if o.Stdstream.Sep != nil {
		c.Stdstream.Sep = o.Stdstream.Sep
	}
	if o.REPL.History != "" {
		c.REPL.History = expandHome(o.REPL.History)
	}
	if o.REPL.Prompt != "" {
		c.REPL.Prompt = o.REPL.Prompt
	}
	if o.REPL.Continue != "" {
		c.REPL.Continue = o.REPL.Continue
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func (c *Config) validate() error {
	var issues []string
	if _, err := ParseLevel(c.LogLevel); err != nil {
		issues = append(issues, err.Error())
	}
	if c.MaxDepth < 1 {
		issues = append(issues, fmt.Sprintf("max_depth must be positive, got %d", c.MaxDepth))
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// ParseLevel maps a log_level setting to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q", s)
}

// Level returns the parsed log level. Decode has already validated it.
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// ColorEnabled reports whether diagnostics may use ANSI color.
func (c *Config) ColorEnabled() bool {
	return c.Color == nil || *c.Color
}

// End is the stdstream line terminator.
func (c *Config) End() string {
	if c.Stdstream.End == nil {
		return "\n"
	}
	return *c.Stdstream.End
}

// Sep separates stdstream call arguments.
func (c *Config) Sep() string {
	if c.Stdstream.Sep == nil {
		return " "
	}
	return *c.Stdstream.Sep
}
