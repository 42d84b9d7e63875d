package config

import (
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/Iron-Ham/prefixview/internal/parse"
)

// Config represents the complete prefixview configuration
type Config struct {
	Parse   ParseConfig   `mapstructure:"parse" yaml:"parse" toml:"parse"`
	Buffer  BufferConfig  `mapstructure:"buffer" yaml:"buffer" toml:"buffer"`
	Process ProcessConfig `mapstructure:"process" yaml:"process" toml:"process"`
	TUI     TUIConfig     `mapstructure:"tui" yaml:"tui" toml:"tui"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" toml:"logging"`
}

// ParseConfig controls how output lines are grouped
type ParseConfig struct {
	// Pattern is the grouping regex. Capture group 1 is the group key and
	// capture group 2 the message.
	Pattern string `mapstructure:"pattern" yaml:"pattern" toml:"pattern"`
	// ErrorPattern flags lines that should be highlighted as errors.
	// Empty disables error highlighting.
	ErrorPattern string `mapstructure:"error_pattern" yaml:"error_pattern" toml:"error_pattern"`
}

// BufferConfig bounds the captured output
type BufferConfig struct {
	// Scrollback is the number of lines kept per group and category
	Scrollback int `mapstructure:"scrollback" yaml:"scrollback" toml:"scrollback"`
	// MaxLineBytes splits lines longer than this many bytes
	MaxLineBytes int `mapstructure:"max_line_bytes" yaml:"max_line_bytes" toml:"max_line_bytes"`
}

// ProcessConfig controls how the child is started and stopped
type ProcessConfig struct {
	// Shell, when set, runs the command as `shell -c "command"`
	Shell string `mapstructure:"shell" yaml:"shell" toml:"shell"`
	// StopSignal is sent to the process group first (default: SIGTERM)
	StopSignal string `mapstructure:"stop_signal" yaml:"stop_signal" toml:"stop_signal"`
	// GracePeriodMs is how long to wait after StopSignal before SIGKILL
	GracePeriodMs int `mapstructure:"grace_period_ms" yaml:"grace_period_ms" toml:"grace_period_ms"`
	// PTY attaches the child's stdout to a pseudo-terminal so it keeps colors
	PTY bool `mapstructure:"pty" yaml:"pty" toml:"pty"`
}

// TUIConfig controls the dashboard
type TUIConfig struct {
	// TickIntervalMs is the redraw interval in milliseconds
	TickIntervalMs int `mapstructure:"tick_interval_ms" yaml:"tick_interval_ms" toml:"tick_interval_ms"`
	// SidebarWidth is the width of the group list in columns (default: 30, min: 20, max: 60)
	SidebarWidth int `mapstructure:"sidebar_width" yaml:"sidebar_width" toml:"sidebar_width"`
	// QuitOnExit closes the dashboard as soon as the child exits
	QuitOnExit bool `mapstructure:"quit_on_exit" yaml:"quit_on_exit" toml:"quit_on_exit"`
	// ExportDir is where the export action writes bucket contents
	ExportDir string `mapstructure:"export_dir" yaml:"export_dir" toml:"export_dir"`
	// Keys replaces the default keys of a command, e.g. next_group: ["ctrl+n"]
	Keys map[string][]string `mapstructure:"keys" yaml:"keys" toml:"keys"`
}

// LoggingConfig controls the debug log
type LoggingConfig struct {
	// Enabled controls whether debug.log is written (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled" toml:"enabled"`
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level" toml:"level"`
	// Dir is the directory holding debug.log
	Dir string `mapstructure:"dir" yaml:"dir" toml:"dir"`
	// MaxSizeMB is the maximum size of a log file before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups" toml:"max_backups"`
	// Compress gzips rotated files
	Compress bool `mapstructure:"compress" yaml:"compress" toml:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Parse: ParseConfig{
			Pattern:      parse.DefaultPattern,
			ErrorPattern: parse.DefaultErrorPattern,
		},
		Buffer: BufferConfig{
			Scrollback:   10000,
			MaxLineBytes: 64 * 1024,
		},
		Process: ProcessConfig{
			StopSignal:    "SIGTERM",
			GracePeriodMs: 1500,
		},
		TUI: TUIConfig{
			TickIntervalMs: 50,
			SidebarWidth:   30,
			ExportDir:      os.TempDir(),
			Keys:           map[string][]string{},
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        StateDir(),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// GracePeriod returns the stop grace period as a time.Duration
func (c *ProcessConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodMs) * time.Millisecond
}

// Signal returns the configured stop signal, or 0 if the name is unknown
func (c *ProcessConfig) Signal() syscall.Signal {
	return unix.SignalNum(c.StopSignal)
}

// TickInterval returns the redraw interval as a time.Duration
func (c *TUIConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Parse defaults
	v.SetDefault("parse.pattern", defaults.Parse.Pattern)
	v.SetDefault("parse.error_pattern", defaults.Parse.ErrorPattern)

	// Buffer defaults
	v.SetDefault("buffer.scrollback", defaults.Buffer.Scrollback)
	v.SetDefault("buffer.max_line_bytes", defaults.Buffer.MaxLineBytes)

	// Process defaults
	v.SetDefault("process.shell", defaults.Process.Shell)
	v.SetDefault("process.stop_signal", defaults.Process.StopSignal)
	v.SetDefault("process.grace_period_ms", defaults.Process.GracePeriodMs)
	v.SetDefault("process.pty", defaults.Process.PTY)

	// TUI defaults
	v.SetDefault("tui.tick_interval_ms", defaults.TUI.TickIntervalMs)
	v.SetDefault("tui.sidebar_width", defaults.TUI.SidebarWidth)
	v.SetDefault("tui.quit_on_exit", defaults.TUI.QuitOnExit)
	v.SetDefault("tui.export_dir", defaults.TUI.ExportDir)
	v.SetDefault("tui.keys", defaults.TUI.Keys)

	// Logging defaults
	v.SetDefault("logging.enabled", defaults.Logging.Enabled)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load over an explicit viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "prefixview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".prefixview"
	}
	return filepath.Join(home, ".config", "prefixview")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns the directory for the debug log
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "prefixview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".prefixview"
	}
	return filepath.Join(home, ".local", "state", "prefixview")
}
