// Package config provides CLI commands for managing prefixview configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/prefixview/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify prefixview configuration",
	Long: `View or modify prefixview configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after defaults, the config file, PREFIXVIEW_*
environment variables and flags have been applied.`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  prefixview config set parse.pattern '^\[(\w+)\] (.*)'
  prefixview config set buffer.scrollback 50000
  prefixview config set process.pty true

Valid keys:
  parse.pattern            - Grouping regex (group 1 key, group 2 message)
  parse.error_pattern      - Regex for lines highlighted as errors
  buffer.scrollback        - Lines kept per group and category
  buffer.max_line_bytes    - Longer lines are split
  process.shell            - Run the command via this shell with -c
  process.stop_signal      - SIGTERM, SIGINT or SIGHUP
  process.grace_period_ms  - Wait before SIGKILL in milliseconds
  process.pty              - Attach stdout to a pseudo-terminal (true/false)
  tui.tick_interval_ms     - Redraw interval in milliseconds
  tui.sidebar_width        - Group list width (0 or 20-60)
  tui.quit_on_exit         - Quit when the command exits (true/false)
  tui.export_dir           - Where enter writes exported views
  logging.enabled          - Write the debug log (true/false)
  logging.level            - debug, info, warn or error
  logging.dir              - Debug log directory
  logging.max_size_mb      - Rotate the debug log at this size
  logging.max_backups      - Rotated logs to keep
  logging.compress         - Gzip rotated logs (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at $XDG_CONFIG_HOME/prefixview/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var showFormat string

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	for _, c := range []*cobra.Command{configCmd, configShowCmd} {
		c.Flags().StringVar(&showFormat, "format", "yaml", "output format (yaml or toml)")
	}
}

// Register adds all config-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

// keyTypes lists the keys `config set` accepts and how to parse their values.
var keyTypes = map[string]string{
	"parse.pattern":           "string",
	"parse.error_pattern":     "string",
	"buffer.scrollback":       "int",
	"buffer.max_line_bytes":   "int",
	"process.shell":           "string",
	"process.stop_signal":     "string",
	"process.grace_period_ms": "int",
	"process.pty":             "bool",
	"tui.tick_interval_ms":    "int",
	"tui.sidebar_width":       "int",
	"tui.quit_on_exit":        "bool",
	"tui.export_dir":          "string",
	"logging.enabled":         "bool",
	"logging.level":           "string",
	"logging.dir":             "string",
	"logging.max_size_mb":     "int",
	"logging.max_backups":     "int",
	"logging.compress":        "bool",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "# Config file: %s\n", used)
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}
	return encodeConfig(out, cfg, showFormat)
}

// encodeConfig writes cfg in the given format.
func encodeConfig(w io.Writer, cfg *appconfig.Config, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q: use yaml or toml", format)
	}
}

// parseValue converts a command-line value to the type of key.
func parseValue(key, value string) (any, error) {
	keyType, ok := keyTypes[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'prefixview config set --help' to see valid keys", key)
	}

	switch keyType {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return intVal, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseValue(key, args[1])
	if err != nil {
		return err
	}

	// Set the value in viper and validate the result before saving
	viper.Set(key, typedValue)
	if _, err := appconfig.Load(); err != nil {
		return fmt.Errorf("invalid value for %s:\n%w", key, err)
	}

	// Ensure config directory exists
	configDir := appconfig.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to config file
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = appconfig.ConfigFile()
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

// defaultConfigContent is the commented file written by `config init`.
const defaultConfigContent = `# prefixview configuration
#
# Every key can also be set with a PREFIXVIEW_* environment variable,
# e.g. PREFIXVIEW_BUFFER_SCROLLBACK=50000, or with a command-line flag.

# How output lines are grouped
parse:
  # Capture group 1 is the group key, group 2 the message.
  # The default matches turbo style "web:build: message" lines.
  pattern: '^(?P<prefix>\S*?):(?P<rest> .*)'
  # Lines matching this are highlighted as errors (empty disables)
  error_pattern: '(?i)(error|exception|stack.?trace)'

# Captured output limits
buffer:
  # Lines kept per group and category before the oldest are dropped
  scrollback: 10000
  # Longer lines are split into several
  max_line_bytes: 65536

# How the command is started and stopped
process:
  # Run the command as: <shell> -c "<command>" (empty runs it directly)
  shell: ""
  # Sent to the command's process group on quit: SIGTERM, SIGINT or SIGHUP
  stop_signal: SIGTERM
  # Milliseconds to wait after stop_signal before SIGKILL
  grace_period_ms: 1500
  # Attach stdout to a pseudo-terminal so the command keeps its colors
  pty: false

# Dashboard settings
tui:
  # Redraw interval in milliseconds
  tick_interval_ms: 50
  # Group list width in columns (20-60)
  sidebar_width: 30
  # Quit as soon as the command exits
  quit_on_exit: false
  # Directory for exported views (default: the system temp dir)
  # export_dir: /tmp
  # Replace the keys of a command
  # keys:
  #   next_group: ["j", "down"]
  #   prev_group: ["k", "up"]

# Debug log
logging:
  enabled: true
  # debug, info, warn or error
  level: info
  # Directory holding debug.log (default: $XDG_STATE_HOME/prefixview)
  # dir: ~/.local/state/prefixview
  # Rotate at this size in megabytes and keep this many old files
  max_size_mb: 10
  max_backups: 3
  compress: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := appconfig.ConfigDir()
	configFile := appconfig.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'prefixview config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize prefixview's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := appconfig.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(appconfig.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/prefixview/config.yaml\n")
	fmt.Fprintf(out, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: PREFIXVIEW_* (e.g., PREFIXVIEW_BUFFER_SCROLLBACK)")

	return nil
}
