package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/prefixview/internal/cmd/config"
	appconfig "github.com/Iron-Ham/prefixview/internal/config"
	"github.com/Iron-Ham/prefixview/internal/errors"
)

var rootCmd = &cobra.Command{
	Use:   "prefixview [flags] [--] command [args...]",
	Short: "Group a command's output by line prefix",
	Long: `prefixview runs a command and shows its output grouped by a prefix
extracted from each line, for example the task name in turbo or
docker compose output.

Each group keeps its stdout messages, its stderr lines and the lines the
pattern could not parse as separate views. Move between groups with j/k
and between views with tab. Press ? for all keys.

Examples:
  # Group turbo output by task
  prefixview -- turbo run build

  # Group lines like "[api] listening" by the bracketed name
  prefixview -p '^\[(\w+)\] (.*)' -- docker compose up

  # Run through a shell and keep colors
  prefixview --shell bash --pty -- 'make -j8 all 2>&1'`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runDashboard,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// flagKeys maps run flags onto the configuration keys they override.
var flagKeys = map[string]string{
	"prefix":       "parse.pattern",
	"scrollback":   "buffer.scrollback",
	"shell":        "process.shell",
	"pty":          "process.pty",
	"stop-signal":  "process.stop_signal",
	"log-level":    "logging.level",
	"quit-on-exit": "tui.quit_on_exit",
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/prefixview/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	addRunFlags(rootCmd.Flags())
	bindFlags(viper.GetViper(), rootCmd.Flags())

	config.Register(rootCmd)
	rootCmd.AddCommand(logsCmd)
}

// addRunFlags registers the flags of the dashboard command. Flags after
// the command belong to the child.
func addRunFlags(flags *pflag.FlagSet) {
	flags.SetInterspersed(false)
	flags.StringP("prefix", "p", "", "grouping regex: group 1 is the key, group 2 the message")
	flags.IntP("scrollback", "n", 0, "lines kept per group and category")
	flags.Duration("grace-period", 0, "time between the stop signal and SIGKILL (e.g. 3s)")
	flags.String("shell", "", "run the command through this shell with -c")
	flags.Bool("pty", false, "attach the command's stdout to a pseudo-terminal")
	flags.String("stop-signal", "", "signal sent first on quit (SIGTERM, SIGINT or SIGHUP)")
	flags.String("log-level", "", "debug log level (debug, info, warn, error)")
	flags.Bool("quit-on-exit", false, "quit as soon as the command exits")
}

// bindFlags makes every run flag override its configuration key. A bound
// flag only wins over the file and environment when it was set.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// applyDurationFlags copies flags whose unit differs from their key.
func applyDurationFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if !flags.Changed("grace-period") {
		return nil
	}
	d, err := flags.GetDuration("grace-period")
	if err != nil {
		return err
	}
	v.Set("process.grace_period_ms", d.Milliseconds())
	return nil
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.ConfigDir())
		viper.AddConfigPath("$HOME/.config/prefixview")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PREFIXVIEW")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PREFIXVIEW_BUFFER_SCROLLBACK for buffer.scrollback
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// Main runs prefixview and returns the process exit code: the child's exit
// status after a dashboard run, or 1 when prefixview itself failed.
func Main() int {
	err := Execute()
	if err == nil {
		return 0
	}
	return reportError(os.Stderr, err)
}

// reportError prints a failure and returns the exit code for it. Errors
// built for the user print as they are; anything else is labeled with its
// severity. A fatal configuration error also points at the config file.
func reportError(w io.Writer, err error) int {
	if code, ok := errors.ExitCode(err); ok {
		return code
	}
	if !errors.IsUserFacing(err) {
		fmt.Fprintf(w, "prefixview: %s: %v\n", errors.GetSeverity(err), err)
		return 1
	}
	fmt.Fprintf(w, "prefixview: %v\n", err)
	var cfgErr *errors.ConfigError
	if errors.IsFatal(err) && errors.As(err, &cfgErr) && cfgErr.Field != "" {
		fmt.Fprintf(w, "Check %q with 'prefixview config show'.\n", cfgErr.Field)
	}
	return 1
}
