package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	appconfig "github.com/Iron-Ham/prefixview/internal/config"
	"github.com/Iron-Ham/prefixview/internal/errors"
	"github.com/Iron-Ham/prefixview/internal/logging"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a polling test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newRunFlags(t *testing.T, args ...string) (*viper.Viper, *pflag.FlagSet) {
	t.Helper()
	v := viper.New()
	flags := pflag.NewFlagSet("prefixview", pflag.ContinueOnError)
	addRunFlags(flags)
	bindFlags(v, flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	return v, flags
}

func TestRootCommand(t *testing.T) {
	if !strings.HasPrefix(rootCmd.Use, "prefixview") {
		t.Errorf("rootCmd.Use = %q", rootCmd.Use)
	}

	cmdMap := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		cmdMap[c.Name()] = true
	}
	for _, want := range []string{"config", "logs"} {
		if !cmdMap[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestRunFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantKey  string
		wantVal  any
		wantArgs []string
	}{
		{
			name:     "prefix",
			args:     []string{"-p", `^(\w+) (.*)`, "--", "make"},
			wantKey:  "parse.pattern",
			wantVal:  `^(\w+) (.*)`,
			wantArgs: []string{"make"},
		},
		{
			name:     "scrollback",
			args:     []string{"-n", "500", "turbo", "run"},
			wantKey:  "buffer.scrollback",
			wantVal:  500,
			wantArgs: []string{"turbo", "run"},
		},
		{
			name:     "flags after the command belong to it",
			args:     []string{"--pty", "ls", "-n", "3", "--pty"},
			wantKey:  "process.pty",
			wantVal:  true,
			wantArgs: []string{"ls", "-n", "3", "--pty"},
		},
		{
			name:     "stop signal",
			args:     []string{"--stop-signal", "SIGINT", "--", "sleep", "10"},
			wantKey:  "process.stop_signal",
			wantVal:  "SIGINT",
			wantArgs: []string{"sleep", "10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, flags := newRunFlags(t, tt.args...)
			if got := v.Get(tt.wantKey); got != tt.wantVal {
				t.Errorf("%s = %v (%T), want %v", tt.wantKey, got, got, tt.wantVal)
			}
			if got := flags.Args(); strings.Join(got, " ") != strings.Join(tt.wantArgs, " ") {
				t.Errorf("Args() = %q, want %q", got, tt.wantArgs)
			}
		})
	}
}

func TestRunFlags_UnsetFlagKeepsConfig(t *testing.T) {
	v, _ := newRunFlags(t, "make")
	v.SetDefault("buffer.scrollback", 10000)
	if got := v.GetInt("buffer.scrollback"); got != 10000 {
		t.Errorf("buffer.scrollback = %d, want the default", got)
	}
}

func TestApplyDurationFlags(t *testing.T) {
	v, flags := newRunFlags(t, "--grace-period", "3s", "make")
	if err := applyDurationFlags(v, flags); err != nil {
		t.Fatal(err)
	}
	if got := v.GetInt("process.grace_period_ms"); got != 3000 {
		t.Errorf("process.grace_period_ms = %d, want 3000", got)
	}

	v, flags = newRunFlags(t, "make")
	v.SetDefault("process.grace_period_ms", 1500)
	if err := applyDurationFlags(v, flags); err != nil {
		t.Fatal(err)
	}
	if got := v.GetInt("process.grace_period_ms"); got != 1500 {
		t.Errorf("unset flag changed grace period to %d", got)
	}
}

func TestRunDashboard_NoCommand(t *testing.T) {
	err := runDashboard(rootCmd, nil)
	if !errors.Is(err, errors.ErrEmptyCommand) {
		t.Fatalf("error = %v, want ErrEmptyCommand", err)
	}
	if !errors.IsFatal(err) {
		t.Error("a missing command should be fatal")
	}
}

func TestSessionConfig(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Process.PTY = true
	cfg.Process.Shell = "bash"

	sc := sessionConfig(cfg, []string{"make", "all"}, 120, 40, logging.NopLogger())
	if sc.Size == nil || sc.Size.Cols != 87 || sc.Size.Rows != 35 {
		t.Errorf("Size = %+v, want 87x35", sc.Size)
	}
	if !sc.PTY || sc.Shell != "bash" || sc.Scrollback != cfg.Buffer.Scrollback {
		t.Errorf("session config = %+v", sc)
	}
	if sc.StopSignal.String() != "terminated" {
		t.Errorf("StopSignal = %v, want SIGTERM", sc.StopSignal)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	out, err := executeCommand(rootCmd, "config", "init")
	if err != nil {
		t.Fatalf("config init error = %v\n%s", err, out)
	}
	if _, err := os.Stat(appconfig.ConfigFile()); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	if _, err := executeCommand(rootCmd, "config", "init"); err == nil {
		t.Error("second init should refuse to overwrite")
	}

	tests := []struct {
		format string
		want   []string
	}{
		{"yaml", []string{"parse:", "scrollback: 10000", "stop_signal: SIGTERM"}},
		{"toml", []string{"[parse]", "scrollback = 10000", "stop_signal = ", "SIGTERM"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := executeCommand(rootCmd, "config", "show", "--format", tt.format)
			if err != nil {
				t.Fatalf("config show error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestBuildFilter(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

	f, err := buildFilter("warn", "1h", "kill|lingering", "supervisor", now)
	if err != nil {
		t.Fatal(err)
	}
	if f.MinLevel != logging.LevelWarn || f.Component != "supervisor" {
		t.Errorf("filter = %+v", f)
	}
	if !f.Since.Equal(now.Add(-time.Hour)) {
		t.Errorf("Since = %v", f.Since)
	}
	if f.Pattern == nil || !f.Pattern.MatchString("kill failed") {
		t.Error("grep pattern not compiled")
	}

	for _, bad := range [][]string{{"loud", "", ""}, {"", "soon", ""}, {"", "", "("}} {
		if _, err := buildFilter(bad[0], bad[1], bad[2], "", now); err == nil {
			t.Errorf("buildFilter(%q) should fail", bad)
		}
	}
}

func TestFormatLogEntry(t *testing.T) {
	entry := logging.Entry{
		Time:      time.Date(2026, 1, 2, 15, 4, 5, 6_000_000, time.UTC),
		Level:     "WARN",
		Message:   "kill failed",
		Component: "supervisor",
		Attrs:     map[string]any{"pid": 42.0, "error": "no such process"},
	}

	got := formatLogEntry(entry)
	for _, want := range []string{"[15:04:05.006]", "[WARN]", "supervisor", "kill failed", "error=no such process", "pid=42"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatLogEntry() = %q, missing %q", got, want)
		}
	}
	if strings.Index(got, "error=") > strings.Index(got, "pid=") {
		t.Error("attributes should be sorted by key")
	}
}

func writeLogLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := f.WriteString(l + "\n"); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDisplayLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), logging.LogFileName)
	writeLogLines(t, path,
		`{"time":"2026-01-02T15:04:05Z","level":"INFO","msg":"starting","component":"session"}`,
		`not json`,
		`{"time":"2026-01-02T15:04:06Z","level":"DEBUG","msg":"line","component":"stream"}`,
		`{"time":"2026-01-02T15:04:07Z","level":"ERROR","msg":"read failed","component":"stream"}`,
	)

	tests := []struct {
		name    string
		tail    int
		filter  logging.Filter
		want    []string
		notWant []string
	}{
		{"all", 0, logging.Filter{}, []string{"starting", "not json", "line", "read failed"}, nil},
		{"tail", 2, logging.Filter{}, []string{"line", "read failed"}, []string{"starting"}},
		{"level", 0, logging.Filter{MinLevel: logging.LevelInfo}, []string{"starting", "read failed"}, []string{"] line"}},
		{"component", 0, logging.Filter{Component: "session"}, []string{"starting"}, []string{"read failed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := displayLogs(&buf, path, tt.tail, tt.filter); err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(buf.String(), nw) {
					t.Errorf("output should not contain %q:\n%s", nw, buf.String())
				}
			}
		})
	}
}

func TestFollowLogs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logging.LogFileName)
	writeLogLines(t, path, `{"time":"2026-01-02T15:04:05Z","level":"INFO","msg":"old entry"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- followLogs(ctx, &out, path, logging.Filter{}) }()

	// Give the watcher time to register.
	time.Sleep(200 * time.Millisecond)
	writeLogLines(t, path, `{"time":"2026-01-02T15:04:06Z","level":"WARN","msg":"new entry"}`)

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "new entry") {
		if time.Now().After(deadline) {
			t.Fatalf("follow did not print the new entry, got %q", out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
	if strings.Contains(out.String(), "old entry") {
		t.Error("follow should start at the end of the file")
	}

	// Rotation: the file is renamed and a new one created.
	if err := os.Rename(path, path+".1"); err != nil {
		t.Fatal(err)
	}
	writeLogLines(t, path, `{"time":"2026-01-02T15:04:07Z","level":"INFO","msg":"after rotation"}`)

	deadline = time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "after rotation") {
		if time.Now().After(deadline) {
			t.Fatalf("follow did not pick up the rotated file, got %q", out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("followLogs() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("followLogs did not stop on cancel")
	}
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  []string
		wantNot  string
	}{
		{
			name:     "child exit code passes through",
			err:      &errors.ExitError{Code: 3},
			wantCode: 3,
		},
		{
			name:     "config error with field",
			err:      errors.NewConfigError("bad grouping pattern", errors.ErrTooFewGroups).WithField("parse.pattern"),
			wantCode: 1,
			wantOut:  []string{"prefixview: config error [field=parse.pattern]", `Check "parse.pattern"`},
		},
		{
			name:     "config error without field",
			err:      errors.NewConfigError("nothing to run", errors.ErrEmptyCommand),
			wantCode: 1,
			wantOut:  []string{"prefixview: config error: nothing to run"},
			wantNot:  "Check",
		},
		{
			name:     "plain error is labeled",
			err:      errors.New("unknown flag: --bogus"),
			wantCode: 1,
			wantOut:  []string{"prefixview: error: unknown flag: --bogus"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if code := reportError(&buf, tt.err); code != tt.wantCode {
				t.Errorf("reportError() = %d, want %d", code, tt.wantCode)
			}
			out := buf.String()
			if len(tt.wantOut) == 0 && out != "" {
				t.Errorf("output = %q, want none", out)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output %q missing %q", out, want)
				}
			}
			if tt.wantNot != "" && strings.Contains(out, tt.wantNot) {
				t.Errorf("output %q should not contain %q", out, tt.wantNot)
			}
		})
	}
}

func TestReportShutdown(t *testing.T) {
	var buf bytes.Buffer
	reportShutdown(&buf, errors.NewTerminationError("child still running", errors.ErrProcessLingering))
	if !strings.Contains(buf.String(), "prefixview: warning:") {
		t.Errorf("output = %q, want a warning", buf.String())
	}

	buf.Reset()
	reportShutdown(&buf, errors.NewStreamError("stdout", errors.New("boom")))
	if buf.Len() != 0 {
		t.Errorf("stream error printed %q at shutdown", buf.String())
	}
}
