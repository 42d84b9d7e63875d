package tui

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
}

// New creates a new dashboard for src.
func New(src Source, opts Options) *App {
	return &App{model: NewModel(src, opts)}
}

// Run starts the dashboard and blocks until it quits. SIGINT, SIGTERM and
// SIGHUP quit it the same way the quit key does. The final model is
// returned so the caller can see why it stopped.
func (a *App) Run(extra ...tea.ProgramOption) (Model, error) {
	opts := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	}, extra...)
	a.program = tea.NewProgram(a.model, opts...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			a.model.logger.Info("signal received", "signal", sig.String())
			a.program.Send(quitMsg{reason: sig.String()})
		case <-done:
		}
	}()

	final, err := a.program.Run()

	// Clean up signal handler
	close(done)
	signal.Stop(sigChan)

	if m, ok := final.(Model); ok {
		a.model = m
	}
	return a.model, err
}

