// Package tui implements the live channel dashboard shown by "filepipe top".
package tui

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultRefreshInterval is how often the dashboard rescans the channels.
const DefaultRefreshInterval = time.Second

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
}

// New creates a dashboard that calls load every interval.
func New(load LoadFunc, interval time.Duration) *App {
	return &App{model: NewModel(load, interval)}
}

// Run starts the dashboard and blocks until the user quits or the process
// is signalled.
func (a *App) Run() error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		<-sigChan
		if a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()

	signal.Stop(sigChan)

	return err
}
