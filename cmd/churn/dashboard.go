package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/churn/cmd/churn/tui"
	"github.com/jamesainslie/churn/pkg/churn/config"
	"github.com/jamesainslie/churn/pkg/churn/supervisor"
)

// runWithDashboard runs the supervisor behind a live stats view. Quitting
// the dashboard stops the run; the run ending closes the dashboard.
func runWithDashboard(ctx context.Context, sup *supervisor.Supervisor, cfg *config.Config, root string, start time.Time) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(tui.Options{
		Root:    root,
		Workers: cfg.Workers,
		Version: version,
		Start:   start,
		Fetch:   sup.Stats,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	errCh := make(chan error, 1)
	go func() {
		err := sup.Run(ctx)
		errCh <- err
		p.Send(tui.DoneMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errCh
		return err
	}

	cancel()
	return <-errCh
}
