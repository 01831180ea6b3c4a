package ui

import (
	"context"
	"fmt"
	"time"

	"fruity/internal/config"
	"fruity/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// RunOptions tune Run.
type RunOptions struct {
	// WatchPath is the preference database to watch for changes made by
	// other processes. Empty disables watching.
	WatchPath string
	// Debounce collapses bursts of writes to WatchPath.
	Debounce time.Duration
}

// Run starts the dashboard and blocks until the user quits or ctx ends.
func Run(ctx context.Context, d Deps, opts RunOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(ctx, d)
	unsubscribe := model.Subscribe()
	defer unsubscribe()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.WatchPath != "" {
		w, err := config.NewWatcher(opts.WatchPath, opts.Debounce, func(string) {
			p.Send(PrefsChangedMsg{})
		})
		if err != nil {
			return err
		}
		defer w.Stop()
		if err := w.Start(ctx); err != nil {
			logging.Get(logging.CategoryUI).Warn("preference watcher disabled: %v", err)
		}
	}

	d.Controller.Start(ctx)
	logging.UIDebug("dashboard started for %s", d.Controller.Endpoint())

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
