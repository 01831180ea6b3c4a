package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fruity/cmd/fruity/ui"
	"fruity/internal/catalog"
	"fruity/internal/insights"
	"fruity/internal/logging"
	"fruity/internal/remote"
	"fruity/internal/store"
	"fruity/internal/types"

	"github.com/prometheus/client_golang/prometheus"
)

// app holds the collaborators shared by the commands. Build it with openApp
// and release it with Close.
type app struct {
	prefs    *store.Preferences
	catalog  *catalog.Catalog
	engine   *insights.Engine
	registry *prometheus.Registry
	metrics  *remote.Metrics
	ctrl     *remote.Controller

	endpoint string
	region   string
	lang     types.Language
}

// openApp opens the preference store and builds a controller for the
// effective endpoint. Flags override saved preferences for this run only.
func openApp() (*app, error) {
	prefs, err := store.OpenPreferences(cfg.Preferences.Path, store.Defaults{
		BaseURL:  cfg.API.BaseURL,
		Region:   cfg.Preferences.DefaultRegion,
		Language: cfg.DefaultLanguage(),
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		prefs:    prefs,
		catalog:  catalog.Default(),
		registry: prometheus.NewRegistry(),
		endpoint: prefs.BaseURL(),
		region:   prefs.Region(),
		lang:     prefs.Language(),
	}
	a.engine = insights.NewEngine(a.catalog)

	if apiURL != "" {
		if err := remote.ValidateBaseURL(apiURL); err != nil {
			prefs.Close()
			return nil, fmt.Errorf("--api-url: %w", err)
		}
		a.endpoint = remote.NormalizeBaseURL(apiURL)
	}
	if r := strings.TrimSpace(region); r != "" {
		a.region = r
	}
	if lang != "" {
		l, err := types.ParseLanguage(lang)
		if err != nil {
			prefs.Close()
			return nil, fmt.Errorf("--lang: %w", err)
		}
		a.lang = l
	}

	a.metrics = remote.NewMetrics(a.registry)
	a.ctrl = remote.NewController(a.endpoint, cfg.ControllerConfig(), remote.WithMetrics(a.metrics))
	logging.BootDebug("app ready: endpoint=%s region=%s lang=%s prefs=%s", a.endpoint, a.region, a.lang, prefs.Path())
	return a, nil
}

// Close stops the controller and closes the preference store.
func (a *app) Close() {
	a.ctrl.Close()
	if err := a.prefs.Close(); err != nil {
		logging.Get(logging.CategoryStore).Warn("failed to close preferences: %v", err)
	}
}

// options returns the aggregation inputs for this run.
func (a *app) options(now time.Time) insights.Options {
	return insights.Options{Region: a.region, Language: a.lang, Reference: now}
}

// load runs one load cycle and turns a failed snapshot into an error.
func (a *app) load(ctx context.Context) ([]types.LogEntry, error) {
	snap := a.ctrl.Load(ctx)
	if snap.State != remote.StateSuccess {
		return nil, loadError(snap, a.lang)
	}
	return snap.Logs, nil
}

// loadError explains a failed snapshot in the user's language.
func loadError(snap remote.Snapshot, lang types.Language) error {
	if snap.Err == nil {
		return fmt.Errorf("load ended in state %s", snap.State)
	}
	if snap.Misconfigured() {
		return fmt.Errorf("%s %w", ui.T(lang, ui.KeyMisconfigured), snap.Err)
	}
	return fmt.Errorf("%s %w", ui.T(lang, ui.KeyServerError), snap.Err)
}

// commandContext bounds a command by --timeout and cancels it on SIGINT/SIGTERM.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}
