package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fruity/cmd/fruity/ui"
	"fruity/internal/config"
	"fruity/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// uiCmd opens the dashboard
var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive dashboard (default)",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	// The dashboard owns the terminal, so logs go to a file.
	opts := cfg.Logging.Options(verbose)
	if opts.File == "" {
		opts.File = filepath.Join(config.HomeDir(), "fruity.log")
	}
	if err := logging.Initialize(opts); err != nil {
		return err
	}
	defer logging.CloseAll()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		shutdown, err := serveMetrics(cfg.Metrics.Addr, a.registry)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	return ui.Run(ctx, ui.Deps{
		Controller: a.ctrl,
		Prefs:      a.prefs,
		Catalog:    a.catalog,
		Styles:     ui.DefaultStyles(),
	}, ui.RunOptions{WatchPath: a.prefs.Path()})
}

// serveMetrics exposes reg on addr/metrics until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Get(logging.CategoryBoot).Warn("metrics listener stopped: %v", err)
		}
	}()
	logging.Boot("metrics on http://%s/metrics", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
