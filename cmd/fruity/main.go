// Package main implements the fruity CLI - a client for the fruit log
// backend with offline insights, CSV import/export and a terminal dashboard.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"fruity/internal/config"
	"fruity/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool
	apiURL     string
	region     string
	lang       string
	timeout    time.Duration

	// Set by PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "fruity",
	Short: "fruity - fruit tasting log with seasonal insights",
	Long: `fruity keeps a shared log of fruit tastings on a remote backend and
turns it into per-region insights: what is best right now, what has been
best all along, and when each fruit is in season.

Run without arguments to open the interactive dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}
		cfg = loaded

		l, err := buildLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		logging.InitializeWithLogger(logger, cfg.Logging.Categories)
		logging.BootDebug("config loaded from %s", path)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runDashboard,
}

// buildLogger builds the CLI's zap logger from the logging section.
// verbose forces the debug level.
func buildLogger(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch strings.ToLower(lc.Format) {
	case "", "console", "text":
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		zapCfg.Encoding = "json"
	default:
		return nil, fmt.Errorf("unknown log format %q (valid: json, console)", lc.Format)
	}
	if lc.File != "" {
		zapCfg.OutputPaths = []string{lc.File}
		zapCfg.ErrorOutputPaths = []string{lc.File}
	}
	return zapCfg.Build()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.fruity/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend URL for this run (overrides the saved one)")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "Region for this run (overrides the saved one)")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "", "Language for this run: en or fr")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(uiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
