package main

import (
	"fmt"
	"io"
	"os"

	"fruity/internal/csvio"
	"fruity/internal/logging"
	"fruity/internal/types"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// importCmd posts rows from a CSV file
var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import logs from a CSV file",
	Long: `Reads Date,Fruit,Origin,Rating[,Region[,Store]] rows (header optional, quoted
fields allowed) and posts each valid row once. Malformed rows and rows that
fail to post are listed with their line numbers; nothing is retried.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// exportCmd writes the collection as CSV
var exportCmd = &cobra.Command{
	Use:   "export [file.csv]",
	Short: "Export every log as CSV (stdout by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var importDryRun bool

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and validate only")
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	rows, skipped, err := csvio.ParseWith(f, csvio.Options{DefaultRegion: a.region, Catalog: a.catalog})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range skipped {
		fmt.Fprintf(out, "skipped %v\n", s)
	}
	if importDryRun || len(rows) == 0 {
		fmt.Fprintf(out, "%d rows valid, %d skipped\n", len(rows), len(skipped))
		return nil
	}

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	var limiter *rate.Limiter
	if r := cfg.Import.RatePerSecond; r > 0 {
		limiter = rate.NewLimiter(rate.Limit(r), 1)
	}
	importer := &csvio.Importer{
		Poster:      a.ctrl.Client(),
		Concurrency: cfg.Import.Concurrency,
		Limiter:     limiter,
		Timeout:     cfg.GetMutationTimeout(),
	}
	res := importer.Import(ctx, rows)
	for _, f := range res.Failed {
		fmt.Fprintf(out, "failed %v\n", f)
	}
	fmt.Fprintf(out, "batch %s: %d created, %d failed, %d skipped\n", res.BatchID, res.Created, len(res.Failed), len(skipped))

	if res.Created > 0 {
		if _, err := a.load(ctx); err != nil {
			logging.CSVWarn("reload after import failed: %v", err)
		}
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d of %d rows were not imported", len(res.Failed), len(rows))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()
	logs, err := a.load(ctx)
	if err != nil {
		return err
	}

	toFile := len(args) == 1 && args[0] != "-"
	if toFile {
		f, cerr := os.Create(args[0])
		if cerr != nil {
			return fmt.Errorf("failed to create %s: %w", args[0], cerr)
		}
		err = writeAndClose(f, logs)
	} else {
		err = csvio.Write(cmd.OutOrStdout(), logs)
	}
	if err != nil {
		return err
	}
	logging.CSV("exported %d logs", len(logs))
	if toFile {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d logs written to %s\n", len(logs), args[0])
	}
	return nil
}

// writeAndClose writes logs to wc and closes it. A failed close is an error.
func writeAndClose(wc io.WriteCloser, logs []types.LogEntry) error {
	if err := csvio.Write(wc, logs); err != nil {
		wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	return nil
}
