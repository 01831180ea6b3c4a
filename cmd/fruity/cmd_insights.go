package main

import (
	"fmt"
	"strings"
	"time"

	"fruity/cmd/fruity/ui"
	"fruity/internal/insights"

	"github.com/spf13/cobra"
)

// historyCmd lists logs
var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "Search the log history of the active region",
	Long: `Lists the logs of the active region, newest first. The optional query
matches the fruit (in either language), origin or store, ignoring case and
accents.`,
	RunE: runHistory,
}

// topCmd ranks fruits
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show this month's top picks, or the full ranking with --all",
	Args:  cobra.NoArgs,
	RunE:  runTop,
}

// trendCmd shows the seasonal series of one fruit
var trendCmd = &cobra.Command{
	Use:   "trend <fruit>",
	Short: "Show the month-by-month ratings of one fruit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrend,
}

// reportCmd renders a markdown report
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render an insight report for the active region",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

// suggestCmd autocompletes fruit names
var suggestCmd = &cobra.Command{
	Use:   "suggest <text>",
	Short: "Complete a fruit name from the catalog of the active language",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSuggest,
}

var (
	historyMinRating int
	topAll           bool
	topSort          string
	topWeighted      bool
	reportRaw        bool
	reportWeighted   bool
	suggestLimit     int
)

func init() {
	historyCmd.Flags().IntVar(&historyMinRating, "min-rating", 0, "Only logs rated at least this")

	topCmd.Flags().BoolVar(&topAll, "all", false, "Rank every fruit instead of listing top picks")
	topCmd.Flags().StringVar(&topSort, "sort", "best-now", "Ranking: best-now, best-all-time or alphabetical")
	topCmd.Flags().BoolVar(&topWeighted, "weighted", false, "Weigh recent ratings more")

	reportCmd.Flags().BoolVar(&reportRaw, "raw", false, "Print markdown without rendering")
	reportCmd.Flags().BoolVar(&reportWeighted, "weighted", false, "Weigh recent ratings more")

	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 5, "Maximum number of suggestions")
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	found := a.engine.History(logs, insights.HistoryQuery{
		Region:    a.region,
		Text:      strings.Join(args, " "),
		MinRating: historyMinRating,
	})
	out := cmd.OutOrStdout()
	if len(found) == 0 {
		fmt.Fprintln(out, ui.T(a.lang, ui.KeyNoLogs))
		return nil
	}
	fmt.Fprint(out, ui.HistoryTable(a.catalog, found, a.lang, -1).View(ui.PlainStyles()))
	fmt.Fprintln(out, ui.Tf(a.lang, ui.KeyEntries, "n", fmt.Sprint(len(found))))
	return nil
}

func runTop(cmd *cobra.Command, args []string) error {
	mode, err := insights.ParseSortMode(topSort)
	if err != nil {
		return err
	}

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

	opts := a.options(time.Now())
	opts.Sort = mode
	if topWeighted {
		opts.Weighting = insights.RecencyWeighted
	}
	view := a.engine.Compute(logs, opts)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Tf(a.lang, ui.KeyBestRatedIn, "region", view.Region))
	if topAll {
		if len(view.Aggregates) == 0 {
			fmt.Fprintln(out, ui.T(a.lang, ui.KeyNoLogs))
			return nil
		}
		fmt.Fprint(out, ui.RankedTable(view).View(ui.PlainStyles()))
		return nil
	}
	if len(view.TopPicks) == 0 {
		fmt.Fprintln(out, ui.T(a.lang, ui.KeyNoTopPicks))
		return nil
	}
	fmt.Fprint(out, ui.TopPicksTable(view, 0).View(ui.PlainStyles()))
	return nil
}

func runTrend(cmd *cobra.Command, args []string) error {
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

	fruit := strings.Join(args, " ")
	agg, ok := a.engine.Trend(logs, fruit, a.options(time.Now()))
	if !ok {
		return fmt.Errorf("no logs for %q in %s", fruit, a.region)
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.TrendTable(agg, a.lang).View(ui.PlainStyles()))
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
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

	opts := a.options(time.Now())
	if reportWeighted {
		opts.Weighting = insights.RecencyWeighted
	}
	md := ui.ReportMarkdown(a.engine.Compute(logs, opts))
	if reportRaw {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}
	rendered, err := ui.RenderMarkdown(md, 0)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	for _, s := range a.catalog.Suggest(strings.Join(args, " "), a.lang, suggestLimit) {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	return nil
}
