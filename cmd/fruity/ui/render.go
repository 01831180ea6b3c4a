package ui

import (
	"fmt"
	"strconv"
	"strings"

	"fruity/internal/catalog"
	"fruity/internal/insights"
	"fruity/internal/types"

	"github.com/charmbracelet/glamour"
)

// FormatAvg prints an average with two decimals, or a dash when count is 0.
func FormatAvg(avg float64, count int) string {
	if count == 0 {
		return "–"
	}
	return strconv.FormatFloat(avg, 'f', 2, 64)
}

// Stars renders a 1..5 rating.
func Stars(rating int) string {
	if rating < types.MinRating || rating > types.MaxRating {
		return strconv.Itoa(rating)
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", types.MaxRating-rating)
}

// DisplayFruit shows a logged fruit name in lang when the catalog knows it.
func DisplayFruit(c *catalog.Catalog, name string, lang types.Language) string {
	if c != nil {
		if f, ok := c.Lookup(name); ok {
			return f.Name(lang)
		}
	}
	return name
}

// TopPicksTable lists at most n top picks (all of them when n <= 0).
func TopPicksTable(v insights.View, n int) *Table {
	picks := v.TopPicks
	if n > 0 {
		picks = v.Top(n)
	}
	lang := v.Language
	t := NewTable(T(lang, KeyTopPicks), "#", T(lang, KeyColFruit), T(lang, KeyColNow), T(lang, KeyColCount)).AlignRight(0, 2, 3)
	for i, a := range picks {
		t.AddRow(strconv.Itoa(i+1), a.DisplayName, FormatAvg(a.AvgCurrentMonth, a.CurrentMonthCount), strconv.Itoa(a.CurrentMonthCount))
	}
	return t
}

// RankedTable lists every aggregate in the view's sort order.
func RankedTable(v insights.View) *Table {
	lang := v.Language
	t := NewTable(fmt.Sprintf("%s · %s: %s", T(lang, KeyAllFruits), T(lang, KeySort), v.Sort),
		T(lang, KeyColFruit), T(lang, KeyColNow), T(lang, KeyColAllTime), T(lang, KeyColCount), T(lang, KeyColSeason)).AlignRight(1, 2, 3)
	for _, a := range v.Aggregates {
		t.AddRow(a.DisplayName,
			FormatAvg(a.AvgCurrentMonth, a.CurrentMonthCount),
			FormatAvg(a.AvgAllTime, a.Count),
			strconv.Itoa(a.Count),
			Sparkline(a.Seasonal))
	}
	return t
}

// HistoryTable lists log entries in the given order. highlight selects a row
// (-1 for none).
func HistoryTable(c *catalog.Catalog, logs []types.LogEntry, lang types.Language, highlight int) *Table {
	t := NewTable(T(lang, KeyHistory), "ID", T(lang, KeyColDate), T(lang, KeyColFruit), T(lang, KeyColRating),
		T(lang, KeyColOrigin), T(lang, KeyColStore), T(lang, KeyColRegion))
	for _, l := range logs {
		t.AddRow(l.ID.String(), l.Date, DisplayFruit(c, l.Fruit, lang), Stars(l.Rating), l.Origin, l.Store, l.UserRegion)
	}
	t.Highlight = highlight
	return t
}

// TrendTable lists the twelve months of one fruit's seasonal series.
func TrendTable(a insights.FruitAggregate, lang types.Language) *Table {
	t := NewTable(fmt.Sprintf("%s  %s", a.DisplayName, Sparkline(a.Seasonal)),
		T(lang, KeyColMonth), T(lang, KeyColRating), T(lang, KeyColCount), "").AlignRight(1, 2)
	for _, b := range a.Seasonal {
		t.AddRow(MonthName(lang, int(b.Month)), FormatAvg(b.Avg, b.Count), strconv.Itoa(b.Count), string(sparkRune(b)))
	}
	return t
}

// ReportMarkdown builds the insight report for one view.
func ReportMarkdown(v insights.View) string {
	lang := v.Language
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", Tf(lang, KeyReportTitle, "region", v.Region))
	fmt.Fprintf(&sb, "_%s_\n\n", Tf(lang, KeyReportGenerated,
		"date", types.FormatDate(v.Reference), "n", strconv.Itoa(v.Entries)))

	if len(v.Aggregates) == 0 {
		sb.WriteString(T(lang, KeyReportNoData) + "\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "## %s\n\n", T(lang, KeyReportTopPicks))
	if len(v.TopPicks) == 0 {
		sb.WriteString(T(lang, KeyNoTopPicks) + "\n\n")
	}
	for i, a := range v.Top(insights.SummaryTopN) {
		fmt.Fprintf(&sb, "%d. **%s** %s (%d)\n", i+1, a.DisplayName, FormatAvg(a.AvgCurrentMonth, a.CurrentMonthCount), a.CurrentMonthCount)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## %s\n\n", T(lang, KeyReportRanking))
	fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n|---|---:|---:|---:|\n",
		T(lang, KeyColFruit), T(lang, KeyColNow), T(lang, KeyColAllTime), T(lang, KeyColCount))
	for _, a := range v.Aggregates {
		fmt.Fprintf(&sb, "| %s | %s | %s | %d |\n", escapeCell(a.DisplayName),
			FormatAvg(a.AvgCurrentMonth, a.CurrentMonthCount), FormatAvg(a.AvgAllTime, a.Count), a.Count)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## %s\n\n", T(lang, KeyReportSeasons))
	for _, a := range v.Aggregates {
		fmt.Fprintf(&sb, "- %s `%s`\n", a.DisplayName, Sparkline(a.Seasonal))
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderMarkdown renders md for the terminal. width <= 0 means 80 columns.
func RenderMarkdown(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
