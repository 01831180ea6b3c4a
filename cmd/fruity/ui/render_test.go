package ui

import (
	"strings"
	"testing"
	"time"

	"fruity/internal/catalog"
	"fruity/internal/insights"
	"fruity/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestT_FallsBack(t *testing.T) {
	assert.Equal(t, "Atelier", T(types.French, KeyTabShed))
	assert.Equal(t, "Shed", T(types.English, KeyTabShed))
	assert.Equal(t, "Shed", T(types.Language("de"), KeyTabShed))
	assert.Equal(t, "no.such.key", T(types.English, Key("no.such.key")))
	assert.Equal(t, "Le top en Gaspésie.", Tf(types.French, KeyBestRatedIn, "region", "Gaspésie"))
}

func TestStrings_EveryKeyTranslated(t *testing.T) {
	en := catalogStrings[types.English]
	fr := catalogStrings[types.French]
	for k := range en {
		assert.Contains(t, fr, k, "missing French string")
	}
	for k := range fr {
		assert.Contains(t, en, k, "missing English string")
	}
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "Jan", MonthName(types.English, 1))
	assert.Equal(t, "déc", MonthName(types.French, 12))
	assert.Equal(t, "?", MonthName(types.English, 13))
}

func TestSparkline(t *testing.T) {
	var series [12]insights.MonthBucket
	for i := range series {
		series[i].Month = time.Month(i + 1)
	}
	series[0] = insights.MonthBucket{Month: time.January, Avg: 1, Count: 1, Observed: true}
	series[5] = insights.MonthBucket{Month: time.June, Avg: 5, Count: 2, Observed: true}
	series[6] = insights.MonthBucket{Month: time.July, Avg: 3, Count: 1, Observed: true}

	got := Sparkline(series)
	assert.Equal(t, 12, len([]rune(got)))
	assert.Equal(t, "▁····█▅·····", got)
}

func TestStarsAndAverages(t *testing.T) {
	assert.Equal(t, "★★★☆☆", Stars(3))
	assert.Equal(t, "9", Stars(9))
	assert.Equal(t, "3.50", FormatAvg(3.5, 2))
	assert.Equal(t, "–", FormatAvg(0, 0))
}

func TestTable(t *testing.T) {
	table := NewTable("Fruits", "Name", "Avg").AlignRight(1)
	assert.Equal(t, "", table.View(PlainStyles()))

	table.AddRow("Pomme", "4.50")
	table.AddRow("Melon d'eau")
	view := table.View(PlainStyles())

	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Fruits", lines[0])
	assert.Contains(t, lines[1], "Name")
	assert.Contains(t, lines[3], "Pomme")
	assert.True(t, strings.HasSuffix(strings.TrimRight(lines[3], " "), "4.50"))
	assert.Contains(t, lines[4], "Melon d'eau")
}

func reportLogs() []types.LogEntry {
	return types.HydrateAll([]types.LogEntry{
		{ID: "1", Fruit: "Apple", Rating: 5, Date: "2024-06-02", UserRegion: "Quebec"},
		{ID: "2", Fruit: "Pomme", Rating: 4, Date: "2023-06-20", UserRegion: "Quebec"},
		{ID: "3", Fruit: "Banana", Rating: 2, Date: "2024-01-10", UserRegion: "Quebec"},
	})
}

func TestReportMarkdown(t *testing.T) {
	eng := insights.NewEngine(catalog.Default())
	v := eng.Compute(reportLogs(), insights.Options{Region: "Quebec", Language: types.English, Reference: today})

	md := ReportMarkdown(v)
	assert.Contains(t, md, "# Fruit report for Quebec")
	assert.Contains(t, md, "Generated 2024-06-15 from 3 logs.")
	assert.Contains(t, md, "1. **Apple** 4.50 (2)")
	assert.Contains(t, md, "| Apple | 4.50 | 4.50 | 2 |")
	assert.Contains(t, md, "| Banana | – | 2.00 | 1 |")

	empty := eng.Compute(nil, insights.Options{Region: "Yukon", Language: types.French, Reference: today})
	assert.Contains(t, ReportMarkdown(empty), "Aucune note pour cette région.")

	out, err := RenderMarkdown(md, 0)
	require.NoError(t, err)
	assert.Contains(t, out, "Apple")
}

func TestRankedAndTopTables(t *testing.T) {
	eng := insights.NewEngine(nil)
	v := eng.Compute(reportLogs(), insights.Options{Region: "Quebec", Language: types.French, Reference: today})

	top := TopPicksTable(v, insights.SummaryTopN)
	require.Equal(t, 1, top.Len())
	assert.Equal(t, "Pomme", top.Rows[0][1])

	ranked := RankedTable(v)
	var names []string
	for _, row := range ranked.Rows {
		names = append(names, row[0])
	}
	if diff := cmp.Diff([]string{"Pomme", "Banane"}, names); diff != "" {
		t.Errorf("ranked names mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryTableLocalizes(t *testing.T) {
	table := HistoryTable(catalog.Default(), reportLogs(), types.French, 1)
	assert.Equal(t, "Pomme", table.Rows[0][2])
	assert.Equal(t, "Banane", table.Rows[2][2])
	assert.Equal(t, 1, table.Highlight)
}

func TestTrendTable(t *testing.T) {
	eng := insights.NewEngine(nil)
	agg, ok := eng.Trend(reportLogs(), "pomme", insights.Options{Region: "Quebec", Language: types.English, Reference: today})
	require.True(t, ok)

	table := TrendTable(agg, types.English)
	require.Equal(t, 12, table.Len())
	assert.Equal(t, []string{"Jun", "4.50", "2", "▇"}, table.Rows[5])
	assert.Equal(t, "–", table.Rows[0][1])
}
