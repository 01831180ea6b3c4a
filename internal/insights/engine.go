// Package insights turns a flat log collection into ranked, seasonal view
// models. Everything here is a pure function of its inputs: Compute can run on
// every render, concurrently, without caching or shared state.
package insights

import (
	"sort"
	"strings"
	"time"

	"fruity/internal/catalog"
	"fruity/internal/logging"
	"fruity/internal/types"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	// TopPickThreshold is the minimum current-month average for a top pick.
	TopPickThreshold = 3.5
	// SummaryTopN is how many top picks the summary view shows.
	SummaryTopN = 3

	minWeight     = 0.2
	decayPerYear  = 0.2
	daysPerYear   = 365.25
	monthsPerYear = 12
)

// MonthBucket is one calendar month of a seasonal series. Observed is false
// (and Avg zero) when no entry in any year falls in that month.
type MonthBucket struct {
	Month    time.Month
	Avg      float64
	Count    int
	Observed bool
}

// FruitAggregate holds the statistics for one fruit within one region.
type FruitAggregate struct {
	// Name is the canonical (English) catalog name, or the first spelling
	// seen for fruits missing from the catalog.
	Name string
	// DisplayName is Name localized to the requested language.
	DisplayName string

	AvgCurrentMonth   float64
	AvgAllTime        float64
	Count             int
	CurrentMonthCount int
	Seasonal          [monthsPerYear]MonthBucket
}

// View is the result of one aggregation pass.
type View struct {
	Region    string
	Language  types.Language
	Reference time.Time
	Weighting Weighting
	Sort      SortMode

	// Entries is the number of logs in the region.
	Entries int
	// Aggregates is every fruit with at least one entry, ordered by Sort.
	Aggregates []FruitAggregate
	// TopPicks holds every qualifying fruit, best first.
	TopPicks []FruitAggregate
}

// Top returns at most n top picks.
func (v View) Top(n int) []FruitAggregate {
	if n < 0 {
		n = 0
	}
	if n > len(v.TopPicks) {
		n = len(v.TopPicks)
	}
	return v.TopPicks[:n]
}

// Find returns the aggregate whose canonical or display name equals name.
func (v View) Find(name string) (FruitAggregate, bool) {
	key := catalog.Fold(name)
	for _, a := range v.Aggregates {
		if catalog.Fold(a.Name) == key || catalog.Fold(a.DisplayName) == key {
			return a, true
		}
	}
	return FruitAggregate{}, false
}

// Engine aggregates logs using a catalog for name resolution.
type Engine struct {
	Catalog *catalog.Catalog
}

// NewEngine returns an engine over c, or over the default catalog when c is nil.
func NewEngine(c *catalog.Catalog) *Engine {
	if c == nil {
		c = catalog.Default()
	}
	return &Engine{Catalog: c}
}

// mean accumulates a (possibly weighted) average.
type mean struct {
	sum    float64
	weight float64
	count  int
}

func (m *mean) add(rating int, w float64) {
	m.sum += float64(rating) * w
	m.weight += w
	m.count++
}

func (m mean) value() float64 {
	if m.count == 0 || m.weight == 0 {
		return 0
	}
	return m.sum / m.weight
}

type group struct {
	name     string
	all      mean
	current  mean
	seasonal [monthsPerYear]mean
}

// groupKey is the case- and diacritic-insensitive identity of a fruit.
// Catalog fruits group by id so "Pomme" and "apple" land together.
func (e *Engine) groupKey(fruit string) (key, name string) {
	if f, ok := e.Catalog.Lookup(fruit); ok {
		return "id:" + f.ID, f.Canonical()
	}
	trimmed := strings.TrimSpace(fruit)
	return "text:" + catalog.Fold(trimmed), trimmed
}

// Compute runs the aggregation for opts.Region.
func (e *Engine) Compute(logs []types.LogEntry, opts Options) View {
	opts = opts.normalized()
	refMonth := opts.Reference.Month()

	groups := make(map[string]*group)
	var order []string
	entries := 0

	for _, l := range logs {
		if strings.TrimSpace(l.RegionOr(types.DefaultRegion)) != opts.Region {
			continue
		}
		if l.Rating < types.MinRating || l.Rating > types.MaxRating {
			logging.InsightsDebug("skipping log %s with out-of-range rating %d", l.ID, l.Rating)
			continue
		}
		date := l.DateObj
		if date.IsZero() {
			// Tolerate callers that never hydrated the collection.
			date, _ = types.ParseDate(l.Date)
		}

		key, name := e.groupKey(l.Fruit)
		if key == "text:" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{name: name}
			groups[key] = g
			order = append(order, key)
		}
		entries++

		w := weight(opts.Weighting, date, opts.Reference)
		g.all.add(l.Rating, w)
		if date.IsZero() {
			continue
		}
		g.seasonal[date.Month()-1].add(l.Rating, w)
		if date.Month() == refMonth {
			g.current.add(l.Rating, w)
		}
	}

	view := View{
		Region:     opts.Region,
		Language:   opts.Language,
		Reference:  opts.Reference,
		Weighting:  opts.Weighting,
		Sort:       opts.Sort,
		Entries:    entries,
		Aggregates: make([]FruitAggregate, 0, len(order)),
	}
	for _, key := range order {
		view.Aggregates = append(view.Aggregates, e.aggregate(groups[key], opts.Language))
	}

	for _, a := range view.Aggregates {
		if a.CurrentMonthCount > 0 && a.AvgCurrentMonth >= TopPickThreshold {
			view.TopPicks = append(view.TopPicks, a)
		}
	}
	sort.SliceStable(view.TopPicks, func(i, j int) bool {
		return lessBestNow(view.TopPicks[i], view.TopPicks[j])
	})

	rank(view.Aggregates, opts.Sort, opts.Language)

	logging.InsightsDebug("computed %d aggregates (%d top picks) from %d/%d logs in %s",
		len(view.Aggregates), len(view.TopPicks), entries, len(logs), opts.Region)
	return view
}

// Trend returns the aggregate (and its seasonal series) for one fruit, which
// may be spelled in either language.
func (e *Engine) Trend(logs []types.LogEntry, fruit string, opts Options) (FruitAggregate, bool) {
	want, _ := e.groupKey(fruit)
	view := e.Compute(logs, opts)
	for _, a := range view.Aggregates {
		if key, _ := e.groupKey(a.Name); key == want {
			return a, true
		}
	}
	return FruitAggregate{}, false
}

func (e *Engine) aggregate(g *group, lang types.Language) FruitAggregate {
	a := FruitAggregate{
		Name:              g.name,
		DisplayName:       e.Catalog.Localize(g.name, lang),
		AvgAllTime:        g.all.value(),
		Count:             g.all.count,
		AvgCurrentMonth:   g.current.value(),
		CurrentMonthCount: g.current.count,
	}
	for i, m := range g.seasonal {
		a.Seasonal[i] = MonthBucket{
			Month:    time.Month(i + 1),
			Avg:      m.value(),
			Count:    m.count,
			Observed: m.count > 0,
		}
	}
	return a
}

// weight returns the contribution of one rating. Undated entries and
// entries dated after the reference carry full weight.
func weight(mode Weighting, date, ref time.Time) float64 {
	if mode != RecencyWeighted || date.IsZero() {
		return 1
	}
	years := ref.Sub(date).Hours() / 24 / daysPerYear
	if years < 0 {
		years = 0
	}
	w := 1 - decayPerYear*years
	if w < minWeight {
		return minWeight
	}
	return w
}

func lessBestNow(a, b FruitAggregate) bool {
	if a.AvgCurrentMonth != b.AvgCurrentMonth {
		return a.AvgCurrentMonth > b.AvgCurrentMonth
	}
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return lessName(a, b)
}

func lessBestAllTime(a, b FruitAggregate) bool {
	if a.AvgAllTime != b.AvgAllTime {
		return a.AvgAllTime > b.AvgAllTime
	}
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return lessName(a, b)
}

func lessName(a, b FruitAggregate) bool {
	fa, fb := catalog.Fold(a.DisplayName), catalog.Fold(b.DisplayName)
	if fa != fb {
		return fa < fb
	}
	return a.Name < b.Name
}

func rank(aggs []FruitAggregate, mode SortMode, lang types.Language) {
	switch mode {
	case BestAllTime:
		sort.SliceStable(aggs, func(i, j int) bool { return lessBestAllTime(aggs[i], aggs[j]) })
	case Alphabetical:
		// Collators are not safe for concurrent use; one per pass.
		col := collate.New(collationTag(lang), collate.IgnoreCase)
		sort.SliceStable(aggs, func(i, j int) bool {
			if c := col.CompareString(aggs[i].DisplayName, aggs[j].DisplayName); c != 0 {
				return c < 0
			}
			return aggs[i].Name < aggs[j].Name
		})
	default:
		sort.SliceStable(aggs, func(i, j int) bool { return lessBestNow(aggs[i], aggs[j]) })
	}
}

func collationTag(lang types.Language) language.Tag {
	if lang == types.English {
		return language.English
	}
	return language.French
}
