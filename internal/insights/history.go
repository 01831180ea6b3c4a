package insights

import (
	"sort"
	"strings"

	"fruity/internal/catalog"
	"fruity/internal/types"
)

// HistoryQuery selects entries for the searchable history.
type HistoryQuery struct {
	// Region restricts to one region; empty means every region.
	Region string
	// Text matches (case- and diacritic-insensitively) a substring of the
	// fruit in either language, the origin or the store.
	Text string
	// MinRating drops entries rated below it; zero disables the filter.
	MinRating int
}

// History returns matching entries newest first. Undated entries sort last;
// ties keep collection order.
func (e *Engine) History(logs []types.LogEntry, q HistoryQuery) []types.LogEntry {
	region := strings.TrimSpace(q.Region)
	needle := catalog.Fold(q.Text)

	var out []types.LogEntry
	for _, l := range logs {
		if region != "" && strings.TrimSpace(l.RegionOr(types.DefaultRegion)) != region {
			continue
		}
		if q.MinRating > 0 && l.Rating < q.MinRating {
			continue
		}
		if needle != "" && !e.matches(l, needle) {
			continue
		}
		if l.DateObj.IsZero() {
			l.Hydrate()
		}
		out = append(out, l)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DateObj, out[j].DateObj
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.After(b)
	})
	return out
}

func (e *Engine) matches(l types.LogEntry, needle string) bool {
	fields := []string{l.Fruit, l.Origin, l.Store}
	if f, ok := e.Catalog.Lookup(l.Fruit); ok {
		for _, lang := range types.Languages {
			fields = append(fields, f.Name(lang))
		}
	}
	for _, s := range fields {
		if strings.Contains(catalog.Fold(s), needle) {
			return true
		}
	}
	return false
}
