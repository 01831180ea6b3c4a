package insights

import (
	"fmt"
	"strings"
	"time"

	"fruity/internal/types"
)

// Weighting selects how individual ratings contribute to an average.
type Weighting int

const (
	// Unweighted is the plain arithmetic mean.
	Unweighted Weighting = iota
	// RecencyWeighted scales each rating by clamp(1 - 0.2*years, 0.2, 1),
	// years being the entry's age relative to the reference date.
	RecencyWeighted
)

func (w Weighting) String() string {
	switch w {
	case Unweighted:
		return "unweighted"
	case RecencyWeighted:
		return "recency"
	}
	return fmt.Sprintf("weighting(%d)", int(w))
}

// SortMode orders the full ranked list.
type SortMode int

const (
	BestNow SortMode = iota
	BestAllTime
	Alphabetical
)

// SortModes lists every mode in cycling order.
var SortModes = []SortMode{BestNow, BestAllTime, Alphabetical}

func (s SortMode) String() string {
	switch s {
	case BestNow:
		return "best-now"
	case BestAllTime:
		return "best-all-time"
	case Alphabetical:
		return "alphabetical"
	}
	return fmt.Sprintf("sort(%d)", int(s))
}

// Next returns the following mode, wrapping around.
func (s SortMode) Next() SortMode {
	return SortModes[(int(s)+1)%len(SortModes)]
}

// ParseSortMode accepts the String forms plus a few short aliases.
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best-now", "bestnow", "now":
		return BestNow, nil
	case "best-all-time", "bestalltime", "all-time", "all":
		return BestAllTime, nil
	case "alphabetical", "alpha", "az", "a-z":
		return Alphabetical, nil
	}
	return BestNow, fmt.Errorf("unknown sort mode %q (valid: best-now, best-all-time, alphabetical)", s)
}

// Options are the explicit inputs to one aggregation pass. Nothing is read
// from ambient state.
type Options struct {
	Region    string
	Language  types.Language
	Reference time.Time
	Weighting Weighting
	Sort      SortMode
}

func (o Options) normalized() Options {
	o.Region = strings.TrimSpace(o.Region)
	if o.Region == "" {
		o.Region = types.DefaultRegion
	}
	if !o.Language.Valid() {
		o.Language = types.DefaultLanguage
	}
	if o.Reference.IsZero() {
		o.Reference = time.Now()
	}
	// Entry dates are calendar dates, so keep the reference's own calendar day.
	y, mo, d := o.Reference.Date()
	o.Reference = time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return o
}
