package ui

import (
	"strings"

	"fruity/internal/insights"
	"fruity/internal/types"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// gap marks a month without observations.
const gap = '·'

// Sparkline draws the twelve monthly averages of a seasonal series, January
// first. Ratings 1..5 map onto the eight block heights.
func Sparkline(series [12]insights.MonthBucket) string {
	var sb strings.Builder
	for _, b := range series {
		sb.WriteRune(sparkRune(b))
	}
	return sb.String()
}

func sparkRune(b insights.MonthBucket) rune {
	if !b.Observed {
		return gap
	}
	pos := (b.Avg - types.MinRating) / (types.MaxRating - types.MinRating)
	idx := int(pos*float64(len(sparkLevels)-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sparkLevels) {
		idx = len(sparkLevels) - 1
	}
	return sparkLevels[idx]
}
