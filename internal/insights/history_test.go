package insights

import (
	"testing"

	"fruity/internal/types"

	"github.com/stretchr/testify/assert"
)

func ids(logs []types.LogEntry) []types.LogID {
	out := make([]types.LogID, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.ID)
	}
	return out
}

func TestHistory(t *testing.T) {
	logs := []types.LogEntry{
		entry("1", "Apple", 5, "2024-06-03", "Quebec"),
		{ID: "2", Fruit: "Pêche", Origin: "Niagara", Store: "IGA", Rating: 3, Date: "2024-08-01"},
		entry("3", "Cherry", 2, "", "Quebec"),
		entry("4", "Mango", 4, "2024-07-11", "Ontario"),
		entry("5", "Pomme", 4, "2023-10-02", "Quebec"),
	}
	e := NewEngine(nil)

	tests := []struct {
		name  string
		query HistoryQuery
		want  []types.LogID
	}{
		{"everything newest first, undated last", HistoryQuery{}, []types.LogID{"2", "4", "1", "5", "3"}},
		{"region", HistoryQuery{Region: "Quebec"}, []types.LogID{"2", "1", "5", "3"}},
		{"fruit in the other language", HistoryQuery{Text: "pomme"}, []types.LogID{"1", "5"}},
		{"accent-insensitive", HistoryQuery{Text: "PECHE"}, []types.LogID{"2"}},
		{"origin", HistoryQuery{Text: "niag"}, []types.LogID{"2"}},
		{"store", HistoryQuery{Text: "iga"}, []types.LogID{"2"}},
		{"min rating", HistoryQuery{Region: "Quebec", MinRating: 4}, []types.LogID{"1", "5"}},
		{"no match", HistoryQuery{Text: "durian"}, []types.LogID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(e.History(logs, tt.query)))
		})
	}
}

func TestHistory_HydratesEntries(t *testing.T) {
	logs := []types.LogEntry{{ID: "1", Fruit: "Kiwi", Rating: 4, Date: "2024-02-02"}}
	out := NewEngine(nil).History(logs, HistoryQuery{})
	if assert.Len(t, out, 1) {
		assert.True(t, out[0].HasDate())
	}
	assert.False(t, logs[0].HasDate(), "input must not be modified")
}
