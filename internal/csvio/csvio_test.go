package csvio

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fruity/internal/catalog"
	"fruity/internal/remote"
	"fruity/internal/testutil"
	"fruity/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestParse(t *testing.T) {
	input := strings.Join([]string{
		"Date,Fruit,Origin,Rating,Region",
		"2024-06-01,Apple,Quebec,5,Quebec",
		"2024-06-02,Pêche,Niagara,4",
		"",
		"2024-06-03,Cherry,BC,9,Quebec",
		"2024-06-04,Mango,Mexico",
		"06/05/2024,Kiwi,NZ,3",
		"2024-06-06,Pear,\"Hood River, Oregon\",4,Ontario",
		"2024-06-07,Banana,Ecuador,four",
	}, "\n")

	rows, skipped, err := Parse(strings.NewReader(input), "Gaspésie")
	require.NoError(t, err)

	want := []types.NewLogEntry{
		{Date: "2024-06-01", Fruit: "Apple", Origin: "Quebec", Rating: 5, UserRegion: "Quebec"},
		{Date: "2024-06-02", Fruit: "Pêche", Origin: "Niagara", Rating: 4, UserRegion: "Gaspésie"},
		{Date: "2024-06-06", Fruit: "Pear", Origin: "Hood River, Oregon", Rating: 4, UserRegion: "Ontario"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	lines := make([]int, 0, len(skipped))
	for _, s := range skipped {
		lines = append(lines, s.Line)
	}
	assert.Equal(t, []int{5, 6, 7, 9}, lines)

	var verr *types.ValidationError
	require.True(t, errors.As(skipped[0].Err, &verr))
	assert.Equal(t, "rating", verr.Field)
	assert.Contains(t, skipped[1].Error(), "line 6")
}

func TestParse_WithoutHeader(t *testing.T) {
	rows, skipped, err := Parse(strings.NewReader("2024-01-01,Kiwi,NZ,2\n"), "")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, rows, 1)
	assert.Equal(t, types.DefaultRegion, rows[0].UserRegion)
}

func TestParse_CatalogCheck(t *testing.T) {
	input := "date,fruit,origin,rating\n2024-01-01,Durian,TH,4\n2024-01-02,bleuet,QC,5\n2024-01-03,Blueberry,QC,5\n"
	rows, skipped, err := ParseWith(strings.NewReader(input), Options{Catalog: catalog.Default()})
	require.NoError(t, err)
	assert.Len(t, rows, 2, "names from either language are accepted")
	require.Len(t, skipped, 1)
	assert.Equal(t, "Durian", skipped[0].Fruit)
	assert.ErrorIs(t, skipped[0].Err, catalog.ErrUnknownFruit)
}

func TestParse_BadQuoting(t *testing.T) {
	input := "2024-01-01,Kiwi,\"N\"Z,2\n2024-01-02,Kiwi,NZ,3\n"
	rows, skipped, err := Parse(strings.NewReader(input), "Quebec")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	require.Len(t, skipped, 1)
	assert.Equal(t, 1, skipped[0].Line)
}

func TestWriteThenParseRoundTrip(t *testing.T) {
	logs := []types.LogEntry{
		{ID: "1", Date: "2024-06-01", Fruit: "Apple", Origin: "Île d'Orléans, QC", Store: "Marché Jean-Talon", Rating: 5, UserRegion: "Quebec"},
		{ID: "2", Date: "2024-06-02", Fruit: "Melon d'eau", Origin: `The "big" farm`, Rating: 2},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, logs))
	assert.True(t, strings.HasPrefix(buf.String(), "Date,Fruit,Origin,Rating,Region,Store\n"))

	rows, skipped, err := Parse(&buf, "Ontario")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	want := []types.NewLogEntry{
		{Date: "2024-06-01", Fruit: "Apple", Origin: "Île d'Orléans, QC", Store: "Marché Jean-Talon", Rating: 5, UserRegion: "Quebec"},
		{Date: "2024-06-02", Fruit: "Melon d'eau", Origin: `The "big" farm`, Rating: 2, UserRegion: "Quebec"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// countingPoster fails rows whose fruit is in fail and tracks concurrency.
type countingPoster struct {
	fail     map[string]bool
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	mu       sync.Mutex
	posted   []string
}

func (p *countingPoster) CreateLog(ctx context.Context, e types.NewLogEntry) (types.LogEntry, error) {
	p.calls.Add(1)
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		m := p.maxSeen.Load()
		if n <= m || p.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if p.fail[e.Fruit] {
		return types.LogEntry{}, errors.New("backend said no")
	}
	p.mu.Lock()
	p.posted = append(p.posted, e.Fruit)
	p.mu.Unlock()
	return types.LogEntry{Fruit: e.Fruit}, nil
}

func TestImporter(t *testing.T) {
	rows := []types.NewLogEntry{
		{Fruit: "Apple", Rating: 5, Date: "2024-01-01"},
		{Fruit: "Kiwi", Rating: 3, Date: "2024-01-02"},
		{Fruit: "Pear", Rating: 4, Date: "2024-01-03"},
		{Fruit: "Lemon", Rating: 1, Date: "2024-01-04"},
		{Fruit: "Grape", Rating: 2, Date: "2024-01-05"},
	}
	p := &countingPoster{fail: map[string]bool{"Kiwi": true, "Lemon": true}}
	im := &Importer{Poster: p, Concurrency: 2}

	res := im.Import(context.Background(), rows)
	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, 3, res.Created)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, 2, res.Failed[0].Line)
	assert.Equal(t, 4, res.Failed[1].Line)
	assert.Equal(t, int32(5), p.calls.Load(), "each row is posted exactly once")
	assert.LessOrEqual(t, p.maxSeen.Load(), int32(2))
}

func TestImporter_RateLimited(t *testing.T) {
	rows := make([]types.NewLogEntry, 3)
	for i := range rows {
		rows[i] = types.NewLogEntry{Fruit: "Apple", Rating: 4, Date: "2024-01-01"}
	}
	p := &countingPoster{}
	// Burst 1 at 20/s: three rows need at least ~100ms.
	im := &Importer{Poster: p, Concurrency: 3, Limiter: rate.NewLimiter(20, 1)}

	start := time.Now()
	res := im.Import(context.Background(), rows)
	assert.Equal(t, 3, res.Created)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestImporter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &countingPoster{}
	res := (&Importer{Poster: p}).Import(ctx, []types.NewLogEntry{{Fruit: "Apple", Rating: 4, Date: "2024-01-01"}})
	assert.Equal(t, 0, res.Created)
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0].Err, context.Canceled)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestImporter_AgainstBackend(t *testing.T) {
	fb := testutil.NewFakeBackend()
	defer fb.Close()

	rows, _, err := Parse(strings.NewReader("2024-06-01,Apple,QC,5\n2024-06-02,Pear,QC,4\n"), "Quebec")
	require.NoError(t, err)

	res := (&Importer{Poster: remote.NewClient(fb.URL())}).Import(context.Background(), rows)
	assert.Equal(t, 2, res.Created)
	assert.Len(t, fb.Logs(), 2)
}

func TestImporter_TimeoutPerRow(t *testing.T) {
	fb := testutil.NewFakeBackend()
	defer fb.Close()
	fb.FailNext(http.MethodPost, testutil.Fault{Delay: 5 * time.Second})

	rows, _, err := Parse(strings.NewReader("2024-06-01,Apple,QC,5\n2024-06-02,Pear,QC,4\n"), "Quebec")
	require.NoError(t, err)

	im := &Importer{Poster: remote.NewClient(fb.URL()), Concurrency: 1, Timeout: 100 * time.Millisecond}
	start := time.Now()
	res := im.Import(context.Background(), rows)

	assert.Less(t, time.Since(start), 2*time.Second, "a hung POST must not hold its slot")
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Failed[0].Line)
	assert.ErrorIs(t, res.Failed[0].Err, context.DeadlineExceeded)
	assert.Equal(t, 2, fb.Requests(http.MethodPost), "the timed out row is not retried")
}
