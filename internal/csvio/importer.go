package csvio

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fruity/internal/logging"
	"fruity/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Poster creates one entry on the backend. *remote.Client satisfies it.
type Poster interface {
	CreateLog(ctx context.Context, entry types.NewLogEntry) (types.LogEntry, error)
}

// DefaultConcurrency bounds in-flight POSTs when Importer.Concurrency is unset.
const DefaultConcurrency = 4

// Importer posts parsed rows. Every row is sent at most once: a failed row is
// reported, never retried, so a partial import cannot create duplicates.
type Importer struct {
	Poster      Poster
	Concurrency int
	// Limiter paces requests; nil means unpaced.
	Limiter *rate.Limiter
	// Timeout bounds each POST; zero leaves it to the caller's context.
	Timeout time.Duration
}

// ImportResult summarizes one import batch.
type ImportResult struct {
	BatchID string
	Created int
	Failed  []RowError
}

// Import posts rows and waits for all of them. Cancelling ctx stops rows that
// have not been sent yet; they are reported as failed.
func (im *Importer) Import(ctx context.Context, rows []types.NewLogEntry) ImportResult {
	res := ImportResult{BatchID: uuid.NewString()}
	if len(rows) == 0 {
		return res
	}

	limit := im.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	logging.CSV("batch %s: importing %d rows (concurrency %d)", res.BatchID, len(rows), limit)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			err := im.post(gctx, row)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logging.CSVWarn("batch %s: row %d (%s) failed: %v", res.BatchID, i+1, row.Fruit, err)
				res.Failed = append(res.Failed, RowError{Line: i + 1, Fruit: row.Fruit, Err: err})
				return nil
			}
			res.Created++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(res.Failed, func(a, b int) bool { return res.Failed[a].Line < res.Failed[b].Line })
	logging.CSV("batch %s: created %d, failed %d", res.BatchID, res.Created, len(res.Failed))
	return res
}

func (im *Importer) post(ctx context.Context, row types.NewLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("not sent: %w", err)
	}
	if im.Limiter != nil {
		if err := im.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("not sent: %w", err)
		}
	}
	if im.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, im.Timeout)
		defer cancel()
	}
	_, err := im.Poster.CreateLog(ctx, row)
	return err
}
