package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fruity/internal/logging"
	"fruity/internal/types"
)

// State is the phase of a load cycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateWaking
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateWaking:
		return "waking"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the cycle has finished.
func (s State) Terminal() bool { return s == StateSuccess || s == StateFailed }

// Snapshot is the observable state of the controller. Logs hold the last
// successfully loaded collection and survive a failed reload of the same
// endpoint.
type Snapshot struct {
	State      State
	Logs       []types.LogEntry
	Waking     bool
	Err        error
	Retries    int
	Generation uint64
	Endpoint   string
	UpdatedAt  time.Time
}

// Misconfigured reports whether the last cycle ended on a 404.
func (s Snapshot) Misconfigured() bool { return errors.Is(s.Err, ErrMisconfigured) }

// Failed reports whether the last cycle ended in an error.
func (s Snapshot) Failed() bool { return s.State == StateFailed }

func (s Snapshot) clone() Snapshot {
	if s.Logs != nil {
		s.Logs = append([]types.LogEntry(nil), s.Logs...)
	}
	return s
}

// ControllerConfig tunes the load cycle.
type ControllerConfig struct {
	RequestTimeout  time.Duration // per GET attempt
	RetryDelay      time.Duration // pause in WAKING before the next attempt
	MaxRetries      int           // retries after the first attempt
	MutationTimeout time.Duration // per POST/DELETE
}

// DefaultControllerConfig matches the hosted backend's cold-start profile.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		RequestTimeout:  15 * time.Second,
		RetryDelay:      4 * time.Second,
		MaxRetries:      2,
		MutationTimeout: 15 * time.Second,
	}
}

func (c ControllerConfig) withDefaults() ControllerConfig {
	d := DefaultControllerConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MutationTimeout <= 0 {
		c.MutationTimeout = d.MutationTimeout
	}
	return c
}

// Option customizes a Controller.
type Option func(*Controller)

// WithMetrics records fetch, cycle and mutation metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClientOptions passes options to every Client the controller builds.
func WithClientOptions(opts ...ClientOption) Option {
	return func(c *Controller) { c.clientOpts = append(c.clientOpts, opts...) }
}

// Controller owns the load cycle against one endpoint at a time. Every cycle
// gets a generation number; results from a cycle that is no longer current
// are dropped, so a reconfiguration can never be overwritten by the cycle it
// replaced.
type Controller struct {
	cfg        ControllerConfig
	metrics    *Metrics
	clientOpts []ClientOption
	now        func() time.Time

	// notifyMu serializes commit+deliver so subscribers observe snapshots in
	// commit order. Lock order: notifyMu, then mu.
	notifyMu sync.Mutex

	mu      sync.Mutex
	client  *Client
	gen     uint64
	cancel  context.CancelFunc
	snap    Snapshot
	subs    map[int]func(Snapshot)
	nextSub int
	closed  bool

	wg sync.WaitGroup
}

// NewController creates an idle controller for endpoint.
func NewController(endpoint string, cfg ControllerConfig, opts ...Option) *Controller {
	c := &Controller{
		cfg:  cfg.withDefaults(),
		now:  time.Now,
		subs: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = c.newClient(endpoint)
	c.snap = Snapshot{State: StateIdle, Endpoint: c.client.BaseURL()}
	return c
}

func (c *Controller) newClient(endpoint string) *Client {
	opts := append([]ClientOption{WithClientMetrics(c.metrics)}, c.clientOpts...)
	return NewClient(endpoint, opts...)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.clone()
}

// Endpoint returns the base URL in use.
func (c *Controller) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.BaseURL()
}

// Subscribe registers fn for every committed snapshot and returns a function
// that removes it. fn runs synchronously on the committing goroutine and must
// not block or call Load, Start, Reconfigure, Create or Delete.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Load runs a full cycle and blocks until it reaches SUCCESS or FAILED, is
// superseded, or ctx ends. Any cycle already in flight is cancelled.
func (c *Controller) Load(ctx context.Context) Snapshot {
	gen, cycleCtx, client, ok := c.begin(ctx, nil)
	if !ok {
		return c.Snapshot()
	}
	return c.run(cycleCtx, gen, client)
}

// Start runs a full cycle in the background and returns its generation.
func (c *Controller) Start(ctx context.Context) uint64 {
	gen, cycleCtx, client, ok := c.begin(ctx, nil)
	if !ok {
		return gen
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(cycleCtx, gen, client)
	}()
	return gen
}

// Reconfigure switches to a new endpoint. The running cycle (including any
// pending retry) is cancelled, loaded logs are cleared and a fresh cycle
// starts in the background.
func (c *Controller) Reconfigure(ctx context.Context, endpoint string) uint64 {
	gen, cycleCtx, client, ok := c.begin(ctx, &endpoint)
	if !ok {
		return gen
	}
	logging.Sync("endpoint reconfigured to %s (generation %d)", client.BaseURL(), gen)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(cycleCtx, gen, client)
	}()
	return gen
}

// Close cancels the running cycle and waits for background work to stop.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// Create posts a new entry once. On failure it returns an error wrapping
// ErrConnectivity and nothing is retried. On success a full load cycle runs
// before Create returns; its outcome is available from Snapshot.
func (c *Controller) Create(ctx context.Context, entry types.NewLogEntry) (types.LogEntry, error) {
	client := c.currentClient()
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.MutationTimeout)
	created, err := client.CreateLog(reqCtx, entry)
	cancel()
	if err != nil {
		logging.SyncWarn("create %q failed: %v", entry.Fruit, err)
		return types.LogEntry{}, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	logging.Sync("created %q (id %s), reloading", entry.Fruit, created.ID)
	c.Load(ctx)
	return created, nil
}

// Delete removes an entry once, with the same failure and reload rules as
// Create.
func (c *Controller) Delete(ctx context.Context, id types.LogID) error {
	client := c.currentClient()
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.MutationTimeout)
	err := client.DeleteLog(reqCtx, id)
	cancel()
	if err != nil {
		logging.SyncWarn("delete %s failed: %v", id, err)
		return fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	logging.Sync("deleted %s, reloading", id)
	c.Load(ctx)
	return nil
}

// Client returns the REST client for the current endpoint, for one-shot
// requests that should not go through the load cycle (bulk imports).
func (c *Controller) Client() *Client { return c.currentClient() }

func (c *Controller) currentClient() *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// begin cancels the previous cycle, bumps the generation and commits an IDLE
// snapshot for the new one.
func (c *Controller) begin(parent context.Context, endpoint *string) (uint64, context.Context, *Client, bool) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		gen := c.gen
		c.mu.Unlock()
		return gen, nil, nil, false
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel

	next := Snapshot{State: StateIdle, Generation: gen, Logs: c.snap.Logs}
	if endpoint != nil {
		c.client = c.newClient(*endpoint)
		next.Logs = nil
	}
	next.Endpoint = c.client.BaseURL()
	next.UpdatedAt = c.now()
	c.snap = next
	client := c.client
	snap, subs := c.snap.clone(), c.subscribers()
	c.mu.Unlock()

	deliver(subs, snap)
	return gen, ctx, client, true
}

// commit applies mutate to the snapshot if gen is still current.
func (c *Controller) commit(gen uint64, mutate func(*Snapshot)) (Snapshot, bool) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		logging.SyncDebug("dropping stale result from generation %d", gen)
		return Snapshot{}, false
	}
	mutate(&c.snap)
	c.snap.UpdatedAt = c.now()
	snap, subs := c.snap.clone(), c.subscribers()
	c.mu.Unlock()

	deliver(subs, snap)
	return snap, true
}

func (c *Controller) subscribers() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(c.subs))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func deliver(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

// run drives one cycle: LOADING, then SUCCESS, FAILED or WAKING and back.
func (c *Controller) run(ctx context.Context, gen uint64, client *Client) Snapshot {
	timer := logging.StartTimer(logging.CategorySync, fmt.Sprintf("load cycle %d", gen))
	defer timer.Stop()

	finish := func(mutate func(*Snapshot)) Snapshot {
		snap, ok := c.commit(gen, mutate)
		if !ok {
			return c.Snapshot()
		}
		c.metrics.observeCycle(snap.State)
		return snap
	}

	for retries := 0; ; retries++ {
		if _, ok := c.commit(gen, func(s *Snapshot) {
			s.State = StateLoading
			s.Retries = retries
			if retries == 0 {
				s.Err = nil
				s.Waking = false
			}
		}); !ok {
			return c.Snapshot()
		}

		logging.SyncDebug("generation %d attempt %d: GET %s/api/logs", gen, retries+1, client.BaseURL())
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		logs, err := client.FetchLogs(attemptCtx)
		cancel()

		if ctx.Err() != nil {
			return finish(func(s *Snapshot) {
				s.State = StateFailed
				s.Waking = false
				s.Err = fmt.Errorf("load cancelled: %w", ctx.Err())
			})
		}

		if err == nil {
			logging.Sync("loaded %d logs from %s after %d retries", len(logs), client.BaseURL(), retries)
			return finish(func(s *Snapshot) {
				s.State = StateSuccess
				s.Logs = logs
				s.Waking = false
				s.Err = nil
			})
		}

		if IsNotFound(err) {
			logging.SyncError("endpoint %s answered 404, not retrying", client.BaseURL())
			return finish(func(s *Snapshot) {
				s.State = StateFailed
				s.Waking = false
				s.Err = fmt.Errorf("%w: %w", ErrMisconfigured, err)
			})
		}

		if retries >= c.cfg.MaxRetries {
			logging.SyncError("giving up on %s after %d retries: %v", client.BaseURL(), retries, err)
			return finish(func(s *Snapshot) {
				s.State = StateFailed
				s.Waking = false
				s.Err = fmt.Errorf("%w: %w", ErrConnectivity, err)
			})
		}

		logging.SyncWarn("attempt %d failed (%v), backend may be waking; retrying in %v", retries+1, err, c.cfg.RetryDelay)
		if _, ok := c.commit(gen, func(s *Snapshot) {
			s.State = StateWaking
			s.Waking = true
		}); !ok {
			return c.Snapshot()
		}

		wait := time.NewTimer(c.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			wait.Stop()
			return finish(func(s *Snapshot) {
				s.State = StateFailed
				s.Waking = false
				s.Err = fmt.Errorf("load cancelled: %w", ctx.Err())
			})
		case <-wait.C:
		}
	}
}
