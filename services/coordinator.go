package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/domain/timerange"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
)

// State is the coordinator's position in the poll cycle.
type State string

const (
	StateIdle     State = "IDLE"
	StateFetching State = "FETCHING"
	StateSuccess  State = "SUCCESS"
	StateFailure  State = "FAILURE"
)

var (
	// ErrNoClientFactory is returned by NewCoordinator without a client factory.
	ErrNoClientFactory = errors.New("coordinator requires a client factory")

	// ErrHistoryDisabled is returned by History when no store is configured.
	ErrHistoryDisabled = errors.New("cycle history is disabled")
)

// Status describes the last poll cycle.
type Status struct {
	State        State           `json:"state"`
	CycleID      string          `json:"cycle_id,omitempty"`
	Cycles       int             `json:"cycles"`
	Failures     int             `json:"failures"`
	LastAttempt  time.Time       `json:"last_attempt,omitempty"`
	LastSuccess  time.Time       `json:"last_success,omitempty"`
	LastDuration time.Duration   `json:"last_duration"`
	LastError    string          `json:"last_error,omitempty"`
	Range        timerange.Range `json:"range"`
	Counts       map[string]int  `json:"counts,omitempty"`
}

// CoordinatorOptions wires a Coordinator. History, Publisher and Metrics
// are optional.
type CoordinatorOptions struct {
	Config    *internal.Config
	Clients   interfaces.ClientFactory
	History   interfaces.HistoryStore
	Publisher interfaces.SnapshotPublisher
	Metrics   *Metrics
	Logger    *internal.Logger
	Now       func() time.Time
}

// Coordinator runs poll cycles and publishes the resulting snapshot. A
// failed cycle leaves the previous snapshot in place.
type Coordinator struct {
	config    *internal.Config
	clients   interfaces.ClientFactory
	history   interfaces.HistoryStore
	publisher interfaces.SnapshotPublisher
	metrics   *Metrics
	logger    *internal.Logger
	now       func() time.Time
	interval  time.Duration

	cycle sync.Mutex

	mu              sync.RWMutex
	snapshot        *models.Aggregate
	status          Status
	fiscalYearStart string
}

// NewCoordinator validates opts and returns an idle coordinator with an
// empty snapshot.
func NewCoordinator(opts CoordinatorOptions) (*Coordinator, error) {
	if opts.Config == nil {
		return nil, errors.New("coordinator requires a config")
	}
	if opts.Clients == nil {
		return nil, ErrNoClientFactory
	}
	interval, err := opts.Config.PollInterval()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = internal.GetLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Coordinator{
		config:    opts.Config,
		clients:   opts.Clients,
		history:   opts.History,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    logger,
		now:       now,
		interval:  interval,
		snapshot:  models.NewAggregate(),
		status:    Status{State: StateIdle},
	}, nil
}

// Interval is the configured time between cycles.
func (c *Coordinator) Interval() time.Duration {
	return c.interval
}

// Snapshot returns the last successfully published aggregate. Callers
// must treat it as read-only.
func (c *Coordinator) Snapshot() *models.Aggregate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// LastUpdateSuccess reports whether the most recent cycle succeeded.
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status.State == StateSuccess
}

// Status returns a copy of the cycle status.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.status
	if st.Counts != nil {
		counts := make(map[string]int, len(st.Counts))
		for k, v := range st.Counts {
			counts[k] = v
		}
		st.Counts = counts
	}
	return st
}

// Update runs one poll cycle. Cycles never overlap; a call made while a
// cycle is running waits for it.
func (c *Coordinator) Update(ctx context.Context) error {
	c.cycle.Lock()
	defer c.cycle.Unlock()

	cycleID := internal.GenerateUUID()
	started := c.now()

	c.mu.Lock()
	c.status.State = StateFetching
	c.status.CycleID = cycleID
	c.status.LastAttempt = started
	c.mu.Unlock()

	c.logger.Debug(internal.ComponentCoordinator, "Starting poll cycle %s", cycleID)

	rng, snapshot, err := c.fetch(ctx, started)
	finished := c.now()
	took := finished.Sub(started)

	rec := interfaces.CycleRecord{
		ID:         cycleID,
		Instance:   c.config.Instance.Name,
		StartedAt:  started,
		FinishedAt: finished,
		Success:    err == nil,
		RangeStart: rng.Start,
		RangeEnd:   rng.End,
	}

	c.mu.Lock()
	c.status.Cycles++
	c.status.LastDuration = took
	c.status.Range = rng
	if err != nil {
		c.status.State = StateFailure
		c.status.Failures++
		c.status.LastError = err.Error()
		rec.Error = err.Error()
	} else {
		c.snapshot = snapshot
		c.status.State = StateSuccess
		c.status.LastSuccess = finished
		c.status.LastError = ""
		c.status.Counts = countsByName(snapshot)
		rec.Counts = c.status.Counts
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error(internal.ComponentCoordinator, "Poll cycle %s failed after %s: %v", cycleID, took, err)
	} else {
		c.logger.Info(internal.ComponentCoordinator, "Poll cycle %s finished in %s (%s)", cycleID, took, rng)
	}

	c.metrics.ObserveCycle(err == nil, took, rec.Counts, finished)
	c.record(ctx, rec)
	c.announce(ctx, rec)
	return err
}

// Refresh runs a cycle outside the schedule.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.logger.Info(internal.ComponentCoordinator, "Refresh requested")
	return c.Update(ctx)
}

// ResolveRange returns the window a cycle starting at ref would use.
func (c *Coordinator) ResolveRange(ctx context.Context, ref time.Time) timerange.Range {
	return timerange.Resolve(c.config.RangeSpec(c.yearStart(ctx)), ref)
}

func (c *Coordinator) fetch(ctx context.Context, ref time.Time) (timerange.Range, *models.Aggregate, error) {
	rng := c.ResolveRange(ctx, ref)
	client := c.clients(&rng)
	if client == nil {
		return rng, nil, errors.New("client factory returned nil")
	}

	ret := c.config.Return
	batch := &models.Batch{}
	batch.Add("about", client.About)
	batch.Add("preferences", client.Preferences)

	if ret.Accounts {
		batch.Add("accounts", func(ctx context.Context) (*models.Aggregate, error) {
			return client.Accounts(ctx, interfaces.AccountQuery{
				Types:            ret.AccountTypes,
				IDs:              ret.AccountIDs,
				TransactionLimit: ret.AccountTransactions,
			})
		})
	}
	if ret.Categories {
		batch.Add("categories", func(ctx context.Context) (*models.Aggregate, error) {
			return client.Categories(ctx, interfaces.CategoryQuery{IDs: ret.CategoryIDs, Currency: ret.Currency})
		})
	}
	if ret.Bills {
		batch.Add("bills", client.Bills)
	}
	if ret.PiggyBanks {
		batch.Add("piggy_banks", client.PiggyBanks)
	}
	if ret.Budgets {
		batch.Add("budgets", func(ctx context.Context) (*models.Aggregate, error) {
			return client.Budgets(ctx, ret.Currency)
		})
	}
	if ret.Currencies {
		batch.Add("currencies", func(ctx context.Context) (*models.Aggregate, error) {
			return client.Currencies(ctx, interfaces.CurrencyQuery{EnabledOnly: true})
		})
	}

	snapshot := models.NewAggregate()
	if err := batch.Resolve(ctx, snapshot); err != nil {
		return rng, nil, err
	}
	return rng, snapshot, nil
}

// yearStart returns the explicit year start, or the server's fiscal year
// start for year ranges. The server value is fetched once.
func (c *Coordinator) yearStart(ctx context.Context) string {
	rc := c.config.Range
	if rc.YearStart != "" || timerange.Kind(rc.Kind) != timerange.KindYear {
		return rc.YearStart
	}

	c.mu.RLock()
	cached := c.fiscalYearStart
	c.mu.RUnlock()
	if cached != "" {
		return cached
	}

	client := c.clients(nil)
	if client == nil {
		return ""
	}
	start, err := client.FiscalYearStart(ctx)
	if err != nil {
		c.logger.Warn(internal.ComponentCoordinator, "Falling back to January 1st, fiscal year start unavailable: %v", err)
		return ""
	}

	c.mu.Lock()
	c.fiscalYearStart = start
	c.mu.Unlock()
	return start
}

func (c *Coordinator) record(ctx context.Context, rec interfaces.CycleRecord) {
	if c.history == nil {
		return
	}
	if err := c.history.RecordCycle(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Warn(internal.ComponentStorage, "Failed to record cycle %s: %v", rec.ID, err)
	}
}

func (c *Coordinator) announce(ctx context.Context, rec interfaces.CycleRecord) {
	if c.publisher == nil {
		return
	}
	event := interfaces.SnapshotEvent{
		ID:        rec.ID,
		Type:      interfaces.EventTypeSnapshotUpdated,
		Instance:  rec.Instance,
		Timestamp: rec.FinishedAt,
		Success:   rec.Success,
		Error:     rec.Error,
		Counts:    rec.Counts,
	}
	if !rec.Success {
		event.Type = interfaces.EventTypeSnapshotFailed
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.publisher.PublishSnapshot(pubCtx, event); err != nil {
		c.logger.Warn(internal.ComponentService, "Failed to publish %s: %v", event.Type, err)
	}
}

// RestoreLastSuccess seeds the status with the last successful cycle
// recorded in history. It is a no-op without a history store.
func (c *Coordinator) RestoreLastSuccess(ctx context.Context) error {
	if c.history == nil {
		return nil
	}
	last, err := c.history.LastSuccess(ctx, c.config.Instance.Name)
	if err != nil {
		return err
	}
	if last.IsZero() {
		return nil
	}

	c.mu.Lock()
	if c.status.LastSuccess.IsZero() {
		c.status.LastSuccess = last
	}
	c.mu.Unlock()
	c.logger.Debug(internal.ComponentStorage, "Last successful cycle finished at %s", last)
	return nil
}

// History returns up to limit recorded cycles, newest first.
func (c *Coordinator) History(ctx context.Context, limit int) ([]interfaces.CycleRecord, error) {
	if c.history == nil {
		return nil, ErrHistoryDisabled
	}
	return c.history.RecentCycles(ctx, c.config.Instance.Name, limit)
}

func countsByName(agg *models.Aggregate) map[string]int {
	counts := make(map[string]int)
	for t, n := range agg.Counts() {
		counts[string(t)] = n
	}
	return counts
}
