package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/domain/timerange"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refTime = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

// fakeAPI serves fixed data. Setting authErr makes every domain fetch fail.
type fakeAPI struct {
	mu         sync.Mutex
	accountIDs []string
	categories []string
	authErr    error
	fiscal     string
	fiscalHits int
	ranges     []timerange.Range
	rng        *timerange.Range
	// gate, when set, holds Accounts until it is closed
	gate chan struct{}
}

func (f *fakeAPI) bind(rng *timerange.Range) interfaces.FireflyAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rng != nil {
		f.ranges = append(f.ranges, *rng)
	}
	return f
}

func (f *fakeAPI) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authErr
}

func (f *fakeAPI) CheckConnection(ctx context.Context) error { return f.failure() }

func (f *fakeAPI) About(ctx context.Context) (*models.Aggregate, error) {
	view := models.NewView(models.TypeAbout)
	return view, view.Insert(&models.About{Version: "6.1.0", APIVersion: "2.0.0"})
}

func (f *fakeAPI) Preferences(ctx context.Context) (*models.Aggregate, error) {
	view := models.NewView(models.TypePreferences)
	return view, view.Insert(&models.Preferences{DefaultCurrency: models.Currency{Code: "EUR", DecimalPlaces: 2}})
}

func (f *fakeAPI) FiscalYearStart(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fiscalHits++
	return f.fiscal, nil
}

func (f *fakeAPI) Accounts(ctx context.Context, q interfaces.AccountQuery) (*models.Aggregate, error) {
	view := models.NewView(models.TypeAccounts)
	if err := f.failure(); err != nil {
		return view, err
	}
	f.mu.Lock()
	ids := append([]string(nil), f.accountIDs...)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return view, ctx.Err()
		}
	}
	for _, id := range ids {
		_ = view.Insert(&models.Account{ID: id, Name: "Account " + id, Type: models.AccountTypeAsset, Balance: decimal.NewFromInt(10)})
	}
	return view, nil
}

func (f *fakeAPI) Categories(ctx context.Context, q interfaces.CategoryQuery) (*models.Aggregate, error) {
	view := models.NewView(models.TypeCategories)
	if err := f.failure(); err != nil {
		return view, err
	}
	for _, id := range f.categories {
		_ = view.Insert(&models.Category{ID: id, Name: "Category " + id})
	}
	return view, nil
}

func (f *fakeAPI) Budgets(ctx context.Context, currency string) (*models.Aggregate, error) {
	return models.NewView(models.TypeBudgets), f.failure()
}

func (f *fakeAPI) Bills(ctx context.Context) (*models.Aggregate, error) {
	return models.NewView(models.TypeBills), f.failure()
}

func (f *fakeAPI) PiggyBanks(ctx context.Context) (*models.Aggregate, error) {
	return models.NewView(models.TypePiggyBanks), f.failure()
}

func (f *fakeAPI) Currencies(ctx context.Context, q interfaces.CurrencyQuery) (*models.Aggregate, error) {
	return models.NewView(models.TypeCurrencies), f.failure()
}

func (f *fakeAPI) Transactions(ctx context.Context, q interfaces.TransactionQuery) (*models.Aggregate, error) {
	return models.NewView(models.TypeTransactions), f.failure()
}

type memoryHistory struct {
	mu      sync.Mutex
	records []interfaces.CycleRecord
}

func (h *memoryHistory) RecordCycle(ctx context.Context, rec interfaces.CycleRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

func (h *memoryHistory) RecentCycles(ctx context.Context, instance string, limit int) ([]interfaces.CycleRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []interfaces.CycleRecord
	for i := len(h.records) - 1; i >= 0 && len(out) < limit; i-- {
		if h.records[i].Instance == instance {
			out = append(out, h.records[i])
		}
	}
	return out, nil
}

func (h *memoryHistory) LastSuccess(ctx context.Context, instance string) (time.Time, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var last time.Time
	for _, rec := range h.records {
		if rec.Instance == instance && rec.Success && rec.FinishedAt.After(last) {
			last = rec.FinishedAt
		}
	}
	return last, nil
}

func (h *memoryHistory) Close() error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []interfaces.SnapshotEvent
}

func (p *recordingPublisher) PublishSnapshot(ctx context.Context, event interfaces.SnapshotEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) snapshot() []interfaces.SnapshotEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]interfaces.SnapshotEvent(nil), p.events...)
}

func testConfig() *internal.Config {
	cfg := &internal.Config{Interval: "60s"}
	cfg.Instance.Name = "home"
	cfg.Range = internal.RangeConfig{Kind: "month", MonthStart: 1, WeekStart: "mon", LastXBack: 1, LastXType: "d"}
	cfg.Return = internal.ReturnConfig{Accounts: true, AccountTypes: []string{"asset"}, Categories: true}
	return cfg
}

type coordinatorFixture struct {
	api       *fakeAPI
	history   *memoryHistory
	publisher *recordingPublisher
	metrics   *Metrics
	coord     *Coordinator
}

func newCoordinatorFixture(t *testing.T, cfg *internal.Config) *coordinatorFixture {
	t.Helper()
	f := &coordinatorFixture{
		api:       &fakeAPI{accountIDs: []string{"1", "3"}, categories: []string{"10", "11", "12"}},
		history:   &memoryHistory{},
		publisher: &recordingPublisher{},
		metrics:   NewMetrics(cfg.Instance.Name),
	}
	coord, err := NewCoordinator(CoordinatorOptions{
		Config:    cfg,
		Clients:   f.api.bind,
		History:   f.history,
		Publisher: f.publisher,
		Metrics:   f.metrics,
		Logger:    internal.NopLogger(),
		Now:       func() time.Time { return refTime },
	})
	require.NoError(t, err)
	f.coord = coord
	return f
}

func TestNewCoordinator_Validation(t *testing.T) {
	_, err := NewCoordinator(CoordinatorOptions{Config: testConfig()})
	assert.ErrorIs(t, err, ErrNoClientFactory)

	cfg := testConfig()
	cfg.Interval = "never"
	_, err = NewCoordinator(CoordinatorOptions{Config: cfg, Clients: (&fakeAPI{}).bind})
	assert.Error(t, err)

	_, err = NewCoordinator(CoordinatorOptions{Clients: (&fakeAPI{}).bind})
	assert.Error(t, err)
}

func TestCoordinator_InitialState(t *testing.T) {
	f := newCoordinatorFixture(t, testConfig())

	assert.Equal(t, time.Minute, f.coord.Interval())
	assert.True(t, f.coord.Snapshot().IsEmpty())
	assert.False(t, f.coord.LastUpdateSuccess())
	assert.Equal(t, StateIdle, f.coord.Status().State)
}

func TestCoordinator_UpdateSuccess(t *testing.T) {
	f := newCoordinatorFixture(t, testConfig())

	require.NoError(t, f.coord.Update(context.Background()))

	snap := f.coord.Snapshot()
	assert.ElementsMatch(t, []string{"1", "3"}, snap.IDs(models.TypeAccounts))
	assert.ElementsMatch(t, []string{"10", "11", "12"}, snap.IDs(models.TypeCategories))
	assert.False(t, snap.Has(models.TypeBills), "disabled domains are not fetched")
	assert.Equal(t, "6.1.0", snap.About().Version)
	assert.Equal(t, "EUR", snap.Preferences().DefaultCurrency.Code)

	st := f.coord.Status()
	assert.True(t, f.coord.LastUpdateSuccess())
	assert.Equal(t, StateSuccess, st.State)
	assert.Equal(t, 1, st.Cycles)
	assert.Zero(t, st.Failures)
	assert.Equal(t, 2, st.Counts["accounts"])
	assert.Equal(t, 3, st.Counts["categories"])
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), st.Range.Start)

	require.Len(t, f.api.ranges, 1)
	assert.Equal(t, st.Range, f.api.ranges[0])

	records, err := f.coord.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.Equal(t, "home", records[0].Instance)
	assert.Equal(t, st.CycleID, records[0].ID)

	events := f.publisher.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, interfaces.EventTypeSnapshotUpdated, events[0].Type)
	assert.Equal(t, 2, events[0].Counts["accounts"])
}

func TestCoordinator_FailureKeepsSnapshot(t *testing.T) {
	f := newCoordinatorFixture(t, testConfig())
	require.NoError(t, f.coord.Update(context.Background()))
	first := f.coord.Snapshot()

	authErr := interfaces.NewClientError(interfaces.ErrorTypeAuth, "invalid token", nil)
	f.api.mu.Lock()
	f.api.authErr = authErr
	f.api.accountIDs = []string{"99"}
	f.api.mu.Unlock()

	err := f.coord.Update(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, authErr))

	assert.Same(t, first, f.coord.Snapshot())
	assert.ElementsMatch(t, []string{"1", "3"}, f.coord.Snapshot().IDs(models.TypeAccounts))
	assert.False(t, f.coord.LastUpdateSuccess())

	st := f.coord.Status()
	assert.Equal(t, StateFailure, st.State)
	assert.Equal(t, 2, st.Cycles)
	assert.Equal(t, 1, st.Failures)
	assert.Contains(t, st.LastError, "invalid token")
	assert.Equal(t, 2, st.Counts["accounts"], "counts describe the retained snapshot")

	events := f.publisher.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, interfaces.EventTypeSnapshotFailed, events[1].Type)
	assert.False(t, events[1].Success)

	records, err := f.coord.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.False(t, records[0].Success)
	assert.NotEmpty(t, records[0].Error)
}

func TestCoordinator_NextSuccessReplacesSnapshot(t *testing.T) {
	f := newCoordinatorFixture(t, testConfig())
	require.NoError(t, f.coord.Update(context.Background()))

	f.api.mu.Lock()
	f.api.accountIDs = []string{"7"}
	f.api.mu.Unlock()

	require.NoError(t, f.coord.Refresh(context.Background()))
	assert.Equal(t, []string{"7"}, f.coord.Snapshot().IDs(models.TypeAccounts))
}

func TestCoordinator_CancelledContext(t *testing.T) {
	f := newCoordinatorFixture(t, testConfig())
	f.api.authErr = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.coord.Update(ctx), context.Canceled)
	assert.True(t, f.coord.Snapshot().IsEmpty())
	assert.Len(t, f.publisher.snapshot(), 1, "failed cycles still announce")
}

func TestCoordinator_FiscalYearStartFetchedOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Range.Kind = "year"
	f := newCoordinatorFixture(t, cfg)
	f.api.fiscal = "2024-04-01"

	require.NoError(t, f.coord.Update(context.Background()))
	require.NoError(t, f.coord.Update(context.Background()))

	st := f.coord.Status()
	assert.Equal(t, time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC), st.Range.Start)
	assert.Equal(t, 1, f.api.fiscalHits)
}

func TestCoordinator_ExplicitYearStart(t *testing.T) {
	cfg := testConfig()
	cfg.Range.Kind = "year"
	cfg.Range.YearStart = "07-01"
	f := newCoordinatorFixture(t, cfg)

	rng := f.coord.ResolveRange(context.Background(), refTime)
	assert.Equal(t, time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC), rng.Start)
	assert.Zero(t, f.api.fiscalHits)
}

func TestCoordinator_HistoryDisabled(t *testing.T) {
	coord, err := NewCoordinator(CoordinatorOptions{Config: testConfig(), Clients: (&fakeAPI{}).bind, Logger: internal.NopLogger()})
	require.NoError(t, err)

	require.NoError(t, coord.Update(context.Background()))
	_, err = coord.History(context.Background(), 5)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestCoordinator_StatusIsCopy(t *testing.T) {
	f := newCoordinatorFixture(t, testConfig())
	require.NoError(t, f.coord.Update(context.Background()))

	st := f.coord.Status()
	st.Counts["accounts"] = 100
	assert.Equal(t, 2, f.coord.Status().Counts["accounts"])
}

func TestCoordinator_RestoreLastSuccess(t *testing.T) {
	cfg := testConfig()
	f := newCoordinatorFixture(t, cfg)
	finished := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)
	f.history.records = []interfaces.CycleRecord{
		{ID: "a", Instance: "home", Success: true, FinishedAt: finished},
		{ID: "b", Instance: "home", Success: false, FinishedAt: finished.Add(time.Hour)},
		{ID: "c", Instance: "other", Success: true, FinishedAt: finished.Add(2 * time.Hour)},
	}

	require.NoError(t, f.coord.RestoreLastSuccess(context.Background()))
	st := f.coord.Status()
	assert.True(t, st.LastSuccess.Equal(finished))
	assert.Equal(t, StateIdle, st.State)
	assert.True(t, f.coord.Snapshot().IsEmpty())
}
