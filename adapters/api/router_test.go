package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/domain/timerange"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/ZanzyTHEbar/fireflyiii-go/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAPI returns two accounts and the server description.
type stubAPI struct {
	err error
}

func (s *stubAPI) CheckConnection(context.Context) error { return s.err }

func (s *stubAPI) About(context.Context) (*models.Aggregate, error) {
	view := models.NewView(models.TypeAbout)
	return view, view.Insert(&models.About{Version: "6.1.0"})
}

func (s *stubAPI) Preferences(context.Context) (*models.Aggregate, error) {
	return models.NewView(models.TypePreferences), nil
}

func (s *stubAPI) FiscalYearStart(context.Context) (string, error) { return "", nil }

func (s *stubAPI) Accounts(context.Context, interfaces.AccountQuery) (*models.Aggregate, error) {
	view := models.NewView(models.TypeAccounts)
	if s.err != nil {
		return view, s.err
	}
	for _, id := range []string{"1", "2"} {
		_ = view.Insert(&models.Account{ID: id, Name: "Account " + id, Balance: decimal.NewFromInt(5)})
	}
	return view, nil
}

func (s *stubAPI) Categories(context.Context, interfaces.CategoryQuery) (*models.Aggregate, error) {
	return models.NewView(models.TypeCategories), nil
}

func (s *stubAPI) Budgets(context.Context, string) (*models.Aggregate, error) {
	return models.NewView(models.TypeBudgets), nil
}

func (s *stubAPI) Bills(context.Context) (*models.Aggregate, error) {
	return models.NewView(models.TypeBills), nil
}

func (s *stubAPI) PiggyBanks(context.Context) (*models.Aggregate, error) {
	return models.NewView(models.TypePiggyBanks), nil
}

func (s *stubAPI) Currencies(context.Context, interfaces.CurrencyQuery) (*models.Aggregate, error) {
	return models.NewView(models.TypeCurrencies), nil
}

func (s *stubAPI) Transactions(context.Context, interfaces.TransactionQuery) (*models.Aggregate, error) {
	return models.NewView(models.TypeTransactions), nil
}

type routerFixture struct {
	api    *stubAPI
	coord  *services.Coordinator
	router *gin.Engine
}

func newRouterFixture(t *testing.T, history interfaces.HistoryStore) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &internal.Config{Interval: "60s"}
	cfg.Instance.Name = "home"
	cfg.Range = internal.RangeConfig{Kind: "month", MonthStart: 1, WeekStart: "mon", LastXBack: 1, LastXType: "d"}
	cfg.Return.Accounts = true

	f := &routerFixture{api: &stubAPI{}}
	coord, err := services.NewCoordinator(services.CoordinatorOptions{
		Config:  cfg,
		Clients: func(*timerange.Range) interfaces.FireflyAPI { return f.api },
		History: history,
		Metrics: services.NewMetrics("home"),
		Logger:  internal.NopLogger(),
	})
	require.NoError(t, err)
	f.coord = coord

	router, err := NewRouter(Options{Coordinator: coord, Metrics: services.NewMetrics("home"), Logger: internal.NopLogger()})
	require.NoError(t, err)
	f.router = router
	return f
}

func (f *routerFixture) request(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(method, path, nil)
	require.NoError(t, err)
	f.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, r *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(target), "body: %s", r.Body.String())
}

func TestNewRouter_RequiresCoordinator(t *testing.T) {
	_, err := NewRouter(Options{})
	assert.Error(t, err)
}

func TestGetStatus(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.request(t, http.MethodGet, "/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var st StatusResponse
	decodeResponse(t, w, &st)
	assert.Equal(t, services.StateIdle, st.State)
	assert.False(t, st.LastUpdateSuccess)
}

func TestGetSnapshot(t *testing.T) {
	f := newRouterFixture(t, nil)
	require.NoError(t, f.coord.Update(context.Background()))

	w := f.request(t, http.MethodGet, "/snapshot")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool                       `json:"last_update_success"`
		Counts  map[string]int             `json:"counts"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	decodeResponse(t, w, &body)
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Counts["accounts"])
	assert.Contains(t, body.Data, "accounts")
	assert.Contains(t, body.Data, "about")
}

func TestGetSlot(t *testing.T) {
	f := newRouterFixture(t, nil)
	require.NoError(t, f.coord.Update(context.Background()))

	tests := []struct {
		name   string
		path   string
		status int
		empty  bool
	}{
		{name: "collection", path: "/snapshot/accounts", status: http.StatusOK},
		{name: "singleton", path: "/snapshot/about", status: http.StatusOK},
		{name: "upper case", path: "/snapshot/ACCOUNTS", status: http.StatusOK},
		{name: "absent type", path: "/snapshot/bills", status: http.StatusOK, empty: true},
		{name: "unknown type", path: "/snapshot/wallets", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.request(t, http.MethodGet, tt.path)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var slot struct {
				Type  string          `json:"type"`
				Empty bool            `json:"empty"`
				Data  json.RawMessage `json:"data"`
			}
			decodeResponse(t, w, &slot)
			assert.Equal(t, tt.empty, slot.Empty)
		})
	}

	w := f.request(t, http.MethodGet, "/snapshot/accounts")
	var slot struct {
		Data map[string]models.Account `json:"data"`
	}
	decodeResponse(t, w, &slot)
	assert.Len(t, slot.Data, 2)
	assert.Equal(t, "Account 1", slot.Data["1"].Name)
}

func TestGetObject(t *testing.T) {
	f := newRouterFixture(t, nil)
	require.NoError(t, f.coord.Update(context.Background()))

	w := f.request(t, http.MethodGet, "/snapshot/accounts/2")
	require.Equal(t, http.StatusOK, w.Code)
	var acc models.Account
	decodeResponse(t, w, &acc)
	assert.Equal(t, "2", acc.ID)
	assert.True(t, decimal.NewFromInt(5).Equal(acc.Balance))

	assert.Equal(t, http.StatusNotFound, f.request(t, http.MethodGet, "/snapshot/accounts/9").Code)
	assert.Equal(t, http.StatusNotFound, f.request(t, http.MethodGet, "/snapshot/wallets/1").Code)
}

func TestPostRefresh(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.request(t, http.MethodPost, "/refresh")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.coord.LastUpdateSuccess())

	f.api.err = interfaces.NewClientError(interfaces.ErrorTypeAuth, "invalid token", errors.New("401"))
	w = f.request(t, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, []string{"1", "2"}, f.coord.Snapshot().IDs(models.TypeAccounts))

	assert.Equal(t, http.StatusMethodNotAllowed, f.request(t, http.MethodGet, "/refresh").Code)
}

func TestGetHistory(t *testing.T) {
	f := newRouterFixture(t, nil)
	assert.Equal(t, http.StatusNotFound, f.request(t, http.MethodGet, "/history").Code)

	db, err := internal.NewSQLiteDatabase(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f = newRouterFixture(t, db)
	require.NoError(t, f.coord.Update(context.Background()))
	require.NoError(t, f.coord.Update(context.Background()))

	w := f.request(t, http.MethodGet, "/history?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	var body HistoryResponse
	decodeResponse(t, w, &body)
	require.Len(t, body.Data, 1)
	assert.True(t, body.Data[0].Success)

	assert.Equal(t, http.StatusBadRequest, f.request(t, http.MethodGet, "/history?limit=zero").Code)
}

func TestGetVersionAndMetrics(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.request(t, http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, w.Code)
	var v VersionResponse
	decodeResponse(t, w, &v)
	assert.Equal(t, internal.Version, v.Version)

	w = f.request(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "fireflyiii_http_requests_total"))
}

func TestNotFound(t *testing.T) {
	f := newRouterFixture(t, nil)
	w := f.request(t, http.MethodGet, "/nothing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StartStop(t *testing.T) {
	f := newRouterFixture(t, nil)
	srv := NewServer("127.0.0.1:0", f.router, internal.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	res, err := http.Get("http://" + srv.Addr() + "/status")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
