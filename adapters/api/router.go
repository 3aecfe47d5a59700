// Package api serves the published snapshot over a read-only HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/ZanzyTHEbar/fireflyiii-go/services"
	"github.com/gin-contrib/logger"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// defaultHistoryLimit applies when /history is called without ?limit
const defaultHistoryLimit = 20

// Refresher runs a cycle on demand and waits for it.
type Refresher interface {
	Refresh() error
}

// Options wires the router. Refresher defaults to running the cycle on
// the coordinator directly; Metrics may be nil.
type Options struct {
	Coordinator *services.Coordinator
	Refresher   Refresher
	Metrics     *services.Metrics
	Logger      *internal.Logger
}

type handler struct {
	coordinator *services.Coordinator
	refresher   Refresher
	logger      *internal.Logger
}

type coordinatorRefresher struct {
	coordinator *services.Coordinator
}

func (r coordinatorRefresher) Refresh() error {
	return r.coordinator.Refresh(context.Background())
}

// NewRouter builds the gin engine with every route attached.
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.Coordinator == nil {
		return nil, errors.New("router requires a coordinator")
	}
	log := opts.Logger
	if log == nil {
		log = internal.GetLogger()
	}
	refresher := opts.Refresher
	if refresher == nil {
		refresher = coordinatorRefresher{coordinator: opts.Coordinator}
	}

	r := gin.New()
	r.ForwardedByClientIP = false
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(requestid.New())
	r.Use(logger.SetLogger(
		logger.WithDefaultLevel(zerolog.DebugLevel),
		logger.WithClientErrorLevel(zerolog.InfoLevel),
		logger.WithServerErrorLevel(zerolog.ErrorLevel),
		logger.WithLogger(func(c *gin.Context, _ zerolog.Logger) zerolog.Logger {
			return log.Zerolog().With().
				Str("component", string(internal.ComponentAPI)).
				Str("request-id", requestid.Get(c)).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Int("status", c.Writer.Status()).
				Int("size", c.Writer.Size()).
				Str("user-agent", c.Request.UserAgent()).
				Logger()
		})))

	var registry *prometheus.Registry
	if opts.Metrics != nil {
		registry = opts.Metrics.Registry()
		mw, err := MetricsMiddleware(registry)
		if err != nil {
			return nil, err
		}
		r.Use(mw)
	}

	r.NoRoute(func(c *gin.Context) {
		errorJSON(c, http.StatusNotFound, "There is no resource for the path you requested")
	})
	r.NoMethod(func(c *gin.Context) {
		errorJSON(c, http.StatusMethodNotAllowed, "This HTTP method is not allowed for the endpoint you called")
	})

	// Disable the gin debug route printing
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, numHandlers int) {}
	_ = r.SetTrustedProxies([]string{})

	h := &handler{coordinator: opts.Coordinator, refresher: refresher, logger: log}
	attachRoutes(h, r.Group("/"), registry)
	return r, nil
}

// attachRoutes attaches the API routes to group. A nil registry leaves
// out /metrics.
func attachRoutes(h *handler, group *gin.RouterGroup, registry *prometheus.Registry) {
	group.GET("/status", h.GetStatus)
	group.GET("/version", GetVersion)
	group.GET("/snapshot", h.GetSnapshot)
	group.GET("/snapshot/:type", h.GetSlot)
	group.GET("/snapshot/:type/:id", h.GetObject)
	group.POST("/refresh", h.PostRefresh)
	group.GET("/history", h.GetHistory)

	if registry != nil {
		group.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// StatusResponse is the body of /status
type StatusResponse struct {
	services.Status
	LastUpdateSuccess bool `json:"last_update_success"`
}

func (h *handler) GetStatus(c *gin.Context) {
	st := h.coordinator.Status()
	c.JSON(http.StatusOK, StatusResponse{Status: st, LastUpdateSuccess: st.State == services.StateSuccess})
}

// VersionResponse is the body of /version
type VersionResponse struct {
	Version   string `json:"version"`
	BuildType string `json:"build_type"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time,omitempty"`
}

func GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, VersionResponse{
		Version:   internal.Version,
		BuildType: internal.BuildType,
		GitCommit: internal.GitCommit,
		BuildTime: internal.BuildTime,
	})
}

// SlotResponse holds one snapshot slot. Data is the singleton object, or
// the collection keyed by id.
type SlotResponse struct {
	Type  models.ObjectType `json:"type"`
	Empty bool              `json:"empty,omitempty"`
	Data  any               `json:"data"`
}

func slot(agg *models.Aggregate, t models.ObjectType) SlotResponse {
	if s := agg.Singleton(t); s.ObjectType() != models.TypeNone {
		return SlotResponse{Type: t, Data: s}
	}
	if !agg.Has(t) {
		return SlotResponse{Type: t, Empty: true, Data: models.Empty{}}
	}
	return SlotResponse{Type: t, Data: agg.Collection(t)}
}

// SnapshotResponse is the body of /snapshot
type SnapshotResponse struct {
	Success bool                               `json:"last_update_success"`
	Counts  map[models.ObjectType]int          `json:"counts"`
	Data    map[models.ObjectType]SlotResponse `json:"data"`
}

func (h *handler) GetSnapshot(c *gin.Context) {
	snap := h.coordinator.Snapshot()
	data := make(map[models.ObjectType]SlotResponse)
	for _, t := range snap.Types() {
		data[t] = slot(snap, t)
	}
	c.JSON(http.StatusOK, SnapshotResponse{
		Success: h.coordinator.LastUpdateSuccess(),
		Counts:  snap.Counts(),
		Data:    data,
	})
}

func (h *handler) GetSlot(c *gin.Context) {
	t, ok := models.ParseObjectType(c.Param("type"))
	if !ok {
		errorJSON(c, http.StatusNotFound, "Unknown object type "+strconv.Quote(c.Param("type")))
		return
	}
	c.JSON(http.StatusOK, slot(h.coordinator.Snapshot(), t))
}

func (h *handler) GetObject(c *gin.Context) {
	t, ok := models.ParseObjectType(c.Param("type"))
	if !ok {
		errorJSON(c, http.StatusNotFound, "Unknown object type "+strconv.Quote(c.Param("type")))
		return
	}
	obj, ok := h.coordinator.Snapshot().Lookup(t, c.Param("id"))
	if !ok {
		errorJSON(c, http.StatusNotFound, "No "+t.String()+" with id "+strconv.Quote(c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, obj)
}

func (h *handler) PostRefresh(c *gin.Context) {
	started := time.Now()
	if err := h.refresher.Refresh(); err != nil {
		h.logger.Warn(internal.ComponentAPI, "Refresh failed: %v", err)
		c.JSON(http.StatusBadGateway, StatusResponse{Status: h.coordinator.Status()})
		return
	}
	h.logger.Debug(internal.ComponentAPI, "Refresh finished in %s", time.Since(started))
	c.JSON(http.StatusOK, StatusResponse{Status: h.coordinator.Status(), LastUpdateSuccess: true})
}

// HistoryResponse is the body of /history
type HistoryResponse struct {
	Data []interfaces.CycleRecord `json:"data"`
}

func (h *handler) GetHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errorJSON(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.coordinator.History(c.Request.Context(), limit)
	if errors.Is(err, services.ErrHistoryDisabled) {
		errorJSON(c, http.StatusNotFound, "Cycle history is disabled")
		return
	}
	if err != nil {
		h.logger.Error(internal.ComponentAPI, "Failed to read history: %v", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to read history")
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{Data: records})
}
