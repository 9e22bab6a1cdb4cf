// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"

	"github.com/Hiranx/WorldCountries/internal/core"
)

type Handler struct {
	backend    string
	sqlStats   func() sql.DBStats
	mongoStats func() core.MongoStats
	storePing  func(ctx context.Context) error
	countUsers func(ctx context.Context) (int, error)
}

// HandlerConfig wires the store behind the stats endpoints. Exactly one of
// SQLStats and MongoStats is expected to be set.
type HandlerConfig struct {
	Backend    string
	SQLStats   func() sql.DBStats
	MongoStats func() core.MongoStats
	StorePing  func(ctx context.Context) error
	CountUsers func(ctx context.Context) (int, error)
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		backend:    cfg.Backend,
		sqlStats:   cfg.SQLStats,
		mongoStats: cfg.MongoStats,
		storePing:  cfg.StorePing,
		countUsers: cfg.CountUsers,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/store", h.GetStoreStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeHealthy := true
	if h.storePing != nil {
		if err := h.storePing(ctx); err != nil {
			storeHealthy = false
		}
	}

	var users *int
	if h.countUsers != nil {
		total, err := h.countUsers(ctx)
		if err != nil {
			slog.WarnContext(ctx, "count users failed", "error", err)
		} else {
			users = &total
		}
	}

	core.OK(w, SystemStatsResponse{
		Store: StoreStatus{
			Backend: h.backend,
			Healthy: storeHealthy,
			Pool:    h.getPoolStats(),
		},
		Users:   users,
		Runtime: readRuntimeStats(),
	})
}

func (h *Handler) GetStoreStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getPoolStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, readRuntimeStats())
}

func (h *Handler) getPoolStats() *PoolStats {
	switch {
	case h.sqlStats != nil:
		stats := h.sqlStats()
		return &PoolStats{
			MaxOpenConnections: stats.MaxOpenConnections,
			OpenConnections:    int64(stats.OpenConnections),
			InUse:              int64(stats.InUse),
			Idle:               int64(stats.Idle),
			WaitCount:          stats.WaitCount,
			WaitDuration:       stats.WaitDuration.String(),
			MaxIdleClosed:      stats.MaxIdleClosed,
			MaxLifetimeClosed:  stats.MaxLifetimeClosed,
		}
	case h.mongoStats != nil:
		stats := h.mongoStats()
		return &PoolStats{
			Database:        stats.Database,
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Created:         stats.Created,
			Closed:          stats.Closed,
		}
	default:
		return nil
	}
}

func readRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

type SystemStatsResponse struct {
	Store   StoreStatus  `json:"store"`
	Users   *int         `json:"users,omitempty"`
	Runtime RuntimeStats `json:"runtime"`
}

type StoreStatus struct {
	Backend string     `json:"backend"`
	Healthy bool       `json:"healthy"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

type PoolStats struct {
	Database           string `json:"database,omitempty"`
	MaxOpenConnections int    `json:"max_open_connections,omitempty"`
	OpenConnections    int64  `json:"open_connections"`
	InUse              int64  `json:"in_use"`
	Idle               int64  `json:"idle"`
	WaitCount          int64  `json:"wait_count,omitempty"`
	WaitDuration       string `json:"wait_duration,omitempty"`
	MaxIdleClosed      int64  `json:"max_idle_closed,omitempty"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed,omitempty"`
	Created            int64  `json:"created,omitempty"`
	Closed             int64  `json:"closed,omitempty"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
