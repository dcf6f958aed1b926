package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// HealthStatus represents the backtest process health.
type HealthStatus struct {
	mu sync.RWMutex

	RunID    string `json:"run_id"`
	Source   string `json:"source"` // csv, sqlite or redis
	SourceOK bool   `json:"source_ok"`
	State    string `json:"state"` // engine lifecycle state
	Bars     int    `json:"bars"`

	// Liveness probe results
	SourceLatencyMs float64   `json:"source_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus(runID, source string) *HealthStatus {
	return &HealthStatus{
		RunID:     runID,
		Source:    source,
		SourceOK:  source == "csv",
		State:     "created",
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetState(state string) {
	h.mu.Lock()
	h.State = state
	h.mu.Unlock()
}

func (h *HealthStatus) SetBars(n int) {
	h.mu.Lock()
	h.Bars = n
	h.mu.Unlock()
}

func (h *HealthStatus) SetSourceOK(v bool) {
	h.mu.Lock()
	h.SourceOK = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	h.record(err, time.Since(start))
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	h.record(err, time.Since(start))
}

func (h *HealthStatus) record(err error, latency time.Duration) {
	h.mu.Lock()
	h.SourceOK = err == nil
	h.SourceLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.SourceOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastCheck := ""
	if !h.LastCheckAt.IsZero() {
		lastCheck = h.LastCheckAt.Format(time.RFC3339)
	}
	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RunID           string  `json:"run_id"`
		Source          string  `json:"source"`
		SourceOK        bool    `json:"source_ok"`
		SourceLatencyMs float64 `json:"source_latency_ms"`
		State           string  `json:"state"`
		Bars            int     `json:"bars"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RunID:           h.RunID,
		Source:          h.Source,
		SourceOK:        h.SourceOK,
		SourceLatencyMs: h.SourceLatencyMs,
		State:           h.State,
		Bars:            h.Bars,
		LastCheckAt:     lastCheck,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}
