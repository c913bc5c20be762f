package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const readinessTimeout = 5 * time.Second

// CheckFunc probes one backing service
type CheckFunc func(ctx context.Context) error

type probe struct {
	name     string
	critical bool
	check    CheckFunc
}

// HealthChecker serves /healthz and /readyz. A failing critical probe (Postgres) makes the
// service unready; a failing optional probe (Redis, object storage) only degrades it.
type HealthChecker struct {
	probes  []probe
	version string
}

// NewHealthChecker creates a checker with Postgres as a critical probe and Redis as an
// optional one. Either may be nil.
func NewHealthChecker(db *sql.DB, rdb *redis.Client) *HealthChecker {
	h := &HealthChecker{version: "dev"}
	if db != nil {
		h.Critical("postgres", PingDB(db))
	}
	if rdb != nil {
		h.Optional("redis", PingRedis(rdb))
	}
	return h
}

// WithVersion sets the build version reported by the probes
func (h *HealthChecker) WithVersion(version string) *HealthChecker {
	h.version = version
	return h
}

// Critical adds a probe whose failure makes the service unready
func (h *HealthChecker) Critical(name string, check CheckFunc) *HealthChecker {
	h.probes = append(h.probes, probe{name: name, critical: true, check: check})
	return h
}

// Optional adds a probe whose failure only degrades the service
func (h *HealthChecker) Optional(name string, check CheckFunc) *HealthChecker {
	h.probes = append(h.probes, probe{name: name, check: check})
	return h
}

// PingDB probes Postgres with a trivial query
func PingDB(db *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		var one int
		return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	}
}

// PingRedis probes Redis
func PingRedis(rdb *redis.Client) CheckFunc {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

// HealthStatus is the readiness report
type HealthStatus struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version,omitempty"`
	CheckedAt    time.Time                   `json:"checkedAt"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the result of one probe
type DependencyStatus struct {
	Status    string `json:"status"`
	Critical  bool   `json:"critical"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// Liveness returns 200 while the process can serve requests
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthStatus{Status: StatusHealthy, Version: h.version, CheckedAt: time.Now().UTC()})
}

// Readiness runs every probe and returns 503 when a critical one fails
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

// Check runs the probes concurrently and folds them into one status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	results := make([]DependencyStatus, len(h.probes))
	var wg sync.WaitGroup
	for i, p := range h.probes {
		wg.Add(1)
		go func(i int, p probe) {
			defer wg.Done()
			start := time.Now()
			err := p.check(ctx)
			res := DependencyStatus{Status: StatusHealthy, Critical: p.critical, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = StatusUnhealthy
				res.Error = err.Error()
			}
			results[i] = res
		}(i, p)
	}
	wg.Wait()

	status := HealthStatus{
		Status:       StatusHealthy,
		Version:      h.version,
		CheckedAt:    time.Now().UTC(),
		Dependencies: make(map[string]DependencyStatus, len(h.probes)),
	}
	for i, p := range h.probes {
		res := results[i]
		status.Dependencies[p.name] = res
		if res.Status != StatusUnhealthy {
			continue
		}
		if p.critical {
			status.Status = StatusUnhealthy
		} else if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}
	return status
}

func writeHealth(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
