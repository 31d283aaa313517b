package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// ComponentChecker reports per-component status; "OK" means healthy.
type ComponentChecker interface {
	Check(ctx context.Context) map[string]string
}

// Probes backs /healthz and /readyz. Liveness only fails once shutdown has begun;
// readiness additionally requires every dependency check to pass.
type Probes struct {
	log          *slog.Logger
	checker      ComponentChecker
	timeout      time.Duration
	shuttingDown atomic.Bool
}

// NewProbes creates a new Probes instance.
func NewProbes(log *slog.Logger, checker ComponentChecker) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, checker: checker, timeout: 3 * time.Second}
}

// MarkShuttingDown flips both probes to failing.
func (p *Probes) MarkShuttingDown() {
	p.shuttingDown.Store(true)
}

func (p *Probes) Liveness(ctx context.Context) error {
	if p.shuttingDown.Load() {
		return fmt.Errorf("shutting down")
	}
	return nil
}

func (p *Probes) Readiness(ctx context.Context) error {
	_, err := p.readiness(ctx)
	return err
}

func (p *Probes) readiness(ctx context.Context) (map[string]string, error) {
	if err := p.Liveness(ctx); err != nil {
		return nil, err
	}
	if p.checker == nil {
		return map[string]string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := p.checker.Check(ctx)

	var failed []string
	for name, status := range results {
		if status != "OK" {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return results, fmt.Errorf("unhealthy: %s", strings.Join(failed, ", "))
	}

	return results, nil
}

// LivenessHandler serves the liveness probe.
func (p *Probes) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := p.Liveness(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// ReadinessHandler serves the readiness probe with per-component results as JSON.
func (p *Probes) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results, err := p.readiness(r.Context())

		status := http.StatusOK
		if err != nil {
			status = http.StatusServiceUnavailable
			p.log.Warn("readiness probe failed", slog.Any("error", err))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if results == nil {
			results = map[string]string{"status": err.Error()}
		}
		_ = json.NewEncoder(w).Encode(results)
	})
}
