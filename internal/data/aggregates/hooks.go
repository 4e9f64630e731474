package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/spackmon-backend/internal/observability"
)

// Hooks captures write-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

func NoopHooks() Hooks { return noopHooks{} }

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewMetricsHooks creates hooks backed by the prometheus collectors.
func NewMetricsHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &metricsHooks{metrics: metrics}
}

func (h *metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveWrite(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *metricsHooks) IncConflict(name string) {
	h.metrics.IncWriteFailure(strings.TrimSpace(name), "conflict")
}

// IncRetry counts find-or-insert re-fetches; name is the table.
func (h *metricsHooks) IncRetry(name string) {
	h.metrics.IncUpsertRetry(strings.TrimSpace(name))
}
