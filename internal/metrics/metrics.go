// Package metrics holds the Prometheus collectors shared by the assistant,
// the ledger and the adapters.
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finbot"

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "How many HTTP requests processed, partitioned by status code, method and route.",
		},
		[]string{"code", "method", "route"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "The HTTP request latencies in seconds.",
		},
		[]string{"code", "method", "route"},
	)

	AssistantRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_runs_total",
			Help:      "Orchestration runs by terminal state.",
		},
		[]string{"state"},
	)

	AssistantRoundTrips = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assistant_round_trips",
			Help:      "Model round trips per orchestration run.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool name and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	LedgerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_operation_duration_seconds",
			Help:      "Ledger gateway operation latencies in seconds.",
		},
		[]string{"operation", "outcome"},
	)

	CategoryInferences = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_inferences_total",
			Help:      "Category inferences by source: cache, model or fallback.",
		},
		[]string{"source"},
	)

	ChannelMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_messages_total",
			Help:      "Inbound channel messages by channel, kind and outcome.",
		},
		[]string{"channel", "kind", "outcome"},
	)

	LedgerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_total",
			Help:      "Ledger events by stage (published, journaled) and outcome.",
		},
		[]string{"stage", "outcome"},
	)
)

var collectors = []prometheus.Collector{
	RequestCount,
	RequestDuration,
	AssistantRuns,
	AssistantRoundTrips,
	ToolCalls,
	LedgerDuration,
	CategoryInferences,
	ChannelMessages,
	LedgerEvents,
}

var (
	registerOnce sync.Once
	registerErr  error
)

// Register registers all collectors with the default registry. Calling it
// more than once is harmless.
func Register() error {
	registerOnce.Do(func() {
		for _, c := range collectors {
			if err := prometheus.Register(c); err != nil {
				registerErr = fmt.Errorf("could not register %s with Prometheus: %w", c, err)
				return
			}
		}
	})
	return registerErr
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome labels an error as ok or error.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveLedger records one gateway operation.
func ObserveLedger(operation string, start time.Time, err error) {
	LedgerDuration.WithLabelValues(operation, Outcome(err)).Observe(time.Since(start).Seconds())
}
