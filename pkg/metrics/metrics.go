package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedClients tracks currently open websocket connections.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codemate_connected_clients",
			Help: "Number of open websocket connections",
		},
	)

	// ActiveRooms tracks rooms with at least one joined session.
	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codemate_active_rooms",
			Help: "Number of rooms with at least one member",
		},
	)

	// CachedWorkspaces tracks rooms with a cached workspace snapshot.
	CachedWorkspaces = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codemate_cached_workspaces",
			Help: "Number of room workspace snapshots held in the state cache",
		},
	)

	// SyncEvents counts protocol events processed by type (join|code-change|sync-code|message|disconnect).
	SyncEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codemate_sync_events_total",
			Help: "Total number of synchronization protocol events processed",
		},
		[]string{"event"},
	)

	// DroppedPayloads counts inbound payloads discarded as malformed.
	DroppedPayloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codemate_dropped_payloads_total",
			Help: "Total number of malformed payloads dropped by the protocol",
		},
		[]string{"event"},
	)

	// Executions counts code execution requests by runtime and result (success|failure).
	Executions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codemate_executions_total",
			Help: "Total number of code execution requests",
		},
		[]string{"runtime", "result"},
	)

	// ExecutionLatency measures code execution round-trip latency per runtime.
	ExecutionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codemate_execution_latency_seconds",
			Help:    "Code execution service round-trip latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"runtime"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codemate_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
