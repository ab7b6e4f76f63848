package store

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors a Store updates.
type Metrics struct {
	HandlesOpened prometheus.Counter
	HandlesClosed prometheus.Counter
	OpenHandles   prometheus.Gauge
	BytesRead     prometheus.Counter
	BytesWritten  prometheus.Counter
	ChunksRead    prometheus.Counter
	ChunksWritten prometheus.Counter
	IterateSteps  prometheus.Counter
	Errors        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HandlesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "h5", Subsystem: "store", Name: "handles_opened_total",
			Help: "Handles opened on nodes.",
		}),
		HandlesClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "h5", Subsystem: "store", Name: "handles_closed_total",
			Help: "Handles closed.",
		}),
		OpenHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "h5", Subsystem: "store", Name: "open_handles",
			Help: "Handles currently open.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "h5", Subsystem: "store", Name: "read_bytes_total",
			Help: "Element bytes returned by dataset reads.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "h5", Subsystem: "store", Name: "written_bytes_total",
			Help: "Element bytes accepted by dataset writes.",
		}),
		ChunksRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "h5", Subsystem: "store", Name: "chunks_read_total",
			Help: "Chunks loaded from the backend.",
		}),
		ChunksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "h5", Subsystem: "store", Name: "chunks_written_total",
			Help: "Chunks stored to the backend.",
		}),
		IterateSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "h5", Subsystem: "store", Name: "iterate_candidates_total",
			Help: "Children examined by group enumeration.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "h5", Subsystem: "store", Name: "errors_total",
			Help: "Failed operations by error kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.HandlesOpened, m.HandlesClosed, m.OpenHandles,
			m.BytesRead, m.BytesWritten, m.ChunksRead, m.ChunksWritten,
			m.IterateSteps, m.Errors,
		)
	}
	return m
}

func (m *Metrics) observeError(kind error) {
	label := "unknown"
	if kind != nil {
		label = strings.ReplaceAll(kind.Error(), " ", "_")
	}
	m.Errors.WithLabelValues(label).Inc()
}
