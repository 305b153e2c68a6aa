package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "screencopilot"

// Metrics holds the worker's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	inbound         *prometheus.CounterVec
	malformed       prometheus.Counter
	capability      *prometheus.HistogramVec
	capabilityFails *prometheus.CounterVec
	ingest          *prometheus.CounterVec
	tasks           *prometheus.CounterVec
	audioFlushes    *prometheus.CounterVec
	inflight        prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry. The
// collectors are created once so repeated calls never double-register.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers the collectors with reg and panics on conflicting
// registrations. Tests pass a fresh prometheus.NewRegistry().
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "inbound_messages_total",
			Help:      "Inbound control messages by type.",
		}, []string{"type"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "malformed_messages_total",
			Help:      "Inbound control messages dropped as malformed.",
		}),
		capability: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "capability",
			Name:      "call_duration_seconds",
			Help:      "Latency of model-backed capability calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"capability", "status"}),
		capabilityFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capability",
			Name:      "failures_total",
			Help:      "Capability calls that returned an error.",
		}, []string{"capability"}),
		ingest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "decisions_total",
			Help:      "Ingest outcomes: unchanged, ocr, ocr_empty, vision, rollup.",
		}, []string{"decision"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "resolutions_total",
			Help:      "Watch task resolutions by status.",
		}, []string{"status"}),
		audioFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audio",
			Name:      "flushes_total",
			Help:      "Audio buffer flushes by result.",
		}, []string{"result"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "inflight_handlers",
			Help:      "Control message handlers currently running.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.inbound, m.malformed, m.capability, m.capabilityFails,
		m.ingest, m.tasks, m.audioFlushes, m.inflight,
	} {
		reg.MustRegister(c)
	}
	return m
}

func (m *Metrics) IncInbound(msgType string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(msgType).Inc()
}

func (m *Metrics) IncMalformed() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

// ObserveCapability records one capability call and counts it as a failure
// when err is non-nil.
func (m *Metrics) ObserveCapability(name string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.capabilityFails.WithLabelValues(name).Inc()
	}
	m.capability.WithLabelValues(name, status).Observe(d.Seconds())
}

func (m *Metrics) IncIngest(decision string) {
	if m == nil {
		return
	}
	m.ingest.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncTaskResolution(status string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(status).Inc()
}

func (m *Metrics) IncAudioFlush(result string) {
	if m == nil {
		return
	}
	m.audioFlushes.WithLabelValues(result).Inc()
}

func (m *Metrics) HandlerStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) HandlerFinished() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}
