package metrics

import (
	"net/http"

	"RaceCommentator/internal/race"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "racecommentator"

// Metrics - счётчики детекции и озвучки. Методы безопасны для nil-получателя,
// чтобы компоненты работали и с выключенными метриками.
type Metrics struct {
	registry   *prometheus.Registry
	detected   *prometheus.CounterVec
	evicted    *prometheus.CounterVec
	narrations *prometheus.CounterVec
	queueDepth prometheus.Gauge
	frames     prometheus.Counter
}

// New регистрирует метрики в собственном реестре.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		detected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_detected_total",
			Help:      "Race events detected, by kind.",
		}, []string{"kind"}),
		evicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_evicted_total",
			Help:      "Queued events evicted as stale before narration, by kind.",
		}, []string{"kind"}),
		narrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrations_total",
			Help:      "Narration attempts, by outcome.",
		}, []string{"outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "narration_queue_depth",
			Help:      "Events waiting for narration.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_frames_total",
			Help:      "Telemetry frames accepted from the simulator.",
		}),
	}
	m.registry.MustRegister(m.detected, m.evicted, m.narrations, m.queueDepth, m.frames)
	return m
}

func (m *Metrics) EventDetected(kind race.Kind) {
	if m == nil {
		return
	}
	m.detected.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) EventEvicted(kind race.Kind) {
	if m == nil {
		return
	}
	m.evicted.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) Narration(outcome string) {
	if m == nil {
		return
	}
	m.narrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// FrameReceived отмечает принятый кадр телеметрии.
func (m *Metrics) FrameReceived() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler отдаёт /metrics. Для nil возвращает 404.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
