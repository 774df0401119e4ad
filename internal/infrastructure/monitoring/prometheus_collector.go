package monitoring

import (
	"time"

	"pairwave/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exposes the matchmaking/pairing/relay metrics named
// in the observability supplement: queue occupancy per tier, active
// pairings, in-flight searches, relayed messages, moderator vetoes, and
// match latency.
type PrometheusCollector struct {
	queueSize        *prometheus.GaugeVec
	activePairings   prometheus.Gauge
	searchesInFlight prometheus.Gauge
	matchesTotal     prometheus.Counter
	messagesRelayed  prometheus.Counter
	moderatorVetoes  prometheus.Counter
	signalsRelayed   *prometheus.CounterVec

	matchLatency prometheus.Histogram
}

// NewPrometheusCollector registers and returns the collector set.
func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		queueSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pairwave_queue_size",
			Help: "Number of sessions currently waiting for a match, by tier",
		}, []string{"tier"}),

		activePairings: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pairwave_active_pairings",
			Help: "Number of currently active pairings",
		}),

		searchesInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pairwave_searches_in_flight",
			Help: "Number of search drivers currently polling for a match",
		}),

		matchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pairwave_matches_total",
			Help: "Total number of pairings created",
		}),

		messagesRelayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pairwave_messages_relayed_total",
			Help: "Total number of chat messages relayed between paired sessions",
		}),

		moderatorVetoes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pairwave_moderator_vetoes_total",
			Help: "Total number of chat messages vetoed by the moderator",
		}),

		signalsRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pairwave_signals_relayed_total",
			Help: "Total number of WebRTC signaling events relayed, by type",
		}, []string{"type"}),

		matchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pairwave_match_latency_seconds",
			Help:    "Time from enqueue to a successful match",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
	}
}

// UpdateQueueSnapshot refreshes the per-tier queue gauges from a snapshot.
func (p *PrometheusCollector) UpdateQueueSnapshot(snapshot domain.Snapshot) {
	for tier, count := range snapshot.PerTier {
		p.queueSize.WithLabelValues(string(tier)).Set(float64(count))
	}
}

func (p *PrometheusCollector) SetActivePairings(n int) {
	p.activePairings.Set(float64(n))
}

func (p *PrometheusCollector) SetSearchesInFlight(n int) {
	p.searchesInFlight.Set(float64(n))
}

func (p *PrometheusCollector) RecordMatch(waitTime time.Duration) {
	p.matchesTotal.Inc()
	p.matchLatency.Observe(waitTime.Seconds())
}

func (p *PrometheusCollector) RecordMessageRelayed() {
	p.messagesRelayed.Inc()
}

func (p *PrometheusCollector) RecordModeratorVeto() {
	p.moderatorVetoes.Inc()
}

func (p *PrometheusCollector) RecordSignalRelayed(eventType domain.EventType) {
	p.signalsRelayed.WithLabelValues(string(eventType)).Inc()
}
