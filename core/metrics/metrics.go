// Package metrics exposes Prometheus instruments for the bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "currencybot"

// Metrics groups the bot's collectors. It satisfies rates.Observer and
// conversation.Observer.
type Metrics struct {
	ConversationEvents *prometheus.CounterVec
	RateLookups        *prometheus.CounterVec
	RateLookupDuration *prometheus.HistogramVec
	Updates            *prometheus.CounterVec
	OutboundMessages   *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ConversationEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_events_total",
			Help:      "Conversation events by handler and outcome.",
		}, []string{"handler", "outcome"}),
		RateLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_lookups_total",
			Help:      "Rate source lookups by outcome.",
		}, []string{"outcome"}),
		RateLookupDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_lookup_duration_seconds",
			Help:      "Latency of rate source lookups.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates handled by type and status.",
		}, []string{"type", "status"}),
		OutboundMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Outbound Telegram sends by status.",
		}, []string{"status"}),
	}
}

// RegisterSessions exposes the number of known chats through count.
func RegisterSessions(reg prometheus.Registerer, count func() int) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Chats with a conversation session.",
	}, func() float64 { return float64(count()) })
}

// ObserveEvent records one conversation step.
func (m *Metrics) ObserveEvent(handler, outcome string) {
	m.ConversationEvents.WithLabelValues(handler, outcome).Inc()
}

// ObserveRateLookup records one rate source call.
func (m *Metrics) ObserveRateLookup(outcome string, took time.Duration) {
	m.RateLookups.WithLabelValues(outcome).Inc()
	m.RateLookupDuration.WithLabelValues(outcome).Observe(took.Seconds())
}

// ObserveUpdate records one inbound update.
func (m *Metrics) ObserveUpdate(kind, status string) {
	m.Updates.WithLabelValues(kind, status).Inc()
}

// ObserveSend records the final status of one outbound message.
func (m *Metrics) ObserveSend(status string) {
	m.OutboundMessages.WithLabelValues(status).Inc()
}
