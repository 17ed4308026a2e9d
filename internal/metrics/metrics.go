// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Initiations          *prometheus.CounterVec
	Reconciliations      *prometheus.CounterVec
	NotificationsSent    prometheus.Counter
	NotificationFailures prometheus.Counter
	WebhookDuplicates    prometheus.Counter
}

// New registers the counters on reg. A nil *Metrics is valid everywhere and
// records nothing.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Initiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payrelay",
			Name:      "initiations_total",
			Help:      "Payment initiations by result.",
		}, []string{"result"}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payrelay",
			Name:      "reconciliations_total",
			Help:      "Reconciliation calls by source and result (completed, failed, noop).",
		}, []string{"source", "result"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "payrelay",
			Name:      "notifications_sent_total",
			Help:      "Status-change notifications acknowledged by the broker.",
		}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "payrelay",
			Name:      "notification_failures_total",
			Help:      "Status-change notifications that failed or timed out.",
		}),
		WebhookDuplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "payrelay",
			Name:      "webhook_duplicates_total",
			Help:      "Webhook deliveries dropped as already seen.",
		}),
	}
	reg.MustRegister(m.Initiations, m.Reconciliations, m.NotificationsSent,
		m.NotificationFailures, m.WebhookDuplicates)
	return m
}

func (m *Metrics) Initiated(result string) {
	if m == nil {
		return
	}
	m.Initiations.WithLabelValues(result).Inc()
}

func (m *Metrics) Reconciled(source, result string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(source, result).Inc()
}

func (m *Metrics) Notified(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.NotificationFailures.Inc()
		return
	}
	m.NotificationsSent.Inc()
}

func (m *Metrics) DuplicateWebhook() {
	if m == nil {
		return
	}
	m.WebhookDuplicates.Inc()
}
