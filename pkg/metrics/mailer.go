package metrics

import "github.com/prometheus/client_golang/prometheus"

// MailerMetrics makes fire-and-forget email outcomes observable. Dispatch
// failures never fail the triggering mutation, so these counters are the
// primary signal that the mail provider is unhealthy.
type MailerMetrics struct {
	sent   *prometheus.CounterVec
	failed *prometheus.CounterVec
}

// NewMailerMetrics registers the mailer counters on the provided registerer.
func NewMailerMetrics(reg prometheus.Registerer) *MailerMetrics {
	if reg == nil {
		return &MailerMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailer_emails_sent",
		Help: "Emails accepted by the mail provider.",
	}, []string{"kind"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailer_emails_failed",
		Help: "Emails the mail provider rejected or that errored in transit.",
	}, []string{"kind"})
	reg.MustRegister(sent, failed)
	return &MailerMetrics{sent: sent, failed: failed}
}

// IncSent increments the sent counter for the named email kind.
func (m *MailerMetrics) IncSent(kind string) {
	if m == nil || m.sent == nil {
		return
	}
	m.sent.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailed increments the failure counter for the named email kind.
func (m *MailerMetrics) IncFailed(kind string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(kind)).Inc()
}
