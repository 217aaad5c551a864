// Package metrics define los collectors Prometheus del servicio de invitaciones.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeCreated = "created"
	OutcomeReused  = "reused"
	OutcomeOK      = "ok"
	OutcomeDenied  = "forbidden"
	OutcomeInvalid = "invalid"
	OutcomeExpired = "expired"
	OutcomeUsed    = "used"
	OutcomeError   = "error"
)

// Metrics agrupa los collectors. Un valor nil es válido y no registra nada.
type Metrics struct {
	InvitationsIssued   *prometheus.CounterVec
	InvitationsConsumed *prometheus.CounterVec
	InvitationsRevoked  prometheus.Counter
	InvitationPreviews  *prometheus.CounterVec
	PreviewCacheHits    prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New crea y registra los collectors en reg (DefaultRegisterer si es nil).
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		InvitationsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invitations_issued_total",
			Help: "Llamadas a ensure por rol y resultado (created|reused|forbidden|error)",
		}, []string{"role", "outcome"}),
		InvitationsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invitations_consumed_total",
			Help: "Consumos de invitación por rol y resultado",
		}, []string{"role", "outcome"}),
		InvitationsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invitations_revoked_total",
			Help: "Tokens desactivados por revocación",
		}),
		InvitationPreviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invitation_preview_total",
			Help: "Previews de invitación por resultado",
		}, []string{"outcome"}),
		PreviewCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invitation_preview_cache_hits_total",
			Help: "Previews servidos desde cache",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{
		m.InvitationsIssued, m.InvitationsConsumed, m.InvitationsRevoked,
		m.InvitationPreviews, m.PreviewCacheHits,
		m.HTTPRequestsTotal, m.HTTPRequestDuration,
	} {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// registerCollector registra el collector ignorando duplicados.
func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

func (m *Metrics) Issued(role, outcome string) {
	if m == nil {
		return
	}
	m.InvitationsIssued.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) Consumed(role, outcome string) {
	if m == nil {
		return
	}
	m.InvitationsConsumed.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) Revoked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.InvitationsRevoked.Add(float64(n))
}

func (m *Metrics) Preview(outcome string) {
	if m == nil {
		return
	}
	m.InvitationPreviews.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PreviewCacheHit() {
	if m == nil {
		return
	}
	m.PreviewCacheHits.Inc()
}
