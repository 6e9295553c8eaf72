package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	EventsCreated     prometheus.Counter
	EventOverlaps     prometheus.Counter
	AuthFailures      *prometheus.CounterVec
	IssuerRefresh     *prometheus.CounterVec
	RegisteredIssuers prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the service collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		EventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slotbook_events_created_total",
			Help: "Events booked successfully.",
		}),
		EventOverlaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slotbook_event_overlaps_total",
			Help: "Create or update attempts rejected because the slot was taken.",
		}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slotbook_auth_failures_total",
			Help: "Bearer tokens rejected, by reason.",
		}, []string{"reason"}),
		IssuerRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slotbook_issuer_refresh_total",
			Help: "Federated issuer refresh runs, by result.",
		}, []string{"result"}),
		RegisteredIssuers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slotbook_registered_issuers",
			Help: "Token issuers currently accepted.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.EventsCreated, m.EventOverlaps, m.AuthFailures, m.IssuerRefresh, m.RegisteredIssuers)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// AuthFailed matches the failure hook of auth.Resolver.
func (m *Metrics) AuthFailed(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}
