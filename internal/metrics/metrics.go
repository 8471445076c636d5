// Package metrics holds the Prometheus collectors for the marketplace.
//
//   - agrimarket_negotiations_total{event}       sent|accepted|rejected
//   - agrimarket_accept_attempts_total{result}   ok or the error kind
//   - agrimarket_compensations_total{step,result} restock|reopen, ok|fail
//   - agrimarket_upstream_requests_total{service,result}
//
// They are registered in init() and served at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxNegotiations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimarket_negotiations_total",
			Help: "Negotiation lifecycle events",
		},
		[]string{"event"},
	)

	mtxAccepts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimarket_accept_attempts_total",
			Help: "Negotiation acceptances by result",
		},
		[]string{"result"},
	)

	// A fail here means stock or status may be out of step with the orders
	// table and needs a manual look.
	mtxCompensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimarket_compensations_total",
			Help: "Compensating actions run after a partial accept",
		},
		[]string{"step", "result"},
	)

	mtxUpstream = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrimarket_upstream_requests_total",
			Help: "Calls to translation and fair-price services",
		},
		[]string{"service", "result"},
	)
)

func init() {
	prometheus.MustRegister(mtxNegotiations, mtxAccepts, mtxCompensations, mtxUpstream)
}

func IncNegotiation(event string) { mtxNegotiations.WithLabelValues(event).Inc() }

func IncAccept(result string) { mtxAccepts.WithLabelValues(result).Inc() }

func IncCompensation(step string, ok bool) {
	result := "ok"
	if !ok {
		result = "fail"
	}
	mtxCompensations.WithLabelValues(step, result).Inc()
}

func IncUpstream(service, result string) { mtxUpstream.WithLabelValues(service, result).Inc() }
