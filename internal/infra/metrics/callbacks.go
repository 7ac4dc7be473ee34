package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(callbackDeliveriesTotal, callbackAttemptsTotal) }

var callbackDeliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "callback_deliveries_total",
		Help: "Webhook deliveries by final outcome ('delivered', 'exhausted').",
	},
	[]string{"outcome"},
)

var callbackAttemptsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "callback_attempts_total",
		Help: "Individual webhook POST attempts, including retries.",
	},
)

func ObserveCallback(delivered bool, attempts int) {
	outcome := "delivered"
	if !delivered {
		outcome = "exhausted"
	}
	callbackDeliveriesTotal.WithLabelValues(outcome).Inc()
	callbackAttemptsTotal.Add(float64(attempts))
}
