package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Payment outcome labels beyond the persisted statuses.
const paymentDegraded = "DEGRADED"

var (
	checkoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Carts turned into orders.",
	})

	paymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment attempts by result (SUCCESS, FAILED, DEGRADED).",
		},
		[]string{"status"},
	)
)
