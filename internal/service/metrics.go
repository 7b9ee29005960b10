package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Payment verification outcomes.
const (
	verifyResultVerified         = "verified"
	verifyResultReplay           = "replay"
	verifyResultInvalidSignature = "invalid_signature"
	verifyResultRejected         = "rejected"
)

// Entitlement check sources.
const (
	entitlementSourceCache  = "cache"
	entitlementSourceLedger = "ledger"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "projectverse_orders_created_total",
		Help: "Pending orders opened with the payment provider.",
	})

	paymentVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectverse_payment_verifications_total",
		Help: "Payment verification callbacks by result.",
	}, []string{"result"})

	orderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectverse_order_transitions_total",
		Help: "Committed order status transitions by target status.",
	}, []string{"to"})

	ratingRecomputeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "projectverse_rating_recompute_failures_total",
		Help: "Rating recomputes that failed after a review mutation.",
	})

	entitlementChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projectverse_entitlement_checks_total",
		Help: "Entitlement checks by the source that answered them.",
	}, []string{"source"})
)
