package mymetrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_session_transitions_total",
			Help: "Checkout sessions entering a state",
		},
		[]string{"state"},
	)

	WebhookNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_webhook_notifications_total",
			Help: "Payment notifications received per provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	GatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_gateway_request_duration_seconds",
			Help:    "Duration of payment intent creation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "status"},
	)

	TicketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets issued for paid sessions",
		},
	)

	TicketValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_validations_total",
			Help: "Ticket validation attempts per outcome",
		},
		[]string{"outcome"},
	)

	SessionsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_sessions_reaped_total",
			Help: "Expired sessions removed from storage",
		},
	)
)

func RegisterEndpoints(router *mux.Router) {
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}
