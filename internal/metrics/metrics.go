package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PushSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealerdesk_push_sent_total",
		Help: "Push notifications delivered to a push endpoint.",
	})

	PushFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealerdesk_push_failed_total",
		Help: "Push delivery failures by classification.",
	}, []string{"reason"})

	SubscriptionsDeactivated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealerdesk_subscriptions_deactivated_total",
		Help: "Subscriptions deactivated after a permanent delivery failure.",
	})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dealerdesk_subscriptions_active",
		Help: "Currently active push subscriptions.",
	})

	PendingQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealerdesk_pending_queued_total",
		Help: "Notifications queued for background-sync pickup.",
	})
)

// Failure reasons for PushFailed.
const (
	ReasonGone      = "endpoint_gone"
	ReasonTransient = "transient"
	ReasonEncode    = "encode"
)
