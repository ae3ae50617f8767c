package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LikeToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picturegram_like_toggles_total",
			Help: "Like toggles by route (local or remote) and result",
		},
		[]string{"route", "result"},
	)

	FollowOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picturegram_follow_operations_total",
			Help: "Follow graph operations by op and result",
		},
		[]string{"op", "result"},
	)

	NotificationsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picturegram_notifications_emitted_total",
			Help: "Notification dispatch attempts by kind and result",
		},
		[]string{"kind", "result"},
	)

	PushResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picturegram_push_results_total",
			Help: "Push gateway requests by result",
		},
		[]string{"result"},
	)

	UnreadSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "picturegram_unread_subscriptions",
			Help: "Active unread counter subscriptions",
		},
	)

	NotificationsMarkedRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "picturegram_notifications_marked_read_total",
			Help: "Notifications flipped to read",
		},
	)
)

func init() {
	prometheus.MustRegister(LikeToggles)
	prometheus.MustRegister(FollowOps)
	prometheus.MustRegister(NotificationsEmitted)
	prometheus.MustRegister(PushResults)
	prometheus.MustRegister(UnreadSubscriptions)
	prometheus.MustRegister(NotificationsMarkedRead)
}

// Result maps an error to a metric label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
