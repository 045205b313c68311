package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	reservationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticketing_reservation_duration_seconds",
			Help:    "Time spent inside the reservation guard, retries included",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	reservationRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_reservation_retries_total",
			Help: "Reservation attempts repeated after transient contention",
		},
	)

	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_order_transitions_total",
			Help: "Order status transitions by target status and result",
		},
		[]string{"status", "result"},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_checkins_total",
			Help: "Gate check-ins by outcome",
		},
		[]string{"outcome"},
	)

	notificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_notifications_dropped_total",
			Help: "Domain events not delivered to a sink",
		},
		[]string{"reason"},
	)

	holdsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_holds_expired_total",
			Help: "Pending orders cancelled by the hold-expiry sweep",
		},
	)

	notifyQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ticketing_notify_queue_depth",
			Help: "Domain events waiting for dispatch",
		},
	)
)

func ObserveReservation(outcome string, started time.Time) {
	reservations.WithLabelValues(outcome).Inc()
	reservationDuration.Observe(time.Since(started).Seconds())
}

func ReservationRetried() {
	reservationRetries.Inc()
}

func ObserveTransition(status, result string) {
	orderTransitions.WithLabelValues(status, result).Inc()
}

func ObserveCheckIn(outcome string) {
	checkIns.WithLabelValues(outcome).Inc()
}

func NotificationDropped(reason string) {
	notificationsDropped.WithLabelValues(reason).Inc()
}

func HoldsExpired(n int) {
	holdsExpired.Add(float64(n))
}

func SetNotifyQueueDepth(n int) {
	notifyQueueDepth.Set(float64(n))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
