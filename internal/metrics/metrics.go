package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gentlecut",
			Name:      "booking_created_total",
			Help:      "Count of bookings confirmed.",
		},
	)

	bookingConflict = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gentlecut",
			Name:      "booking_conflict_total",
			Help:      "Count of booking attempts rejected because the slot was taken.",
		},
	)

	bookingDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gentlecut",
			Name:      "booking_deleted_total",
			Help:      "Count of bookings deleted by admins.",
		},
	)

	scheduleUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gentlecut",
			Name:      "schedule_update_total",
			Help:      "Count of schedule mutations by operation.",
		},
		[]string{"op"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gentlecut",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingConflict, bookingDeleted, scheduleUpdates, httpRequests)
	})
}

func IncBookingCreated() {
	bookingCreated.Inc()
}

func IncBookingConflict() {
	bookingConflict.Inc()
}

func IncBookingDeleted() {
	bookingDeleted.Inc()
}

func IncScheduleUpdate(op string) {
	scheduleUpdates.WithLabelValues(op).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
