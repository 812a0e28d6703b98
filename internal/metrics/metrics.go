package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	dayEdits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smena",
			Name:      "day_edit_total",
			Help:      "Count of applied day edits by action.",
		},
		[]string{"action"},
	)

	editRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smena",
			Name:      "edit_rejected_total",
			Help:      "Count of rejected edits by reason.",
		},
		[]string{"reason"},
	)

	batchDates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smena",
			Name:      "batch_dates_total",
			Help:      "Count of dates touched by batch operations, by result.",
		},
		[]string{"result"},
	)

	templateSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smena",
			Name:      "template_save_total",
			Help:      "Count of weekly template saves by result.",
		},
		[]string{"result"},
	)

	platformRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smena",
			Name:      "platform_request_total",
			Help:      "Count of platform API requests by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(dayEdits, editRejected, batchDates, templateSaves, platformRequests)
	})
}

func IncDayEdit(action string) {
	dayEdits.WithLabelValues(action).Inc()
}

func IncEditRejected(reason string) {
	editRejected.WithLabelValues(reason).Inc()
}

func AddBatchDates(result string, n int) {
	if n > 0 {
		batchDates.WithLabelValues(result).Add(float64(n))
	}
}

func IncTemplateSave(result string) {
	templateSaves.WithLabelValues(result).Inc()
}

func IncPlatformRequest(endpoint, result string) {
	platformRequests.WithLabelValues(endpoint, result).Inc()
}
