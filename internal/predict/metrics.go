package predict

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var predictRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cropcare_predict_requests_total",
	Help: "Predict round trips by outcome",
}, []string{"outcome"})

var predictDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "cropcare_predict_duration_seconds",
	Help:    "Wall time of predict round trips",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
})

func observe(start time.Time, err error) {
	predictDuration.Observe(time.Since(start).Seconds())
	predictRequests.WithLabelValues(Outcome(err)).Inc()
}

// Outcome classifies a Predict error for metrics and logs. Users only ever see one message.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrUnexpectedStatus):
		return "bad_status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrNoImage):
		return "no_image"
	default:
		return "unreachable"
	}
}
