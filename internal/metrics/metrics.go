// Package metrics holds the Prometheus collectors for the realtime backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll outcomes used as the "outcome" label.
const (
	OutcomeEvents    = "events"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

var (
	// PollsActive is the number of long-polls currently parked.
	PollsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "becmi_polls_active",
		Help: "Number of long-poll requests currently in progress",
	})

	// PollDuration measures how long each poll held its connection.
	PollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "becmi_poll_duration_seconds",
		Help:    "Long-poll duration in seconds by outcome",
		Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 25, 30},
	}, []string{"outcome"})

	// EventsAppended counts events written to session logs.
	EventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "becmi_events_appended_total",
		Help: "Total number of session events appended by event type",
	}, []string{"type"})

	// PresenceTouches counts presence upserts.
	PresenceTouches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "becmi_presence_touches_total",
		Help: "Total number of presence records touched by polls",
	})

	// PresenceReaped counts records flipped offline by the reaper.
	PresenceReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "becmi_presence_reaped_total",
		Help: "Total number of presence records marked offline by the reaper",
	})

	// ArchivedEvents counts events exported by the archive scheduler.
	ArchivedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "becmi_archived_events_total",
		Help: "Total number of session events exported to the archive",
	})
)

// PollStarted marks a poll as active and returns a func that records its
// outcome and duration.
func PollStarted() func(outcome string) {
	start := time.Now()
	PollsActive.Inc()
	return func(outcome string) {
		PollsActive.Dec()
		PollDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

// EventAppended records one appended event of the given type.
func EventAppended(eventType string) {
	EventsAppended.WithLabelValues(eventType).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
