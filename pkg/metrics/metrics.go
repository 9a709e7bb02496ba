// Package metrics exposes prometheus counters for form submissions, session
// logouts and location resolutions.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-formflow/pkg/faults"
)

const namespace = "formflow"

// Registry holds every formflow collector. It is separate from the default
// registry so embedding applications choose what to expose.
var Registry = prometheus.NewRegistry()

var (
	submissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Count of finished form submissions by form and outcome.",
		},
		[]string{"form", "outcome"},
	)
	submissionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Duration of form submissions including the refresh call.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"form"},
	)
	logoutCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_logouts_total",
			Help:      "Count of forced logouts by session fault kind.",
		},
		[]string{"kind"},
	)
	resolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_resolutions_total",
			Help:      "Count of location resolution attempts by method and result.",
		},
		[]string{"method", "result"},
	)
)

var registerMetrics sync.Once

// Register adds all collectors to Registry.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(submissionCounter)
		Registry.MustRegister(submissionDuration)
		Registry.MustRegister(logoutCounter)
		Registry.MustRegister(resolutionCounter)
	})
}

// Handler serves Registry in the prometheus text format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordSubmission counts one finished submission.
func RecordSubmission(form, outcome string, elapsed time.Duration) {
	submissionCounter.WithLabelValues(form, outcome).Inc()
	submissionDuration.WithLabelValues(form).Observe(elapsed.Seconds())
}

// RecordLogout counts one forced logout.
func RecordLogout(kind faults.Kind) {
	logoutCounter.WithLabelValues(string(kind)).Inc()
}

// RecordResolution counts one location resolution attempt.
func RecordResolution(method, result string) {
	resolutionCounter.WithLabelValues(method, result).Inc()
}

// Recorder adapts the package counters to the recorder interfaces of the
// submit, session and location packages.
type Recorder struct{}

// Submission implements submit.Recorder.
func (Recorder) Submission(form, outcome string, elapsed time.Duration) {
	RecordSubmission(form, outcome, elapsed)
}

// Logout implements session.Observer.
func (Recorder) Logout(kind faults.Kind) {
	RecordLogout(kind)
}

// Resolution implements location.Recorder.
func (Recorder) Resolution(method, result string) {
	RecordResolution(method, result)
}
