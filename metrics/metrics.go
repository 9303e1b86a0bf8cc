// Package metrics exposes the backend telemetry in Prometheus format.
// The hot output path never reports errors to its caller, so these
// collectors are the only place drops and channel failures become visible.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	_namespace = "elogport"

	// DimChannel is the label naming the output channel.
	DimChannel = "channel"
	// DimResult is the label carrying an init result code.
	DimResult = "result"
	// DimPool is the label naming an object pool.
	DimPool = "pool"
	// DimTopic is the label naming an event topic.
	DimTopic = "topic"
)

var (
	_registry = prometheus.NewRegistry()

	outputBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "output",
		Name:      "bytes_total",
		Help:      "Bytes accepted by an output channel.",
	}, []string{DimChannel})

	outputRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "output",
		Name:      "records_total",
		Help:      "Output calls accepted by an output channel.",
	}, []string{DimChannel})

	droppedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "output",
		Name:      "dropped_total",
		Help:      "Output calls dropped because the channel was saturated or failing.",
	}, []string{DimChannel})

	lockWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: _namespace,
		Subsystem: "lock",
		Name:      "wait_seconds",
		Help:      "Time spent blocked acquiring the output mutex.",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
	})

	initResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "backend",
		Name:      "init_total",
		Help:      "Backend init calls by result code.",
	}, []string{DimResult})

	poolCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "pool",
		Name:      "created_total",
		Help:      "Objects allocated because a pool was empty.",
	}, []string{DimPool})

	eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: _namespace,
		Subsystem: "event",
		Name:      "published_total",
		Help:      "Events published per topic.",
	}, []string{DimTopic})
)

func init() {
	_registry.MustRegister(outputBytes, outputRecords, droppedRecords, lockWait, initResults,
		poolCreated, eventsPublished)
}

// Registry returns the registry holding every elogport collector.
func Registry() *prometheus.Registry {
	return _registry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(_registry, promhttp.HandlerOpts{})
}

// RecordOutput counts one accepted output call of n bytes on channel.
func RecordOutput(channel string, n int) {
	outputRecords.WithLabelValues(channel).Inc()
	outputBytes.WithLabelValues(channel).Add(float64(n))
}

// RecordDrop counts one dropped output call on channel.
func RecordDrop(channel string) {
	droppedRecords.WithLabelValues(channel).Inc()
}

// ObserveLockWait records how long a lock acquisition blocked.
func ObserveLockWait(start time.Time) {
	lockWait.Observe(time.Since(start).Seconds())
}

// RecordInit counts one init call with its result.
func RecordInit(result string) {
	initResults.WithLabelValues(result).Inc()
}

// RecordPoolCreate counts one allocation by pool.
func RecordPoolCreate(pool string) {
	poolCreated.WithLabelValues(pool).Inc()
}

// RecordPublish counts one event published on topic.
func RecordPublish(topic string) {
	eventsPublished.WithLabelValues(topic).Inc()
}
