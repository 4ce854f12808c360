// Package metrics provides Prometheus metrics for the fleetstats service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fleetstats"

var (
	eventsDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_decoded_total",
		Help:      "Inbound messages successfully decoded into vehicle events.",
	})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Inbound messages rejected by the decoder.",
	})
	eventsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_duplicate_total",
		Help:      "Events suppressed because their aid was already processed.",
	})
	batchesCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_committed_total",
		Help:      "Batches successfully folded into the fleet aggregate.",
	})
	commitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commit_failures_total",
		Help:      "Batches dropped due to store errors.",
	})
	publishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_failures_total",
		Help:      "Outbound aggregate publications that failed.",
	})
	windowSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "window_size",
		Help:      "Number of events in the most recent batch window.",
	})
)

func RecordEventDecoded()      { eventsDecoded.Inc() }
func RecordEventDropped()      { eventsDropped.Inc() }
func RecordDuplicates(n int)   { eventsDuplicate.Add(float64(n)) }
func RecordBatchCommitted()    { batchesCommitted.Inc() }
func RecordCommitFailure()     { commitFailures.Inc() }
func RecordPublishFailure()    { publishFailures.Inc() }
func UpdateWindowSize(n int)   { windowSize.Set(float64(n)) }
