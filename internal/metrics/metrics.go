// Package metrics exposes Prometheus instrumentation for a running
// edge node: publish throughput, delivery failures, and broker adapter
// connectivity. Within this module only CommandsReceivedTotal (from
// sparkplug.Metric.OnCommand) and AdapterConnected (from the edgenode
// tick loop) are updated; the other collectors are registered and
// exported but never set.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PublishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkplug_publishes_total",
			Help: "Total number of payloads published, by publishable name and kind (birth/data)",
		},
		[]string{"publishable", "kind"},
	)

	UndeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkplug_undelivered_total",
			Help: "Total number of publishes reported undelivered after exhausting retries",
		},
		[]string{"publishable"},
	)

	CommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkplug_commands_received_total",
			Help: "Total number of inbound NCMD/DCMD metrics dispatched to a handler",
		},
		[]string{"metric"},
	)

	AdapterConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sparkplug_adapter_connected",
			Help: "Whether a broker adapter is currently connected (1) or not (0)",
		},
		[]string{"broker"},
	)

	ActiveAdapter = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sparkplug_adapter_active",
			Help: "Whether a broker adapter is the node's current active publishing path (1) or not (0)",
		},
		[]string{"broker"},
	)

	BdSeqCurrent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sparkplug_bdseq_current",
			Help: "The bdSeq value carried by the node's most recent birth/death pair",
		},
	)

	PublishDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sparkplug_publish_duration_seconds",
			Help:    "Time from a publishable becoming dirty to its publish being reported delivered",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(PublishesTotal)
	prometheus.MustRegister(UndeliveredTotal)
	prometheus.MustRegister(CommandsReceivedTotal)
	prometheus.MustRegister(AdapterConnected)
	prometheus.MustRegister(ActiveAdapter)
	prometheus.MustRegister(BdSeqCurrent)
	prometheus.MustRegister(PublishDuration)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for a single operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}
