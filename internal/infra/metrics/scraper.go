package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(unitsProcessedTotal, boxesExtractedTotal, unitDurationMs) }

var unitsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scraping_units_processed_total",
		Help: "Units processed across all jobs, labeled by outcome.",
	},
	[]string{"status"}, // 'success', 'failed'
)

var boxesExtractedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "scraping_boxes_extracted_total",
		Help: "Box records extracted and flushed to the sink.",
	},
)

var unitDurationMs = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "scraping_unit_duration_ms",
		Help:    "Per-unit extraction duration distribution in milliseconds.",
		Buckets: []float64{250, 1000, 5000, 15000, 60000, 180000, 600000},
	},
)

func ObserveUnit(status string, boxes int, elapsedMs int64) {
	unitsProcessedTotal.WithLabelValues(norm(status)).Inc()
	if boxes > 0 {
		boxesExtractedTotal.Add(float64(boxes))
	}
	unitDurationMs.Observe(float64(elapsedMs))
}
