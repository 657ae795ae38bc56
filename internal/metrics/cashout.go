package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cashOutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashout_requests_total",
			Help: "Total cash out requests by result and whether winnings moved",
		},
		[]string{"result", "moved"},
	)

	cashOutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cashout_request_duration_ms",
			Help:    "Cash out duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"result"},
	)
)

// RecordCashOut moved=false 表示无携带彩金的空操作
func RecordCashOut(result string, moved bool, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	cashOutTotal.WithLabelValues(res, strconv.FormatBool(moved)).Inc()
	cashOutDuration.WithLabelValues(res).Observe(float64(time.Since(started).Milliseconds()))
}
