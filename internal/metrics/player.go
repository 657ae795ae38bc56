package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playerOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "player_requests_total",
			Help: "Total player operations by result and op",
		},
		[]string{"result", "op"},
	)

	playerOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "player_request_duration_ms",
			Help:    "Player operation duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"result", "op"},
	)
)

// RecordPlayerOp 记录玩家类操作指标
// op: "create" | "get" | "reset" | "history"
func RecordPlayerOp(result, op string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	o := strings.ToLower(strings.TrimSpace(op))
	if o == "" {
		o = "unknown"
	}
	playerOpTotal.WithLabelValues(res, o).Inc()
	playerOpDuration.WithLabelValues(res, o).Observe(float64(time.Since(started).Milliseconds()))
}
