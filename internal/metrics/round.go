package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "round_requests_total",
			Help: "Total play round requests by result and choice",
		},
		[]string{"result", "choice"},
	)

	roundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "round_request_duration_ms",
			Help:    "Play round duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"result", "choice"},
	)

	roundOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "round_outcomes_total",
			Help: "Settled rounds by outcome and whether the stake was carried over",
		},
		[]string{"outcome", "carry"},
	)
)

// RecordRound 记录 PlayRound 的业务指标
// result: "success" | "replay" | 错误标签（如 "insufficient_balance"），空串视为 "fail"
func RecordRound(result, choice string, started time.Time) {
	res := result
	if res == "" {
		res = "fail"
	}
	ch := strings.ToLower(strings.TrimSpace(choice))
	if ch != "small" && ch != "large" {
		ch = "invalid"
	}
	roundTotal.WithLabelValues(res, ch).Inc()
	roundDuration.WithLabelValues(res, ch).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordRoundOutcome 记录一局已提交的结算结果
func RecordRoundOutcome(didWin, carry bool) {
	outcome := "loss"
	if didWin {
		outcome = "win"
	}
	roundOutcomes.WithLabelValues(outcome, strconv.FormatBool(carry)).Inc()
}
