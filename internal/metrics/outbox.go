package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outboxPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_publish_total",
			Help: "Outbox messages published by topic and result",
		},
		[]string{"topic", "result"},
	)

	outboxBacklog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_batch",
			Help: "Pending outbox rows picked up in the last scan",
		},
	)
)

// RecordOutboxPublish result: "success" | "fail"
func RecordOutboxPublish(topic, result string) {
	if result != "success" {
		result = "fail"
	}
	outboxPublishTotal.WithLabelValues(topic, result).Inc()
}

// SetOutboxBatch 记录最近一次扫描到的待发送条数
func SetOutboxBatch(n int) { outboxBacklog.Set(float64(n)) }
