package metrics

import (
	"strconv"
	"time"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request duration in ms",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"path", "method"},
	)
)

const metricsStartKey = "_metrics_start"

// HTTPMetricsFilter 记录请求开始时间
func HTTPMetricsFilter(ctx *context.Context) {
	ctx.Input.SetData(metricsStartKey, time.Now())
}

// HTTPMetricsAfter 在响应完成后记录耗时与状态码
// path 使用路由模板（/api/player/:id），避免按玩家ID膨胀标签
func HTTPMetricsAfter(ctx *context.Context) {
	start, _ := ctx.Input.GetData(metricsStartKey).(time.Time)
	if start.IsZero() {
		return
	}
	path := routePattern(ctx)
	method := ctx.Input.Method()
	status := ctx.ResponseWriter.Status
	if status == 0 {
		status = 200
	}
	httpReqDuration.WithLabelValues(path, method).Observe(float64(time.Since(start).Milliseconds()))
	httpReqTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

func routePattern(ctx *context.Context) string {
	if p, ok := ctx.Input.GetData("RouterPattern").(string); ok && p != "" {
		return p
	}
	return ctx.Input.URL()
}
