package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hr"

var (
	// HTTPRequestsTotal 按路由、方法、状态码统计请求数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests, partitioned by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// IdentityCallsTotal 人脸识别服务调用次数（含重试）
	IdentityCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_calls_total",
			Help:      "Outbound calls to the face identity service.",
		},
		[]string{"operation", "result"},
	)

	// BackgroundTasksTotal 后台任务执行结果
	BackgroundTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_tasks_total",
			Help:      "Background tasks executed after commit.",
		},
		[]string{"task", "result"},
	)

	// LogStatementsTotal 各级别日志条数
	LogStatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_statements_total",
			Help:      "Number of log statements, differentiated by log level.",
		},
		[]string{"level"},
	)
)

// Result 将 error 归一为 ok / error 标签
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
