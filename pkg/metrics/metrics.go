package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 业务指标
	pixChargesTotal    *prometheus.CounterVec
	webhookEventsTotal *prometheus.CounterVec
	ordersPaidTotal    prometheus.Counter
	watchersActive     prometheus.Gauge
}

var (
	global     *Collector
	globalOnce sync.Once
)

// GetGlobalCollector 获取全局收集器（懒初始化，promauto 注册到默认 registry）
func GetGlobalCollector() *Collector {
	globalOnce.Do(func() {
		global = &Collector{
			httpRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "endpoint", "status"},
			),
			httpRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "endpoint"},
			),
			pixChargesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pix_charges_total",
					Help: "Total number of PIX charge creation attempts by outcome",
				},
				[]string{"outcome"},
			),
			webhookEventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "webhook_events_total",
					Help: "Total number of provider webhook events by mapped status",
				},
				[]string{"status"},
			),
			ordersPaidTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "orders_paid_total",
					Help: "Total number of orders confirmed as paid",
				},
			),
			watchersActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "order_watchers_active",
					Help: "Number of active order event subscriptions",
				},
			),
		}
	})
	return global
}

// RecordHTTPRequest 记录一次 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, endpoint, status string, durationSeconds float64) {
	c.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordPixCharge 记录一次扣款创建结果 (outcome: success/validation/provider_error/error)
func (c *Collector) RecordPixCharge(outcome string) {
	c.pixChargesTotal.WithLabelValues(outcome).Inc()
}

// RecordWebhookEvent 记录一次回调事件（按映射后的内部状态）
func (c *Collector) RecordWebhookEvent(status string) {
	c.webhookEventsTotal.WithLabelValues(status).Inc()
}

// RecordOrderPaid 记录一笔支付确认
func (c *Collector) RecordOrderPaid() {
	c.ordersPaidTotal.Inc()
}

// WatcherStarted / WatcherStopped 维护活跃订阅数
func (c *Collector) WatcherStarted() { c.watchersActive.Inc() }
func (c *Collector) WatcherStopped() { c.watchersActive.Dec() }
