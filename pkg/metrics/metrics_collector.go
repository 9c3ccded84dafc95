package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	// 上游平台请求指标
	platformRequestsTotal   *prometheus.CounterVec
	platformRequestDuration *prometheus.HistogramVec

	// 引擎操作指标
	engineOpsTotal *prometheus.CounterVec

	// 缓存指标
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	// 会话与轮询
	activeSessions prometheus.Gauge
	pollerTicks    prometheus.Counter

	// 上传指标
	uploadBytesTotal prometheus.Counter
	uploadsTotal     *prometheus.CounterVec
}

var (
	collector *MetricsCollector
	once      sync.Once
)

// Default 全局收集器，promauto 只能注册一次
func Default() *MetricsCollector {
	once.Do(func() {
		collector = &MetricsCollector{
			platformRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "platform_requests_total",
					Help: "Total number of requests to the creator platform API",
				},
				[]string{"method", "endpoint", "status"},
			),
			platformRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "platform_request_duration_seconds",
					Help:    "Creator platform API request duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "endpoint"},
			),
			engineOpsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "engine_operations_total",
					Help: "Total number of feed engine operations",
				},
				[]string{"op", "result"},
			),
			cacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache"},
			),
			cacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache"},
			),
			activeSessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "engine_active_sessions",
					Help: "Number of live engine sessions",
				},
			),
			pollerTicks: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "feed_poller_ticks_total",
					Help: "Total number of new-post poll cycles",
				},
			),
			uploadBytesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "upload_bytes_total",
					Help: "Total bytes forwarded to the platform upload endpoint",
				},
			),
			uploadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "uploads_total",
					Help: "Total number of media uploads",
				},
				[]string{"result"},
			),
		}
	})
	return collector
}

// ObservePlatformRequest 记录一次平台请求
func (m *MetricsCollector) ObservePlatformRequest(method, endpoint string, status int, duration time.Duration) {
	m.platformRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.platformRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// CountOp 记录一次引擎操作结果，result 为 "ok" 或 "error"
func (m *MetricsCollector) CountOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.engineOpsTotal.WithLabelValues(op, result).Inc()
}

func (m *MetricsCollector) CacheHit(cache string)  { m.cacheHitsTotal.WithLabelValues(cache).Inc() }
func (m *MetricsCollector) CacheMiss(cache string) { m.cacheMissesTotal.WithLabelValues(cache).Inc() }

func (m *MetricsCollector) SessionOpened() { m.activeSessions.Inc() }
func (m *MetricsCollector) SessionClosed() { m.activeSessions.Dec() }

func (m *MetricsCollector) PollerTick() { m.pollerTicks.Inc() }

// ObserveUpload 记录一次上传
func (m *MetricsCollector) ObserveUpload(bytes int64, err error) {
	m.uploadBytesTotal.Add(float64(bytes))
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.uploadsTotal.WithLabelValues(result).Inc()
}
