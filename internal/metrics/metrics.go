// Package metrics 把对账与 REST 调用的统计导出为 prometheus 指标。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"Concord/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "concord"
	subsystem = "cache"
)

// CacheSizer 提供各 manager 的缓存条目数，client.Client 实现它。
type CacheSizer interface {
	CacheSizes() map[string]int
}

// Recorder 同时实现 client.Recorder 与 rest.Observer。
type Recorder struct {
	reg *prometheus.Registry

	dispatches   *prometheus.CounterVec
	dispatchTime *prometheus.HistogramVec
	drops        *prometheus.CounterVec
	requests     *prometheus.CounterVec
	requestTime  *prometheus.HistogramVec
}

// New 创建独立 registry 上的指标集合，测试之间互不干扰。
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatches_total",
			Help:      "Gateway dispatches applied to the cache, by type",
		}, []string{"type"}),
		dispatchTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent reconciling one dispatch under the cache lock",
			Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"type"}),
		drops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "drops_total",
			Help:      "Dispatches dropped without touching the cache, by type and reason",
		}, []string{"type", "reason"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rest",
			Name:      "requests_total",
			Help:      "REST requests by method, route bucket and status",
		}, []string{"method", "route", "status"}),
		requestTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rest",
			Name:      "request_duration_seconds",
			Help:      "REST request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (r *Recorder) ObserveDispatch(t events.Type, elapsed time.Duration) {
	r.dispatches.WithLabelValues(t).Inc()
	r.dispatchTime.WithLabelValues(t).Observe(elapsed.Seconds())
}

func (r *Recorder) RecordDrop(t events.Type, reason string) {
	r.drops.WithLabelValues(t, reason).Inc()
}

// ObserveRequest 的 status 为 0 表示请求未得到响应（网络错误、超时）。
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestTime.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// TrackCache 注册缓存规模采集器，每次 scrape 时读取一次。
func (r *Recorder) TrackCache(src CacheSizer) error {
	return r.reg.Register(&cacheCollector{
		src: src,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "entries"),
			"Cached entities per manager kind",
			[]string{"manager"}, nil,
		),
	})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Handler 返回 /metrics 的 HTTP handler。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

type cacheCollector struct {
	src  CacheSizer
	desc *prometheus.Desc
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	for name, n := range c.src.CacheSizes() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), name)
	}
}
