package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess          = "success"
	OutcomeValidationError  = "validation_error"
	OutcomeConfigError      = "configuration_error"
	OutcomeTransientError   = "transient_upstream_error"
	OutcomeUpstreamError    = "upstream_error"
	OutcomeInternalError    = "internal_error"
	upstreamTransportFailed = "transport_error"
)

// ImageRecorder 图像生成指标记录器，nil 时不记录
type ImageRecorder struct {
	requests *prometheus.CounterVec
	upstream *prometheus.HistogramVec
}

func NewImageRecorder(registry *prometheus.Registry) (*ImageRecorder, error) {
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	r := &ImageRecorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_generation_requests_total",
			Help: "Total number of image generation requests by outcome",
		}, []string{"outcome"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "image_generation_upstream_duration_seconds",
			Help:    "Inference API call latency in seconds by upstream status",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"status"}),
	}

	for _, collector := range []prometheus.Collector{r.requests, r.upstream} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func (r *ImageRecorder) ObserveOutcome(outcome string) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(outcome).Inc()
}

// ObserveUpstream 记录一次上游调用耗时，status 为 0 表示未收到响应
func (r *ImageRecorder) ObserveUpstream(status int, duration time.Duration) {
	if r == nil {
		return
	}
	label := upstreamTransportFailed
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.upstream.WithLabelValues(label).Observe(duration.Seconds())
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
