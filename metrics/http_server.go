package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ceyewan/scoregate/xerrors"
)

const (
	MetricHTTPServerRequestTotal    = "http_server_requests_total"
	MetricHTTPServerDurationSeconds = "http_server_request_duration_seconds"
)

var defaultHTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// HTTPServerMetrics HTTP 服务端 RED 指标
type HTTPServerMetrics struct {
	service      string
	requestTotal Counter
	duration     Histogram
}

// NewHTTPServerMetrics 创建 HTTP 服务端指标，service 为空时记为 "unknown"
func NewHTTPServerMetrics(m Meter, service string) (*HTTPServerMetrics, error) {
	if m == nil {
		return nil, xerrors.New("metrics: meter is nil")
	}

	service = strings.TrimSpace(service)
	if service == "" {
		service = "unknown"
	}

	counter, err := m.Counter(MetricHTTPServerRequestTotal, "Total number of HTTP requests.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request counter")
	}
	duration, err := m.Histogram(MetricHTTPServerDurationSeconds, "HTTP request duration in seconds.",
		WithUnit("s"), WithBuckets(defaultHTTPDurationBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request duration histogram")
	}

	return &HTTPServerMetrics{service: service, requestTotal: counter, duration: duration}, nil
}

// Observe 记录一次请求
func (m *HTTPServerMetrics) Observe(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if route = strings.TrimSpace(route); route == "" {
		route = UnknownRoute
	}

	labels := []Label{
		L(LabelService, m.service),
		L(LabelOperation, OperationHTTPServer),
		L(LabelMethod, method),
		L(LabelRoute, route),
		L(LabelStatusClass, HTTPStatusClass(status)),
		L(LabelOutcome, HTTPOutcome(status)),
	}
	m.requestTotal.Inc(ctx, labels...)
	m.duration.Record(ctx, d.Seconds(), labels...)
}
