package monitoring

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
	"github.com/turtacn/itemsvc/pkg/constants"
	"github.com/turtacn/itemsvc/pkg/logger"
)

// MetricKey identifies one request series.
type MetricKey struct {
	Method      string
	Route       string
	StatusClass string
}

// Registry owns the request counters, duration histograms and in-flight gauges of the process.
//
// Every series is an independent atomic value inside the prometheus vectors, so concurrent
// updates to different keys never contend on a shared lock. Recording failures are logged and
// dropped; they never surface to callers.
type Registry struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	format   expfmt.Format
	logger   logger.Logger
}

type registryOptions struct {
	buckets           []float64
	runtimeCollectors bool
	logger            logger.Logger
}

// Option configures a Registry.
type Option func(*registryOptions)

// WithBuckets overrides the duration histogram boundaries (seconds, strictly ascending).
// +Inf is always appended implicitly.
func WithBuckets(buckets []float64) Option {
	return func(o *registryOptions) { o.buckets = buckets }
}

// WithRuntimeCollectors registers the Go runtime and process collectors.
func WithRuntimeCollectors(enabled bool) Option {
	return func(o *registryOptions) { o.runtimeCollectors = enabled }
}

// WithLogger sets the logger used to report dropped observations.
func WithLogger(log logger.Logger) Option {
	return func(o *registryOptions) { o.logger = log }
}

// NewRegistry creates a registry with the request metric families registered.
func NewRegistry(opts ...Option) (*Registry, error) {
	o := registryOptions{
		buckets: prometheus.DefBuckets,
		logger:  logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateBuckets(o.buckets); err != nil {
		return nil, err
	}

	r := &Registry{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: constants.MetricRequestsTotal,
				Help: "Total HTTP requests received.",
			},
			[]string{constants.LabelMethod, constants.LabelRoute, constants.LabelStatusClass},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    constants.MetricRequestDuration,
				Help:    "HTTP request duration in seconds.",
				Buckets: append([]float64(nil), o.buckets...),
			},
			[]string{constants.LabelMethod, constants.LabelRoute, constants.LabelStatusClass},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: constants.MetricRequestsInFlight,
				Help: "HTTP requests currently in progress.",
			},
			[]string{constants.LabelRoute},
		),
		format: expfmt.NewFormat(expfmt.TypeTextPlain),
		logger: o.logger,
	}

	cs := []prometheus.Collector{r.requests, r.duration, r.inFlight}
	if o.runtimeCollectors {
		cs = append(cs,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return r, nil
}

// ObserveRequest records one completed request: the counter for key is incremented and
// duration is added to the matching histogram.
func (r *Registry) ObserveRequest(key MetricKey, duration time.Duration) {
	defer r.recoverRecording("observe_request")

	counter, err := r.requests.GetMetricWithLabelValues(key.Method, key.Route, key.StatusClass)
	if err != nil {
		r.dropped("observe_request", err)
		return
	}
	histogram, err := r.duration.GetMetricWithLabelValues(key.Method, key.Route, key.StatusClass)
	if err != nil {
		r.dropped("observe_request", err)
		return
	}

	counter.Inc()
	histogram.Observe(duration.Seconds())
}

// AdjustInFlight atomically adds delta to the in-flight gauge of route.
func (r *Registry) AdjustInFlight(route string, delta int) {
	defer r.recoverRecording("adjust_in_flight")

	gauge, err := r.inFlight.GetMetricWithLabelValues(route)
	if err != nil {
		r.dropped("adjust_in_flight", err)
		return
	}
	gauge.Add(float64(delta))
}

// Render writes the text exposition of every registered series to w.
// Families are sorted by name and series by label values, so output is deterministic.
func (r *Registry) Render(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, r.format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Snapshot renders the registry into memory.
func (r *Registry) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ContentType is the media type of Render's output.
func (r *Registry) ContentType() string {
	return string(r.format)
}

// Gatherer exposes the underlying prometheus registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) recoverRecording(op string) {
	if rec := recover(); rec != nil {
		r.dropped(op, fmt.Errorf("panic: %v", rec))
	}
}

func (r *Registry) dropped(op string, err error) {
	r.logger.Warn(context.Background(), "Metric observation dropped", logger.Fields{
		"operation": op,
		"error":     err.Error(),
	})
}

func validateBuckets(buckets []float64) error {
	if len(buckets) == 0 {
		return fmt.Errorf("histogram buckets must not be empty")
	}
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return fmt.Errorf("histogram buckets must be strictly ascending, got %v after %v", buckets[i], buckets[i-1])
		}
	}
	return nil
}

// StatusClass buckets an HTTP status code as 1xx..5xx.
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}

var knownMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodConnect: {},
	http.MethodOptions: {},
	http.MethodTrace:   {},
}

// NormalizeMethod maps non-standard request methods to OTHER so clients cannot grow the label set.
func NormalizeMethod(method string) string {
	if _, ok := knownMethods[method]; ok {
		return method
	}
	return "OTHER"
}
