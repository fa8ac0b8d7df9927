package monitoring

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/itemsvc/pkg/constants"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var itemKey = MetricKey{Method: "GET", Route: "/api/item/{id}", StatusClass: "2xx"}

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r, err := NewRegistry(opts...)
	require.NoError(t, err)
	return r
}

func findHistogram(t *testing.T, r *Registry, key MetricKey) *dto.Histogram {
	t.Helper()
	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != constants.MetricRequestDuration {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels[constants.LabelMethod] == key.Method &&
				labels[constants.LabelRoute] == key.Route &&
				labels[constants.LabelStatusClass] == key.StatusClass {
				return m.GetHistogram()
			}
		}
	}
	t.Fatalf("histogram for %+v not found", key)
	return nil
}

func TestRegistry_ObserveRequest(t *testing.T) {
	r := newTestRegistry(t)

	r.ObserveRequest(itemKey, 3*time.Millisecond)
	r.ObserveRequest(itemKey, 30*time.Millisecond)
	r.ObserveRequest(MetricKey{Method: "GET", Route: "/api/item/{id}", StatusClass: "4xx"}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("GET", "/api/item/{id}", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("GET", "/api/item/{id}", "4xx")))

	h := findHistogram(t, r, itemKey)
	assert.Equal(t, uint64(2), h.GetSampleCount())
	assert.InDelta(t, 0.033, h.GetSampleSum(), 1e-9)
}

func TestRegistry_HistogramBucketsAreCumulative(t *testing.T) {
	r := newTestRegistry(t)

	for _, d := range []time.Duration{
		time.Millisecond, 7 * time.Millisecond, 40 * time.Millisecond,
		300 * time.Millisecond, 2 * time.Second, 20 * time.Second,
	} {
		r.ObserveRequest(itemKey, d)
	}

	h := findHistogram(t, r, itemKey)
	buckets := h.GetBucket()
	require.Len(t, buckets, 11)

	var prev uint64
	for i, b := range buckets {
		if i > 0 {
			assert.Greater(t, b.GetUpperBound(), buckets[i-1].GetUpperBound())
		}
		assert.GreaterOrEqual(t, b.GetCumulativeCount(), prev)
		prev = b.GetCumulativeCount()
	}
	assert.Equal(t, uint64(1), buckets[0].GetCumulativeCount()) // <= 0.005
	assert.Equal(t, uint64(5), buckets[len(buckets)-1].GetCumulativeCount())
	assert.Equal(t, uint64(6), h.GetSampleCount())

	out, err := r.Snapshot()
	require.NoError(t, err)
	assert.Contains(t, string(out),
		`http_request_duration_seconds_bucket{method="GET",route="/api/item/{id}",status_class="2xx",le="+Inf"} 6`)
	assert.Contains(t, string(out),
		`http_request_duration_seconds_count{method="GET",route="/api/item/{id}",status_class="2xx"} 6`)
}

func TestRegistry_CustomBuckets(t *testing.T) {
	r := newTestRegistry(t, WithBuckets([]float64{0.1, 1}))
	r.ObserveRequest(itemKey, 500*time.Millisecond)

	h := findHistogram(t, r, itemKey)
	require.Len(t, h.GetBucket(), 2)
	assert.Equal(t, uint64(0), h.GetBucket()[0].GetCumulativeCount())
	assert.Equal(t, uint64(1), h.GetBucket()[1].GetCumulativeCount())
}

func TestNewRegistry_RejectsInvalidBuckets(t *testing.T) {
	_, err := NewRegistry(WithBuckets(nil))
	assert.Error(t, err)

	_, err = NewRegistry(WithBuckets([]float64{1, 0.5}))
	assert.Error(t, err)
}

func TestRegistry_AdjustInFlight(t *testing.T) {
	r := newTestRegistry(t)

	r.AdjustInFlight("/api/item/{id}", 1)
	r.AdjustInFlight("/api/item/{id}", 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.inFlight.WithLabelValues("/api/item/{id}")))

	r.AdjustInFlight("/api/item/{id}", -1)
	r.AdjustInFlight("/api/item/{id}", -1)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.inFlight.WithLabelValues("/api/item/{id}")))
}

func TestRegistry_InvalidLabelIsDropped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := newTestRegistry(t, WithLogger(NewZapLoggerWithCore(core)))

	bad := string([]byte{0xff, 0xfe})
	assert.NotPanics(t, func() {
		r.ObserveRequest(MetricKey{Method: "GET", Route: bad, StatusClass: "2xx"}, time.Millisecond)
		r.AdjustInFlight(bad, 1)
	})

	assert.Equal(t, 0, testutil.CollectAndCount(r.requests))
	assert.Equal(t, 0, testutil.CollectAndCount(r.inFlight))
	assert.Equal(t, 2, logs.FilterMessage("Metric observation dropped").Len())
}

func TestRegistry_RenderIsDeterministic(t *testing.T) {
	r := newTestRegistry(t)
	r.ObserveRequest(MetricKey{Method: "GET", Route: "/b", StatusClass: "2xx"}, time.Millisecond)
	r.ObserveRequest(MetricKey{Method: "GET", Route: "/a", StatusClass: "5xx"}, time.Millisecond)
	r.AdjustInFlight("/a", 1)

	first, err := r.Snapshot()
	require.NoError(t, err)
	second, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	text := string(first)
	assert.Contains(t, text, `http_requests_received_total{method="GET",route="/a",status_class="5xx"} 1`)
	assert.Contains(t, text, `http_requests_in_progress{route="/a"} 1`)
	assert.Less(t,
		strings.Index(text, `route="/a",status_class="5xx"} 1`),
		strings.Index(text, `route="/b",status_class="2xx"} 1`))
	assert.True(t, strings.HasPrefix(r.ContentType(), "text/plain"))
}

func TestRegistry_RuntimeCollectors(t *testing.T) {
	r := newTestRegistry(t, WithRuntimeCollectors(true))

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	assert.Contains(t, buf.String(), "go_goroutines")
}

func TestRegistry_ConcurrentUpdatesAndRender(t *testing.T) {
	r := newTestRegistry(t)
	const workers = 64
	const perWorker = 200

	stop := make(chan struct{})
	var scrapes sync.WaitGroup
	scrapes.Add(1)
	go func() {
		defer scrapes.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, err := r.Snapshot()
			assert.NoError(t, err)
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := itemKey
			if w%2 == 1 {
				key.StatusClass = "5xx"
			}
			for i := 0; i < perWorker; i++ {
				r.AdjustInFlight(key.Route, 1)
				r.ObserveRequest(key, time.Duration(i)*time.Microsecond)
				r.AdjustInFlight(key.Route, -1)
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	scrapes.Wait()

	assert.Equal(t, 0.0, testutil.ToFloat64(r.inFlight.WithLabelValues(itemKey.Route)))
	assert.Equal(t, float64(workers/2*perWorker), testutil.ToFloat64(r.requests.WithLabelValues("GET", itemKey.Route, "2xx")))
	assert.Equal(t, float64(workers/2*perWorker), testutil.ToFloat64(r.requests.WithLabelValues("GET", itemKey.Route, "5xx")))
	assert.Equal(t, uint64(workers/2*perWorker), findHistogram(t, r, itemKey).GetSampleCount())
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(200))
	assert.Equal(t, "2xx", StatusClass(204))
	assert.Equal(t, "4xx", StatusClass(404))
	assert.Equal(t, "5xx", StatusClass(503))
	assert.Equal(t, "unknown", StatusClass(0))
	assert.Equal(t, "unknown", StatusClass(600))
}

func TestNormalizeMethod(t *testing.T) {
	assert.Equal(t, "GET", NormalizeMethod("GET"))
	assert.Equal(t, "DELETE", NormalizeMethod("DELETE"))
	assert.Equal(t, "OTHER", NormalizeMethod("PURGE"))
	assert.Equal(t, "OTHER", NormalizeMethod("get"))
}
