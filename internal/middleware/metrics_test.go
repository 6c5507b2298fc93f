package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/familyvault/familyvault/internal/telemetry"
)

// gatherMetrics drains a collector into dto form.
func gatherMetrics(c prometheus.Collector) []*dto.Metric {
	ch := make(chan prometheus.Metric, 32)
	c.Collect(ch)
	close(ch)
	var out []*dto.Metric
	for m := range ch {
		dm := &dto.Metric{}
		if m.Write(dm) == nil {
			out = append(out, dm)
		}
	}
	return out
}

// labelsMatch reports whether dm carries every label pair in want.
func labelsMatch(dm *dto.Metric, want map[string]string) bool {
	for k, v := range want {
		ok := false
		for _, lp := range dm.GetLabel() {
			if lp.GetName() == k && lp.GetValue() == v {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func counterValue(cv *prometheus.CounterVec, want map[string]string) float64 {
	for _, dm := range gatherMetrics(cv) {
		if labelsMatch(dm, want) {
			return dm.GetCounter().GetValue()
		}
	}
	return 0
}

func histogramCount(hv *prometheus.HistogramVec, want map[string]string) uint64 {
	for _, dm := range gatherMetrics(hv) {
		if labelsMatch(dm, want) {
			return dm.GetHistogram().GetSampleCount()
		}
	}
	return 0
}

func metricsRouter(status int) *gin.Engine {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/documents/:id", func(c *gin.Context) { c.Status(status) })
	return r
}

func TestMetricsMiddleware_CountsRequests(t *testing.T) {
	labels := map[string]string{"method": "GET", "path": "/documents/:id", "status": "200"}
	before := counterValue(telemetry.HTTPRequestsTotal, labels)

	w := httptest.NewRecorder()
	metricsRouter(http.StatusOK).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil))

	if after := counterValue(telemetry.HTTPRequestsTotal, labels); after-before < 1 {
		t.Errorf("http_requests_total: before=%.0f after=%.0f, want an increment", before, after)
	}
}

func TestMetricsMiddleware_ObservesDuration(t *testing.T) {
	labels := map[string]string{"method": "GET", "path": "/documents/:id"}
	before := histogramCount(telemetry.HTTPRequestDuration, labels)

	w := httptest.NewRecorder()
	metricsRouter(http.StatusOK).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/doc-2", nil))

	if after := histogramCount(telemetry.HTTPRequestDuration, labels); after <= before {
		t.Errorf("http_request_duration_seconds count: before=%d after=%d, want an increase", before, after)
	}
}

func TestMetricsMiddleware_CountsErrorStatuses(t *testing.T) {
	labels := map[string]string{"method": "GET", "path": "/documents/:id", "status": "500"}
	before := counterValue(telemetry.HTTPRequestsTotal, labels)

	w := httptest.NewRecorder()
	metricsRouter(http.StatusInternalServerError).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/doc-3", nil))

	if after := counterValue(telemetry.HTTPRequestsTotal, labels); after-before < 1 {
		t.Errorf("status=500 series not incremented: before=%.0f after=%.0f", before, after)
	}
}

func TestMetricsMiddleware_LabelsUseRouteTemplate(t *testing.T) {
	w := httptest.NewRecorder()
	metricsRouter(http.StatusOK).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/doc-42", nil))

	for _, dm := range gatherMetrics(telemetry.HTTPRequestsTotal) {
		if labelsMatch(dm, map[string]string{"path": "/documents/doc-42"}) {
			t.Fatal("raw URL recorded as path label; want the route template /documents/:id")
		}
	}
}

func TestMetricsMiddleware_UnmatchedRoutesUseSentinel(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/no-such-route", nil))

	if counterValue(telemetry.HTTPRequestsTotal, map[string]string{"path": "<no-route>"}) < 1 {
		t.Error("unmatched request not recorded under the <no-route> sentinel")
	}
}
