package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveAnalysis("regression", "ok")
	m.ObserveAnalysis("regression", "ok")
	m.ObserveAnalysis("projection", "insufficient")
	m.ObserveInvalidation("season")
	m.ScanFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analyses.WithLabelValues("regression", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("projection", "insufficient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invalidations.WithLabelValues("season")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scanFailures))
}

func TestObserveScan(t *testing.T) {
	m := New()
	m.ObserveScan(3*time.Second, 4, 2)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.candidates.WithLabelValues("buy")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.candidates.WithLabelValues("sell")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/v1/players/{playerID}/regression", http.MethodGet, http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "batting_http_request_duration_seconds")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/players/{playerID}/regression"`)
}
