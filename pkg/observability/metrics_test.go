package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Document(t *testing.T) {
	m := NewMetrics()

	m.Document("ok", 3)
	m.Document("ok", 0)
	m.Document("unreadable", 0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.DocumentsProcessed.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DocumentsProcessed.WithLabelValues("unreadable")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.RowsExtracted))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EmptyDocuments))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Document("ok", 1)
		m.Failure("x")
		m.Request("/", "200")
		m.ObserveRun(time.Now())
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.Failure("invalid_amount")
	m.ObserveRun(time.Now().Add(-time.Second))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `statement_extractor_run_failures_total{reason="invalid_amount"} 1`)
	assert.Contains(t, string(body), "statement_extractor_run_duration_seconds_count 1")
}
