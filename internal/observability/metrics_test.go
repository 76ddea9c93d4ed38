package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordValidation(t *testing.T) {
	m := NewMetrics()
	m.RecordValidation("repair_request", "ok")
	m.RecordValidation("repair_request", "ok")
	m.RecordValidation("repair_request", "ROLE_MISMATCH")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.validations.WithLabelValues("repair_request", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues("repair_request", "ROLE_MISMATCH")))
}

func TestMetricsSetFindingsResets(t *testing.T) {
	m := NewMetrics()
	m.SetFindings(map[string]int{"duplicate_name": 2, "orphan_reference": 1})
	m.SetFindings(map[string]int{"duplicate_name": 1})

	assert.Equal(t, 1, testutil.CollectAndCount(m.findings))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.findings.WithLabelValues("duplicate_name")))
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/reports/overdue", "GET", 200, 5*time.Millisecond)

	expected := `
# HELP repair_http_requests_total HTTP requests by route, method and status
# TYPE repair_http_requests_total counter
repair_http_requests_total{method="GET",path="/reports/overdue",status="200"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "repair_http_requests_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordValidation("x", "ok")
		m.SetFindings(map[string]int{"x": 1})
	})
}
