package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findMetric(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestRecordFetch(t *testing.T) {
	m := NewMetrics("quotadeck")
	m.RecordFetch("codex", "success", 0.42)
	m.RecordFetch("codex", "error", 1.2)
	m.RecordFetch("codex", "success", 0.1)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	counter := findMetric(t, families, "quotadeck_fetches_total")
	require.NotNil(t, counter)

	byOutcome := map[string]float64{}
	for _, metric := range counter.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "outcome" {
				byOutcome[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, byOutcome["success"])
	assert.Equal(t, 1.0, byOutcome["error"])

	histogram := findMetric(t, families, "quotadeck_fetch_duration_seconds")
	require.NotNil(t, histogram)
	assert.Equal(t, uint64(3), histogram.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestSetQuotaRemaining(t *testing.T) {
	m := NewMetrics("quotadeck")
	m.SetQuotaRemaining("antigravity", "dev", "claude-gpt", 0.37)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	gauge := findMetric(t, families, "quotadeck_quota_remaining_fraction")
	require.NotNil(t, gauge)
	assert.Equal(t, 0.37, gauge.GetMetric()[0].GetGauge().GetValue())
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewMetrics("quotadeck")
	m.SetAuthEntries("codex", 3)

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "quotadeck_auth_entries")
}
