package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_LinkChecked(t *testing.T) {
	m := New()
	m.LinkChecked("ok", 120*time.Millisecond)
	m.LinkChecked("ok", 80*time.Millisecond)
	m.LinkChecked("HttpError", time.Second)
	m.LinkChecked("", time.Millisecond)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.linksChecked.WithLabelValues("ok")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.linksChecked.WithLabelValues("HttpError")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.linksChecked.WithLabelValues("unknown")), 0.001)
	assert.Equal(t, 3, testutil.CollectAndCount(m.checkDuration))
}

func TestMetrics_CleanupDone(t *testing.T) {
	m := New()
	m.CleanupDone("duplicates", 3, 1)
	m.CleanupDone("empty", 0, 0)

	assert.InDelta(t, 3.0, testutil.ToFloat64(m.cleanupRemoved.WithLabelValues("duplicates")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.cleanupFailed.WithLabelValues("duplicates")), 0.001)
	assert.Equal(t, 1, testutil.CollectAndCount(m.cleanupRemoved))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.LinkChecked("Timeout", 10*time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `bmlens_check_links_total{outcome="Timeout"} 1`)
	assert.Contains(t, string(body), "bmlens_check_duration_seconds_bucket")
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	m := New()
	m.LinkChecked("ok", time.Millisecond)

	path := filepath.Join(t.TempDir(), "bmlens.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `bmlens_check_links_total{outcome="ok"} 1`)

	err = m.WriteToTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
