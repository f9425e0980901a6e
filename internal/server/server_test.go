package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivottriage/config"
	"pivottriage/internal/baseline"
	"pivottriage/internal/metrics"
	"pivottriage/internal/pipeline"
	"pivottriage/pkg/models"
)

const escalationBody = `[
  {"timestamp":"2024-03-01T10:00:00Z","event_id":4688,"computer":"WS01","ProcessName":"cmd.exe","CommandLine":"powershell rundll32.exe mimikatz.dll dumpcreds"},
  {"timestamp":"2024-03-01T10:01:00Z","event_id":4624,"computer":"WS01"},
  {"event_id":4688,"CommandLine":"no timestamp"}
]`

type recordingWriter struct {
	outcomes []*models.Outcome
}

func (w *recordingWriter) WriteOutcome(o *models.Outcome) error {
	w.outcomes = append(w.outcomes, o)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newTestServer(t *testing.T, cfgMut func(*pipeline.Config)) (*httptest.Server, *recordingWriter) {
	t.Helper()
	c := config.Default().PivotTriage
	pcfg := pipeline.ConfigFrom(&c)
	if cfgMut != nil {
		cfgMut(&pcfg)
	}

	reg := prometheus.NewRegistry()
	p, err := pipeline.New(pcfg, nil, metrics.New(reg))
	require.NoError(t, err)

	w := &recordingWriter{}
	s := New(Config{MaxBodyBytes: 4096}, p, baseline.Config{SuspiciousTerms: c.Baseline.SuspiciousTerms}, reg, w)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv, w
}

func post(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var got map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	return resp, got
}

func TestAnalyzeDecided(t *testing.T) {
	srv, w := newTestServer(t, nil)

	resp, got := post(t, srv.URL+"/api/v1/analyze", escalationBody)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "decided", got["status"])

	ingest := got["ingest"].(map[string]interface{})
	assert.Equal(t, 3.0, ingest["total"])
	assert.Equal(t, 1.0, ingest["skipped_malformed"])
	assert.Equal(t, 1.0, ingest["filtered_kind"])

	record := got["record"].(map[string]interface{})
	assert.Equal(t, "ESCALATE", record["decision"])
	assert.Equal(t, 16.0, record["max_score"])
	require.Len(t, w.outcomes, 1)
}

func TestAnalyzeNoSignal(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, got := post(t, srv.URL+"/api/v1/analyze", `[{"timestamp":"2024-03-01T10:00:00Z","event_id":4688,"ProcessName":"git.exe","CommandLine":"git pull"}]`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no_signal", got["status"])
	assert.Equal(t, "EmptyCandidateSet", got["error_kind"])
	assert.Nil(t, got["record"])
}

func TestAnalyzeFailedIsUnprocessable(t *testing.T) {
	srv, _ := newTestServer(t, func(c *pipeline.Config) {
		c.DeriveManual = true
		c.ManualMinutes = 0
	})

	resp, got := post(t, srv.URL+"/api/v1/analyze", escalationBody)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "UndefinedReduction", got["error_kind"])
}

func TestAnalyzeRejectsBadBodies(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, _ := post(t, srv.URL+"/api/v1/analyze", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	big := "[" + strings.Repeat(`{"event_id":4688},`, 400) + `{"event_id":4688}]`
	resp, _ = post(t, srv.URL+"/api/v1/analyze", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestBaselineEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body := `[
	  {"timestamp":"2024-03-01T10:00:00Z","event_id":4688,"ProcessName":"explorer.exe","CommandLine":"explorer.exe"},
	  {"timestamp":"2024-03-01T10:06:00Z","event_id":4104,"ScriptBlockText":"Invoke-AtomicTest T1003"}
	]`
	resp, got := post(t, srv.URL+"/api/v1/baseline", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2.0, got["events"])
	assert.Equal(t, 6.0, got["mttr_minutes"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	post(t, srv.URL+"/api/v1/analyze", escalationBody)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pivottriage_outcomes_total{status="decided"} 1`)
}
