package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archviz/diagramsvc/internal/config"
	"github.com/archviz/diagramsvc/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TemplateDir = "../../templates"
	cfg.Server.Port = 0
	return cfg
}

func TestNewBuildsEveryComponent(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, svc.httpServer)
	require.NotEmpty(t, svc.templates.IDs())
}

func TestHandleRootListsSupportedKinds(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	svc.handleRoot(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp identityResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "diagramsvc", resp.Service)
	require.Contains(t, resp.Kinds, "pyramid_3")
}

func TestHandleHealthReportsTemplateCount(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	svc.handleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, len(svc.templates.IDs()), resp.Templates)
}

func TestHandleMetricsCountsCompletedRequest(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)

	conn := countingSender{Sender: noopSender{}, metrics: &svc.metrics}
	conn.Send(model.OutEnvelope{
		Type: "diagram_response",
		Data: model.DiagramResponseData{Status: model.StatusSuccess},
	})

	rr := httptest.NewRecorder()
	svc.handleMetrics(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var snapshot map[string]int64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	require.Equal(t, int64(1), snapshot["requests_completed"])
}

type noopSender struct{}

func (noopSender) Send(model.OutEnvelope) {}
