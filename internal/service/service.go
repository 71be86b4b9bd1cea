// Package service wires every internal/* component into one running
// diagram microservice: the HTTP mux (upgrade endpoint plus the identity,
// health, and metrics routes), the session registry, and the request
// orchestrator.
//
// The mux-plus-graceful-shutdown shape is grounded on internal/webui/server.go's
// Server.Start/Stop (http.Server run in a goroutine, torn down on context
// cancellation), generalized from the teacher's chat WebUI to this service's
// single /ws upgrade endpoint and JSON status routes.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/archviz/diagramsvc/internal/cache"
	"github.com/archviz/diagramsvc/internal/chartgen"
	"github.com/archviz/diagramsvc/internal/config"
	"github.com/archviz/diagramsvc/internal/logging"
	"github.com/archviz/diagramsvc/internal/mermaidgen"
	"github.com/archviz/diagramsvc/internal/model"
	"github.com/archviz/diagramsvc/internal/objectstore"
	"github.com/archviz/diagramsvc/internal/orchestrator"
	"github.com/archviz/diagramsvc/internal/render"
	"github.com/archviz/diagramsvc/internal/retrypolicy"
	"github.com/archviz/diagramsvc/internal/session"
	"github.com/archviz/diagramsvc/internal/svgtmpl"
	"github.com/archviz/diagramsvc/internal/transport"
)

// Metrics are the process-wide counters the /metrics endpoint reports.
// Counters only: spec.md's Non-goals exclude a metrics backend, but a
// service this shape always exposes its own request tallies the way the
// teacher's CoreLogger-backed components do (internal/logging, this
// package) regardless of what's excluded downstream of it.
type Metrics struct {
	requestsReceived  atomic.Int64
	requestsCompleted atomic.Int64
	requestsFailed    atomic.Int64
	requestsCancelled atomic.Int64
}

func (m *Metrics) snapshot() map[string]int64 {
	return map[string]int64{
		"requests_received":  m.requestsReceived.Load(),
		"requests_completed": m.requestsCompleted.Load(),
		"requests_failed":    m.requestsFailed.Load(),
		"requests_cancelled": m.requestsCancelled.Load(),
	}
}

// Service bundles every wired component and the HTTP server that fronts
// them.
type Service struct {
	templates *svgtmpl.Library
	cache     *cache.Cache
	orch      *orchestrator.Orchestrator
	sessions  *session.Manager
	metrics   Metrics

	httpServer *http.Server
}

// countingSender wraps a transport.Conn (satisfying orchestrator.Sender)
// to update Metrics from the terminal envelope an orchestrator run emits,
// without the orchestrator itself needing to know about metrics.
type countingSender struct {
	orchestrator.Sender
	metrics *Metrics
}

func (c countingSender) Send(env model.OutEnvelope) {
	switch env.Type {
	case "diagram_response":
		if data, ok := env.Data.(model.DiagramResponseData); ok {
			switch data.Status {
			case model.StatusSuccess:
				c.metrics.requestsCompleted.Add(1)
			case model.StatusCancelled:
				c.metrics.requestsCancelled.Add(1)
			}
		}
	case "error":
		c.metrics.requestsFailed.Add(1)
	}
	c.Sender.Send(env)
}

// New builds every component New wires off cfg, loading the template
// library from cfg.TemplateDir eagerly so a misconfigured path fails at
// startup rather than on the first request.
func New(cfg *config.Config) (*Service, error) {
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logging.SetJSON(cfg.LogFormat == "json")

	templates, err := svgtmpl.LoadDir(cfg.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("load templates from %q: %w", cfg.TemplateDir, err)
	}

	llm := mermaidgen.NewLLMClient(mermaidgen.LLMConfig{
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	})

	uploadRetry := retrypolicy.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay(),
		Factor:      cfg.Retry.Factor,
		JitterPct:   cfg.Retry.JitterPct,
	}

	var store *objectstore.Client
	var uploadBreaker *retrypolicy.CircuitBreaker
	if cfg.ObjectStore.URL != "" {
		store = objectstore.New(cfg.ObjectStore.URL, cfg.ObjectStore.Bucket, cfg.ObjectStore.Public, uploadRetry)
		uploadBreaker = retrypolicy.NewCircuitBreaker(retrypolicy.BreakerConfig{
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			SuccessThreshold: cfg.CircuitBreaker.SuccessThreshold,
			OpenTimeout:      cfg.CircuitBreaker.OpenTimeout(),
		})
	}

	svc := &Service{
		templates: templates,
		cache:     cache.New(cfg.Cache.MaxBytes),
		sessions:  session.NewManager(cfg.Limits.MaxConnections, cfg.Limits.MaxRequestsPerSession),
	}

	svc.orch = orchestrator.New(orchestrator.Deps{
		Templates:      templates,
		Mermaid:        mermaidgen.NewGenerator(llm),
		Chart:          chartgen.New(chartgen.ExecutorConfig{Enabled: cfg.Chart.ExecutorEnabled, Timeout: cfg.ChartExecTimeout()}),
		Renderer:       render.New(cfg.Mermaid.CLIPath, cfg.MermaidRenderLimit()),
		Cache:          svc.cache,
		Store:          store,
		UploadBreaker:  uploadBreaker,
		CacheTTL:       cfg.CacheTTL(),
		RequestTimeout: cfg.RequestTimeout(),
	})

	transportCfg := transport.Config{
		OutputQueueCapacity:  cfg.Limits.OutputQueueCapacity,
		BackpressureDeadline: cfg.BackpressureDeadline(),
		IdleTimeout:          cfg.IdleTimeout(),
	}

	ts := transport.NewServer(transportCfg, transport.Handlers{
		OnDiagramRequest: svc.onDiagramRequest,
		OnCancel:         svc.onCancel,
	}, svc.onConnect, svc.onDisconnect)

	svc.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.WSHost, cfg.Server.Port),
		Handler:           svc.routes(ts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return svc, nil
}

func (s *Service) routes(ts *transport.Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/ws", ts.ServeHTTP)
	return mux
}

func (s *Service) onConnect(sessionID, userID string) error {
	_, err := s.sessions.Register(sessionID, userID)
	return err
}

func (s *Service) onDisconnect(sessionID string) {
	s.sessions.Unregister(sessionID)
}

func (s *Service) onDiagramRequest(conn *transport.Conn, requestID string, req model.DiagramRequest) {
	s.metrics.requestsReceived.Add(1)
	sessionID := conn.SessionID()

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.sessions.AddRequest(sessionID, requestID, cancel); err != nil {
		cancel()
		conn.Send(model.OutEnvelope{
			Type:      "error",
			RequestID: requestID,
			Data:      model.ErrorData{Code: "ValidationError", Message: err.Error()},
		})
		return
	}

	sender := countingSender{Sender: conn, metrics: &s.metrics}
	go func() {
		defer cancel()
		defer s.sessions.RemoveRequest(sessionID, requestID)
		s.orch.Run(ctx, sender, requestID, sessionID, req)
	}()
}

func (s *Service) onCancel(conn *transport.Conn, requestID string) {
	s.sessions.Cancel(conn.SessionID(), requestID)
}

// identityResponse is served at GET / (spec.md §6.2 "service identity").
type identityResponse struct {
	Service string   `json:"service"`
	Kinds   []string `json:"supported_diagram_types"`
}

func (s *Service) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, identityResponse{
		Service: "diagramsvc",
		Kinds:   model.SupportedDiagramKinds(),
	})
}

type healthResponse struct {
	Status    string      `json:"status"`
	Sessions  int         `json:"sessions"`
	Templates int         `json:"templates_loaded"`
	Cache     cache.Stats `json:"cache"`
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Sessions:  s.sessions.Count(),
		Templates: len(s.templates.IDs()),
		Cache:     s.cache.Stats(),
	})
}

func (s *Service) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run starts the HTTP server and blocks until ctx is cancelled, at which
// point it shuts the server down gracefully.
func (s *Service) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Logger().Info().Str("addr", s.httpServer.Addr).Msg("diagramsvc listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
