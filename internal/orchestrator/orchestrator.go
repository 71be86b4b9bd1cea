// Package orchestrator implements the Request Orchestrator (spec.md §4.11):
// the single-responsibility state machine that drives one diagram request
// from Received through cache lookup, routing, generation, rendering,
// upload, and a terminal event, emitting strictly-increasing-per-request
// progress events along the way.
//
// The state-machine shape — a struct owning one unit of work end to end,
// emitting typed events at each transition, recovering a panic into a
// terminal error rather than crashing the caller — is grounded on the
// teacher's core/orchestrator.go and core/runner.go, generalized from
// AgenticGoKit's multi-agent event loop to this service's single-request
// cache -> route -> generate -> render -> upload pipeline.
package orchestrator

import (
	"context"
	"encoding/base64"
	"sync/atomic"
	"time"

	"github.com/archviz/diagramsvc/internal/apperr"
	"github.com/archviz/diagramsvc/internal/cache"
	"github.com/archviz/diagramsvc/internal/chartgen"
	"github.com/archviz/diagramsvc/internal/logging"
	"github.com/archviz/diagramsvc/internal/mermaidgen"
	"github.com/archviz/diagramsvc/internal/model"
	"github.com/archviz/diagramsvc/internal/objectstore"
	"github.com/archviz/diagramsvc/internal/render"
	"github.com/archviz/diagramsvc/internal/retrypolicy"
	"github.com/archviz/diagramsvc/internal/router"
	"github.com/archviz/diagramsvc/internal/svgtmpl"
	"github.com/archviz/diagramsvc/internal/theme"
)

// Sender is the minimal transport surface the orchestrator depends on:
// queuing one outgoing envelope for the connection this request arrived
// on. transport.Conn satisfies this.
type Sender interface {
	Send(model.OutEnvelope)
}

// Deps bundles the components the Orchestrator wires into the pipeline.
// Mermaid, Chart, and Store may be nil: a nil Store means "upload disabled,
// always inline" (spec.md §4.10); Mermaid and Chart being nil simply
// removes that strategy from ever succeeding, which the router's fallback
// chain already tolerates. Templates must be non-nil.
type Deps struct {
	Templates      *svgtmpl.Library
	Mermaid        *mermaidgen.Generator
	Chart          *chartgen.Generator
	Renderer       *render.Renderer
	Cache          *cache.Cache
	Store          *objectstore.Client
	UploadBreaker  *retrypolicy.CircuitBreaker
	CacheTTL       time.Duration
	RequestTimeout time.Duration
}

// Orchestrator constructs one requestRun per Run call; it holds no
// per-request mutable state itself, only the shared, read-only pipeline
// components every request drives.
type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Run drives requestID's lifecycle to a terminal state (Complete, Failed,
// or Cancelled), emitting sequenced status_update/diagram_response/error
// envelopes on conn (spec.md §4.11). It blocks until terminal and must be
// invoked from its own goroutine by the caller (the transport read pump
// spawns one per diagram_request per spec.md §4.1).
//
// ctx should already be scoped to this request's cancellation handle (the
// one the session registry holds); Run layers the per-request wall-clock
// timeout on top of it.
func (o *Orchestrator) Run(ctx context.Context, conn Sender, requestID, sessionID string, req model.DiagramRequest) {
	run := &requestRun{deps: o.deps, conn: conn, requestID: requestID, sessionID: sessionID, start: time.Now()}

	defer func() {
		if rec := recover(); rec != nil {
			logging.Logger().Error().Str("request_id", requestID).Interface("panic", rec).Msg("orchestrator panic recovered")
			run.emitError(apperr.New(apperr.CodeInternal, "internal error"))
		}
	}()

	timeout := o.deps.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run.serve(ctx, req)
}

// requestRun owns one RequestState exclusively from Received to its
// terminal event (spec.md §3 "Ownership").
type requestRun struct {
	deps      Deps
	conn      Sender
	requestID string
	sessionID string
	start     time.Time

	seq      uint64
	terminal atomic.Bool
}

func (r *requestRun) serve(ctx context.Context, req model.DiagramRequest) {
	// Received -> Validated.
	if err := req.Validate(); err != nil {
		r.emitError(apperr.New(apperr.CodeValidation, err.Error()))
		return
	}

	resolved, err := theme.Resolve(
		req.Theme.PrimaryColor, req.Theme.SecondaryColor, req.Theme.AccentColor,
		theme.Scheme(req.Theme.Scheme), req.Theme.Background, req.Theme.SmartThemingEnabled(),
	)
	if err != nil {
		r.emitError(apperr.New(apperr.CodeValidation, err.Error()))
		return
	}

	key := cache.Key(req.DiagramType, req, resolved)

	// Validated -> cache lookup: a hit goes straight to Complete, skipping
	// Routing/Generating/Rendering/Caching/Uploading entirely (spec.md
	// §4.11 step 2).
	if entry, hit := r.deps.Cache.Get(key); hit {
		r.respond(req, entry, true)
		return
	}

	r.emit(model.StatusGenerating, "selecting generator strategy", intp(20))

	entry, err := r.deps.Cache.GetOrCompute(ctx, key, r.deps.CacheTTL, func(ctx context.Context) (model.RenderedArtifact, string, string, error) {
		return r.computeAndUpload(ctx, req, resolved, key)
	})
	// GetOrCompute detaches this caller on its own ctx cancellation without
	// killing the shared computation while other waiters remain (spec.md
	// §4.9); it returns ctx.Err() in that case, so err alone distinguishes
	// "this request was cancelled" from a successful shared result.
	if err != nil {
		r.finish(ctx, err)
		return
	}
	r.respond(req, entry, false)
}

// computeAndUpload runs Routing -> Generating -> Rendering -> Uploading for
// one cache key. It executes at most once per key at a time across
// concurrent requests (spec.md §4.9's single-flight guarantee); only the
// caller that actually wins the single-flight race observes this function
// run, so only that caller's connection receives the intermediate
// status_update events it emits — every caller (winner or coalesced
// waiter) still receives the final diagram_response.
func (r *requestRun) computeAndUpload(ctx context.Context, req model.DiagramRequest, resolved theme.Resolved, key string) (model.RenderedArtifact, string, string, error) {
	steps, err := router.Route(req.DiagramType, req.Content, req.DataPoints, r.deps.Templates)
	if err != nil {
		return model.RenderedArtifact{}, "", "", err
	}

	artifact, method, err := r.generateWithFallback(ctx, steps, req, resolved)
	if err != nil {
		return model.RenderedArtifact{}, "", "", err
	}

	r.emit(model.StatusRendering, "rendering artifact", intp(60))
	rendered, err := r.deps.Renderer.Render(ctx, artifact)
	if err != nil {
		return model.RenderedArtifact{}, "", "", apperr.Wrap(apperr.CodeRender, "render artifact", err)
	}

	r.emit(model.StatusSaving, "saving artifact", intp(85))
	url := ""
	if r.deps.Store != nil {
		uploaded, uploadErr := r.upload(ctx, rendered)
		if uploadErr == nil {
			url = uploaded
		}
		// A permanent upload failure (including an open circuit breaker)
		// degrades to inline delivery and is never surfaced as an error
		// (spec.md §4.10, §7 UploadError).
	}
	return rendered, url, method, nil
}

// upload runs Store.Upload behind UploadBreaker when configured, so a run
// of upload failures trips the breaker and short-circuits further upload
// attempts straight to inline delivery instead of retrying into a store
// that's already down (generalized from core/circuit_breaker.go's Call
// wrapper, internal/retrypolicy.CircuitBreaker).
func (r *requestRun) upload(ctx context.Context, rendered model.RenderedArtifact) (string, error) {
	if r.deps.UploadBreaker == nil {
		return r.deps.Store.Upload(ctx, r.sessionID, rendered)
	}
	var url string
	err := r.deps.UploadBreaker.Call(func() error {
		u, err := r.deps.Store.Upload(ctx, r.sessionID, rendered)
		url = u
		return err
	})
	return url, err
}

// generateWithFallback walks steps in order, advancing past a retriable
// GeneratorError to the next strategy and stopping on the first success or
// the first non-retriable failure (spec.md §4.3, §4.11 step 8).
func (r *requestRun) generateWithFallback(ctx context.Context, steps []router.Step, req model.DiagramRequest, resolved theme.Resolved) (model.Artifact, string, error) {
	var lastErr error
	for _, step := range steps {
		artifact, err := r.runStrategy(ctx, step.Strategy, req, resolved)
		if err == nil {
			return artifact, string(step.Strategy), nil
		}
		lastErr = err
		ae := apperr.As(err)
		if !ae.Retriable() {
			return model.Artifact{}, "", ae
		}
		logging.Logger().Debug().Str("request_id", r.requestID).Str("strategy", string(step.Strategy)).Err(ae).
			Msg("generator strategy failed, advancing to next fallback")
	}
	return model.Artifact{}, "", apperr.Wrap(apperr.CodeAllStrategiesExhausted, "all routed strategies failed", lastErr)
}

// paletteSlotBudget is the palette size used when the template's fill-slot
// count is not known. Otherwise the palette is sized to the template's own
// fill-slot count, so its colors spread across the whole lightness range or
// color wheel; svgtmpl.Fill indexes the palette modulo its own length.
const paletteSlotBudget = 16

func (r *requestRun) runStrategy(ctx context.Context, strategy router.Strategy, req model.DiagramRequest, resolved theme.Resolved) (model.Artifact, error) {
	switch strategy {
	case router.StrategySvgTemplate:
		labels := make([]string, len(req.DataPoints))
		for i, dp := range req.DataPoints {
			labels[i] = dp.Label
		}
		n := paletteSlotBudget
		if tmpl := r.deps.Templates.Template(req.DiagramType); tmpl != nil && tmpl.FillSlotCount() > 0 {
			n = tmpl.FillSlotCount()
		}
		palette := resolved.PaletteFor(n)
		return r.deps.Templates.Fill(req.DiagramType, labels, palette, req.Theme.SmartThemingEnabled())
	case router.StrategyMermaid:
		if r.deps.Mermaid == nil {
			return model.Artifact{}, apperr.New(apperr.CodeGenerator, "mermaid generator not configured")
		}
		return r.deps.Mermaid.Generate(ctx, req)
	case router.StrategyChart:
		if r.deps.Chart == nil {
			return model.Artifact{}, apperr.New(apperr.CodeGenerator, "chart generator not configured")
		}
		n := len(req.DataPoints)
		if n == 0 {
			n = 1
		}
		return r.deps.Chart.Generate(ctx, req, resolved.PaletteFor(n))
	default:
		return model.Artifact{}, apperr.New(apperr.CodeInternal, "unknown strategy "+string(strategy))
	}
}

// finish classifies how this request ended after GetOrCompute returned.
// ctx.Err() takes priority over err: a session-initiated cancel or closed
// connection (context.Canceled) becomes the Cancelled terminal event, and
// the per-request wall clock expiring (context.DeadlineExceeded) becomes
// Failed(Timeout) — both independent of whether the shared computation
// itself happened to succeed for other waiters. Only when ctx is still live
// does err (a real generator/render/routing failure) become the terminal
// error.
func (r *requestRun) finish(ctx context.Context, err error) {
	switch ctx.Err() {
	case context.Canceled:
		r.emitCancelled()
	case context.DeadlineExceeded:
		r.emitError(apperr.New(apperr.CodeTimeout, "request exceeded wall-clock timeout"))
	default:
		r.emitError(apperr.As(err))
	}
}

// outputTypeFor maps a generator strategy name to the wire output_type
// (spec.md §6.1): which generation path produced the artifact, independent
// of whatever content_type the Renderer ultimately emitted for it.
func outputTypeFor(method string) string {
	switch router.Strategy(method) {
	case router.StrategySvgTemplate:
		return "svg"
	case router.StrategyMermaid:
		return "mermaid"
	case router.StrategyChart:
		return "chart"
	default:
		return method
	}
}

// respond emits the terminal diagram_response for a successfully completed
// (possibly cached) request (spec.md §4.11 step 7).
func (r *requestRun) respond(req model.DiagramRequest, entry cache.Entry, cacheHit bool) {
	if !r.terminal.CompareAndSwap(false, true) {
		return
	}
	content := ""
	if entry.PublicURL == "" {
		if entry.Artifact.IsText {
			content = string(entry.Artifact.Content)
		} else {
			content = base64.StdEncoding.EncodeToString(entry.Artifact.Content)
		}
	}

	data := model.DiagramResponseData{
		Status:      model.StatusSuccess,
		DiagramType: req.DiagramType,
		OutputType:  outputTypeFor(entry.Method),
		Content:     content,
		ContentType: entry.Artifact.ContentType,
		URL:         entry.PublicURL,
		Metadata: model.ResponseMetadata{
			GenerationMethod: entry.Method,
			CacheHit:         cacheHit,
			GenerationTimeMs: time.Since(r.start).Milliseconds(),
		},
	}
	r.send(model.OutEnvelope{Type: "diagram_response", RequestID: r.requestID, Data: data})
}

func (r *requestRun) emit(status, message string, progress *int) {
	if r.terminal.Load() {
		return
	}
	r.send(model.OutEnvelope{
		Type:      "status_update",
		RequestID: r.requestID,
		Data:      model.StatusUpdateData{Status: status, Message: message, Progress: progress},
	})
}

func (r *requestRun) emitError(err *apperr.Error) {
	if !r.terminal.CompareAndSwap(false, true) {
		return
	}
	logging.Logger().Warn().Str("request_id", r.requestID).Str("code", string(err.Code)).Msg(err.Message)
	r.send(model.OutEnvelope{
		Type:      "error",
		RequestID: r.requestID,
		Data:      model.ErrorData{Code: string(err.Code), Message: err.Message},
	})
}

func (r *requestRun) emitCancelled() {
	if !r.terminal.CompareAndSwap(false, true) {
		return
	}
	r.send(model.OutEnvelope{
		Type:      "diagram_response",
		RequestID: r.requestID,
		Data:      model.DiagramResponseData{Status: model.StatusCancelled},
	})
}

// send assigns the next per-request sequence number and hands the envelope
// to the connection. Sequence numbers are local to requestID, starting at
// 1 and strictly increasing (spec.md §8); there is no ordering guarantee
// across different request_ids on the same connection.
func (r *requestRun) send(env model.OutEnvelope) {
	env.Seq = atomic.AddUint64(&r.seq, 1)
	logging.Logger().Debug().Str("request_id", r.requestID).Str("session_id", r.sessionID).
		Str("type", env.Type).Uint64("seq", env.Seq).Msg("request event emitted")
	r.conn.Send(env)
}

func intp(v int) *int { return &v }
