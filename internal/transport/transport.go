// Package transport implements the WebSocket Transport (spec.md §4.1): a
// single upgrade endpoint, JSON text-frame read/write pumps, a bounded
// per-connection output queue with backpressure, and the close-code
// contract for malformed frames, unknown types, and idle connections.
//
// The read/write pump split (one goroutine exclusively owning the socket's
// write side, reading decoded off a channel; another owning the read side)
// is grounded on internal/webui/websocket.go's ClientConnection
// readPump/writePump, generalized from the teacher's chat message types to
// this service's diagram_request/cancel/ping envelopes.
package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/archviz/diagramsvc/internal/logging"
	"github.com/archviz/diagramsvc/internal/model"
)

// Handlers are the callbacks a Server invokes as it decodes inbound
// envelopes. They must not block the read pump for long — diagram_request
// handling is expected to spawn its own goroutine.
type Handlers struct {
	OnDiagramRequest func(conn *Conn, requestID string, req model.DiagramRequest)
	OnCancel         func(conn *Conn, requestID string)
}

// Server upgrades HTTP connections to WebSocket and drives each one's
// read/write pumps.
type Server struct {
	upgrader             websocket.Upgrader
	handlers             Handlers
	outputQueueCapacity  int
	backpressureDeadline time.Duration
	idleTimeout          time.Duration

	onConnect    func(sessionID, userID string) error
	onDisconnect func(sessionID string)
}

// Config bundles the limits spec.md §6.3 exposes for the transport.
type Config struct {
	OutputQueueCapacity  int
	BackpressureDeadline time.Duration
	IdleTimeout          time.Duration
}

func NewServer(cfg Config, handlers Handlers, onConnect func(sessionID, userID string) error, onDisconnect func(sessionID string)) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handlers:             handlers,
		outputQueueCapacity:  cfg.OutputQueueCapacity,
		backpressureDeadline: cfg.BackpressureDeadline,
		idleTimeout:          cfg.IdleTimeout,
		onConnect:            onConnect,
		onDisconnect:         onDisconnect,
	}
}

// Conn wraps one upgraded WebSocket connection: a bounded outbound queue
// and the write pump that exclusively owns the socket's write side.
type Conn struct {
	ws        *websocket.Conn
	sessionID string
	userID    string

	out    chan model.OutEnvelope
	closed chan struct{}

	backpressureDeadline time.Duration
}

// SessionID returns the opaque session_id this connection was upgraded
// with, so a Handlers callback can correlate a request back to the session
// registry (internal/session.Manager).
func (c *Conn) SessionID() string { return c.sessionID }

// Send enqueues env for delivery. If the queue is full, Send blocks the
// caller up to backpressureDeadline before giving up and forcing the
// connection closed with 1011 ("server overloaded") — spec.md §4.1.
func (c *Conn) Send(env model.OutEnvelope) {
	select {
	case c.out <- env:
		return
	case <-c.closed:
		return
	default:
	}

	timer := time.NewTimer(c.backpressureDeadline)
	defer timer.Stop()
	select {
	case c.out <- env:
	case <-c.closed:
	case <-timer.C:
		logging.Logger().Warn().Str("session_id", c.sessionID).Msg("output queue backpressure deadline exceeded, closing connection")
		c.forceClose(closeServerOverloaded, "server overloaded")
	}
}

// forceClose is used for the 1011 backpressure case; 1011 isn't one of
// gorilla's named constants in every version, so it's written literally.
const closeServerOverloaded = 1011

func (c *Conn) forceClose(_ int, reason string) {
	select {
	case <-c.closed:
		return
	default:
		close(c.closed)
	}
	msg := websocket.FormatCloseMessage(closeServerOverloaded, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = c.ws.Close()
}

// ServeHTTP upgrades the request and starts the connection's pumps. Query
// parameters session_id and user_id are both opaque, unauthenticated
// strings (spec.md §4.1, explicit non-goal).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	userID := r.URL.Query().Get("user_id")

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger().Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := &Conn{
		ws:                   ws,
		sessionID:            sessionID,
		userID:               userID,
		out:                  make(chan model.OutEnvelope, s.outputQueueCapacity),
		closed:               make(chan struct{}),
		backpressureDeadline: s.backpressureDeadline,
	}

	if s.onConnect != nil {
		if err := s.onConnect(sessionID, userID); err != nil {
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session registration failed")
			_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = ws.Close()
			return
		}
	}

	go s.writePump(conn)
	s.readPump(conn)

	if s.onDisconnect != nil {
		s.onDisconnect(sessionID)
	}
}

func (s *Server) writePump(c *Conn) {
	defer c.ws.Close()
	for {
		select {
		case <-c.closed:
			return
		case env, ok := <-c.out:
			if !ok {
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// readPump owns the read side exclusively, decoding one JSON frame at a
// time and dispatching by envelope type. A malformed frame closes with
// 1008; an unknown type returns an error envelope but keeps the connection
// open; silence beyond idleTimeout closes with 1000.
func (s *Server) readPump(c *Conn) {
	defer func() {
		select {
		case <-c.closed:
		default:
			close(c.closed)
		}
	}()

	c.ws.SetReadDeadline(time.Now().Add(s.idleTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(s.idleTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "idle timeout")
				_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(s.idleTimeout))

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid frame")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}

		switch env.Type {
		case model.TypeDiagramRequest:
			var req model.DiagramRequest
			if err := json.Unmarshal(env.Data, &req); err != nil {
				c.Send(errorEnvelope(env.RequestID, "ValidationError", "malformed diagram_request data"))
				continue
			}
			if s.handlers.OnDiagramRequest != nil {
				s.handlers.OnDiagramRequest(c, env.RequestID, req)
			}
		case model.TypeCancel:
			// request_id is a top-level envelope field for cancel frames
			// (spec.md §6.1: `{ "type": "cancel", "request_id": "..." }`),
			// not part of data — a compliant cancel carries no data object.
			if s.handlers.OnCancel != nil {
				s.handlers.OnCancel(c, env.RequestID)
			}
		case model.TypePing:
			c.Send(model.OutEnvelope{Type: "pong"})
		default:
			c.Send(errorEnvelope("", "ValidationError", "unknown envelope type: "+string(env.Type)))
		}
	}
}

func errorEnvelope(requestID, code, message string) model.OutEnvelope {
	return model.OutEnvelope{
		Type:      "error",
		RequestID: requestID,
		Data:      model.ErrorData{Code: code, Message: message},
	}
}
