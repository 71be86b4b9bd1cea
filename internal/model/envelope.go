// Package model holds the wire types exchanged over the WebSocket transport
// (spec.md §3, §6.1) along with the request lifecycle state machine values.
package model

import "encoding/json"

// EnvelopeType is the closed set of client -> server message types.
type EnvelopeType string

const (
	TypeDiagramRequest EnvelopeType = "diagram_request"
	TypePing           EnvelopeType = "ping"
	TypeCancel         EnvelopeType = "cancel"
)

// Envelope is the generic client -> server frame shape (spec.md §3).
type Envelope struct {
	Type      EnvelopeType    `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// DataPoint is one element of a DiagramRequest's ordered data_points list.
type DataPoint struct {
	Label       string                 `json:"label"`
	Value       *float64               `json:"value,omitempty"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Theme is the client-supplied theme request (spec.md §3).
type Theme struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	AccentColor    string `json:"accent_color,omitempty"`
	Scheme         string `json:"scheme,omitempty"` // monochromatic | complementary
	Background     string `json:"background,omitempty"`
	TextColor      string `json:"text_color,omitempty"`
	FontFamily     string `json:"font_family,omitempty"`
	Style          string `json:"style,omitempty"`
	SmartTheming   *bool  `json:"smart_theming,omitempty"`
}

// SmartThemingEnabled returns the effective value, defaulting to true per
// spec.md §3.
func (t Theme) SmartThemingEnabled() bool {
	if t.SmartTheming == nil {
		return true
	}
	return *t.SmartTheming
}

// Constraints holds optional size hints (spec.md §3).
type Constraints struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// DiagramRequest is the decoded body of a diagram_request envelope.
type DiagramRequest struct {
	DiagramType string       `json:"diagram_type"`
	Content     string       `json:"content"`
	DataPoints  []DataPoint  `json:"data_points,omitempty"`
	Theme       Theme        `json:"theme"`
	Constraints *Constraints `json:"constraints,omitempty"`
}

// Status values used in status_update and diagram_response events.
const (
	StatusThinking   = "thinking"
	StatusGenerating = "generating"
	StatusRendering  = "rendering"
	StatusSaving     = "saving"
	StatusComplete   = "complete"
	StatusError      = "error"
	StatusCancelled  = "cancelled"
	StatusSuccess    = "success"
)

// StatusUpdateData is the payload of a status_update event.
type StatusUpdateData struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Progress *int   `json:"progress,omitempty"`
}

// ResponseMetadata describes how a diagram_response's artifact was produced.
type ResponseMetadata struct {
	GenerationMethod string                 `json:"generation_method"`
	CacheHit         bool                   `json:"cache_hit"`
	ThemeApplied     map[string]interface{} `json:"theme_applied,omitempty"`
	GenerationTimeMs int64                  `json:"generation_time_ms"`
}

// DiagramResponseData is the payload of a diagram_response event.
type DiagramResponseData struct {
	Status      string           `json:"status"`
	DiagramType string           `json:"diagram_type,omitempty"`
	OutputType  string           `json:"output_type,omitempty"`
	Content     string           `json:"content,omitempty"`
	ContentType string           `json:"content_type,omitempty"`
	URL         string           `json:"url,omitempty"`
	Metadata    ResponseMetadata `json:"metadata"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// OutEnvelope is the generic server -> client frame shape.
type OutEnvelope struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Seq       uint64      `json:"seq,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}
