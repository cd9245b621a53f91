// Package protocol defines the request and response messages exchanged with
// the moderation service. All messages are serialized as JSON and follow a
// consistent envelope format with a type discriminator.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/escalation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/moderation"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Request types.
const (
	TypeFilter          = "filter"
	TypeChatMessage     = "chat_message"
	TypeReport          = "report"
	TypeCheckEscalation = "check_escalation"
	TypeEndChat         = "end_chat"
	TypeListReports     = "list_reports"
	TypePing            = "ping"
)

// Response types.
const (
	TypeFilterResult     = "filter_result"
	TypeChatResult       = "chat_result"
	TypeReportAccepted   = "report_accepted"
	TypeEscalationResult = "escalation_result"
	TypeEscalationEvent  = "escalation"
	TypeChatEnded        = "chat_ended"
	TypeReportList       = "report_list"
	TypeError            = "error"
	TypePong             = "pong"
)

// Error codes carried by ErrorResponse.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnknownType    = "unknown_type"
	CodeDuplicate      = "duplicate_report"
	CodeRateLimited    = "rate_limited"
	CodeUnavailable    = "unavailable"
	CodeInternal       = "internal"
)

// ErrMissingType is returned for a message without a "type" field.
var ErrMissingType = errors.New("protocol: missing or empty \"type\" field")

// UnknownTypeError is returned by ParseRequest for an unrecognized type.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("protocol: unknown request type: %q", e.Type)
}

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the full raw bytes and extracts only the envelope
// fields so that the rest of the payload can be decoded later.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return ErrMissingType
	}
	e.Type = partial.Type
	e.ID = partial.ID
	return nil
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// FilterRequest asks for a verdict on one piece of user text. AuthorID and
// Subject name who gets a violation when the verdict is severe.
type FilterRequest struct {
	Type                  string                     `json:"type"`
	ID                    string                     `json:"id,omitempty"`
	Text                  string                     `json:"text" validate:"max=20000"`
	Context               string                     `json:"context" validate:"required,moderation_context"`
	SkipPersonalDataCheck bool                       `json:"skip_personal_data_check,omitempty"`
	AuthorID              string                     `json:"author_id,omitempty" validate:"max=128"`
	Subject               *SubjectRef                `json:"subject,omitempty"`
	Toxicity              *moderation.ToxicityResult `json:"toxicity,omitempty"`
}

// ModerationContext returns the moderation context of the request. The skip
// flag only survives for direct messages.
func (r FilterRequest) ModerationContext() moderation.ModerationContext {
	c := moderation.Context(r.Context)
	return moderation.ModerationContext{
		Context:               c,
		SkipPersonalDataCheck: r.SkipPersonalDataCheck && c == moderation.ContextChat,
	}
}

// SubjectRef names a post or peak the text belongs to.
type SubjectRef struct {
	Kind string `json:"kind" validate:"required,subject_kind"`
	ID   string `json:"id" validate:"notblank,max=128"`
}

// Subject converts the reference to an escalation subject.
func (r SubjectRef) Subject() escalation.Subject {
	return escalation.Subject{Kind: escalation.Kind(r.Kind), ID: r.ID}
}

// ChatMessageRequest checks an outgoing direct message for spam and content.
type ChatMessageRequest struct {
	Type                  string `json:"type"`
	ID                    string `json:"id,omitempty"`
	ChatID                string `json:"chat_id" validate:"notblank,max=128"`
	SenderID              string `json:"sender_id" validate:"notblank,max=128"`
	Text                  string `json:"text"`
	SkipPersonalDataCheck bool   `json:"skip_personal_data_check,omitempty"`
}

// ReportRequest files a report against a user, post or peak.
type ReportRequest struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	ReporterID string `json:"reporter_id"`
	Kind       string `json:"kind"`
	SubjectID  string `json:"subject_id"`
	Reason     string `json:"reason"`
	Details    string `json:"details,omitempty"`
}

// CheckEscalationRequest runs an escalation check synchronously.
type CheckEscalationRequest struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Kind      string `json:"kind" validate:"required,subject_kind"`
	SubjectID string `json:"subject_id" validate:"notblank,max=128"`
}

// EndChatRequest drops the duplicate-detection history of a finished chat.
type EndChatRequest struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	ChatID string `json:"chat_id" validate:"notblank,max=128"`
}

// ListReportsRequest asks for the latest reports filed against a subject.
// Limit defaults to DefaultListLimit.
type ListReportsRequest struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Kind      string `json:"kind" validate:"required,subject_kind"`
	SubjectID string `json:"subject_id" validate:"notblank,max=128"`
	Limit     int    `json:"limit,omitempty" validate:"min=0,max=100"`
}

// DefaultListLimit is the page size of list_reports without a limit.
const DefaultListLimit = 20

// PingRequest checks that the service is alive.
type PingRequest struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// FilterResponse carries the verdict and the combined accept decision.
type FilterResponse struct {
	Type     string             `json:"type"`
	ID       string             `json:"id,omitempty"`
	Accept   bool               `json:"accept"`
	Reason   string             `json:"reason,omitempty"`
	Verdict  moderation.Verdict `json:"verdict"`
	Violated bool               `json:"violation_recorded"`
}

// ChatResponse is the outcome of a chat_message request.
type ChatResponse struct {
	Type    string             `json:"type"`
	ID      string             `json:"id,omitempty"`
	Accept  bool               `json:"accept"`
	Spam    bool               `json:"spam"`
	Reason  string             `json:"reason,omitempty"`
	Verdict moderation.Verdict `json:"verdict"`
}

// ReportResponse acknowledges a counted report.
type ReportResponse struct {
	Type     string             `json:"type"`
	ID       string             `json:"id,omitempty"`
	ReportID string             `json:"report_id"`
	Subject  escalation.Subject `json:"subject"`
}

// EscalationResponse carries the outcome of an escalation check.
type EscalationResponse struct {
	Type   string            `json:"type"`
	ID     string            `json:"id,omitempty"`
	Result escalation.Result `json:"result"`
}

// EscalationEvent is published for each status transition.
type EscalationEvent struct {
	Type   string            `json:"type"`
	Result escalation.Result `json:"result"`
	Ts     int64             `json:"ts"`
}

// ChatEndedResponse acknowledges an end_chat request.
type ChatEndedResponse struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	ChatID string `json:"chat_id"`
}

// ReportEntry is one report in a ReportListResponse.
type ReportEntry struct {
	ReportID   string    `json:"report_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReportListResponse lists reports against a subject, newest first.
type ReportListResponse struct {
	Type    string             `json:"type"`
	ID      string             `json:"id,omitempty"`
	Subject escalation.Subject `json:"subject"`
	Reports []ReportEntry      `json:"reports"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ErrorResponse communicates an error condition.
type ErrorResponse struct {
	Type    string       `json:"type"`
	ID      string       `json:"id,omitempty"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// PongResponse answers a ping.
type PongResponse struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseRequest parses raw bytes into a typed request. It returns the envelope,
// the decoded struct, and any error encountered during parsing. Unknown types
// yield an *UnknownTypeError.
func ParseRequest(data []byte) (Envelope, any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if errors.Is(err, ErrMissingType) {
			return env, nil, err
		}
		return env, nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg any
		err error
	)

	switch env.Type {
	case TypeFilter:
		var m FilterRequest
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeChatMessage:
		var m ChatMessageRequest
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeReport:
		var m ReportRequest
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeCheckEscalation:
		var m CheckEscalationRequest
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeEndChat:
		var m EndChatRequest
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeListReports:
		var m ListReportsRequest
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingRequest
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env, nil, &UnknownTypeError{Type: env.Type}
	}

	if err != nil {
		return env, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env, msg, nil
}

// NewResponse creates a JSON-encoded response. The msgType and request id are
// injected into the payload under the "type" and "id" keys.
func NewResponse(msgType, id string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType
	if id != "" {
		m["id"] = id
	} else {
		delete(m, "id")
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal response: %w", err)
	}
	return out, nil
}

// NewError encodes an ErrorResponse. Encoding a fixed struct cannot fail.
func NewError(id, code, message string, fields ...FieldError) []byte {
	data, _ := NewResponse(TypeError, id, ErrorResponse{Code: code, Message: message, Fields: fields})
	return data
}
