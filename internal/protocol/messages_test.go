package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/escalation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/moderation"
)

// ---------------------------------------------------------------------------
// Test: Parsing a filter request
// ---------------------------------------------------------------------------

func TestParseRequest_Filter(t *testing.T) {
	input := []byte(`{"type":"filter","id":"req-1","text":"hello","context":"comment","author_id":"u1","subject":{"kind":"post","id":"p9"}}`)

	env, msg, err := ParseRequest(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != TypeFilter || env.ID != "req-1" {
		t.Fatalf("unexpected envelope %+v", env)
	}

	fr, ok := msg.(FilterRequest)
	if !ok {
		t.Fatalf("expected FilterRequest, got %T", msg)
	}
	if fr.Text != "hello" || fr.AuthorID != "u1" {
		t.Errorf("unexpected request %+v", fr)
	}
	if fr.Subject == nil {
		t.Fatal("expected subject")
	}
	if got := fr.Subject.Subject(); got != escalation.Post("p9") {
		t.Errorf("Subject() = %v, want post:p9", got)
	}
	if mc := fr.ModerationContext(); mc.Context != moderation.ContextComment {
		t.Errorf("context = %q, want comment", mc.Context)
	}
}

func TestFilterRequest_SkipFlagOnlyForChat(t *testing.T) {
	cases := []struct {
		context string
		want    bool
	}{
		{"chat", true},
		{"post", false},
		{"bio", false},
	}
	for _, tc := range cases {
		t.Run(tc.context, func(t *testing.T) {
			r := FilterRequest{Context: tc.context, SkipPersonalDataCheck: true}
			if got := r.ModerationContext().SkipPersonalDataCheck; got != tc.want {
				t.Errorf("SkipPersonalDataCheck = %v, want %v", got, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing a chat message
// ---------------------------------------------------------------------------

func TestParseRequest_ChatMessage(t *testing.T) {
	input := []byte(`{"type":"chat_message","chat_id":"abc-123","sender_id":"u1","text":"Hello!"}`)

	env, msg, err := ParseRequest(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != TypeChatMessage {
		t.Fatalf("expected type %q, got %q", TypeChatMessage, env.Type)
	}

	cm, ok := msg.(ChatMessageRequest)
	if !ok {
		t.Fatalf("expected ChatMessageRequest, got %T", msg)
	}
	if cm.ChatID != "abc-123" {
		t.Errorf("expected chat_id %q, got %q", "abc-123", cm.ChatID)
	}
	if cm.Text != "Hello!" {
		t.Errorf("expected text %q, got %q", "Hello!", cm.Text)
	}
}

// ---------------------------------------------------------------------------
// Test: Creating a response
// ---------------------------------------------------------------------------

func TestNewResponse_FilterResult(t *testing.T) {
	v := moderation.FilterContent("hello", moderation.In(moderation.ContextPost))
	data, err := NewResponse(TypeFilterResult, "req-7", FilterResponse{Accept: true, Verdict: v})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result["type"] != TypeFilterResult {
		t.Errorf("expected type %q, got %v", TypeFilterResult, result["type"])
	}
	if result["id"] != "req-7" {
		t.Errorf("expected id %q, got %v", "req-7", result["id"])
	}
	if result["accept"] != true {
		t.Errorf("expected accept true, got %v", result["accept"])
	}
	verdict, ok := result["verdict"].(map[string]any)
	if !ok {
		t.Fatalf("expected verdict object, got %T", result["verdict"])
	}
	if verdict["clean"] != true {
		t.Errorf("expected clean verdict, got %v", verdict)
	}
	if _, present := verdict["reason"]; present {
		t.Error("clean verdict should omit reason")
	}
}

func TestNewResponse_NoID(t *testing.T) {
	data, err := NewResponse(TypePong, "", PongResponse{ID: "stale"})
	if err != nil {
		t.Fatal(err)
	}
	var result map[string]any
	json.Unmarshal(data, &result)
	if _, ok := result["id"]; ok {
		t.Errorf("expected no id, got %v", result["id"])
	}
}

func TestNewError(t *testing.T) {
	data := NewError("r1", CodeInvalidRequest, "bad", FieldError{Field: "text", Msg: "text is required"})

	var decoded ErrorResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != TypeError || decoded.Code != CodeInvalidRequest || decoded.ID != "r1" {
		t.Errorf("unexpected error response %+v", decoded)
	}
	if len(decoded.Fields) != 1 || decoded.Fields[0].Field != "text" {
		t.Errorf("unexpected fields %+v", decoded.Fields)
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing an unknown message type returns an error
// ---------------------------------------------------------------------------

func TestParseRequest_UnknownType(t *testing.T) {
	input := []byte(`{"type":"unknown_type","data":"something"}`)

	env, msg, err := ParseRequest(input)
	var ute *UnknownTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("expected UnknownTypeError, got %v", err)
	}
	if msg != nil {
		t.Errorf("expected nil message for unknown type, got %v", msg)
	}
	if env.Type != "unknown_type" {
		t.Errorf("expected returned type %q, got %q", "unknown_type", env.Type)
	}
}

func TestParseRequest_BadPayload(t *testing.T) {
	_, _, err := ParseRequest([]byte(`{"type":"filter","text":42}`))
	if err == nil {
		t.Fatal("expected decode error")
	}
}

// ---------------------------------------------------------------------------
// Test: Envelope UnmarshalJSON edge cases
// ---------------------------------------------------------------------------

func TestEnvelope_MissingType(t *testing.T) {
	_, _, err := ParseRequest([]byte(`{"data":"no type field"}`))
	if !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}
}

func TestEnvelope_InvalidJSON(t *testing.T) {
	input := []byte(`{invalid json}`)
	var env Envelope
	if err := json.Unmarshal(input, &env); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing all request types succeeds
// ---------------------------------------------------------------------------

func TestParseRequest_AllTypes(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantType string
	}{
		{"filter", `{"type":"filter","text":"hi","context":"post"}`, TypeFilter},
		{"chat_message", `{"type":"chat_message","chat_id":"c","sender_id":"s","text":"hi"}`, TypeChatMessage},
		{"report", `{"type":"report","reporter_id":"a","kind":"user","subject_id":"b","reason":"spam"}`, TypeReport},
		{"check_escalation", `{"type":"check_escalation","kind":"peak","subject_id":"k1"}`, TypeCheckEscalation},
		{"end_chat", `{"type":"end_chat","chat_id":"c"}`, TypeEndChat},
		{"list_reports", `{"type":"list_reports","kind":"post","subject_id":"p1","limit":5}`, TypeListReports},
		{"ping", `{"type":"ping"}`, TypePing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, msg, err := ParseRequest([]byte(tc.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env.Type != tc.wantType {
				t.Errorf("expected type %q, got %q", tc.wantType, env.Type)
			}
			if msg == nil {
				t.Error("expected non-nil message")
			}
		})
	}
}

func TestParseRequest_ListReports(t *testing.T) {
	_, msg, err := ParseRequest([]byte(`{"type":"list_reports","id":"r1","kind":"post","subject_id":"p1","limit":5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, ok := msg.(ListReportsRequest)
	if !ok {
		t.Fatalf("expected ListReportsRequest, got %T", msg)
	}
	if req.Kind != "post" || req.SubjectID != "p1" || req.Limit != 5 {
		t.Errorf("unexpected request: %+v", req)
	}
}
