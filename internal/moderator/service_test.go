package moderator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/escalation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/moderation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/protocol"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/ratelimit"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/report"
)

var testPolicy = escalation.Policy{
	User: escalation.Thresholds{
		Warn:     escalation.Trigger{Reports: 2, Violations: 1},
		Restrict: escalation.Trigger{Reports: 4, Violations: 2},
		Suspend:  escalation.Trigger{Reports: 6, Violations: 3},
	},
	Post: escalation.Thresholds{Suspend: escalation.Trigger{Reports: 2, Violations: 1}},
	Peak: escalation.Thresholds{Suspend: escalation.Trigger{Reports: 2}},
}

type fixedLimiter struct{ allow bool }

func (f fixedLimiter) Allow(context.Context, string, ratelimit.Rule) (bool, error) {
	return f.allow, nil
}

type fakeLister struct {
	reports []report.Report
	err     error
	limit   int
}

func (f *fakeLister) ListBySubject(_ context.Context, subj escalation.Subject, limit int) ([]report.Report, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out []report.Report
	for _, r := range f.reports {
		if r.Subject == subj {
			out = append(out, r)
		}
	}
	return out, nil
}

type fixture struct {
	svc    *Service
	store  *escalation.MemoryStore
	engine *escalation.Engine
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	store := escalation.NewMemoryStore()
	engine := escalation.NewEngine(store, testPolicy)
	recorder := report.NewRecorder(report.CounterLedger{Store: store}, engine)
	t.Cleanup(engine.Wait)
	return fixture{svc: NewService(engine, recorder, opts...), store: store, engine: engine}
}

func (f fixture) snapshot(t *testing.T, s escalation.Subject) escalation.Snapshot {
	t.Helper()
	f.engine.Wait()
	snap, err := f.store.Snapshot(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestFilter_Clean(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Filter(context.Background(), protocol.FilterRequest{
		Text: "Great session at the gym today", Context: "post", AuthorID: "u1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Accept || !resp.Verdict.Clean || resp.Violated {
		t.Errorf("unexpected response %+v", resp)
	}
	if snap := f.snapshot(t, escalation.User("u1")); snap.Violations != 0 {
		t.Errorf("violations = %d, want 0", snap.Violations)
	}
}

func TestFilter_SevereCountsViolation(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Filter(context.Background(), protocol.FilterRequest{
		Text:     "just kys already",
		Context:  "comment",
		AuthorID: "u1",
		Subject:  &protocol.SubjectRef{Kind: "post", ID: "p1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Accept || !resp.Violated {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !resp.Verdict.Has(moderation.CategoryHarassment) {
		t.Errorf("violations = %v, want harassment", resp.Verdict.Violations)
	}

	user := f.snapshot(t, escalation.User("u1"))
	if user.Violations != 1 || user.Status != escalation.StatusWarned {
		t.Errorf("user = %+v, want 1 violation and warned", user)
	}
	post := f.snapshot(t, escalation.Post("p1"))
	if post.Violations != 1 || post.Status != escalation.StatusSuspended {
		t.Errorf("post = %+v, want 1 violation and suspended", post)
	}
}

func TestFilter_LowSeverityAcceptedWithoutViolation(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Filter(context.Background(), protocol.FilterRequest{
		Text: "reach me at john.doe@example.com", Context: "bio", AuthorID: "u1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Accept || resp.Verdict.Clean || resp.Violated {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.Verdict.Has(moderation.CategoryPersonalData) {
		t.Errorf("violations = %v, want personal_data", resp.Verdict.Violations)
	}
}

func TestFilter_SevereThresholdConfigurable(t *testing.T) {
	f := newFixture(t, WithSevereSeverity(moderation.SeverityLow))
	resp, _ := f.svc.Filter(context.Background(), protocol.FilterRequest{
		Text: "reach me at john.doe@example.com", Context: "bio", AuthorID: "u1",
	})
	if !resp.Violated {
		t.Error("low severity verdict should count with a low severe threshold")
	}
}

func TestFilter_ToxicityBlocks(t *testing.T) {
	f := newFixture(t)
	cat := "insult"
	resp, err := f.svc.Filter(context.Background(), protocol.FilterRequest{
		Text:     "what a lovely day",
		Context:  "post",
		Toxicity: &moderation.ToxicityResult{Action: moderation.ToxicityBlock, MaxScore: 0.97, TopCategory: &cat},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Accept || resp.Reason == "" || !resp.Verdict.Clean {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestChatMessage_RepeatedIsSpam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := protocol.ChatMessageRequest{ChatID: "c1", SenderID: "u1", Text: "check my profile"}

	for i := 0; i < 2; i++ {
		resp, err := f.svc.ChatMessage(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Accept || resp.Spam {
			t.Fatalf("message %d: unexpected response %+v", i+1, resp)
		}
	}

	resp, err := f.svc.ChatMessage(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Accept || !resp.Spam {
		t.Errorf("third repeat: unexpected response %+v", resp)
	}

	// Another sender in the same chat has its own history.
	other, _ := f.svc.ChatMessage(ctx, protocol.ChatMessageRequest{ChatID: "c1", SenderID: "u2", Text: "check my profile"})
	if !other.Accept {
		t.Errorf("other sender rejected: %+v", other)
	}

	ended := f.svc.Handle(ctx, []byte(`{"type":"end_chat","id":"e1","chat_id":"c1"}`))
	var endResp protocol.ChatEndedResponse
	if err := json.Unmarshal(ended, &endResp); err != nil {
		t.Fatal(err)
	}
	if endResp.Type != protocol.TypeChatEnded || endResp.ChatID != "c1" {
		t.Fatalf("end_chat reply = %s", ended)
	}
	resp, _ = f.svc.ChatMessage(ctx, req)
	if !resp.Accept {
		t.Errorf("history should reset after EndChat, got %+v", resp)
	}
}

func TestChatMessage_SkipPersonalData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, _ := f.svc.ChatMessage(ctx, protocol.ChatMessageRequest{
		ChatID: "c1", SenderID: "u1", Text: "my email is john.doe@example.com", SkipPersonalDataCheck: true,
	})
	if !resp.Verdict.Clean {
		t.Errorf("skip flag ignored: %+v", resp.Verdict)
	}

	resp, _ = f.svc.ChatMessage(ctx, protocol.ChatMessageRequest{
		ChatID: "c2", SenderID: "u1", Text: "my email is john.doe@example.com",
	})
	if !resp.Verdict.Has(moderation.CategoryPersonalData) {
		t.Errorf("violations = %v, want personal_data", resp.Verdict.Violations)
	}
}

func TestChatMessage_SevereCountsViolation(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.svc.ChatMessage(context.Background(), protocol.ChatMessageRequest{
		ChatID: "c1", SenderID: "u9", Text: "go kill urself",
	})
	if resp.Accept {
		t.Fatalf("unexpected response %+v", resp)
	}
	if snap := f.snapshot(t, escalation.User("u9")); snap.Violations != 1 {
		t.Errorf("violations = %d, want 1", snap.Violations)
	}
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		setup    []string
		input    string
		wantType string
		wantCode string
	}{
		{
			name:     "filter",
			input:    `{"type":"filter","id":"1","text":"hello","context":"post"}`,
			wantType: protocol.TypeFilterResult,
		},
		{
			name:     "filter unknown context",
			input:    `{"type":"filter","id":"2","text":"hello","context":"story"}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeInvalidRequest,
		},
		{
			name:     "filter bad subject kind",
			input:    `{"type":"filter","text":"hello","context":"post","subject":{"kind":"album","id":"a"}}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeInvalidRequest,
		},
		{
			name:     "chat empty text",
			input:    `{"type":"chat_message","chat_id":"c","sender_id":"s","text":""}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeInvalidRequest,
		},
		{
			name:     "chat rate limited",
			opts:     []Option{WithChatRateLimit(fixedLimiter{allow: false}, ratelimit.RuleChatMessage)},
			input:    `{"type":"chat_message","chat_id":"c","sender_id":"s","text":"hi"}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeRateLimited,
		},
		{
			name:     "report",
			input:    `{"type":"report","reporter_id":"a","kind":"post","subject_id":"p1","reason":"spam"}`,
			wantType: protocol.TypeReportAccepted,
		},
		{
			name:     "duplicate report",
			setup:    []string{`{"type":"report","reporter_id":"a","kind":"post","subject_id":"p1","reason":"spam"}`},
			input:    `{"type":"report","reporter_id":"a","kind":"post","subject_id":"p1","reason":"scam"}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeDuplicate,
		},
		{
			name:     "self report",
			input:    `{"type":"report","reporter_id":"a","kind":"user","subject_id":"a","reason":"spam"}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeInvalidRequest,
		},
		{
			name:     "invalid report reason",
			input:    `{"type":"report","reporter_id":"a","kind":"user","subject_id":"b","reason":"meh"}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeInvalidRequest,
		},
		{
			name:     "check escalation",
			input:    `{"type":"check_escalation","kind":"peak","subject_id":"k1"}`,
			wantType: protocol.TypeEscalationResult,
		},
		{
			name:     "check escalation bad kind",
			input:    `{"type":"check_escalation","kind":"story","subject_id":"k1"}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeInvalidRequest,
		},
		{
			name:     "chat with nil limiter",
			opts:     []Option{WithChatRateLimit(nil, ratelimit.RuleChatMessage)},
			input:    `{"type":"chat_message","chat_id":"c","sender_id":"s","text":"hi"}`,
			wantType: protocol.TypeChatResult,
		},
		{
			name:     "end chat",
			input:    `{"type":"end_chat","chat_id":"c"}`,
			wantType: protocol.TypeChatEnded,
		},
		{
			name:     "end chat blank id",
			input:    `{"type":"end_chat","chat_id":"  "}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeInvalidRequest,
		},
		{
			name:     "list reports",
			opts:     []Option{WithReportLister(&fakeLister{})},
			input:    `{"type":"list_reports","kind":"post","subject_id":"p1"}`,
			wantType: protocol.TypeReportList,
		},
		{
			name:     "list reports without store",
			input:    `{"type":"list_reports","kind":"post","subject_id":"p1"}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeUnavailable,
		},
		{
			name:     "list reports limit too large",
			opts:     []Option{WithReportLister(&fakeLister{})},
			input:    `{"type":"list_reports","kind":"post","subject_id":"p1","limit":500}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeInvalidRequest,
		},
		{
			name:     "ping",
			input:    `{"type":"ping","id":"p"}`,
			wantType: protocol.TypePong,
		},
		{
			name:     "unknown type",
			input:    `{"type":"subscribe"}`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeUnknownType,
		},
		{
			name:     "malformed",
			input:    `{not json`,
			wantType: protocol.TypeError,
			wantCode: protocol.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts...)
			ctx := context.Background()
			for _, in := range tt.setup {
				f.svc.Handle(ctx, []byte(in))
			}

			var got protocol.ErrorResponse
			if err := json.Unmarshal(f.svc.Handle(ctx, []byte(tt.input)), &got); err != nil {
				t.Fatalf("reply is not JSON: %v", err)
			}
			if got.Type != tt.wantType {
				t.Errorf("type = %q, want %q (%+v)", got.Type, tt.wantType, got)
			}
			if got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestHandle_ReportsEscalate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, reporter := range []string{"a", "b"} {
		f.svc.Handle(ctx, []byte(`{"type":"report","reporter_id":"`+reporter+`","kind":"peak","subject_id":"k1","reason":"explicit"}`))
	}
	f.engine.Wait()

	var resp protocol.EscalationResponse
	reply := f.svc.Handle(ctx, []byte(`{"type":"check_escalation","id":"x","kind":"peak","subject_id":"k1"}`))
	if err := json.Unmarshal(reply, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "x" {
		t.Errorf("id = %q, want x", resp.ID)
	}
	if resp.Result.Status != escalation.StatusSuspended || resp.Result.Reports != 2 {
		t.Errorf("result = %+v, want suspended with 2 reports", resp.Result)
	}
}

func TestChatMessage_ConcurrentRepeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := protocol.ChatMessageRequest{ChatID: "c1", SenderID: "u1", Text: "see you at the game tonight"}

	const senders = 32
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		start    = make(chan struct{})
	)
	wg.Add(senders)
	for i := 0; i < senders; i++ {
		go func() {
			defer wg.Done()
			<-start
			resp, err := f.svc.ChatMessage(ctx, req)
			if err != nil {
				t.Error(err)
				return
			}
			if resp.Accept {
				accepted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := accepted.Load(); got != 2 {
		t.Errorf("accepted %d identical messages, want 2", got)
	}
}

func TestListReports(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	lister := &fakeLister{reports: []report.Report{
		{ID: id, Subject: escalation.Post("p1"), ReporterID: "a", Reason: report.ReasonSpam, Details: "ads", CreatedAt: created},
		{ID: uuid.New(), Subject: escalation.Post("p2"), ReporterID: "b", Reason: report.ReasonScam},
	}}
	f := newFixture(t, WithReportLister(lister))

	resp, err := f.svc.ListReports(context.Background(), protocol.ListReportsRequest{Kind: "post", SubjectID: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if lister.limit != protocol.DefaultListLimit {
		t.Errorf("limit = %d, want %d", lister.limit, protocol.DefaultListLimit)
	}
	if resp.Subject != escalation.Post("p1") {
		t.Errorf("subject = %v", resp.Subject)
	}
	want := protocol.ReportEntry{ReportID: id.String(), ReporterID: "a", Reason: "spam", Details: "ads", CreatedAt: created}
	if len(resp.Reports) != 1 || resp.Reports[0] != want {
		t.Errorf("reports = %+v, want [%+v]", resp.Reports, want)
	}

	lister.err = errors.New("connection reset")
	if _, err := f.svc.ListReports(context.Background(), protocol.ListReportsRequest{Kind: "post", SubjectID: "p1", Limit: 5}); err == nil {
		t.Error("expected store error")
	}
	if lister.limit != 5 {
		t.Errorf("limit = %d, want 5", lister.limit)
	}
}
