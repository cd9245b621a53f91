// Package moderator serves moderation requests: content verdicts, chat
// message checks, report submission and escalation checks.
package moderator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/chat"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/escalation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/metrics"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/moderation"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/protocol"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/ratelimit"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/report"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/validate"
)

var (
	// ErrChatRateLimited is returned when a sender exceeds the chat rate limit.
	ErrChatRateLimited = errors.New("moderator: sending too many messages")
	// ErrNoReportLister is returned by ListReports when no report store backs
	// the service.
	ErrNoReportLister = errors.New("moderator: report listing needs the postgres store")
)

const spamReason = "Message flagged as spam (repeated content)"

// Escalator is the part of the escalation engine the service drives.
type Escalator interface {
	Check(ctx context.Context, s escalation.Subject) (escalation.Result, error)
	RecordViolation(ctx context.Context, subjects ...escalation.Subject)
}

// Reporter submits reports.
type Reporter interface {
	Submit(ctx context.Context, sub report.Submission) (report.Receipt, error)
}

// ReportLister reads back the reports filed against a subject.
type ReportLister interface {
	ListBySubject(ctx context.Context, subj escalation.Subject, limit int) ([]report.Report, error)
}

// Service dispatches moderation requests.
type Service struct {
	filter    *moderation.Filter
	escalator Escalator
	reporter  Reporter
	lister    ReportLister
	window    *chat.MessageBuffer
	limiter   report.RateLimiter
	chatRule  ratelimit.Rule
	severe    moderation.Severity
	log       zerolog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithFilter replaces the default content filter.
func WithFilter(f *moderation.Filter) Option {
	return func(s *Service) { s.filter = f }
}

// WithChatWindow sets the per-sender history used for duplicate detection.
func WithChatWindow(b *chat.MessageBuffer) Option {
	return func(s *Service) { s.window = b }
}

// WithChatRateLimit throttles chat checks per sender. A nil limiter leaves
// chat checks unthrottled.
func WithChatRateLimit(l report.RateLimiter, rule ratelimit.Rule) Option {
	return func(s *Service) {
		if l == nil {
			return
		}
		s.limiter = l
		s.chatRule = rule
	}
}

// WithReportLister enables list_reports.
func WithReportLister(l ReportLister) Option {
	return func(s *Service) { s.lister = l }
}

// WithSevereSeverity sets the lowest verdict severity that counts as a
// violation against the author.
func WithSevereSeverity(sev moderation.Severity) Option {
	return func(s *Service) {
		if sev > moderation.SeverityNone {
			s.severe = sev
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l.With().Str("component", "moderator").Logger() }
}

// NewService creates a Service.
func NewService(e Escalator, r Reporter, opts ...Option) *Service {
	s := &Service{
		filter:    moderation.NewFilter(),
		escalator: e,
		reporter:  r,
		window:    chat.NewMessageBuffer(chat.DefaultWindow),
		severe:    moderation.SeverityHigh,
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// classify runs the filter and records verdict metrics.
func (s *Service) classify(text string, mc moderation.ModerationContext) moderation.Verdict {
	start := time.Now()
	v := s.filter.FilterContent(text, mc)
	metrics.FilterLatency.Observe(time.Since(start).Seconds())

	result := "clean"
	if !v.Clean {
		result = "flagged"
		for _, c := range v.Violations {
			metrics.ViolationsTotal.WithLabelValues(string(c)).Inc()
		}
	}
	metrics.VerdictsTotal.WithLabelValues(string(mc.Context), result).Inc()
	return v
}

// Filter classifies one piece of content. A severe verdict counts a violation
// against the author and the content subject and triggers escalation in the
// background.
func (s *Service) Filter(ctx context.Context, req protocol.FilterRequest) (protocol.FilterResponse, error) {
	if err := validate.Struct(req); err != nil {
		return protocol.FilterResponse{}, err
	}

	mc := req.ModerationContext()
	v := s.classify(req.Text, mc)
	d := moderation.Combine(v, req.Toxicity)

	resp := protocol.FilterResponse{Accept: d.Accept, Reason: d.Reason, Verdict: v}

	if v.AtLeast(s.severe) {
		var subjects []escalation.Subject
		if req.AuthorID != "" {
			subjects = append(subjects, escalation.User(req.AuthorID))
		}
		if req.Subject != nil {
			subjects = append(subjects, req.Subject.Subject())
		}
		if len(subjects) > 0 {
			s.escalator.RecordViolation(ctx, subjects...)
			resp.Violated = true
		}
	}

	if !v.Clean {
		s.log.Debug().
			Str("context", string(mc.Context)).
			Int("length", len(req.Text)).
			Strs("violations", categoryNames(v.Violations)).
			Stringer("severity", v.Severity).
			Bool("accept", d.Accept).
			Msg("content flagged")
	}
	return resp, nil
}

// ChatMessage checks an outgoing direct message. Repeated or near-duplicate
// messages from the same sender are rejected as spam; the text is also
// classified in the chat context. Accepted messages join the sender's history.
func (s *Service) ChatMessage(ctx context.Context, req protocol.ChatMessageRequest) (protocol.ChatResponse, error) {
	if err := validate.Struct(req); err != nil {
		return protocol.ChatResponse{}, err
	}
	if err := chat.ValidateMessage(req.Text); err != nil {
		return protocol.ChatResponse{}, &validate.Error{Fields: []validate.FieldError{{Field: "text", Msg: err.Error()}}}
	}

	if s.limiter != nil && s.chatRule.Enabled() {
		allowed, err := s.limiter.Allow(ctx, req.SenderID, s.chatRule)
		if err != nil {
			s.log.Warn().Err(err).Str("sender_id", req.SenderID).Msg("rate limiter unavailable")
		}
		if !allowed {
			return protocol.ChatResponse{}, ErrChatRateLimited
		}
	}

	mc := moderation.ModerationContext{
		Context:               moderation.ContextChat,
		SkipPersonalDataCheck: req.SkipPersonalDataCheck,
	}
	v := s.classify(req.Text, mc)

	resp := protocol.ChatResponse{Verdict: v}
	if d := moderation.Combine(v, nil); !d.Accept {
		resp.Spam = moderation.IsSpamMessage(req.Text, s.window.Recent(req.ChatID, req.SenderID))
		resp.Reason = d.Reason
	} else {
		msg := chat.BufferedMessage{From: req.SenderID, Text: req.Text, Ts: s.now().Unix()}
		resp.Accept = s.window.Admit(req.ChatID, msg, func(recent []string) bool {
			return !moderation.IsSpamMessage(req.Text, recent)
		})
		if !resp.Accept {
			metrics.SpamMessagesTotal.Inc()
			resp.Spam = true
			resp.Reason = spamReason
		}
	}

	if v.AtLeast(s.severe) {
		s.escalator.RecordViolation(ctx, escalation.User(req.SenderID))
	}
	return resp, nil
}

// EndChat drops the history of a finished chat.
func (s *Service) EndChat(req protocol.EndChatRequest) (protocol.ChatEndedResponse, error) {
	if err := validate.Struct(req); err != nil {
		return protocol.ChatEndedResponse{}, err
	}
	s.window.Remove(req.ChatID)
	return protocol.ChatEndedResponse{ChatID: req.ChatID}, nil
}

// Report submits a report.
func (s *Service) Report(ctx context.Context, req protocol.ReportRequest) (protocol.ReportResponse, error) {
	receipt, err := s.reporter.Submit(ctx, report.Submission{
		ReporterID: req.ReporterID,
		Kind:       req.Kind,
		SubjectID:  req.SubjectID,
		Reason:     req.Reason,
		Details:    req.Details,
	})
	if err != nil {
		return protocol.ReportResponse{}, err
	}
	return protocol.ReportResponse{ReportID: receipt.ReportID.String(), Subject: receipt.Subject}, nil
}

// CheckEscalation runs an escalation check synchronously.
func (s *Service) CheckEscalation(ctx context.Context, req protocol.CheckEscalationRequest) (protocol.EscalationResponse, error) {
	if err := validate.Struct(req); err != nil {
		return protocol.EscalationResponse{}, err
	}
	res, err := s.escalator.Check(ctx, escalation.Subject{Kind: escalation.Kind(req.Kind), ID: req.SubjectID})
	if err != nil {
		return protocol.EscalationResponse{}, fmt.Errorf("moderator: check escalation: %w", err)
	}
	return protocol.EscalationResponse{Result: res}, nil
}

// ListReports returns the latest reports filed against a subject.
func (s *Service) ListReports(ctx context.Context, req protocol.ListReportsRequest) (protocol.ReportListResponse, error) {
	if err := validate.Struct(req); err != nil {
		return protocol.ReportListResponse{}, err
	}
	if s.lister == nil {
		return protocol.ReportListResponse{}, ErrNoReportLister
	}
	limit := req.Limit
	if limit == 0 {
		limit = protocol.DefaultListLimit
	}

	subj := escalation.Subject{Kind: escalation.Kind(req.Kind), ID: req.SubjectID}
	reports, err := s.lister.ListBySubject(ctx, subj, limit)
	if err != nil {
		return protocol.ReportListResponse{}, fmt.Errorf("moderator: list reports: %w", err)
	}

	resp := protocol.ReportListResponse{Subject: subj, Reports: make([]protocol.ReportEntry, len(reports))}
	for i, r := range reports {
		resp.Reports[i] = protocol.ReportEntry{
			ReportID:   r.ID.String(),
			ReporterID: r.ReporterID,
			Reason:     string(r.Reason),
			Details:    r.Details,
			CreatedAt:  r.CreatedAt,
		}
	}
	return resp, nil
}

func categoryNames(cs []moderation.Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}
