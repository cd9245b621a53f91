package moderator

import (
	"context"
	"errors"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/metrics"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/protocol"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/report"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/validate"
)

// Handle decodes one request, dispatches it and encodes the reply. It always
// returns a reply; failures are encoded as error responses.
func (s *Service) Handle(ctx context.Context, data []byte) []byte {
	env, msg, err := protocol.ParseRequest(data)
	if err != nil {
		var ute *protocol.UnknownTypeError
		if errors.As(err, &ute) {
			metrics.RequestsTotal.WithLabelValues("unknown").Inc()
			return protocol.NewError(env.ID, protocol.CodeUnknownType, err.Error())
		}
		metrics.RequestsTotal.WithLabelValues("malformed").Inc()
		return protocol.NewError(env.ID, protocol.CodeInvalidRequest, err.Error())
	}
	metrics.RequestsTotal.WithLabelValues(env.Type).Inc()

	var (
		respType string
		resp     any
	)
	switch m := msg.(type) {
	case protocol.FilterRequest:
		respType = protocol.TypeFilterResult
		resp, err = s.Filter(ctx, m)
	case protocol.ChatMessageRequest:
		respType = protocol.TypeChatResult
		resp, err = s.ChatMessage(ctx, m)
	case protocol.ReportRequest:
		respType = protocol.TypeReportAccepted
		resp, err = s.Report(ctx, m)
	case protocol.CheckEscalationRequest:
		respType = protocol.TypeEscalationResult
		resp, err = s.CheckEscalation(ctx, m)
	case protocol.EndChatRequest:
		respType = protocol.TypeChatEnded
		resp, err = s.EndChat(m)
	case protocol.ListReportsRequest:
		respType = protocol.TypeReportList
		resp, err = s.ListReports(ctx, m)
	case protocol.PingRequest:
		respType = protocol.TypePong
		resp = protocol.PongResponse{}
	}
	if err != nil {
		return s.errorReply(env, err)
	}

	out, err := protocol.NewResponse(respType, env.ID, resp)
	if err != nil {
		s.log.Error().Err(err).Str("type", env.Type).Msg("encode response failed")
		return protocol.NewError(env.ID, protocol.CodeInternal, "internal error")
	}
	return out
}

func (s *Service) errorReply(env protocol.Envelope, err error) []byte {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		fields := make([]protocol.FieldError, len(verr.Fields))
		for i, f := range verr.Fields {
			fields[i] = protocol.FieldError{Field: f.Field, Msg: f.Msg}
		}
		return protocol.NewError(env.ID, protocol.CodeInvalidRequest, "invalid request", fields...)
	case errors.Is(err, report.ErrDuplicateReport):
		return protocol.NewError(env.ID, protocol.CodeDuplicate, err.Error())
	case errors.Is(err, report.ErrRateLimited), errors.Is(err, ErrChatRateLimited):
		return protocol.NewError(env.ID, protocol.CodeRateLimited, err.Error())
	case errors.Is(err, ErrNoReportLister):
		return protocol.NewError(env.ID, protocol.CodeUnavailable, err.Error())
	case report.IsClientError(err):
		return protocol.NewError(env.ID, protocol.CodeInvalidRequest, err.Error())
	default:
		s.log.Error().Err(err).Str("type", env.Type).Msg("request failed")
		return protocol.NewError(env.ID, protocol.CodeInternal, "internal error")
	}
}
