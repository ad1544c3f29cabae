package notifier

import (
	"context"

	ucApproval "chama-approvals/internal/usecase/approval"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger writes events to the structured log. Used when Redis is disabled.
type Logger struct{ l zerolog.Logger }

func NewLogger() *Logger { return &Logger{l: log.Logger} }

func NewLoggerWith(l zerolog.Logger) *Logger { return &Logger{l: l} }

func (n *Logger) NotifyFinalized(_ context.Context, ev ucApproval.FinalizationEvent) error {
	n.l.Info().
		Str("request_id", ev.RequestID).
		Str("group_id", ev.GroupID).
		Str("approval_type", string(ev.Type)).
		Str("amount", ev.Amount.StringFixed(2)).
		Str("final_status", string(ev.FinalStatus)).
		Str("reason", string(ev.Reason)).
		Time("finalized_at", ev.FinalizedAt).
		Msg("approval finalized")
	return nil
}
