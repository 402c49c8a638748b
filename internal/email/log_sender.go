package email

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogSender writes outgoing mail to the log instead of delivering it. Used
// in development when no SMTP host is configured.
type LogSender struct{}

var _ Sender = LogSender{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("email not delivered (no SMTP host configured)")
	return nil
}
