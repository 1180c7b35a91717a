package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Sender delivers a rendered Message to a recipient. Recipient is an
// opaque address (email, webhook URL, chat channel id) the sender knows
// how to interpret.
type Sender interface {
	Send(ctx context.Context, recipient string, msg Message) error
}

// LogSender logs messages instead of delivering them. It is the default
// sender: no outbound network credentials are assumed to exist, so this
// is what NotificationSent/NotificationFailed actually observe unless a
// real Sender (SMTP, SendGrid, a webhook) is wired in by the caller.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, recipient string, msg Message) error {
	s.log.Info().
		Str("recipient", recipient).
		Str("kind", msg.Kind.String()).
		Str("subject", msg.Subject).
		Msg(msg.Body)
	return nil
}

// SendError wraps a delivery failure from a Sender.
type SendError struct {
	Recipient string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("notification delivery to %s failed: %v", e.Recipient, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
