package notify

import (
	"context"
	"errors"
)

// ErrDisabled is returned by channels that have no configuration.
var ErrDisabled = errors.New("notify: channel disabled")

// Message is one HTML email to a single recipient.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers a single message. One call is one delivery attempt.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}
