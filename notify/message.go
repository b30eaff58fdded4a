package notify

import (
	"context"
	"errors"
)

// ErrNoRecipient is returned when a message has an empty To address.
var ErrNoRecipient = errors.New("notify: message has no recipient")

// Message is an outbound email. HTML is optional.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Delivery identifies a message accepted by the provider.
type Delivery struct {
	ID string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (Delivery, error)
}
