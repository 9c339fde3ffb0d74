package dispatch

import (
	"context"

	"github.com/luminahr/pulse-engage/internal/domain"
)

// Message is a rendered notification ready for transmission.
type Message struct {
	Subject string
	Body    string
}

// Renderer produces the subject and body for one recipient, keyed by the
// campaign's survey type. A render failure is systemic: the template is
// shared by every recipient, so there is no point continuing the loop.
type Renderer interface {
	Render(ctx context.Context, templateKey string, vars map[string]interface{}) (Message, error)
}

// OutboundEmail is one send request to the transport provider.
type OutboundEmail struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Transport sends a single email and returns the provider's message id.
// Provider-reported rejections of one message must be returned as
// *RecipientError; any other error (connectivity, credentials) is treated
// as systemic by the dispatcher.
type Transport interface {
	Send(ctx context.Context, email OutboundEmail) (messageID string, err error)
}

// Ledger appends per-recipient delivery outcomes. Writes are best-effort
// from the dispatcher's point of view: a failed append is logged and
// swallowed, never allowed to abort the loop.
type Ledger interface {
	Append(ctx context.Context, rec *domain.DeliveryRecord) error
}

// RecipientError marks a transport failure that is isolated to a single
// recipient (malformed address, provider-side rejection). It never aborts
// the dispatch loop.
type RecipientError struct {
	Reason string
}

func (e *RecipientError) Error() string { return e.Reason }
