package dispatch

import "github.com/luminahr/pulse-engage/internal/domain"

// Delivery is the per-recipient detail of one dispatch attempt.
type Delivery struct {
	Participant domain.ParticipantRef `json:"participant"`
	Status      domain.DeliveryStatus `json:"status"`
	MessageID   string                `json:"message_id,omitempty"`
	Detail      string                `json:"detail,omitempty"`
}

// Outcome summarizes one dispatch run. Recipient-level failures live in
// Errors and Deliveries; they do not make the run itself a failure.
type Outcome struct {
	EmailsSent     int                     `json:"emails_sent"`
	SkippedNoEmail int                     `json:"skipped_no_email"`
	Errors         []string                `json:"errors"`
	NoEmail        []domain.ParticipantRef `json:"participants_without_email"`
	Deliveries     []Delivery              `json:"deliveries"`
}
