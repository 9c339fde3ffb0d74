package domain

import "time"

// DeliveryStatus enumerates the outcome of a single dispatch attempt.
type DeliveryStatus string

const (
	DeliverySent           DeliveryStatus = "sent"
	DeliveryFailed         DeliveryStatus = "failed"
	DeliverySkippedNoEmail DeliveryStatus = "skipped_no_contact"
)

// DeliveryRecord is one row of the append-only delivery ledger: the outcome
// of dispatching one notification to one participant. Rows are never updated
// after creation; a re-activation appends new rows rather than mutating old
// ones.
type DeliveryRecord struct {
	ID            string         `json:"id" db:"id"`
	CampaignID    string         `json:"campaign_id" db:"campaign_id"`
	ParticipantID string         `json:"participant_id" db:"participant_id"`
	Status        DeliveryStatus `json:"status" db:"status"`
	MessageID     string         `json:"message_id,omitempty" db:"message_id"`
	ErrorDetail   string         `json:"error_detail,omitempty" db:"error_detail"`
	SentAt        time.Time      `json:"sent_at" db:"sent_at"`
}

// DeliveryStats aggregates ledger rows by status for a campaign.
type DeliveryStats struct {
	Total   int `json:"total"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped_no_contact"`
}
