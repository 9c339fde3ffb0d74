package domain

import (
	"encoding/json"
	"time"
)

// AuditAction identifies the kind of event an audit entry records.
type AuditAction string

// ActionCampaignActivated is written once per activation attempt that reached
// the dispatch phase, whether it ultimately succeeded or failed.
const ActionCampaignActivated AuditAction = "campaign_activated"

// AuditEntry is an immutable record of one activation attempt and its final
// outcome. Entries are append-only; there is no update or delete path.
type AuditEntry struct {
	ID         string          `json:"id" db:"id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	CampaignID string          `json:"campaign_id" db:"campaign_id"`
	Action     AuditAction     `json:"action" db:"action"`
	Actor      string          `json:"actor" db:"actor"`
	Success    bool            `json:"success" db:"success"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// ActivationPayload is the outcome detail serialized into the audit entry.
type ActivationPayload struct {
	EmailsSent     int      `json:"emails_sent"`
	SkippedNoEmail int      `json:"skipped_no_email"`
	Errors         []string `json:"errors,omitempty"`
	FailureReason  string   `json:"failure_reason,omitempty"`
}
