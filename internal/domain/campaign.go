package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a survey campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Campaign represents one bounded-duration survey distribution unit owned by
// a single tenant account. Status is mutated only through the activation
// state machine; everything else is read-only to this service.
type Campaign struct {
	ID           string         `json:"id" db:"id"`
	TenantID     string         `json:"tenant_id" db:"tenant_id"`
	Name         string         `json:"name" db:"name"`
	SurveyType   string         `json:"survey_type" db:"survey_type"`
	Status       CampaignStatus `json:"status" db:"status"`
	StartDate    *time.Time     `json:"start_date" db:"start_date"`
	EndDate      *time.Time     `json:"end_date" db:"end_date"`
	TotalInvited int            `json:"total_invited" db:"total_invited"`
	ActivatedAt  *time.Time     `json:"activated_at" db:"activated_at"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignCompleted || c.Status == CampaignCancelled
}

// CampaignSnapshot is the read-only projection loaded at the start of an
// activation attempt: the campaign row plus its participants in stable order.
type CampaignSnapshot struct {
	Campaign     Campaign
	Participants []Participant
}

// UnrespondedCount returns the number of participants who have not yet
// submitted a response.
func (s *CampaignSnapshot) UnrespondedCount() int {
	n := 0
	for _, p := range s.Participants {
		if !p.HasResponded {
			n++
		}
	}
	return n
}
