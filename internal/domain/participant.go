package domain

import "time"

// Participant is one addressable recipient of a campaign. Email is optional;
// a participant without one is reachable only out-of-band and is skipped by
// dispatch rather than treated as an error. UniqueToken is the capability
// token embedded in the personalized survey link. Participants are read-only
// to this service; the response-submission flow owns HasResponded.
type Participant struct {
	ID           string     `json:"id" db:"id"`
	CampaignID   string     `json:"campaign_id" db:"campaign_id"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	Email        *string    `json:"email" db:"email"`
	Company      string     `json:"company" db:"company"`
	UniqueToken  string     `json:"unique_token" db:"unique_token"`
	HasResponded bool       `json:"has_responded" db:"has_responded"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	RespondedAt  *time.Time `json:"responded_at" db:"responded_at"`
}

// HasEmail reports whether the participant has a usable contact address.
func (p *Participant) HasEmail() bool {
	return p.Email != nil && *p.Email != ""
}

// FullName returns the participant's display name for template variables.
func (p *Participant) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// ParticipantRef identifies a participant in API responses without exposing
// the capability token.
type ParticipantRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ref returns the API-safe reference for the participant.
func (p *Participant) Ref() ParticipantRef {
	return ParticipantRef{ID: p.ID, Name: p.FullName()}
}
