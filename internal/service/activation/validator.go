package activation

import (
	"fmt"

	"github.com/luminahr/pulse-engage/internal/domain"
)

// MinParticipants is the smallest participant pool a campaign may be
// activated with. Below this, anonymity of survey responses cannot be
// preserved for the reporting layer.
const MinParticipants = 5

// ValidateEligibility checks a campaign snapshot against the activation
// preconditions. Every violated rule is collected; the result is nil when
// the campaign is eligible. Pure function, no side effects.
func ValidateEligibility(snap *domain.CampaignSnapshot) ValidationErrors {
	var errs ValidationErrors

	if snap.Campaign.Status != domain.CampaignDraft {
		errs = append(errs, ValidationError{
			Rule:    "status_draft",
			Message: fmt.Sprintf("only draft campaigns can be activated, current status is %q", snap.Campaign.Status),
		})
	}

	if n := len(snap.Participants); n < MinParticipants {
		errs = append(errs, ValidationError{
			Rule:    "min_participants",
			Message: fmt.Sprintf("campaign has %d participants, at least %d are required", n, MinParticipants),
		})
	}

	if n := snap.UnrespondedCount(); n < MinParticipants {
		errs = append(errs, ValidationError{
			Rule:    "min_unresponded",
			Message: fmt.Sprintf("campaign has %d participants without a response, at least %d are required", n, MinParticipants),
		})
	}

	return errs
}
