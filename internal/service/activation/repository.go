package activation

import (
	"context"
	"time"

	"github.com/luminahr/pulse-engage/internal/domain"
)

// Repository defines the data access contract for campaign activation.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Snapshot returns the campaign with its participants in stable order.
	// Returns ErrNotFound if the campaign doesn't exist for the tenant.
	Snapshot(ctx context.Context, tenantID, campaignID string) (*domain.CampaignSnapshot, error)

	// ActivateIfDraft performs the draft→active transition as a single
	// conditional update keyed on the expected prior status. Returns
	// ErrConflict if the campaign was no longer in draft (a concurrent
	// activation won the race) and ErrNotFound if it doesn't exist.
	ActivateIfDraft(ctx context.Context, tenantID, campaignID string, activatedAt time.Time, totalInvited int) error

	// RevertToDraft is the rollback compensation after a systemic dispatch
	// failure: it sets status back to draft unconditionally. Ledger rows
	// written before the failure are left in place.
	RevertToDraft(ctx context.Context, tenantID, campaignID string) error
}

// AuditRecorder appends immutable audit entries. One entry is written per
// activation attempt that reached the dispatch phase.
type AuditRecorder interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}
