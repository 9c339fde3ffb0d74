package activation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/luminahr/pulse-engage/internal/dispatch"
	"github.com/luminahr/pulse-engage/internal/domain"
)

// Dispatcher is the notification fan-out invoked as the side effect of the
// draft→active edge.
type Dispatcher interface {
	Dispatch(ctx context.Context, c domain.Campaign, participants []domain.Participant) (*dispatch.Outcome, error)
}

// Result is the caller-visible outcome of a successful activation. Partial
// per-recipient failures still count as success; their detail is carried in
// Outcome for manual follow-up (no automatic retry happens at this layer).
type Result struct {
	Campaign *domain.Campaign
	Outcome  *dispatch.Outcome
}

// Service owns the campaign status transitions. Only draft→active is
// implemented here; completion and cancellation belong to other flows.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	audit      AuditRecorder

	now func() time.Time
}

// NewService creates an activation service.
func NewService(repo Repository, dispatcher Dispatcher, audit AuditRecorder) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		audit:      audit,
		now:        time.Now,
	}
}

// WithNow replaces the clock. Test hook.
func (s *Service) WithNow(fn func() time.Time) *Service {
	s.now = fn
	return s
}

// Activate runs the draft→active transition for one campaign.
//
// Validation failures return ValidationErrors with zero side effects, so the
// caller can correct and retry immediately. A systemic dispatch failure
// reverts the campaign to draft and is returned as a plain error; delivery
// records written before the failure stay in the ledger. Both outcomes that
// reached the dispatch phase leave an audit entry.
func (s *Service) Activate(ctx context.Context, tenantID, campaignID, actor string) (*Result, error) {
	snap, err := s.repo.Snapshot(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}

	if verrs := ValidateEligibility(snap); len(verrs) > 0 {
		return nil, verrs
	}

	outcome, err := s.dispatcher.Dispatch(ctx, snap.Campaign, snap.Participants)
	if err != nil {
		// Rollback compensation: confirm draft status. Ledger rows already
		// written stay; losing delivery history would be worse than the
		// short inconsistency window.
		if rbErr := s.repo.RevertToDraft(ctx, tenantID, campaignID); rbErr != nil {
			log.Printf("[activation.Service] rollback of campaign %s failed: %v", campaignID, rbErr)
		}
		s.recordAudit(ctx, tenantID, campaignID, actor, false, &domain.ActivationPayload{
			FailureReason: err.Error(),
		})
		return nil, fmt.Errorf("dispatch failed: %w", err)
	}

	activatedAt := s.now()
	if err := s.repo.ActivateIfDraft(ctx, tenantID, campaignID, activatedAt, outcome.EmailsSent); err != nil {
		s.recordAudit(ctx, tenantID, campaignID, actor, false, &domain.ActivationPayload{
			EmailsSent:     outcome.EmailsSent,
			SkippedNoEmail: outcome.SkippedNoEmail,
			Errors:         outcome.Errors,
			FailureReason:  err.Error(),
		})
		return nil, fmt.Errorf("persist activation: %w", err)
	}

	s.recordAudit(ctx, tenantID, campaignID, actor, true, &domain.ActivationPayload{
		EmailsSent:     outcome.EmailsSent,
		SkippedNoEmail: outcome.SkippedNoEmail,
		Errors:         outcome.Errors,
	})

	c := snap.Campaign
	c.Status = domain.CampaignActive
	c.ActivatedAt = &activatedAt
	c.TotalInvited = outcome.EmailsSent

	log.Printf("[activation.Service] Campaign %s activated: %d sent, %d skipped, %d errors",
		campaignID, outcome.EmailsSent, outcome.SkippedNoEmail, len(outcome.Errors))

	return &Result{Campaign: &c, Outcome: outcome}, nil
}

// recordAudit writes the attempt's audit entry. The entry is the product of
// the attempt, not a precondition for it, so failures are logged and
// swallowed.
func (s *Service) recordAudit(ctx context.Context, tenantID, campaignID, actor string, success bool, payload *domain.ActivationPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[activation.Service] audit payload marshal failed: %v", err)
		return
	}
	entry := &domain.AuditEntry{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		CampaignID: campaignID,
		Action:     domain.ActionCampaignActivated,
		Actor:      actor,
		Success:    success,
		Payload:    data,
		CreatedAt:  s.now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		log.Printf("[activation.Service] audit write failed for campaign %s: %v", campaignID, err)
	}
}
