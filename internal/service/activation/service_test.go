package activation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminahr/pulse-engage/internal/dispatch"
	"github.com/luminahr/pulse-engage/internal/domain"
)

// memRepo is an in-memory Repository tracking every mutation for assertions.
type memRepo struct {
	snap    *domain.CampaignSnapshot
	snapErr error

	activateErr  error
	activateCall struct {
		called       bool
		activatedAt  time.Time
		totalInvited int
	}
	reverted bool
}

func (m *memRepo) Snapshot(ctx context.Context, tenantID, campaignID string) (*domain.CampaignSnapshot, error) {
	if m.snapErr != nil {
		return nil, m.snapErr
	}
	return m.snap, nil
}

func (m *memRepo) ActivateIfDraft(ctx context.Context, tenantID, campaignID string, activatedAt time.Time, totalInvited int) error {
	m.activateCall.called = true
	m.activateCall.activatedAt = activatedAt
	m.activateCall.totalInvited = totalInvited
	return m.activateErr
}

func (m *memRepo) RevertToDraft(ctx context.Context, tenantID, campaignID string) error {
	m.reverted = true
	return nil
}

type memAudit struct {
	entries []*domain.AuditEntry
	err     error
}

func (m *memAudit) Record(ctx context.Context, e *domain.AuditEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

type stubDispatcher struct {
	outcome *dispatch.Outcome
	err     error
	called  bool
}

func (s *stubDispatcher) Dispatch(ctx context.Context, c domain.Campaign, ps []domain.Participant) (*dispatch.Outcome, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 14, 9, 30, 0, 0, time.UTC)
}

func TestActivateSuccess(t *testing.T) {
	repo := &memRepo{snap: snapshotWith(domain.CampaignDraft, 6, 0)}
	disp := &stubDispatcher{outcome: &dispatch.Outcome{EmailsSent: 6}}
	audit := &memAudit{}
	svc := NewService(repo, disp, audit).WithNow(fixedNow)

	res, err := svc.Activate(context.Background(), "t1", "c1", "hr@acme.com")

	require.NoError(t, err)
	assert.Equal(t, domain.CampaignActive, res.Campaign.Status)
	require.NotNil(t, res.Campaign.ActivatedAt)
	assert.Equal(t, fixedNow(), *res.Campaign.ActivatedAt)
	assert.Equal(t, 6, res.Campaign.TotalInvited)
	assert.Equal(t, 6, res.Outcome.EmailsSent)

	assert.True(t, repo.activateCall.called)
	assert.Equal(t, 6, repo.activateCall.totalInvited)
	assert.False(t, repo.reverted)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, domain.ActionCampaignActivated, entry.Action)
	assert.Equal(t, "hr@acme.com", entry.Actor)
	assert.True(t, entry.Success)

	var payload domain.ActivationPayload
	require.NoError(t, json.Unmarshal(entry.Payload, &payload))
	assert.Equal(t, 6, payload.EmailsSent)
	assert.Empty(t, payload.FailureReason)
}

func TestActivateValidationFailureHasNoSideEffects(t *testing.T) {
	repo := &memRepo{snap: snapshotWith(domain.CampaignDraft, 2, 0)}
	disp := &stubDispatcher{}
	audit := &memAudit{}
	svc := NewService(repo, disp, audit)

	res, err := svc.Activate(context.Background(), "t1", "c1", "hr@acme.com")

	require.Error(t, err)
	assert.Nil(t, res)
	verrs, ok := AsValidation(err)
	require.True(t, ok)
	assert.NotEmpty(t, verrs)

	// No dispatch, no status write, no audit entry: the caller can fix the
	// pool and retry immediately.
	assert.False(t, disp.called)
	assert.False(t, repo.activateCall.called)
	assert.Empty(t, audit.entries)
}

func TestActivateNonDraftRejected(t *testing.T) {
	repo := &memRepo{snap: snapshotWith(domain.CampaignActive, 10, 0)}
	disp := &stubDispatcher{}
	svc := NewService(repo, disp, &memAudit{})

	_, err := svc.Activate(context.Background(), "t1", "c1", "hr@acme.com")

	verrs, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "status_draft", verrs[0].Rule)
	assert.False(t, disp.called)
}

func TestActivateNotFound(t *testing.T) {
	repo := &memRepo{snapErr: ErrNotFound}
	svc := NewService(repo, &stubDispatcher{}, &memAudit{})

	_, err := svc.Activate(context.Background(), "t1", "missing", "hr@acme.com")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivateDispatchFailureRollsBack(t *testing.T) {
	repo := &memRepo{snap: snapshotWith(domain.CampaignDraft, 6, 0)}
	disp := &stubDispatcher{err: errors.New("ses: credentials rejected")}
	audit := &memAudit{}
	svc := NewService(repo, disp, audit).WithNow(fixedNow)

	res, err := svc.Activate(context.Background(), "t1", "c1", "hr@acme.com")

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "dispatch failed")

	// Campaign stays a draft, and the failed attempt is audited.
	assert.True(t, repo.reverted)
	assert.False(t, repo.activateCall.called)
	require.Len(t, audit.entries, 1)
	assert.False(t, audit.entries[0].Success)

	var payload domain.ActivationPayload
	require.NoError(t, json.Unmarshal(audit.entries[0].Payload, &payload))
	assert.Contains(t, payload.FailureReason, "credentials rejected")
}

func TestActivateConcurrentConflict(t *testing.T) {
	repo := &memRepo{
		snap:        snapshotWith(domain.CampaignDraft, 6, 0),
		activateErr: ErrConflict,
	}
	disp := &stubDispatcher{outcome: &dispatch.Outcome{EmailsSent: 6}}
	audit := &memAudit{}
	svc := NewService(repo, disp, audit).WithNow(fixedNow)

	_, err := svc.Activate(context.Background(), "t1", "c1", "hr@acme.com")

	assert.ErrorIs(t, err, ErrConflict)
	require.Len(t, audit.entries, 1)
	assert.False(t, audit.entries[0].Success)
}

func TestActivatePartialRecipientFailuresStillSucceed(t *testing.T) {
	repo := &memRepo{snap: snapshotWith(domain.CampaignDraft, 6, 0)}
	disp := &stubDispatcher{outcome: &dispatch.Outcome{
		EmailsSent:     4,
		SkippedNoEmail: 1,
		Errors:         []string{"Person3 (p3): mailbox does not exist"},
	}}
	audit := &memAudit{}
	svc := NewService(repo, disp, audit).WithNow(fixedNow)

	res, err := svc.Activate(context.Background(), "t1", "c1", "hr@acme.com")

	require.NoError(t, err)
	assert.Equal(t, domain.CampaignActive, res.Campaign.Status)
	// TotalInvited reflects what actually went out, not the pool size.
	assert.Equal(t, 4, res.Campaign.TotalInvited)
	assert.Len(t, res.Outcome.Errors, 1)

	require.Len(t, audit.entries, 1)
	assert.True(t, audit.entries[0].Success)
}

func TestActivateAuditFailureDoesNotBlock(t *testing.T) {
	repo := &memRepo{snap: snapshotWith(domain.CampaignDraft, 6, 0)}
	disp := &stubDispatcher{outcome: &dispatch.Outcome{EmailsSent: 6}}
	audit := &memAudit{err: errors.New("audit store down")}
	svc := NewService(repo, disp, audit).WithNow(fixedNow)

	res, err := svc.Activate(context.Background(), "t1", "c1", "hr@acme.com")

	require.NoError(t, err)
	assert.Equal(t, domain.CampaignActive, res.Campaign.Status)
}
