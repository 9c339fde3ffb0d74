package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/luminahr/pulse-engage/internal/domain"
	"github.com/luminahr/pulse-engage/internal/service/activation"
)

// CampaignRepo implements activation.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

// Snapshot loads the campaign row plus its participants in stable order.
func (r *CampaignRepo) Snapshot(ctx context.Context, tenantID, campaignID string) (*domain.CampaignSnapshot, error) {
	c, err := r.Get(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, first_name, COALESCE(last_name,''), email,
		       COALESCE(company,''), unique_token, has_responded, created_at, responded_at
		FROM survey_participants
		WHERE campaign_id = $1
		ORDER BY created_at, id
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()

	snap := &domain.CampaignSnapshot{Campaign: *c}
	for rows.Next() {
		var p domain.Participant
		var email sql.NullString
		if err := rows.Scan(
			&p.ID, &p.CampaignID, &p.FirstName, &p.LastName, &email,
			&p.Company, &p.UniqueToken, &p.HasResponded, &p.CreatedAt, &p.RespondedAt,
		); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if email.Valid && email.String != "" {
			p.Email = &email.String
		}
		snap.Participants = append(snap.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return snap, nil
}

// ActivateIfDraft flips the campaign to active only if it is still in draft,
// so a concurrent activation cannot take the edge twice.
func (r *CampaignRepo) ActivateIfDraft(ctx context.Context, tenantID, campaignID string, activatedAt time.Time, totalInvited int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE survey_campaigns
		SET status = 'active', activated_at = $1, total_invited = $2, updated_at = NOW()
		WHERE id = $3 AND tenant_id = $4 AND status = 'draft'
	`, activatedAt, totalInvited, campaignID, tenantID)
	if err != nil {
		return fmt.Errorf("activate campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 1 {
		return nil
	}

	// Zero rows: either the campaign is gone or someone else won the race.
	var status string
	err = r.db.QueryRowContext(ctx, `
		SELECT status FROM survey_campaigns WHERE id = $1 AND tenant_id = $2
	`, campaignID, tenantID).Scan(&status)
	if err == sql.ErrNoRows {
		return activation.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check campaign status: %w", err)
	}
	return activation.ErrConflict
}

// RevertToDraft is the rollback compensation after a systemic dispatch
// failure.
func (r *CampaignRepo) RevertToDraft(ctx context.Context, tenantID, campaignID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE survey_campaigns
		SET status = 'draft', activated_at = NULL, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`, campaignID, tenantID)
	if err != nil {
		return fmt.Errorf("revert campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return activation.ErrNotFound
	}
	return nil
}

// Get returns a single campaign scoped to the tenant.
func (r *CampaignRepo) Get(ctx context.Context, tenantID, campaignID string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, survey_type, status, start_date, end_date,
		       total_invited, activated_at, created_at, updated_at
		FROM survey_campaigns
		WHERE id = $1 AND tenant_id = $2
	`, campaignID, tenantID).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.SurveyType, &c.Status, &c.StartDate, &c.EndDate,
		&c.TotalInvited, &c.ActivatedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, activation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

// List returns campaigns for a tenant, newest first.
func (r *CampaignRepo) List(ctx context.Context, tenantID string, f ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM survey_campaigns WHERE tenant_id = $1`
	countArgs := []interface{}{tenantID}
	if f.Status != "" {
		countQ += " AND status = $2"
		countArgs = append(countArgs, f.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `
		SELECT id, tenant_id, name, survey_type, status, start_date, end_date,
		       total_invited, activated_at, created_at, updated_at
		FROM survey_campaigns
		WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	idx := 2
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.Name, &c.SurveyType, &c.Status, &c.StartDate, &c.EndDate,
			&c.TotalInvited, &c.ActivatedAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
