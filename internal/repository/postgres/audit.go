package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/luminahr/pulse-engage/internal/domain"
)

// AuditRepo is the Postgres-backed audit recorder. Append-only.
type AuditRepo struct{ db *sql.DB }

// NewAuditRepo creates a Postgres-backed audit repository.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Record inserts one audit entry. Implements activation.AuditRecorder.
func (r *AuditRepo) Record(ctx context.Context, e *domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO survey_audit_entries
			(id, tenant_id, campaign_id, action, actor, success, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.TenantID, e.CampaignID, e.Action, e.Actor, e.Success, []byte(e.Payload), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// ListByCampaign returns the campaign's audit entries, newest first.
func (r *AuditRepo) ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, campaign_id, action, actor, success, payload, created_at
		FROM survey_audit_entries
		WHERE campaign_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC
	`, campaignID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.TenantID, &e.CampaignID, &e.Action, &e.Actor,
			&e.Success, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}
