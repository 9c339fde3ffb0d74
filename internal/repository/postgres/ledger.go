package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/luminahr/pulse-engage/internal/domain"
)

// LedgerRepo is the Postgres-backed delivery ledger. Rows are append-only;
// there is deliberately no update or delete method.
type LedgerRepo struct{ db *sql.DB }

// NewLedgerRepo creates a Postgres-backed delivery ledger.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Append inserts one delivery record. Implements dispatch.Ledger.
func (r *LedgerRepo) Append(ctx context.Context, rec *domain.DeliveryRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO survey_delivery_records
			(id, campaign_id, participant_id, status, message_id, error_detail, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.CampaignID, rec.ParticipantID, rec.Status,
		nullable(rec.MessageID), nullable(rec.ErrorDetail), rec.SentAt)
	if err != nil {
		return fmt.Errorf("append delivery record: %w", err)
	}
	return nil
}

// ListByCampaign returns the campaign's ledger rows in dispatch order,
// scoped to the tenant through the campaign row.
func (r *LedgerRepo) ListByCampaign(ctx context.Context, tenantID, campaignID string) ([]domain.DeliveryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.id, d.campaign_id, d.participant_id, d.status,
		       COALESCE(d.message_id,''), COALESCE(d.error_detail,''), d.sent_at
		FROM survey_delivery_records d
		JOIN survey_campaigns c ON c.id = d.campaign_id
		WHERE d.campaign_id = $1 AND c.tenant_id = $2
		ORDER BY d.sent_at, d.id
	`, campaignID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list delivery records: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliveryRecord
	for rows.Next() {
		var d domain.DeliveryRecord
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.ParticipantID, &d.Status,
			&d.MessageID, &d.ErrorDetail, &d.SentAt); err != nil {
			return nil, fmt.Errorf("scan delivery record: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Stats aggregates the campaign's ledger rows by status.
func (r *LedgerRepo) Stats(ctx context.Context, campaignID string) (domain.DeliveryStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM survey_delivery_records
		WHERE campaign_id = $1
		GROUP BY status
	`, campaignID)
	if err != nil {
		return domain.DeliveryStats{}, fmt.Errorf("delivery stats: %w", err)
	}
	defer rows.Close()

	var stats domain.DeliveryStats
	for rows.Next() {
		var status domain.DeliveryStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return domain.DeliveryStats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch status {
		case domain.DeliverySent:
			stats.Sent = count
		case domain.DeliveryFailed:
			stats.Failed = count
		case domain.DeliverySkippedNoEmail:
			stats.Skipped = count
		}
		stats.Total += count
	}
	return stats, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
