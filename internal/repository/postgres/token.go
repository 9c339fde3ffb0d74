package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/luminahr/pulse-engage/internal/auth"
)

// TokenRepo resolves API bearer tokens against PostgreSQL.
type TokenRepo struct{ db *sql.DB }

// NewTokenRepo creates a Postgres-backed token store.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// Lookup implements auth.TokenStore. Only active tokens resolve.
func (r *TokenRepo) Lookup(ctx context.Context, tokenHash string) (*auth.Identity, error) {
	var id auth.Identity
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, actor_email
		FROM survey_api_tokens
		WHERE token_hash = $1 AND active = true
	`, tokenHash).Scan(&id.TenantID, &id.Actor)
	if err == sql.ErrNoRows {
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	return &id, nil
}
