package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pressstart/platform/internal/domain"
)

type xpGrantRepo struct{}

// NewXPGrantRepository returns a pgx-backed XPGrantRepository.
func NewXPGrantRepository() XPGrantRepository {
	return &xpGrantRepo{}
}

func (r *xpGrantRepo) Insert(ctx context.Context, db DBTX, grant *domain.XPGrant) error {
	row := db.QueryRow(ctx, `
		INSERT INTO xp_grants (user_id, amount, source, source_id, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		grant.UserID, grant.Amount, grant.Source, grant.SourceID, grant.Description)
	if err := row.Scan(&grant.ID, &grant.CreatedAt); err != nil {
		return fmt.Errorf("insert xp grant: %w", err)
	}
	return nil
}

func (r *xpGrantRepo) HasReceived(ctx context.Context, db DBTX, userID uuid.UUID, source, sourceID string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM xp_grants
			WHERE user_id = $1 AND source = $2 AND source_id = $3
		)`, userID, source, sourceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check xp grant: %w", err)
	}
	return exists, nil
}

func (r *xpGrantRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.XPGrant, error) {
	rows, err := db.Query(ctx, `
		SELECT id, user_id, amount, source, source_id, description, created_at
		FROM xp_grants
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list xp grants: %w", err)
	}
	defer rows.Close()

	var grants []domain.XPGrant
	for rows.Next() {
		var g domain.XPGrant
		if err := rows.Scan(&g.ID, &g.UserID, &g.Amount, &g.Source, &g.SourceID, &g.Description, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan xp grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
