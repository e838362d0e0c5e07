package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pressstart/platform/internal/domain"
)

type dailyClaimRepo struct{}

// NewDailyClaimRepository returns a pgx-backed DailyClaimRepository.
func NewDailyClaimRepository() DailyClaimRepository {
	return &dailyClaimRepo{}
}

func (r *dailyClaimRepo) HasClaimedSince(ctx context.Context, db DBTX, userID uuid.UUID, cutoff time.Time) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM daily_claims WHERE user_id = $1 AND claimed_at >= $2
		)`, userID, cutoff).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check daily claim: %w", err)
	}
	return exists, nil
}

func (r *dailyClaimRepo) LastClaim(ctx context.Context, db DBTX, userID uuid.UUID) (*domain.DailyClaim, error) {
	row := db.QueryRow(ctx, `
		SELECT id, user_id, reward_type, reward_value, streak_day, claimed_at
		FROM daily_claims
		WHERE user_id = $1
		ORDER BY claimed_at DESC
		LIMIT 1`, userID)

	var c domain.DailyClaim
	err := row.Scan(&c.ID, &c.UserID, &c.RewardType, &c.RewardValue, &c.StreakDay, &c.ClaimedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan daily claim: %w", err)
	}
	return &c, nil
}

func (r *dailyClaimRepo) Insert(ctx context.Context, db DBTX, claim *domain.DailyClaim) error {
	row := db.QueryRow(ctx, `
		INSERT INTO daily_claims (user_id, reward_type, reward_value, streak_day)
		VALUES ($1, $2, $3, $4)
		RETURNING id, claimed_at`,
		claim.UserID, claim.RewardType, claim.RewardValue, claim.StreakDay)
	if err := row.Scan(&claim.ID, &claim.ClaimedAt); err != nil {
		return fmt.Errorf("insert daily claim: %w", err)
	}
	return nil
}
