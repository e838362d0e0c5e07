package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type postProgressRepo struct{}

// NewPostProgressRepository returns a pgx-backed PostProgressRepository.
func NewPostProgressRepository() PostProgressRepository {
	return &postProgressRepo{}
}

func (r *postProgressRepo) HasRead(ctx context.Context, db DBTX, userID uuid.UUID, postSlug string) (bool, error) {
	var hasRead bool
	err := db.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT has_read FROM post_progress WHERE user_id = $1 AND post_slug = $2),
			false
		)`, userID, postSlug).Scan(&hasRead)
	if err != nil {
		return false, fmt.Errorf("check post read: %w", err)
	}
	return hasRead, nil
}

func (r *postProgressRepo) MarkRead(ctx context.Context, db DBTX, userID uuid.UUID, postSlug string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO post_progress (user_id, post_slug, has_read, read_at)
		VALUES ($1, $2, true, now())
		ON CONFLICT (user_id, post_slug) DO UPDATE
		SET has_read = true,
		    read_at = COALESCE(post_progress.read_at, now()),
		    updated_at = now()`, userID, postSlug)
	if err != nil {
		return fmt.Errorf("mark post read: %w", err)
	}
	return nil
}

func (r *postProgressRepo) IsUnlocked(ctx context.Context, db DBTX, userID uuid.UUID, postSlug string) (bool, error) {
	var unlocked bool
	err := db.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT is_unlocked FROM post_progress WHERE user_id = $1 AND post_slug = $2),
			false
		)`, userID, postSlug).Scan(&unlocked)
	if err != nil {
		return false, fmt.Errorf("check post unlock: %w", err)
	}
	return unlocked, nil
}

func (r *postProgressRepo) Unlock(ctx context.Context, db DBTX, userID uuid.UUID, postSlug, itemID string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO post_progress (user_id, post_slug, is_unlocked, unlocked_at, unlocked_with_item)
		VALUES ($1, $2, true, now(), $3)
		ON CONFLICT (user_id, post_slug) DO UPDATE
		SET is_unlocked = true,
		    unlocked_at = COALESCE(post_progress.unlocked_at, now()),
		    unlocked_with_item = COALESCE(post_progress.unlocked_with_item, EXCLUDED.unlocked_with_item),
		    updated_at = now()`, userID, postSlug, itemID)
	if err != nil {
		return fmt.Errorf("unlock post: %w", err)
	}
	return nil
}
