package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pressstart/platform/internal/domain"
)

type userRepo struct{}

// NewUserRepository returns a pgx-backed UserRepository.
func NewUserRepository() UserRepository {
	return &userRepo{}
}

const userColumns = `id, email, username, password_hash, xp, level, current_streak, longest_streak, created_at, updated_at`

func (r *userRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, db DBTX, email string) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *userRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error) {
	row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	return scanUser(row)
}

func (r *userRepo) Create(ctx context.Context, db DBTX, user *domain.User) error {
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, email, username, password_hash, xp, level, current_streak, longest_streak, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Email, user.Username, user.PasswordHash,
		user.XP, user.Level, user.CurrentStreak, user.LongestStreak,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) UpdateXPAndLevel(ctx context.Context, db DBTX, id uuid.UUID, xp, level int) error {
	tag, err := db.Exec(ctx, `
		UPDATE users SET xp = $2, level = $3, updated_at = now() WHERE id = $1`,
		id, xp, level)
	if err != nil {
		return fmt.Errorf("update xp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update xp: user %s not found", id)
	}
	return nil
}

func (r *userRepo) UpdateStreak(ctx context.Context, db DBTX, id uuid.UUID, current, longest int) error {
	tag, err := db.Exec(ctx, `
		UPDATE users SET current_streak = $2, longest_streak = $3, updated_at = now() WHERE id = $1`,
		id, current, longest)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update streak: user %s not found", id)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash,
		&u.XP, &u.Level, &u.CurrentStreak, &u.LongestStreak,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
