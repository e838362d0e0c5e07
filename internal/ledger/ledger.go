// Package ledger implements the append-only XP ledger. Every XP change in
// the system flows through Engine.Grant: the users table is the only other
// place XP lives, and it is updated in the same transaction as the ledger
// row, so the two can never diverge.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pressstart/platform/internal/domain"
	"github.com/pressstart/platform/internal/progression"
	"github.com/pressstart/platform/internal/repository"
)

// Engine provides the 3 foundational ledger operations:
//  1. LockUser: row-level pessimistic lock, serializing per-user writes
//  2. HasReceived: idempotency check for one-time XP sources
//  3. Grant: atomic XP update plus append-only insert plus outbox event
type Engine struct {
	users  repository.UserRepository
	grants repository.XPGrantRepository
	outbox repository.OutboxRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	users repository.UserRepository,
	grants repository.XPGrantRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{users: users, grants: grants, outbox: outbox}
}

// GrantResult describes the outcome of one XP grant.
type GrantResult struct {
	Grant     *domain.XPGrant `json:"grant"`
	NewXP     int             `json:"new_xp"`
	NewLevel  int             `json:"new_level"`
	LeveledUp bool            `json:"leveled_up"`
}

// LockUser acquires a row-level lock and returns the user.
// Must be called within a transaction.
func (e *Engine) LockUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.User, error) {
	user, err := e.users.LockForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}
	return user, nil
}

// HasReceived reports whether a grant already exists for
// (user, source, sourceID). Callers paying out one-time sources (post
// reads, quest completions) consult this before Grant; the check is backed
// by a partial unique index so a lost race surfaces as an insert error
// instead of a double payout.
func (e *Engine) HasReceived(ctx context.Context, db repository.DBTX, userID uuid.UUID, source, sourceID string) (bool, error) {
	received, err := e.grants.HasReceived(ctx, db, userID, source, sourceID)
	if err != nil {
		return false, fmt.Errorf("check grant: %w", err)
	}
	return received, nil
}

// Grant awards XP to a locked user, recomputing the level from the new
// total via the progression curve. It updates the user's XP/level cache,
// appends one immutable xp_grants row, and writes the matching outbox
// events, all on the caller's transaction. The passed user is mutated to
// reflect the new totals.
func (e *Engine) Grant(ctx context.Context, tx pgx.Tx, user *domain.User, amount int, source string, sourceID, description *string) (*GrantResult, error) {
	oldLevel := user.Level
	newXP := user.XP + amount
	newLevel := progression.LevelForXP(newXP)

	if err := e.users.UpdateXPAndLevel(ctx, tx, user.ID, newXP, newLevel); err != nil {
		return nil, fmt.Errorf("update xp: %w", err)
	}

	grant := &domain.XPGrant{
		UserID:      user.ID,
		Amount:      amount,
		Source:      source,
		SourceID:    sourceID,
		Description: description,
	}
	if err := e.grants.Insert(ctx, tx, grant); err != nil {
		return nil, fmt.Errorf("insert grant: %w", err)
	}

	leveledUp := newLevel > oldLevel

	if err := e.outbox.Insert(ctx, tx, domain.NewXPGrantedEvent(grant, newXP, newLevel, leveledUp)); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}
	if leveledUp {
		if err := e.outbox.Insert(ctx, tx, domain.NewLevelUpEvent(user.ID, oldLevel, newLevel)); err != nil {
			return nil, fmt.Errorf("insert outbox event: %w", err)
		}
	}

	user.XP = newXP
	user.Level = newLevel

	return &GrantResult{
		Grant:     grant,
		NewXP:     newXP,
		NewLevel:  newLevel,
		LeveledUp: leveledUp,
	}, nil
}
