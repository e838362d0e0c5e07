package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressstart/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UserRepository provides access to users and their progression columns.
type UserRepository interface {
	// FindByID returns a user by ID, nil when absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error)

	// FindByEmail returns a user by email, nil when absent.
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.User, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the user.
	// All progression writes for one user are serialized through this lock.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error)

	// Create inserts a new user.
	Create(ctx context.Context, db DBTX, user *domain.User) error

	// UpdateXPAndLevel writes the new XP total and its derived level atomically.
	UpdateXPAndLevel(ctx context.Context, db DBTX, id uuid.UUID, xp, level int) error

	// UpdateStreak writes the current and longest streak counters.
	UpdateStreak(ctx context.Context, db DBTX, id uuid.UUID, current, longest int) error
}

// XPGrantRepository provides access to the append-only xp_grants ledger.
type XPGrantRepository interface {
	// Insert appends one immutable ledger row.
	Insert(ctx context.Context, db DBTX, grant *domain.XPGrant) error

	// HasReceived reports whether a grant already exists for
	// (user, source, sourceID). Callers consult this before paying out
	// one-time sources.
	HasReceived(ctx context.Context, db DBTX, userID uuid.UUID, source, sourceID string) (bool, error)

	// ListByUser returns the most recent grants for audit display.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.XPGrant, error)
}

// DailyClaimRepository provides access to daily_claims.
type DailyClaimRepository interface {
	// HasClaimedSince reports whether a claim exists at or after the cutoff.
	HasClaimedSince(ctx context.Context, db DBTX, userID uuid.UUID, cutoff time.Time) (bool, error)

	// LastClaim returns the most recent claim, nil when the user never claimed.
	LastClaim(ctx context.Context, db DBTX, userID uuid.UUID) (*domain.DailyClaim, error)

	// Insert appends one claim row.
	Insert(ctx context.Context, db DBTX, claim *domain.DailyClaim) error
}

// QuestContentRepository is the read-only quest definition lookup. Quest
// definitions are owned by content management; this core never writes them.
type QuestContentRepository interface {
	// FindByQuestID returns a quest definition, nil when unknown.
	FindByQuestID(ctx context.Context, db DBTX, questID string) (*domain.Quest, error)

	// HostPost returns the slug and title of the post hosting a quest.
	// Empty slug when no post references it.
	HostPost(ctx context.Context, db DBTX, questID string) (slug string, title *string, err error)
}

// QuestProgressRepository provides access to quest_progress rows.
type QuestProgressRepository interface {
	// FindByUserQuest returns the progress row, nil when absent.
	FindByUserQuest(ctx context.Context, db DBTX, userID uuid.UUID, questID string) (*domain.QuestProgress, error)

	// Start inserts a fresh progress row or returns the existing one.
	Start(ctx context.Context, db DBTX, userID uuid.UUID, questID string) (progress *domain.QuestProgress, alreadyStarted bool, err error)

	// RecordFailedAnswer increments attempts and stores the answer,
	// creating the row when absent.
	RecordFailedAnswer(ctx context.Context, db DBTX, userID uuid.UUID, questID, answer string) (*domain.QuestProgress, error)

	// RecordAttempt stamps last_attempt_at and increments attempts,
	// creating the row when absent. Used by the code-review path.
	RecordAttempt(ctx context.Context, db DBTX, userID uuid.UUID, questID string) (*domain.QuestProgress, error)

	// MarkCompleted transitions the row to its terminal state. The update is
	// conditional on completed = false; ErrAlreadyCompleted is returned when
	// a concurrent submission won the race, so completion cannot pay twice.
	MarkCompleted(ctx context.Context, db DBTX, userID uuid.UUID, questID, answer string, countAttempt bool) (*domain.QuestProgress, error)

	// ListByUser returns all progress rows for a user.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.QuestProgress, error)
}

// QuestSubmissionRepository provides access to the append-only
// quest_submissions audit table.
type QuestSubmissionRepository interface {
	// Insert appends one submission row.
	Insert(ctx context.Context, db DBTX, sub *domain.QuestSubmission) error

	// CountFailed returns the failed submission count for (user, quest).
	CountFailed(ctx context.Context, db DBTX, userID uuid.UUID, questID string) (int, error)
}

// InventoryRepository provides access to inventory_items.
type InventoryRepository interface {
	// HasItem reports current ownership.
	HasItem(ctx context.Context, db DBTX, userID uuid.UUID, itemID string) (bool, error)

	// AddItem grants ownership; adding an owned item is a no-op.
	AddItem(ctx context.Context, db DBTX, userID uuid.UUID, itemID string) error

	// RemoveItem revokes ownership (single-use consumption).
	RemoveItem(ctx context.Context, db DBTX, userID uuid.UUID, itemID string) error

	// ListByUser returns the user's inventory.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.InventoryItem, error)
}

// PostProgressRepository provides access to post_progress.
type PostProgressRepository interface {
	// HasRead reports whether the post was already read.
	HasRead(ctx context.Context, db DBTX, userID uuid.UUID, postSlug string) (bool, error)

	// MarkRead records the first read, creating the row when absent.
	MarkRead(ctx context.Context, db DBTX, userID uuid.UUID, postSlug string) error

	// IsUnlocked reports whether the post was permanently unlocked.
	IsUnlocked(ctx context.Context, db DBTX, userID uuid.UUID, postSlug string) (bool, error)

	// Unlock records a permanent item unlock for the post.
	Unlock(ctx context.Context, db DBTX, userID uuid.UUID, postSlug, itemID string) error
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the
	// state change it describes).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns pending events for the outbox poller.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxRow, error)

	// MarkPublished removes published events.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
