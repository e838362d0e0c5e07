package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account with its progression state.
// Level is always derived from XP; the stored column is a denormalized cache
// updated in the same transaction as the XP column.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	XP            int       `json:"xp"`
	Level         int       `json:"level"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// XPGrant is one immutable row in the XP ledger. Rows are never updated
// or deleted; at-most-once payout per (user, source, source_id) is backed
// by a partial unique index.
type XPGrant struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      int       `json:"amount"`
	Source      string    `json:"source"`
	SourceID    *string   `json:"source_id,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// XP grant sources. One-time sources rely on the ledger idempotence check.
const (
	XPSourceReadPost    = "read_post"
	XPSourceQuest       = "quest"
	XPSourceDailyReward = "daily_reward"
)

// DailyClaim records one daily reward claim. One claim per UTC calendar day
// per user, enforced at the application level inside the claim transaction.
type DailyClaim struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	RewardType  string    `json:"reward_type"`
	RewardValue int       `json:"reward_value"`
	StreakDay   int       `json:"streak_day"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

// InventoryItem marks ownership of an item. Presence is boolean; there are
// no quantities.
type InventoryItem struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	ItemID     string    `json:"item_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// PostProgress tracks per-user post state: whether it was read (one-time XP)
// and whether it was permanently unlocked with a key item.
type PostProgress struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	PostSlug         string     `json:"post_slug"`
	HasRead          bool       `json:"has_read"`
	ReadAt           *time.Time `json:"read_at,omitempty"`
	IsUnlocked       bool       `json:"is_unlocked"`
	UnlockedAt       *time.Time `json:"unlocked_at,omitempty"`
	UnlockedWithItem *string    `json:"unlocked_with_item,omitempty"`
}
