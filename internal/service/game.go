package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressstart/platform/internal/domain"
	"github.com/pressstart/platform/internal/ledger"
	"github.com/pressstart/platform/internal/progression"
	"github.com/pressstart/platform/internal/repository"
)

// GameService handles the non-quest gamification mechanics: daily rewards,
// post-read XP, item usage, content access gating, and level progress.
type GameService struct {
	pool      *pgxpool.Pool
	engine    *ledger.Engine
	users     repository.UserRepository
	claims    repository.DailyClaimRepository
	posts     repository.PostProgressRepository
	inventory repository.InventoryRepository
	grants    repository.XPGrantRepository
	outbox    repository.OutboxRepository
	rewards   progression.RewardConfig
	logger    *slog.Logger
}

// NewGameService creates a GameService.
func NewGameService(
	pool *pgxpool.Pool,
	engine *ledger.Engine,
	users repository.UserRepository,
	claims repository.DailyClaimRepository,
	posts repository.PostProgressRepository,
	inventory repository.InventoryRepository,
	grants repository.XPGrantRepository,
	outbox repository.OutboxRepository,
	rewards progression.RewardConfig,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		pool:      pool,
		engine:    engine,
		users:     users,
		claims:    claims,
		posts:     posts,
		inventory: inventory,
		grants:    grants,
		outbox:    outbox,
		rewards:   rewards,
		logger:    logger,
	}
}

// ReadPostResult is returned by ReadPost.
type ReadPostResult struct {
	Success     bool `json:"success"`
	XPAwarded   int  `json:"xp_awarded"`
	AlreadyRead bool `json:"already_read"`
	NewXP       int  `json:"new_xp"`
	NewLevel    int  `json:"new_level"`
	LeveledUp   bool `json:"leveled_up"`
}

// ReadPost marks a post as read and awards XP on the first read only.
func (s *GameService) ReadPost(ctx context.Context, userID uuid.UUID, postSlug string) (*ReadPostResult, error) {
	if err := domain.ValidateSlug(postSlug); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	user, err := s.engine.LockUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	alreadyRead, err := s.posts.HasRead(ctx, tx, userID, postSlug)
	if err != nil {
		return nil, domain.ErrInternal("check post read", err)
	}
	if alreadyRead {
		return &ReadPostResult{
			Success:     true,
			AlreadyRead: true,
			NewXP:       user.XP,
			NewLevel:    user.Level,
		}, nil
	}

	if err := s.posts.MarkRead(ctx, tx, userID, postSlug); err != nil {
		return nil, domain.ErrInternal("mark post read", err)
	}

	// One-time payout per post, backed by the ledger's unique index.
	received, err := s.engine.HasReceived(ctx, tx, userID, domain.XPSourceReadPost, postSlug)
	if err != nil {
		return nil, domain.ErrInternal("check grant", err)
	}

	result := &ReadPostResult{Success: true, NewXP: user.XP, NewLevel: user.Level}
	if !received {
		desc := fmt.Sprintf("Read post: %s", postSlug)
		grant, err := s.engine.Grant(ctx, tx, user, s.rewards.ReadPostXP, domain.XPSourceReadPost, &postSlug, &desc)
		if err != nil {
			return nil, domain.ErrInternal("grant xp", err)
		}
		result.XPAwarded = s.rewards.ReadPostXP
		result.NewXP = grant.NewXP
		result.NewLevel = grant.NewLevel
		result.LeveledUp = grant.LeveledUp
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	return result, nil
}

// DailyRewardResult is returned by ClaimDailyReward.
type DailyRewardResult struct {
	Success        bool       `json:"success"`
	XPAwarded      int        `json:"xp_awarded"`
	StreakDay      int        `json:"streak_day"`
	NewXP          int        `json:"new_xp"`
	NewLevel       int        `json:"new_level"`
	LeveledUp      bool       `json:"leveled_up"`
	AlreadyClaimed bool       `json:"already_claimed"`
	NextClaimAt    *time.Time `json:"next_claim_at,omitempty"`
}

// ClaimDailyReward claims the daily reward. One claim per UTC calendar day;
// consecutive-day claims extend the streak, gaps reset it to 1. The streak
// update, the XP grant, and the claim row commit as one transaction.
func (s *GameService) ClaimDailyReward(ctx context.Context, userID uuid.UUID) (*DailyRewardResult, error) {
	now := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	user, err := s.engine.LockUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	claimedToday, err := s.claims.HasClaimedSince(ctx, tx, userID, progression.StartOfDayUTC(now))
	if err != nil {
		return nil, domain.ErrInternal("check daily claim", err)
	}
	if claimedToday {
		next := progression.NextClaimAt(now)
		return &DailyRewardResult{
			StreakDay:      user.CurrentStreak,
			NewXP:          user.XP,
			NewLevel:       user.Level,
			AlreadyClaimed: true,
			NextClaimAt:    &next,
		}, nil
	}

	last, err := s.claims.LastClaim(ctx, tx, userID)
	if err != nil {
		return nil, domain.ErrInternal("load last claim", err)
	}

	var lastAt *time.Time
	if last != nil {
		lastAt = &last.ClaimedAt
	}
	newStreak := progression.NextStreak(lastAt, user.CurrentStreak, now)
	xpAmount := progression.DailyRewardXP(newStreak, s.rewards)

	longest := user.LongestStreak
	if newStreak > longest {
		longest = newStreak
	}
	if err := s.users.UpdateStreak(ctx, tx, userID, newStreak, longest); err != nil {
		return nil, domain.ErrInternal("update streak", err)
	}

	desc := fmt.Sprintf("Daily reward (streak day %d)", newStreak)
	grant, err := s.engine.Grant(ctx, tx, user, xpAmount, domain.XPSourceDailyReward, nil, &desc)
	if err != nil {
		return nil, domain.ErrInternal("grant xp", err)
	}

	claim := &domain.DailyClaim{
		UserID:      userID,
		RewardType:  "xp",
		RewardValue: xpAmount,
		StreakDay:   newStreak,
	}
	if err := s.claims.Insert(ctx, tx, claim); err != nil {
		return nil, domain.ErrInternal("insert claim", err)
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewRewardClaimedEvent(userID, newStreak, xpAmount)); err != nil {
		return nil, domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	return &DailyRewardResult{
		Success:   true,
		XPAwarded: xpAmount,
		StreakDay: newStreak,
		NewXP:     grant.NewXP,
		NewLevel:  grant.NewLevel,
		LeveledUp: grant.LeveledUp,
	}, nil
}

// UseItemResult is returned by UseItem.
type UseItemResult struct {
	Success        bool    `json:"success"`
	ItemID         string  `json:"item_id"`
	Effect         string  `json:"effect"`
	TargetUnlocked *string `json:"target_unlocked,omitempty"`
}

// UseItem consumes an item from the user's inventory. Key items
// (item IDs prefixed "key_") aimed at a target post unlock it permanently;
// everything else is a generic single-use consumption.
func (s *GameService) UseItem(ctx context.Context, userID uuid.UUID, itemID string, targetSlug *string) (*UseItemResult, error) {
	if err := domain.ValidateSlug(itemID); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.engine.LockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	hasItem, err := s.inventory.HasItem(ctx, tx, userID, itemID)
	if err != nil {
		return nil, domain.ErrInternal("check item", err)
	}
	if !hasItem {
		return nil, domain.ErrNotFound("item", itemID)
	}

	result := &UseItemResult{Success: true, ItemID: itemID}

	if strings.HasPrefix(itemID, "key_") && targetSlug != nil {
		if err := s.posts.Unlock(ctx, tx, userID, *targetSlug, itemID); err != nil {
			return nil, domain.ErrInternal("unlock post", err)
		}
		result.TargetUnlocked = targetSlug
		result.Effect = fmt.Sprintf("Unlocked post: %s", *targetSlug)
	} else {
		result.Effect = fmt.Sprintf("Used item: %s", itemID)
	}

	if err := s.inventory.RemoveItem(ctx, tx, userID, itemID); err != nil {
		return nil, domain.ErrInternal("remove item", err)
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewItemUsedEvent(userID, itemID, targetSlug)); err != nil {
		return nil, domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	return result, nil
}

// CheckAccess evaluates gating rules for one content unit against the
// user's current level, inventory, and prior unlocks.
func (s *GameService) CheckAccess(ctx context.Context, userID uuid.UUID, postSlug string, requiredLevel *int, requiredItem *string) (*progression.AccessDecision, error) {
	user, err := s.users.FindByID(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("load user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}

	hasItem := false
	unlocked := false
	if requiredItem != nil {
		hasItem, err = s.inventory.HasItem(ctx, s.pool, userID, *requiredItem)
		if err != nil {
			return nil, domain.ErrInternal("check item", err)
		}
		unlocked, err = s.posts.IsUnlocked(ctx, s.pool, userID, postSlug)
		if err != nil {
			return nil, domain.ErrInternal("check unlock", err)
		}
	}

	decision := progression.EvaluateAccess(user.Level, requiredLevel, requiredItem, hasItem, unlocked)
	return &decision, nil
}

// LevelProgress derives the progress-bar values for the user.
func (s *GameService) LevelProgress(ctx context.Context, userID uuid.UUID) (*progression.Progress, error) {
	user, err := s.users.FindByID(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("load user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}

	p := progression.LevelProgress(user.XP, user.Level)
	return &p, nil
}

// XPHistory returns the most recent ledger entries for audit display.
func (s *GameService) XPHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.XPGrant, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	grants, err := s.grants.ListByUser(ctx, s.pool, userID, limit)
	if err != nil {
		return nil, domain.ErrInternal("list grants", err)
	}
	return grants, nil
}

// Inventory returns the user's current items.
func (s *GameService) Inventory(ctx context.Context, userID uuid.UUID) ([]domain.InventoryItem, error) {
	items, err := s.inventory.ListByUser(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("list inventory", err)
	}
	return items, nil
}
