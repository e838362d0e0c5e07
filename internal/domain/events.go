package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewXPGrantedEvent creates the standard event for one XP ledger row.
func NewXPGrantedEvent(grant *XPGrant, newXP, newLevel int, leveledUp bool) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":    grant.UserID.String(),
		"amount":     grant.Amount,
		"source":     grant.Source,
		"source_id":  grant.SourceID,
		"new_xp":     newXP,
		"new_level":  newLevel,
		"leveled_up": leveledUp,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateUser,
		AggregateID:   grant.UserID.String(),
		EventType:     EventXPGranted,
		PartitionKey:  grant.UserID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewLevelUpEvent creates a level-up event for downstream consumers
// (notifications, analytics).
func NewLevelUpEvent(userID uuid.UUID, oldLevel, newLevel int) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":   userID.String(),
		"old_level": oldLevel,
		"new_level": newLevel,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateUser,
		AggregateID:   userID.String(),
		EventType:     EventLevelUp,
		PartitionKey:  userID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewQuestStartedEvent creates a quest start event.
func NewQuestStartedEvent(userID uuid.UUID, questID string) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{
		"user_id":  userID.String(),
		"quest_id": questID,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateQuest,
		AggregateID:   questID,
		EventType:     EventQuestStarted,
		PartitionKey:  userID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewQuestCompletedEvent creates a quest completion event.
func NewQuestCompletedEvent(userID uuid.UUID, questID string, attempts, xpAwarded int) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":    userID.String(),
		"quest_id":   questID,
		"attempts":   attempts,
		"xp_awarded": xpAwarded,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateQuest,
		AggregateID:   questID,
		EventType:     EventQuestCompleted,
		PartitionKey:  userID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewRewardClaimedEvent creates a daily reward claim event.
func NewRewardClaimedEvent(userID uuid.UUID, streakDay, xpAwarded int) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":    userID.String(),
		"streak_day": streakDay,
		"xp_awarded": xpAwarded,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateUser,
		AggregateID:   userID.String(),
		EventType:     EventRewardClaimed,
		PartitionKey:  userID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewItemUsedEvent creates an item consumption event.
func NewItemUsedEvent(userID uuid.UUID, itemID string, targetSlug *string) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":     userID.String(),
		"item_id":     itemID,
		"target_slug": targetSlug,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateUser,
		AggregateID:   userID.String(),
		EventType:     EventItemUsed,
		PartitionKey:  userID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewUserCreatedEvent creates a user lifecycle event.
func NewUserCreatedEvent(userID uuid.UUID, email string) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{
		"user_id": userID.String(),
		"email":   email,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateUser,
		AggregateID:   userID.String(),
		EventType:     EventUserCreated,
		PartitionKey:  userID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
