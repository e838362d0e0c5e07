package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventUserCreated    EventType = "game.user.created"
	EventXPGranted      EventType = "game.xp.granted"
	EventLevelUp        EventType = "game.level.up"
	EventQuestStarted   EventType = "game.quest.started"
	EventQuestCompleted EventType = "game.quest.completed"
	EventRewardClaimed  EventType = "game.reward.claimed"
	EventItemUsed       EventType = "game.item.used"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateUser  AggregateType = "user"
	AggregateQuest AggregateType = "quest"
)

// OutboxDraft is the payload written to the event_outbox table, published
// to Kafka by the outbox consumer.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	PartitionKey  string          `json:"partition_key"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// OutboxRow is an outbox draft with its storage sequence ID, used by the
// consumer to mark batches published.
type OutboxRow struct {
	SeqID int64
	OutboxDraft
}
