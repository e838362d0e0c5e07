package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuestType distinguishes the two answer-evaluation strategies.
type QuestType string

const (
	QuestTypeMultipleChoice QuestType = "multiple-choice"
	QuestTypeCode           QuestType = "code"
)

// Quest is the immutable quest definition owned by content management.
// The gamification core references it by QuestID and never mutates it.
type Quest struct {
	ID             uuid.UUID `json:"id"`
	QuestID        string    `json:"quest_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Prompt         string    `json:"prompt"`
	Type           QuestType `json:"quest_type"`
	CorrectAnswer  *string   `json:"correct_answer,omitempty"`
	Language       *string   `json:"language,omitempty"`
	StarterCode    *string   `json:"starter_code,omitempty"`
	ReviewCriteria *string   `json:"review_criteria,omitempty"`
	Hint           *string   `json:"hint,omitempty"`
	XPReward       int       `json:"xp_reward"`
	ItemReward     *string   `json:"item_reward,omitempty"`
	Difficulty     string    `json:"difficulty"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuestProgress is the mutable per (user, quest) state. Once Completed is
// true the row is terminal: completed/completed_at are never written again.
type QuestProgress struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	QuestID       string     `json:"quest_id"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	Attempts      int        `json:"attempts"`
	AnswerGiven   *string    `json:"answer_given,omitempty"`
}

// InProgress reports whether the quest was started but not finished.
func (p *QuestProgress) InProgress() bool {
	return p.StartedAt != nil && !p.Completed
}

// QuestSubmission is one immutable per-attempt audit row. Failed code
// submissions are counted to decide hint unlocking.
type QuestSubmission struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	QuestID         string    `json:"quest_id"`
	SubmissionType  QuestType `json:"submission_type"`
	AnswerSubmitted *string   `json:"answer_submitted,omitempty"`
	CodeSubmitted   *string   `json:"code_submitted,omitempty"`
	Passed          bool      `json:"passed"`
	Feedback        *string   `json:"feedback,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}
