package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pressstart/platform/internal/domain"
)

type questSubmissionRepo struct{}

// NewQuestSubmissionRepository returns a pgx-backed QuestSubmissionRepository.
func NewQuestSubmissionRepository() QuestSubmissionRepository {
	return &questSubmissionRepo{}
}

func (r *questSubmissionRepo) Insert(ctx context.Context, db DBTX, sub *domain.QuestSubmission) error {
	row := db.QueryRow(ctx, `
		INSERT INTO quest_submissions (user_id, quest_id, submission_type, answer_submitted, code_submitted, passed, feedback)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, submitted_at`,
		sub.UserID, sub.QuestID, string(sub.SubmissionType),
		sub.AnswerSubmitted, sub.CodeSubmitted, sub.Passed, sub.Feedback)
	if err := row.Scan(&sub.ID, &sub.SubmittedAt); err != nil {
		return fmt.Errorf("insert quest submission: %w", err)
	}
	return nil
}

func (r *questSubmissionRepo) CountFailed(ctx context.Context, db DBTX, userID uuid.UUID, questID string) (int, error) {
	var count int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM quest_submissions
		WHERE user_id = $1 AND quest_id = $2 AND passed = false`,
		userID, questID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed submissions: %w", err)
	}
	return count, nil
}
