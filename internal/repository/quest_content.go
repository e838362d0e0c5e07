package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pressstart/platform/internal/domain"
)

type questContentRepo struct{}

// NewQuestContentRepository returns a pgx-backed QuestContentRepository.
// The repository only reads; quest rows belong to content management.
func NewQuestContentRepository() QuestContentRepository {
	return &questContentRepo{}
}

func (r *questContentRepo) FindByQuestID(ctx context.Context, db DBTX, questID string) (*domain.Quest, error) {
	row := db.QueryRow(ctx, `
		SELECT id, quest_id, name, description, prompt, quest_type,
		       correct_answer, language, starter_code, review_criteria,
		       hint, xp_reward, item_reward, difficulty, created_at
		FROM quests WHERE quest_id = $1`, questID)

	var q domain.Quest
	err := row.Scan(&q.ID, &q.QuestID, &q.Name, &q.Description, &q.Prompt, &q.Type,
		&q.CorrectAnswer, &q.Language, &q.StarterCode, &q.ReviewCriteria,
		&q.Hint, &q.XPReward, &q.ItemReward, &q.Difficulty, &q.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan quest: %w", err)
	}
	return &q, nil
}

func (r *questContentRepo) HostPost(ctx context.Context, db DBTX, questID string) (string, *string, error) {
	var slug string
	var title *string
	err := db.QueryRow(ctx, `
		SELECT slug, title FROM posts WHERE quest_id = $1 LIMIT 1`, questID).Scan(&slug, &title)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("scan host post: %w", err)
	}
	return slug, title, nil
}
