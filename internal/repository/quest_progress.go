package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pressstart/platform/internal/domain"
)

// ErrAlreadyCompleted is returned by MarkCompleted when the progress row is
// already terminal. The conditional UPDATE makes the completion race-safe:
// two concurrent submissions cannot both observe "not completed".
var ErrAlreadyCompleted = errors.New("quest already completed")

type questProgressRepo struct{}

// NewQuestProgressRepository returns a pgx-backed QuestProgressRepository.
func NewQuestProgressRepository() QuestProgressRepository {
	return &questProgressRepo{}
}

const questProgressColumns = `id, user_id, quest_id, started_at, completed, completed_at, last_attempt_at, attempts, answer_given`

func (r *questProgressRepo) FindByUserQuest(ctx context.Context, db DBTX, userID uuid.UUID, questID string) (*domain.QuestProgress, error) {
	row := db.QueryRow(ctx, `
		SELECT `+questProgressColumns+`
		FROM quest_progress WHERE user_id = $1 AND quest_id = $2`, userID, questID)
	return scanQuestProgress(row)
}

func (r *questProgressRepo) Start(ctx context.Context, db DBTX, userID uuid.UUID, questID string) (*domain.QuestProgress, bool, error) {
	// Insert-if-absent keyed on the (user_id, quest_id) unique constraint.
	row := db.QueryRow(ctx, `
		INSERT INTO quest_progress (user_id, quest_id, started_at, attempts)
		VALUES ($1, $2, now(), 0)
		ON CONFLICT (user_id, quest_id) DO NOTHING
		RETURNING `+questProgressColumns, userID, questID)

	progress, err := scanQuestProgress(row)
	if err != nil {
		return nil, false, err
	}
	if progress != nil {
		return progress, false, nil
	}

	existing, err := r.FindByUserQuest(ctx, db, userID, questID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("start quest: progress row vanished for %s/%s", userID, questID)
	}
	return existing, true, nil
}

func (r *questProgressRepo) RecordFailedAnswer(ctx context.Context, db DBTX, userID uuid.UUID, questID, answer string) (*domain.QuestProgress, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO quest_progress (user_id, quest_id, started_at, attempts, answer_given)
		VALUES ($1, $2, now(), 1, $3)
		ON CONFLICT (user_id, quest_id) DO UPDATE
		SET attempts = quest_progress.attempts + 1,
		    answer_given = EXCLUDED.answer_given,
		    updated_at = now()
		RETURNING `+questProgressColumns, userID, questID, answer)

	progress, err := scanQuestProgress(row)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("record failed answer: no row returned for %s/%s", userID, questID)
	}
	return progress, nil
}

func (r *questProgressRepo) RecordAttempt(ctx context.Context, db DBTX, userID uuid.UUID, questID string) (*domain.QuestProgress, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO quest_progress (user_id, quest_id, started_at, attempts, last_attempt_at)
		VALUES ($1, $2, now(), 1, now())
		ON CONFLICT (user_id, quest_id) DO UPDATE
		SET attempts = quest_progress.attempts + 1,
		    last_attempt_at = now(),
		    updated_at = now()
		RETURNING `+questProgressColumns, userID, questID)

	progress, err := scanQuestProgress(row)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("record attempt: no row returned for %s/%s", userID, questID)
	}
	return progress, nil
}

func (r *questProgressRepo) MarkCompleted(ctx context.Context, db DBTX, userID uuid.UUID, questID, answer string, countAttempt bool) (*domain.QuestProgress, error) {
	attemptDelta := 0
	if countAttempt {
		attemptDelta = 1
	}

	// The DO UPDATE clause carries the terminal-state guard: once completed,
	// the row never matches again and no row is returned.
	row := db.QueryRow(ctx, `
		INSERT INTO quest_progress (user_id, quest_id, started_at, completed, completed_at, attempts, answer_given)
		VALUES ($1, $2, now(), true, now(), 1, $3)
		ON CONFLICT (user_id, quest_id) DO UPDATE
		SET completed = true,
		    completed_at = now(),
		    attempts = quest_progress.attempts + $4,
		    answer_given = EXCLUDED.answer_given,
		    updated_at = now()
		WHERE quest_progress.completed = false
		RETURNING `+questProgressColumns, userID, questID, answer, attemptDelta)

	progress, err := scanQuestProgress(row)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, ErrAlreadyCompleted
	}
	return progress, nil
}

func (r *questProgressRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.QuestProgress, error) {
	rows, err := db.Query(ctx, `
		SELECT `+questProgressColumns+`
		FROM quest_progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list quest progress: %w", err)
	}
	defer rows.Close()

	var list []domain.QuestProgress
	for rows.Next() {
		var p domain.QuestProgress
		if err := rows.Scan(&p.ID, &p.UserID, &p.QuestID, &p.StartedAt, &p.Completed,
			&p.CompletedAt, &p.LastAttemptAt, &p.Attempts, &p.AnswerGiven); err != nil {
			return nil, fmt.Errorf("scan quest progress: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanQuestProgress(row pgx.Row) (*domain.QuestProgress, error) {
	var p domain.QuestProgress
	err := row.Scan(&p.ID, &p.UserID, &p.QuestID, &p.StartedAt, &p.Completed,
		&p.CompletedAt, &p.LastAttemptAt, &p.Attempts, &p.AnswerGiven)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan quest progress: %w", err)
	}
	return &p, nil
}
