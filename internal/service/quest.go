package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressstart/platform/internal/domain"
	"github.com/pressstart/platform/internal/guard"
	"github.com/pressstart/platform/internal/ledger"
	"github.com/pressstart/platform/internal/progression"
	"github.com/pressstart/platform/internal/repository"
)

// CodeReviewer evaluates a code submission against a quest's prompt and
// review criteria. Implementations may be slow and may fail; callers treat
// an error as "review unavailable", never as a verdict.
type CodeReviewer interface {
	Review(ctx context.Context, code, language, questPrompt, criteria string) (passed bool, feedback string, err error)
}

const reviewTimeout = 30 * time.Second

// QuestService drives the quest lifecycle: start, exact-match answers,
// reviewed code submissions, and progress listing.
type QuestService struct {
	pool        *pgxpool.Pool
	engine      *ledger.Engine
	quests      repository.QuestContentRepository
	progress    repository.QuestProgressRepository
	submissions repository.QuestSubmissionRepository
	inventory   repository.InventoryRepository
	outbox      repository.OutboxRepository
	reviewer    CodeReviewer
	breaker     *guard.CircuitBreaker
	cfg         progression.QuestConfig
	logger      *slog.Logger
}

// NewQuestService creates a QuestService.
func NewQuestService(
	pool *pgxpool.Pool,
	engine *ledger.Engine,
	quests repository.QuestContentRepository,
	progress repository.QuestProgressRepository,
	submissions repository.QuestSubmissionRepository,
	inventory repository.InventoryRepository,
	outbox repository.OutboxRepository,
	reviewer CodeReviewer,
	breaker *guard.CircuitBreaker,
	cfg progression.QuestConfig,
	logger *slog.Logger,
) *QuestService {
	return &QuestService{
		pool:        pool,
		engine:      engine,
		quests:      quests,
		progress:    progress,
		submissions: submissions,
		inventory:   inventory,
		outbox:      outbox,
		reviewer:    reviewer,
		breaker:     breaker,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *QuestService) loadQuest(ctx context.Context, db repository.DBTX, questID string) (*domain.Quest, error) {
	quest, err := s.quests.FindByQuestID(ctx, db, questID)
	if err != nil {
		return nil, domain.ErrInternal("load quest", err)
	}
	if quest == nil {
		return nil, domain.ErrNotFound("quest", questID)
	}
	return quest, nil
}

// StartQuestResult is returned by Start.
type StartQuestResult struct {
	Success          bool       `json:"success"`
	QuestID          string     `json:"quest_id"`
	AlreadyStarted   bool       `json:"already_started"`
	AlreadyCompleted bool       `json:"already_completed"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
}

// Start begins a quest for the user. Starting an already-started quest is
// a no-op reporting the existing state.
func (s *QuestService) Start(ctx context.Context, userID uuid.UUID, questID string) (*StartQuestResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	quest, err := s.loadQuest(ctx, tx, questID)
	if err != nil {
		return nil, err
	}

	progress, alreadyStarted, err := s.progress.Start(ctx, tx, userID, quest.QuestID)
	if err != nil {
		return nil, domain.ErrInternal("start quest", err)
	}

	if !alreadyStarted {
		if err := s.outbox.Insert(ctx, tx, domain.NewQuestStartedEvent(userID, quest.QuestID)); err != nil {
			return nil, domain.ErrInternal("insert outbox event", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	return &StartQuestResult{
		Success:          true,
		QuestID:          quest.QuestID,
		AlreadyStarted:   alreadyStarted,
		AlreadyCompleted: progress.Completed,
		StartedAt:        progress.StartedAt,
	}, nil
}

// SubmitAnswerResult is returned by SubmitAnswer.
type SubmitAnswerResult struct {
	Success    bool    `json:"success"`
	Correct    bool    `json:"correct"`
	Feedback   string  `json:"feedback"`
	XPAwarded  int     `json:"xp_awarded"`
	ItemReward *string `json:"item_reward,omitempty"`
	NewXP      int     `json:"new_xp"`
	NewLevel   int     `json:"new_level"`
	LeveledUp  bool    `json:"leveled_up"`
	Attempts   int     `json:"attempts"`
}

// SubmitAnswer evaluates an exact-match answer for a multiple-choice quest.
// Comparison is case- and whitespace-insensitive. A correct answer completes
// the quest and pays its XP exactly once.
func (s *QuestService) SubmitAnswer(ctx context.Context, userID uuid.UUID, questID, answer string) (*SubmitAnswerResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	quest, err := s.loadQuest(ctx, tx, questID)
	if err != nil {
		return nil, err
	}
	if quest.Type != domain.QuestTypeMultipleChoice {
		return nil, domain.ErrValidation("This quest requires code submission")
	}

	user, err := s.engine.LockUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.progress.FindByUserQuest(ctx, tx, userID, quest.QuestID)
	if err != nil {
		return nil, domain.ErrInternal("load progress", err)
	}
	if existing != nil && existing.Completed {
		return nil, domain.ErrValidation("Quest already completed")
	}

	correct := progression.AnswerMatches(answer, quest.CorrectAnswer)

	sub := &domain.QuestSubmission{
		UserID:          userID,
		QuestID:         quest.QuestID,
		SubmissionType:  domain.QuestTypeMultipleChoice,
		AnswerSubmitted: &answer,
		Passed:          correct,
	}
	if err := s.submissions.Insert(ctx, tx, sub); err != nil {
		return nil, domain.ErrInternal("insert submission", err)
	}

	if !correct {
		progress, err := s.progress.RecordFailedAnswer(ctx, tx, userID, quest.QuestID, answer)
		if err != nil {
			return nil, domain.ErrInternal("record failed answer", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, domain.ErrInternal("commit tx", err)
		}
		return &SubmitAnswerResult{
			Success:  true,
			Feedback: "Incorrect. Try again!",
			NewXP:    user.XP,
			NewLevel: user.Level,
			Attempts: progress.Attempts,
		}, nil
	}

	progress, err := s.progress.MarkCompleted(ctx, tx, userID, quest.QuestID, answer, true)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCompleted) {
			return nil, domain.ErrValidation("Quest already completed")
		}
		return nil, domain.ErrInternal("complete quest", err)
	}

	result := &SubmitAnswerResult{
		Success:  true,
		Correct:  true,
		Feedback: "Correct! Quest completed.",
		NewXP:    user.XP,
		NewLevel: user.Level,
		Attempts: progress.Attempts,
	}

	grant, err := s.payoutCompletion(ctx, tx, user, quest, progress.Attempts)
	if err != nil {
		return nil, err
	}
	if grant != nil {
		result.XPAwarded = quest.XPReward
		result.NewXP = grant.NewXP
		result.NewLevel = grant.NewLevel
		result.LeveledUp = grant.LeveledUp
		result.ItemReward = quest.ItemReward
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	return result, nil
}

// SubmitCodeResult is returned by SubmitCode.
type SubmitCodeResult struct {
	Success         bool    `json:"success"`
	Passed          bool    `json:"passed"`
	Feedback        string  `json:"feedback"`
	XPAwarded       int     `json:"xp_awarded"`
	ItemReward      *string `json:"item_reward,omitempty"`
	NewXP           int     `json:"new_xp"`
	NewLevel        int     `json:"new_level"`
	LeveledUp       bool    `json:"leveled_up"`
	Attempts        int     `json:"attempts"`
	CooldownSeconds int     `json:"cooldown_seconds"`
	ShowHint        bool    `json:"show_hint"`
	Hint            *string `json:"hint,omitempty"`
}

// SubmitCode runs one reviewed code submission for a code quest. The flow
// is: cooldown gate (rejected submissions consume nothing), external review
// behind the circuit breaker, then one transaction recording the attempt,
// the audit row, and, on a pass, the terminal completion and payout.
// Review failures degrade to a failed attempt with apologetic feedback; the
// verdict is never guessed.
func (s *QuestService) SubmitCode(ctx context.Context, userID uuid.UUID, questID, code string) (*SubmitCodeResult, error) {
	quest, err := s.loadQuest(ctx, s.pool, questID)
	if err != nil {
		return nil, err
	}
	if quest.Type != domain.QuestTypeCode {
		return nil, domain.ErrValidation("This quest requires a multiple-choice answer")
	}

	existing, err := s.progress.FindByUserQuest(ctx, s.pool, userID, quest.QuestID)
	if err != nil {
		return nil, domain.ErrInternal("load progress", err)
	}
	if existing != nil && existing.Completed {
		return nil, domain.ErrValidation("Quest already completed")
	}

	now := time.Now()
	if existing != nil {
		remaining := progression.CooldownRemaining(existing.LastAttemptAt, now, s.cfg.SubmissionCooldown)
		if remaining > 0 {
			secs := int(math.Ceil(remaining.Seconds()))
			return &SubmitCodeResult{
				Success:         true,
				Feedback:        fmt.Sprintf("Please wait %d seconds before submitting again.", secs),
				Attempts:        existing.Attempts,
				CooldownSeconds: secs,
			}, nil
		}
	}

	passed, feedback := s.review(ctx, quest, code)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	user, err := s.engine.LockUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	progress, err := s.progress.RecordAttempt(ctx, tx, userID, quest.QuestID)
	if err != nil {
		return nil, domain.ErrInternal("record attempt", err)
	}
	if progress.Completed {
		// A concurrent submission finished the quest between the pre-check
		// and this transaction; roll back the attempt.
		return nil, domain.ErrValidation("Quest already completed")
	}

	sub := &domain.QuestSubmission{
		UserID:         userID,
		QuestID:        quest.QuestID,
		SubmissionType: domain.QuestTypeCode,
		CodeSubmitted:  &code,
		Passed:         passed,
		Feedback:       &feedback,
	}
	if err := s.submissions.Insert(ctx, tx, sub); err != nil {
		return nil, domain.ErrInternal("insert submission", err)
	}

	result := &SubmitCodeResult{
		Success:  true,
		Passed:   passed,
		Feedback: feedback,
		NewXP:    user.XP,
		NewLevel: user.Level,
		Attempts: progress.Attempts,
	}

	if !passed {
		failed, err := s.submissions.CountFailed(ctx, tx, userID, quest.QuestID)
		if err != nil {
			return nil, domain.ErrInternal("count failed submissions", err)
		}
		if progression.ShowHint(failed, s.cfg.HintThreshold, quest.Hint != nil) {
			result.ShowHint = true
			result.Hint = quest.Hint
		}
		result.CooldownSeconds = int(s.cfg.SubmissionCooldown.Seconds())
		if err := tx.Commit(ctx); err != nil {
			return nil, domain.ErrInternal("commit tx", err)
		}
		return result, nil
	}

	stored := progression.TruncateAnswer(code, s.cfg.MaxStoredAnswerLen)
	// The attempt was already counted by RecordAttempt above.
	progress, err = s.progress.MarkCompleted(ctx, tx, userID, quest.QuestID, stored, false)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCompleted) {
			return nil, domain.ErrValidation("Quest already completed")
		}
		return nil, domain.ErrInternal("complete quest", err)
	}
	result.Attempts = progress.Attempts

	grant, err := s.payoutCompletion(ctx, tx, user, quest, progress.Attempts)
	if err != nil {
		return nil, err
	}
	if grant != nil {
		result.XPAwarded = quest.XPReward
		result.NewXP = grant.NewXP
		result.NewLevel = grant.NewLevel
		result.LeveledUp = grant.LeveledUp
		result.ItemReward = quest.ItemReward
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	return result, nil
}

// review runs the external code review behind the circuit breaker. It never
// returns an error: an unavailable or failing reviewer yields a failed
// attempt with feedback the user can act on.
func (s *QuestService) review(ctx context.Context, quest *domain.Quest, code string) (bool, string) {
	if check := s.breaker.Check(); !check.Allowed {
		s.logger.Warn("code review skipped, circuit open", "quest_id", quest.QuestID)
		return false, "The code reviewer is taking a break. Please try again in a moment."
	}

	language := ""
	if quest.Language != nil {
		language = *quest.Language
	}
	criteria := ""
	if quest.ReviewCriteria != nil {
		criteria = *quest.ReviewCriteria
	}

	reviewCtx, cancel := context.WithTimeout(ctx, reviewTimeout)
	defer cancel()

	passed, feedback, err := s.reviewer.Review(reviewCtx, code, language, quest.Prompt, criteria)
	if err != nil {
		s.breaker.RecordFailure()
		s.logger.Error("code review failed", "quest_id", quest.QuestID, "error", err)
		return false, "Something went wrong while reviewing your code. Please try again!"
	}
	s.breaker.RecordSuccess()
	return passed, feedback
}

// payoutCompletion pays the quest reward once per (user, quest): the XP
// grant, the optional item reward, and the completion event. Returns nil
// when the reward was already received.
func (s *QuestService) payoutCompletion(ctx context.Context, tx pgx.Tx, user *domain.User, quest *domain.Quest, attempts int) (*ledger.GrantResult, error) {
	received, err := s.engine.HasReceived(ctx, tx, user.ID, domain.XPSourceQuest, quest.QuestID)
	if err != nil {
		return nil, domain.ErrInternal("check grant", err)
	}
	if received {
		return nil, nil
	}

	desc := fmt.Sprintf("Completed quest: %s", quest.Name)
	questID := quest.QuestID
	grant, err := s.engine.Grant(ctx, tx, user, quest.XPReward, domain.XPSourceQuest, &questID, &desc)
	if err != nil {
		return nil, domain.ErrInternal("grant xp", err)
	}

	if quest.ItemReward != nil {
		if err := s.inventory.AddItem(ctx, tx, user.ID, *quest.ItemReward); err != nil {
			return nil, domain.ErrInternal("add item reward", err)
		}
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewQuestCompletedEvent(user.ID, quest.QuestID, attempts, quest.XPReward)); err != nil {
		return nil, domain.ErrInternal("insert outbox event", err)
	}
	return grant, nil
}

// QuestProgressView is one row of the user-facing quest progress listing.
type QuestProgressView struct {
	QuestID       string     `json:"quest_id"`
	QuestName     string     `json:"quest_name"`
	QuestType     string     `json:"quest_type"`
	XPReward      int        `json:"xp_reward"`
	XPEarned      int        `json:"xp_earned"`
	HostPostSlug  *string    `json:"host_post_slug,omitempty"`
	HostPostTitle *string    `json:"host_post_title,omitempty"`
	InProgress    bool       `json:"in_progress"`
	Completed     bool       `json:"completed"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Attempts      int        `json:"attempts"`
}

// GetProgress returns the user's progress on one quest, nil when the quest
// was never started.
func (s *QuestService) GetProgress(ctx context.Context, userID uuid.UUID, questID string) (*QuestProgressView, error) {
	quest, err := s.loadQuest(ctx, s.pool, questID)
	if err != nil {
		return nil, err
	}

	progress, err := s.progress.FindByUserQuest(ctx, s.pool, userID, quest.QuestID)
	if err != nil {
		return nil, domain.ErrInternal("load progress", err)
	}
	if progress == nil {
		return nil, nil
	}

	view, err := s.buildView(ctx, quest, progress)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ListProgress returns the user's quest progress. Completed quests are
// always included; in-progress quests only when includeInProgress is set.
// In-progress quests sort first (most recently started first), then
// completed quests (most recently completed first).
func (s *QuestService) ListProgress(ctx context.Context, userID uuid.UUID, includeInProgress bool) ([]QuestProgressView, error) {
	rows, err := s.progress.ListByUser(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("list progress", err)
	}

	views := make([]QuestProgressView, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if !row.Completed && !includeInProgress {
			continue
		}
		quest, err := s.quests.FindByQuestID(ctx, s.pool, row.QuestID)
		if err != nil {
			return nil, domain.ErrInternal("load quest", err)
		}
		if quest == nil {
			// Progress referencing a retired quest stays in storage but is
			// dropped from the listing.
			continue
		}
		view, err := s.buildView(ctx, quest, row)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}

	sortProgressViews(views)
	return views, nil
}

func (s *QuestService) buildView(ctx context.Context, quest *domain.Quest, progress *domain.QuestProgress) (*QuestProgressView, error) {
	view := &QuestProgressView{
		QuestID:     quest.QuestID,
		QuestName:   quest.Name,
		QuestType:   string(quest.Type),
		XPReward:    quest.XPReward,
		InProgress:  progress.InProgress(),
		Completed:   progress.Completed,
		StartedAt:   progress.StartedAt,
		CompletedAt: progress.CompletedAt,
		Attempts:    progress.Attempts,
	}
	if progress.Completed {
		view.XPEarned = quest.XPReward
	}

	slug, title, err := s.quests.HostPost(ctx, s.pool, quest.QuestID)
	if err != nil {
		return nil, domain.ErrInternal("load host post", err)
	}
	if slug != "" {
		view.HostPostSlug = &slug
		view.HostPostTitle = title
	}
	return view, nil
}

// sortProgressViews orders the listing in two tiers: in-progress quests by
// started_at descending, then completed quests by completed_at descending.
func sortProgressViews(views []QuestProgressView) {
	tier := func(v *QuestProgressView) int {
		if v.Completed {
			return 1
		}
		return 0
	}
	stamp := func(v *QuestProgressView) time.Time {
		if v.Completed {
			if v.CompletedAt != nil {
				return *v.CompletedAt
			}
		} else if v.StartedAt != nil {
			return *v.StartedAt
		}
		return time.Time{}
	}
	sort.SliceStable(views, func(i, j int) bool {
		ti, tj := tier(&views[i]), tier(&views[j])
		if ti != tj {
			return ti < tj
		}
		return stamp(&views[i]).After(stamp(&views[j]))
	})
}
