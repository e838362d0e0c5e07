//go:build integration

package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressstart/platform/internal/domain"
	"github.com/pressstart/platform/test/integration/testutil"
)

func strPtr(s string) *string { return &s }

func seedChoiceQuest(env *testutil.TestEnv) {
	env.SeedQuest(domain.Quest{
		QuestID:       "channels-quiz",
		Name:          "Channels Quiz",
		Type:          domain.QuestTypeMultipleChoice,
		CorrectAnswer: strPtr("unbuffered"),
		XPReward:      50,
	})
}

func seedCodeQuest(env *testutil.TestEnv) {
	env.SeedQuest(domain.Quest{
		QuestID:        "worker-pool",
		Name:           "Build a Worker Pool",
		Prompt:         "Implement a worker pool",
		Type:           domain.QuestTypeCode,
		Language:       strPtr("go"),
		ReviewCriteria: strPtr("uses goroutines and channels"),
		Hint:           strPtr("Remember to close the jobs channel."),
		XPReward:       100,
		ItemReward:     strPtr("key_vault"),
	})
}

func TestQuestStart_Idempotent(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedChoiceQuest(env)
	userID := env.CreateUser(0, 1)

	first, err := env.Quest.Start(context.Background(), userID, "channels-quiz")
	require.NoError(t, err)
	assert.False(t, first.AlreadyStarted)
	require.NotNil(t, first.StartedAt)

	second, err := env.Quest.Start(context.Background(), userID, "channels-quiz")
	require.NoError(t, err)
	assert.True(t, second.AlreadyStarted)
	assert.Equal(t, first.StartedAt.UTC(), second.StartedAt.UTC())

	assert.Equal(t, 1, env.CountOutbox("game.quest.started"))
}

func TestQuestStart_UnknownQuest(t *testing.T) {
	env := testutil.NewTestEnv(t)
	userID := env.CreateUser(0, 1)

	_, err := env.Quest.Start(context.Background(), userID, "no-such-quest")
	require.Error(t, err)
	appErr, ok := err.(*domain.AppError)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Status)
}

func TestSubmitAnswer_WrongThenRight(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedChoiceQuest(env)
	userID := env.CreateUser(0, 1)

	wrong, err := env.Quest.SubmitAnswer(context.Background(), userID, "channels-quiz", "buffered")
	require.NoError(t, err)
	assert.False(t, wrong.Correct)
	assert.Equal(t, "Incorrect. Try again!", wrong.Feedback)
	assert.Equal(t, 1, wrong.Attempts)
	assert.Equal(t, 0, wrong.XPAwarded)

	right, err := env.Quest.SubmitAnswer(context.Background(), userID, "channels-quiz", "  UNBUFFERED ")
	require.NoError(t, err)
	assert.True(t, right.Correct)
	assert.Equal(t, "Correct! Quest completed.", right.Feedback)
	assert.Equal(t, 50, right.XPAwarded)
	assert.Equal(t, 2, right.Attempts)

	xp, _ := env.UserXP(userID)
	assert.Equal(t, 50, xp)
	assert.Equal(t, 1, env.CountOutbox("game.quest.completed"))
}

func TestSubmitAnswer_CompletedQuestRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedChoiceQuest(env)
	userID := env.CreateUser(0, 1)

	_, err := env.Quest.SubmitAnswer(context.Background(), userID, "channels-quiz", "unbuffered")
	require.NoError(t, err)

	_, err = env.Quest.SubmitAnswer(context.Background(), userID, "channels-quiz", "unbuffered")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already completed")

	// The payout happened exactly once.
	assert.Equal(t, 1, env.CountGrants(userID, "quest"))
}

func TestSubmitAnswer_WrongQuestType(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedCodeQuest(env)
	userID := env.CreateUser(0, 1)

	_, err := env.Quest.SubmitAnswer(context.Background(), userID, "worker-pool", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires code submission")
}

func TestSubmitCode_PassAwardsXPAndItem(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedCodeQuest(env)
	userID := env.CreateUser(0, 1)
	env.Reviewer.Passed = true
	env.Reviewer.Feedback = "Great concurrency work."

	result, err := env.Quest.SubmitCode(context.Background(), userID, "worker-pool", "package main")
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, "Great concurrency work.", result.Feedback)
	assert.Equal(t, 100, result.XPAwarded)
	assert.Equal(t, 1, result.Attempts)
	require.NotNil(t, result.ItemReward)
	assert.Equal(t, "key_vault", *result.ItemReward)

	var hasItem bool
	require.NoError(t, env.Pool.QueryRow(context.Background(),
		`SELECT EXISTS(SELECT 1 FROM inventory_items WHERE user_id = $1 AND item_id = 'key_vault')`,
		userID).Scan(&hasItem))
	assert.True(t, hasItem)
}

func TestSubmitCode_CooldownBlocksRapidResubmission(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedCodeQuest(env)
	userID := env.CreateUser(0, 1)
	env.Reviewer.Passed = false
	env.Reviewer.Feedback = "Not quite."

	first, err := env.Quest.SubmitCode(context.Background(), userID, "worker-pool", "x")
	require.NoError(t, err)
	assert.False(t, first.Passed)
	assert.Equal(t, 1, first.Attempts)

	// Immediately again: rejected without consuming an attempt or calling
	// the oracle.
	callsBefore := env.Reviewer.Calls
	second, err := env.Quest.SubmitCode(context.Background(), userID, "worker-pool", "x")
	require.NoError(t, err)
	assert.False(t, second.Passed)
	assert.Contains(t, second.Feedback, "Please wait")
	assert.Greater(t, second.CooldownSeconds, 0)
	assert.Equal(t, 1, second.Attempts)
	assert.Equal(t, callsBefore, env.Reviewer.Calls)

	// After the window the next attempt goes through.
	time.Sleep(350 * time.Millisecond)
	third, err := env.Quest.SubmitCode(context.Background(), userID, "worker-pool", "x")
	require.NoError(t, err)
	assert.Equal(t, 2, third.Attempts)
}

func TestSubmitCode_HintAfterRepeatedFailures(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedCodeQuest(env)
	userID := env.CreateUser(0, 1)
	env.Reviewer.Passed = false
	env.Reviewer.Feedback = "Try again."

	var last = struct {
		ShowHint bool
		Hint     *string
	}{}
	for i := 0; i < 3; i++ {
		result, err := env.Quest.SubmitCode(context.Background(), userID, "worker-pool", "x")
		require.NoError(t, err)
		last.ShowHint = result.ShowHint
		last.Hint = result.Hint
		time.Sleep(350 * time.Millisecond)
	}

	assert.True(t, last.ShowHint)
	require.NotNil(t, last.Hint)
	assert.Equal(t, "Remember to close the jobs channel.", *last.Hint)
}

func TestSubmitCode_OracleErrorBecomesFailedAttempt(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedCodeQuest(env)
	userID := env.CreateUser(0, 1)
	env.Reviewer.Err = assert.AnError

	result, err := env.Quest.SubmitCode(context.Background(), userID, "worker-pool", "x")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Feedback, "Something went wrong")
	assert.Equal(t, 1, result.Attempts)
}

func TestSubmitCode_ConcurrentCompletionRollsBackAttempt(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedCodeQuest(env)
	userID := env.CreateUser(0, 1)
	ctx := context.Background()

	_, err := env.Quest.Start(ctx, userID, "worker-pool")
	require.NoError(t, err)

	// While the submission is out at review, another submission wins the
	// race and completes the quest.
	env.Reviewer.Passed = false
	env.Reviewer.Feedback = "Not quite."
	env.Reviewer.OnReview = func() {
		_, err := env.Pool.Exec(ctx, `
			UPDATE quest_progress SET completed = true, completed_at = now()
			WHERE user_id = $1 AND quest_id = 'worker-pool'`, userID)
		require.NoError(t, err)
	}

	_, err = env.Quest.SubmitCode(ctx, userID, "worker-pool", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already completed")

	// The losing submission left no trace: no attempt counted, no audit row.
	var attempts, subs int
	require.NoError(t, env.Pool.QueryRow(ctx,
		`SELECT attempts FROM quest_progress WHERE user_id = $1 AND quest_id = 'worker-pool'`,
		userID).Scan(&attempts))
	require.NoError(t, env.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quest_submissions WHERE user_id = $1 AND quest_id = 'worker-pool'`,
		userID).Scan(&subs))
	assert.Equal(t, 0, attempts)
	assert.Equal(t, 0, subs)
}

func TestSubmitCode_LongAnswerTruncatedOnCompletion(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedCodeQuest(env)
	userID := env.CreateUser(0, 1)
	env.Reviewer.Passed = true
	env.Reviewer.Feedback = "ok"

	code := strings.Repeat("y", 2000)
	_, err := env.Quest.SubmitCode(context.Background(), userID, "worker-pool", code)
	require.NoError(t, err)

	var stored string
	require.NoError(t, env.Pool.QueryRow(context.Background(),
		`SELECT answer_given FROM quest_progress WHERE user_id = $1 AND quest_id = 'worker-pool'`,
		userID).Scan(&stored))
	assert.Len(t, stored, 500)
}

func TestListProgress_TwoTierOrdering(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedChoiceQuest(env)
	seedCodeQuest(env)
	env.SeedQuest(domain.Quest{
		QuestID:       "slices-quiz",
		Name:          "Slices Quiz",
		Type:          domain.QuestTypeMultipleChoice,
		CorrectAnswer: strPtr("len"),
		XPReward:      25,
	})
	env.SeedPost("worker-pool-post", "Worker Pools in Go", strPtr("worker-pool"))
	userID := env.CreateUser(0, 1)

	ctx := context.Background()

	// Complete one quest, start two others.
	_, err := env.Quest.SubmitAnswer(ctx, userID, "channels-quiz", "unbuffered")
	require.NoError(t, err)
	_, err = env.Quest.Start(ctx, userID, "worker-pool")
	require.NoError(t, err)
	_, err = env.Quest.Start(ctx, userID, "slices-quiz")
	require.NoError(t, err)

	views, err := env.Quest.ListProgress(ctx, userID, true)
	require.NoError(t, err)
	require.Len(t, views, 3)

	// In-progress first (most recently started first), completed last.
	assert.Equal(t, "slices-quiz", views[0].QuestID)
	assert.Equal(t, "worker-pool", views[1].QuestID)
	assert.Equal(t, "channels-quiz", views[2].QuestID)
	assert.True(t, views[2].Completed)

	// XP is earned only on completion.
	assert.Equal(t, 0, views[0].XPEarned)
	assert.Equal(t, 0, views[1].XPEarned)
	assert.Equal(t, 50, views[2].XPEarned)

	// Host post enrichment.
	require.NotNil(t, views[1].HostPostSlug)
	assert.Equal(t, "worker-pool-post", *views[1].HostPostSlug)
}

func TestListProgress_DefaultExcludesInProgress(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedChoiceQuest(env)
	seedCodeQuest(env)
	userID := env.CreateUser(0, 1)
	ctx := context.Background()

	_, err := env.Quest.SubmitAnswer(ctx, userID, "channels-quiz", "unbuffered")
	require.NoError(t, err)
	_, err = env.Quest.Start(ctx, userID, "worker-pool")
	require.NoError(t, err)

	views, err := env.Quest.ListProgress(ctx, userID, false)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "channels-quiz", views[0].QuestID)
	assert.True(t, views[0].Completed)
}

func TestGetProgress_NeverStarted(t *testing.T) {
	env := testutil.NewTestEnv(t)
	seedChoiceQuest(env)
	userID := env.CreateUser(0, 1)

	view, err := env.Quest.GetProgress(context.Background(), userID, "channels-quiz")
	require.NoError(t, err)
	assert.Nil(t, view)
}
