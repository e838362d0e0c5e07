package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pressstart/platform/internal/domain"
	"github.com/pressstart/platform/internal/guard"
	"github.com/pressstart/platform/internal/progression"
)

type fakeReviewer struct {
	passed   bool
	feedback string
	err      error
	calls    int
}

func (f *fakeReviewer) Review(ctx context.Context, code, language, questPrompt, criteria string) (bool, string, error) {
	f.calls++
	return f.passed, f.feedback, f.err
}

func newTestQuestService(reviewer CodeReviewer, breaker *guard.CircuitBreaker) *QuestService {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewQuestService(nil, nil, nil, nil, nil, nil, nil, reviewer, breaker,
		progression.DefaultQuestConfig(), logger)
}

func TestReview_PassesVerdictThrough(t *testing.T) {
	fr := &fakeReviewer{passed: true, feedback: "Well done."}
	svc := newTestQuestService(fr, guard.NewCircuitBreaker(3, time.Minute))

	passed, feedback := svc.review(context.Background(), &domain.Quest{QuestID: "q1", Prompt: "p"}, "code")
	assert.True(t, passed)
	assert.Equal(t, "Well done.", feedback)
	assert.Equal(t, 1, fr.calls)
}

func TestReview_ErrorDegradesToFailedAttempt(t *testing.T) {
	fr := &fakeReviewer{err: errors.New("upstream timeout")}
	svc := newTestQuestService(fr, guard.NewCircuitBreaker(3, time.Minute))

	passed, feedback := svc.review(context.Background(), &domain.Quest{QuestID: "q1"}, "code")
	assert.False(t, passed)
	assert.Equal(t, "Something went wrong while reviewing your code. Please try again!", feedback)
}

func TestReview_OpenCircuitSkipsOracle(t *testing.T) {
	fr := &fakeReviewer{err: errors.New("down")}
	breaker := guard.NewCircuitBreaker(2, time.Minute)
	svc := newTestQuestService(fr, breaker)

	quest := &domain.Quest{QuestID: "q1"}
	svc.review(context.Background(), quest, "code")
	svc.review(context.Background(), quest, "code")
	assert.Equal(t, 2, fr.calls)

	// Circuit is open now; the oracle is not called again.
	passed, feedback := svc.review(context.Background(), quest, "code")
	assert.False(t, passed)
	assert.Equal(t, "The code reviewer is taking a break. Please try again in a moment.", feedback)
	assert.Equal(t, 2, fr.calls)
}

func TestSortProgressViews(t *testing.T) {
	ts := func(offset int) *time.Time {
		v := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Hour)
		return &v
	}

	views := []QuestProgressView{
		{QuestID: "done-old", Completed: true, CompletedAt: ts(1), StartedAt: ts(0)},
		{QuestID: "active-old", InProgress: true, StartedAt: ts(2)},
		{QuestID: "done-new", Completed: true, CompletedAt: ts(5), StartedAt: ts(3)},
		{QuestID: "active-new", InProgress: true, StartedAt: ts(4)},
	}

	sortProgressViews(views)

	got := make([]string, len(views))
	for i, v := range views {
		got[i] = v.QuestID
	}
	assert.Equal(t, []string{"active-new", "active-old", "done-new", "done-old"}, got)
}

func TestSortProgressViews_MissingTimestamps(t *testing.T) {
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	views := []QuestProgressView{
		{QuestID: "completed-no-stamp", Completed: true},
		{QuestID: "active", InProgress: true, StartedAt: &ts},
	}

	sortProgressViews(views)
	assert.Equal(t, "active", views[0].QuestID)
	assert.Equal(t, "completed-no-stamp", views[1].QuestID)
}
