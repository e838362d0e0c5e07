package progression

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, "goroutine", NormalizeAnswer("  GoRoutine \n"))
	assert.Equal(t, "", NormalizeAnswer("   "))
}

func TestAnswerMatches(t *testing.T) {
	assert.True(t, AnswerMatches("  GOphers ", strPtr("gophers")))
	assert.True(t, AnswerMatches("42", strPtr("42")))
	assert.False(t, AnswerMatches("41", strPtr("42")))
	assert.False(t, AnswerMatches("anything", nil))

	// Internal whitespace is significant; only edges are trimmed.
	assert.False(t, AnswerMatches("go routine", strPtr("goroutine")))
}

func TestCooldownRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cooldown := 10 * time.Second

	t.Run("no prior attempt", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), CooldownRemaining(nil, now, cooldown))
	})

	t.Run("mid cooldown", func(t *testing.T) {
		last := now.Add(-3 * time.Second)
		assert.Equal(t, 7*time.Second, CooldownRemaining(&last, now, cooldown))
	})

	t.Run("window elapsed", func(t *testing.T) {
		last := now.Add(-11 * time.Second)
		assert.Equal(t, time.Duration(0), CooldownRemaining(&last, now, cooldown))
	})

	t.Run("exactly at boundary", func(t *testing.T) {
		last := now.Add(-10 * time.Second)
		assert.Equal(t, time.Duration(0), CooldownRemaining(&last, now, cooldown))
	})
}

func TestShowHint(t *testing.T) {
	assert.False(t, ShowHint(2, 3, true))
	assert.True(t, ShowHint(3, 3, true))
	assert.True(t, ShowHint(5, 3, true))
	assert.False(t, ShowHint(5, 3, false)) // quest has no hint to show
}

func TestTruncateAnswer(t *testing.T) {
	long := strings.Repeat("x", 600)
	assert.Len(t, TruncateAnswer(long, 500), 500)
	assert.Equal(t, "short", TruncateAnswer("short", 500))
	assert.Equal(t, long, TruncateAnswer(long, 0)) // zero cap disables truncation
}
