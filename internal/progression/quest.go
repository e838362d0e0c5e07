package progression

import (
	"strings"
	"time"
)

// NormalizeAnswer prepares an exact-match answer for comparison.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AnswerMatches compares a submitted answer against the configured one,
// case- and whitespace-insensitively. A quest with no configured answer
// never matches.
func AnswerMatches(submitted string, correct *string) bool {
	if correct == nil {
		return false
	}
	return NormalizeAnswer(submitted) == NormalizeAnswer(*correct)
}

// CooldownRemaining returns how long the user must still wait before the
// next code submission. Zero when no prior attempt exists or the window
// has elapsed.
func CooldownRemaining(lastAttemptAt *time.Time, now time.Time, cooldown time.Duration) time.Duration {
	if lastAttemptAt == nil {
		return 0
	}
	remaining := cooldown - now.Sub(*lastAttemptAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ShowHint decides whether the quest hint unlocks after repeated failures.
func ShowHint(failedCount, threshold int, hasHint bool) bool {
	return hasHint && failedCount >= threshold
}

// TruncateAnswer caps the stored answer text to bound storage.
func TruncateAnswer(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
