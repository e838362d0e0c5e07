// Package progression holds the pure gamification rules: the XP/level
// curve, daily streak arithmetic, quest attempt policy, and content access
// gating. Nothing in this package performs I/O; services feed it current
// state and persist its decisions.
package progression

import (
	"math"
	"time"
)

// LevelForXP returns the level for a total XP amount.
// Inverse of the curve XP = floor(level^1.5 * 100); never below 1.
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	level := int(math.Pow(float64(xp)/100, 1/1.5))
	if level < 1 {
		return 1
	}
	return level
}

// XPRequiredForLevel returns the total XP needed to reach a level.
// Level 1 (and below) costs nothing.
func XPRequiredForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return int(math.Floor(math.Pow(float64(level), 1.5) * 100))
}

// Progress describes where a user sits between two level thresholds.
type Progress struct {
	CurrentLevel       int     `json:"current_level"`
	CurrentXP          int     `json:"current_xp"`
	XPForCurrentLevel  int     `json:"xp_for_current_level"`
	XPForNextLevel     int     `json:"xp_for_next_level"`
	XPProgress         int     `json:"xp_progress"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// LevelProgress derives the progress-bar values for the given XP and level.
// The percentage is rounded to 2 decimal places and reads 100 when the
// span between thresholds is not positive.
func LevelProgress(xp, level int) Progress {
	xpForCurrent := XPRequiredForLevel(level)
	xpForNext := XPRequiredForLevel(level + 1)

	progress := xp - xpForCurrent
	span := xpForNext - xpForCurrent

	pct := 100.0
	if span > 0 {
		pct = float64(progress) / float64(span) * 100
	}
	pct = math.Round(pct*100) / 100

	return Progress{
		CurrentLevel:       level,
		CurrentXP:          xp,
		XPForCurrentLevel:  xpForCurrent,
		XPForNextLevel:     xpForNext,
		XPProgress:         progress,
		ProgressPercentage: pct,
	}
}

// RewardConfig holds the XP policy knobs. Passed into service constructors
// so tests can vary policy without cross-test interference.
type RewardConfig struct {
	ReadPostXP         int // XP for the first read of a post
	DailyBaseXP        int // base XP for a daily claim
	DailyStreakBonusXP int // extra XP per streak day beyond the first
	StreakBonusCapDays int // streak days counted toward the bonus
}

// DefaultRewardConfig returns the reference reward policy.
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		ReadPostXP:         15,
		DailyBaseXP:        10,
		DailyStreakBonusXP: 5,
		StreakBonusCapDays: 7,
	}
}

// QuestConfig holds the quest attempt policy knobs.
type QuestConfig struct {
	SubmissionCooldown time.Duration // minimum gap between code submissions
	HintThreshold      int           // failed attempts before the hint unlocks
	MaxStoredAnswerLen int           // stored-answer cap for passing code
}

// DefaultQuestConfig returns the reference quest policy.
func DefaultQuestConfig() QuestConfig {
	return QuestConfig{
		SubmissionCooldown: 10 * time.Second,
		HintThreshold:      3,
		MaxStoredAnswerLen: 500,
	}
}

// DailyRewardXP returns the XP for a claim on the given streak day.
func DailyRewardXP(streakDay int, cfg RewardConfig) int {
	bonusDays := streakDay - 1
	if bonusDays > cfg.StreakBonusCapDays {
		bonusDays = cfg.StreakBonusCapDays
	}
	if bonusDays < 0 {
		bonusDays = 0
	}
	return cfg.DailyBaseXP + bonusDays*cfg.DailyStreakBonusXP
}

// NextStreak returns the streak day for a claim happening at now.
// A prior claim on exactly the previous UTC calendar day extends the streak;
// anything else (no prior claim, same day handled upstream, or a gap)
// resets to 1.
func NextStreak(lastClaimAt *time.Time, currentStreak int, now time.Time) int {
	if lastClaimAt == nil {
		return 1
	}
	yesterday := StartOfDayUTC(now).AddDate(0, 0, -1)
	if StartOfDayUTC(*lastClaimAt).Equal(yesterday) {
		return currentStreak + 1
	}
	return 1
}

// StartOfDayUTC truncates a timestamp to midnight UTC.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NextClaimAt returns the first instant a new daily claim is allowed.
func NextClaimAt(now time.Time) time.Time {
	return StartOfDayUTC(now).AddDate(0, 0, 1)
}
