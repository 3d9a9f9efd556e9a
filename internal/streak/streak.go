// Package streak implements consecutive-day login accounting.
//
// All date comparisons are made at calendar-day granularity: timestamps
// are truncated to midnight in a single pinned location before the day
// difference is computed, so two logins within the same calendar day
// never change the streak.
package streak

import (
	"errors"
	"time"
)

// ErrClockSkew is returned when the recorded last login is on a future
// calendar day relative to now. The caller should surface this as a state
// conflict instead of resetting the streak.
var ErrClockSkew = errors.New("last login is in the future")

// Result describes the outcome of accounting for a login.
type Result struct {
	NewStreak    int
	IsNewDay     bool
	StreakBroken bool
}

// AccountForLogin computes the streak resulting from a login at now.
//
// A nil lastLogin or a zero currentStreak means this is the first login
// ever and the streak starts at 1. A same-day login leaves the streak
// unchanged, a consecutive-day login increments it, and a gap of two or
// more days resets it to 1.
func AccountForLogin(lastLogin *time.Time, currentStreak int, now time.Time, loc *time.Location) (Result, error) {
	if lastLogin == nil || lastLogin.IsZero() || currentStreak == 0 {
		return Result{NewStreak: 1, IsNewDay: true}, nil
	}

	days := daysBetween(*lastLogin, now, loc)
	switch {
	case days < 0:
		return Result{}, ErrClockSkew
	case days == 0:
		return Result{NewStreak: currentStreak}, nil
	case days == 1:
		return Result{NewStreak: currentStreak + 1, IsNewDay: true}, nil
	default:
		return Result{NewStreak: 1, IsNewDay: true, StreakBroken: true}, nil
	}
}

// ShouldGrantDailyReward reports whether the once-per-day login reward is
// due: true on the first login ever, or whenever now falls on a different
// calendar day than the last login.
func ShouldGrantDailyReward(lastLogin *time.Time, now time.Time, loc *time.Location) bool {
	if lastLogin == nil || lastLogin.IsZero() {
		return true
	}
	return daysBetween(*lastLogin, now, loc) != 0
}

// Bonus returns the coin bonus for the given streak length. Tiers are
// non-cumulative; the highest matching tier wins.
func Bonus(streak int) int {
	switch {
	case streak >= 30:
		return 50
	case streak >= 14:
		return 25
	case streak >= 7:
		return 15
	case streak >= 3:
		return 5
	default:
		return 0
	}
}

// daysBetween counts calendar days from one timestamp to another in loc.
// Both dates are rebuilt at midnight UTC before subtracting, so DST
// transitions (23- or 25-hour local days) cannot skew the count.
func daysBetween(from, to time.Time, loc *time.Location) int {
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.In(loc).Date()
	fromDay := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	toDay := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
