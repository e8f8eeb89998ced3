package app

import (
	"time"

	"trivia-attempt-service/internal/domain"
)

// WindowStart computes the start of the quota window containing ref for the
// given reset period. All arithmetic is calendar-based in UTC, so the bucket
// an instant falls into never depends on server timezone or the time of day
// the first attempt happened. ok is false for ResetNever (lifetime quota).
func WindowStart(period domain.AttemptResetPeriod, ref time.Time) (start time.Time, ok bool) {
	ref = ref.UTC()
	switch period {
	case domain.ResetDaily:
		return time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC), true
	case domain.ResetWeekly:
		// Sunday is the start of the week.
		sunday := ref.AddDate(0, 0, -int(ref.Weekday()))
		return time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 0, 0, 0, 0, time.UTC), true
	case domain.ResetMonthly:
		return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC), true
	default:
		return time.Time{}, false
	}
}

// NextReset computes the first instant after ref at which the quota window
// rolls over. time.Date normalizes month 13 to January of the next year, so
// the December boundary needs no special case. ok is false for ResetNever.
func NextReset(period domain.AttemptResetPeriod, ref time.Time) (next time.Time, ok bool) {
	start, ok := WindowStart(period, ref)
	if !ok {
		return time.Time{}, false
	}
	switch period {
	case domain.ResetDaily:
		return start.AddDate(0, 0, 1), true
	case domain.ResetWeekly:
		return start.AddDate(0, 0, 7), true
	case domain.ResetMonthly:
		return start.AddDate(0, 1, 0), true
	default:
		return time.Time{}, false
	}
}

// periodWindowStart maps a leaderboard period onto the same calendar
// bucketing the quota guard uses. nil means unbounded (all-time).
func periodWindowStart(period domain.LeaderboardPeriod, ref time.Time) *time.Time {
	var reset domain.AttemptResetPeriod
	switch period {
	case domain.PeriodDaily:
		reset = domain.ResetDaily
	case domain.PeriodWeekly:
		reset = domain.ResetWeekly
	case domain.PeriodMonthly:
		reset = domain.ResetMonthly
	default:
		return nil
	}
	start, ok := WindowStart(reset, ref)
	if !ok {
		return nil
	}
	return &start
}
