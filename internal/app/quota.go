package app

import (
	"context"
	"time"

	"trivia-attempt-service/internal/domain"
)

// AttemptCounter counts a user's prior non-practice attempts on a quiz,
// optionally restricted to attempts started at or after since.
type AttemptCounter interface {
	CountAttemptsSince(ctx context.Context, userID, quizID string, since *time.Time) (int, error)
}

// CheckAttemptLimitParams carries the inputs of a quota check. ReferenceDate
// defaults to time.Now when zero.
type CheckAttemptLimitParams struct {
	UserID         string
	Quiz           *domain.Quiz
	IsPracticeMode bool
	ReferenceDate  time.Time
}

// CheckAttemptLimit decides whether the user may start another attempt.
//
// Quizzes without a limit and practice-mode starts return (nil, nil) without
// touching storage. Otherwise the user's attempts inside the current calendar
// window are counted; an exhausted quota yields *domain.AttemptLimitError and
// an allowed start yields the quota metadata for client display.
//
// This check and the attempt insert that follows it are deliberately separate
// round-trips: two racing starts at the limit boundary can over-admit by one.
// The quota is a fairness nudge, not a security control, and the alternative
// is a per-(user,quiz) lock on every start.
func CheckAttemptLimit(ctx context.Context, counter AttemptCounter, params CheckAttemptLimitParams) (*domain.AttemptLimitInfo, error) {
	quiz := params.Quiz
	if quiz.MaxAttemptsPerUser == nil || params.IsPracticeMode {
		return nil, nil
	}

	ref := params.ReferenceDate
	if ref.IsZero() {
		ref = time.Now()
	}
	ref = ref.UTC()

	var windowStart, resetAt *time.Time
	if start, ok := WindowStart(quiz.AttemptResetPeriod, ref); ok {
		windowStart = &start
	}
	if next, ok := NextReset(quiz.AttemptResetPeriod, ref); ok {
		resetAt = &next
	}

	used, err := counter.CountAttemptsSince(ctx, params.UserID, quiz.ID, windowStart)
	if err != nil {
		return nil, err
	}

	max := *quiz.MaxAttemptsPerUser
	if used >= max {
		return nil, &domain.AttemptLimitError{
			Limit:   max,
			Period:  quiz.AttemptResetPeriod,
			ResetAt: resetAt,
		}
	}

	return &domain.AttemptLimitInfo{
		Max:                  max,
		Used:                 used,
		RemainingBeforeStart: max - used,
		Period:               quiz.AttemptResetPeriod,
		ResetAt:              resetAt,
		WindowStart:          windowStart,
		ReferenceDate:        ref,
	}, nil
}
