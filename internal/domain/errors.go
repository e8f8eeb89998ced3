package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizNotAvailable indicates the quiz is unpublished or outside its availability window.
	ErrQuizNotAvailable = errors.New("quiz is not available")
	// ErrNoQuestionsAvailable indicates selection produced an empty question list.
	ErrNoQuestionsAvailable = errors.New("no questions available for this quiz")
	// ErrAttemptNotFound indicates the attempt does not exist.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrNotAttemptOwner indicates the caller does not own the attempt.
	ErrNotAttemptOwner = errors.New("not the owner of this quiz attempt")
	// ErrAttemptCompleted indicates the attempt already has a completion timestamp.
	ErrAttemptCompleted = errors.New("quiz attempt already completed")
	// ErrQuestionNotFound indicates a referenced question does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionNotInAttempt indicates the question is outside the attempt's frozen selection.
	ErrQuestionNotInAttempt = errors.New("question not part of this quiz attempt")
	// ErrTopicNotFound indicates a referenced topic does not exist.
	ErrTopicNotFound = errors.New("topic not found")
)

// AttemptLimitError is returned when a user has exhausted the quiz's attempt
// quota for the current window. It carries everything clients need to render
// "come back at" messaging.
type AttemptLimitError struct {
	Limit   int
	Period  AttemptResetPeriod
	ResetAt *time.Time
}

func (e *AttemptLimitError) Error() string {
	if e.ResetAt != nil {
		return fmt.Sprintf("attempt limit of %d reached, resets at %s", e.Limit, e.ResetAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("attempt limit of %d reached", e.Limit)
}
