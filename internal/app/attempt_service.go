package app

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"trivia-attempt-service/internal/domain"
	"trivia-attempt-service/internal/shuffle"
)

// QuizStore loads quiz content for attempt creation.
type QuizStore interface {
	// QuizForStart returns the quiz with its question pool and topic configs,
	// or domain.ErrQuizNotFound.
	QuizForStart(ctx context.Context, quizID string) (*domain.Quiz, error)
}

// AnswerInsert is the tagged outcome of an answer insert: either this call
// created the record, or a concurrent duplicate won the race and the existing
// record is returned. Both branches are first-class results, not errors.
type AnswerInsert struct {
	Created bool
	Record  *domain.UserAnswer
}

// AttemptStore persists attempts and answer records.
type AttemptStore interface {
	AttemptCounter

	// CreateAttempt inserts the attempt row and loads full question+answer
	// data for exactly the frozen selection, in one atomic transaction.
	CreateAttempt(ctx context.Context, attempt *domain.QuizAttempt) ([]domain.Question, error)
	// Attempt returns the attempt or domain.ErrAttemptNotFound.
	Attempt(ctx context.Context, id string) (*domain.QuizAttempt, error)
	// FindAnswer returns the existing record for (attempt, question), or nil.
	FindAnswer(ctx context.Context, attemptID, questionID string) (*domain.UserAnswer, error)
	// InsertAnswer creates the record. A storage uniqueness violation must be
	// resolved to AnswerInsert{Created: false, Record: existing}, never
	// surfaced as an error.
	InsertAnswer(ctx context.Context, answer *domain.UserAnswer) (AnswerInsert, error)
	// BumpQuestionStats atomically increments the question's times-answered
	// counter, plus times-correct when correct is true.
	BumpQuestionStats(ctx context.Context, questionID string, correct bool) error
	// AnswersForAttempt returns every recorded answer of the attempt.
	AnswersForAttempt(ctx context.Context, attemptID string) ([]domain.UserAnswer, error)
	// PoolPoints maps question IDs to their configured point values for a quiz.
	PoolPoints(ctx context.Context, quizID string, questionIDs []string) (map[string]float64, error)
	// FinalizeAttempt persists the completion fields of a scored attempt.
	FinalizeAttempt(ctx context.Context, attempt *domain.QuizAttempt) error
}

// AttemptService orchestrates the attempt lifecycle: start, answer recording
// and completion. All durable state lives in the store; the service itself is
// stateless per request.
type AttemptService struct {
	quizzes   QuizStore
	attempts  AttemptStore
	questions QuestionSource
	topics    TopicResolver
	now       func() time.Time
	newRand   func() *rand.Rand
}

func NewAttemptService(quizzes QuizStore, attempts AttemptStore, questions QuestionSource, topics TopicResolver) *AttemptService {
	return &AttemptService{
		quizzes:   quizzes,
		attempts:  attempts,
		questions: questions,
		topics:    topics,
		now:       time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// WithClock fixes the service clock; test-only.
func (s *AttemptService) WithClock(now func() time.Time) *AttemptService {
	s.now = now
	return s
}

// WithRand fixes the randomness source; test-only.
func (s *AttemptService) WithRand(newRand func() *rand.Rand) *AttemptService {
	s.newRand = newRand
	return s
}

// StartAttemptResult is the sanitized payload returned to a player starting
// an attempt. It never contains answer keys or explanations.
type StartAttemptResult struct {
	Attempt      AttemptMeta              `json:"attempt"`
	Quiz         QuizPresentation         `json:"quiz"`
	AttemptLimit *domain.AttemptLimitInfo `json:"attemptLimit,omitempty"`
	Questions    []QuestionView           `json:"questions"`
}

type AttemptMeta struct {
	ID             string    `json:"id"`
	QuizID         string    `json:"quizId"`
	StartedAt      time.Time `json:"startedAt"`
	TotalQuestions int       `json:"totalQuestions"`
	IsPracticeMode bool      `json:"isPracticeMode"`
}

type QuizPresentation struct {
	Title                  string  `json:"title"`
	Slug                   string  `json:"slug"`
	Duration               *int    `json:"duration,omitempty"`
	TimePerQuestion        *int    `json:"timePerQuestion,omitempty"`
	PassingScore           float64 `json:"passingScore"`
	ShowHints              bool    `json:"showHints"`
	TimeBonusEnabled       bool    `json:"timeBonusEnabled"`
	BonusPointsPerSecond   float64 `json:"bonusPointsPerSecond"`
	NegativeMarkingEnabled bool    `json:"negativeMarkingEnabled"`
	PenaltyPercentage      float64 `json:"penaltyPercentage"`
}

// QuestionView is a question as shown during play: prompt, media and options
// only. Correctness flags and explanations are stripped.
type QuestionView struct {
	ID                   string       `json:"id"`
	QuestionText         string       `json:"questionText"`
	QuestionImageURL     *string      `json:"questionImageUrl,omitempty"`
	QuestionVideoURL     *string      `json:"questionVideoUrl,omitempty"`
	QuestionAudioURL     *string      `json:"questionAudioUrl,omitempty"`
	Hint                 *string      `json:"hint,omitempty"`
	TimeLimit            *int         `json:"timeLimit,omitempty"`
	RandomizeAnswerOrder bool         `json:"randomizeAnswerOrder"`
	Answers              []AnswerView `json:"answers"`
}

type AnswerView struct {
	ID             string  `json:"id"`
	AnswerText     string  `json:"answerText"`
	AnswerImageURL *string `json:"answerImageUrl,omitempty"`
	AnswerVideoURL *string `json:"answerVideoUrl,omitempty"`
	AnswerAudioURL *string `json:"answerAudioUrl,omitempty"`
}

// StartAttempt creates a new attempt: availability checks, quota guard,
// question selection, then one atomic transaction that freezes the selection
// and loads the question data the response is built from.
func (s *AttemptService) StartAttempt(ctx context.Context, quizID, userID string, isPracticeMode bool) (*StartAttemptResult, error) {
	quiz, err := s.quizzes.QuizForStart(ctx, quizID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !quiz.IsPublished || quiz.Status != domain.QuizPublished {
		return nil, domain.ErrQuizNotAvailable
	}
	if quiz.StartTime != nil && quiz.StartTime.After(now) {
		return nil, domain.ErrQuizNotAvailable
	}
	if quiz.EndTime != nil && quiz.EndTime.Before(now) {
		return nil, domain.ErrQuizNotAvailable
	}

	limit, err := CheckAttemptLimit(ctx, s.attempts, CheckAttemptLimitParams{
		UserID:         userID,
		Quiz:           quiz,
		IsPracticeMode: isPracticeMode,
		ReferenceDate:  now,
	})
	if err != nil {
		return nil, err
	}

	rnd := s.newRand()
	selectedIDs, err := s.selectQuestionIDs(ctx, quiz, rnd)
	if err != nil {
		return nil, err
	}

	attempt := &domain.QuizAttempt{
		ID:                  uuid.NewString(),
		UserID:              userID,
		QuizID:              quiz.ID,
		SelectedQuestionIDs: selectedIDs,
		TotalQuestions:      len(selectedIDs),
		IsPracticeMode:      isPracticeMode,
		StartedAt:           now,
	}

	questions, err := s.attempts.CreateAttempt(ctx, attempt)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	views := make([]QuestionView, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		q, ok := byID[id]
		if !ok {
			return nil, domain.ErrQuestionNotFound
		}
		views = append(views, sanitizeQuestion(q, quiz.ShowHints, rnd))
	}

	return &StartAttemptResult{
		Attempt: AttemptMeta{
			ID:             attempt.ID,
			QuizID:         attempt.QuizID,
			StartedAt:      attempt.StartedAt,
			TotalQuestions: attempt.TotalQuestions,
			IsPracticeMode: attempt.IsPracticeMode,
		},
		Quiz: QuizPresentation{
			Title:                  quiz.Title,
			Slug:                   quiz.Slug,
			Duration:               quiz.Duration,
			TimePerQuestion:        quiz.TimePerQuestion,
			PassingScore:           quiz.PassingScore,
			ShowHints:              quiz.ShowHints,
			TimeBonusEnabled:       quiz.TimeBonusEnabled,
			BonusPointsPerSecond:   quiz.BonusPointsPerSecond,
			NegativeMarkingEnabled: quiz.NegativeMarkingEnabled,
			PenaltyPercentage:      quiz.PenaltyPercentage,
		},
		AttemptLimit: limit,
		Questions:    views,
	}, nil
}

// sanitizeQuestion strips everything a player must not see mid-attempt:
// correctness flags, explanations and their media. Answers are independently
// shuffled per question when the question opts in, otherwise kept in display
// order.
func sanitizeQuestion(q *domain.Question, showHints bool, rnd *rand.Rand) QuestionView {
	answers := make([]*domain.Answer, len(q.Answers))
	copy(answers, q.Answers)
	if q.RandomizeAnswerOrder {
		shuffle.Slice(rnd, answers)
	} else {
		for i := 1; i < len(answers); i++ {
			for j := i; j > 0 && answers[j-1].DisplayOrder > answers[j].DisplayOrder; j-- {
				answers[j-1], answers[j] = answers[j], answers[j-1]
			}
		}
	}

	views := make([]AnswerView, 0, len(answers))
	for _, a := range answers {
		views = append(views, AnswerView{
			ID:             a.ID,
			AnswerText:     a.AnswerText,
			AnswerImageURL: a.AnswerImageURL,
			AnswerVideoURL: a.AnswerVideoURL,
			AnswerAudioURL: a.AnswerAudioURL,
		})
	}

	var hint *string
	if showHints {
		hint = q.Hint
	}
	return QuestionView{
		ID:                   q.ID,
		QuestionText:         q.QuestionText,
		QuestionImageURL:     q.QuestionImageURL,
		QuestionVideoURL:     q.QuestionVideoURL,
		QuestionAudioURL:     q.QuestionAudioURL,
		Hint:                 hint,
		TimeLimit:            q.TimeLimit,
		RandomizeAnswerOrder: q.RandomizeAnswerOrder,
		Answers:              views,
	}
}

// SubmitAnswerResult reports the outcome of one answer submission.
// AlreadySubmitted marks the idempotent path: the record existed before this
// call, and the result describes the stored outcome, not the retried input.
type SubmitAnswerResult struct {
	QuestionID       string `json:"questionId"`
	IsCorrect        bool   `json:"isCorrect"`
	WasSkipped       bool   `json:"wasSkipped"`
	AlreadySubmitted bool   `json:"alreadySubmitted"`
	Message          string `json:"message"`
}

// SubmitAnswer records an answer for one question of an attempt, exactly
// once. A nil answerID records a skip. Duplicate submissions, whether
// sequential retries or concurrent races, resolve to idempotent success; the
// question statistics are incremented only by the call that actually created
// the record.
func (s *AttemptService) SubmitAnswer(ctx context.Context, attemptID, userID, questionID string, answerID *string, timeSpent int) (*SubmitAnswerResult, error) {
	attempt, err := s.attempts.Attempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, domain.ErrNotAttemptOwner
	}
	if attempt.CompletedAt != nil {
		return nil, domain.ErrAttemptCompleted
	}
	if !attempt.HasQuestion(questionID) {
		return nil, domain.ErrQuestionNotInAttempt
	}

	// Fast path: the record may already exist from an earlier retry. This is
	// an optimization; the uniqueness constraint below is the correctness
	// mechanism.
	if existing, err := s.attempts.FindAnswer(ctx, attemptID, questionID); err != nil {
		return nil, err
	} else if existing != nil {
		return alreadySubmittedResult(existing), nil
	}

	question, err := s.questions.QuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	wasSkipped := answerID == nil
	isCorrect := false
	if !wasSkipped {
		if correct := question.CorrectAnswer(); correct != nil {
			isCorrect = *answerID == correct.ID
		}
	}

	insert, err := s.attempts.InsertAnswer(ctx, &domain.UserAnswer{
		ID:         uuid.NewString(),
		AttemptID:  attemptID,
		UserID:     attempt.UserID,
		QuestionID: questionID,
		AnswerID:   answerID,
		IsCorrect:  isCorrect,
		WasSkipped: wasSkipped,
		TimeSpent:  timeSpent,
		AnsweredAt: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if !insert.Created {
		// A concurrent duplicate won the insert race.
		return alreadySubmittedResult(insert.Record), nil
	}

	// The answer row is the source of truth; a failed counter bump is logged
	// and must not roll it back.
	if err := s.attempts.BumpQuestionStats(ctx, questionID, isCorrect); err != nil {
		log.Printf("question stats increment failed for %s: %v", questionID, err)
	}

	return &SubmitAnswerResult{
		QuestionID: questionID,
		IsCorrect:  isCorrect,
		WasSkipped: wasSkipped,
		Message:    answerMessage(isCorrect, wasSkipped),
	}, nil
}

func alreadySubmittedResult(record *domain.UserAnswer) *SubmitAnswerResult {
	return &SubmitAnswerResult{
		QuestionID:       record.QuestionID,
		IsCorrect:        record.IsCorrect,
		WasSkipped:       record.WasSkipped,
		AlreadySubmitted: true,
		Message:          "Answer already submitted for this question",
	}
}

func answerMessage(isCorrect, wasSkipped bool) string {
	switch {
	case wasSkipped:
		return "Question skipped"
	case isCorrect:
		return "Correct answer!"
	default:
		return "Incorrect answer"
	}
}

// CompletionResult is the scored summary plus the per-question review that is
// only revealed once the attempt is finalized.
type CompletionResult struct {
	Attempt AttemptSummary `json:"attempt"`
	Answers []AnswerReview `json:"answers"`
}

type AttemptSummary struct {
	ID                  string     `json:"id"`
	QuizID              string     `json:"quizId"`
	Score               float64    `json:"score"`
	TotalPoints         float64    `json:"totalPoints"`
	TotalQuestions      int        `json:"totalQuestions"`
	CorrectAnswers      int        `json:"correctAnswers"`
	Passed              bool       `json:"passed"`
	StartedAt           time.Time  `json:"startedAt"`
	CompletedAt         *time.Time `json:"completedAt"`
	IsPracticeMode      bool       `json:"isPracticeMode"`
	AverageResponseTime float64    `json:"averageResponseTime"`
}

// AnswerReview reveals the correct answer and explanation for a question the
// user answered; only ever produced after completion.
type AnswerReview struct {
	QuestionID          string  `json:"questionId"`
	QuestionText        string  `json:"questionText"`
	UserAnswerID        *string `json:"userAnswerId,omitempty"`
	CorrectAnswerID     *string `json:"correctAnswerId,omitempty"`
	IsCorrect           bool    `json:"isCorrect"`
	WasSkipped          bool    `json:"wasSkipped"`
	TimeSpent           int     `json:"timeSpent"`
	Explanation         *string `json:"explanation,omitempty"`
	ExplanationImageURL *string `json:"explanationImageUrl,omitempty"`
	ExplanationVideoURL *string `json:"explanationVideoUrl,omitempty"`
}

// CompleteAttempt finalizes an attempt: scores the recorded answers against
// the quiz's scoring configuration, sets the completion timestamp and returns
// the review payload. Completing twice is rejected.
func (s *AttemptService) CompleteAttempt(ctx context.Context, attemptID, userID string) (*CompletionResult, error) {
	attempt, err := s.attempts.Attempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, domain.ErrNotAttemptOwner
	}
	if attempt.CompletedAt != nil {
		return nil, domain.ErrAttemptCompleted
	}

	quiz, err := s.quizzes.QuizForStart(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	answers, err := s.attempts.AnswersForAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	points, err := s.attempts.PoolPoints(ctx, attempt.QuizID, attempt.SelectedQuestionIDs)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]string, 0, len(answers))
	for _, a := range answers {
		questionIDs = append(questionIDs, a.QuestionID)
	}
	questions, err := s.questions.QuestionsByIDs(ctx, questionIDs)
	if err != nil {
		return nil, err
	}
	questionByID := make(map[string]*domain.Question, len(questions))
	for i := range questions {
		questionByID[questions[i].ID] = &questions[i]
	}

	var (
		totalPoints    float64
		earnedPoints   float64
		correctAnswers int
		totalTime      int
	)
	for _, ua := range answers {
		qPoints, ok := points[ua.QuestionID]
		if !ok || qPoints <= 0 {
			qPoints = 1
		}
		totalPoints += qPoints
		totalTime += ua.TimeSpent

		if ua.IsCorrect {
			correctAnswers++
			earnedPoints += qPoints
			if quiz.TimeBonusEnabled {
				limit := 60
				if q := questionByID[ua.QuestionID]; q != nil && q.TimeLimit != nil {
					limit = *q.TimeLimit
				} else if quiz.TimePerQuestion != nil {
					limit = *quiz.TimePerQuestion
				}
				if saved := limit - ua.TimeSpent; saved > 0 {
					earnedPoints += float64(saved) * quiz.BonusPointsPerSecond
				}
			}
		} else if !ua.WasSkipped && quiz.NegativeMarkingEnabled {
			earnedPoints -= qPoints * (quiz.PenaltyPercentage / 100)
		}
	}
	if earnedPoints < 0 {
		earnedPoints = 0
	}

	score := 0.0
	if totalPoints > 0 {
		score = earnedPoints / totalPoints * 100
	}

	now := s.now().UTC()
	attempt.Score = score
	attempt.TotalPoints = earnedPoints
	attempt.CorrectAnswers = correctAnswers
	attempt.Passed = score >= quiz.PassingScore
	attempt.CompletedAt = &now
	if len(answers) > 0 {
		attempt.AverageResponseTime = float64(totalTime) / float64(len(answers))
	}

	if err := s.attempts.FinalizeAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	reviews := make([]AnswerReview, 0, len(answers))
	for _, ua := range answers {
		review := AnswerReview{
			QuestionID:   ua.QuestionID,
			UserAnswerID: ua.AnswerID,
			IsCorrect:    ua.IsCorrect,
			WasSkipped:   ua.WasSkipped,
			TimeSpent:    ua.TimeSpent,
		}
		if q := questionByID[ua.QuestionID]; q != nil {
			review.QuestionText = q.QuestionText
			review.Explanation = q.Explanation
			review.ExplanationImageURL = q.ExplanationImageURL
			review.ExplanationVideoURL = q.ExplanationVideoURL
			if correct := q.CorrectAnswer(); correct != nil {
				id := correct.ID
				review.CorrectAnswerID = &id
			}
		}
		reviews = append(reviews, review)
	}

	return &CompletionResult{
		Attempt: AttemptSummary{
			ID:                  attempt.ID,
			QuizID:              attempt.QuizID,
			Score:               attempt.Score,
			TotalPoints:         attempt.TotalPoints,
			TotalQuestions:      attempt.TotalQuestions,
			CorrectAnswers:      attempt.CorrectAnswers,
			Passed:              attempt.Passed,
			StartedAt:           attempt.StartedAt,
			CompletedAt:         attempt.CompletedAt,
			IsPracticeMode:      attempt.IsPracticeMode,
			AverageResponseTime: attempt.AverageResponseTime,
		},
		Answers: reviews,
	}, nil
}

// GetAttemptLimit is the read-only quota preview used by quiz detail pages.
// It never fails on an exhausted quota; it reports it.
func (s *AttemptService) GetAttemptLimit(ctx context.Context, userID, quizID string, isPracticeMode bool, referenceDate time.Time) (*domain.AttemptLimitInfo, error) {
	quiz, err := s.quizzes.QuizForStart(ctx, quizID)
	if err != nil {
		return nil, err
	}
	info, err := CheckAttemptLimit(ctx, s.attempts, CheckAttemptLimitParams{
		UserID:         userID,
		Quiz:           quiz,
		IsPracticeMode: isPracticeMode,
		ReferenceDate:  referenceDate,
	})
	if err != nil {
		var limitErr *domain.AttemptLimitError
		if errors.As(err, &limitErr) {
			// Exhausted quotas report the same payload shape as allowed ones.
			var windowStart *time.Time
			if start, ok := WindowStart(limitErr.Period, referenceDate); ok {
				windowStart = &start
			}
			return &domain.AttemptLimitInfo{
				Max:           limitErr.Limit,
				Used:          limitErr.Limit,
				Period:        limitErr.Period,
				ResetAt:       limitErr.ResetAt,
				WindowStart:   windowStart,
				ReferenceDate: referenceDate.UTC(),
			}, nil
		}
		return nil, err
	}
	return info, nil
}
