package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// QuizStatus is the publication state of a quiz.
type QuizStatus string

const (
	QuizDraft     QuizStatus = "DRAFT"
	QuizPublished QuizStatus = "PUBLISHED"
	QuizArchived  QuizStatus = "ARCHIVED"
)

// SelectionMode controls how the question set of an attempt is populated.
type SelectionMode string

const (
	SelectionFixed       SelectionMode = "FIXED"
	SelectionTopicRandom SelectionMode = "TOPIC_RANDOM"
	SelectionPoolRandom  SelectionMode = "POOL_RANDOM"
)

// AttemptResetPeriod is the calendar granularity at which a user's attempt
// quota replenishes.
type AttemptResetPeriod string

const (
	ResetNever   AttemptResetPeriod = "NEVER"
	ResetDaily   AttemptResetPeriod = "DAILY"
	ResetWeekly  AttemptResetPeriod = "WEEKLY"
	ResetMonthly AttemptResetPeriod = "MONTHLY"
)

// Quiz is authored content; read-only to the attempt engine.
type Quiz struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID          string     `bun:"id,pk" json:"id"`
	Title       string     `bun:"title,notnull" json:"title"`
	Slug        string     `bun:"slug" json:"slug"`
	Status      QuizStatus `bun:"status,notnull" json:"status"`
	IsPublished bool       `bun:"is_published,notnull" json:"isPublished"`
	StartTime   *time.Time `bun:"start_time" json:"startTime,omitempty"`
	EndTime     *time.Time `bun:"end_time" json:"endTime,omitempty"`

	SelectionMode          SelectionMode `bun:"selection_mode,notnull" json:"selectionMode"`
	RandomizeQuestionOrder bool          `bun:"randomize_question_order,notnull" json:"randomizeQuestionOrder"`
	QuestionCount          *int          `bun:"question_count" json:"questionCount,omitempty"`

	MaxAttemptsPerUser *int               `bun:"max_attempts_per_user" json:"maxAttemptsPerUser,omitempty"`
	AttemptResetPeriod AttemptResetPeriod `bun:"attempt_reset_period,notnull" json:"attemptResetPeriod"`

	Duration        *int    `bun:"duration" json:"duration,omitempty"`
	TimePerQuestion *int    `bun:"time_per_question" json:"timePerQuestion,omitempty"`
	PassingScore    float64 `bun:"passing_score,notnull" json:"passingScore"`
	ShowHints       bool    `bun:"show_hints,notnull" json:"showHints"`

	TimeBonusEnabled       bool    `bun:"time_bonus_enabled,notnull" json:"timeBonusEnabled"`
	BonusPointsPerSecond   float64 `bun:"bonus_points_per_second,notnull" json:"bonusPointsPerSecond"`
	NegativeMarkingEnabled bool    `bun:"negative_marking_enabled,notnull" json:"negativeMarkingEnabled"`
	PenaltyPercentage      float64 `bun:"penalty_percentage,notnull" json:"penaltyPercentage"`

	Pool         []*QuizQuestionPool `bun:"rel:has-many,join:id=quiz_id" json:"pool,omitempty"`
	TopicConfigs []*QuizTopicConfig  `bun:"rel:has-many,join:id=quiz_id" json:"topicConfigs,omitempty"`
}

// QuizQuestionPool associates a quiz with a question, with a display order
// and a point value. Used by FIXED and POOL_RANDOM selection.
type QuizQuestionPool struct {
	bun.BaseModel `bun:"table:quiz_question_pool,alias:qp"`

	ID         string  `bun:"id,pk" json:"id"`
	QuizID     string  `bun:"quiz_id,notnull" json:"quizId"`
	QuestionID string  `bun:"question_id,notnull" json:"questionId"`
	Order      int     `bun:"display_order,notnull" json:"order"`
	Points     float64 `bun:"points,notnull" json:"points"`

	Question *Question `bun:"rel:belongs-to,join:question_id=id" json:"question,omitempty"`
}

// QuizTopicConfig drives TOPIC_RANDOM selection: take questionCount questions
// of the given difficulty from the topic and its descendants.
type QuizTopicConfig struct {
	bun.BaseModel `bun:"table:quiz_topic_configs,alias:tc"`

	ID            string    `bun:"id,pk" json:"id"`
	QuizID        string    `bun:"quiz_id,notnull" json:"quizId"`
	TopicID       string    `bun:"topic_id,notnull" json:"topicId"`
	Difficulty    string    `bun:"difficulty,notnull" json:"difficulty"`
	QuestionCount int       `bun:"question_count,notnull" json:"questionCount"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

// Topic is a node in the topic hierarchy (parent-pointer tree).
type Topic struct {
	bun.BaseModel `bun:"table:topics,alias:t"`

	ID       string  `bun:"id,pk" json:"id"`
	Name     string  `bun:"name,notnull" json:"name"`
	ParentID *string `bun:"parent_id" json:"parentId,omitempty"`
}

// Question carries the prompt, its answers and aggregate statistics. The
// explanation fields are never exposed while an attempt is in progress.
type Question struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID      string `bun:"id,pk" json:"id"`
	TopicID string `bun:"topic_id,notnull" json:"topicId"`

	QuestionText     string  `bun:"question_text,notnull" json:"questionText"`
	QuestionImageURL *string `bun:"question_image_url" json:"questionImageUrl,omitempty"`
	QuestionVideoURL *string `bun:"question_video_url" json:"questionVideoUrl,omitempty"`
	QuestionAudioURL *string `bun:"question_audio_url" json:"questionAudioUrl,omitempty"`

	Hint                *string `bun:"hint" json:"hint,omitempty"`
	Explanation         *string `bun:"explanation" json:"explanation,omitempty"`
	ExplanationImageURL *string `bun:"explanation_image_url" json:"explanationImageUrl,omitempty"`
	ExplanationVideoURL *string `bun:"explanation_video_url" json:"explanationVideoUrl,omitempty"`

	Difficulty           string `bun:"difficulty,notnull" json:"difficulty"`
	TimeLimit            *int   `bun:"time_limit" json:"timeLimit,omitempty"`
	RandomizeAnswerOrder bool   `bun:"randomize_answer_order,notnull" json:"randomizeAnswerOrder"`

	TimesAnswered int64 `bun:"times_answered,notnull,default:0" json:"timesAnswered"`
	TimesCorrect  int64 `bun:"times_correct,notnull,default:0" json:"timesCorrect"`

	Answers []*Answer `bun:"rel:has-many,join:id=question_id" json:"answers,omitempty"`
}

// CorrectAnswer returns the authoritative correct answer, or nil when the
// question has none flagged.
func (q *Question) CorrectAnswer() *Answer {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a
		}
	}
	return nil
}

// Answer is one option of a question.
type Answer struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID             string  `bun:"id,pk" json:"id"`
	QuestionID     string  `bun:"question_id,notnull" json:"questionId"`
	AnswerText     string  `bun:"answer_text,notnull" json:"answerText"`
	AnswerImageURL *string `bun:"answer_image_url" json:"answerImageUrl,omitempty"`
	AnswerVideoURL *string `bun:"answer_video_url" json:"answerVideoUrl,omitempty"`
	AnswerAudioURL *string `bun:"answer_audio_url" json:"answerAudioUrl,omitempty"`
	IsCorrect      bool    `bun:"is_correct,notnull" json:"isCorrect"`
	DisplayOrder   int     `bun:"display_order,notnull" json:"displayOrder"`
}

// QuizAttempt is one user's playthrough of a quiz. SelectedQuestionIDs is
// frozen at start time and is the only set of question IDs valid for answer
// submission during the attempt's lifetime.
type QuizAttempt struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID                  string     `bun:"id,pk" json:"id"`
	UserID              string     `bun:"user_id,notnull" json:"userId"`
	QuizID              string     `bun:"quiz_id,notnull" json:"quizId"`
	SelectedQuestionIDs []string   `bun:"selected_question_ids,array" json:"selectedQuestionIds"`
	TotalQuestions      int        `bun:"total_questions,notnull" json:"totalQuestions"`
	IsPracticeMode      bool       `bun:"is_practice_mode,notnull" json:"isPracticeMode"`
	StartedAt           time.Time  `bun:"started_at,notnull" json:"startedAt"`
	CompletedAt         *time.Time `bun:"completed_at" json:"completedAt,omitempty"`

	Score               float64 `bun:"score,notnull,default:0" json:"score"`
	TotalPoints         float64 `bun:"total_points,notnull,default:0" json:"totalPoints"`
	CorrectAnswers      int     `bun:"correct_answers,notnull,default:0" json:"correctAnswers"`
	Passed              bool    `bun:"passed,notnull,default:false" json:"passed"`
	AverageResponseTime float64 `bun:"average_response_time,notnull,default:0" json:"averageResponseTime"`
}

// HasQuestion reports whether id is part of the frozen selection.
func (a *QuizAttempt) HasQuestion(id string) bool {
	for _, qid := range a.SelectedQuestionIDs {
		if qid == id {
			return true
		}
	}
	return false
}

// UserAnswer records a single answer for one (attempt, question) pair.
// Created once, never updated; uniqueness of the pair is enforced by the
// storage layer.
type UserAnswer struct {
	bun.BaseModel `bun:"table:user_answers,alias:ua"`

	ID         string    `bun:"id,pk" json:"id"`
	AttemptID  string    `bun:"attempt_id,notnull" json:"attemptId"`
	UserID     string    `bun:"user_id,notnull" json:"userId"`
	QuestionID string    `bun:"question_id,notnull" json:"questionId"`
	AnswerID   *string   `bun:"answer_id" json:"answerId,omitempty"`
	IsCorrect  bool      `bun:"is_correct,notnull" json:"isCorrect"`
	WasSkipped bool      `bun:"was_skipped,notnull" json:"wasSkipped"`
	TimeSpent  int       `bun:"time_spent,notnull" json:"timeSpent"`
	AnsweredAt time.Time `bun:"answered_at,notnull" json:"answeredAt"`
}

// User is the slim profile view the engine needs for leaderboard display.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID    string  `bun:"id,pk" json:"id"`
	Name  *string `bun:"name" json:"name,omitempty"`
	Email *string `bun:"email" json:"email,omitempty"`
	Image *string `bun:"image" json:"image,omitempty"`
}

// AttemptLimitInfo is the quota metadata returned when an attempt is allowed
// on a limited quiz.
type AttemptLimitInfo struct {
	Max                  int                `json:"max"`
	Used                 int                `json:"used"`
	RemainingBeforeStart int                `json:"remainingBeforeStart"`
	Period               AttemptResetPeriod `json:"period"`
	ResetAt              *time.Time         `json:"resetAt,omitempty"`
	WindowStart          *time.Time         `json:"windowStart,omitempty"`
	ReferenceDate        time.Time          `json:"referenceDate"`
}

// LeaderboardPeriod is the aggregation window of a leaderboard query.
type LeaderboardPeriod string

const (
	PeriodDaily   LeaderboardPeriod = "daily"
	PeriodWeekly  LeaderboardPeriod = "weekly"
	PeriodMonthly LeaderboardPeriod = "monthly"
	PeriodAllTime LeaderboardPeriod = "all-time"
)

// LeaderboardEntry is one ranked row of a computed leaderboard. Derived, not
// persisted; recomputed from attempt and answer history.
type LeaderboardEntry struct {
	UserID              string  `json:"userId"`
	UserName            *string `json:"userName,omitempty"`
	UserImage           *string `json:"userImage,omitempty"`
	Score               float64 `json:"score"`
	TotalPoints         float64 `json:"totalPoints"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	Attempts            int     `json:"attempts,omitempty"`
	Rank                int     `json:"rank"`
}
