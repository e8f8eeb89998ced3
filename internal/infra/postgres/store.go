package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"trivia-attempt-service/internal/app"
	"trivia-attempt-service/internal/domain"
)

// Store is the bun-backed persistence layer for quizzes, attempts and
// answers.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) QuizForStart(ctx context.Context, quizID string) (*domain.Quiz, error) {
	quiz := new(domain.Quiz)
	err := s.db.NewSelect().
		Model(quiz).
		Relation("Pool").
		Relation("TopicConfigs").
		Where("q.id = ?", quizID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) CountAttemptsSince(ctx context.Context, userID, quizID string, since *time.Time) (int, error) {
	q := s.db.NewSelect().
		Model((*domain.QuizAttempt)(nil)).
		Where("qa.user_id = ?", userID).
		Where("qa.quiz_id = ?", quizID).
		Where("qa.is_practice_mode = FALSE")
	if since != nil {
		q = q.Where("qa.started_at >= ?", *since)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

// CreateAttempt inserts the attempt and loads its frozen question set with
// answers in one transaction, so the response is built from exactly the rows
// the attempt was created against.
func (s *Store) CreateAttempt(ctx context.Context, attempt *domain.QuizAttempt) ([]domain.Question, error) {
	var questions []domain.Question
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(attempt).Exec(ctx); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		if len(attempt.SelectedQuestionIDs) == 0 {
			return nil
		}
		if err := tx.NewSelect().
			Model(&questions).
			Relation("Answers").
			Where("qn.id IN (?)", bun.In(attempt.SelectedQuestionIDs)).
			Scan(ctx); err != nil {
			return fmt.Errorf("load attempt questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *Store) Attempt(ctx context.Context, id string) (*domain.QuizAttempt, error) {
	attempt := new(domain.QuizAttempt)
	err := s.db.NewSelect().Model(attempt).Where("qa.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	return attempt, nil
}

func (s *Store) FindAnswer(ctx context.Context, attemptID, questionID string) (*domain.UserAnswer, error) {
	answer := new(domain.UserAnswer)
	err := s.db.NewSelect().
		Model(answer).
		Where("ua.attempt_id = ?", attemptID).
		Where("ua.question_id = ?", questionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find answer: %w", err)
	}
	return answer, nil
}

// InsertAnswer relies on the (attempt_id, question_id) unique constraint as
// the arbiter of duplicates: a violation means a concurrent call won the
// insert, so the winner's record is fetched and returned instead.
func (s *Store) InsertAnswer(ctx context.Context, answer *domain.UserAnswer) (app.AnswerInsert, error) {
	_, err := s.db.NewInsert().Model(answer).Exec(ctx)
	if err == nil {
		return app.AnswerInsert{Created: true, Record: answer}, nil
	}
	if !isUniqueViolation(err) {
		return app.AnswerInsert{}, fmt.Errorf("insert answer: %w", err)
	}

	existing, findErr := s.FindAnswer(ctx, answer.AttemptID, answer.QuestionID)
	if findErr != nil {
		return app.AnswerInsert{}, findErr
	}
	if existing == nil {
		return app.AnswerInsert{}, fmt.Errorf("insert answer: %w", err)
	}
	return app.AnswerInsert{Created: false, Record: existing}, nil
}

func (s *Store) BumpQuestionStats(ctx context.Context, questionID string, correct bool) error {
	q := s.db.NewUpdate().
		Model((*domain.Question)(nil)).
		Set("times_answered = times_answered + 1").
		Where("id = ?", questionID)
	if correct {
		q = q.Set("times_correct = times_correct + 1")
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("bump question stats: %w", err)
	}
	return nil
}

func (s *Store) AnswersForAttempt(ctx context.Context, attemptID string) ([]domain.UserAnswer, error) {
	var answers []domain.UserAnswer
	err := s.db.NewSelect().
		Model(&answers).
		Where("ua.attempt_id = ?", attemptID).
		Order("ua.answered_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load attempt answers: %w", err)
	}
	return answers, nil
}

func (s *Store) PoolPoints(ctx context.Context, quizID string, questionIDs []string) (map[string]float64, error) {
	points := make(map[string]float64, len(questionIDs))
	if len(questionIDs) == 0 {
		return points, nil
	}
	var entries []domain.QuizQuestionPool
	err := s.db.NewSelect().
		Model(&entries).
		Where("qp.quiz_id = ?", quizID).
		Where("qp.question_id IN (?)", bun.In(questionIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pool points: %w", err)
	}
	for _, e := range entries {
		points[e.QuestionID] = e.Points
	}
	return points, nil
}

func (s *Store) FinalizeAttempt(ctx context.Context, attempt *domain.QuizAttempt) error {
	_, err := s.db.NewUpdate().
		Model(attempt).
		Column("score", "total_points", "correct_answers", "passed", "completed_at", "average_response_time").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("finalize attempt: %w", err)
	}
	return nil
}

func (s *Store) QuestionsByTopics(ctx context.Context, topicIDs []string, difficulty string) ([]domain.Question, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}
	var questions []domain.Question
	q := s.db.NewSelect().
		Model(&questions).
		Relation("Answers").
		Where("qn.topic_id IN (?)", bun.In(topicIDs))
	if difficulty != "" {
		q = q.Where("qn.difficulty = ?", difficulty)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("load questions by topic: %w", err)
	}
	return questions, nil
}

func (s *Store) QuestionByID(ctx context.Context, id string) (*domain.Question, error) {
	question := new(domain.Question)
	err := s.db.NewSelect().
		Model(question).
		Relation("Answers").
		Where("qn.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}
	return question, nil
}

func (s *Store) QuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var questions []domain.Question
	err := s.db.NewSelect().
		Model(&questions).
		Relation("Answers").
		Where("qn.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// Topics loads the full topic table for the hierarchy resolver.
func (s *Store) Topics(ctx context.Context) ([]domain.Topic, error) {
	var out []domain.Topic
	if err := s.db.NewSelect().Model(&out).Scan(ctx); err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	return out, nil
}

// isUniqueViolation reports whether err is Postgres error 23505.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
