// Package memory is a complete in-process storage backend. It powers local
// development without Postgres and keeps transport-level tests fast; the
// uniqueness guarantee of the answers table is reproduced under the store
// lock.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-attempt-service/internal/app"
	"trivia-attempt-service/internal/domain"
)

type Store struct {
	mu          sync.RWMutex
	users       map[string]*domain.User
	topics      map[string]*domain.Topic
	questions   map[string]*domain.Question
	quizzes     map[string]*domain.Quiz
	attempts    map[string]*domain.QuizAttempt
	answers     map[string]*domain.UserAnswer
	answerOrder []string
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]*domain.User),
		topics:    make(map[string]*domain.Topic),
		questions: make(map[string]*domain.Question),
		quizzes:   make(map[string]*domain.Quiz),
		attempts:  make(map[string]*domain.QuizAttempt),
		answers:   make(map[string]*domain.UserAnswer),
	}
}

// Seed helpers for dev mode and tests.

func (s *Store) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) PutTopic(t *domain.Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[t.ID] = t
}

func (s *Store) PutQuestion(q *domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = q
}

func (s *Store) PutQuiz(q *domain.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[q.ID] = q
}

func (s *Store) QuizForStart(_ context.Context, quizID string) (*domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) CountAttemptsSince(_ context.Context, userID, quizID string, since *time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.attempts {
		if a.UserID != userID || a.QuizID != quizID || a.IsPracticeMode {
			continue
		}
		if since != nil && a.StartedAt.Before(*since) {
			continue
		}
		count++
	}
	return count, nil
}

func (s *Store) CreateAttempt(_ context.Context, attempt *domain.QuizAttempt) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *attempt
	s.attempts[attempt.ID] = &stored

	questions := make([]domain.Question, 0, len(attempt.SelectedQuestionIDs))
	for _, id := range attempt.SelectedQuestionIDs {
		q, ok := s.questions[id]
		if !ok {
			delete(s.attempts, attempt.ID)
			return nil, domain.ErrQuestionNotFound
		}
		questions = append(questions, *q)
	}
	return questions, nil
}

func (s *Store) Attempt(_ context.Context, id string) (*domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	cp := *attempt
	return &cp, nil
}

func answerKey(attemptID, questionID string) string {
	return attemptID + "|" + questionID
}

func (s *Store) FindAnswer(_ context.Context, attemptID, questionID string) (*domain.UserAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.answers[answerKey(attemptID, questionID)]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) InsertAnswer(_ context.Context, answer *domain.UserAnswer) (app.AnswerInsert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey(answer.AttemptID, answer.QuestionID)
	if existing, ok := s.answers[key]; ok {
		cp := *existing
		return app.AnswerInsert{Created: false, Record: &cp}, nil
	}
	stored := *answer
	s.answers[key] = &stored
	s.answerOrder = append(s.answerOrder, key)
	return app.AnswerInsert{Created: true, Record: answer}, nil
}

func (s *Store) BumpQuestionStats(_ context.Context, questionID string, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.TimesAnswered++
	if correct {
		q.TimesCorrect++
	}
	return nil
}

func (s *Store) AnswersForAttempt(_ context.Context, attemptID string) ([]domain.UserAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.UserAnswer
	for _, key := range s.answerOrder {
		if a := s.answers[key]; a.AttemptID == attemptID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *Store) PoolPoints(_ context.Context, quizID string, _ []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	points := make(map[string]float64)
	if quiz, ok := s.quizzes[quizID]; ok {
		for _, entry := range quiz.Pool {
			points[entry.QuestionID] = entry.Points
		}
	}
	return points, nil
}

func (s *Store) FinalizeAttempt(_ context.Context, attempt *domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; !ok {
		return domain.ErrAttemptNotFound
	}
	stored := *attempt
	s.attempts[attempt.ID] = &stored
	return nil
}

func (s *Store) QuestionsByTopics(_ context.Context, topicIDs []string, difficulty string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(topicIDs))
	for _, id := range topicIDs {
		wanted[id] = true
	}
	var out []domain.Question
	for _, q := range s.questions {
		if wanted[q.TopicID] && (difficulty == "" || q.Difficulty == difficulty) {
			out = append(out, *q)
		}
	}
	// Map iteration order is random; keep callers deterministic.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) QuestionByID(_ context.Context, id string) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *Store) QuestionsByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *Store) Topics(_ context.Context) ([]domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		out = append(out, *t)
	}
	return out, nil
}

func (s *Store) GlobalStandings(_ context.Context, since *time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	return s.standings(since, limit), nil
}

// TopicStandings ranks users by correct answers on questions of the given
// topics, mirroring the SQL backend's aggregation over answer records.
func (s *Store) TopicStandings(_ context.Context, topicIDs []string, since *time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(topicIDs))
	for _, id := range topicIDs {
		wanted[id] = true
	}

	type agg struct {
		correct  int
		total    int
		time     int
		attempts map[string]bool
	}
	byUser := make(map[string]*agg)
	for _, key := range s.answerOrder {
		a := s.answers[key]
		q, ok := s.questions[a.QuestionID]
		if !ok || !wanted[q.TopicID] {
			continue
		}
		if attempt, ok := s.attempts[a.AttemptID]; ok && attempt.IsPracticeMode {
			continue
		}
		if since != nil && a.AnsweredAt.Before(*since) {
			continue
		}
		entry := byUser[a.UserID]
		if entry == nil {
			entry = &agg{attempts: make(map[string]bool)}
			byUser[a.UserID] = entry
		}
		if a.IsCorrect {
			entry.correct++
		}
		entry.total++
		entry.time += a.TimeSpent
		entry.attempts[a.AttemptID] = true
	}

	entries := make([]domain.LeaderboardEntry, 0, len(byUser))
	for userID, a := range byUser {
		entry := domain.LeaderboardEntry{
			UserID:              userID,
			TotalPoints:         float64(a.correct),
			Score:               float64(a.correct) / float64(a.total) * 100,
			AverageResponseTime: float64(a.time) / float64(a.total),
			Attempts:            len(a.attempts),
		}
		if u, ok := s.users[userID]; ok {
			entry.UserName = u.Name
			entry.UserImage = u.Image
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		if entries[i].AverageResponseTime != entries[j].AverageResponseTime {
			return entries[i].AverageResponseTime < entries[j].AverageResponseTime
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// standings aggregates completed non-practice attempts into the same total
// order the SQL backend produces: points descending, average response time
// ascending, then user ID.
func (s *Store) standings(since *time.Time, limit int) []domain.LeaderboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type agg struct {
		points   float64
		score    float64
		response float64
		attempts int
	}
	byUser := make(map[string]*agg)
	for _, a := range s.attempts {
		if a.CompletedAt == nil || a.IsPracticeMode {
			continue
		}
		if since != nil && a.CompletedAt.Before(*since) {
			continue
		}
		entry := byUser[a.UserID]
		if entry == nil {
			entry = &agg{}
			byUser[a.UserID] = entry
		}
		entry.points += a.TotalPoints
		entry.score += a.Score
		entry.response += a.AverageResponseTime
		entry.attempts++
	}

	entries := make([]domain.LeaderboardEntry, 0, len(byUser))
	for userID, a := range byUser {
		entry := domain.LeaderboardEntry{
			UserID:              userID,
			TotalPoints:         a.points,
			Score:               a.score,
			AverageResponseTime: a.response / float64(a.attempts),
			Attempts:            a.attempts,
		}
		if u, ok := s.users[userID]; ok {
			entry.UserName = u.Name
			entry.UserImage = u.Image
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		if entries[i].AverageResponseTime != entries[j].AverageResponseTime {
			return entries[i].AverageResponseTime < entries[j].AverageResponseTime
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
