package app

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"trivia-attempt-service/internal/domain"
)

// stubStore is a single in-memory fake behind every service interface the
// attempt lifecycle touches. InsertAnswer enforces (attempt, question)
// uniqueness under its lock, mirroring the storage constraint.
type stubStore struct {
	mu          sync.Mutex
	quizzes     map[string]*domain.Quiz
	questions   map[string]*domain.Question
	attempts    map[string]*domain.QuizAttempt
	answers     map[string]*domain.UserAnswer
	answerOrder []string
	priorCount  int
	countCalls  int
	bumps       map[string]int
}

func newStubStore() *stubStore {
	return &stubStore{
		quizzes:   make(map[string]*domain.Quiz),
		questions: make(map[string]*domain.Question),
		attempts:  make(map[string]*domain.QuizAttempt),
		answers:   make(map[string]*domain.UserAnswer),
		bumps:     make(map[string]int),
	}
}

func (s *stubStore) QuizForStart(_ context.Context, quizID string) (*domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *stubStore) CountAttemptsSince(_ context.Context, _, _ string, _ *time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	return s.priorCount, nil
}

func (s *stubStore) CreateAttempt(_ context.Context, attempt *domain.QuizAttempt) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *attempt
	s.attempts[attempt.ID] = &stored

	questions := make([]domain.Question, 0, len(attempt.SelectedQuestionIDs))
	for _, id := range attempt.SelectedQuestionIDs {
		q, ok := s.questions[id]
		if !ok {
			return nil, domain.ErrQuestionNotFound
		}
		questions = append(questions, *q)
	}
	return questions, nil
}

func (s *stubStore) Attempt(_ context.Context, id string) (*domain.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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

func (s *stubStore) FindAnswer(_ context.Context, attemptID, questionID string) (*domain.UserAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.answers[answerKey(attemptID, questionID)]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) InsertAnswer(_ context.Context, answer *domain.UserAnswer) (AnswerInsert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey(answer.AttemptID, answer.QuestionID)
	if existing, ok := s.answers[key]; ok {
		cp := *existing
		return AnswerInsert{Created: false, Record: &cp}, nil
	}
	stored := *answer
	s.answers[key] = &stored
	s.answerOrder = append(s.answerOrder, key)
	return AnswerInsert{Created: true, Record: answer}, nil
}

func (s *stubStore) BumpQuestionStats(_ context.Context, questionID string, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bumps[questionID]++
	return nil
}

func (s *stubStore) AnswersForAttempt(_ context.Context, attemptID string) ([]domain.UserAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.UserAnswer
	for _, key := range s.answerOrder {
		if a := s.answers[key]; a.AttemptID == attemptID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubStore) PoolPoints(_ context.Context, quizID string, _ []string) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	points := make(map[string]float64)
	if quiz, ok := s.quizzes[quizID]; ok {
		for _, entry := range quiz.Pool {
			points[entry.QuestionID] = entry.Points
		}
	}
	return points, nil
}

func (s *stubStore) FinalizeAttempt(_ context.Context, attempt *domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *attempt
	s.attempts[attempt.ID] = &stored
	return nil
}

func (s *stubStore) QuestionsByTopics(_ context.Context, topicIDs []string, difficulty string) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	return out, nil
}

func (s *stubStore) QuestionByID(_ context.Context, id string) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *stubStore) QuestionsByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Question
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, *q)
		}
	}
	return out, nil
}

// identityResolver resolves a topic to itself only.
type identityResolver struct{}

func (identityResolver) IDsWithDescendants(_ context.Context, topicID string) ([]string, error) {
	return []string{topicID}, nil
}

var testClock = func() time.Time {
	return time.Date(2024, 5, 15, 15, 30, 0, 0, time.UTC)
}

func newTestService(store *stubStore) *AttemptService {
	return NewAttemptService(store, store, store, identityResolver{}).
		WithClock(testClock).
		WithRand(func() *rand.Rand { return rand.New(rand.NewSource(1)) })
}

func seedQuestion(store *stubStore, id, topicID, correctAnswerID string) *domain.Question {
	q := &domain.Question{
		ID:           id,
		TopicID:      topicID,
		QuestionText: "prompt " + id,
		Difficulty:   "MEDIUM",
		Hint:         strptr("a hint"),
		Explanation:  strptr("because reasons"),
		Answers: []*domain.Answer{
			{ID: id + "-a", QuestionID: id, AnswerText: "wrong", DisplayOrder: 2},
			{ID: correctAnswerID, QuestionID: id, AnswerText: "right", IsCorrect: true, DisplayOrder: 1},
		},
	}
	store.questions[id] = q
	return q
}

func strptr(s string) *string { return &s }

// seedFixedQuiz seeds a published FIXED quiz with questions q1 (2 points) and
// q2 (1 point) in that display order.
func seedFixedQuiz(store *stubStore) *domain.Quiz {
	seedQuestion(store, "q1", "topic-1", "q1-correct")
	seedQuestion(store, "q2", "topic-1", "q2-correct")
	quiz := &domain.Quiz{
		ID:                 "quiz-1",
		Title:              "General Knowledge",
		Slug:               "general-knowledge",
		Status:             domain.QuizPublished,
		IsPublished:        true,
		SelectionMode:      domain.SelectionFixed,
		AttemptResetPeriod: domain.ResetNever,
		PassingScore:       50,
		Pool: []*domain.QuizQuestionPool{
			{ID: "p1", QuizID: "quiz-1", QuestionID: "q1", Order: 1, Points: 2},
			{ID: "p2", QuizID: "quiz-1", QuestionID: "q2", Order: 2, Points: 1},
		},
	}
	store.quizzes[quiz.ID] = quiz
	return quiz
}

func startAttempt(t *testing.T, svc *AttemptService, store *stubStore) *StartAttemptResult {
	t.Helper()
	result, err := svc.StartAttempt(context.Background(), "quiz-1", "u1", false)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return result
}

func TestStartAttemptFreezesSelectionAndSanitizes(t *testing.T) {
	store := newStubStore()
	seedFixedQuiz(store)
	svc := newTestService(store)

	result := startAttempt(t, svc, store)

	if result.Attempt.TotalQuestions != 2 {
		t.Fatalf("total questions = %d, want 2", result.Attempt.TotalQuestions)
	}
	stored, ok := store.attempts[result.Attempt.ID]
	if !ok {
		t.Fatal("attempt was not persisted")
	}
	if len(stored.SelectedQuestionIDs) != 2 || stored.SelectedQuestionIDs[0] != "q1" || stored.SelectedQuestionIDs[1] != "q2" {
		t.Fatalf("frozen selection = %v, want [q1 q2]", stored.SelectedQuestionIDs)
	}
	if len(result.Questions) != 2 || result.Questions[0].ID != "q1" || result.Questions[1].ID != "q2" {
		t.Fatalf("payload order does not match frozen selection: %+v", result.Questions)
	}

	// Answers come back in display order when the question does not opt into
	// shuffling.
	q1 := result.Questions[0]
	if len(q1.Answers) != 2 || q1.Answers[0].ID != "q1-correct" || q1.Answers[1].ID != "q1-a" {
		t.Fatalf("answers not in display order: %+v", q1.Answers)
	}

	// The payload must carry no grading material.
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, leak := range []string{"isCorrect", "explanation", "Explanation"} {
		if strings.Contains(string(raw), leak) {
			t.Fatalf("start payload leaks %q: %s", leak, raw)
		}
	}
	if q1.Hint != nil {
		t.Fatal("hint must be withheld when the quiz does not show hints")
	}
}

func TestStartAttemptShowsHintsWhenEnabled(t *testing.T) {
	store := newStubStore()
	quiz := seedFixedQuiz(store)
	quiz.ShowHints = true
	svc := newTestService(store)

	result := startAttempt(t, svc, store)
	if result.Questions[0].Hint == nil || *result.Questions[0].Hint != "a hint" {
		t.Fatalf("hint should be exposed, got %v", result.Questions[0].Hint)
	}
}

func TestStartAttemptRejectsUnavailableQuiz(t *testing.T) {
	future := testClock().Add(time.Hour)
	past := testClock().Add(-time.Hour)

	cases := []struct {
		name   string
		mutate func(*domain.Quiz)
	}{
		{"draft", func(q *domain.Quiz) { q.Status = domain.QuizDraft }},
		{"unpublished", func(q *domain.Quiz) { q.IsPublished = false }},
		{"not started yet", func(q *domain.Quiz) { q.StartTime = &future }},
		{"already ended", func(q *domain.Quiz) { q.EndTime = &past }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStubStore()
			quiz := seedFixedQuiz(store)
			tc.mutate(quiz)
			svc := newTestService(store)

			_, err := svc.StartAttempt(context.Background(), "quiz-1", "u1", false)
			if !errors.Is(err, domain.ErrQuizNotAvailable) {
				t.Fatalf("expected ErrQuizNotAvailable, got %v", err)
			}
		})
	}
}

func TestStartAttemptUnknownQuiz(t *testing.T) {
	svc := newTestService(newStubStore())
	_, err := svc.StartAttempt(context.Background(), "missing", "u1", false)
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestStartAttemptQuotaExhausted(t *testing.T) {
	store := newStubStore()
	quiz := seedFixedQuiz(store)
	quiz.MaxAttemptsPerUser = intptr(2)
	quiz.AttemptResetPeriod = domain.ResetDaily
	store.priorCount = 2
	svc := newTestService(store)

	_, err := svc.StartAttempt(context.Background(), "quiz-1", "u1", false)
	var limitErr *domain.AttemptLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected AttemptLimitError, got %v", err)
	}
	if len(store.attempts) != 0 {
		t.Fatal("no attempt may be created past the quota")
	}
}

func TestStartAttemptPracticeBypassesQuota(t *testing.T) {
	store := newStubStore()
	quiz := seedFixedQuiz(store)
	quiz.MaxAttemptsPerUser = intptr(1)
	store.priorCount = 99
	svc := newTestService(store)

	result, err := svc.StartAttempt(context.Background(), "quiz-1", "u1", true)
	if err != nil {
		t.Fatalf("practice start: %v", err)
	}
	if !result.Attempt.IsPracticeMode {
		t.Fatal("attempt should be flagged as practice")
	}
	if store.countCalls != 0 {
		t.Fatalf("practice start must not query attempt counts, got %d", store.countCalls)
	}
}

func TestSubmitAnswerGradesAndBumpsStats(t *testing.T) {
	store := newStubStore()
	seedFixedQuiz(store)
	svc := newTestService(store)
	attempt := startAttempt(t, svc, store)

	answerID := "q1-correct"
	result, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "q1", &answerID, 10)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.IsCorrect || result.WasSkipped || result.AlreadySubmitted {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Message != "Correct answer!" {
		t.Fatalf("message = %q", result.Message)
	}
	if store.bumps["q1"] != 1 {
		t.Fatalf("stats bumps = %d, want 1", store.bumps["q1"])
	}

	wrong := "q2-a"
	result, err = svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "q2", &wrong, 5)
	if err != nil {
		t.Fatalf("submit wrong: %v", err)
	}
	if result.IsCorrect {
		t.Fatal("wrong option graded correct")
	}
	if result.Message != "Incorrect answer" {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestSubmitAnswerSkip(t *testing.T) {
	store := newStubStore()
	seedFixedQuiz(store)
	svc := newTestService(store)
	attempt := startAttempt(t, svc, store)

	result, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "q1", nil, 3)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if !result.WasSkipped || result.IsCorrect {
		t.Fatalf("unexpected skip result: %+v", result)
	}
	if result.Message != "Question skipped" {
		t.Fatalf("message = %q", result.Message)
	}
	// A skip is still a recorded answer and counts toward statistics.
	if store.bumps["q1"] != 1 {
		t.Fatalf("stats bumps = %d, want 1", store.bumps["q1"])
	}
}

func TestSubmitAnswerIdempotentRetry(t *testing.T) {
	store := newStubStore()
	seedFixedQuiz(store)
	svc := newTestService(store)
	attempt := startAttempt(t, svc, store)

	answerID := "q1-correct"
	if _, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "q1", &answerID, 10); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	other := "q1-a"
	retry, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "q1", &other, 99)
	if err != nil {
		t.Fatalf("retry must succeed, got %v", err)
	}
	if !retry.AlreadySubmitted {
		t.Fatal("retry should be flagged as already submitted")
	}
	// The stored outcome wins, not the retried input.
	if !retry.IsCorrect {
		t.Fatal("retry must report the original grading")
	}
	if len(store.answers) != 1 {
		t.Fatalf("answer records = %d, want 1", len(store.answers))
	}
	if store.bumps["q1"] != 1 {
		t.Fatalf("stats bumps = %d, want exactly 1", store.bumps["q1"])
	}
}

func TestSubmitAnswerConcurrentDuplicates(t *testing.T) {
	store := newStubStore()
	seedFixedQuiz(store)
	svc := newTestService(store)
	attempt := startAttempt(t, svc, store)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			answerID := "q1-correct"
			_, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "q1", &answerID, 7)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("duplicate submission surfaced an error: %v", err)
		}
	}
	if len(store.answers) != 1 {
		t.Fatalf("answer records = %d, want exactly 1", len(store.answers))
	}
	if store.bumps["q1"] != 1 {
		t.Fatalf("stats bumps = %d, want exactly 1", store.bumps["q1"])
	}
}

func TestSubmitAnswerRejections(t *testing.T) {
	store := newStubStore()
	seedFixedQuiz(store)
	seedQuestion(store, "outsider", "topic-1", "outsider-correct")
	svc := newTestService(store)
	attempt := startAttempt(t, svc, store)
	answerID := "q1-correct"

	if _, err := svc.SubmitAnswer(context.Background(), "missing", "u1", "q1", &answerID, 1); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
	if _, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "intruder", "q1", &answerID, 1); !errors.Is(err, domain.ErrNotAttemptOwner) {
		t.Fatalf("expected ErrNotAttemptOwner, got %v", err)
	}
	if _, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "outsider", &answerID, 1); !errors.Is(err, domain.ErrQuestionNotInAttempt) {
		t.Fatalf("expected ErrQuestionNotInAttempt, got %v", err)
	}

	if _, err := svc.CompleteAttempt(context.Background(), attempt.Attempt.ID, "u1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "q1", &answerID, 1); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected ErrAttemptCompleted, got %v", err)
	}
}

func TestCompleteAttemptScoresAndReveals(t *testing.T) {
	store := newStubStore()
	quiz := seedFixedQuiz(store)
	quiz.NegativeMarkingEnabled = true
	quiz.PenaltyPercentage = 50
	svc := newTestService(store)
	attempt := startAttempt(t, svc, store)

	correct := "q1-correct"
	if _, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "q1", &correct, 10); err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	wrong := "q2-a"
	if _, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "q2", &wrong, 6); err != nil {
		t.Fatalf("submit q2: %v", err)
	}

	result, err := svc.CompleteAttempt(context.Background(), attempt.Attempt.ID, "u1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	// q1 earns its 2 points; q2 (1 point, wrong, not skipped) costs 0.5.
	// Earned 1.5 of 3 -> 50%, which meets the 50 passing score.
	summary := result.Attempt
	if summary.TotalPoints != 1.5 {
		t.Fatalf("earned points = %v, want 1.5", summary.TotalPoints)
	}
	if summary.Score != 50 {
		t.Fatalf("score = %v, want 50", summary.Score)
	}
	if !summary.Passed {
		t.Fatal("50%% must pass a passing score of 50")
	}
	if summary.CorrectAnswers != 1 {
		t.Fatalf("correct answers = %d, want 1", summary.CorrectAnswers)
	}
	if summary.AverageResponseTime != 8 {
		t.Fatalf("average response time = %v, want 8", summary.AverageResponseTime)
	}
	if summary.CompletedAt == nil {
		t.Fatal("completion timestamp missing")
	}

	// The review reveals what the live payload withheld.
	if len(result.Answers) != 2 {
		t.Fatalf("reviews = %d, want 2", len(result.Answers))
	}
	first := result.Answers[0]
	if first.CorrectAnswerID == nil || *first.CorrectAnswerID != "q1-correct" {
		t.Fatalf("review must reveal the correct answer, got %+v", first)
	}
	if first.Explanation == nil {
		t.Fatal("review must reveal the explanation")
	}

	if _, err := svc.CompleteAttempt(context.Background(), attempt.Attempt.ID, "u1"); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("second completion should fail, got %v", err)
	}
}

func TestCompleteAttemptTimeBonus(t *testing.T) {
	store := newStubStore()
	quiz := seedFixedQuiz(store)
	quiz.TimeBonusEnabled = true
	quiz.BonusPointsPerSecond = 0.5
	limit := 30
	store.questions["q1"].TimeLimit = &limit
	svc := newTestService(store)
	attempt := startAttempt(t, svc, store)

	correct := "q1-correct"
	if _, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", "q1", &correct, 10); err != nil {
		t.Fatalf("submit: %v", err)
	}

	result, err := svc.CompleteAttempt(context.Background(), attempt.Attempt.ID, "u1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	// 2 base points plus 20 seconds saved at 0.5/s.
	if result.Attempt.TotalPoints != 12 {
		t.Fatalf("earned points = %v, want 12", result.Attempt.TotalPoints)
	}
}

func TestCompleteAttemptScoreFloorsAtZero(t *testing.T) {
	store := newStubStore()
	quiz := seedFixedQuiz(store)
	quiz.NegativeMarkingEnabled = true
	quiz.PenaltyPercentage = 100
	svc := newTestService(store)
	attempt := startAttempt(t, svc, store)

	for _, q := range []string{"q1", "q2"} {
		wrong := q + "-a"
		if _, err := svc.SubmitAnswer(context.Background(), attempt.Attempt.ID, "u1", q, &wrong, 2); err != nil {
			t.Fatalf("submit %s: %v", q, err)
		}
	}

	result, err := svc.CompleteAttempt(context.Background(), attempt.Attempt.ID, "u1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Attempt.TotalPoints != 0 || result.Attempt.Score != 0 {
		t.Fatalf("score must floor at zero, got %+v", result.Attempt)
	}
	if result.Attempt.Passed {
		t.Fatal("a zero score cannot pass")
	}
}

func TestCompleteAttemptOwnership(t *testing.T) {
	store := newStubStore()
	seedFixedQuiz(store)
	svc := newTestService(store)
	attempt := startAttempt(t, svc, store)

	if _, err := svc.CompleteAttempt(context.Background(), attempt.Attempt.ID, "intruder"); !errors.Is(err, domain.ErrNotAttemptOwner) {
		t.Fatalf("expected ErrNotAttemptOwner, got %v", err)
	}
}

func TestGetAttemptLimitReportsExhaustionWithoutError(t *testing.T) {
	store := newStubStore()
	quiz := seedFixedQuiz(store)
	quiz.MaxAttemptsPerUser = intptr(2)
	quiz.AttemptResetPeriod = domain.ResetDaily
	store.priorCount = 2
	svc := newTestService(store)

	info, err := svc.GetAttemptLimit(context.Background(), "u1", "quiz-1", false, testClock())
	if err != nil {
		t.Fatalf("preview must not fail on an exhausted quota: %v", err)
	}
	if info == nil || info.Used != 2 || info.Max != 2 || info.RemainingBeforeStart != 0 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.ResetAt == nil {
		t.Fatal("daily quota preview needs a reset instant")
	}
	// The exhausted payload carries the same window fields as an allowed one.
	wantStart := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	if info.WindowStart == nil || !info.WindowStart.Equal(wantStart) {
		t.Fatalf("window start = %v, want %s", info.WindowStart, wantStart)
	}
}

func TestGetAttemptLimitUnlimited(t *testing.T) {
	store := newStubStore()
	seedFixedQuiz(store)
	svc := newTestService(store)

	info, err := svc.GetAttemptLimit(context.Background(), "u1", "quiz-1", false, testClock())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if info != nil {
		t.Fatalf("unlimited quiz should report nil, got %+v", info)
	}
}
