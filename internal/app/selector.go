package app

import (
	"context"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"trivia-attempt-service/internal/domain"
	"trivia-attempt-service/internal/shuffle"
)

// QuestionSource loads candidate questions for TOPIC_RANDOM selection and
// full question data for grading and post-completion review.
type QuestionSource interface {
	QuestionsByTopics(ctx context.Context, topicIDs []string, difficulty string) ([]domain.Question, error)
	QuestionByID(ctx context.Context, id string) (*domain.Question, error)
	QuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error)
}

// TopicResolver expands a topic into itself plus all descendants.
type TopicResolver interface {
	IDsWithDescendants(ctx context.Context, topicID string) ([]string, error)
}

// selectQuestionIDs produces the frozen ordered question-ID list for a new
// attempt. The list is chosen once here and never recomputed for the
// attempt's lifetime.
func (s *AttemptService) selectQuestionIDs(ctx context.Context, quiz *domain.Quiz, rnd *rand.Rand) ([]string, error) {
	var selected []string

	switch quiz.SelectionMode {
	case domain.SelectionFixed:
		selected = poolQuestionIDs(quiz.Pool)

	case domain.SelectionTopicRandom:
		// Candidate pools for independent topic configs are fetched
		// concurrently; results keep config order.
		perConfig := make([][]string, len(quiz.TopicConfigs))
		g, gctx := errgroup.WithContext(ctx)
		for i, cfg := range quiz.TopicConfigs {
			i, cfg := i, cfg
			g.Go(func() error {
				topicIDs, err := s.topics.IDsWithDescendants(gctx, cfg.TopicID)
				if err != nil {
					return err
				}
				candidates, err := s.questions.QuestionsByTopics(gctx, topicIDs, cfg.Difficulty)
				if err != nil {
					return err
				}
				ids := make([]string, len(candidates))
				for j, q := range candidates {
					ids[j] = q.ID
				}
				perConfig[i] = ids
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for i, cfg := range quiz.TopicConfigs {
			// Fewer candidates than requested is a partial fill, not an error.
			selected = append(selected, shuffle.Pick(rnd, perConfig[i], cfg.QuestionCount)...)
		}

	case domain.SelectionPoolRandom:
		pool := poolQuestionIDs(quiz.Pool)
		n := len(pool)
		if quiz.QuestionCount != nil && *quiz.QuestionCount > 0 {
			n = *quiz.QuestionCount
		}
		selected = shuffle.Pick(rnd, pool, n)
	}

	if quiz.RandomizeQuestionOrder {
		shuffle.Slice(rnd, selected)
	}

	if len(selected) == 0 {
		return nil, domain.ErrNoQuestionsAvailable
	}
	return selected, nil
}

// poolQuestionIDs returns the pool's question IDs in configured display order.
func poolQuestionIDs(pool []*domain.QuizQuestionPool) []string {
	entries := make([]*domain.QuizQuestionPool, len(pool))
	copy(entries, pool)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.QuestionID)
	}
	return ids
}
