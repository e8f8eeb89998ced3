package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-attempt-service/internal/domain"
)

// StandingsSource aggregates completed, non-practice attempt history into
// ordered standings: points descending, then average response time ascending,
// then user ID for a stable total order. Rows arrive unranked; the service
// assigns ranks.
type StandingsSource interface {
	// GlobalStandings aggregates across all quizzes. A nil since means all-time.
	GlobalStandings(ctx context.Context, since *time.Time, limit int) ([]domain.LeaderboardEntry, error)
	// TopicStandings ranks users by correct answers recorded on questions of
	// any of the given topics, regardless of which quiz served them.
	TopicStandings(ctx context.Context, topicIDs []string, since *time.Time, limit int) ([]domain.LeaderboardEntry, error)
}

// StandingsCache is an optional read-through cache for computed standings.
// A miss is (nil, false, nil).
type StandingsCache interface {
	Get(ctx context.Context, key string) ([]domain.LeaderboardEntry, bool, error)
	Set(ctx context.Context, key string, entries []domain.LeaderboardEntry) error
}

// LeaderboardSnapshot is one computed board, pushed to watchers and returned
// by queries.
type LeaderboardSnapshot struct {
	TopicID   string                    `json:"topicId,omitempty"`
	Period    domain.LeaderboardPeriod  `json:"period"`
	Entries   []domain.LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// LeaderboardService computes leaderboards at read time from attempt history.
// Nothing ranked is ever persisted, so a board is always consistent with the
// attempts that exist right now. Concurrent identical queries are collapsed
// with singleflight, and watched boards are recomputed on an interval and
// broadcast to subscribers.
type LeaderboardService struct {
	source  StandingsSource
	cache   StandingsCache
	topics  TopicResolver
	limit   int
	refresh time.Duration
	now     func() time.Time
	sf      singleflight.Group

	mu      sync.Mutex
	watched map[string]*board
}

// board tracks the subscribers of one (topic, period) key.
type board struct {
	topicID     string
	period      domain.LeaderboardPeriod
	subscribers map[chan LeaderboardSnapshot]struct{}
}

const defaultLeaderboardLimit = 50

func NewLeaderboardService(source StandingsSource, cache StandingsCache, topics TopicResolver, refresh time.Duration) *LeaderboardService {
	if refresh <= 0 {
		refresh = 10 * time.Second
	}
	return &LeaderboardService{
		source:  source,
		cache:   cache,
		topics:  topics,
		limit:   defaultLeaderboardLimit,
		refresh: refresh,
		now:     time.Now,
		watched: make(map[string]*board),
	}
}

// Global returns the ranked cross-quiz leaderboard for the period.
func (s *LeaderboardService) Global(ctx context.Context, period domain.LeaderboardPeriod, limit int) (*LeaderboardSnapshot, error) {
	return s.snapshot(ctx, "", period, limit, true)
}

// Topic returns the ranked leaderboard restricted to quizzes whose topic
// configuration includes topicID or any of its descendants.
func (s *LeaderboardService) Topic(ctx context.Context, topicID string, period domain.LeaderboardPeriod, limit int) (*LeaderboardSnapshot, error) {
	return s.snapshot(ctx, topicID, period, limit, true)
}

func (s *LeaderboardService) snapshot(ctx context.Context, topicID string, period domain.LeaderboardPeriod, limit int, useCache bool) (*LeaderboardSnapshot, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	key := boardKey(topicID, period)

	// Boards are always computed and cached at the service cap; the caller's
	// limit is applied on the way out. A small-limit read must never decide
	// what later readers of the same cache key see.
	result, err, _ := s.sf.Do(fmt.Sprintf("%s|%t", key, useCache), func() (interface{}, error) {
		if useCache && s.cache != nil {
			if entries, ok, err := s.cache.Get(ctx, key); err != nil {
				log.Printf("leaderboard cache read failed for %s: %v", key, err)
			} else if ok {
				return s.ranked(topicID, period, entries), nil
			}
		}

		entries, err := s.compute(ctx, topicID, period, s.limit)
		if err != nil {
			return nil, err
		}
		if useCache && s.cache != nil {
			if err := s.cache.Set(ctx, key, entries); err != nil {
				log.Printf("leaderboard cache write failed for %s: %v", key, err)
			}
		}
		return s.ranked(topicID, period, entries), nil
	})
	if err != nil {
		return nil, err
	}
	snap := result.(*LeaderboardSnapshot)
	if len(snap.Entries) > limit {
		trimmed := *snap
		trimmed.Entries = snap.Entries[:limit]
		return &trimmed, nil
	}
	return snap, nil
}

func (s *LeaderboardService) compute(ctx context.Context, topicID string, period domain.LeaderboardPeriod, limit int) ([]domain.LeaderboardEntry, error) {
	since := periodWindowStart(period, s.now())
	if topicID == "" {
		return s.source.GlobalStandings(ctx, since, limit)
	}
	topicIDs, err := s.topics.IDsWithDescendants(ctx, topicID)
	if err != nil {
		return nil, err
	}
	return s.source.TopicStandings(ctx, topicIDs, since, limit)
}

// ranked assigns dense positional ranks: the source's total order makes
// rank = position + 1 deterministic across recomputations.
func (s *LeaderboardService) ranked(topicID string, period domain.LeaderboardPeriod, entries []domain.LeaderboardEntry) *LeaderboardSnapshot {
	out := make([]domain.LeaderboardEntry, len(entries))
	copy(out, entries)
	for i := range out {
		out[i].Rank = i + 1
	}
	return &LeaderboardSnapshot{
		TopicID:   topicID,
		Period:    period,
		Entries:   out,
		UpdatedAt: s.now().UTC(),
	}
}

// Subscribe registers a watcher for a board. The current snapshot is sent
// immediately; later snapshots arrive as the refresher recomputes the board.
// The caller must invoke cancel to release the subscription.
func (s *LeaderboardService) Subscribe(ctx context.Context, topicID string, period domain.LeaderboardPeriod) (<-chan LeaderboardSnapshot, func(), error) {
	initial, err := s.snapshot(ctx, topicID, period, s.limit, true)
	if err != nil {
		return nil, nil, err
	}

	key := boardKey(topicID, period)
	ch := make(chan LeaderboardSnapshot, 8)

	s.mu.Lock()
	b, ok := s.watched[key]
	if !ok {
		b = &board{
			topicID:     topicID,
			period:      period,
			subscribers: make(map[chan LeaderboardSnapshot]struct{}),
		}
		s.watched[key] = b
	}
	b.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- *initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		if len(b.subscribers) == 0 {
			delete(s.watched, key)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// Run drives the periodic recomputation of watched boards until ctx is
// cancelled. Typically started once at process boot.
func (s *LeaderboardService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshWatched(ctx)
		}
	}
}

func (s *LeaderboardService) refreshWatched(ctx context.Context) {
	s.mu.Lock()
	boards := make([]*board, 0, len(s.watched))
	for _, b := range s.watched {
		boards = append(boards, b)
	}
	s.mu.Unlock()

	for _, b := range boards {
		// Bypass the cache so watchers see fresh standings, then broadcast.
		snap, err := s.snapshot(ctx, b.topicID, b.period, s.limit, false)
		if err != nil {
			log.Printf("leaderboard refresh failed for %s: %v", boardKey(b.topicID, b.period), err)
			continue
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, boardKey(b.topicID, b.period), snap.Entries); err != nil {
				log.Printf("leaderboard cache write failed for %s: %v", boardKey(b.topicID, b.period), err)
			}
		}
		s.broadcast(b, *snap)
	}
}

func (s *LeaderboardService) broadcast(b *board, snap LeaderboardSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow watchers get the newest snapshot, not a backlog.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func boardKey(topicID string, period domain.LeaderboardPeriod) string {
	if topicID == "" {
		return fmt.Sprintf("leaderboard:global:%s", period)
	}
	return fmt.Sprintf("leaderboard:topic:%s:%s", topicID, period)
}
