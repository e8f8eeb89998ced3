// Package topics resolves a topic to itself plus all of its descendants in
// the topic hierarchy. The hierarchy is a parent-pointer table; descendants
// are computed by an iterative walk so a corrupted cycle cannot recurse
// forever, and the computed map is cached with a TTL because the hierarchy
// changes rarely but is read on every TOPIC_RANDOM attempt start.
package topics

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-attempt-service/internal/domain"
)

// TopicSource loads the full topic table.
type TopicSource interface {
	Topics(ctx context.Context) ([]domain.Topic, error)
}

// Resolver caches the descendants map and answers lookups from it.
type Resolver struct {
	source TopicSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu          sync.RWMutex
	descendants map[string][]string
	expiresAt   time.Time
}

func NewResolver(source TopicSource, ttl time.Duration) *Resolver {
	return &Resolver{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// IDsWithDescendants returns topicID followed by every descendant topic ID.
// Unknown topics resolve to just themselves; selection treats a topic with no
// matching questions as a partial fill, not an error.
func (r *Resolver) IDsWithDescendants(ctx context.Context, topicID string) ([]string, error) {
	m, err := r.descendantsMap(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{topicID}, m[topicID]...), nil
}

// Invalidate drops the cached hierarchy. Call after topic mutations.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.descendants = nil
	r.expiresAt = time.Time{}
	r.mu.Unlock()
}

func (r *Resolver) descendantsMap(ctx context.Context) (map[string][]string, error) {
	now := r.clock()

	r.mu.RLock()
	if r.descendants != nil && r.expiresAt.After(now) {
		m := r.descendants
		r.mu.RUnlock()
		return m, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("topics", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.descendants != nil && r.expiresAt.After(now) {
			m := r.descendants
			r.mu.RUnlock()
			return m, nil
		}
		r.mu.RUnlock()

		topics, err := r.source.Topics(ctx)
		if err != nil {
			return nil, err
		}
		m := buildDescendants(topics)

		r.mu.Lock()
		r.descendants = m
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string][]string), nil
}

// buildDescendants computes topicID -> all descendant IDs with a BFS per
// root over the child adjacency list. A visited set guards against cycles.
func buildDescendants(topics []domain.Topic) map[string][]string {
	children := make(map[string][]string)
	for _, t := range topics {
		if t.ParentID != nil {
			children[*t.ParentID] = append(children[*t.ParentID], t.ID)
		}
	}

	descendants := make(map[string][]string, len(topics))
	for _, t := range topics {
		visited := map[string]bool{t.ID: true}
		var all []string
		queue := append([]string(nil), children[t.ID]...)
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if visited[id] {
				continue
			}
			visited[id] = true
			all = append(all, id)
			queue = append(queue, children[id]...)
		}
		descendants[t.ID] = all
	}
	return descendants
}

func (r *Resolver) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread refreshes
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
