// Package client implements the client-side half of engagement consistency:
// a local state cache plus a coordinator that applies tentative updates
// before the authoritative call resolves, reconciles authoritative results
// into the cache, and rolls the cache back exactly when a call fails.
package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ripplefeed/ripple/internal/entities"
)

// Backend is the authoritative service boundary the coordinator calls. The
// request/response boundary is the only suspension point of a mutation.
type Backend interface {
	RecordLike(ctx context.Context, caller entities.Caller, targetType entities.TargetType, targetID int64) (int, error)
	CreateComment(ctx context.Context, caller entities.Caller, postID int64, content string, parentID *int64) (entities.Comment, error)
}

// State is a mutation's position in its lifecycle.
type State int

const (
	StatePending State = iota
	StateSucceeded
	StateFailed
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Outcome carries the authoritative response values of a settled mutation.
type Outcome struct {
	LikesCount int
	Comment    *entities.Comment
}

// Mutation tracks one in-flight optimistic update. Mutations on the same
// target are tracked and settled independently; nothing is merged.
type Mutation struct {
	ID uuid.UUID

	mu          sync.Mutex
	coord       *Coordinator
	state       State
	restore     func() // captured pre-mutation snapshot of touched state
	apply       func(Outcome)
	invalidates []Projection
}

// State returns the mutation's current state
func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reconcile replaces the tentative fields with the authoritative response
// values. Reconciling an already-succeeded mutation re-applies the same
// values and yields the same final state; reconciling a failed or abandoned
// mutation is a no-op.
func (m *Mutation) Reconcile(out Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StatePending, StateSucceeded:
	default:
		return
	}

	first := m.state == StatePending
	m.state = StateSucceeded
	m.restore = nil
	if m.apply != nil {
		m.apply(out)
	}
	if first {
		m.settle()
	}
}

// Fail restores the exact pre-mutation snapshot and surfaces err unchanged,
// preserving its kind for the caller. A second Fail (or a Fail after
// Reconcile) does not roll back again.
func (m *Mutation) Fail(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StatePending {
		return err
	}

	m.state = StateFailed
	if m.restore != nil {
		m.restore()
		m.restore = nil
	}
	m.settle()
	return err
}

// Abandon releases a pending mutation without applying or rolling back,
// for when the owning context is torn down before the authoritative call
// settles. The snapshot is dropped so it cannot leak; the dependent
// projections are still invalidated so the next fetch reconverges.
func (m *Mutation) Abandon() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StatePending {
		return
	}
	m.state = StateAbandoned
	m.restore = nil
	m.settle()
}

// settle marks dependent projections stale and forgets the mutation.
// Called with m.mu held, exactly once per mutation.
func (m *Mutation) settle() {
	m.coord.cache.markStale(m.invalidates)
	m.coord.forget(m.ID)
}

// Coordinator issues optimistic mutations against a local cache and settles
// them with authoritative results from the backend.
type Coordinator struct {
	backend Backend
	cache   *Cache
	logger  *slog.Logger

	mu         sync.Mutex
	pending    map[uuid.UUID]*Mutation
	nextTempID int64
}

// NewCoordinator creates a coordinator over a backend and a client cache
func NewCoordinator(backend Backend, cache *Cache, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		backend: backend,
		cache:   cache,
		logger:  logger.With("component", "client.Coordinator"),
		pending: make(map[uuid.UUID]*Mutation),
	}
}

// Pending returns the number of unsettled mutations
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coordinator) track(m *Mutation) *Mutation {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[m.ID] = m
	return m
}

func (c *Coordinator) forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// BeginLikePost snapshots and tentatively increments a cached post's counter
func (c *Coordinator) BeginLikePost(postID int64) *Mutation {
	cache := c.cache
	cache.mu.Lock()
	prev, had := cache.posts[postID]
	if had {
		p := cache.posts[postID]
		p.LikesCount++
		cache.posts[postID] = p
	}
	cache.mu.Unlock()

	return c.track(&Mutation{
		ID:    uuid.New(),
		coord: c,
		state: StatePending,
		restore: func() {
			cache.mu.Lock()
			if had {
				cache.posts[postID] = prev
			}
			cache.mu.Unlock()
		},
		apply: func(out Outcome) {
			cache.mu.Lock()
			if p, ok := cache.posts[postID]; ok {
				p.LikesCount = out.LikesCount
				cache.posts[postID] = p
			}
			cache.mu.Unlock()
		},
		invalidates: []Projection{PostListProjection(), PostProjection(postID), LeaderboardProjection()},
	})
}

// BeginLikeComment snapshots and tentatively increments a cached comment's
// counter within its post's comment collection
func (c *Coordinator) BeginLikeComment(postID, commentID int64) *Mutation {
	cache := c.cache
	cache.mu.Lock()
	prev := append([]entities.Comment(nil), cache.comments[postID]...)
	for i := range cache.comments[postID] {
		if cache.comments[postID][i].ID == commentID {
			cache.comments[postID][i].LikesCount++
			break
		}
	}
	cache.mu.Unlock()

	return c.track(&Mutation{
		ID:    uuid.New(),
		coord: c,
		state: StatePending,
		restore: func() {
			cache.mu.Lock()
			cache.comments[postID] = prev
			cache.mu.Unlock()
		},
		apply: func(out Outcome) {
			cache.mu.Lock()
			for i := range cache.comments[postID] {
				if cache.comments[postID][i].ID == commentID {
					cache.comments[postID][i].LikesCount = out.LikesCount
					break
				}
			}
			cache.mu.Unlock()
		},
		invalidates: []Projection{PostProjection(postID), LeaderboardProjection()},
	})
}

// BeginComment snapshots the post's comment collection and tentatively
// appends a placeholder comment with a temporary negative id
func (c *Coordinator) BeginComment(author entities.User, postID int64, content string, parentID *int64) *Mutation {
	c.mu.Lock()
	c.nextTempID--
	tempID := c.nextTempID
	c.mu.Unlock()

	cache := c.cache
	cache.mu.Lock()
	prev := append([]entities.Comment(nil), cache.comments[postID]...)
	cache.comments[postID] = append(cache.comments[postID], entities.Comment{
		ID:       tempID,
		PostID:   postID,
		Author:   author,
		ParentID: parentID,
		Content:  content,
	})
	cache.mu.Unlock()

	return c.track(&Mutation{
		ID:    uuid.New(),
		coord: c,
		state: StatePending,
		restore: func() {
			cache.mu.Lock()
			cache.comments[postID] = prev
			cache.mu.Unlock()
		},
		apply: func(out Outcome) {
			if out.Comment == nil {
				return
			}
			cache.mu.Lock()
			for i := range cache.comments[postID] {
				if cache.comments[postID][i].ID == tempID {
					cache.comments[postID][i] = *out.Comment
					break
				}
			}
			cache.mu.Unlock()
		},
		invalidates: []Projection{PostProjection(postID)},
	})
}

// LikePost optimistically likes a post and settles with the backend result
func (c *Coordinator) LikePost(ctx context.Context, caller entities.Caller, postID int64) (int, error) {
	m := c.BeginLikePost(postID)
	count, err := c.backend.RecordLike(ctx, caller, entities.TargetPost, postID)
	if err != nil {
		c.logger.Debug("like rolled back", "post_id", postID, "error", err)
		return 0, m.Fail(err)
	}
	m.Reconcile(Outcome{LikesCount: count})
	return count, nil
}

// LikeComment optimistically likes a comment and settles with the backend
// result
func (c *Coordinator) LikeComment(ctx context.Context, caller entities.Caller, postID, commentID int64) (int, error) {
	m := c.BeginLikeComment(postID, commentID)
	count, err := c.backend.RecordLike(ctx, caller, entities.TargetComment, commentID)
	if err != nil {
		c.logger.Debug("comment like rolled back", "comment_id", commentID, "error", err)
		return 0, m.Fail(err)
	}
	m.Reconcile(Outcome{LikesCount: count})
	return count, nil
}

// AddComment optimistically appends a comment and settles with the backend
// result
func (c *Coordinator) AddComment(ctx context.Context, caller entities.Caller, postID int64, content string, parentID *int64) (entities.Comment, error) {
	m := c.BeginComment(caller.User, postID, content, parentID)
	comment, err := c.backend.CreateComment(ctx, caller, postID, content, parentID)
	if err != nil {
		c.logger.Debug("comment rolled back", "post_id", postID, "error", err)
		return entities.Comment{}, m.Fail(err)
	}
	m.Reconcile(Outcome{Comment: &comment})
	return comment, nil
}
