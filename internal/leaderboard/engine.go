// Package leaderboard computes time-windowed engagement rankings from raw
// like events. Rankings are recomputed from the event log on read, the same
// way aggregates are rebuilt from raw events elsewhere in the system, so
// they can never drift from the store.
package leaderboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ripplefeed/ripple/internal/config"
	"github.com/ripplefeed/ripple/internal/entities"
)

// Source supplies like events joined with the liked target's author.
type Source interface {
	ListReceivedLikes(ctx context.Context, since time.Time) ([]entities.ReceivedLike, error)
}

// Engine computes ranked scores over a trailing window. Score accrues to the
// author of the liked target, weighted by target type; entries sort by score
// descending with ties broken by ascending user id, so identical inputs
// always produce identical output.
type Engine struct {
	source Source

	window        time.Duration
	postWeight    int
	commentWeight int
	limit         int

	// optional cache, invalidated on every like write; keyed by the second
	// the window was anchored to so a stale window is never served.
	cacheEnabled bool
	mu           sync.Mutex
	cachedAt     time.Time
	cached       []entities.LeaderboardEntry
}

// New creates a leaderboard engine from config
func New(source Source, cfg *config.Leaderboard) *Engine {
	return &Engine{
		source:        source,
		window:        cfg.Window(),
		postWeight:    cfg.PostLikeWeight,
		commentWeight: cfg.CommentLikeWeight,
		limit:         cfg.Limit,
		cacheEnabled:  cfg.CacheEnabled,
	}
}

// Window returns the trailing scoring window
func (e *Engine) Window() time.Duration {
	return e.window
}

// Compute returns the ranking for the window ending at now
func (e *Engine) Compute(ctx context.Context, now time.Time) ([]entities.LeaderboardEntry, error) {
	anchor := now.UTC().Truncate(time.Second)

	if e.cacheEnabled {
		e.mu.Lock()
		if e.cached != nil && e.cachedAt.Equal(anchor) {
			entries := e.cached
			e.mu.Unlock()
			return entries, nil
		}
		e.mu.Unlock()
	}

	likes, err := e.source.ListReceivedLikes(ctx, now.Add(-e.window))
	if err != nil {
		return nil, err
	}

	entries := e.Rank(likes)

	if e.cacheEnabled {
		e.mu.Lock()
		e.cachedAt = anchor
		e.cached = entries
		e.mu.Unlock()
	}

	return entries, nil
}

// Rank scores a set of received likes deterministically. Only authors with a
// positive score appear.
func (e *Engine) Rank(likes []entities.ReceivedLike) []entities.LeaderboardEntry {
	scores := make(map[int64]*entities.LeaderboardEntry)
	for _, like := range likes {
		weight := e.postWeight
		if like.TargetType == entities.TargetComment {
			weight = e.commentWeight
		}
		if weight == 0 {
			continue
		}

		entry, ok := scores[like.Author.ID]
		if !ok {
			entry = &entities.LeaderboardEntry{User: like.Author}
			scores[like.Author.ID] = entry
		}
		entry.Score += weight
	}

	entries := make([]entities.LeaderboardEntry, 0, len(scores))
	for _, entry := range scores {
		if entry.Score > 0 {
			entries = append(entries, *entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].User.ID < entries[j].User.ID
	})

	if e.limit > 0 && len(entries) > e.limit {
		entries = entries[:e.limit]
	}
	return entries
}

// Invalidate drops any cached ranking. Wired as a like-service hook so a
// cached leaderboard never outlives a like write.
func (e *Engine) Invalidate() {
	if !e.cacheEnabled {
		return
	}
	e.mu.Lock()
	e.cached = nil
	e.cachedAt = time.Time{}
	e.mu.Unlock()
}
