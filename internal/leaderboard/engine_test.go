package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/ripplefeed/ripple/internal/config"
	"github.com/ripplefeed/ripple/internal/entities"
)

type fakeSource struct {
	likes []entities.ReceivedLike
	calls int
	since time.Time
}

func (f *fakeSource) ListReceivedLikes(_ context.Context, since time.Time) ([]entities.ReceivedLike, error) {
	f.calls++
	f.since = since
	var out []entities.ReceivedLike
	for _, l := range f.likes {
		if !l.CreatedAt.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

func like(userID int64, username string, tt entities.TargetType, at time.Time) entities.ReceivedLike {
	return entities.ReceivedLike{
		Author:     entities.User{ID: userID, Username: username},
		TargetType: tt,
		CreatedAt:  at,
	}
}

func testConfig() *config.Leaderboard {
	return &config.Leaderboard{
		WindowHours:       24,
		PostLikeWeight:    1,
		CommentLikeWeight: 1,
	}
}

func TestRank(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		cfg   *config.Leaderboard
		likes []entities.ReceivedLike
		want  []entities.LeaderboardEntry
	}{
		{
			name: "scores accrue per author",
			cfg:  testConfig(),
			likes: []entities.ReceivedLike{
				like(1, "alice", entities.TargetPost, now),
				like(1, "alice", entities.TargetComment, now),
				like(2, "bob", entities.TargetPost, now),
			},
			want: []entities.LeaderboardEntry{
				{User: entities.User{ID: 1, Username: "alice"}, Score: 2},
				{User: entities.User{ID: 2, Username: "bob"}, Score: 1},
			},
		},
		{
			name: "ties break by ascending user id",
			cfg:  testConfig(),
			likes: []entities.ReceivedLike{
				like(7, "gina", entities.TargetPost, now),
				like(3, "carol", entities.TargetPost, now),
				like(5, "eve", entities.TargetPost, now),
			},
			want: []entities.LeaderboardEntry{
				{User: entities.User{ID: 3, Username: "carol"}, Score: 1},
				{User: entities.User{ID: 5, Username: "eve"}, Score: 1},
				{User: entities.User{ID: 7, Username: "gina"}, Score: 1},
			},
		},
		{
			name: "weights apply per target type",
			cfg: &config.Leaderboard{
				WindowHours:       24,
				PostLikeWeight:    5,
				CommentLikeWeight: 1,
			},
			likes: []entities.ReceivedLike{
				like(1, "alice", entities.TargetComment, now),
				like(1, "alice", entities.TargetComment, now),
				like(2, "bob", entities.TargetPost, now),
			},
			want: []entities.LeaderboardEntry{
				{User: entities.User{ID: 2, Username: "bob"}, Score: 5},
				{User: entities.User{ID: 1, Username: "alice"}, Score: 2},
			},
		},
		{
			name: "zero weight excludes target type entirely",
			cfg: &config.Leaderboard{
				WindowHours:       24,
				PostLikeWeight:    1,
				CommentLikeWeight: 0,
			},
			likes: []entities.ReceivedLike{
				like(1, "alice", entities.TargetComment, now),
			},
			want: nil,
		},
		{
			name: "limit truncates after ordering",
			cfg: &config.Leaderboard{
				WindowHours:       24,
				PostLikeWeight:    1,
				CommentLikeWeight: 1,
				Limit:             2,
			},
			likes: []entities.ReceivedLike{
				like(1, "alice", entities.TargetPost, now),
				like(2, "bob", entities.TargetPost, now),
				like(2, "bob", entities.TargetPost, now),
				like(3, "carol", entities.TargetPost, now),
			},
			want: []entities.LeaderboardEntry{
				{User: entities.User{ID: 2, Username: "bob"}, Score: 2},
				{User: entities.User{ID: 1, Username: "alice"}, Score: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(&fakeSource{}, tt.cfg)
			got := e.Rank(tt.likes)
			if len(got) != len(tt.want) {
				t.Fatalf("Rank() returned %d entries, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Entry %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRankDeterministic(t *testing.T) {
	now := time.Now()
	likes := []entities.ReceivedLike{
		like(4, "dan", entities.TargetPost, now),
		like(2, "bob", entities.TargetComment, now),
		like(4, "dan", entities.TargetComment, now),
		like(1, "alice", entities.TargetPost, now),
		like(2, "bob", entities.TargetPost, now),
	}

	e := New(&fakeSource{}, testConfig())
	first := e.Rank(likes)
	for i := 0; i < 10; i++ {
		again := e.Rank(likes)
		if len(again) != len(first) {
			t.Fatalf("Run %d: size %d, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("Run %d: entry %d = %+v, want %+v", i, j, again[j], first[j])
			}
		}
	}
}

func TestComputeWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	// One like just inside the window, one just outside.
	src := &fakeSource{likes: []entities.ReceivedLike{
		like(1, "alice", entities.TargetPost, now.Add(-window).Add(time.Second)),
		like(2, "bob", entities.TargetPost, now.Add(-window).Add(-time.Second)),
	}}

	e := New(src, testConfig())
	entries, err := e.Compute(context.Background(), now)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if !src.since.Equal(now.Add(-window)) {
		t.Errorf("Source queried since %v, want %v", src.since, now.Add(-window))
	}
	if len(entries) != 1 || entries[0].User.ID != 1 {
		t.Fatalf("Expected only alice inside the window, got %+v", entries)
	}
}

func TestComputeCache(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{likes: []entities.ReceivedLike{
		like(1, "alice", entities.TargetPost, now.Add(-time.Minute)),
	}}

	cfg := testConfig()
	cfg.CacheEnabled = true
	e := New(src, cfg)

	if _, err := e.Compute(context.Background(), now); err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if _, err := e.Compute(context.Background(), now); err != nil {
		t.Fatalf("Compute() second call error = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("Expected 1 source query with warm cache, got %d", src.calls)
	}

	// A different anchor second misses the cache.
	if _, err := e.Compute(context.Background(), now.Add(time.Second)); err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if src.calls != 2 {
		t.Errorf("Expected cache miss on new anchor, got %d queries", src.calls)
	}

	// Invalidation forces a recompute even at the same anchor.
	e.Invalidate()
	if _, err := e.Compute(context.Background(), now.Add(time.Second)); err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if src.calls != 3 {
		t.Errorf("Expected recompute after invalidation, got %d queries", src.calls)
	}
}
