package client

import (
	"sync"

	"github.com/ripplefeed/ripple/internal/entities"
)

// ProjectionKind names a read-side projection a client keeps cached.
type ProjectionKind string

const (
	KindPostList    ProjectionKind = "posts"
	KindPost        ProjectionKind = "post"
	KindLeaderboard ProjectionKind = "leaderboard"
)

// Projection identifies one cached projection. PostID is set only for
// single-post projections.
type Projection struct {
	Kind   ProjectionKind
	PostID int64
}

// PostListProjection identifies the post feed projection
func PostListProjection() Projection {
	return Projection{Kind: KindPostList}
}

// PostProjection identifies the projection of a single post and its thread
func PostProjection(postID int64) Projection {
	return Projection{Kind: KindPost, PostID: postID}
}

// LeaderboardProjection identifies the leaderboard projection
func LeaderboardProjection() Projection {
	return Projection{Kind: KindLeaderboard}
}

// Cache is a client-local mirror of fetched state. It is what optimistic
// mutations tentatively update and what rollback restores; it never affects
// any other client's view.
type Cache struct {
	mu       sync.Mutex
	posts    map[int64]entities.Post
	order    []int64
	comments map[int64][]entities.Comment
	stale    map[Projection]bool
}

// NewCache creates an empty client cache
func NewCache() *Cache {
	return &Cache{
		posts:    make(map[int64]entities.Post),
		comments: make(map[int64][]entities.Comment),
		stale:    make(map[Projection]bool),
	}
}

// SetPosts replaces the cached post feed with a freshly fetched one
func (c *Cache) SetPosts(posts []entities.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = c.order[:0]
	for _, p := range posts {
		c.posts[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	delete(c.stale, PostListProjection())
}

// SetPost replaces a single cached post
func (c *Cache) SetPost(post entities.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.posts[post.ID] = post
	delete(c.stale, PostProjection(post.ID))
}

// SetComments replaces the cached flat comment collection for a post
func (c *Cache) SetComments(postID int64, comments []entities.Comment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.comments[postID] = append([]entities.Comment(nil), comments...)
	delete(c.stale, PostProjection(postID))
}

// Post returns the cached post, if present
func (c *Cache) Post(id int64) (entities.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.posts[id]
	return p, ok
}

// Posts returns the cached feed in fetch order
func (c *Cache) Posts() []entities.Post {
	c.mu.Lock()
	defer c.mu.Unlock()

	posts := make([]entities.Post, 0, len(c.order))
	for _, id := range c.order {
		if p, ok := c.posts[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts
}

// Comments returns a copy of the cached comments for a post
func (c *Cache) Comments(postID int64) []entities.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]entities.Comment(nil), c.comments[postID]...)
}

// IsStale reports whether a projection has been invalidated since it was
// last set and should be re-fetched.
func (c *Cache) IsStale(p Projection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stale[p]
}

func (c *Cache) markStale(projections []Projection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range projections {
		c.stale[p] = true
	}
}
