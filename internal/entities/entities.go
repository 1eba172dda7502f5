package entities

import "time"

// User is a registered member of the feed. Users are immutable once created;
// the username doubles as the display/avatar seed on the client.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Post is a top-level feed item. LikesCount is denormalized and must always
// equal the number of LikeEvents targeting the post.
type Post struct {
	ID         int64     `json:"id"`
	Author     User      `json:"author"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	LikesCount int       `json:"likes_count"`
}

// Comment is a reply on a post. A nil ParentID marks a root comment;
// otherwise ParentID references an older comment on the same post, so the
// comments of a post always form a forest.
//
// PostID and ParentID are accepted on writes but never serialized on reads;
// the read shape nests replies instead (see the thread package).
type Comment struct {
	ID         int64     `json:"id"`
	PostID     int64     `json:"-"`
	Author     User      `json:"author"`
	ParentID   *int64    `json:"-"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	LikesCount int       `json:"likes_count"`
}

// TargetType identifies what kind of entity a like applies to.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// Valid reports whether tt is one of the known target types.
func (tt TargetType) Valid() bool {
	return tt == TargetPost || tt == TargetComment
}

// LikeEvent is an append-only record of a single like action. Events are
// never mutated or deleted, and no uniqueness is imposed: the same actor may
// like the same target repeatedly, each event incrementing the counter once.
type LikeEvent struct {
	ID         int64
	TargetType TargetType
	TargetID   int64
	Actor      User
	CreatedAt  time.Time
}

// ReceivedLike is a like event joined with the author of the liked target.
// It is the raw input of leaderboard scoring: the score accrues to the
// target's author, not to the actor who liked it.
type ReceivedLike struct {
	Author     User
	TargetType TargetType
	CreatedAt  time.Time
}

// LeaderboardEntry is a derived ranking row, never stored.
type LeaderboardEntry struct {
	User  User
	Score int
}

// Caller is the identity supplied with every mutating call. Verification is
// a pluggable policy applied before dispatch; the core trusts the resolved
// user as given.
type Caller struct {
	User User
}
