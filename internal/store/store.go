package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ripplefeed/ripple/internal/config"
	"github.com/ripplefeed/ripple/internal/entities"
)

// Store is the authoritative engagement store: users, posts, comments and
// like events. All mutations go through it, and the denormalized likes_count
// counters it maintains always equal the number of like events for the
// target (both sides of a like commit in one transaction).
type Store struct {
	db     *sqlx.DB
	config *config.Storage
	limits config.Limits
}

// New creates a new Store backed by the configured driver
func New(ctx context.Context, cfg *config.Storage, limits config.Limits) (*Store, error) {
	if cfg.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL", cfg.SQLitePath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:     db,
		config: cfg,
		limits: limits,
	}

	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// DB returns the underlying database handle (for diagnostics and tests)
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}

func (s *Store) validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is empty: %w", entities.ErrValidation)
	}
	if s.limits.MaxContentLength > 0 && utf8.RuneCountInString(content) > s.limits.MaxContentLength {
		return fmt.Errorf("content exceeds %d characters: %w", s.limits.MaxContentLength, entities.ErrValidation)
	}
	return nil
}

// ResolveUser returns the user with the given username, creating it if
// necessary. Usernames are the caller-supplied identity for every mutating
// call; verification is an API-layer policy.
func (s *Store) ResolveUser(ctx context.Context, username string) (entities.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return entities.User{}, fmt.Errorf("username is empty: %w", entities.ErrValidation)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username) VALUES (?) ON CONFLICT(username) DO NOTHING`,
		username); err != nil {
		return entities.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	var u entities.User
	if err := s.db.QueryRowxContext(ctx,
		`SELECT id, username FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username); err != nil {
		return entities.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// GetUser returns a user by id
func (s *Store) GetUser(ctx context.Context, id int64) (entities.User, error) {
	var u entities.User
	err := s.db.QueryRowxContext(ctx,
		`SELECT id, username FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.User{}, fmt.Errorf("user %d: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return entities.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// CreatePost creates a post authored by the caller
func (s *Store) CreatePost(ctx context.Context, caller entities.Caller, content string) (entities.Post, error) {
	if err := s.validateContent(content); err != nil {
		return entities.Post{}, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (author_id, content, created_at, likes_count) VALUES (?, ?, ?, 0)`,
		caller.User.ID, content, now)
	if err != nil {
		return entities.Post{}, fmt.Errorf("failed to create post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return entities.Post{}, fmt.Errorf("failed to read post id: %w", err)
	}

	return entities.Post{
		ID:        id,
		Author:    caller.User,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// CreateComment creates a comment on a post. A non-nil parentID must
// reference an existing comment on the same post; parents are therefore
// always strictly older than their replies, which keeps the comment graph a
// forest by construction.
func (s *Store) CreateComment(ctx context.Context, caller entities.Caller, postID int64, content string, parentID *int64) (entities.Comment, error) {
	if err := s.validateContent(content); err != nil {
		return entities.Comment{}, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return entities.Comment{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowxContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Comment{}, fmt.Errorf("post %d: %w", postID, entities.ErrNotFound)
	}
	if err != nil {
		return entities.Comment{}, fmt.Errorf("failed to check post: %w", err)
	}

	if parentID != nil {
		var parentPostID int64
		err = tx.QueryRowxContext(ctx, `SELECT post_id FROM comments WHERE id = ?`, *parentID).Scan(&parentPostID)
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Comment{}, fmt.Errorf("parent comment %d: %w", *parentID, entities.ErrNotFound)
		}
		if err != nil {
			return entities.Comment{}, fmt.Errorf("failed to check parent comment: %w", err)
		}
		if parentPostID != postID {
			return entities.Comment{}, fmt.Errorf("parent comment %d belongs to post %d, not %d: %w",
				*parentID, parentPostID, postID, entities.ErrValidation)
		}
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO comments (post_id, author_id, parent_id, content, created_at, likes_count) VALUES (?, ?, ?, ?, ?, 0)`,
		postID, caller.User.ID, parentID, content, now)
	if err != nil {
		return entities.Comment{}, fmt.Errorf("failed to create comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return entities.Comment{}, fmt.Errorf("failed to read comment id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return entities.Comment{}, fmt.Errorf("failed to commit comment: %w", err)
	}

	return entities.Comment{
		ID:        id,
		PostID:    postID,
		Author:    caller.User,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// RecordLike appends a like event for the target and increments its counter
// by exactly one, in a single transaction, returning the updated counter.
// Concurrent likes on the same target serialize on the row update: both
// events land and both increments apply.
func (s *Store) RecordLike(ctx context.Context, caller entities.Caller, targetType entities.TargetType, targetID int64) (int, error) {
	if !targetType.Valid() {
		return 0, fmt.Errorf("target type %q: %w", targetType, entities.ErrValidation)
	}

	table := "posts"
	if targetType == entities.TargetComment {
		table = "comments"
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET likes_count = likes_count + 1 WHERE id = ?`, table), targetID)
	if err != nil {
		return 0, fmt.Errorf("failed to increment likes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check update: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("%s %d: %w", targetType, targetID, entities.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO like_events (target_type, target_id, actor_id, created_at) VALUES (?, ?, ?, ?)`,
		string(targetType), targetID, caller.User.ID, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("failed to record like event: %w", err)
	}

	var count int
	if err := tx.QueryRowxContext(ctx,
		fmt.Sprintf(`SELECT likes_count FROM %s WHERE id = ?`, table), targetID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to read updated counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit like: %w", err)
	}

	return count, nil
}

type postRow struct {
	ID         int64     `db:"id"`
	AuthorID   int64     `db:"author_id"`
	Username   string    `db:"username"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
	LikesCount int       `db:"likes_count"`
}

func (r postRow) toPost() entities.Post {
	return entities.Post{
		ID:         r.ID,
		Author:     entities.User{ID: r.AuthorID, Username: r.Username},
		Content:    r.Content,
		CreatedAt:  r.CreatedAt,
		LikesCount: r.LikesCount,
	}
}

// GetPost returns a single post by id
func (s *Store) GetPost(ctx context.Context, id int64) (entities.Post, error) {
	var row postRow
	err := s.db.GetContext(ctx, &row, `
		SELECT p.id, p.author_id, u.username, p.content, p.created_at, p.likes_count
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Post{}, fmt.Errorf("post %d: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return entities.Post{}, fmt.Errorf("failed to load post: %w", err)
	}
	return row.toPost(), nil
}

// ListPosts returns all posts newest first, ties broken by ascending id
func (s *Store) ListPosts(ctx context.Context) ([]entities.Post, error) {
	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT p.id, p.author_id, u.username, p.content, p.created_at, p.likes_count
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at DESC, p.id ASC`); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	posts := make([]entities.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.toPost())
	}
	return posts, nil
}

type commentRow struct {
	ID         int64     `db:"id"`
	PostID     int64     `db:"post_id"`
	AuthorID   int64     `db:"author_id"`
	Username   string    `db:"username"`
	ParentID   *int64    `db:"parent_id"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
	LikesCount int       `db:"likes_count"`
}

// ListComments returns the flat comment collection for a post. Ordering is
// left to the thread assembler; the store guarantees only membership.
func (s *Store) ListComments(ctx context.Context, postID int64) ([]entities.Comment, error) {
	var exists int
	err := s.db.QueryRowxContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %d: %w", postID, entities.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check post: %w", err)
	}

	var rows []commentRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT c.id, c.post_id, c.author_id, u.username, c.parent_id, c.content, c.created_at, c.likes_count
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ?`, postID); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	comments := make([]entities.Comment, 0, len(rows))
	for _, r := range rows {
		comments = append(comments, entities.Comment{
			ID:         r.ID,
			PostID:     r.PostID,
			Author:     entities.User{ID: r.AuthorID, Username: r.Username},
			ParentID:   r.ParentID,
			Content:    r.Content,
			CreatedAt:  r.CreatedAt,
			LikesCount: r.LikesCount,
		})
	}
	return comments, nil
}

type receivedLikeRow struct {
	AuthorID   int64     `db:"author_id"`
	Username   string    `db:"username"`
	TargetType string    `db:"target_type"`
	CreatedAt  time.Time `db:"created_at"`
}

// ListReceivedLikes returns like events at or after since, joined with the
// author of the liked target. This is the raw input of leaderboard scoring.
func (s *Store) ListReceivedLikes(ctx context.Context, since time.Time) ([]entities.ReceivedLike, error) {
	var rows []receivedLikeRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id AS author_id, u.username, le.target_type, le.created_at
		FROM like_events le
		JOIN posts p ON p.id = le.target_id
		JOIN users u ON u.id = p.author_id
		WHERE le.target_type = 'post' AND le.created_at >= ?
		UNION ALL
		SELECT u.id AS author_id, u.username, le.target_type, le.created_at
		FROM like_events le
		JOIN comments c ON c.id = le.target_id
		JOIN users u ON u.id = c.author_id
		WHERE le.target_type = 'comment' AND le.created_at >= ?`,
		since.UTC(), since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to list received likes: %w", err)
	}

	likes := make([]entities.ReceivedLike, 0, len(rows))
	for _, r := range rows {
		likes = append(likes, entities.ReceivedLike{
			Author:     entities.User{ID: r.AuthorID, Username: r.Username},
			TargetType: entities.TargetType(r.TargetType),
			CreatedAt:  r.CreatedAt,
		})
	}
	return likes, nil
}

// CountLikeEvents returns the number of like events recorded for a target
func (s *Store) CountLikeEvents(ctx context.Context, targetType entities.TargetType, targetID int64) (int, error) {
	var count int
	if err := s.db.QueryRowxContext(ctx,
		`SELECT COUNT(*) FROM like_events WHERE target_type = ? AND target_id = ?`,
		string(targetType), targetID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count like events: %w", err)
	}
	return count, nil
}
