package store

import (
	"context"
	"fmt"
)

// Schema migrations, applied in order on startup. Each statement is
// idempotent so re-running on an existing database is safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id INTEGER NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		likes_count INTEGER NOT NULL DEFAULT 0 CHECK (likes_count >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL REFERENCES posts(id),
		author_id INTEGER NOT NULL REFERENCES users(id),
		parent_id INTEGER REFERENCES comments(id),
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		likes_count INTEGER NOT NULL DEFAULT 0 CHECK (likes_count >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS like_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_type TEXT NOT NULL CHECK (target_type IN ('post', 'comment')),
		target_id INTEGER NOT NULL,
		actor_id INTEGER NOT NULL REFERENCES users(id),
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_like_events_target ON like_events(target_type, target_id)`,
	`CREATE INDEX IF NOT EXISTS idx_like_events_created_at ON like_events(created_at)`,
}

// runMigrations applies the schema migrations
func (s *Store) runMigrations(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
