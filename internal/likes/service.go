// Package likes validates like requests and applies them to the engagement
// store.
package likes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ripplefeed/ripple/internal/entities"
	"github.com/ripplefeed/ripple/internal/metrics"
	"github.com/ripplefeed/ripple/internal/store"
)

// Service applies like events. Identity is trusted as supplied; the caller
// has already been resolved by the API layer's verification policy.
type Service struct {
	store  *store.Store
	logger *slog.Logger

	// hooks run after every successfully recorded like, used to invalidate
	// derived projections such as a cached leaderboard.
	hooks []func(entities.TargetType, int64)
}

// NewService creates a new like service
func NewService(st *store.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.With("component", "likes.Service"),
	}
}

// OnRecord registers a hook invoked after every recorded like
func (s *Service) OnRecord(hook func(target entities.TargetType, id int64)) {
	s.hooks = append(s.hooks, hook)
}

// Apply validates and records a like, returning the updated counter so
// callers can reconcile optimistic state.
func (s *Service) Apply(ctx context.Context, caller entities.Caller, targetType entities.TargetType, targetID int64) (int, error) {
	if !targetType.Valid() {
		return 0, fmt.Errorf("target type must be post or comment, got %q: %w", targetType, entities.ErrValidation)
	}

	count, err := s.store.RecordLike(ctx, caller, targetType, targetID)
	if err != nil {
		return 0, err
	}

	metrics.LikesRecorded.WithLabelValues(string(targetType)).Inc()
	s.logger.Debug("like recorded",
		"target_type", targetType,
		"target_id", targetID,
		"actor", caller.User.Username,
		"likes_count", count)

	for _, hook := range s.hooks {
		hook(targetType, targetID)
	}

	return count, nil
}
