package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/ripplefeed/ripple/internal/entities"
	"github.com/ripplefeed/ripple/internal/metrics"
	"github.com/ripplefeed/ripple/internal/thread"
)

type createPostRequest struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

type createCommentRequest struct {
	Content  string `json:"content"`
	Post     int64  `json:"post"`
	Parent   *int64 `json:"parent"`
	Username string `json:"username"`
}

type likeRequest struct {
	Type     string `json:"type"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type likeResponse struct {
	LikesCount int `json:"likes_count"`
}

// postDetail is a post with its pre-assembled comment tree, matching the
// nested wire shape clients render directly.
type postDetail struct {
	entities.Post
	Comments []*thread.Node `json:"comments"`
}

type leaderboardRow struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, errors.Join(entities.ErrValidation, err))
		return
	}

	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	comments, err := s.store.ListComments(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	tree, err := thread.Assemble(comments)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, postDetail{Post: post, Comments: tree})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Join(entities.ErrValidation, err))
		return
	}

	caller, err := s.VerifyCaller(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, err)
		return
	}

	post, err := s.store.CreatePost(r.Context(), caller, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	metrics.PostsCreated.Inc()
	s.writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Join(entities.ErrValidation, err))
		return
	}

	caller, err := s.VerifyCaller(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, err)
		return
	}

	comment, err := s.store.CreateComment(r.Context(), caller, req.Post, req.Content, req.Parent)
	if err != nil {
		s.writeError(w, err)
		return
	}

	metrics.CommentsCreated.Inc()
	s.writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	var req likeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Join(entities.ErrValidation, err))
		return
	}

	caller, err := s.VerifyCaller(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, err)
		return
	}

	count, err := s.likes.Apply(r.Context(), caller, entities.TargetType(req.Type), req.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, likeResponse{LikesCount: count})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.board.Compute(r.Context(), time.Now())
	if err != nil {
		s.writeError(w, err)
		return
	}

	rows := lo.Map(entries, func(e entities.LeaderboardEntry, _ int) leaderboardRow {
		return leaderboardRow{ID: e.User.ID, Username: e.User.Username, Score: e.Score}
	})
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DB().PingContext(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps error kinds to HTTP statuses. Integrity violations are
// server faults: logged loudly, surfaced as 500, never patched over.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entities.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, entities.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entities.ErrIntegrity):
		s.logger.LogIntegrityViolation("request handling", err)
	default:
		s.logger.Error("request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
