// Package api serves the HTTP/JSON boundary over the engagement core.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ripplefeed/ripple/internal/config"
	"github.com/ripplefeed/ripple/internal/entities"
	"github.com/ripplefeed/ripple/internal/leaderboard"
	"github.com/ripplefeed/ripple/internal/likes"
	"github.com/ripplefeed/ripple/internal/metrics"
	"github.com/ripplefeed/ripple/internal/ops"
	"github.com/ripplefeed/ripple/internal/store"
)

// Server is the HTTP API server
type Server struct {
	config *config.Config
	store  *store.Store
	likes  *likes.Service
	board  *leaderboard.Engine
	logger *ops.Logger

	// VerifyCaller resolves the username supplied with a mutating call into
	// a Caller. The default resolves (or creates) the user in the store with
	// no further verification; deployments swap in a real policy here
	// without touching any core contract.
	VerifyCaller func(ctx context.Context, username string) (entities.Caller, error)

	httpServer *http.Server
	listener   net.Listener
}

// New creates a new API server
func New(cfg *config.Config, st *store.Store, likeSvc *likes.Service, board *leaderboard.Engine, logger *ops.Logger) *Server {
	s := &Server{
		config: cfg,
		store:  st,
		likes:  likeSvc,
		board:  board,
		logger: logger.WithComponent("api.Server"),
	}
	s.VerifyCaller = func(ctx context.Context, username string) (entities.Caller, error) {
		user, err := st.ResolveUser(ctx, username)
		if err != nil {
			return entities.Caller{}, err
		}
		return entities.Caller{User: user}, nil
	}
	return s
}

// Router builds the full request handler, including CORS and middleware
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/posts/", s.handleListPosts).Methods(http.MethodGet)
	r.HandleFunc("/posts/", s.handleCreatePost).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id:[0-9]+}/", s.handleGetPost).Methods(http.MethodGet)
	r.HandleFunc("/comments/", s.handleCreateComment).Methods(http.MethodPost)
	r.HandleFunc("/likes/", s.handleLike).Methods(http.MethodPost)
	r.HandleFunc("/leaderboard/", s.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	if s.config.Metrics.Enabled {
		r.Handle(s.config.Metrics.Path, metrics.Handler()).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})

	return c.Handler(s.withRequestLogging(r))
}

// Start starts the HTTP server in the background
func (s *Server) Start() error {
	bindAddr := s.config.Server.Bind
	if bindAddr == "" {
		bindAddr = s.config.Server.Host
	}
	addr := fmt.Sprintf("%s:%d", bindAddr, s.config.Server.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: s.Router()}

	s.logger.Info("API server listening", "addr", addr)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server terminated", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	timeout := time.Duration(s.config.Server.ShutdownTimeoutSec) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.LogRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
		metrics.RequestsHandled.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}
