// Package metrics exposes prometheus counters for engagement writes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_posts_created_total",
		Help: "Number of posts created.",
	})

	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_comments_created_total",
		Help: "Number of comments created.",
	})

	LikesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_likes_recorded_total",
		Help: "Number of like events recorded, by target type.",
	}, []string{"target_type"})

	RequestsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_http_requests_total",
		Help: "Number of HTTP requests handled, by method and status.",
	}, []string{"method", "status"})
)

// Handler returns the prometheus exposition handler
func Handler() http.Handler {
	return promhttp.Handler()
}
