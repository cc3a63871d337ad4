// Package api is the HTTP surface of the service.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/getreach/internal/a2a"
	"github.com/BerylCAtieno/getreach/internal/checkout"
	"github.com/BerylCAtieno/getreach/internal/metrics"
	"github.com/BerylCAtieno/getreach/internal/relay"
	"github.com/BerylCAtieno/getreach/internal/store"
	"github.com/BerylCAtieno/getreach/internal/tips"
)

// Deps are the collaborators the routes need. Relay, Reports, Hub and Tips
// are required; the rest may be nil.
type Deps struct {
	Relay    *relay.Relay
	Reports  store.Reports
	Hub      store.Hub
	Tips     tips.Store
	Checkout *checkout.Client
	Agent    *a2a.Handler
	Limiter  *RateLimiter
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	WebhookSecret    string
	DefaultProductID string
	// Now is the clock used for webhook timestamps.
	Now func() time.Time
}

type handlers struct {
	Deps
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{Deps: d}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		RequestID(),
		Recovery(d.Logger),
		RequestLogger(d.Logger),
		Metrics(d.Metrics),
	)
	r.NoRoute(func(c *gin.Context) { RespondError(c, http.StatusNotFound, "not found") })
	r.NoMethod(func(c *gin.Context) { RespondError(c, http.StatusMethodNotAllowed, "method not allowed") })

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	limited := []gin.HandlerFunc{}
	if d.Limiter != nil {
		limited = append(limited, d.Limiter.Middleware())
	}

	g := r.Group("/api")
	g.POST("/analyze", append(limited, h.analyze)...)
	g.POST("/score", h.scoreReport)
	g.GET("/reports/latest", h.latestReport)
	g.GET("/reports/:id", h.getReport)
	g.GET("/reports/:id/live", h.liveReport)
	g.POST("/checkout", append(limited, h.createCheckout)...)
	g.GET("/checkout", append(limited, h.createCheckout)...)
	g.POST("/webhooks/payments", h.paymentsWebhook)
	g.GET("/tips/leaderboard", h.leaderboard)
	g.POST("/tips", h.addTip)
	g.POST("/tips/:id/upvote", h.upvoteTip)

	if d.Agent != nil {
		r.GET("/.well-known/agent.json", d.Agent.ServeAgentCard)
		r.POST("/a2a/reach", append(limited, d.Agent.Handle)...)
	}
	return r
}

// RespondError aborts with a JSON error body.
func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

const userHeader = "X-User-ID"

func userID(c *gin.Context) string {
	return c.GetHeader(userHeader)
}
