package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"analysis-backend/internal/documents"
	"analysis-backend/internal/sessions"
	"analysis-backend/internal/shared/config"
	"analysis-backend/internal/shared/metrics"
	"analysis-backend/internal/shared/server/middleware"
	"analysis-backend/internal/shared/server/respond"
)

const (
	rateGroupCreate  = "CREATE"
	rateGroupControl = "CONTROL"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: rateGroupFor,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupCreate:  {Rate: 0.5, Burst: 10},
				rateGroupControl: {Rate: 2, Burst: 20},
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps))
	api.GET("/metrics", metrics.Handler())

	sessions.NewHandler(deps.Sessions, deps.Documents, deps.Exports).RegisterRoutes(api)
	if deps.Documents != nil {
		documents.NewHandler(deps.Documents).RegisterRoutes(api)
	}

	return r
}

// rateGroupFor limits session creation and job control. Reads are governed
// by the per-session poll limiter instead.
func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
		return ""
	}
	route := c.FullPath()
	switch {
	case route == "/api/v1/sessions", route == "/api/v1/sessions/upload":
		return rateGroupCreate
	case strings.HasPrefix(route, "/api/v1/sessions/:id/"):
		return rateGroupControl
	default:
		return ""
	}
}

func healthHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"ok": true, "database": "memory"}
		if deps.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.DB.PingContext(ctx); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "unavailable", "database unreachable", nil)
				return
			}
			resp["database"] = "postgres"
		}
		respond.OK(c, resp)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
