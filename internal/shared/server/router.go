package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "fileforge-backend/internal/auth"
	"fileforge-backend/internal/files"
	"fileforge-backend/internal/jobs"
	"fileforge-backend/internal/shared/config"
	"fileforge-backend/internal/shared/metrics"
	"fileforge-backend/internal/shared/server/middleware"
	"fileforge-backend/internal/shared/server/respond"
	"fileforge-backend/internal/usage"
	"fileforge-backend/internal/users"
)

// RouterDeps carries the handlers the router mounts. Dependency construction
// lives in bootstrap so the worker can reuse the same wiring without a router.
type RouterDeps struct {
	Config       config.Config
	FilesHandler *files.Handler
	JobsHandler  *jobs.Handler
	UsageHandler *usage.Handler
	UsersHandler *users.Handler
	GoogleAuth   *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	authed := api.Group("")
	authed.Use(
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(writeRateLimit()),
	)
	if deps.UsersHandler != nil {
		deps.UsersHandler.RegisterRoutes(authed)
	}
	if deps.FilesHandler != nil {
		deps.FilesHandler.RegisterRoutes(authed)
	}
	if deps.JobsHandler != nil {
		deps.JobsHandler.RegisterRoutes(authed)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(authed)
		if deps.Config.Env == "dev" {
			dev := authed.Group("/dev")
			deps.UsageHandler.RegisterDevRoutes(dev)
		}
	}

	return r
}

// writeRateLimit throttles mutating endpoints per principal. Reads are
// unlimited; uploads and job starts refill at one per second with burst room.
func writeRateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"WRITE": {Rate: 1, Burst: 10},
		},
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost {
				return "WRITE"
			}
			return ""
		},
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
