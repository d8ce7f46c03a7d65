package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fileforge-backend/internal/shared/telemetry"
)

// Logging emits one structured log line per completed request. Handlers may
// set fileId, jobId, and statusTransition in the gin context to enrich it.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		userID, _ := c.Get(userIDKey)
		isGuest, _ := c.Get(isGuestKey)
		fileID, _ := c.Get("fileId")
		jobID, _ := c.Get("jobId")

		telemetry.Info("request.complete", map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"status":            c.Writer.Status(),
			"status_transition": c.GetString("statusTransition"),
			"duration_ms":       float64(time.Since(start).Microseconds()) / 1000.0,
			"user_id":           userID,
			"file_id":           fileID,
			"job_id":            jobID,
			"is_guest":          isGuest,
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		})
	}
}
