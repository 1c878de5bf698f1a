package logger

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/modabuild/fabline/internal/auditcontext"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// Actor headers set by the dashboard's auth layer after sign-in.
const (
	actorIDHeader   = "X-Actor-Id"
	actorNameHeader = "X-Actor-Name"
)

// MiddlewareConfig tunes the request log middleware.
type MiddlewareConfig struct {
	// SkipPaths are logged at debug only (health and metrics probes).
	SkipPaths []string
}

// GinMiddleware assigns request IDs, seeds the audit context with the
// acting user and emits one masked request log line per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = true
	}

	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set("request_id", requestID)

		ctx := auditcontext.WithRequestID(c.Request.Context(), requestID)
		ctx = auditcontext.WithActor(ctx, auditcontext.Actor{
			ID:   strings.TrimSpace(c.GetHeader(actorIDHeader)),
			Name: strings.TrimSpace(c.GetHeader(actorNameHeader)),
		})
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		log := FromContext(c.Request.Context())
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.Any("headers", MaskHeaders(c.Request.Header)),
		}
		if skip[c.Request.URL.Path] {
			log.Debug("http request", fields...)
			return
		}
		log.Info("http request", fields...)
	}
}
