package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/logger"
	"github.com/scholarloop/scholarloop/internal/pipeline"
	"github.com/scholarloop/scholarloop/internal/store"
)

const (
	headerUserID    = "X-User-ID"
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"

	ctxScope = "scope"
)

// corsMiddleware allows every origin when origins is empty.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", headerUserID, headerRequestID},
		ExposeHeaders: []string{headerTraceID, headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func traceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		traceID := strings.TrimSpace(c.GetHeader(headerTraceID))
		if traceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				traceID = sc.TraceID().String()
			}
		}
		if traceID == "" {
			traceID = reqID
		}
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString("request_id"),
		}
		if scope, ok := scopeFrom(c); ok {
			fields = append(fields, "user_id", scope.ActorID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// requireUser resolves the acting user set by the upstream auth layer to
// its owning account and stores the scope on the request.
func requireUser(accounts store.AccountRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerUserID))
		userID, err := uuid.Parse(raw)
		if raw == "" || err != nil || userID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorEnvelope{
				Error: APIError{Message: "missing or invalid " + headerUserID, Code: "unauthorized"},
			})
			return
		}
		accountID, err := accounts.ResolveOwner(dbctx.New(c.Request.Context()), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		if accountID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorEnvelope{
				Error: APIError{Message: "unknown user", Code: "unauthorized"},
			})
			return
		}
		c.Set(ctxScope, pipeline.Scope{ActorID: userID, AccountID: accountID})
		c.Next()
	}
}

func scopeFrom(c *gin.Context) (pipeline.Scope, bool) {
	v, ok := c.Get(ctxScope)
	if !ok {
		return pipeline.Scope{}, false
	}
	s, ok := v.(pipeline.Scope)
	return s, ok
}
