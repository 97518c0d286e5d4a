package middleware

import (
	"log/slog"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MOhammedRiaad/EMS-sub006/pkg/errors"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
)

// gin context keys
const (
	ContextKeyRequestID     = "requestId"
	ContextKeyCorrelationID = "correlationId"
	ContextKeyTraceID       = "traceId"
)

// HTTP header names
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// Inbound ids end up in logs, error bodies and CloudEvent headers
var validID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

func inboundID(c *gin.Context, header string) string {
	if id := c.GetHeader(header); validID.MatchString(id) {
		return id
	}
	return ""
}

// RequestContext assigns every request a request id and a correlation id,
// echoes both as response headers and puts them on the request context.
// A missing or malformed X-Request-ID is replaced with a UUID. The correlation
// id defaults to the request id so a till's retry chain can be followed from its
// first attempt.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := inboundID(c, HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		correlationID := inboundID(c, HeaderCorrelationID)
		if correlationID == "" {
			correlationID = requestID
		}

		c.Set(ContextKeyRequestID, requestID)
		c.Set(ContextKeyCorrelationID, correlationID)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderCorrelationID, correlationID)

		ctx := logging.ContextWithRequestID(c.Request.Context(), requestID)
		ctx = logging.ContextWithCorrelationID(ctx, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// LoggerConfig holds logger middleware configuration
type LoggerConfig struct {
	Logger       *slog.Logger
	ExcludePaths []string
}

// DefaultLoggerConfig excludes the probe and scrape endpoints
func DefaultLoggerConfig(logger *slog.Logger) *LoggerConfig {
	return &LoggerConfig{
		Logger:       logger,
		ExcludePaths: []string{"/health", "/ready", "/metrics"},
	}
}

// Logger writes one line per request once the handler chain has run, so the
// tenant, studio and actor set by TenantAuth are included.
func Logger(config *LoggerConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.ExcludePaths))
	for _, path := range config.ExcludePaths {
		skip[path] = struct{}{}
	}
	base := &logging.Logger{Logger: config.Logger}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		log := base.WithContext(c.Request.Context())
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"latencyMs", time.Since(start).Milliseconds(),
			"clientIP", c.ClientIP(),
		}
		if key := c.GetHeader("Idempotency-Key"); key != "" {
			attrs = append(attrs, "idempotencyKey", key)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "ginErrors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", attrs...)
		case status >= 400:
			log.Warn("HTTP request", attrs...)
		default:
			log.Info("HTTP request", attrs...)
		}
	}
}

// Recovery turns panics into a 500 in the standard error shape
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	base := &logging.Logger{Logger: logger}

	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				base.With("path", c.Request.URL.Path, "method", c.Request.Method).
					Panic(c.Request.Context(), recovered)
				AbortWithAppError(c, errors.ErrInternal("An unexpected error occurred"))
			}
		}()
		c.Next()
	}
}

// GetRequestID returns the request id assigned by RequestContext
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}
