package idempotency

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MOhammedRiaad/EMS-sub006/pkg/errors"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/middleware"
)

// HeaderIdempotencyKey is the HTTP header name for the idempotency key
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderReplayed marks a response served from the key store
const HeaderReplayed = "Idempotent-Replayed"

// Outcomes recorded in pos_idempotency_requests_total
const (
	OutcomeMiss       = "miss"
	OutcomeHit        = "hit"
	OutcomeMismatch   = "mismatch"
	OutcomeConcurrent = "concurrent"
	OutcomeError      = "storage_error"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware replays completed requests that carry a known Idempotency-Key.
// Only mutating methods are considered.
func Middleware(config *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutatingMethod(c.Request.Method) {
			c.Next()
			return
		}

		key := NormalizeKey(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			if config.RequireKey {
				middleware.AbortWithAppError(c, errors.ErrIdempotencyKeyRequired())
				return
			}
			c.Next()
			return
		}

		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			middleware.AbortWithAppError(c, errors.ErrIdempotencyKeyInvalid(err))
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		process(c, config, key, body)
	}
}

func process(c *gin.Context, config *Config, key string, body []byte) {
	ctx := c.Request.Context()
	now := time.Now().UTC()
	path := c.Request.URL.Path

	scope := ""
	if config.ScopeExtractor != nil {
		scope = config.ScopeExtractor(c)
	}

	candidate := &IdempotencyKey{
		ID:                 RecordID(config.ServiceName, scope, key),
		Key:                key,
		ScopeID:            scope,
		ServiceID:          config.ServiceName,
		RequestPath:        path,
		RequestMethod:      c.Request.Method,
		RequestFingerprint: ComputeFingerprint(c.Request.Method, path, body),
		LockedAt:           &now,
		CreatedAt:          now,
		ExpiresAt:          now.Add(config.RetentionPeriod),
	}

	log := config.Logger.WithContext(ctx).With("idempotencyKey", key, "path", path)

	record, acquired, err := config.Repository.AcquireLock(ctx, candidate, config.LockTimeout)
	if err != nil {
		log.Error("Failed to acquire idempotency lock", "error", err)
		recordOutcome(config, OutcomeError)
		middleware.AbortWithAppError(c, errors.ErrServiceUnavailable("idempotency storage"))
		return
	}

	if !acquired {
		switch {
		case record.RequestFingerprint != candidate.RequestFingerprint:
			log.Warn("Idempotency parameter mismatch")
			recordOutcome(config, OutcomeMismatch)
			middleware.AbortWithAppError(c, errors.ErrIdempotencyMismatch())

		case record.IsCompleted():
			log.Info("Idempotency replay", "statusCode", record.ResponseCode)
			recordOutcome(config, OutcomeHit)
			for k, v := range record.ResponseHeaders {
				c.Header(k, v)
			}
			c.Header(HeaderReplayed, "true")
			c.Data(record.ResponseCode, "application/json; charset=utf-8", record.ResponseBody)
			c.Abort()

		default:
			log.Warn("Concurrent idempotency request")
			recordOutcome(config, OutcomeConcurrent)
			middleware.AbortWithAppError(c, errors.ErrIdempotencyInFlight())
		}
		return
	}

	recordOutcome(config, OutcomeMiss)

	writer := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
	c.Writer = writer

	c.Next()

	status := writer.Status()

	// Server-side failures are not cached so the client can retry with the same key
	if status >= http.StatusInternalServerError {
		if err := config.Repository.ReleaseLock(ctx, record.ID); err != nil {
			log.Error("Failed to release idempotency lock", "error", err)
		}
		return
	}

	responseBody := writer.body.Bytes()
	if len(responseBody) > config.MaxResponseSize {
		log.Warn("Response too large to cache", "size", len(responseBody))
		if err := config.Repository.ReleaseLock(ctx, record.ID); err != nil {
			log.Error("Failed to release idempotency lock", "error", err)
		}
		return
	}

	if err := config.Repository.StoreResponse(ctx, record.ID, status, responseBody, responseHeaders(writer)); err != nil {
		log.Error("Failed to store idempotency response", "error", err)
		recordOutcome(config, OutcomeError)
	}
}

func recordOutcome(config *Config, outcome string) {
	if config.Metrics != nil {
		config.Metrics.RecordIdempotency(outcome)
	}
}

func isMutatingMethod(method string) bool {
	return method == http.MethodPost ||
		method == http.MethodPut ||
		method == http.MethodPatch ||
		method == http.MethodDelete
}

// responseHeaders keeps the headers worth replaying
func responseHeaders(w gin.ResponseWriter) map[string]string {
	headers := make(map[string]string)
	if v := w.Header().Get("Location"); v != "" {
		headers["Location"] = v
	}
	return headers
}
