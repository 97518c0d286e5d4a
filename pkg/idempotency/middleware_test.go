package idempotency

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	repo   *MemoryKeyRepository
	calls  int
	status int
}

func newTestServer(t *testing.T, configure func(*Config)) *testServer {
	t.Helper()

	s := &testServer{repo: NewMemoryKeyRepository(), status: http.StatusCreated}
	cfg := DefaultConfig("test", s.repo, logging.NewNop())
	if configure != nil {
		configure(cfg)
	}

	s.router = gin.New()
	s.router.Use(Middleware(cfg))
	handler := func(c *gin.Context) {
		s.calls++
		c.Header("Location", "/sales/1")
		c.JSON(s.status, gin.H{"call": s.calls})
	}
	s.router.POST("/sales", handler)
	s.router.GET("/sales", handler)
	return s
}

func (s *testServer) do(method, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/sales", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestMiddleware_NoKeyPassesThrough(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "", `{}`).Code)
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "", `{}`).Code)
	assert.Equal(t, 2, s.calls)
}

func TestMiddleware_RequireKey(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.RequireKey = true })

	w := s.do(http.MethodPost, "", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "IDEMPOTENCY_KEY_REQUIRED", errorCode(t, w))
	assert.Zero(t, s.calls)
}

func TestMiddleware_InvalidKey(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "not a valid key!", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "IDEMPOTENCY_KEY_INVALID", errorCode(t, w))
	assert.Zero(t, s.calls)
}

func TestMiddleware_ReplaysCompletedRequest(t *testing.T) {
	s := newTestServer(t, nil)

	first := s.do(http.MethodPost, "key-1", `{"amount":10}`)
	second := s.do(http.MethodPost, "key-1", `{"amount":10}`)

	assert.Equal(t, 1, s.calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Equal(t, "/sales/1", second.Header().Get("Location"))
	assert.Empty(t, first.Header().Get(HeaderReplayed))
}

func TestMiddleware_ParameterMismatch(t *testing.T) {
	s := newTestServer(t, nil)

	s.do(http.MethodPost, "key-1", `{"amount":10}`)
	w := s.do(http.MethodPost, "key-1", `{"amount":20}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "IDEMPOTENCY_PARAMETER_MISMATCH", errorCode(t, w))
	assert.Equal(t, 1, s.calls)
}

func TestMiddleware_ConcurrentRequest(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"amount":10}`
	now := time.Now().UTC()

	_, acquired, err := s.repo.AcquireLock(context.Background(), &IdempotencyKey{
		ID:                 RecordID("test", "", "key-1"),
		Key:                "key-1",
		ServiceID:          "test",
		RequestFingerprint: ComputeFingerprint(http.MethodPost, "/sales", []byte(body)),
		LockedAt:           &now,
		CreatedAt:          now,
		ExpiresAt:          now.Add(time.Hour),
	}, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	w := s.do(http.MethodPost, "key-1", body)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "IDEMPOTENCY_CONCURRENT_REQUEST", errorCode(t, w))
	assert.Zero(t, s.calls)
}

func TestMiddleware_ServerErrorsAreNotCached(t *testing.T) {
	s := newTestServer(t, nil)
	s.status = http.StatusServiceUnavailable

	first := s.do(http.MethodPost, "key-1", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)

	s.status = http.StatusCreated
	second := s.do(http.MethodPost, "key-1", `{}`)

	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, s.calls)
	assert.Empty(t, second.Header().Get(HeaderReplayed))
}

func TestMiddleware_ClientErrorsAreCached(t *testing.T) {
	s := newTestServer(t, nil)
	s.status = http.StatusConflict

	s.do(http.MethodPost, "key-1", `{}`)
	w := s.do(http.MethodPost, "key-1", `{}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, s.calls)
}

func TestMiddleware_ScopeSeparatesKeys(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.ScopeExtractor = func(c *gin.Context) string { return c.GetHeader("X-Tenant-ID") }
	})

	for _, tenantID := range []string{"t1", "t2"} {
		req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{}`))
		req.Header.Set(HeaderIdempotencyKey, "key-1")
		req.Header.Set("X-Tenant-ID", tenantID)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	assert.Equal(t, 2, s.calls)
}

func TestMiddleware_SkipsReads(t *testing.T) {
	s := newTestServer(t, nil)

	s.do(http.MethodGet, "key-1", "")
	s.do(http.MethodGet, "key-1", "")

	assert.Equal(t, 2, s.calls)
}

func TestMemoryKeyRepository_StaleLockIsTakenOver(t *testing.T) {
	repo := NewMemoryKeyRepository()
	ctx := context.Background()
	old := time.Now().UTC().Add(-2 * time.Minute)

	key := &IdempotencyKey{ID: "a", LockedAt: &old, CreatedAt: old, ExpiresAt: old.Add(time.Hour)}
	_, acquired, err := repo.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	now := time.Now().UTC()
	retry := &IdempotencyKey{ID: "a", LockedAt: &now, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	_, acquired, err = repo.AcquireLock(ctx, retry, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryKeyRepository_Clean(t *testing.T) {
	repo := NewMemoryKeyRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	_, _, _ = repo.AcquireLock(ctx, &IdempotencyKey{ID: "old", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}, time.Minute)
	_, _, _ = repo.AcquireLock(ctx, &IdempotencyKey{ID: "new", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}, time.Minute)

	deleted, err := repo.Clean(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestValidateKey(t *testing.T) {
	assert.ErrorIs(t, ValidateKey("", 10), ErrKeyRequired)
	assert.ErrorIs(t, ValidateKey("abcdefghijk", 10), ErrKeyTooLong)
	assert.ErrorIs(t, ValidateKey("a b", 10), ErrKeyInvalid)
	assert.NoError(t, ValidateKey("abc-123_X", 10))
}

func TestComputeFingerprint(t *testing.T) {
	a := ComputeFingerprint(http.MethodPost, "/sales", []byte(`{"a":1}`))
	assert.Equal(t, a, ComputeFingerprint(http.MethodPost, "/sales", []byte(`{"a":1}`)))
	assert.NotEqual(t, a, ComputeFingerprint(http.MethodPost, "/sales", []byte(`{"a":2}`)))
	assert.NotEqual(t, a, ComputeFingerprint(http.MethodPut, "/sales", []byte(`{"a":1}`)))
}
