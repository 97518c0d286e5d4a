package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultLimit is the page size used when the request names none
	DefaultLimit = 50

	// MaxLimit caps the number of rows a history query returns
	MaxLimit = 500
)

// ListResponse is the envelope for history endpoints
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// NewListResponse wraps data, replacing nil with an empty slice
func NewListResponse[T any](data []T) ListResponse[T] {
	if data == nil {
		data = []T{}
	}
	return ListResponse[T]{Data: data, Count: len(data)}
}

// DataResponse is the envelope for single-resource endpoints
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// ParseLimit reads the limit query parameter, falling back to the default and clamping to MaxLimit
func ParseLimit(c *gin.Context) int {
	return NormalizeLimit(c.Query("limit"))
}

// NormalizeLimit applies the default and maximum to a raw limit value
func NormalizeLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// TimeRange is a half-open [From, To) window. Either bound may be nil.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// ParseTimeRange reads RFC3339 from/to query parameters
func ParseTimeRange(c *gin.Context, fromKey, toKey string) (TimeRange, error) {
	var r TimeRange

	from, err := parseTime(c.Query(fromKey))
	if err != nil {
		return r, &QueryError{Param: fromKey, Err: err}
	}
	to, err := parseTime(c.Query(toKey))
	if err != nil {
		return r, &QueryError{Param: toKey, Err: err}
	}

	r.From, r.To = from, to
	return r, nil
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

// QueryError reports a malformed query parameter
type QueryError struct {
	Param string
	Err   error
}

func (e *QueryError) Error() string {
	return "invalid query parameter " + e.Param + ": " + e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
