package idempotency

import "errors"

// Key validation and lookup failures. The middleware maps the first three to 400s.
var (
	ErrKeyRequired = errors.New("idempotency key is required for this operation")
	ErrKeyInvalid  = errors.New("idempotency key may only contain letters, digits, '-' and '_'")
	ErrKeyTooLong  = errors.New("idempotency key exceeds maximum length")
	ErrNotFound    = errors.New("idempotency key not found")
)
