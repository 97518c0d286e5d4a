package idempotency

import (
	"time"
)

// IdempotencyKey is a stored Idempotency-Key with the request fingerprint and the cached response
type IdempotencyKey struct {
	ID                 string `bson:"_id"`
	Key                string `bson:"key"`
	ScopeID            string `bson:"scopeId,omitempty"`
	ServiceID          string `bson:"serviceId"`
	RequestPath        string `bson:"requestPath"`
	RequestMethod      string `bson:"requestMethod"`
	RequestFingerprint string `bson:"requestFingerprint"`

	// LockedAt is set while the first request is in flight
	LockedAt *time.Time `bson:"lockedAt,omitempty"`

	ResponseCode    int               `bson:"responseCode,omitempty"`
	ResponseBody    []byte            `bson:"responseBody,omitempty"`
	ResponseHeaders map[string]string `bson:"responseHeaders,omitempty"`

	CreatedAt   time.Time  `bson:"createdAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
}

// RecordID builds the storage id; keys are unique per service and scope
func RecordID(serviceID, scopeID, key string) string {
	return serviceID + ":" + scopeID + ":" + key
}

// IsCompleted returns true if the request has been completed
func (ik *IdempotencyKey) IsCompleted() bool {
	return ik.CompletedAt != nil
}

// IsLocked returns true if the request is currently being processed
func (ik *IdempotencyKey) IsLocked() bool {
	return ik.LockedAt != nil && ik.CompletedAt == nil
}

// IsStale reports whether an in-flight lock has outlived timeout
func (ik *IdempotencyKey) IsStale(now time.Time, timeout time.Duration) bool {
	return ik.IsLocked() && now.Sub(*ik.LockedAt) >= timeout
}
