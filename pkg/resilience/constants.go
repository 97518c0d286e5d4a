package resilience

import "time"

// Breaker defaults, tuned for the audit publisher: a broker outage should trip
// after a short burst of failures and probe again within half a minute.
const (
	DefaultMaxRequests           uint32        = 3
	DefaultInterval              time.Duration = 60 * time.Second
	DefaultTimeout               time.Duration = 30 * time.Second
	DefaultFailureThreshold      uint32        = 5
	DefaultFailureRatioThreshold float64       = 0.5
	DefaultMinRequestsToTrip     uint32        = 10
)

// Retry defaults match one sale transaction: conflicts clear within milliseconds.
const (
	DefaultRetryMaxAttempts   int           = 3
	DefaultRetryInitialDelay  time.Duration = 25 * time.Millisecond
	DefaultRetryMaxDelay      time.Duration = 200 * time.Millisecond
	DefaultRetryBackoffFactor float64       = 2.0
)
