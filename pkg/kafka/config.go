package kafka

import (
	"time"
)

// Config holds Kafka configuration
type Config struct {
	Brokers  []string
	ClientID string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:  []string{"localhost:9092"},
		ClientID: "pos-ledger-service",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: -1,
	}
}

// Topics contains the POS ledger topic names
var Topics = struct {
	Sales string
	Audit string
}{
	Sales: "pos.sales",
	Audit: "pos.audit",
}

// IsKnownTopic reports whether topic is one of Topics
func IsKnownTopic(topic string) bool {
	return topic == Topics.Sales || topic == Topics.Audit
}
