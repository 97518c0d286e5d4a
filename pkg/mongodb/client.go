package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ErrNoTransactions is returned when the deployment is a standalone server
var ErrNoTransactions = errors.New("mongodb deployment does not support multi-document transactions")

// Config holds MongoDB connection configuration.
// Credentials, if any, travel in the URI.
type Config struct {
	URI            string
	Database       string
	AppName        string
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
}

// DefaultConfig points at a local single-node replica set
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017/?replicaSet=rs0",
		Database:       "pos_ledger",
		AppName:        "pos-ledger-service",
		ConnectTimeout: 10 * time.Second,
		PingTimeout:    2 * time.Second,
		MaxPoolSize:    100,
		MinPoolSize:    5,
	}
}

// Client owns the driver connection and the ledger database handle
type Client struct {
	client      *mongo.Client
	database    *mongo.Database
	pingTimeout time.Duration
}

// NewClient connects, pings the primary and checks that the deployment can run
// transactions. Every sale is one transaction, so a standalone server is rejected.
// monitor may be nil.
func NewClient(ctx context.Context, config *Config, monitor *event.CommandMonitor) (*Client, error) {
	clientOpts := options.Client().
		ApplyURI(config.URI).
		SetAppName(config.AppName).
		SetConnectTimeout(config.ConnectTimeout).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetRetryWrites(true).
		SetReadConcern(readconcern.Majority()).
		SetWriteConcern(writeconcern.Majority())
	if monitor != nil {
		clientOpts.SetMonitor(monitor)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	c := &Client{
		client:      client,
		database:    client.Database(config.Database),
		pingTimeout: config.PingTimeout,
	}
	if c.pingTimeout <= 0 {
		c.pingTimeout = 2 * time.Second
	}

	if err := c.HealthCheck(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	if err := c.requireTransactions(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return c, nil
}

type helloReply struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

// supportsTransactions is true for replica set members and mongos routers
func (r helloReply) supportsTransactions() bool {
	return r.SetName != "" || r.Msg == "isdbgrid"
}

func (c *Client) requireTransactions(ctx context.Context) error {
	var reply helloReply
	if err := c.client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&reply); err != nil {
		return fmt.Errorf("failed to run hello: %w", err)
	}
	if !reply.supportsTransactions() {
		return ErrNoTransactions
	}
	return nil
}

// Database returns the ledger database
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Client returns the underlying driver client
func (c *Client) Client() *mongo.Client {
	return c.client
}

// Close disconnects the client
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// HealthCheck pings the primary, bounded by the configured ping timeout
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()
	return c.client.Ping(ctx, readpref.Primary())
}
