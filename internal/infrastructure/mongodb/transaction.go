package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
)

// DefaultTransactionTimeout bounds a single transaction attempt
const DefaultTransactionTimeout = 10 * time.Second

const writeConflictCode = 112

// maxCommitAttempts bounds commitTransaction retries on UnknownTransactionCommitResult
const maxCommitAttempts = 3

// ErrCommitOutcomeUnknown means the server may or may not have applied the commit.
// The unit of work must not be re-run, since it could apply twice.
var ErrCommitOutcomeUnknown = errors.New("transaction commit outcome unknown")

// txnSession is the part of mongo.Session a unit of work needs
type txnSession interface {
	StartTransaction(opts ...*options.TransactionOptions) error
	AbortTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
}

// TransactionManager runs units of work as MongoDB multi-document transactions.
// It makes exactly one attempt per call; callers own the retry policy.
type TransactionManager struct {
	client  *mongo.Client
	timeout time.Duration
}

// NewTransactionManager creates a transaction manager. A zero timeout uses DefaultTransactionTimeout.
func NewTransactionManager(client *mongo.Client, timeout time.Duration) *TransactionManager {
	if timeout <= 0 {
		timeout = DefaultTransactionTimeout
	}
	return &TransactionManager{client: client, timeout: timeout}
}

// RunInTransaction starts a snapshot/majority transaction, runs fn and commits.
// A ctx that already carries a session joins it.
func (m *TransactionManager) RunInTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.Background())

	attemptCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	err = mongo.WithSession(attemptCtx, session, func(sc mongo.SessionContext) error {
		return runUnit(sc, session, txnOpts, fn)
	})

	return classifyTransactionError(ctx, err)
}

func runUnit(ctx context.Context, session txnSession, txnOpts *options.TransactionOptions, fn func(txCtx context.Context) error) error {
	if err := session.StartTransaction(txnOpts); err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	if err := fn(ctx); err != nil {
		_ = session.AbortTransaction(context.Background())
		return err
	}

	return commitWithRetry(ctx, session)
}

// commitWithRetry re-sends commitTransaction while the outcome is unknown.
// commitTransaction is idempotent on the server, fn is not.
func commitWithRetry(ctx context.Context, session txnSession) error {
	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		err = session.CommitTransaction(ctx)
		if err == nil {
			return nil
		}
		if !hasLabel(err, driver.UnknownTransactionCommitResult) || ctx.Err() != nil {
			break
		}
	}

	if hasLabel(err, driver.UnknownTransactionCommitResult) {
		return fmt.Errorf("%w: %v", ErrCommitOutcomeUnknown, err)
	}
	_ = session.AbortTransaction(context.Background())
	return fmt.Errorf("failed to commit transaction: %w", err)
}

// classifyTransactionError maps retryable store failures to domain.ErrConflict.
// Domain errors raised by the unit of work pass through unchanged.
func classifyTransactionError(parent context.Context, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrCommitOutcomeUnknown) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrProductNotFound) ||
		errors.Is(err, domain.ErrClientNotFound) {
		return err
	}

	if isConflict(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}

	// The attempt timed out while the caller is still waiting
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("%w: transaction timed out: %v", domain.ErrConflict, err)
	}

	return err
}

func hasLabel(err error, label string) bool {
	var labeled mongo.LabeledError
	return errors.As(err, &labeled) && labeled.HasErrorLabel(label)
}

// isConflict is true when the transaction definitely did not commit and may be re-run
func isConflict(err error) bool {
	if hasLabel(err, driver.TransientTransactionError) {
		return true
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(writeConflictCode) {
		return true
	}
	return false
}
