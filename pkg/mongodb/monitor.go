package mongodb

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/event"

	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/metrics"
)

// commands that carry no collection and only add noise
var ignoredCommands = map[string]bool{
	"hello":             true,
	"isMaster":          true,
	"ping":              true,
	"saslStart":         true,
	"saslContinue":      true,
	"endSessions":       true,
	"commitTransaction": true,
	"abortTransaction":  true,
}

type inflight struct {
	collection string
}

// CommandMonitor records per-command metrics and debug logs
type CommandMonitor struct {
	metrics *metrics.Metrics
	logger  *logging.Logger

	mu      sync.Mutex
	pending map[int64]inflight
}

// NewCommandMonitor creates a monitor. metrics and logger may be nil.
func NewCommandMonitor(m *metrics.Metrics, logger *logging.Logger) *CommandMonitor {
	return &CommandMonitor{
		metrics: m,
		logger:  logger,
		pending: make(map[int64]inflight),
	}
}

// Monitor returns the driver hook to pass to NewClient
func (cm *CommandMonitor) Monitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started:   cm.started,
		Succeeded: cm.succeeded,
		Failed:    cm.failed,
	}
}

func (cm *CommandMonitor) started(_ context.Context, evt *event.CommandStartedEvent) {
	if ignoredCommands[evt.CommandName] {
		return
	}

	collection := ""
	if elem, err := evt.Command.IndexErr(0); err == nil {
		collection, _ = elem.Value().StringValueOK()
	}

	cm.mu.Lock()
	cm.pending[evt.RequestID] = inflight{collection: collection}
	cm.mu.Unlock()
}

func (cm *CommandMonitor) succeeded(ctx context.Context, evt *event.CommandSucceededEvent) {
	cm.finish(ctx, evt.CommandFinishedEvent, true)
}

func (cm *CommandMonitor) failed(ctx context.Context, evt *event.CommandFailedEvent) {
	cm.finish(ctx, evt.CommandFinishedEvent, false)
}

func (cm *CommandMonitor) finish(ctx context.Context, evt event.CommandFinishedEvent, success bool) {
	cm.mu.Lock()
	op, ok := cm.pending[evt.RequestID]
	delete(cm.pending, evt.RequestID)
	cm.mu.Unlock()

	if !ok {
		return
	}

	if cm.metrics != nil {
		cm.metrics.RecordMongoDBOperation(op.collection, evt.CommandName, success, evt.Duration)
	}
	if cm.logger != nil {
		cm.logger.DatabaseQuery(ctx, op.collection, evt.CommandName, evt.Duration, success)
	}
}
