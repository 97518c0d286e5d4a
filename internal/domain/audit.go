package domain

import "context"

// Audit actions
const (
	AuditActionSaleCreated        = "sale.created"
	AuditActionAdjustmentRecorded = "ledger.adjustment_recorded"
)

// AuditRecord is a best-effort notification about a committed change
type AuditRecord struct {
	TenantID   string
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	Details    map[string]interface{}
}

// AuditSink receives audit records after commit. Errors are reported to the caller
// but never undo the change being audited.
type AuditSink interface {
	Record(ctx context.Context, record AuditRecord) error
}
