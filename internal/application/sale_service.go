package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/api"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/logging"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/metrics"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/resilience"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/tracing"
)

var tracer = otel.Tracer("pos-ledger-service/application")

const (
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 25 * time.Millisecond
)

// Config tunes the conflict retry around each unit of work
type Config struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// DefaultConfig returns the default retry settings
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  DefaultMaxAttempts,
		RetryBackoff: DefaultRetryBackoff,
	}
}

// Dependencies are the ports the sale service drives
type Dependencies struct {
	Transactions domain.TransactionManager
	Products     domain.ProductRepository
	Stock        domain.StockRepository
	Clients      domain.ClientAccountRepository
	Ledger       domain.LedgerRepository
	Sales        domain.SaleRepository
	Audit        domain.AuditSink
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
}

// SaleService turns baskets into sales and ledger entries
type SaleService struct {
	transactions domain.TransactionManager
	products     domain.ProductRepository
	stock        domain.StockRepository
	clients      domain.ClientAccountRepository
	ledger       domain.LedgerRepository
	sales        domain.SaleRepository
	audit        domain.AuditSink
	logger       *logging.Logger
	metrics      *metrics.Metrics
	config       Config
}

// NewSaleService creates a new SaleService
func NewSaleService(deps Dependencies, config Config) *SaleService {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &SaleService{
		transactions: deps.Transactions,
		products:     deps.Products,
		stock:        deps.Stock,
		clients:      deps.Clients,
		ledger:       deps.Ledger,
		sales:        deps.Sales,
		audit:        deps.Audit,
		logger:       deps.Logger.WithComponent("sale-service"),
		metrics:      deps.Metrics,
		config:       config,
	}
}

// CreateSale validates the basket, then decrements stock, charges the client or books
// income, and persists the sale with its ledger entry in one transaction. The audit
// record is sent after commit and its failure never fails the sale.
func (s *SaleService) CreateSale(ctx context.Context, cmd CreateSaleCommand) (dto *SaleDTO, err error) {
	ctx, helper := tracing.StartSpan(ctx, tracer, "SaleService.CreateSale", cmd.TenantID)
	defer func() { helper.Finish(err) }()
	helper.SetAttribute("sale.studio_id", cmd.StudioID)
	helper.SetAttribute("sale.lines", len(cmd.Items))

	method, err := cmd.validate()
	if err != nil {
		s.metrics.RecordSaleFailure(failureReason(err))
		return nil, toAppError("sale", err)
	}
	helper.SetAttribute("sale.payment_method", string(method))

	var sale *domain.Sale
	err = s.withRetry(ctx, "create_sale", func(attempt int) error {
		var txErr error
		sale, txErr = s.executeSale(ctx, cmd, method)
		return txErr
	})
	if err != nil {
		s.metrics.RecordSaleFailure(failureReason(err))
		s.logger.WithContext(ctx).WithError(err).Warn("Sale aborted",
			"studioId", cmd.StudioID,
			"clientId", cmd.ClientID,
			"paymentMethod", string(method),
		)
		return nil, toAppError("sale", err)
	}

	helper.SetAttribute("sale.id", sale.SaleID)
	helper.SetAttribute("sale.total", sale.TotalAmount)
	s.metrics.RecordSaleCreated(string(sale.PaymentMethod), sale.TotalAmount.Decimal().InexactFloat64())
	s.logger.WithContext(ctx).Info("Sale completed",
		"saleId", sale.SaleID,
		"ledgerEntryId", sale.LedgerEntryID,
		"totalAmount", sale.TotalAmount.String(),
		"paymentMethod", string(sale.PaymentMethod),
	)

	s.recordAudit(ctx, domain.AuditRecord{
		TenantID:   sale.TenantID,
		Action:     domain.AuditActionSaleCreated,
		EntityType: "sale",
		EntityID:   sale.SaleID,
		ActorID:    cmd.ActorID,
		Details: map[string]interface{}{
			"amount":        sale.TotalAmount.String(),
			"paymentMethod": string(sale.PaymentMethod),
			"itemCount":     len(sale.Items),
		},
	})

	return ToSaleDTO(sale), nil
}

func (s *SaleService) executeSale(ctx context.Context, cmd CreateSaleCommand, method domain.PaymentMethod) (*domain.Sale, error) {
	var sale *domain.Sale

	err := s.transactions.RunInTransaction(ctx, func(txCtx context.Context) error {
		if cmd.ClientID != "" {
			client, err := s.clients.FindByID(txCtx, cmd.TenantID, cmd.ClientID)
			if err != nil {
				return fmt.Errorf("failed to load client: %w", err)
			}
			if client == nil {
				return domain.NewClientNotFound(cmd.ClientID)
			}
		}

		sale = domain.NewSale(cmd.TenantID, cmd.StudioID, cmd.ClientID, cmd.ActorID, method)

		for _, line := range cmd.Items {
			product, err := s.products.FindByID(txCtx, cmd.TenantID, line.ProductID)
			if err != nil {
				return fmt.Errorf("failed to load product: %w", err)
			}
			if product == nil {
				return domain.NewProductNotFound(line.ProductID)
			}

			if _, err := s.stock.CheckAndDecrement(txCtx, cmd.TenantID, product.ProductID, cmd.StudioID, line.Quantity); err != nil {
				return err
			}
			sale.AddItem(product, line.Quantity)
		}

		description := fmt.Sprintf("POS sale %s", sale.SaleID)
		var entry *domain.LedgerEntry
		if method.ChargesAccount() {
			balance, err := s.clients.AdjustBalance(txCtx, cmd.TenantID, cmd.ClientID, sale.TotalAmount.Neg())
			if err != nil {
				return err
			}
			entry = domain.NewAccountDebitEntry(cmd.TenantID, cmd.StudioID, cmd.ClientID, domain.CategoryRetailSale,
				sale.TotalAmount, balance, description, cmd.ActorID)
		} else {
			entry = domain.NewIncomeEntry(cmd.TenantID, cmd.StudioID, cmd.ClientID, domain.CategoryRetailSale,
				sale.TotalAmount, description, cmd.ActorID)
		}

		sale.AttachLedgerEntry(entry)
		if err := s.ledger.Append(txCtx, entry); err != nil {
			return err
		}

		sale.Complete()
		return s.sales.Save(txCtx, sale)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// RecordAdjustment writes a manual_adjustment entry and, when a client is named,
// moves that client's balance by the same signed amount in the same transaction
func (s *SaleService) RecordAdjustment(ctx context.Context, cmd RecordAdjustmentCommand) (dto *LedgerEntryDTO, err error) {
	ctx, helper := tracing.StartSpan(ctx, tracer, "SaleService.RecordAdjustment", cmd.TenantID)
	defer func() { helper.Finish(err) }()

	amount, err := cmd.validate()
	if err != nil {
		return nil, toAppError("adjustment", err)
	}
	helper.SetAttribute("adjustment.amount", amount)

	var entry *domain.LedgerEntry
	err = s.withRetry(ctx, "record_adjustment", func(attempt int) error {
		return s.transactions.RunInTransaction(ctx, func(txCtx context.Context) error {
			var running *domain.Money
			if cmd.ClientID != "" {
				balance, err := s.clients.AdjustBalance(txCtx, cmd.TenantID, cmd.ClientID, amount)
				if err != nil {
					return err
				}
				running = &balance
			}

			entry = domain.NewAdjustmentEntry(cmd.TenantID, cmd.StudioID, cmd.ClientID, amount, running, cmd.Description, cmd.ActorID)
			return s.ledger.Append(txCtx, entry)
		})
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Adjustment aborted", "clientId", cmd.ClientID)
		return nil, toAppError("adjustment", err)
	}

	s.metrics.RecordAdjustment(string(entry.Type))
	s.logger.WithContext(ctx).Info("Adjustment recorded",
		"entryId", entry.EntryID,
		"clientId", entry.ClientID,
		"amount", entry.Amount.String(),
	)

	s.recordAudit(ctx, domain.AuditRecord{
		TenantID:   entry.TenantID,
		Action:     domain.AuditActionAdjustmentRecorded,
		EntityType: "ledger_entry",
		EntityID:   entry.EntryID,
		ActorID:    cmd.ActorID,
		Details: map[string]interface{}{
			"amount":   entry.Amount.String(),
			"clientId": entry.ClientID,
		},
	})

	return ToLedgerEntryDTO(entry), nil
}

// GetSale loads one sale with its ledger entry
func (s *SaleService) GetSale(ctx context.Context, query GetSaleQuery) (dto *SaleDTO, err error) {
	ctx, helper := tracing.StartSpan(ctx, tracer, "SaleService.GetSale", query.TenantID)
	defer func() { helper.Finish(err) }()

	if query.TenantID == "" {
		return nil, toAppError("sale lookup", errMissingTenant)
	}

	sale, err := s.sales.FindByID(ctx, query.TenantID, query.SaleID)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to get sale", "saleId", query.SaleID)
		return nil, toAppError("sale lookup", err)
	}
	if sale == nil {
		return nil, toAppError("sale lookup", domain.NewSaleNotFound(query.SaleID))
	}
	return ToSaleDTO(sale), nil
}

// GetHistory lists the tenant's sales newest first
func (s *SaleService) GetHistory(ctx context.Context, query GetSaleHistoryQuery) (dtos []SaleDTO, err error) {
	ctx, helper := tracing.StartSpan(ctx, tracer, "SaleService.GetHistory", query.TenantID)
	defer func() { helper.Finish(err) }()

	if query.TenantID == "" {
		return nil, toAppError("sale history", errMissingTenant)
	}

	sales, err := s.sales.FindHistory(ctx, domain.SaleFilter{
		TenantID: query.TenantID,
		StudioID: query.StudioID,
		Limit:    clampLimit(query.Limit),
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list sales")
		return nil, toAppError("sale history", err)
	}
	return ToSaleDTOs(sales), nil
}

// GetTransactionHistory lists retail_sale and manual_adjustment entries newest first
func (s *SaleService) GetTransactionHistory(ctx context.Context, query GetTransactionHistoryQuery) (dtos []LedgerEntryDTO, err error) {
	ctx, helper := tracing.StartSpan(ctx, tracer, "SaleService.GetTransactionHistory", query.TenantID)
	defer func() { helper.Finish(err) }()

	if query.TenantID == "" {
		return nil, toAppError("transaction history", errMissingTenant)
	}
	if query.From != nil && query.To != nil && !query.From.Before(*query.To) {
		return nil, toAppError("transaction history", errInvalidTimeRange)
	}

	entries, err := s.ledger.FindHistory(ctx, domain.LedgerFilter{
		TenantID:   query.TenantID,
		StudioID:   query.StudioID,
		Categories: domain.RetailCategories,
		From:       query.From,
		To:         query.To,
		Limit:      clampLimit(query.Limit),
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list transactions")
		return nil, toAppError("transaction history", err)
	}
	return ToLedgerEntryDTOs(entries), nil
}

func (s *SaleService) withRetry(ctx context.Context, operation string, fn func(attempt int) error) error {
	backoff := s.config.RetryBackoff
	cfg := &resilience.RetryConfig{
		MaxAttempts:   s.config.MaxAttempts,
		InitialDelay:  backoff,
		MaxDelay:      backoff * 8,
		BackoffFactor: 2,
		RetryableErrors: func(err error) bool {
			return errors.Is(err, domain.ErrConflict)
		},
		OnRetry: func(attempt int, err error) {
			s.metrics.RecordTransactionRetry(operation)
			s.logger.TransactionRetry(ctx, operation, attempt, min(backoff<<(attempt-1), backoff*8), err)
		},
	}
	return resilience.Retry(ctx, cfg, fn)
}

type namedSink interface {
	Name() string
}

// recordAudit runs after commit. The request context may already be cancelled by
// then, so the sink gets a context that keeps its values but not its deadline.
func (s *SaleService) recordAudit(ctx context.Context, record domain.AuditRecord) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), record); err != nil {
		sink := "audit"
		if named, ok := s.audit.(namedSink); ok {
			sink = named.Name()
		}
		s.metrics.RecordAuditFailure(sink)
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to record audit entry",
			"action", record.Action,
			"entityId", record.EntityID,
		)
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return api.DefaultLimit
	case limit > api.MaxLimit:
		return api.MaxLimit
	default:
		return limit
	}
}
