package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MOhammedRiaad/EMS-sub006/internal/domain"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/cloudevents"
	"github.com/MOhammedRiaad/EMS-sub006/pkg/outbox"
)

// Store is a process-local implementation of every repository the engine needs.
// Transactions are serialized on a single mutex and rolled back from a snapshot,
// which gives serializable isolation for a single process.
type Store struct {
	mu sync.Mutex

	products map[string]domain.Product
	stock    map[string]domain.Stock
	clients  map[string]domain.ClientAccount
	ledger   []domain.LedgerEntry
	sales    []domain.Sale

	outbox       *outbox.MemoryRepository
	eventFactory *cloudevents.EventFactory
}

// NewStore creates an empty store. Sale events are written to outboxRepo on commit; it may be nil.
func NewStore(eventFactory *cloudevents.EventFactory, outboxRepo *outbox.MemoryRepository) *Store {
	return &Store{
		products:     make(map[string]domain.Product),
		stock:        make(map[string]domain.Stock),
		clients:      make(map[string]domain.ClientAccount),
		outbox:       outboxRepo,
		eventFactory: eventFactory,
	}
}

func key(parts ...string) string {
	return strings.Join(parts, "/")
}

type txKey struct{}

// txState is carried in the context of a running transaction
type txState struct {
	store         *Store
	pendingOutbox []*outbox.OutboxEvent
}

func (s *Store) txFrom(ctx context.Context) *txState {
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok || state.store != s {
		return nil
	}
	return state
}

// lock takes the store mutex unless ctx already belongs to a transaction holding it
func (s *Store) lock(ctx context.Context) func() {
	if s.txFrom(ctx) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	stock     map[string]domain.Stock
	clients   map[string]domain.ClientAccount
	ledgerLen int
	salesLen  int
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		stock:     make(map[string]domain.Stock, len(s.stock)),
		clients:   make(map[string]domain.ClientAccount, len(s.clients)),
		ledgerLen: len(s.ledger),
		salesLen:  len(s.sales),
	}
	for k, v := range s.stock {
		snap.stock[k] = v
	}
	for k, v := range s.clients {
		snap.clients[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.stock = snap.stock
	s.clients = snap.clients
	s.ledger = s.ledger[:snap.ledgerLen]
	s.sales = s.sales[:snap.salesLen]
}

// RunInTransaction runs fn with exclusive access to the store. Any error, including a
// context cancelled before commit, restores the state fn started from.
func (s *Store) RunInTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	state := &txState{store: s}
	snap := s.snapshot()

	if err := fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		s.restore(snap)
		return err
	}

	if err := ctx.Err(); err != nil {
		s.restore(snap)
		return fmt.Errorf("transaction aborted: %w", err)
	}

	if s.outbox != nil && len(state.pendingOutbox) > 0 {
		if err := s.outbox.SaveAll(ctx, state.pendingOutbox); err != nil {
			s.restore(snap)
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
	}
	return nil
}

// SeedProduct inserts or replaces a catalog product
func (s *Store) SeedProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[key(p.TenantID, p.ProductID)] = p
}

// SeedStock sets the on-hand quantity for a product at a studio
func (s *Store) SeedStock(st domain.Stock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[key(st.TenantID, st.ProductID, st.StudioID)] = st
}

// SeedClient inserts or replaces a client account
func (s *Store) SeedClient(c domain.ClientAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[key(c.TenantID, c.ClientID)] = c
}

// Counts reports how many sales and ledger entries the store holds
func (s *Store) Counts() (sales, entries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales), len(s.ledger)
}

// Products returns the catalog repository
func (s *Store) Products() *ProductRepository { return &ProductRepository{store: s} }

// Stock returns the stock repository
func (s *Store) Stock() *StockRepository { return &StockRepository{store: s} }

// Clients returns the client account repository
func (s *Store) Clients() *ClientAccountRepository { return &ClientAccountRepository{store: s} }

// Ledger returns the ledger repository
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{store: s} }

// Sales returns the sale repository
func (s *Store) Sales() *SaleRepository { return &SaleRepository{store: s} }
