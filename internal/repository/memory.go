package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
)

// MemoryStore keeps everything in process memory. It backs memory:// URIs
// and the service and handler tests.
type MemoryStore struct {
	orders   *MemoryOrderRepository
	accounts *MemoryAccountRepository
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   NewMemoryOrderRepository(),
		accounts: NewMemoryAccountRepository(),
	}
}

func (s *MemoryStore) Orders() OrderRepository           { return s.orders }
func (s *MemoryStore) Accounts() AccountRepository       { return s.accounts }
func (s *MemoryStore) Driver() string                    { return "memory" }
func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }
func (s *MemoryStore) Ping(ctx context.Context) error    { return nil }
func (s *MemoryStore) Close(ctx context.Context) error   { return nil }

func (s *MemoryStore) OrderRepo() *MemoryOrderRepository     { return s.orders }
func (s *MemoryStore) AccountRepo() *MemoryAccountRepository { return s.accounts }

// MemoryOrderRepository implements OrderRepository over a map guarded by a mutex.
type MemoryOrderRepository struct {
	mu       sync.RWMutex
	byID     map[string]*models.Order
	orderIDs map[string]struct{}
	seq      []string
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		byID:     make(map[string]*models.Order),
		orderIDs: make(map[string]struct{}),
	}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.orderIDs[order.OrderID]; dup {
		return nil, fmt.Errorf("duplicate orderId %q", order.OrderID)
	}

	stored := cloneOrder(order)
	stored.ID = newStoreID()

	r.byID[stored.ID] = stored
	r.orderIDs[stored.OrderID] = struct{}{}
	r.seq = append(r.seq, stored.ID)

	return cloneOrder(stored), nil
}

func (r *MemoryOrderRepository) UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, at time.Time) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.byID[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	order.ApplyPayment(status, at)
	return cloneOrder(order), nil
}

// ListRecent sorts by CreatedAt descending; equal timestamps keep the most
// recently inserted first.
func (r *MemoryOrderRepository) ListRecent(ctx context.Context, limit int) ([]*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*models.Order, 0, len(r.seq))
	for i := len(r.seq) - 1; i >= 0; i-- {
		orders = append(orders, r.byID[r.seq[i]])
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	if limit >= 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	for i, o := range orders {
		orders[i] = cloneOrder(o)
	}
	return orders, nil
}

// Get returns a copy of the order with store identity id.
func (r *MemoryOrderRepository) Get(id string) (*models.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return cloneOrder(order), true
}

// Count returns the number of stored orders.
func (r *MemoryOrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	if o.Payment.PaidAt != nil {
		paidAt := *o.Payment.PaidAt
		c.Payment.PaidAt = &paidAt
	}
	return &c
}

// MemoryAccountRepository implements AccountRepository in memory.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts []*models.Account
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{}
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *account
	stored.ID = newStoreID()
	r.accounts = append(r.accounts, &stored)

	created := stored
	return &created, nil
}

func (r *MemoryAccountRepository) FindByUsername(ctx context.Context, username string) ([]*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Account
	for _, a := range r.accounts {
		if a.Username == username {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}
