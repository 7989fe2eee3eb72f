package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ordersCollection   = "orders"
	accountsCollection = "users"
)

// OrderRepository is the data store adapter for orders. Every method is a
// single store operation, atomic per document.
type OrderRepository interface {
	// Create inserts order and fills in its store identity.
	Create(ctx context.Context, order *models.Order) (*models.Order, error)

	// UpdatePayment sets payment.status and, for paid, payment.paidAt = at.
	// It returns the updated order, or errors.ErrNotFound when id is unknown.
	UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, at time.Time) (*models.Order, error)

	// ListRecent returns at most limit orders, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.Order, error)
}

// AccountRepository stores login accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) ([]*models.Account, error)
}

// OrderCache caches the recent orders list per generation. Readers take the
// generation before reading the store and cache under it; InvalidateRecent
// moves to a new generation.
type OrderCache interface {
	Generation(ctx context.Context) (int64, error)
	// GetRecent returns nil, nil on a cache miss.
	GetRecent(ctx context.Context, gen int64, limit int) ([]*models.Order, error)
	SetRecent(ctx context.Context, gen int64, limit int, orders []*models.Order) error
	InvalidateRecent(ctx context.Context) error
}

// Store is an open connection to one backend.
type Store interface {
	Orders() OrderRepository
	Accounts() AccountRepository
	// Migrate creates indexes or tables, including the unique orderId constraint.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Driver() string
}

// Open connects to the store named by cfg.URI. The connection is meant to be
// opened once per process and closed on shutdown.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch scheme := uriScheme(cfg.URI); scheme {
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, cfg)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", scheme)
	}
}

func uriScheme(uri string) string {
	i := strings.Index(uri, "://")
	if i < 0 {
		return ""
	}
	return strings.ToLower(uri[:i])
}

// newStoreID returns an opaque identity in the same shape MongoDB assigns.
func newStoreID() string {
	return primitive.NewObjectID().Hex()
}
