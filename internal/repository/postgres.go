package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id             TEXT PRIMARY KEY,
	order_id       TEXT NOT NULL,
	product        TEXT NOT NULL,
	quantity       INTEGER NOT NULL,
	total_price    DOUBLE PRECISION NOT NULL,
	customer       JSONB NOT NULL,
	payment_method TEXT NOT NULL,
	payment_status TEXT NOT NULL DEFAULT 'pending',
	paid_at        TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT orders_order_id_unique UNIQUE (order_id)
);
CREATE INDEX IF NOT EXISTS orders_created_at_idx ON orders (created_at DESC);
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS users_username_idx ON users (username);
`

const orderColumns = `id, order_id, product, quantity, total_price, customer,
	payment_method, payment_status, paid_at, created_at`

// PostgresStore is the PostgreSQL backend. Orders keep the customer
// sub-document as JSONB.
type PostgresStore struct {
	db       *sql.DB
	orders   *PostgresOrderRepository
	accounts *PostgresAccountRepository
	logger   *logging.Logger
}

// OpenPostgres opens a connection pool and verifies it.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.URI)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	store := NewPostgresStore(db)
	store.logger.Info("Database connected", logging.Fields{"driver": "postgres"})
	return store, nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:       db,
		orders:   NewPostgresOrderRepository(db),
		accounts: NewPostgresAccountRepository(db),
		logger:   logging.NewLogger("postgres-store"),
	}
}

func (s *PostgresStore) Orders() OrderRepository     { return s.orders }
func (s *PostgresStore) Accounts() AccountRepository { return s.accounts }
func (s *PostgresStore) Driver() string              { return "postgres" }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.logger.Info("Closing database pool")
	return s.db.Close()
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return err
	}
	s.logger.Info("Database schema ensured")
	return nil
}

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logging.NewLogger("order-repository"),
	}
}

// Create inserts a new order.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	customerJSON, err := json.Marshal(order.Customer)
	if err != nil {
		return nil, err
	}

	created := *order
	created.ID = newStoreID()

	query := `
		INSERT INTO orders (
			id, order_id, product, quantity, total_price, customer,
			payment_method, payment_status, paid_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		created.ID,
		created.OrderID,
		created.Product,
		created.Quantity,
		created.TotalPrice,
		customerJSON,
		created.Payment.Method,
		string(created.Payment.Status),
		created.Payment.PaidAt,
		created.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", logging.Fields{
			"order_id": order.OrderID,
			"error":    err.Error(),
		})
		return nil, err
	}

	r.logger.Debug("Order inserted", logging.Fields{
		"id":       created.ID,
		"order_id": created.OrderID,
	})
	return &created, nil
}

// UpdatePayment updates the payment sub-record. paid_at is only overwritten
// when a new value is supplied.
func (r *PostgresOrderRepository) UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, at time.Time) (*models.Order, error) {
	var paidAt *time.Time
	if status == models.PaymentStatusPaid {
		paidAt = &at
	}

	query := `
		UPDATE orders
		SET payment_status = $2, paid_at = COALESCE($3, paid_at)
		WHERE id = $1
		RETURNING ` + orderColumns

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, string(status), paidAt))
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to update payment", logging.Fields{
			"id":    id,
			"error": err.Error(),
		})
		return nil, err
	}

	return order, nil
}

// ListRecent returns the newest orders first.
func (r *PostgresOrderRepository) ListRecent(ctx context.Context, limit int) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var customerJSON []byte
	var status string
	var paidAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.OrderID,
		&order.Product,
		&order.Quantity,
		&order.TotalPrice,
		&customerJSON,
		&order.Payment.Method,
		&status,
		&paidAt,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(customerJSON, &order.Customer); err != nil {
		return nil, err
	}

	order.Payment.Status = models.PaymentStatus(status)
	if paidAt.Valid {
		order.Payment.PaidAt = &paidAt.Time
	}

	return &order, nil
}

// PostgresAccountRepository implements AccountRepository using PostgreSQL.
type PostgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	created := *account
	created.ID = newStoreID()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		created.ID, created.Username, created.PasswordHash, created.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *PostgresAccountRepository) FindByUsername(ctx context.Context, username string) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}
