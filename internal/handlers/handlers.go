package handlers

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/service"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers for the bakery orders service.
type Handlers struct {
	orderService   *service.OrderService
	accountService *service.AccountService
	store          Pinger
	logger         *logging.Logger
}

// NewHandlers creates a new handlers instance. accountService may be nil when
// accounts are disabled.
func NewHandlers(
	orderService *service.OrderService,
	accountService *service.AccountService,
	store Pinger,
) *Handlers {
	return &Handlers{
		orderService:   orderService,
		accountService: accountService,
		store:          store,
		logger:         logging.NewLogger("handlers"),
	}
}
