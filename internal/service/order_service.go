package service

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/repository"
)

// EventPublisher announces order changes to other systems.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishPaymentUpdated(ctx context.Context, order *models.Order) error
}

// OrderService handles order business logic.
type OrderService struct {
	orderRepo      repository.OrderRepository
	orderCache     repository.OrderCache
	eventPublisher EventPublisher
	ids            *OrderIDGenerator
	now            func() time.Time
	config         config.OrdersConfig
	logger         *logging.Logger
}

// NewOrderService creates a new order service. orderCache and eventPublisher
// may be nil when caching or events are disabled.
func NewOrderService(
	orderRepo repository.OrderRepository,
	orderCache repository.OrderCache,
	eventPublisher EventPublisher,
	cfg config.OrdersConfig,
) *OrderService {
	s := &OrderService{
		orderRepo:      orderRepo,
		orderCache:     orderCache,
		eventPublisher: eventPublisher,
		config:         cfg,
		logger:         logging.NewLogger("order-service"),
	}
	s.SetClock(time.Now)
	return s
}

// SetClock replaces the time source used for createdAt, paidAt and order IDs.
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
	s.ids = NewOrderIDGenerator(s.config.IDPrefix, now)
}

func (s *OrderService) timestamp() time.Time {
	// Millisecond precision matches what the document store keeps.
	return s.now().UTC().Truncate(time.Millisecond)
}

// CreateOrder validates req and persists a new pending order.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := ValidateCreateOrderRequest(req); err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderID:    s.ids.Next(),
		Product:    req.Product,
		Quantity:   req.Quantity,
		TotalPrice: req.TotalPrice,
		Customer:   req.Customer,
		Payment: models.Payment{
			Method: s.config.DefaultPaymentMethod,
			Status: models.PaymentStatusPending,
		},
		CreatedAt: s.timestamp(),
	}

	s.logger.Info("Creating order", logging.Fields{
		"order_id": order.OrderID,
		"product":  order.Product,
		"quantity": order.Quantity,
	})

	created, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		s.logger.Error("Failed to create order", logging.Fields{
			"order_id": order.OrderID,
			"error":    err.Error(),
		})
		return nil, errors.NewStoreError("create order", err)
	}

	s.invalidateRecent(ctx)

	if s.eventPublisher != nil {
		if err := s.eventPublisher.PublishOrderCreated(ctx, created); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to publish order created event", logging.Fields{
				"order_id": created.OrderID,
				"error":    err.Error(),
			})
		}
	}

	metrics.OrdersCreated.Inc()

	s.logger.Info("Order created successfully", logging.Fields{
		"id":       created.ID,
		"order_id": created.OrderID,
		"total":    created.TotalPrice,
	})

	return created, nil
}

// UpdatePayment sets the payment status of the order with store identity id.
func (s *OrderService) UpdatePayment(ctx context.Context, id string, req *models.UpdatePaymentRequest) (*models.Order, error) {
	if err := ValidateUpdatePaymentRequest(req); err != nil {
		return nil, err
	}

	s.logger.Info("Updating payment status", logging.Fields{
		"id":         id,
		"new_status": req.Status,
	})

	order, err := s.orderRepo.UpdatePayment(ctx, id, req.Status, s.timestamp())
	if errors.IsNotFound(err) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to update payment", logging.Fields{
			"id":    id,
			"error": err.Error(),
		})
		return nil, errors.NewStoreError("update payment", err)
	}

	s.invalidateRecent(ctx)

	if s.eventPublisher != nil {
		if err := s.eventPublisher.PublishPaymentUpdated(ctx, order); err != nil {
			s.logger.Error("Failed to publish payment updated event", logging.Fields{
				"order_id": order.OrderID,
				"error":    err.Error(),
			})
		}
	}

	metrics.PaymentUpdates.WithLabelValues(string(req.Status)).Inc()

	s.logger.Info("Payment status updated", logging.Fields{
		"id":       order.ID,
		"order_id": order.OrderID,
		"status":   order.Payment.Status,
	})

	return order, nil
}

// ListRecent returns the newest orders, capped at the configured list limit.
func (s *OrderService) ListRecent(ctx context.Context) ([]*models.Order, error) {
	limit := s.config.ListLimit

	if s.orderCache == nil {
		return s.listFromStore(ctx, limit)
	}

	// The generation is read before the store so a list that races a write is
	// cached under a generation that write has already retired.
	gen, err := s.orderCache.Generation(ctx)
	if err != nil {
		s.logger.Warn("Failed to read cache generation", logging.Fields{"error": err.Error()})
		return s.listFromStore(ctx, limit)
	}

	if orders, err := s.orderCache.GetRecent(ctx, gen, limit); err == nil && orders != nil {
		return orders, nil
	}

	orders, err := s.listFromStore(ctx, limit)
	if err != nil {
		return nil, err
	}

	if err := s.orderCache.SetRecent(ctx, gen, limit, orders); err != nil {
		s.logger.Warn("Failed to cache recent orders", logging.Fields{"error": err.Error()})
	}

	return orders, nil
}

func (s *OrderService) listFromStore(ctx context.Context, limit int) ([]*models.Order, error) {
	orders, err := s.orderRepo.ListRecent(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to list orders", logging.Fields{"error": err.Error()})
		return nil, errors.NewStoreError("list orders", err)
	}
	return orders, nil
}

func (s *OrderService) invalidateRecent(ctx context.Context) {
	if s.orderCache == nil {
		return
	}
	if err := s.orderCache.InvalidateRecent(ctx); err != nil {
		s.logger.Warn("Failed to invalidate recent orders cache", logging.Fields{"error": err.Error()})
	}
}
