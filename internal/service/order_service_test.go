package service

import (
	"context"
	stderrors "errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/repository"
)

var orderIDPattern = regexp.MustCompile(`^FL\d{8}$`)

var testOrdersConfig = config.OrdersConfig{
	IDPrefix:             "FL",
	DefaultPaymentMethod: "UPI",
	ListLimit:            200,
}

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type recordingPublisher struct {
	created []string
	updated []string
	err     error
}

func (p *recordingPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.created = append(p.created, order.OrderID)
	return p.err
}

func (p *recordingPublisher) PublishPaymentUpdated(ctx context.Context, order *models.Order) error {
	p.updated = append(p.updated, order.OrderID)
	return p.err
}

type failingOrderRepo struct {
	err error
}

func (r *failingOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return nil, r.err
}

func (r *failingOrderRepo) UpdatePayment(ctx context.Context, id string, status models.PaymentStatus, at time.Time) (*models.Order, error) {
	return nil, r.err
}

func (r *failingOrderRepo) ListRecent(ctx context.Context, limit int) ([]*models.Order, error) {
	return nil, r.err
}

// pausingOrderRepo holds the first ListRecent after it has read the store
// until release is closed.
type pausingOrderRepo struct {
	*repository.MemoryOrderRepository
	listed  chan struct{}
	release chan struct{}
	once    sync.Once
}

func newPausingOrderRepo(repo *repository.MemoryOrderRepository) *pausingOrderRepo {
	return &pausingOrderRepo{
		MemoryOrderRepository: repo,
		listed:                make(chan struct{}),
		release:               make(chan struct{}),
	}
}

func (r *pausingOrderRepo) ListRecent(ctx context.Context, limit int) ([]*models.Order, error) {
	orders, err := r.MemoryOrderRepository.ListRecent(ctx, limit)
	r.once.Do(func() {
		close(r.listed)
		<-r.release
	})
	return orders, err
}

func validCreateRequest() *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		Product:    "Croissant",
		Quantity:   2,
		TotalPrice: 5.0,
		Customer: models.Customer{
			Name:    "A",
			Phone:   "123",
			Address: "X",
		},
	}
}

type OrderServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	repo      *repository.MemoryOrderRepository
	publisher *recordingPublisher
	clock     *stepClock
	svc       *OrderService
}

func (s *OrderServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = repository.NewMemoryOrderRepository()
	s.publisher = &recordingPublisher{}
	s.clock = &stepClock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), step: time.Second}
	s.svc = NewOrderService(s.repo, nil, s.publisher, testOrdersConfig)
	s.svc.SetClock(s.clock.Now)
}

func (s *OrderServiceTestSuite) TestCreateOrder_Success() {
	order, err := s.svc.CreateOrder(s.ctx, validCreateRequest())
	s.Require().NoError(err)

	s.Regexp(orderIDPattern, order.OrderID)
	s.NotEmpty(order.ID)
	s.Equal(models.PaymentStatusPending, order.Payment.Status)
	s.Equal("UPI", order.Payment.Method)
	s.Nil(order.Payment.PaidAt)
	s.False(order.CreatedAt.IsZero())
	s.Equal(1, s.repo.Count())
	s.Equal([]string{order.OrderID}, s.publisher.created)
}

func (s *OrderServiceTestSuite) TestCreateOrder_MissingFieldsPersistNothing() {
	tests := []struct {
		name   string
		mutate func(r *models.CreateOrderRequest)
		field  string
	}{
		{"product", func(r *models.CreateOrderRequest) { r.Product = "" }, "product"},
		{"blank product", func(r *models.CreateOrderRequest) { r.Product = "   " }, "product"},
		{"quantity", func(r *models.CreateOrderRequest) { r.Quantity = 0 }, "quantity"},
		{"totalPrice", func(r *models.CreateOrderRequest) { r.TotalPrice = 0 }, "totalPrice"},
		{"customer.name", func(r *models.CreateOrderRequest) { r.Customer.Name = "" }, "customer.name"},
		{"customer.phone", func(r *models.CreateOrderRequest) { r.Customer.Phone = "" }, "customer.phone"},
		{"customer.address", func(r *models.CreateOrderRequest) { r.Customer.Address = "" }, "customer.address"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := validCreateRequest()
			tt.mutate(req)

			order, err := s.svc.CreateOrder(s.ctx, req)
			s.Nil(order)

			v, ok := errors.AsValidation(err)
			s.Require().True(ok, "expected a validation error, got %v", err)
			s.Equal("Missing required fields", v.Message)
			s.Equal([]string{tt.field}, v.Fields)
			s.Equal(0, s.repo.Count())
		})
	}
	s.Empty(s.publisher.created)
}

func (s *OrderServiceTestSuite) TestCreateOrder_OptionalFieldsKept() {
	req := validCreateRequest()
	req.Customer.Pincode = "560001"
	req.Customer.Notes = "ring twice"

	order, err := s.svc.CreateOrder(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("560001", order.Customer.Pincode)
	s.Equal("ring twice", order.Customer.Notes)
}

func (s *OrderServiceTestSuite) TestCreateOrder_UniqueIDsUnderFrozenClock() {
	frozen := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s.svc.SetClock(func() time.Time { return frozen })

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		order, err := s.svc.CreateOrder(s.ctx, validCreateRequest())
		s.Require().NoError(err)
		s.Regexp(orderIDPattern, order.OrderID)
		s.False(seen[order.OrderID], "duplicate order ID %s", order.OrderID)
		seen[order.OrderID] = true
	}
}

func (s *OrderServiceTestSuite) TestCreateOrder_StoreError() {
	svc := NewOrderService(&failingOrderRepo{err: stderrors.New("connection refused")}, nil, s.publisher, testOrdersConfig)

	_, err := svc.CreateOrder(s.ctx, validCreateRequest())
	s.True(errors.IsStore(err))
	s.Empty(s.publisher.created)
}

func (s *OrderServiceTestSuite) TestCreateOrder_PublishFailureDoesNotFail() {
	s.publisher.err = stderrors.New("broker down")

	order, err := s.svc.CreateOrder(s.ctx, validCreateRequest())
	s.Require().NoError(err)
	s.NotNil(order)
}

func (s *OrderServiceTestSuite) TestUpdatePayment_Paid() {
	order, err := s.svc.CreateOrder(s.ctx, validCreateRequest())
	s.Require().NoError(err)

	updated, err := s.svc.UpdatePayment(s.ctx, order.ID, &models.UpdatePaymentRequest{Status: models.PaymentStatusPaid})
	s.Require().NoError(err)
	s.Equal(models.PaymentStatusPaid, updated.Payment.Status)
	s.Require().NotNil(updated.Payment.PaidAt)
	s.True(updated.Payment.PaidAt.After(order.CreatedAt))
	s.Equal(order.OrderID, updated.OrderID)
	s.Equal(order.Customer, updated.Customer)
	s.Equal([]string{order.OrderID}, s.publisher.updated)
}

func (s *OrderServiceTestSuite) TestUpdatePayment_FailedLeavesPaidAtUnset() {
	order, err := s.svc.CreateOrder(s.ctx, validCreateRequest())
	s.Require().NoError(err)

	updated, err := s.svc.UpdatePayment(s.ctx, order.ID, &models.UpdatePaymentRequest{Status: models.PaymentStatusFailed})
	s.Require().NoError(err)
	s.Equal(models.PaymentStatusFailed, updated.Payment.Status)
	s.Nil(updated.Payment.PaidAt)
}

func (s *OrderServiceTestSuite) TestUpdatePayment_FailedAfterPaidKeepsPaidAt() {
	order, err := s.svc.CreateOrder(s.ctx, validCreateRequest())
	s.Require().NoError(err)

	paid, err := s.svc.UpdatePayment(s.ctx, order.ID, &models.UpdatePaymentRequest{Status: models.PaymentStatusPaid})
	s.Require().NoError(err)

	failed, err := s.svc.UpdatePayment(s.ctx, order.ID, &models.UpdatePaymentRequest{Status: models.PaymentStatusFailed})
	s.Require().NoError(err)
	s.Require().NotNil(failed.Payment.PaidAt)
	s.True(failed.Payment.PaidAt.Equal(*paid.Payment.PaidAt))
}

func (s *OrderServiceTestSuite) TestUpdatePayment_InvalidStatusLeavesOrderUnchanged() {
	order, err := s.svc.CreateOrder(s.ctx, validCreateRequest())
	s.Require().NoError(err)

	for _, status := range []models.PaymentStatus{"", "pending", "refunded", "PAID"} {
		_, err := s.svc.UpdatePayment(s.ctx, order.ID, &models.UpdatePaymentRequest{Status: status})
		v, ok := errors.AsValidation(err)
		s.Require().True(ok, "status %q: expected validation error, got %v", status, err)
		s.Equal("Invalid status", v.Message)
	}

	stored, ok := s.repo.Get(order.ID)
	s.Require().True(ok)
	s.Equal(order, stored)
	s.Empty(s.publisher.updated)
}

func (s *OrderServiceTestSuite) TestUpdatePayment_NotFound() {
	_, err := s.svc.UpdatePayment(s.ctx, "652f1c0e8a1b2c3d4e5f6a7b", &models.UpdatePaymentRequest{Status: models.PaymentStatusPaid})
	s.ErrorIs(err, errors.ErrNotFound)
}

func (s *OrderServiceTestSuite) TestUpdatePayment_StoreError() {
	svc := NewOrderService(&failingOrderRepo{err: stderrors.New("timeout")}, nil, nil, testOrdersConfig)

	_, err := svc.UpdatePayment(s.ctx, "652f1c0e8a1b2c3d4e5f6a7b", &models.UpdatePaymentRequest{Status: models.PaymentStatusPaid})
	s.True(errors.IsStore(err))
}

func (s *OrderServiceTestSuite) TestListRecent_NewestFirst() {
	var ids []string
	for i := 0; i < 3; i++ {
		order, err := s.svc.CreateOrder(s.ctx, validCreateRequest())
		s.Require().NoError(err)
		ids = append(ids, order.OrderID)
	}

	orders, err := s.svc.ListRecent(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(orders, 3)
	s.Equal(ids[2], orders[0].OrderID)
	s.Equal(ids[1], orders[1].OrderID)
	s.Equal(ids[0], orders[2].OrderID)
}

func (s *OrderServiceTestSuite) TestListRecent_CappedAt200() {
	for i := 0; i < 250; i++ {
		_, err := s.svc.CreateOrder(s.ctx, validCreateRequest())
		s.Require().NoError(err)
	}

	orders, err := s.svc.ListRecent(s.ctx)
	s.Require().NoError(err)
	s.Len(orders, 200)
	for i := 1; i < len(orders); i++ {
		s.True(orders[i-1].CreatedAt.After(orders[i].CreatedAt))
	}
}

func (s *OrderServiceTestSuite) TestListRecent_RoundTrip() {
	req := validCreateRequest()
	req.Customer.Pincode = "560001"
	req.Customer.Notes = "no nuts"

	created, err := s.svc.CreateOrder(s.ctx, req)
	s.Require().NoError(err)

	orders, err := s.svc.ListRecent(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)

	got := orders[0]
	s.Equal(created.ID, got.ID)
	s.Equal(created.OrderID, got.OrderID)
	s.Equal(req.Product, got.Product)
	s.Equal(req.Quantity, got.Quantity)
	s.Equal(req.TotalPrice, got.TotalPrice)
	s.Equal(req.Customer, got.Customer)
	s.Equal(models.Payment{Method: "UPI", Status: models.PaymentStatusPending}, got.Payment)
	s.True(created.CreatedAt.Equal(got.CreatedAt))
}

func (s *OrderServiceTestSuite) TestListRecent_StoreError() {
	svc := NewOrderService(&failingOrderRepo{err: stderrors.New("timeout")}, nil, nil, testOrdersConfig)

	_, err := svc.ListRecent(s.ctx)
	s.True(errors.IsStore(err))
}

func (s *OrderServiceTestSuite) TestListRecent_UsesCache() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := repository.NewRedisOrderCacheWithClient(client, time.Minute)
	svc := NewOrderService(s.repo, cache, nil, testOrdersConfig)
	svc.SetClock(s.clock.Now)

	first, err := svc.CreateOrder(s.ctx, validCreateRequest())
	s.Require().NoError(err)

	orders, err := svc.ListRecent(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)

	// Writes that bypass the service are not visible until the cache is invalidated.
	_, err = s.repo.UpdatePayment(s.ctx, first.ID, models.PaymentStatusPaid, time.Now())
	s.Require().NoError(err)

	cached, err := svc.ListRecent(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.PaymentStatusPending, cached[0].Payment.Status)

	_, err = svc.CreateOrder(s.ctx, validCreateRequest())
	s.Require().NoError(err)

	fresh, err := svc.ListRecent(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(fresh, 2)
	s.Equal(models.PaymentStatusPaid, fresh[1].Payment.Status)
}

func (s *OrderServiceTestSuite) TestListRecent_CacheDownFallsBackToStore() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	svc := NewOrderService(s.repo, repository.NewRedisOrderCacheWithClient(client, time.Minute), nil, testOrdersConfig)

	_, err := svc.CreateOrder(s.ctx, validCreateRequest())
	s.Require().NoError(err)

	orders, err := svc.ListRecent(s.ctx)
	s.Require().NoError(err)
	s.Len(orders, 1)
}

func (s *OrderServiceTestSuite) TestListRecent_CreateDuringListIsNotHiddenByCache() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := newPausingOrderRepo(s.repo)
	svc := NewOrderService(repo, repository.NewRedisOrderCacheWithClient(client, time.Minute), nil, testOrdersConfig)
	svc.SetClock(s.clock.Now)

	type listResult struct {
		orders []*models.Order
		err    error
	}
	done := make(chan listResult, 1)
	go func() {
		orders, err := svc.ListRecent(s.ctx)
		done <- listResult{orders: orders, err: err}
	}()

	// The list has read an empty store and is about to cache that snapshot.
	<-repo.listed
	created, err := svc.CreateOrder(s.ctx, validCreateRequest())
	s.Require().NoError(err)
	close(repo.release)

	first := <-done
	s.Require().NoError(first.err)
	s.Empty(first.orders)

	orders, err := svc.ListRecent(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal(created.OrderID, orders[0].OrderID)
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}
