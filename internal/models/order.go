package models

import "time"

// PaymentStatus is the payment lifecycle tag attached to an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsValid reports whether s is one of the known statuses.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// IsSettlement reports whether s is a status a payment update may set.
func (s PaymentStatus) IsSettlement() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Pincode string `json:"pincode,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type Payment struct {
	Method string        `json:"method"`
	Status PaymentStatus `json:"status"`
	PaidAt *time.Time    `json:"paidAt,omitempty"`
}

// Order is one customer purchase. ID is the store-assigned identity; OrderID is
// the human-readable identifier handed back to customers.
type Order struct {
	ID         string    `json:"_id"`
	OrderID    string    `json:"orderId"`
	Product    string    `json:"product"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"totalPrice"`
	Customer   Customer  `json:"customer"`
	Payment    Payment   `json:"payment"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ApplyPayment moves the order to status. PaidAt is stamped on every
// transition to paid and never cleared.
func (o *Order) ApplyPayment(status PaymentStatus, now time.Time) {
	o.Payment.Status = status
	if status == PaymentStatusPaid {
		paidAt := now
		o.Payment.PaidAt = &paidAt
	}
}

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	Product    string   `json:"product"`
	Quantity   int      `json:"quantity"`
	TotalPrice float64  `json:"totalPrice"`
	Customer   Customer `json:"customer"`
}

// UpdatePaymentRequest is the body of POST /api/orders/:id/payment.
type UpdatePaymentRequest struct {
	Status PaymentStatus `json:"status"`
}

// CreateOrderResponse is returned from a successful order creation.
type CreateOrderResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	OrderID string `json:"orderId"`
}

// UpdatePaymentResponse is returned from a successful payment update.
type UpdatePaymentResponse struct {
	Message string `json:"message"`
	Order   *Order `json:"order"`
}
