package service

import (
	"strings"

	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
)

const (
	msgMissingFields = "Missing required fields"
	msgInvalidStatus = "Invalid status"
)

// ValidateCreateOrderRequest checks that every required field is present.
// Zero quantity or price counts as missing. All offending fields are reported.
func ValidateCreateOrderRequest(req *models.CreateOrderRequest) error {
	var missing []string

	if isBlank(req.Product) {
		missing = append(missing, "product")
	}
	if req.Quantity <= 0 {
		missing = append(missing, "quantity")
	}
	if req.TotalPrice <= 0 {
		missing = append(missing, "totalPrice")
	}
	if isBlank(req.Customer.Name) {
		missing = append(missing, "customer.name")
	}
	if isBlank(req.Customer.Phone) {
		missing = append(missing, "customer.phone")
	}
	if isBlank(req.Customer.Address) {
		missing = append(missing, "customer.address")
	}

	if len(missing) > 0 {
		return errors.NewValidationError(msgMissingFields, missing...)
	}
	return nil
}

// ValidateUpdatePaymentRequest accepts only the settlement statuses.
func ValidateUpdatePaymentRequest(req *models.UpdatePaymentRequest) error {
	if !req.Status.IsSettlement() {
		return errors.NewValidationError(msgInvalidStatus, "status")
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
