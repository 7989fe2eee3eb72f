package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
)

// Account routes answer in plain text, as the landing page expects.

// CreateAccount handles POST /create
func (h *Handlers) CreateAccount(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.String(http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.accountService.CreateAccount(c.Request.Context(), &creds); err != nil {
		if validationErr, ok := errors.AsValidation(err); ok {
			c.String(http.StatusBadRequest, validationErr.Message)
			return
		}
		h.logger.Error("Create account failed", logging.Fields{"error": err.Error()})
		c.String(http.StatusInternalServerError, "Error creating user")
		return
	}

	c.String(http.StatusOK, "Account Created")
}

// Login handles POST /login
func (h *Handlers) Login(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.String(http.StatusBadRequest, "invalid request body")
		return
	}

	ok, err := h.accountService.Login(c.Request.Context(), &creds)
	if err != nil {
		h.logger.Error("Login failed", logging.Fields{"error": err.Error()})
		c.String(http.StatusInternalServerError, "Server Error")
		return
	}

	if !ok {
		c.String(http.StatusOK, "Invalid Username or Password")
		return
	}
	c.String(http.StatusOK, "Success")
}
