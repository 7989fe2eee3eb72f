package service

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/errors"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past 72 bytes, so longer passwords are rejected.
const maxPasswordBytes = 72

// AccountService creates accounts and checks credentials. Passwords are
// stored as bcrypt hashes only.
type AccountService struct {
	accountRepo repository.AccountRepository
	hashCost    int
	logger      *logging.Logger
}

// NewAccountService creates an account service. A zero hashCost uses
// bcrypt.DefaultCost.
func NewAccountService(accountRepo repository.AccountRepository, hashCost int) *AccountService {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &AccountService{
		accountRepo: accountRepo,
		hashCost:    hashCost,
		logger:      logging.NewLogger("account-service"),
	}
}

// CreateAccount stores a new account. Usernames are not checked for duplicates.
func (s *AccountService) CreateAccount(ctx context.Context, creds *models.Credentials) (*models.Account, error) {
	if len(creds.Password) > maxPasswordBytes {
		return nil, errors.NewValidationError("Password too long", "password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.Create(ctx, &models.Account{
		Username:     creds.Username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		s.logger.Error("Failed to create account", logging.Fields{
			"username": creds.Username,
			"error":    err.Error(),
		})
		return nil, errors.NewStoreError("create account", err)
	}

	s.logger.Info("Account created", logging.Fields{"username": creds.Username})
	return account, nil
}

// Login reports whether an account with this username has a matching password.
func (s *AccountService) Login(ctx context.Context, creds *models.Credentials) (bool, error) {
	accounts, err := s.accountRepo.FindByUsername(ctx, creds.Username)
	if err != nil {
		s.logger.Error("Failed to look up account", logging.Fields{
			"username": creds.Username,
			"error":    err.Error(),
		})
		return false, errors.NewStoreError("find account", err)
	}

	for _, a := range accounts {
		if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(creds.Password)) == nil {
			return true, nil
		}
	}

	s.logger.Debug("Login rejected", logging.Fields{
		"username":   creds.Username,
		"candidates": len(accounts),
	})
	return false, nil
}
