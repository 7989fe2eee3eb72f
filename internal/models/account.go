package models

import "time"

// Account is a login record. Only the bcrypt hash of the password is stored.
type Account struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Credentials is the body of POST /create and POST /login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
