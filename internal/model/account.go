// Package model defines domain entities for the application.
package model

import "time"

// Account is an authenticated principal with a credit balance.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	Name         *string   `json:"name,omitempty"`
	Credits      int64     `json:"credits"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the authenticated caller attached to a request by the auth gate.
type Identity struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
}
