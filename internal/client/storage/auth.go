package storage

import (
	"context"
	"time"
)

// AuthStorage defines interface for storing the remote session on client.
// This is the lowest storage layer - it works with raw data (already sealed tokens)
// and doesn't perform any encryption/decryption itself.
type AuthStorage interface {
	// SaveAuth stores session data as-is (token should already be sealed)
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored session data as-is
	// Returns ErrAuthNotFound if no session exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored session data
	DeleteAuth(ctx context.Context) error
}

// AuthData represents a cached remote session.
// AccessToken is sealed with a key derived from the replication password;
// the sealing happens in the auth.Session layer.
type AuthData struct {
	ExpiresAt   time.Time `json:"expires_at"`
	RemoteURL   string    `json:"remote_url"`
	Username    string    `json:"username"`
	AccessToken string    `json:"access_token"`
	Salt        string    `json:"salt"`
}

// Valid reports whether the session belongs to remoteURL/username and is not expired.
func (a *AuthData) Valid(remoteURL, username string, now time.Time) bool {
	return a.RemoteURL == remoteURL && a.Username == username && now.Before(a.ExpiresAt)
}
