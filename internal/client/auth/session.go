// Package auth управляет сессией клиента на удалённой реплике:
// регистрация, вход, кэширование access token в локальной базе.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/validation"
	"github.com/iudanet/docsync/pkg/api"
)

// expirySkew - токен считается истёкшим немного раньше срока
const expirySkew = 30 * time.Second

// ErrNoCredentials сессия без username/password
var ErrNoCredentials = errors.New("credentials are not set")

// Credentials учётные данные репликации
type Credentials struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// IsZero reports whether no username is set
func (c Credentials) IsZero() bool {
	return c.Username == ""
}

//go:generate moq -out remote_mock_test.go . Remote

// Remote is the part of the server API the session needs.
type Remote interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
}

// Session выдаёт access token для remoteURL, логинясь при необходимости
type Session struct {
	remote    Remote
	store     *sealedStore
	logger    *slog.Logger
	now       func() time.Time
	expiresAt time.Time
	remoteURL string
	token     string
	creds     Credentials
	mu        sync.Mutex
}

// NewSession создает сессию. authStorage может быть nil: тогда токен живёт только в памяти.
func NewSession(remoteURL string, remote Remote, authStorage storage.AuthStorage, creds Credentials, logger *slog.Logger) *Session {
	s := &Session{
		remoteURL: remoteURL,
		remote:    remote,
		creds:     creds,
		logger:    logger,
		now:       time.Now,
	}
	if authStorage != nil {
		s.store = &sealedStore{storage: authStorage}
	}
	return s
}

// Token returns a valid access token: from memory, from the sealed cache, or by logging in.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(expirySkew).Before(s.expiresAt) {
		return s.token, nil
	}

	if s.creds.IsZero() || s.creds.Password == "" {
		return "", ErrNoCredentials
	}

	if s.store != nil {
		token, expiresAt, err := s.store.load(ctx, s.remoteURL, s.creds, now.Add(expirySkew))
		switch {
		case err == nil:
			s.logger.Debug("Using cached session", "remote", s.remoteURL, "username", s.creds.Username)
			s.token, s.expiresAt = token, expiresAt
			return token, nil
		case !errors.Is(err, storage.ErrAuthNotFound):
			s.logger.Warn("Failed to read cached session", "error", err)
		}
	}

	return s.login(ctx, now)
}

// login выполняет вход; вызывается под s.mu
func (s *Session) login(ctx context.Context, now time.Time) (string, error) {
	resp, err := s.remote.Login(ctx, api.LoginRequest{
		Username: s.creds.Username,
		Password: s.creds.Password,
	})
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("login failed: empty access token")
	}

	s.token = resp.AccessToken
	s.expiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)

	s.logger.Info("Logged in", "remote", s.remoteURL, "username", s.creds.Username, "expires_at", s.expiresAt)

	if s.store != nil {
		if err := s.store.save(ctx, s.remoteURL, s.creds, s.token, s.expiresAt); err != nil {
			// Сессия работает и без кэша
			s.logger.Warn("Failed to cache session", "error", err)
		}
	}

	return s.token, nil
}

// Invalidate drops the in-memory and cached token, e.g. after a 401.
func (s *Session) Invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.expiresAt = time.Time{}
	if s.store != nil {
		if err := s.store.delete(ctx); err != nil {
			s.logger.Warn("Failed to delete cached session", "error", err)
		}
	}
}

// SetCredentials replaces the credentials and drops the current token.
func (s *Session) SetCredentials(ctx context.Context, creds Credentials) {
	s.mu.Lock()
	changed := s.creds != creds
	s.creds = creds
	s.mu.Unlock()

	if changed {
		s.Invalidate(ctx)
	}
}

// Credentials returns the current credentials
func (s *Session) Credentials() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// Register регистрирует пользователя с текущими учётными данными
func (s *Session) Register(ctx context.Context) (string, error) {
	creds := s.Credentials()

	if err := validation.ValidateUsername(creds.Username); err != nil {
		return "", fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(creds.Password); err != nil {
		return "", fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.remote.Register(ctx, api.RegisterRequest{
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		return "", fmt.Errorf("registration failed: %w", err)
	}

	s.logger.Info("Registered", "remote", s.remoteURL, "username", creds.Username, "user_id", resp.UserID)
	return resp.UserID, nil
}

// Logout удаляет кэшированную сессию
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.expiresAt = time.Time{}
	if s.store == nil {
		return nil
	}
	if err := s.store.delete(ctx); err != nil {
		return fmt.Errorf("failed to delete local session: %w", err)
	}
	return nil
}
