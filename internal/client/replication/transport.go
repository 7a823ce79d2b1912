package replication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/docsync/internal/client/api"
	"github.com/iudanet/docsync/internal/client/auth"
	"github.com/iudanet/docsync/internal/client/storage"
	pkgapi "github.com/iudanet/docsync/pkg/api"
)

//go:generate moq -out transport_mock_test.go . Transport Feed

// Transport is the coordinator's view of one remote replica.
type Transport interface {
	// Handshake checks that the remote is reachable and accepts the credentials
	Handshake(ctx context.Context) error
	// Changes returns remote revisions with seq > since
	Changes(ctx context.Context, since int64, limit int) (*pkgapi.ChangesResponse, error)
	// Push uploads local revisions
	Push(ctx context.Context, revs []pkgapi.Revision) (*pkgapi.PushResponse, error)
	// OpenFeed subscribes to remote change notifications
	OpenFeed(ctx context.Context, readTimeout time.Duration) (Feed, error)
	// SetCredentials replaces the credentials used for the next login
	SetCredentials(ctx context.Context, creds auth.Credentials)
}

// Feed - поток уведомлений о новых ревизиях на сервере
type Feed interface {
	Next() (*pkgapi.FeedNotification, error)
	Close() error
}

// Connector builds the Transport for an endpoint
type Connector func(endpoint string, creds auth.Credentials) Transport

// IsAuthError reports whether err means the credentials were rejected or are missing.
// Such errors are never retried automatically.
func IsAuthError(err error) bool {
	return errors.Is(err, api.ErrUnauthorized) || errors.Is(err, auth.ErrNoCredentials)
}

// IsRejection reports whether the server refused the request outright
// (a 4xx other than 408 and 429). Repeating it gets the same answer.
func IsRejection(err error) bool {
	var he *api.HTTPError
	return errors.As(err, &he) && !api.IsRetryable(err)
}

// remoteTransport - Transport поверх HTTP-клиента и сессии
type remoteTransport struct {
	client  *api.Client
	session *auth.Session
	logger  *slog.Logger
}

// NewConnector returns a Connector talking HTTP to the server and caching the
// session in authStorage (may be nil).
func NewConnector(authStorage storage.AuthStorage, logger *slog.Logger) Connector {
	return func(endpoint string, creds auth.Credentials) Transport {
		client := api.NewClient(endpoint)
		return &remoteTransport{
			client:  client,
			session: auth.NewSession(client.BaseURL(), client, authStorage, creds, logger),
			logger:  logger,
		}
	}
}

func (t *remoteTransport) Handshake(ctx context.Context) error {
	if _, err := t.client.Health(ctx); err != nil {
		return fmt.Errorf("remote unreachable: %w", err)
	}
	if _, err := t.session.Token(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	return nil
}

func (t *remoteTransport) Changes(ctx context.Context, since int64, limit int) (*pkgapi.ChangesResponse, error) {
	var resp *pkgapi.ChangesResponse
	err := t.withToken(ctx, func(token string) error {
		var err error
		resp, err = t.client.Changes(ctx, token, since, limit)
		return err
	})
	return resp, err
}

func (t *remoteTransport) Push(ctx context.Context, revs []pkgapi.Revision) (*pkgapi.PushResponse, error) {
	var resp *pkgapi.PushResponse
	err := t.withToken(ctx, func(token string) error {
		var err error
		resp, err = t.client.PushRevisions(ctx, token, revs)
		return err
	})
	return resp, err
}

func (t *remoteTransport) OpenFeed(ctx context.Context, readTimeout time.Duration) (Feed, error) {
	var feed *api.Feed
	err := t.withToken(ctx, func(token string) error {
		var err error
		feed, err = t.client.OpenFeed(ctx, token, readTimeout)
		return err
	})
	if err != nil {
		return nil, err
	}
	return feed, nil
}

func (t *remoteTransport) SetCredentials(ctx context.Context, creds auth.Credentials) {
	t.session.SetCredentials(ctx, creds)
}

// withToken выполняет fn с токеном; при 401 один раз перелогинивается
func (t *remoteTransport) withToken(ctx context.Context, fn func(token string) error) error {
	token, err := t.session.Token(ctx)
	if err != nil {
		return err
	}

	err = fn(token)
	if !errors.Is(err, api.ErrUnauthorized) {
		return err
	}

	t.logger.Debug("Access token rejected, logging in again")
	t.session.Invalidate(ctx)

	token, err = t.session.Token(ctx)
	if err != nil {
		return err
	}
	return fn(token)
}
