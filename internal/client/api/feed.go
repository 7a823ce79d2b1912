package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/docsync/pkg/api"
)

// Feed - подписка на уведомления сервера о новых ревизиях
type Feed struct {
	conn        *websocket.Conn
	readTimeout time.Duration
}

// OpenFeed connects to the websocket change feed. readTimeout bounds how long
// the feed may stay silent (server pings included) before Next fails.
func (c *Client) OpenFeed(ctx context.Context, token string, readTimeout time.Duration) (*Feed, error) {
	wsURL, err := websocketURL(c.baseURL + "/api/v1/changes/feed")
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, statusError("feed", resp.StatusCode, nil)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Op: "feed", Err: err}
	}

	f := &Feed{conn: conn, readTimeout: readTimeout}
	f.extendDeadline()
	conn.SetPingHandler(func(data string) error {
		f.extendDeadline()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	return f, nil
}

// Next blocks until the next notification arrives
func (f *Feed) Next() (*api.FeedNotification, error) {
	var n api.FeedNotification
	if err := f.conn.ReadJSON(&n); err != nil {
		return nil, &TransportError{Op: "feed", Err: err}
	}
	f.extendDeadline()
	return &n, nil
}

// Close закрывает соединение
func (f *Feed) Close() error {
	_ = f.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return f.conn.Close()
}

func (f *Feed) extendDeadline() {
	if f.readTimeout > 0 {
		_ = f.conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	}
}

func websocketURL(httpURL string) (string, error) {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://"), nil
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://"), nil
	}
	return "", fmt.Errorf("unsupported server url %q", httpURL)
}
