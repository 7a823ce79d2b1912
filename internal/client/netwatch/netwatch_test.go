package netwatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/client/api"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// transitions запоминает вызовы onChange
type transitions struct {
	got []bool
	mu  sync.Mutex
}

func (tr *transitions) record(online bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.got = append(tr.got, online)
}

func (tr *transitions) all() []bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]bool(nil), tr.got...)
}

func TestWatcher_Check(t *testing.T) {
	ctx := context.Background()
	var down atomic.Bool
	probe := func(context.Context) error {
		if down.Load() {
			return errors.New("connection refused")
		}
		return nil
	}

	tr := &transitions{}
	w := New(probe, time.Second, tr.record, discardLogger())
	assert.False(t, w.Online())

	assert.True(t, w.Check(ctx))
	assert.True(t, w.Check(ctx), "no transition, no callback")

	down.Store(true)
	assert.False(t, w.Check(ctx))
	assert.Error(t, w.LastError())
	assert.False(t, w.Check(ctx))

	down.Store(false)
	assert.True(t, w.Check(ctx))
	assert.NoError(t, w.LastError())

	assert.Equal(t, []bool{true, false, true}, tr.all())
}

func TestWatcher_FirstProbeOffline(t *testing.T) {
	tr := &transitions{}
	w := New(func(context.Context) error { return errors.New("down") }, time.Second, tr.record, discardLogger())

	assert.False(t, w.Check(context.Background()))
	assert.Equal(t, []bool{false}, tr.all())
}

func TestWatcher_CanceledContext(t *testing.T) {
	tr := &transitions{}
	w := New(func(ctx context.Context) error { return ctx.Err() }, time.Second, tr.record, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Check(ctx)
	assert.Empty(t, tr.all())
}

func TestWatcher_Run(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	probe := func(ctx context.Context) error {
		_, err := client.Health(ctx)
		return err
	}

	tr := &transitions{}
	w := New(probe, 20*time.Millisecond, tr.record, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(tr.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, w.Online())

	healthy.Store(false)
	require.Eventually(t, func() bool { return !w.Online() }, time.Second, 5*time.Millisecond)

	healthy.Store(true)
	require.Eventually(t, w.Online, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, []bool{true, false, true}, tr.all())
}

func TestNew_DefaultInterval(t *testing.T) {
	w := New(func(context.Context) error { return nil }, 0, func(bool) {}, discardLogger())
	assert.Equal(t, DefaultInterval, w.interval)
}
