// Package netwatch периодически проверяет доступность удалённой реплики
// и сообщает о переходах online/offline.
package netwatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval период проверки по умолчанию
const DefaultInterval = 5 * time.Second

const minProbeTimeout = time.Second

// ProbeFunc returns nil when the remote is reachable
type ProbeFunc func(ctx context.Context) error

// Watcher вызывает onChange при смене доступности.
// Первая проверка всегда сообщается.
type Watcher struct {
	probe    ProbeFunc
	onChange func(online bool)
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	known   bool
	online  bool
	lastErr error
}

// New creates a watcher. interval <= 0 selects DefaultInterval.
func New(probe ProbeFunc, interval time.Duration, onChange func(online bool), logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := interval
	if timeout < minProbeTimeout {
		timeout = minProbeTimeout
	}
	return &Watcher{
		probe:    probe,
		onChange: onChange,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Run проверяет сразу и затем с интервалом до отмены ctx.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check runs one probe and reports a transition. Returns the observed state.
func (w *Watcher) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	err := w.probe(probeCtx)
	cancel()

	// Отмена родительского контекста - не признак офлайна
	if ctx.Err() != nil {
		return w.Online()
	}

	online := err == nil

	w.mu.Lock()
	changed := !w.known || w.online != online
	w.known = true
	w.online = online
	w.lastErr = err
	w.mu.Unlock()

	if !changed {
		return online
	}

	if online {
		w.logger.Info("Remote is reachable")
	} else {
		w.logger.Warn("Remote is unreachable", "error", err)
	}
	w.onChange(online)

	return online
}

// Online returns the last observed state; false before the first probe.
func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// LastError ошибка последней проверки
func (w *Watcher) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}
