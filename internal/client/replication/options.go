package replication

import (
	"context"
	"time"

	pkgapi "github.com/iudanet/docsync/pkg/api"
)

// Значения по умолчанию
const (
	DefaultHeartbeat    = 10 * time.Second
	DefaultRetryTimeout = 30 * time.Second
	DefaultBackoffBase  = time.Second
	DefaultBackoffMax   = time.Minute
	DefaultBatchSize    = 100
	// MaxBatchSize - больше сервер не примет за один запрос
	MaxBatchSize = pkgapi.MaxBatchSize
)

// Options настраивает координатор
type Options struct {
	// Heartbeat - период опроса в непрерывном режиме; лента уведомлений
	// считается «зависшей» после 2×Heartbeat молчания
	Heartbeat time.Duration
	// RetryTimeout ограничивает один раунд (handshake или push+pull)
	RetryTimeout time.Duration
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	BatchSize    int
}

func (o Options) withDefaults() Options {
	if o.Heartbeat <= 0 {
		o.Heartbeat = DefaultHeartbeat
	}
	if o.RetryTimeout <= 0 {
		o.RetryTimeout = DefaultRetryTimeout
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultBackoffBase
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = DefaultBackoffMax
	}
	if o.BackoffMax < o.BackoffBase {
		o.BackoffMax = o.BackoffBase
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	o.BatchSize = min(o.BatchSize, MaxBatchSize)
	return o
}

// retryDelay returns BackoffBase·2^(attempt-1) capped at BackoffMax
func (o Options) retryDelay(attempt int) time.Duration {
	delay := o.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= o.BackoffMax {
			return o.BackoffMax
		}
	}
	if delay > o.BackoffMax {
		return o.BackoffMax
	}
	return delay
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
