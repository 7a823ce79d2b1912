// Package replication - координатор репликации между локальной и удалённой репликой.
//
// Coordinator владеет конечным автоматом SyncStatus:
//
//	Disconnected → Connecting → Active ⇄ UpToDate
//	Error, Offline - из любого подключённого состояния
//
// Непрерывная сессия выполняет раунды push+pull в своей горутине; разовые
// операции (ForceSync, PushOnce, PullOnce) обновляют общие поля статуса,
// но не фазу.
package replication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/iudanet/docsync/internal/client/auth"
	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/events"
	"github.com/iudanet/docsync/internal/models"
	pkgapi "github.com/iudanet/docsync/pkg/api"
)

// ErrNotConnected - удалённая реплика не настроена или клиент офлайн
var ErrNotConnected = errors.New("replication is not connected")

// Direction направление раунда
type Direction string

const (
	DirectionPush Direction = "push"
	DirectionPull Direction = "pull"
	DirectionBoth Direction = "both"
)

// Mode режим сессии
type Mode string

const (
	ModeOneShot    Mode = "oneshot"
	ModeContinuous Mode = "continuous"
)

// Store is the part of the local replica replication needs.
type Store interface {
	ChangesSince(ctx context.Context, since uint64, limit int, includeRemote bool) ([]models.Change, uint64, error)
	ApplyBatch(ctx context.Context, entries []*models.RevisionEntry) ([]string, error)
}

// Scanner resolves conflicts among documents touched by an inbound batch
type Scanner interface {
	Scan(ctx context.Context, ids []string) (int, error)
}

// Bus - шина событий координатора
type Bus interface {
	events.Publisher
	Subscribe(handler events.Handler, types ...events.Type) func()
}

// Result итог одного раунда
type Result struct {
	Pushed   int // отправлено локальных ревизий
	Pulled   int // документов, изменённых входящими ревизиями
	Resolved int // конфликтов, разрешённых детектором
}

// Changed reports whether the round moved anything in either direction.
func (r Result) Changed() bool {
	return r.Pushed > 0 || r.Pulled > 0
}

// session - непрерывная сессия репликации
type session struct {
	cancel context.CancelFunc
	done   chan struct{}
	id     string
}

func (s *session) stop() {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Coordinator drives replication between the local store and one remote.
type Coordinator struct {
	store     Store
	meta      storage.MetadataStorage
	scanner   Scanner
	bus       Bus
	connect   Connector
	logger    *slog.Logger
	transport Transport
	session   *session
	wake      chan struct{}
	now       func() time.Time
	endpoint  string
	creds     auth.Credentials
	status    models.SyncStatus
	flight    singleflight.Group
	opts      Options
	epoch     uint64
	mu        sync.Mutex
	roundMu   sync.Mutex
	enabled   bool
}

// New создает координатор в состоянии Disconnected
func New(store Store, meta storage.MetadataStorage, scanner Scanner, bus Bus, connect Connector, logger *slog.Logger, opts Options) *Coordinator {
	c := &Coordinator{
		store:   store,
		meta:    meta,
		scanner: scanner,
		bus:     bus,
		connect: connect,
		logger:  logger,
		opts:    opts.withDefaults(),
		wake:    make(chan struct{}, 1),
		now:     func() time.Time { return time.Now().UTC() },
		status: models.SyncStatus{
			Phase:    models.PhaseDisconnected,
			IsOnline: true,
		},
	}
	observePhase(c.status.Phase)
	return c
}

// Status returns a snapshot of the sync status
func (c *Coordinator) Status() models.SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Endpoint returns the configured remote URL
func (c *Coordinator) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// Configure sets the remote endpoint for one-shot operations without starting
// continuous replication. A running session is stopped.
func (c *Coordinator) Configure(endpoint string, creds auth.Credentials) {
	c.mu.Lock()
	c.epoch++
	sess := c.session
	c.session = nil
	c.configureLocked(endpoint, creds)
	if c.enabled {
		c.enabled = false
		c.resetLocked()
	}
	c.mu.Unlock()

	sess.stop()
}

func (c *Coordinator) configureLocked(endpoint string, creds auth.Credentials) {
	c.endpoint = endpoint
	c.creds = creds
	c.transport = nil
	if endpoint != "" {
		c.transport = c.connect(endpoint, creds)
	}
}

// Enable starts continuous replication with endpoint.
//
// The handshake runs synchronously: on failure the phase becomes Error, the
// error is returned and nothing is retried until Reconnect or another Enable.
func (c *Coordinator) Enable(ctx context.Context, endpoint string, creds auth.Credentials) error {
	if endpoint == "" {
		return fmt.Errorf("%w: empty endpoint", ErrNotConnected)
	}

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	sess := c.session
	c.session = nil
	c.configureLocked(endpoint, creds)
	c.enabled = true
	c.mu.Unlock()

	sess.stop()

	c.logger.Info("Replication enabled", "remote", endpoint, "username", creds.Username)
	return c.start(ctx, epoch)
}

// Reconnect restarts the continuous session with the current endpoint and credentials.
func (c *Coordinator) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.transport == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.epoch++
	epoch := c.epoch
	sess := c.session
	c.session = nil
	c.enabled = true
	c.mu.Unlock()

	sess.stop()

	c.logger.Info("Reconnecting", "remote", c.Endpoint())
	return c.start(ctx, epoch)
}

// start выполняет handshake и запускает сессию
func (c *Coordinator) start(ctx context.Context, epoch uint64) error {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return nil
	}
	if !c.status.IsOnline {
		c.setPhaseLocked(models.PhaseOffline)
		c.mu.Unlock()
		return nil
	}
	t := c.transport
	c.setPhaseLocked(models.PhaseConnecting)
	c.mu.Unlock()

	hctx, cancel := context.WithTimeout(ctx, c.opts.RetryTimeout)
	err := t.Handshake(hctx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		// Пока шёл handshake, координатор остановили или перенастроили
		return nil
	}

	if err != nil {
		c.logger.Error("Handshake failed", "remote", c.endpoint, "error", err)
		c.failLocked(err)
		return fmt.Errorf("handshake failed: %w", err)
	}

	c.status.IsConnected = true
	c.setPhaseLocked(models.PhaseActive)
	c.startSessionLocked(t, false)
	return nil
}

// startSessionLocked запускает горутину непрерывной сессии
func (c *Coordinator) startSessionLocked(t Transport, needHandshake bool) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.session = s
	epoch := c.epoch

	go func() {
		defer close(s.done)
		c.run(ctx, s.id, epoch, t, needHandshake)
	}()
}

// Disable cancels the session, waits for it and resets the status to Disconnected.
func (c *Coordinator) Disable() {
	c.mu.Lock()
	c.epoch++
	sess := c.session
	c.session = nil
	c.enabled = false
	c.resetLocked()
	c.mu.Unlock()

	sess.stop()
	c.logger.Info("Replication disabled")
}

func (c *Coordinator) resetLocked() {
	c.status = models.SyncStatus{
		Phase:    models.PhaseDisconnected,
		IsOnline: c.status.IsOnline,
	}
	c.publishLocked()
}

// SetOnline reports network connectivity. Going offline pre-empts the session
// and any pending retry; coming back online reconnects if replication is enabled.
func (c *Coordinator) SetOnline(online bool) {
	c.mu.Lock()
	if c.status.IsOnline == online {
		c.mu.Unlock()
		return
	}

	c.epoch++
	sess := c.session
	c.session = nil
	c.status.IsOnline = online

	switch {
	case !online && c.enabled:
		c.status.IsConnected = false
		c.setPhaseLocked(models.PhaseOffline)
	case online && c.enabled && c.transport != nil:
		c.setPhaseLocked(models.PhaseConnecting)
		c.startSessionLocked(c.transport, true)
	default:
		c.publishLocked()
	}
	c.mu.Unlock()

	sess.stop()
	c.logger.Info("Connectivity changed", "online", online)
}

// SetCredentials replaces the credentials. The running session keeps going;
// after an authentication failure call Reconnect.
func (c *Coordinator) SetCredentials(ctx context.Context, creds auth.Credentials) {
	c.mu.Lock()
	c.creds = creds
	t := c.transport
	c.mu.Unlock()

	if t != nil {
		t.SetCredentials(ctx, creds)
	}
}

// Wake asks the continuous session to run a round now.
func (c *Coordinator) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// run - цикл непрерывной сессии
func (c *Coordinator) run(ctx context.Context, id string, epoch uint64, t Transport, needHandshake bool) {
	logger := c.logger.With("session_id", id, "mode", ModeContinuous)
	logger.Debug("Replication session started")
	defer logger.Debug("Replication session stopped")

	unsubscribe := c.bus.Subscribe(func(ev events.Event) {
		if ev.Source != events.SourceRemote {
			c.Wake()
		}
	}, events.TypeChanged)
	defer unsubscribe()

	var feedDone sync.WaitGroup
	feedDone.Add(1)
	go func() {
		defer feedDone.Done()
		c.watchFeed(ctx, logger, t)
	}()
	defer feedDone.Wait()

	heartbeat := time.NewTicker(c.opts.Heartbeat)
	defer heartbeat.Stop()

	retryCount := 0
	for {
		if needHandshake {
			c.update(epoch, func(s *models.SyncStatus) {
				s.Phase = models.PhaseConnecting
				s.IsConnected = false
			})

			hctx, cancel := context.WithTimeout(ctx, c.opts.RetryTimeout)
			err := t.Handshake(hctx)
			cancel()

			if err != nil {
				if !c.retry(ctx, logger, epoch, err, &retryCount) {
					return
				}
				continue
			}

			needHandshake = false
			c.update(epoch, func(s *models.SyncStatus) {
				s.Phase = models.PhaseActive
				s.IsConnected = true
			})
		}

		res, err := c.round(ctx, t, DirectionBoth, ModeContinuous)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !c.retry(ctx, logger, epoch, err, &retryCount) {
				return
			}
			needHandshake = true
			continue
		}

		retryCount = 0
		c.update(epoch, func(s *models.SyncStatus) {
			s.IsConnected = true
			s.LastError = ""
			s.LastSyncTime = c.now()
			if res.Changed() {
				s.Phase = models.PhaseActive
			} else {
				s.Phase = models.PhaseUpToDate
			}
		})

		if res.Changed() {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
		case <-c.wake:
		}
	}
}

// retry переводит статус в Error и ждёт backoff. false - сессию нужно завершить.
func (c *Coordinator) retry(ctx context.Context, logger *slog.Logger, epoch uint64, err error, retryCount *int) bool {
	if ctx.Err() != nil {
		return false
	}

	c.mu.Lock()
	if epoch == c.epoch {
		c.failLocked(err)
	}
	c.mu.Unlock()

	if IsAuthError(err) {
		logger.Error("Credentials rejected, replication paused until reconnect", "error", err)
		return false
	}
	if IsRejection(err) {
		logger.Error("Server rejected replication, paused until reconnect", "error", err)
		return false
	}

	*retryCount++
	retriesTotal.Inc()
	delay := c.opts.retryDelay(*retryCount)
	logger.Warn("Replication round failed, retrying",
		"error", err,
		"retry_count", *retryCount,
		"delay", delay)

	return waitWithContext(ctx, delay) == nil
}

// watchFeed будит сессию по уведомлениям сервера. Лента best-effort:
// при сбое переподключается через Heartbeat, раунды по таймеру продолжаются.
func (c *Coordinator) watchFeed(ctx context.Context, logger *slog.Logger, t Transport) {
	for {
		feed, err := t.OpenFeed(ctx, 2*c.opts.Heartbeat)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Debug("Change feed unavailable", "error", err)
		} else {
			stop := context.AfterFunc(ctx, func() { _ = feed.Close() })
			for {
				n, err := feed.Next()
				if err != nil {
					if ctx.Err() == nil {
						logger.Debug("Change feed interrupted", "error", err)
					}
					break
				}
				logger.Debug("Remote changes announced", "last_seq", n.LastSeq)
				c.Wake()
			}
			if stop() {
				_ = feed.Close()
			}
		}

		if waitWithContext(ctx, c.opts.Heartbeat) != nil {
			return
		}
	}
}

// ForceSync runs one push+pull round outside the continuous session.
func (c *Coordinator) ForceSync(ctx context.Context) (Result, error) {
	return c.oneShot(ctx, DirectionBoth)
}

// PushOnce отправляет локальные изменения один раз
func (c *Coordinator) PushOnce(ctx context.Context) (Result, error) {
	return c.oneShot(ctx, DirectionPush)
}

// PullOnce получает удалённые изменения один раз
func (c *Coordinator) PullOnce(ctx context.Context) (Result, error) {
	return c.oneShot(ctx, DirectionPull)
}

func (c *Coordinator) oneShot(ctx context.Context, dir Direction) (Result, error) {
	c.mu.Lock()
	t := c.transport
	online := c.status.IsOnline
	c.mu.Unlock()

	if t == nil {
		return Result{}, fmt.Errorf("%w: no remote endpoint configured", ErrNotConnected)
	}
	if !online {
		return Result{}, fmt.Errorf("%w: offline", ErrNotConnected)
	}

	// Одинаковые одновременные вызовы схлопываются
	v, err, shared := c.flight.Do(string(dir), func() (any, error) {
		res, err := c.round(ctx, t, dir, ModeOneShot)

		c.mu.Lock()
		if err != nil {
			c.status.LastError = err.Error()
			c.status.IsConnected = false
		} else {
			c.status.LastError = ""
			c.status.IsConnected = true
			c.status.LastSyncTime = c.now()
		}
		c.publishLocked()
		c.mu.Unlock()

		return res, err
	})
	if shared {
		c.logger.Debug("One-shot replication shared with a concurrent call", "direction", dir)
	}

	res, _ := v.(Result)
	return res, err
}

// round выполняет push и/или pull с таймаутом на раунд
func (c *Coordinator) round(ctx context.Context, t Transport, dir Direction, mode Mode) (Result, error) {
	c.roundMu.Lock()
	defer c.roundMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.opts.RetryTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		roundDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	}()

	var res Result

	if dir == DirectionPush || dir == DirectionBoth {
		pushed, err := c.push(ctx, t)
		res.Pushed = pushed
		if err != nil {
			roundsTotal.WithLabelValues(string(mode), "error").Inc()
			return res, fmt.Errorf("push failed: %w", err)
		}
	}

	if dir == DirectionPull || dir == DirectionBoth {
		pulled, resolved, err := c.pull(ctx, t)
		res.Pulled = pulled
		res.Resolved = resolved
		if err != nil {
			roundsTotal.WithLabelValues(string(mode), "error").Inc()
			return res, fmt.Errorf("pull failed: %w", err)
		}
	}

	result := "up_to_date"
	if res.Changed() {
		result = "changed"
	}
	roundsTotal.WithLabelValues(string(mode), result).Inc()

	c.logger.Debug("Replication round completed",
		"mode", mode,
		"direction", dir,
		"pushed", res.Pushed,
		"pulled", res.Pulled,
		"resolved", res.Resolved)

	return res, nil
}

// push отправляет локальные ревизии пакетами, сдвигая чекпоинт после каждого подтверждённого пакета
func (c *Coordinator) push(ctx context.Context, t Transport) (int, error) {
	key := c.checkpointKey(DirectionPush)

	since, err := c.meta.GetCheckpoint(ctx, key)
	if err != nil {
		return 0, err
	}

	pushed := 0
	for {
		changes, last, err := c.store.ChangesSince(ctx, since, c.opts.BatchSize, false)
		if err != nil {
			return pushed, err
		}

		if len(changes) > 0 {
			revs := make([]pkgapi.Revision, 0, len(changes))
			for _, ch := range changes {
				revs = append(revs, ch.Entry.ToWire())
			}

			resp, err := t.Push(ctx, revs)
			if err != nil {
				return pushed, err
			}

			pushed += len(changes)
			revisionsTotal.WithLabelValues(string(DirectionPush)).Add(float64(len(changes)))
			c.logger.Debug("Pushed revisions", "count", len(changes), "applied", resp.Applied)
		}

		if last == since {
			return pushed, nil
		}
		if err := c.meta.SaveCheckpoint(ctx, key, last); err != nil {
			return pushed, err
		}
		since = last
	}
}

// pull применяет удалённые ревизии пакетами: пакет атомарно, затем детектор, затем чекпоинт
func (c *Coordinator) pull(ctx context.Context, t Transport) (int, int, error) {
	key := c.checkpointKey(DirectionPull)

	since, err := c.meta.GetCheckpoint(ctx, key)
	if err != nil {
		return 0, 0, err
	}

	pulled, resolved := 0, 0
	for {
		resp, err := t.Changes(ctx, int64(since), c.opts.BatchSize)
		if err != nil {
			return pulled, resolved, err
		}
		if len(resp.Revisions) == 0 || resp.LastSeq <= int64(since) {
			return pulled, resolved, nil
		}

		entries := make([]*models.RevisionEntry, 0, len(resp.Revisions))
		for _, r := range resp.Revisions {
			e, err := models.RevisionEntryFromWire(r)
			if err != nil {
				return pulled, resolved, fmt.Errorf("malformed remote revision: %w", err)
			}
			entries = append(entries, e)
		}

		touched, err := c.store.ApplyBatch(ctx, entries)
		if err != nil {
			return pulled, resolved, err
		}
		revisionsTotal.WithLabelValues(string(DirectionPull)).Add(float64(len(entries)))

		if len(touched) > 0 {
			pulled += len(touched)
			n, err := c.scanner.Scan(ctx, touched)
			resolved += n
			if err != nil {
				return pulled, resolved, err
			}
		}

		since = uint64(resp.LastSeq)
		if err := c.meta.SaveCheckpoint(ctx, key, since); err != nil {
			return pulled, resolved, err
		}
		// Сервер может отдать страницу короче запрошенной; конец ленты - только пустая страница
	}
}

// Pending returns the number of local revisions not pushed yet
func (c *Coordinator) Pending(ctx context.Context) (int, error) {
	since, err := c.meta.GetCheckpoint(ctx, c.checkpointKey(DirectionPush))
	if err != nil {
		return 0, err
	}

	changes, _, err := c.store.ChangesSince(ctx, since, 0, false)
	if err != nil {
		return 0, err
	}
	return len(changes), nil
}

// checkpointKey - чекпоинты хранятся отдельно для каждого сервера и пользователя
func (c *Coordinator) checkpointKey(dir Direction) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%s:%s@%s", dir, c.creds.Username, c.endpoint)
}

func (c *Coordinator) failLocked(err error) {
	c.status.LastError = err.Error()
	c.status.IsConnected = false
	c.setPhaseLocked(models.PhaseError)
}

func (c *Coordinator) setPhaseLocked(phase models.Phase) {
	c.status.Phase = phase
	observePhase(phase)
	c.publishLocked()
}

func (c *Coordinator) publishLocked() {
	c.bus.Publish(events.StatusChanged(c.status))
}

// update применяет fn к статусу, если сессия epoch всё ещё актуальна
func (c *Coordinator) update(epoch uint64, fn func(s *models.SyncStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		return
	}
	fn(&c.status)
	observePhase(c.status.Phase)
	c.publishLocked()
}
