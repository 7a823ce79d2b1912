// Package engine собирает локальную реплику, репликацию и разрешение
// конфликтов в один объект с жизненным циклом Start/Stop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/docsync/internal/client/api"
	"github.com/iudanet/docsync/internal/client/auth"
	"github.com/iudanet/docsync/internal/client/config"
	"github.com/iudanet/docsync/internal/client/conflict"
	"github.com/iudanet/docsync/internal/client/docstore"
	"github.com/iudanet/docsync/internal/client/netwatch"
	"github.com/iudanet/docsync/internal/client/replication"
	"github.com/iudanet/docsync/internal/client/storage/boltdb"
	"github.com/iudanet/docsync/internal/events"
	"github.com/iudanet/docsync/internal/merge"
	"github.com/iudanet/docsync/internal/models"
)

// eventBufferSize - очередь событий на подписчика
const eventBufferSize = 256

// Engine is the client-side replication engine.
type Engine struct {
	storage     *boltdb.Storage
	bus         *events.Bus
	store       *docstore.Store
	executor    *conflict.Executor
	detector    *conflict.Detector
	coordinator *replication.Coordinator
	watcher     *netwatch.Watcher
	logger      *slog.Logger
	cfg         *config.Config
	cancel      context.CancelFunc

	probeMu     sync.Mutex
	probeClient *api.Client

	wg       sync.WaitGroup
	mu       sync.Mutex
	stopOnce sync.Once
	started  bool
}

// New opens the local replica at cfg.DBPath and wires the components.
// Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local replica: %w", err)
	}

	bus := events.NewBus(logger.With("component", "events"), eventBufferSize)
	store := docstore.New(st, bus, logger.With("component", "docstore"))

	merger := merge.New(cfg.Merge)
	executor := conflict.NewExecutor(store, merger, bus, logger.With("component", "executor"), cfg.MaxResolveAttempts)
	detector := conflict.NewDetector(executor, bus, logger.With("component", "detector"), cfg.AutoMergeComposite)

	connect := replication.NewConnector(st, logger.With("component", "transport"))
	coordinator := replication.New(store, st, detector, bus, connect,
		logger.With("component", "replication"), cfg.ReplicationOptions())

	e := &Engine{
		storage:     st,
		bus:         bus,
		store:       store,
		executor:    executor,
		detector:    detector,
		coordinator: coordinator,
		logger:      logger,
		cfg:         cfg,
	}
	e.watcher = netwatch.New(e.probe, cfg.ProbeInterval(), coordinator.SetOnline, logger.With("component", "netwatch"))

	return e, nil
}

// Start configures the remote replica and, if sync is enabled, starts continuous
// replication. A failed handshake is logged; the status reports it.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	cfg := e.cfg
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	// Конфликты, оставшиеся с прошлого запуска
	if n, err := e.detector.ScanAll(ctx); err != nil {
		e.logger.Warn("Initial conflict scan failed", "error", err)
	} else if n > 0 {
		e.logger.Info("Resolved leftover conflicts", "count", n)
	}

	if cfg.RemoteURL == "" {
		e.logger.Info("Engine started without a remote replica")
		return nil
	}

	e.coordinator.Configure(cfg.RemoteURL, cfg.Credentials)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.watcher.Run(runCtx)
	}()

	if cfg.SyncEnabled {
		if err := e.coordinator.Enable(ctx, cfg.RemoteURL, cfg.Credentials); err != nil {
			e.logger.Warn("Continuous replication did not start", "remote", cfg.RemoteURL, "error", err)
		}
	}

	e.logger.Info("Engine started", "remote", cfg.RemoteURL, "sync_enabled", cfg.SyncEnabled)
	return nil
}

// Stop ends replication and closes the local replica. Safe to call twice.
func (e *Engine) Stop() error {
	var err error
	e.stopOnce.Do(func() {
		e.mu.Lock()
		cancel := e.cancel
		e.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		e.wg.Wait()

		e.coordinator.Disable()

		e.bus.Close()
		err = e.storage.Close()
		e.logger.Info("Engine stopped")
	})
	return err
}

// ApplyConfig applies a reloaded configuration. Replication settings take effect
// immediately; storage and merge settings need a restart.
func (e *Engine) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	e.mu.Lock()
	old := e.cfg
	e.cfg = cfg
	e.mu.Unlock()

	if cfg.DBPath != old.DBPath || cfg.Merge != old.Merge || cfg.AutoMergeComposite != old.AutoMergeComposite {
		e.logger.Warn("Storage and merge settings change on restart only")
	}

	remoteChanged := cfg.RemoteURL != old.RemoteURL || cfg.Credentials.Username != old.Credentials.Username

	switch {
	case cfg.RemoteURL == "":
		e.coordinator.Configure("", auth.Credentials{})
		return nil
	case cfg.SyncEnabled && (remoteChanged || !old.SyncEnabled):
		return e.coordinator.Enable(ctx, cfg.RemoteURL, cfg.Credentials)
	case !cfg.SyncEnabled && (remoteChanged || old.SyncEnabled):
		e.coordinator.Configure(cfg.RemoteURL, cfg.Credentials)
		return nil
	case cfg.Credentials != old.Credentials:
		e.coordinator.SetCredentials(ctx, cfg.Credentials)
	}
	return nil
}

// probe проверяет доступность текущего сервера
func (e *Engine) probe(ctx context.Context) error {
	endpoint := e.coordinator.Endpoint()
	if endpoint == "" {
		return nil
	}

	e.probeMu.Lock()
	if e.probeClient == nil || e.probeClient.BaseURL() != endpoint {
		e.probeClient = api.NewClient(endpoint)
	}
	client := e.probeClient
	e.probeMu.Unlock()

	_, err := client.Health(ctx)
	return err
}

// Put writes a document; see docstore.Store.Put.
func (e *Engine) Put(ctx context.Context, doc *models.Document, expected *models.Revision) (*models.Document, error) {
	return e.store.Put(ctx, doc, expected)
}

// Remove deletes the live leaf rev of id.
func (e *Engine) Remove(ctx context.Context, id string, rev models.Revision) error {
	return e.store.Remove(ctx, id, rev)
}

// Get returns the winning revision of id.
func (e *Engine) Get(ctx context.Context, id string) (*models.Document, error) {
	return e.store.Get(ctx, id)
}

// GetRevision returns one revision of id, including losing leaves.
func (e *Engine) GetRevision(ctx context.Context, id string, rev models.Revision) (*models.RevisionEntry, error) {
	return e.store.GetRevision(ctx, id, rev)
}

// ListAll returns every live document.
func (e *Engine) ListAll(ctx context.Context) ([]*models.Document, error) {
	return e.store.ListAll(ctx)
}

// ListConflicts returns documents with more than one live leaf.
func (e *Engine) ListConflicts(ctx context.Context) ([]models.Conflict, error) {
	return e.store.ListConflicts(ctx)
}

// Enable starts continuous replication.
func (e *Engine) Enable(ctx context.Context, endpoint string, creds auth.Credentials) error {
	return e.coordinator.Enable(ctx, endpoint, creds)
}

// Disable stops continuous replication.
func (e *Engine) Disable() {
	e.coordinator.Disable()
}

// ForceSync runs one push and pull round.
func (e *Engine) ForceSync(ctx context.Context) (replication.Result, error) {
	return e.coordinator.ForceSync(ctx)
}

// PushOnce pushes pending local revisions.
func (e *Engine) PushOnce(ctx context.Context) (replication.Result, error) {
	return e.coordinator.PushOnce(ctx)
}

// PullOnce pulls remote revisions.
func (e *Engine) PullOnce(ctx context.Context) (replication.Result, error) {
	return e.coordinator.PullOnce(ctx)
}

// Reconnect restarts the continuous session.
func (e *Engine) Reconnect(ctx context.Context) error {
	return e.coordinator.Reconnect(ctx)
}

// SetOnline overrides the connectivity state.
func (e *Engine) SetOnline(online bool) {
	e.coordinator.SetOnline(online)
}

// SetCredentials replaces the replication credentials.
func (e *Engine) SetCredentials(ctx context.Context, creds auth.Credentials) {
	e.coordinator.SetCredentials(ctx, creds)
}

// Resolve merges every live leaf of id into one.
func (e *Engine) Resolve(ctx context.Context, id string) (int, error) {
	return e.executor.Resolve(ctx, id)
}

// ResolveManual keeps winning and removes the losing leaves.
func (e *Engine) ResolveManual(ctx context.Context, id string, winning models.Revision, losing []models.Revision) (int, error) {
	return e.executor.ResolveManual(ctx, id, winning, losing)
}

// AutoResolveAll resolves every document in conflict.
func (e *Engine) AutoResolveAll(ctx context.Context) (int, error) {
	return e.executor.AutoResolveAll(ctx)
}

// Status returns the replication status.
func (e *Engine) Status() models.SyncStatus {
	return e.coordinator.Status()
}

// Pending returns the number of local revisions not pushed yet.
func (e *Engine) Pending(ctx context.Context) (int, error) {
	return e.coordinator.Pending(ctx)
}

// Subscribe registers handler for the given event types (all when none).
func (e *Engine) Subscribe(handler events.Handler, types ...events.Type) func() {
	return e.bus.Subscribe(handler, types...)
}

// Register creates the configured user on the remote replica.
func (e *Engine) Register(ctx context.Context) (string, error) {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	if cfg.RemoteURL == "" {
		return "", fmt.Errorf("%w: remote_url is not set", replication.ErrNotConnected)
	}

	session := auth.NewSession(cfg.RemoteURL, api.NewClient(cfg.RemoteURL), e.storage, cfg.Credentials,
		e.logger.With("component", "auth"))
	return session.Register(ctx)
}

// Logout forgets the cached access token and stops continuous replication.
func (e *Engine) Logout(ctx context.Context) error {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	e.coordinator.Disable()

	session := auth.NewSession(cfg.RemoteURL, api.NewClient(cfg.RemoteURL), e.storage, cfg.Credentials,
		e.logger.With("component", "auth"))
	return session.Logout(ctx)
}

// Config returns the configuration in effect
func (e *Engine) Config() *config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}
