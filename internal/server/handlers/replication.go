package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/storage"
	"github.com/iudanet/docsync/internal/validation"
	"github.com/iudanet/docsync/pkg/api"
)

const (
	// DefaultChangesLimit размер страницы GET /changes без limit
	DefaultChangesLimit = 100
	// MaxChangesLimit верхняя граница limit
	MaxChangesLimit = api.MaxBatchSize
	// MaxPushRevisions верхняя граница ревизий в одном POST /revisions
	MaxPushRevisions = api.MaxBatchSize
	// DefaultPingInterval период websocket ping
	DefaultPingInterval = 15 * time.Second

	maxPushBody = 32 << 20
	writeWait   = 10 * time.Second
)

// ReplicationHandler serves the change feed and revision uploads
type ReplicationHandler struct {
	logger       *slog.Logger
	storage      storage.RevisionStorage
	hub          *FeedHub
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// NewReplicationHandler creates a handler. pingInterval <= 0 selects DefaultPingInterval.
func NewReplicationHandler(logger *slog.Logger, st storage.RevisionStorage, hub *FeedHub, pingInterval time.Duration) *ReplicationHandler {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	return &ReplicationHandler{
		logger:       logger,
		storage:      st,
		hub:          hub,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Changes обрабатывает GET /api/v1/changes?since=&limit=
func (h *ReplicationHandler) Changes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		SendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	since, err := queryInt(r, "since", 0)
	if err != nil || since < 0 {
		SendError(w, h.logger, "invalid since parameter", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", DefaultChangesLimit)
	if err != nil || limit <= 0 {
		SendError(w, h.logger, "invalid limit parameter", http.StatusBadRequest)
		return
	}
	if limit > MaxChangesLimit {
		limit = MaxChangesLimit
	}

	entries, last, err := h.storage.ChangesSince(ctx, userID, since, int(limit))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read changes", "user_id", userID, "error", err)
		SendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	revisions := make([]api.Revision, 0, len(entries))
	for _, e := range entries {
		revisions = append(revisions, e.ToWire())
	}

	h.logger.DebugContext(ctx, "changes served",
		"user_id", userID,
		"since", since,
		"count", len(revisions),
		"last_seq", last)

	sendJSON(w, h.logger, api.ChangesResponse{Revisions: revisions, LastSeq: last}, http.StatusOK)
}

// Push обрабатывает POST /api/v1/revisions
func (h *ReplicationHandler) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		SendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.PushRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBody)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode push request", "error", err)
		SendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Revisions) > MaxPushRevisions {
		SendError(w, h.logger, fmt.Sprintf("at most %d revisions per request", MaxPushRevisions), http.StatusRequestEntityTooLarge)
		return
	}

	entries := make([]*models.RevisionEntry, 0, len(req.Revisions))
	for i, wire := range req.Revisions {
		entry, err := checkRevision(wire)
		if err != nil {
			h.logger.WarnContext(ctx, "rejected revision", "user_id", userID, "index", i, "error", err)
			SendError(w, h.logger, fmt.Sprintf("revision %d: %v", i, err), http.StatusBadRequest)
			return
		}
		entries = append(entries, entry)
	}

	applied, last, err := h.storage.PutRevisions(ctx, userID, entries)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidRevision) {
			SendError(w, h.logger, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "failed to store revisions", "user_id", userID, "error", err)
		SendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	if applied > 0 {
		h.hub.Notify(userID, last)
	}

	h.logger.InfoContext(ctx, "revisions pushed",
		"user_id", userID,
		"received", len(entries),
		"applied", applied,
		"last_seq", last)

	sendJSON(w, h.logger, api.PushResponse{Applied: applied, LastSeq: last}, http.StatusOK)
}

// Feed обрабатывает GET /api/v1/changes/feed (websocket).
// Сразу после подключения отправляет текущий last_seq, затем по одному
// уведомлению на каждую успешную загрузку ревизий.
func (h *ReplicationHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		SendError(w, h.logger, "unauthorized", http.StatusUnauthorized)
		return
	}

	last, err := h.storage.LastSeq(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read last seq", "user_id", userID, "error", err)
		SendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub, unsubscribe := h.hub.subscribe(userID)
	defer unsubscribe()

	// Читаем только ради control-фреймов и обнаружения закрытия
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	write := func(n api.FeedNotification) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(n)
	}

	if err := write(api.FeedNotification{LastSeq: last}); err != nil {
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-h.hub.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(writeWait))
			return
		case seq := <-sub.ch:
			if err := write(api.FeedNotification{LastSeq: seq}); err != nil {
				h.logger.Debug("feed write failed", "user_id", userID, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// checkRevision разбирает ревизию и проверяет, что токен соответствует содержимому
func checkRevision(wire api.Revision) (*models.RevisionEntry, error) {
	entry, err := models.RevisionEntryFromWire(wire)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateDocumentID(entry.ID); err != nil {
		return nil, err
	}
	if err := validation.ValidateTitle(entry.Title); err != nil {
		return nil, err
	}
	if err := validation.ValidateBody(entry.Body); err != nil {
		return nil, err
	}
	if !entry.Parent.IsZero() && entry.Parent.Generation >= entry.Rev.Generation {
		return nil, fmt.Errorf("revision %s is not newer than its parent %s", entry.Rev, entry.Parent)
	}
	if entry.Deleted && entry.Body != "" {
		return nil, fmt.Errorf("tombstone %s carries a body", entry.Rev)
	}

	want := models.NextRevision(entry.Rev.Generation, entry.Parent, entry.Title, entry.Body, entry.Deleted)
	if want != entry.Rev {
		return nil, fmt.Errorf("revision %s does not match its content", entry.Rev)
	}
	return entry, nil
}

func queryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
