package handlers

import (
	"log/slog"
	"sync"
)

// FeedHub рассылает websocket-подписчикам уведомления о новых ревизиях.
// Уведомления схлопываются: подписчику важен только последний seq.
type FeedHub struct {
	subs   map[string]map[*feedSubscriber]struct{}
	done   chan struct{}
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

type feedSubscriber struct {
	ch chan int64
}

// NewFeedHub creates an empty hub
func NewFeedHub(logger *slog.Logger) *FeedHub {
	return &FeedHub{
		subs:   make(map[string]map[*feedSubscriber]struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Notify tells every subscriber of userID that revisions up to lastSeq exist.
// Never blocks.
func (h *FeedHub) Notify(userID string, lastSeq int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[userID] {
		select {
		case sub.ch <- lastSeq:
		default:
			// Заменяем непрочитанное уведомление более свежим
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- lastSeq:
			default:
			}
		}
	}
}

// Subscribers returns the number of open feeds of userID
func (h *FeedHub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Close завершает все открытые ленты
func (h *FeedHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}

func (h *FeedHub) subscribe(userID string) (*feedSubscriber, func()) {
	sub := &feedSubscriber{ch: make(chan int64, 1)}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*feedSubscriber]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("Feed subscribed", "user_id", userID)

	return sub, func() {
		h.mu.Lock()
		delete(h.subs[userID], sub)
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
		h.mu.Unlock()
		h.logger.Debug("Feed unsubscribed", "user_id", userID)
	}
}
