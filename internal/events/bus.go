// Package events доставляет уведомления о документах и статусе репликации.
//
// Каждый подписчик получает события в своей горутине через буферизованный
// канал: медленный подписчик не блокирует издателя. При переполнении
// буфера событие для этого подписчика отбрасывается с предупреждением в лог.
package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/docsync/internal/models"
)

// Type тип события
type Type string

const (
	// TypeChanged documents were written (locally, by a pull, or by a merge).
	TypeChanged Type = "changed"
	// TypeDocumentResolved a conflict on a document was resolved.
	TypeDocumentResolved Type = "document_resolved"
	// TypeConflictDetected a document gained a second live leaf.
	TypeConflictDetected Type = "conflict_detected"
	// TypeStatusChanged the replication status was updated.
	TypeStatusChanged Type = "status_changed"
)

// Source откуда пришло изменение
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceMerge  Source = "merge"
)

// Event уведомление. Заполнены только поля, относящиеся к Type.
type Event struct {
	Status models.SyncStatus
	Type   Type
	Source Source
	IDs    []string
}

// Changed builds a TypeChanged event.
func Changed(source Source, ids ...string) Event {
	return Event{Type: TypeChanged, Source: source, IDs: ids}
}

// DocumentResolved builds a TypeDocumentResolved event.
func DocumentResolved(id string) Event {
	return Event{Type: TypeDocumentResolved, Source: SourceMerge, IDs: []string{id}}
}

// ConflictDetected builds a TypeConflictDetected event.
func ConflictDetected(ids ...string) Event {
	return Event{Type: TypeConflictDetected, IDs: ids}
}

// StatusChanged builds a TypeStatusChanged event.
func StatusChanged(status models.SyncStatus) Event {
	return Event{Type: TypeStatusChanged, Status: status}
}

// Handler обработчик событий
type Handler func(Event)

// Publisher - то, что нужно компонентам, которые только публикуют
type Publisher interface {
	Publish(ev Event)
}

const defaultBufferSize = 64

type subscription struct {
	handler Handler
	ch      chan Event
	done    chan struct{}
	types   map[Type]struct{}
	id      string
}

func (s *subscription) wants(t Type) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus рассылает события подписчикам
type Bus struct {
	logger     *slog.Logger
	subs       map[string]*subscription
	mu         sync.RWMutex
	bufferSize int
	closed     bool
}

// NewBus creates an event bus. bufferSize <= 0 selects the default.
func NewBus(logger *slog.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Bus{
		logger:     logger,
		subs:       make(map[string]*subscription),
		bufferSize: bufferSize,
	}
}

// Subscribe registers handler for the given types (all types when none are given).
// The returned function unsubscribes and waits for the handler goroutine to exit;
// it must not be called from inside the handler.
func (b *Bus) Subscribe(handler Handler, types ...Type) func() {
	sub := &subscription{
		id:      uuid.NewString(),
		handler: handler,
		ch:      make(chan Event, b.bufferSize),
		done:    make(chan struct{}),
	}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.done)
		return func() {}
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go b.run(sub)

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(sub.id) })
	}
}

// Publish доставляет событие всем подходящим подписчикам без блокировки
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if !sub.wants(ev.Type) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("Event dropped, subscriber buffer is full",
				"subscription", sub.id,
				"type", ev.Type)
		}
	}
}

// Close отписывает всех и дожидается завершения обработчиков
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[string]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
		<-sub.done
	}
}

func (b *Bus) unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		close(sub.ch)
		<-sub.done
	}
}

func (b *Bus) run(sub *subscription) {
	defer close(sub.done)
	for ev := range sub.ch {
		b.dispatch(sub, ev)
	}
}

func (b *Bus) dispatch(sub *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				"subscription", sub.id,
				"type", ev.Type,
				"panic", r)
		}
	}()
	sub.handler(ev)
}
