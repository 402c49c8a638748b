package identity

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventSignedIn         EventType = "SIGNED_IN"
	EventSignedOut        EventType = "SIGNED_OUT"
	EventPasswordRecovery EventType = "PASSWORD_RECOVERY"
	EventUserUpdated      EventType = "USER_UPDATED"
	EventTokenRefreshed   EventType = "TOKEN_REFRESHED"
)

type Event struct {
	Type   EventType
	UserID string
	At     time.Time
}

type Listener func(ctx context.Context, e Event)

// Broker fans auth state changes out to listeners. Every Subscribe returns
// the func that releases it; Close releases whatever is left.
type Broker struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

func NewBroker() *Broker {
	return &Broker{listeners: make(map[int]Listener)}
}

func (b *Broker) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every current listener on the caller's goroutine.
func (b *Broker) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	ls := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		ls = append(ls, l)
	}
	b.mu.RUnlock()

	for _, l := range ls {
		l(ctx, e)
	}
}

func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

func (b *Broker) Close() {
	b.mu.Lock()
	b.listeners = make(map[int]Listener)
	b.mu.Unlock()
}
