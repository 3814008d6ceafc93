package bus

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/timerd/internal/logfields"
)

// Message is a delivered in-process event.
type Message struct {
	Subject string
	Payload any
}

// InprocBus fans events out to in-process subscribers. It is the bus used
// when NATS is disabled, and by tests asserting event emission. A subscriber
// that cannot keep up has messages dropped rather than blocking publishers.
type InprocBus struct {
	mu     sync.Mutex
	subs   map[int]chan Message
	nextID int
	closed bool
}

// NewInprocBus creates an in-process bus.
func NewInprocBus() *InprocBus {
	return &InprocBus{subs: make(map[int]chan Message)}
}

// Subscribe returns a channel of future messages and a cancel function.
func (b *InprocBus) Subscribe() (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Message, 64)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the payload to every subscriber.
func (b *InprocBus) Publish(_ context.Context, subject string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	for _, ch := range b.subs {
		select {
		case ch <- Message{Subject: subject, Payload: payload}:
		default:
			slog.Warn("Dropping event for slow subscriber", logfields.Subject(subject))
		}
	}
	return nil
}

// Close drops all subscriptions.
func (b *InprocBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
