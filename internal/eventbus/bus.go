// Package eventbus is the process-local, synchronous event bus of spec
// §4.10. Unlike a generic pub/sub channel bus, listeners here run
// in-line, after the triggering transaction has committed, in
// registration order; a failing listener is logged and does not stop
// its peers or undo the commit that preceded it. The bus is nil-safe:
// calling Emit on a nil *Bus is a no-op, so callers that construct their
// controllers without wiring an event bus (e.g. in narrow unit tests)
// don't need guard checks.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// Kind identifies which hook point fired (spec §4.4, §4.5).
type Kind int

const (
	OnSubscribe Kind = iota
	OnUnsubscribe
	OnCreation
	OnRemoveCreation
)

func (k Kind) String() string {
	switch k {
	case OnSubscribe:
		return "on_subscribe"
	case OnUnsubscribe:
		return "on_unsubscribe"
	case OnCreation:
		return "on_creation"
	case OnRemoveCreation:
		return "on_remove_creation"
	default:
		return "unknown"
	}
}

// SubscriptionEvent is the payload delivered to onSubscribe/onUnsubscribe
// listeners.
type SubscriptionEvent struct {
	UserID     int64
	MovementID int64
}

// CreationEvent is the payload delivered to onCreation/onRemoveCreation
// listeners.
type CreationEvent struct {
	UserID     int64
	MovementID int64
}

// Listener reacts to one event kind. It receives its own context and
// should open a fresh store transaction if it needs to write — per spec
// §4.1/§4.10, hooks never reuse the triggering transaction.
type Listener func(ctx context.Context, payload any) error

// Bus holds one listener list per event kind and fires them
// synchronously. Construct with New; the zero value is unusable (use a
// nil *Bus instead, which Emit treats as "no listeners").
type Bus struct {
	mu        sync.RWMutex
	listeners map[Kind][]namedListener
	logger    *slog.Logger
}

type namedListener struct {
	name string
	fn   Listener
}

// New creates a bus ready for listener registration. A nil logger falls
// back to slog.Default().
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{listeners: make(map[Kind][]namedListener), logger: logger}
}

// On registers a named listener for kind. Registration is expected to
// happen once, at composition-root wiring time (spec §9) — not
// concurrently with Emit.
func (b *Bus) On(kind Kind, name string, fn Listener) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[kind] = append(b.listeners[kind], namedListener{name: name, fn: fn})
}

// Emit runs every listener registered for kind, in registration order,
// synchronously. A listener that returns an error is logged and does not
// prevent the remaining listeners from running (spec §4.10, §7). Safe to
// call on a nil receiver.
func (b *Bus) Emit(ctx context.Context, kind Kind, payload any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	listeners := append([]namedListener(nil), b.listeners[kind]...)
	b.mu.RUnlock()

	for _, l := range listeners {
		if err := l.fn(ctx, payload); err != nil {
			b.logger.Error("event listener failed",
				"event", kind.String(), "listener", l.name, "error", err)
		}
	}
}

// ListenerCount returns the number of listeners registered for kind, for
// tests and diagnostics.
func (b *Bus) ListenerCount(kind Kind) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[kind])
}
