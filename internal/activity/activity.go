// Package activity is a non-blocking broadcast feed of domain events —
// subscriptions, creations, graph rewiring, signals, announcements — for
// live observability (an admin dashboard or WebSocket tail), separate
// from internal/eventbus's synchronous after-commit hooks that drive the
// graph engine itself. A slow subscriber misses events rather than
// blocking publishers.
package activity

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Source identifies which component published an event.
const (
	SourceSubscription = "subscription"
	SourceCreation     = "creation"
	SourceGraph        = "graph"
	SourceSignal       = "signal"
	SourceAnnouncement = "announcement"
)

// Kind describes the type of event within a source.
const (
	KindSubscribed          = "subscribed"
	KindUnsubscribed        = "unsubscribed"
	KindCreated             = "created"
	KindCreationRemoved     = "creation_removed"
	KindLeaderAdded         = "leader_added"
	KindFollowerAdded       = "follower_added"
	KindLeaderRemoved       = "leader_removed"
	KindFollowerRemoved     = "follower_removed"
	KindLeaderSwapped       = "leader_swapped"
	KindSignalSent          = "signal_sent"
	KindAnnouncementPosted  = "announcement_posted"
	KindAnnouncementEdited  = "announcement_edited"
	KindAnnouncementRemoved = "announcement_removed"
)

// Event is a single published occurrence. TraceID lets a subscriber
// correlate an event against logs emitted for the same underlying
// operation.
type Event struct {
	TraceID    string         `json:"trace_id"`
	Timestamp  time.Time      `json:"ts"`
	Source     string         `json:"source"`
	Kind       string         `json:"kind"`
	MovementID int64          `json:"movement_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Safe to call on a nil
// receiver (no-op), so collaborators that don't need the feed can leave
// their *Bus field nil.
type Bus struct {
	mu         sync.RWMutex
	subs       map[chan Event]struct{}
	recvToSend map[<-chan Event]chan Event
}

// New creates a new activity bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends e to all current subscribers. Non-blocking: if a
// subscriber's channel is full, e is dropped for that subscriber.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.TraceID == "" {
		e.TraceID = uuid.NewString()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid a resource leak.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to
// call with an already-unsubscribed channel (no-op).
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
