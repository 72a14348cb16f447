package eventbus

import (
	"context"
	"errors"
	"testing"
)

func TestNilBusEmit(t *testing.T) {
	var b *Bus
	// Must not panic.
	b.Emit(context.Background(), OnSubscribe, SubscriptionEvent{UserID: 1, MovementID: 1})
}

func TestEmitRunsListenersInOrder(t *testing.T) {
	b := New(nil)
	var order []string
	b.On(OnSubscribe, "first", func(ctx context.Context, payload any) error {
		order = append(order, "first")
		return nil
	})
	b.On(OnSubscribe, "second", func(ctx context.Context, payload any) error {
		order = append(order, "second")
		return nil
	})

	b.Emit(context.Background(), OnSubscribe, SubscriptionEvent{UserID: 1, MovementID: 2})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("got order %v, want [first second]", order)
	}
}

func TestFailingListenerDoesNotBlockPeers(t *testing.T) {
	b := New(nil)
	ran := false
	b.On(OnUnsubscribe, "boom", func(ctx context.Context, payload any) error {
		return errors.New("boom")
	})
	b.On(OnUnsubscribe, "ok", func(ctx context.Context, payload any) error {
		ran = true
		return nil
	})

	b.Emit(context.Background(), OnUnsubscribe, SubscriptionEvent{UserID: 1, MovementID: 2})

	if !ran {
		t.Error("expected second listener to run despite first listener's error")
	}
}

func TestListenerCount(t *testing.T) {
	b := New(nil)
	if got := b.ListenerCount(OnCreation); got != 0 {
		t.Errorf("ListenerCount = %d, want 0", got)
	}
	b.On(OnCreation, "x", func(ctx context.Context, payload any) error { return nil })
	if got := b.ListenerCount(OnCreation); got != 1 {
		t.Errorf("ListenerCount = %d, want 1", got)
	}
}
