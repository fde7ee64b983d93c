package pubsub

import (
	"context"
	"testing"
	"time"
)

func recvOne(t *testing.T, sub *Subscription) any {
	t.Helper()

	select {
	case msg, ok := <-sub.Channel():
		if !ok {
			t.Fatal("subscription channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

// TestPublishSubscribe tests single-topic delivery
func TestPublishSubscribe(t *testing.T) {
	ps := New()
	defer ps.Shutdown()

	sub := ps.Subscribe(context.Background(), "builds")
	ps.Publish("builds", "done")

	if got := recvOne(t, sub); got != "done" {
		t.Errorf("got %v, want done", got)
	}
}

// TestTopicIsolation tests that topics don't cross-deliver
func TestTopicIsolation(t *testing.T) {
	ps := New()
	defer ps.Shutdown()

	builds := ps.Subscribe(context.Background(), "builds")
	crawls := ps.Subscribe(context.Background(), "crawls")

	ps.Publish("crawls", "crawl-1")

	if got := recvOne(t, crawls); got != "crawl-1" {
		t.Errorf("got %v, want crawl-1", got)
	}
	select {
	case msg := <-builds.Channel():
		t.Errorf("builds received %v from crawls topic", msg)
	default:
	}
}

// TestUnsubscribe tests that the channel closes and delivery stops
func TestUnsubscribe(t *testing.T) {
	ps := New()
	defer ps.Shutdown()

	sub := ps.Subscribe(context.Background(), "builds")
	sub.Unsubscribe()

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Error("received message after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	// Must not panic.
	ps.Publish("builds", "late")
}

// TestContextCancelEndsSubscription tests ctx-driven teardown
func TestContextCancelEndsSubscription(t *testing.T) {
	ps := New()
	defer ps.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub := ps.Subscribe(ctx, "builds")
	cancel()

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Error("unexpected message after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}
}

// TestShutdownClosesAll tests global teardown
func TestShutdownClosesAll(t *testing.T) {
	ps := New()

	a := ps.Subscribe(context.Background(), "builds")
	b := ps.Subscribe(context.Background(), "crawls")
	ps.Shutdown()

	for _, sub := range []*Subscription{a, b} {
		select {
		case _, ok := <-sub.Channel():
			if ok {
				t.Error("unexpected message after shutdown")
			}
		case <-time.After(time.Second):
			t.Fatal("channel not closed after shutdown")
		}
	}

	// Subscribing after shutdown yields an already-closed subscription.
	late := ps.Subscribe(context.Background(), "builds")
	if _, ok := <-late.Channel(); ok {
		t.Error("post-shutdown subscription delivered a message")
	}
}

// TestSlowSubscriberDropped tests that a full buffer never blocks Publish
func TestSlowSubscriberDropped(t *testing.T) {
	ps := New()
	defer ps.Shutdown()

	sub := ps.Subscribe(context.Background(), "builds")
	for i := 0; i < 100; i++ {
		ps.Publish("builds", i)
	}

	// Buffer holds 16; the rest were dropped, and Publish never blocked.
	count := 0
	for {
		select {
		case <-sub.Channel():
			count++
		default:
			if count != 16 {
				t.Errorf("buffered %d messages, want 16", count)
			}
			return
		}
	}
}
