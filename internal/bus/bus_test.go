package bus

import (
	"sync"
	"testing"
	"time"
)

type pollTick struct {
	At time.Time
}

type fileChange struct {
	Repo string
	Path string
}

func TestNilBusPublish(t *testing.T) {
	var b *Bus
	// Must not panic.
	Publish(b, pollTick{At: time.Now()})
}

func TestNilBusSubscriberCount(t *testing.T) {
	var b *Bus
	if got := SubscriberCount[pollTick](b); got != 0 {
		t.Errorf("SubscriberCount() on nil bus = %d, want 0", got)
	}
}

func TestPublishSingleSubscriber(t *testing.T) {
	b := New()
	ch, unsubscribe := Subscribe[fileChange](b, 8)
	defer unsubscribe()

	want := fileChange{Repo: "demo", Path: "src/a.rs"}
	Publish(b, want)

	select {
	case got := <-ch:
		if got != want {
			t.Errorf("got event %v, want %v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishOnlyReachesMatchingType(t *testing.T) {
	b := New()
	fcCh, unsubFC := Subscribe[fileChange](b, 8)
	defer unsubFC()
	ptCh, unsubPT := Subscribe[pollTick](b, 8)
	defer unsubPT()

	Publish(b, pollTick{At: time.Now()})

	select {
	case <-ptCh:
	case <-time.After(time.Second):
		t.Fatal("pollTick subscriber never received its event")
	}

	select {
	case got := <-fcCh:
		t.Fatalf("fileChange subscriber should not receive pollTick, got %v", got)
	default:
	}
}

func TestPublishMultipleSubscribers(t *testing.T) {
	b := New()
	const n = 5
	channels := make([]<-chan fileChange, n)
	unsubs := make([]func(), n)
	for i := range n {
		channels[i], unsubs[i] = Subscribe[fileChange](b, 8)
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	evt := fileChange{Repo: "demo", Path: "a.go"}
	Publish(b, evt)

	for i, ch := range channels {
		select {
		case got := <-ch:
			if got != evt {
				t.Errorf("subscriber %d: got %v, want %v", i, got, evt)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out", i)
		}
	}
}

func TestDropOnFull(t *testing.T) {
	b := New()
	// Buffer size 1 — second publish should be dropped.
	ch, unsubscribe := Subscribe[fileChange](b, 1)
	defer unsubscribe()

	Publish(b, fileChange{Path: "first"})
	Publish(b, fileChange{Path: "second"})

	got := <-ch
	if got.Path != "first" {
		t.Errorf("got path %q, want %q", got.Path, "first")
	}

	select {
	case evt := <-ch:
		t.Errorf("expected empty channel, got event %v", evt)
	default:
		// correct — the second event was dropped
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsubscribe := Subscribe[fileChange](b, 8)

	unsubscribe()

	_, ok := <-ch
	if ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
}

func TestDoubleUnsubscribe(t *testing.T) {
	b := New()
	_, unsubscribe := Subscribe[fileChange](b, 8)

	unsubscribe()
	// Must not panic.
	unsubscribe()
}

func TestSubscriberCount(t *testing.T) {
	b := New()

	if got := SubscriberCount[fileChange](b); got != 0 {
		t.Errorf("initial count = %d, want 0", got)
	}

	_, unsub1 := Subscribe[fileChange](b, 4)
	_, unsub2 := Subscribe[fileChange](b, 4)

	if got := SubscriberCount[fileChange](b); got != 2 {
		t.Errorf("after 2 subscribes = %d, want 2", got)
	}

	unsub1()
	if got := SubscriberCount[fileChange](b); got != 1 {
		t.Errorf("after 1 unsubscribe = %d, want 1", got)
	}

	unsub2()
	if got := SubscriberCount[fileChange](b); got != 0 {
		t.Errorf("after all unsubscribed = %d, want 0", got)
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	b := New()
	const publishers = 10
	const eventsPerPublisher = 100

	var wg sync.WaitGroup

	ch, unsubscribe := Subscribe[fileChange](b, 64)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range ch {
			// drops are expected; we only care this never panics
		}
	}()

	var pubWg sync.WaitGroup
	for i := range publishers {
		pubWg.Add(1)
		go func(i int) {
			defer pubWg.Done()
			for j := range eventsPerPublisher {
				Publish(b, fileChange{Repo: "demo", Path: string(rune('a' + i%26))})
				_ = j
			}
		}(i)
	}

	pubWg.Wait()
	unsubscribe() // closes the channel, ending the draining goroutine
	wg.Wait()
}

func TestPublishNoSubscribers(t *testing.T) {
	b := New()
	// Must not panic when publishing with no subscribers.
	Publish(b, pollTick{At: time.Now()})
}

func TestPublishAfterUnsubscribe(t *testing.T) {
	b := New()
	_, unsubscribe := Subscribe[fileChange](b, 8)
	unsubscribe()

	// Publishing after the only subscriber is gone must not panic.
	Publish(b, fileChange{Repo: "demo", Path: "a.go"})
}
