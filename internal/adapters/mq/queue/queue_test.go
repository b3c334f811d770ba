package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/turnlat/internal/domain/model"
)

func seconds(v float64) *float64 { return &v }

func newEvent(id string) model.MetricEvent {
	return model.MetricEvent{EventID: id, SessionID: "s-1", Kind: model.KindEndOfUtterance, Seconds: seconds(0.1)}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[model.MetricEvent](WithCapacity(2), WithName("test-basic"))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if q.Name() != "test-basic" || q.Capacity() != 2 {
		t.Errorf("unexpected name/capacity %q/%d", q.Name(), q.Capacity())
	}

	if err := q.Enqueue(ctx, newEvent("event1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	ev := <-q.Dequeue(ctx)
	if ev.EventID != "event1" {
		t.Errorf("expected event1, got %v", ev.EventID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue[model.MetricEvent](WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"event1", "event2"} {
		if err := q.Enqueue(ctx, newEvent(id)); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}

	if err := q.Enqueue(ctx, newEvent("event3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(100))
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := q.Enqueue(ctx, i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	_ = q.Close()

	want := 0
	for got := range q.Dequeue(ctx) {
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
		want++
	}
	if want != 100 {
		t.Errorf("expected 100 items drained after close, got %d", want)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue[model.MetricEvent](WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numEvents := 100

	var producers sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		producers.Add(1)
		go func(id int) {
			defer producers.Done()
			for j := 0; j < numEvents; j++ {
				ev := newEvent(fmt.Sprintf("event%d_%d", id, j))
				for q.Enqueue(ctx, ev) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	consumed := make(chan int)
	go func() {
		n := 0
		for range q.Dequeue(ctx) {
			n++
		}
		consumed <- n
	}()

	producers.Wait()
	_ = q.Close()

	select {
	case n := <-consumed:
		if n != numGoroutines*numEvents {
			t.Errorf("expected %d events, got %d", numGoroutines*numEvents, n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not finish")
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue[model.MetricEvent](WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, newEvent("event1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, newEvent("event2")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	ch := q.Dequeue(ctx)
	timeout := time.After(100 * time.Millisecond)
	drained := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if drained != 1 {
					t.Errorf("expected 1 buffered event, got %d", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained++
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
