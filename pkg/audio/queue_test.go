package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueuePutGet(t *testing.T) {
	q := NewQueue(4)
	q.Put([]byte{1})
	q.Put([]byte{2})

	got, err := q.Get(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got[0] != 1 {
		t.Errorf("Get() = %v, want first frame", got)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}

func TestQueueDropOldest(t *testing.T) {
	q := NewQueue(3)
	for i := byte(1); i <= 5; i++ {
		q.Put([]byte{i})
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	// The three most recent frames survive, in order.
	for _, want := range []byte{3, 4, 5} {
		got, err := q.Get(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got[0] != want {
			t.Errorf("Get() = %d, want %d", got[0], want)
		}
	}
}

func TestQueueGetTimeout(t *testing.T) {
	q := NewQueue(1)
	_, err := q.Get(context.Background(), 10*time.Millisecond)
	if !errors.Is(err, ErrQueueTimeout) {
		t.Errorf("Get() error = %v, want ErrQueueTimeout", err)
	}
}

func TestQueueGetContextCancel(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Get(ctx, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}
