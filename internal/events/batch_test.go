package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestBatch_CoalescesBurst(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := make(chan Event, 10)
	var mu sync.Mutex
	var bursts [][]Event
	done := make(chan struct{})

	go func() {
		defer close(done)
		Batch(context.Background(), in, 30*time.Millisecond, func(evs []Event) {
			mu.Lock()
			bursts = append(bursts, evs)
			mu.Unlock()
		})
	}()

	for i := 0; i < 5; i++ {
		in <- Event{Type: TaskMoved, EntityID: i}
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(bursts) == 1
	}, time.Second, 5*time.Millisecond)

	close(in)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, bursts, 1)
	assert.Len(t, bursts[0], 5)
}

func TestBatch_FlushesPendingOnClose(t *testing.T) {
	in := make(chan Event, 2)
	in <- Event{Type: TaskCreated}
	close(in)

	var got []Event
	Batch(context.Background(), in, time.Hour, func(evs []Event) { got = evs })
	assert.Len(t, got, 1)
}

func TestBatch_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Batch(ctx, in, time.Millisecond, func([]Event) {})
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Batch did not exit")
	}
}
