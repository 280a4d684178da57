package events

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T, ctx context.Context, rc *redis.Client, bus *Bus) (*RedisRelay, chan error) {
	t.Helper()
	relay := NewRedisRelay(bus, rc, "test-events", nil)
	errc := make(chan error, 1)
	go func() { errc <- relay.Run(ctx) }()
	select {
	case <-relay.Ready():
	case err := <-errc:
		t.Fatalf("relay exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay never became ready")
	}
	return relay, errc
}

func TestRedisRelay_CrossProcess(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	busA, busB := NewBus(), NewBus()
	defer busA.Close()
	defer busB.Close()

	relayA, errA := startRelay(t, ctx, rc, busA)
	_, errB := startRelay(t, ctx, rc, busB)

	subA := busA.Subscribe()
	subB := busB.Subscribe()

	busA.Publish(Event{Type: OpportunityMoved, EntityID: 42, Data: MoveData{From: "1", To: "2"}})

	got := receive(t, subB)
	assert.Equal(t, OpportunityMoved, got.Type)
	assert.Equal(t, 42, got.EntityID)
	assert.Equal(t, relayA.Origin(), got.Origin)

	// A's own subscriber sees the local event once and never the echo
	assert.Equal(t, OpportunityMoved, receive(t, subA).Type)
	select {
	case ev := <-subA.Events():
		t.Fatalf("relay echoed event back: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	for _, errc := range []chan error{errA, errB} {
		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("relay did not stop")
		}
	}
}

func TestRedisRelay_IgnoresOwnAndMalformedMessages(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus()
	defer bus.Close()
	relay, _ := startRelay(t, ctx, rc, bus)
	sub := bus.Subscribe()

	own, err := sonic.Marshal(Event{Type: TaskCreated, Origin: relay.Origin()})
	require.NoError(t, err)
	require.NoError(t, rc.Publish(ctx, "test-events", own).Err())
	require.NoError(t, rc.Publish(ctx, "test-events", "not json").Err())

	remote, err := sonic.Marshal(Event{Type: TaskDeleted, EntityID: 9, Origin: "other"})
	require.NoError(t, err)
	require.NoError(t, rc.Publish(ctx, "test-events", remote).Err())

	got := receive(t, sub)
	assert.Equal(t, TaskDeleted, got.Type)
	assert.Equal(t, "other", got.Origin)
}

func TestRedisRelay_StopsWhenBusCloses(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	bus := NewBus()
	_, errc := startRelay(t, context.Background(), rc, bus)
	bus.Close()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrRelayClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after bus close")
	}
}
