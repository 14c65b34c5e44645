package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	ID   int
	Kind string
}

func TestQueue_FIFO(t *testing.T) {
	q := New[request]()

	_, ok := q.TryPop()
	assert.False(t, ok)

	q.Push(request{ID: 1, Kind: "load"}, request{ID: 2})
	q.Push(request{ID: 3})
	assert.Equal(t, 3, q.Len())

	for want := 1; want <= 3; want++ {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, got.ID)
	}
	assert.Zero(t, q.Len())
}

func TestQueue_WaitBlocksUntilPush(t *testing.T) {
	q := New[request]()
	got := make(chan request)

	go func() {
		r, err := q.Wait(context.Background())
		assert.NoError(t, err)
		got <- r
	}()

	select {
	case <-got:
		t.Fatal("wait returned before push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(request{ID: 7})
	select {
	case r := <-got:
		assert.Equal(t, 7, r.ID)
	case <-time.After(time.Second):
		t.Fatal("wait did not wake up")
	}
}

func TestQueue_WaitCancelled(t *testing.T) {
	q := New[request]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[request]()
	q.Push(request{ID: 1}, request{ID: 2}, request{ID: 3})

	result := q.GetAndEmpty()
	require.Len(t, result, 3)
	assert.Equal(t, 1, result[0].ID)
	assert.Equal(t, 3, result[2].ID)
	assert.Zero(t, q.Len())
}

func TestQueue_ConcurrentProducersSingleConsumer(t *testing.T) {
	q := New[request]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.Push(request{ID: id})
		}(i)
	}

	seen := map[int]bool{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for len(seen) < 100 {
		r, err := q.Wait(ctx)
		require.NoError(t, err)
		seen[r.ID] = true
	}
	wg.Wait()
	assert.Zero(t, q.Len())
}
