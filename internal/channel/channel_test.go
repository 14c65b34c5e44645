package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffered_TrySend(t *testing.T) {
	ch := NewBuffered[int](1)
	assert.True(t, ch.TrySend(1))
	assert.False(t, ch.TrySend(2))
	assert.Equal(t, 1, ch.Len())
	assert.Equal(t, 1, <-ch.Receive())
}

func TestBuffered_SendUntil(t *testing.T) {
	ch := NewBuffered[int](1)
	done := make(chan struct{})

	assert.True(t, ch.SendUntil(1, done))
	close(done)
	assert.False(t, ch.SendUntil(2, done))
}

func TestUnbuffered_TrySendWithoutReceiver(t *testing.T) {
	ch := NewUnbuffered[string]()
	assert.False(t, ch.TrySend("progress"))
	assert.Zero(t, ch.Len())
}

func TestChannelsSatisfyInterface(t *testing.T) {
	var _ Channel[int] = NewBuffered[int](1)
	var _ Channel[int] = NewUnbuffered[int]()
	assert.NotNil(t, New[int](4))
}
