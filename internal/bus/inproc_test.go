package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInprocPublishDelivers(t *testing.T) {
	b := NewInprocBus()
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	require.NoError(t, b.Publish(context.Background(), "finished", map[string]string{"timer_id": "tea"}))

	msg := <-ch
	assert.Equal(t, "finished", msg.Subject)
}

func TestInprocFanOut(t *testing.T) {
	b := NewInprocBus()
	defer b.Close()

	a, cancelA := b.Subscribe()
	defer cancelA()
	c, cancelC := b.Subscribe()
	defer cancelC()

	require.NoError(t, b.Publish(context.Background(), "state_changed", nil))

	assert.Equal(t, "state_changed", (<-a).Subject)
	assert.Equal(t, "state_changed", (<-c).Subject)
}

func TestInprocCancelStopsDelivery(t *testing.T) {
	b := NewInprocBus()
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()

	require.NoError(t, b.Publish(context.Background(), "finished", nil))

	_, open := <-ch
	assert.False(t, open, "cancelled subscription channel must be closed")
}

func TestInprocDropsWhenSubscriberFull(t *testing.T) {
	b := NewInprocBus()
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	// Fill the buffer and then some; Publish must never block.
	for i := 0; i < 100; i++ {
		require.NoError(t, b.Publish(context.Background(), "state_changed", i))
	}
	assert.Len(t, ch, 64)
}

func TestInprocPublishAfterClose(t *testing.T) {
	b := NewInprocBus()
	_, _ = b.Subscribe()
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	require.NoError(t, b.Publish(context.Background(), "finished", nil))
}
