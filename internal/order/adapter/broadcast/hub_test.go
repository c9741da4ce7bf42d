package broadcast

import (
	"context"
	"testing"

	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(kind models.EventKind, table int, id string, version int) models.Event {
	return models.Event{Kind: kind, Order: models.Order{ID: id, TableNumber: table, Version: version}}
}

func TestHubScopes(t *testing.T) {
	h := NewHub(8, logger.Discard())
	five := h.Subscribe(5)
	six := h.Subscribe(6)
	all := h.SubscribeAll()
	defer five.Close()
	defer six.Close()
	defer all.Close()

	require.NoError(t, h.Publish(context.Background(), event(models.EventUpdate, 5, "a", 2)))

	msg := <-five.C
	assert.Equal(t, "order:update", msg.Event)
	assert.Equal(t, "a", msg.Order.ID)
	assert.Equal(t, 2, msg.Version)

	assert.Equal(t, msg, <-all.C)
	assert.Empty(t, six.C)
}

func TestHubKeepsPublishOrder(t *testing.T) {
	h := NewHub(16, logger.Discard())
	sub := h.Subscribe(1)
	defer sub.Close()

	for v := 1; v <= 10; v++ {
		require.NoError(t, h.Publish(context.Background(), event(models.EventUpdate, 1, "a", v)))
	}
	for v := 1; v <= 10; v++ {
		assert.Equal(t, v, (<-sub.C).Version)
	}
}

func TestHubEvictsFullSubscriber(t *testing.T) {
	h := NewHub(2, logger.Discard())
	slow := h.Subscribe(1)
	fast := h.Subscribe(1)

	for v := 1; v <= 3; v++ {
		require.NoError(t, h.Publish(context.Background(), event(models.EventUpdate, 1, "a", v)))
		if v < 3 {
			<-fast.C
		}
	}

	// the slow one got two buffered events and was then closed
	assert.Equal(t, 1, (<-slow.C).Version)
	assert.Equal(t, 2, (<-slow.C).Version)
	_, ok := <-slow.C
	assert.False(t, ok)

	assert.Equal(t, 3, (<-fast.C).Version)

	subscribers, evicted := h.Stats()
	assert.Equal(t, 1, subscribers)
	assert.Equal(t, uint64(1), evicted)

	// closing an evicted subscription is harmless
	slow.Close()
	fast.Close()
	fast.Close()

	subscribers, _ = h.Stats()
	assert.Zero(t, subscribers)
}
