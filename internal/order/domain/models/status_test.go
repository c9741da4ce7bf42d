package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPreparing, true},
		{StatusPending, StatusDone, true},
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPreparing, StatusDone, true},
		{StatusPreparing, StatusPending, false},
		{StatusDone, StatusPaid, true},
		{StatusDone, StatusCancelled, true},
		{StatusDone, StatusPreparing, false},
		{StatusPaid, StatusPreparing, false},
		{StatusPaid, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusPaid, false},
		{StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTerminalStatusesHaveNoTargets(t *testing.T) {
	for _, s := range []Status{StatusPaid, StatusCancelled} {
		assert.True(t, s.Terminal())
		for _, next := range []Status{StatusPending, StatusPreparing, StatusDone, StatusPaid, StatusCancelled} {
			assert.False(t, s.CanTransition(next), "%s -> %s", s, next)
		}
	}
	for _, s := range OpenStatuses() {
		assert.False(t, s.Terminal())
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusDone.Valid())
	assert.False(t, Status("served").Valid())
	assert.False(t, Status("").Valid())
}

func TestItemsTotal(t *testing.T) {
	items := []OrderItem{
		{FoodID: "a", Quantity: 2, Price: 10000},
		{FoodID: "b", Quantity: 1, Price: 25000},
	}
	assert.Equal(t, int64(45000), ItemsTotal(items))
	assert.Equal(t, int64(0), ItemsTotal(nil))
}

func TestOrderCloneDoesNotShareItems(t *testing.T) {
	o := Order{ID: "1", Items: []OrderItem{{FoodID: "a", Quantity: 1, Price: 5}}}
	c := o.Clone()
	c.Items[0].Quantity = 9

	assert.Equal(t, 1, o.Items[0].Quantity)
}

func TestOrderFilterMatch(t *testing.T) {
	o := Order{TableNumber: 5, Status: StatusDone}

	assert.True(t, OrderFilter{}.Match(o))
	assert.True(t, OrderFilter{TableNumber: 5}.Match(o))
	assert.False(t, OrderFilter{TableNumber: 6}.Match(o))
	assert.True(t, OrderFilter{Statuses: OpenStatuses()}.Match(o))
	assert.False(t, OrderFilter{Statuses: []Status{StatusPaid}}.Match(o))
}

func TestPaymentFilterBounds(t *testing.T) {
	p := Payment{TableNumber: 2, CreatedAt: 1000}

	assert.True(t, PaymentFilter{From: 1000, To: 1001}.Match(p))
	assert.False(t, PaymentFilter{To: 1000}.Match(p))
	assert.False(t, PaymentFilter{From: 1001}.Match(p))
	assert.False(t, PaymentFilter{TableNumber: 3}.Match(p))
}

func TestFoodPatchApply(t *testing.T) {
	price := int64(12000)
	available := false
	f := FoodPatch{Price: &price, IsAvailable: &available}.Apply(Food{Name: "pho", Price: 10000, IsAvailable: true})

	assert.Equal(t, "pho", f.Name)
	assert.Equal(t, int64(12000), f.Price)
	assert.False(t, f.IsAvailable)
}

func TestEventKindName(t *testing.T) {
	assert.Equal(t, "order:new", EventNew.Name())
	assert.Equal(t, "order:update", EventUpdate.Name())
	assert.Equal(t, "order:cancelled", EventCancelled.Name())
}
