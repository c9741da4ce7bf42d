package services

import (
	"context"
	"errors"
	"testing"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/order/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleTableSumsOpenOrders(t *testing.T) {
	f := newFixture(t, nil)
	a := f.food(t, "spring rolls", 10000)
	b := f.food(t, "pho", 25000)
	c := f.food(t, "tea", 15000)

	o1 := f.place(t, 5, dto.Item{FoodID: a, Quantity: 2}, dto.Item{FoodID: b, Quantity: 1})
	o2 := f.place(t, 5, dto.Item{FoodID: c, Quantity: 1})
	require.Equal(t, int64(45000), o1.Total)
	require.Equal(t, int64(15000), o2.Total)

	payment, err := f.svc.SettleTable(context.Background(), 5, models.MethodCard, "cashier")
	require.NoError(t, err)

	assert.Equal(t, int64(60000), payment.TotalAmount)
	assert.Equal(t, models.ItemsTotal(payment.Items), payment.TotalAmount)
	assert.Equal(t, models.MethodCard, payment.Method)
	assert.Equal(t, models.StatusPaid, payment.Status)
	assert.ElementsMatch(t, []string{o1.ID, o2.ID}, payment.OrderIDs)

	for _, id := range []string{o1.ID, o2.ID} {
		o, err := f.svc.GetOrder(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, o.Status)
	}

	payments, err := f.svc.ListPayments(context.Background(), models.PaymentFilter{TableNumber: 5})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestSettleTableMergesSameFood(t *testing.T) {
	f := newFixture(t, nil)
	f.tick()
	a := f.food(t, "spring rolls", 10000)

	f.place(t, 5, dto.Item{FoodID: a, Quantity: 2})
	f.place(t, 5, dto.Item{FoodID: a, Quantity: 3})

	payment, err := f.svc.SettleTable(context.Background(), 5, "", "")
	require.NoError(t, err)

	assert.Equal(t, []models.OrderItem{{FoodID: a, Quantity: 5, Price: 10000}}, payment.Items)
	assert.Equal(t, int64(50000), payment.TotalAmount)
	assert.Equal(t, models.MethodCash, payment.Method, "cash is the default method")
}

func TestSettleTableKeepsCapturedPrices(t *testing.T) {
	f := newFixture(t, nil)
	f.tick()
	a := f.food(t, "spring rolls", 10000)
	first := f.place(t, 5, dto.Item{FoodID: a, Quantity: 1})

	price := int64(12000)
	_, err := f.catalog.UpdateFood(context.Background(), a, models.FoodPatch{Price: &price})
	require.NoError(t, err)

	second := f.place(t, 5, dto.Item{FoodID: a, Quantity: 1})
	require.Equal(t, int64(10000), first.Total)
	require.Equal(t, int64(12000), second.Total)

	payment, err := f.svc.SettleTable(context.Background(), 5, "", "")
	require.NoError(t, err)

	assert.Equal(t, []models.OrderItem{
		{FoodID: a, Quantity: 1, Price: 10000},
		{FoodID: a, Quantity: 1, Price: 12000},
	}, payment.Items)
	assert.Equal(t, int64(22000), payment.TotalAmount)
	assert.Equal(t, first.Total+second.Total, payment.TotalAmount)

	for _, id := range []string{first.ID, second.ID} {
		o, err := f.svc.GetOrder(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, o.Status)
	}
}

func TestSettleTableNothingToSettle(t *testing.T) {
	f := newFixture(t, nil)
	a := f.food(t, "tea", 5000)
	o := f.place(t, 9, dto.Item{FoodID: a, Quantity: 1})
	_, err := f.svc.CancelOrder(context.Background(), o.ID, "")
	require.NoError(t, err)

	_, err = f.svc.SettleTable(context.Background(), 9, "", "")
	assert.ErrorIs(t, err, core.ErrNothingToSettle)

	_, err = f.svc.SettleTable(context.Background(), 10, "", "")
	assert.ErrorIs(t, err, core.ErrNothingToSettle)

	payments, err := f.svc.ListPayments(context.Background(), models.PaymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestSettleTableSkipsCancelledOrders(t *testing.T) {
	f := newFixture(t, nil)
	a := f.food(t, "tea", 5000)
	keep := f.place(t, 3, dto.Item{FoodID: a, Quantity: 1})
	drop := f.place(t, 3, dto.Item{FoodID: a, Quantity: 4})
	_, err := f.svc.CancelOrder(context.Background(), drop.ID, "")
	require.NoError(t, err)

	payment, err := f.svc.SettleTable(context.Background(), 3, "", "")
	require.NoError(t, err)

	assert.Equal(t, []string{keep.ID}, payment.OrderIDs)
	assert.Equal(t, int64(5000), payment.TotalAmount)
}

func TestSettleTablePartialThenResume(t *testing.T) {
	store := newFaultyStore()
	f := newFixture(t, store)
	a := f.food(t, "spring rolls", 10000)
	o1 := f.place(t, 5, dto.Item{FoodID: a, Quantity: 2})
	o2 := f.place(t, 5, dto.Item{FoodID: a, Quantity: 1})
	store.failStatus(o2.ID, models.StatusPaid)

	payment, err := f.svc.SettleTable(context.Background(), 5, "", "")
	require.ErrorIs(t, err, core.ErrPartialSettlement)

	var partial *core.PartialSettlementError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, payment, partial.Payment)
	assert.Equal(t, []string{o1.ID}, partial.Settled)
	assert.Contains(t, partial.Failed, o2.ID)
	assert.Equal(t, int64(30000), payment.TotalAmount)

	stuck, err := f.svc.GetOrder(context.Background(), o2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stuck.Status)

	store.heal()

	resumed, err := f.svc.SettleTable(context.Background(), 5, "", "")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, resumed.ID, "the stored payment is reused")

	o2After, err := f.svc.GetOrder(context.Background(), o2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, o2After.Status)

	payments, err := f.svc.ListPayments(context.Background(), models.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, payments, 1, "no second payment")

	_, err = f.svc.SettleTable(context.Background(), 5, "", "")
	assert.ErrorIs(t, err, core.ErrNothingToSettle)
}

func TestSettleTableResumeBillsNewOrders(t *testing.T) {
	store := newFaultyStore()
	f := newFixture(t, store)
	ctx := context.Background()
	_, err := f.catalog.CreateTable(ctx, dto.TableRequest{Number: 5})
	require.NoError(t, err)

	a := f.food(t, "spring rolls", 10000)
	o1 := f.place(t, 5, dto.Item{FoodID: a, Quantity: 1})
	o2 := f.place(t, 5, dto.Item{FoodID: a, Quantity: 1})
	store.failStatus(o2.ID, models.StatusPaid)

	first, err := f.svc.SettleTable(ctx, 5, "", "")
	require.ErrorIs(t, err, core.ErrPartialSettlement)
	assert.Equal(t, int64(20000), first.TotalAmount)

	store.heal()
	o3 := f.place(t, 5, dto.Item{FoodID: a, Quantity: 4})

	second, err := f.svc.SettleTable(ctx, 5, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{o3.ID}, second.OrderIDs)
	assert.Equal(t, int64(40000), second.TotalAmount)

	for _, id := range []string{o1.ID, o2.ID, o3.ID} {
		o, err := f.svc.GetOrder(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, o.Status, id)
	}

	payments, err := f.svc.ListPayments(ctx, models.PaymentFilter{TableNumber: 5})
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	table, err := store.Tables().Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, table.IsOccupied)
}

func TestSettleTableKeepsTableOccupiedWhileResumeFails(t *testing.T) {
	store := newFaultyStore()
	f := newFixture(t, store)
	ctx := context.Background()
	_, err := f.catalog.CreateTable(ctx, dto.TableRequest{Number: 5})
	require.NoError(t, err)

	a := f.food(t, "tea", 5000)
	f.place(t, 5, dto.Item{FoodID: a, Quantity: 1})
	stuck := f.place(t, 5, dto.Item{FoodID: a, Quantity: 1})
	store.failStatus(stuck.ID, models.StatusPaid)

	_, err = f.svc.SettleTable(ctx, 5, "", "")
	require.ErrorIs(t, err, core.ErrPartialSettlement)
	later := f.place(t, 5, dto.Item{FoodID: a, Quantity: 2})

	_, err = f.svc.SettleTable(ctx, 5, "", "")
	require.ErrorIs(t, err, core.ErrPartialSettlement)

	o, err := f.svc.GetOrder(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, o.Status, "not billed until the stored payment completes")

	table, err := store.Tables().Get(ctx, 5)
	require.NoError(t, err)
	assert.True(t, table.IsOccupied)
}

func TestSettlementKeyAndPaymentIDAreDeterministic(t *testing.T) {
	k1 := SettlementKey(5, []string{"b", "a"})
	k2 := SettlementKey(5, []string{"a", "b"})

	assert.Equal(t, "5:a,b", k1)
	assert.Equal(t, k1, k2)
	assert.Equal(t, PaymentID(k1), PaymentID(k2))
	assert.NotEqual(t, PaymentID(k1), PaymentID(SettlementKey(6, []string{"a", "b"})))
}

func TestMergeItemsSplitsLinesByPrice(t *testing.T) {
	orders := []models.Order{
		{ID: "1", CreatedAt: 10, Items: []models.OrderItem{{FoodID: "a", Quantity: 2, Price: 3}}},
		{ID: "2", CreatedAt: 20, Items: []models.OrderItem{{FoodID: "a", Quantity: 1, Price: 4}}},
		{ID: "3", CreatedAt: 30, Items: []models.OrderItem{{FoodID: "a", Quantity: 5, Price: 3}}},
	}

	merged := MergeItems(orders)
	assert.Equal(t, []models.OrderItem{
		{FoodID: "a", Quantity: 7, Price: 3},
		{FoodID: "a", Quantity: 1, Price: 4},
	}, merged)
	assert.Equal(t, int64(25), models.ItemsTotal(merged))
}

func TestMergeItemsOrdersByCreation(t *testing.T) {
	orders := []models.Order{
		{ID: "2", CreatedAt: 20, Items: []models.OrderItem{{FoodID: "b", Quantity: 1, Price: 7}, {FoodID: "a", Quantity: 1, Price: 3}}},
		{ID: "1", CreatedAt: 10, Items: []models.OrderItem{{FoodID: "a", Quantity: 2, Price: 3}}},
	}

	merged := MergeItems(orders)
	assert.Equal(t, []models.OrderItem{
		{FoodID: "a", Quantity: 3, Price: 3},
		{FoodID: "b", Quantity: 1, Price: 7},
	}, merged)
}
