package services

import (
	"context"
	"testing"
	"time"

	"dine-order/internal/order/adapter/db/memory"
	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogWritesInvalidateCache(t *testing.T) {
	store := memory.New()
	c := NewCatalog(store, time.Hour, logger.Discard())
	ctx := context.Background()

	food, err := c.CreateFood(ctx, dto.FoodRequest{Name: "pho", Price: 45000})
	require.NoError(t, err)

	foods, err := c.ListFoods(ctx)
	require.NoError(t, err)
	require.Len(t, foods, 1)

	price := int64(50000)
	_, err = c.UpdateFood(ctx, food.ID, models.FoodPatch{Price: &price})
	require.NoError(t, err)

	got, err := c.GetFood(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), got.Price)

	require.NoError(t, c.DeleteFood(ctx, food.ID))
	foods, err = c.ListFoods(ctx)
	require.NoError(t, err)
	assert.Empty(t, foods)
}

func TestCatalogServesCachedMenu(t *testing.T) {
	store := memory.New()
	c := NewCatalog(store, time.Hour, logger.Discard())
	ctx := context.Background()

	food, err := c.CreateFood(ctx, dto.FoodRequest{Name: "pho", Price: 45000})
	require.NoError(t, err)
	_, err = c.ListFoods(ctx)
	require.NoError(t, err)

	// a write that bypasses the catalog is not seen until invalidation
	price := int64(1)
	_, err = store.Foods().Update(ctx, food.ID, models.FoodPatch{Price: &price})
	require.NoError(t, err)

	got, err := c.GetFood(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(45000), got.Price)

	c.Invalidate()
	got, err = c.GetFood(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Price)
}

func TestCatalogExpiresAfterTTL(t *testing.T) {
	store := memory.New()
	c := NewCatalog(store, time.Minute, logger.Discard())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := c.ListFoods(ctx)
	require.NoError(t, err)

	_, err = store.Foods().Create(ctx, models.Food{Name: "tea", Price: 5000, IsAvailable: true})
	require.NoError(t, err)

	foods, err := c.ListFoods(ctx)
	require.NoError(t, err)
	assert.Empty(t, foods)

	now = now.Add(time.Minute)
	foods, err = c.ListFoods(ctx)
	require.NoError(t, err)
	assert.Len(t, foods, 1)
}

func TestResolveFoodsFallsBackToStore(t *testing.T) {
	store := memory.New()
	c := NewCatalog(store, time.Hour, logger.Discard())
	ctx := context.Background()

	known, err := c.CreateFood(ctx, dto.FoodRequest{Name: "pho", Price: 45000})
	require.NoError(t, err)
	_, err = c.ListFoods(ctx)
	require.NoError(t, err)

	// created by another instance
	fresh, err := store.Foods().Create(ctx, models.Food{Name: "tea", Price: 5000, IsAvailable: true})
	require.NoError(t, err)

	got, err := c.ResolveFoods(ctx, []string{known.ID, fresh.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(5000), got[fresh.ID].Price)
}

func TestCatalogWithoutCache(t *testing.T) {
	store := memory.New()
	c := NewCatalog(store, 0, logger.Discard())
	ctx := context.Background()

	food, err := c.CreateFood(ctx, dto.FoodRequest{Name: "pho", Price: 45000})
	require.NoError(t, err)

	got, err := c.ResolveFoods(ctx, []string{food.ID})
	require.NoError(t, err)
	assert.Contains(t, got, food.ID)
}

func TestCatalogTables(t *testing.T) {
	c := NewCatalog(memory.New(), time.Hour, logger.Discard())
	ctx := context.Background()

	_, err := c.CreateTable(ctx, dto.TableRequest{Number: 2})
	require.NoError(t, err)
	_, err = c.CreateTable(ctx, dto.TableRequest{Number: 1})
	require.NoError(t, err)

	_, err = c.CreateTable(ctx, dto.TableRequest{Number: 2})
	assert.ErrorIs(t, err, core.ErrConflict)
	_, err = c.CreateTable(ctx, dto.TableRequest{Number: 0})
	assert.ErrorIs(t, err, core.ErrValidation)

	tables, err := c.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, 1, tables[0].Number)

	require.NoError(t, c.DeleteTable(ctx, 1))
	assert.ErrorIs(t, c.DeleteTable(ctx, 1), core.ErrNotFound)

	// untracked tables are ignored
	c.markTable(ctx, 42, true)
}
