package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/logger"
)

// Catalog serves foods and tables. Food reads go through a read-through cache
// of the whole menu that every admin write invalidates.
type Catalog struct {
	store core.Store
	mylog logger.Logger
	ttl   time.Duration
	now   func() time.Time

	// loadLock serialises reloads so an expired cache causes one store read.
	loadLock sync.Mutex
	mu       sync.RWMutex
	foods    []models.Food
	menu     map[string]models.Food
	loadedAt time.Time
	// gen changes on every invalidation; a load started before it is not stored.
	gen uint64
}

// NewCatalog builds the catalog. A ttl of zero disables caching.
func NewCatalog(store core.Store, ttl time.Duration, mylog logger.Logger) *Catalog {
	return &Catalog{
		store: store,
		mylog: mylog,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *Catalog) cached() (map[string]models.Food, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.menu == nil || c.ttl <= 0 || c.now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	return c.menu, true
}

func (c *Catalog) menuSnapshot(ctx context.Context) (map[string]models.Food, error) {
	if menu, ok := c.cached(); ok {
		return menu, nil
	}

	c.loadLock.Lock()
	defer c.loadLock.Unlock()

	// another goroutine may have reloaded while we waited
	if menu, ok := c.cached(); ok {
		return menu, nil
	}

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	foods, err := c.store.Foods().List(ctx)
	if err != nil {
		return nil, err
	}
	menu := make(map[string]models.Food, len(foods))
	for _, food := range foods {
		menu[food.ID] = food
	}

	if c.ttl > 0 {
		c.mu.Lock()
		if c.gen == gen {
			c.foods = foods
			c.menu = menu
			c.loadedAt = c.now()
		}
		c.mu.Unlock()
	}
	return menu, nil
}

// Invalidate drops the cached menu.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.foods = nil
	c.menu = nil
	c.gen++
	c.mu.Unlock()
}

// ResolveFoods returns the foods for ids. Ids absent from the cached menu are
// looked up in the store, so a food created on another instance is found.
func (c *Catalog) ResolveFoods(ctx context.Context, ids []string) (map[string]models.Food, error) {
	out := make(map[string]models.Food, len(ids))

	var missing []string
	if c.ttl > 0 {
		menu, err := c.menuSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if food, ok := menu[id]; ok {
				out[id] = food
			} else {
				missing = append(missing, id)
			}
		}
	} else {
		missing = ids
	}

	if len(missing) == 0 {
		return out, nil
	}

	found, err := c.store.Foods().GetMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, food := range found {
		out[id] = food
	}
	return out, nil
}

func (c *Catalog) ListFoods(ctx context.Context) ([]models.Food, error) {
	if c.ttl <= 0 {
		return c.store.Foods().List(ctx)
	}
	if _, err := c.menuSnapshot(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	out := make([]models.Food, len(c.foods))
	copy(out, c.foods)
	stale := c.foods == nil
	c.mu.RUnlock()

	if stale {
		// invalidated between the load and this read
		return c.store.Foods().List(ctx)
	}
	return out, nil
}

func (c *Catalog) GetFood(ctx context.Context, id string) (models.Food, error) {
	if menu, ok := c.cached(); ok {
		if food, ok := menu[id]; ok {
			return food, nil
		}
	}
	return c.store.Foods().Get(ctx, id)
}

func (c *Catalog) CreateFood(ctx context.Context, req dto.FoodRequest) (models.Food, error) {
	mylog := c.mylog.Action("food_create")

	if err := req.Validate(); err != nil {
		return models.Food{}, err
	}

	food := req.ToFood()
	food.CreatedAt = c.now().UnixMilli()

	created, err := c.store.Foods().Create(ctx, food)
	if err != nil {
		mylog.Error("Failed to create food", err, "name", food.Name)
		return models.Food{}, fmt.Errorf("create food: %w", err)
	}
	c.Invalidate()

	mylog.Info("Food created", "food_id", created.ID, "price", created.Price)
	return created, nil
}

func (c *Catalog) UpdateFood(ctx context.Context, id string, patch models.FoodPatch) (models.Food, error) {
	mylog := c.mylog.Action("food_update")

	if err := dto.ValidateFoodPatch(patch); err != nil {
		return models.Food{}, err
	}

	updated, err := c.store.Foods().Update(ctx, id, patch)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			mylog.Error("Failed to update food", err, "food_id", id)
		}
		return models.Food{}, fmt.Errorf("update food %s: %w", id, err)
	}
	c.Invalidate()

	mylog.Info("Food updated", "food_id", id)
	return updated, nil
}

func (c *Catalog) DeleteFood(ctx context.Context, id string) error {
	mylog := c.mylog.Action("food_delete")

	if err := c.store.Foods().Delete(ctx, id); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			mylog.Error("Failed to delete food", err, "food_id", id)
		}
		return fmt.Errorf("delete food %s: %w", id, err)
	}
	c.Invalidate()

	mylog.Info("Food deleted", "food_id", id)
	return nil
}

func (c *Catalog) ListTables(ctx context.Context) ([]models.Table, error) {
	return c.store.Tables().List(ctx)
}

func (c *Catalog) CreateTable(ctx context.Context, req dto.TableRequest) (models.Table, error) {
	if err := dto.ValidateTableNumber(req.Number); err != nil {
		return models.Table{}, err
	}

	table, err := c.store.Tables().Create(ctx, models.Table{
		Number:    req.Number,
		CreatedAt: c.now().UnixMilli(),
	})
	if err != nil {
		return models.Table{}, fmt.Errorf("create table %d: %w", req.Number, err)
	}

	c.mylog.Action("table_create").Info("Table created", "table_number", table.Number)
	return table, nil
}

func (c *Catalog) DeleteTable(ctx context.Context, number int) error {
	if err := c.store.Tables().Delete(ctx, number); err != nil {
		return fmt.Errorf("delete table %d: %w", number, err)
	}
	c.mylog.Action("table_delete").Info("Table deleted", "table_number", number)
	return nil
}

// markTable flags a tracked table occupied or free. Tables are optional, so an
// untracked table number is not an error and failures are only logged.
func (c *Catalog) markTable(ctx context.Context, number int, occupied bool) {
	_, err := c.store.Tables().SetOccupied(ctx, number, occupied)
	if err == nil || errors.Is(err, core.ErrNotFound) {
		return
	}
	c.mylog.Action("table_mark").Warn("Failed to update table occupancy",
		"table_number", number,
		"occupied", occupied,
		"reason", err.Error(),
	)
}
