package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dine-order/internal/order/adapter/db/memory"
	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/logger"

	"github.com/stretchr/testify/require"
)

// recorder keeps published events in order.
type recorder struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, event models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind.Name())
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// faultyStore fails status writes to chosen targets for chosen orders.
type faultyStore struct {
	*memory.Store

	mu    sync.Mutex
	fails map[string]models.Status
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: memory.New(), fails: make(map[string]models.Status)}
}

func (s *faultyStore) failStatus(orderID string, to models.Status) {
	s.mu.Lock()
	s.fails[orderID] = to
	s.mu.Unlock()
}

func (s *faultyStore) heal() {
	s.mu.Lock()
	s.fails = make(map[string]models.Status)
	s.mu.Unlock()
}

func (s *faultyStore) Orders() core.IOrderRepo {
	return faultyOrders{IOrderRepo: s.Store.Orders(), s: s}
}

type faultyOrders struct {
	core.IOrderRepo
	s *faultyStore
}

func (o faultyOrders) UpdateStatus(ctx context.Context, id string, from, to models.Status, change models.StatusChange) (models.Order, error) {
	o.s.mu.Lock()
	target, ok := o.s.fails[id]
	o.s.mu.Unlock()
	if ok && target == to {
		return models.Order{}, core.ErrStoreUnavailable
	}
	return o.IOrderRepo.UpdateStatus(ctx, id, from, to, change)
}

type fixture struct {
	store   core.Store
	catalog *Catalog
	svc     *OrderService
	events  *recorder
}

func newFixture(t *testing.T, store core.Store) *fixture {
	t.Helper()
	if store == nil {
		store = memory.New()
	}
	catalog := NewCatalog(store, time.Minute, logger.Discard())
	events := &recorder{}
	return &fixture{
		store:   store,
		catalog: catalog,
		svc:     NewOrderService(store, catalog, events, logger.Discard()),
		events:  events,
	}
}

func (f *fixture) food(t *testing.T, name string, price int64) string {
	t.Helper()
	food, err := f.catalog.CreateFood(context.Background(), dto.FoodRequest{Name: name, Price: price})
	require.NoError(t, err)
	return food.ID
}

func (f *fixture) place(t *testing.T, table int, items ...dto.Item) models.Order {
	t.Helper()
	order, err := f.svc.PlaceOrder(context.Background(), dto.PlaceOrderRequest{TableNumber: table, Items: items})
	require.NoError(t, err)
	return order
}

// tick makes CreatedAt strictly increase between calls.
func (f *fixture) tick() {
	base := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	var n int64
	var mu sync.Mutex
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

var errBroadcast = errors.New("socket server down")
