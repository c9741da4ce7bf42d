// Package memory keeps every entity in process memory. It backs tests and
// single-process local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/models"

	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	foods    map[string]models.Food
	orders   map[string]models.Order
	history  map[string][]models.StatusChange
	payments map[string]models.Payment
	tables   map[int]models.Table
}

func New() *Store {
	return &Store{
		now:      time.Now,
		foods:    make(map[string]models.Food),
		orders:   make(map[string]models.Order),
		history:  make(map[string][]models.StatusChange),
		payments: make(map[string]models.Payment),
		tables:   make(map[int]models.Table),
	}
}

func (s *Store) Foods() core.IFoodRepo       { return foodRepo{s} }
func (s *Store) Orders() core.IOrderRepo     { return orderRepo{s} }
func (s *Store) Payments() core.IPaymentRepo { return paymentRepo{s} }
func (s *Store) Tables() core.ITableRepo     { return tableRepo{s} }

func (s *Store) IsAlive(ctx context.Context) error { return alive(ctx) }
func (s *Store) Close() error                      { return nil }

func (s *Store) millis() int64 { return s.now().UnixMilli() }

func newID() string { return uuid.NewString() }

// alive reports a cancelled or expired ctx the way a remote store reports a
// timeout.
func alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// foods

type foodRepo struct{ s *Store }

func (r foodRepo) Create(ctx context.Context, food models.Food) (models.Food, error) {
	if err := alive(ctx); err != nil {
		return models.Food{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if food.ID == "" {
		food.ID = newID()
	}
	if _, ok := r.s.foods[food.ID]; ok {
		return models.Food{}, core.ErrConflict
	}
	if food.CreatedAt == 0 {
		food.CreatedAt = r.s.millis()
	}
	r.s.foods[food.ID] = food
	return food, nil
}

func (r foodRepo) Get(ctx context.Context, id string) (models.Food, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	food, ok := r.s.foods[id]
	if !ok {
		return models.Food{}, core.ErrNotFound
	}
	return food, nil
}

func (r foodRepo) GetMany(ctx context.Context, ids []string) (map[string]models.Food, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]models.Food, len(ids))
	for _, id := range ids {
		if food, ok := r.s.foods[id]; ok {
			out[id] = food
		}
	}
	return out, nil
}

func (r foodRepo) List(ctx context.Context) ([]models.Food, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Food, 0, len(r.s.foods))
	for _, food := range r.s.foods {
		out = append(out, food)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r foodRepo) Update(ctx context.Context, id string, patch models.FoodPatch) (models.Food, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	food, ok := r.s.foods[id]
	if !ok {
		return models.Food{}, core.ErrNotFound
	}
	food = patch.Apply(food)
	r.s.foods[id] = food
	return food, nil
}

func (r foodRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.foods[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.s.foods, id)
	return nil
}

// orders

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, order models.Order) (models.Order, error) {
	if err := alive(ctx); err != nil {
		return models.Order{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.ID == "" {
		order.ID = newID()
	}
	if _, ok := r.s.orders[order.ID]; ok {
		return models.Order{}, core.ErrConflict
	}
	if order.CreatedAt == 0 {
		order.CreatedAt = r.s.millis()
	}
	if order.UpdatedAt == 0 {
		order.UpdatedAt = order.CreatedAt
	}
	if order.Version == 0 {
		order.Version = 1
	}
	order = order.Clone()
	r.s.orders[order.ID] = order
	r.s.history[order.ID] = []models.StatusChange{{
		Status:    order.Status,
		ChangedBy: core.DefaultChangedBy,
		ChangedAt: order.CreatedAt,
	}}
	return order.Clone(), nil
}

func (r orderRepo) Get(ctx context.Context, id string) (models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.orders[id]
	if !ok {
		return models.Order{}, core.ErrNotFound
	}
	return order.Clone(), nil
}

func (r orderRepo) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Order, 0)
	for _, order := range r.s.orders {
		if filter.Match(order) {
			out = append(out, order.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r orderRepo) UpdateStatus(ctx context.Context, id string, from, to models.Status, change models.StatusChange) (models.Order, error) {
	if err := alive(ctx); err != nil {
		return models.Order{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.orders[id]
	if !ok {
		return models.Order{}, core.ErrNotFound
	}
	if order.Status != from {
		return models.Order{}, core.ErrConflict
	}

	if change.ChangedAt == 0 {
		change.ChangedAt = r.s.millis()
	}
	order.Status = to
	order.Version++
	order.UpdatedAt = change.ChangedAt
	r.s.orders[id] = order
	r.s.history[id] = append(r.s.history[id], change)
	return order.Clone(), nil
}

func (r orderRepo) History(ctx context.Context, id string) ([]models.StatusChange, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.orders[id]; !ok {
		return nil, core.ErrNotFound
	}
	out := make([]models.StatusChange, len(r.s.history[id]))
	copy(out, r.s.history[id])
	return out, nil
}

// payments

type paymentRepo struct{ s *Store }

func (r paymentRepo) CreateOnce(ctx context.Context, payment models.Payment) (models.Payment, bool, error) {
	if err := alive(ctx); err != nil {
		return models.Payment{}, false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.payments {
		if existing.SettlementKey == payment.SettlementKey {
			return existing.Clone(), false, nil
		}
	}

	if payment.ID == "" {
		payment.ID = newID()
	}
	if _, ok := r.s.payments[payment.ID]; ok {
		return models.Payment{}, false, core.ErrConflict
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = r.s.millis()
	}
	payment = payment.Clone()
	r.s.payments[payment.ID] = payment
	return payment.Clone(), true, nil
}

func (r paymentRepo) Get(ctx context.Context, id string) (models.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	payment, ok := r.s.payments[id]
	if !ok {
		return models.Payment{}, core.ErrNotFound
	}
	return payment.Clone(), nil
}

func (r paymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Payment, 0)
	for _, payment := range r.s.payments {
		if filter.Match(payment) {
			out = append(out, payment.Clone())
		}
	}
	sortPayments(out)
	return out, nil
}

func (r paymentRepo) FindByOrderIDs(ctx context.Context, orderIDs []string) ([]models.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = struct{}{}
	}

	out := make([]models.Payment, 0)
	for _, payment := range r.s.payments {
		for _, id := range payment.OrderIDs {
			if _, ok := wanted[id]; ok {
				out = append(out, payment.Clone())
				break
			}
		}
	}
	sortPayments(out)
	return out, nil
}

func sortPayments(ps []models.Payment) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt != ps[j].CreatedAt {
			return ps[i].CreatedAt > ps[j].CreatedAt
		}
		return ps[i].ID > ps[j].ID
	})
}

// tables

type tableRepo struct{ s *Store }

func (r tableRepo) Create(ctx context.Context, table models.Table) (models.Table, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tables[table.Number]; ok {
		return models.Table{}, core.ErrConflict
	}
	if table.ID == "" {
		table.ID = newID()
	}
	if table.CreatedAt == 0 {
		table.CreatedAt = r.s.millis()
	}
	r.s.tables[table.Number] = table
	return table, nil
}

func (r tableRepo) Get(ctx context.Context, number int) (models.Table, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	table, ok := r.s.tables[number]
	if !ok {
		return models.Table{}, core.ErrNotFound
	}
	return table, nil
}

func (r tableRepo) List(ctx context.Context) ([]models.Table, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Table, 0, len(r.s.tables))
	for _, table := range r.s.tables {
		out = append(out, table)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r tableRepo) SetOccupied(ctx context.Context, number int, occupied bool) (models.Table, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	table, ok := r.s.tables[number]
	if !ok {
		return models.Table{}, core.ErrNotFound
	}
	table.IsOccupied = occupied
	r.s.tables[number] = table
	return table, nil
}

func (r tableRepo) Delete(ctx context.Context, number int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tables[number]; !ok {
		return core.ErrNotFound
	}
	delete(r.s.tables, number)
	return nil
}
