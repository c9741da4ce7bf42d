package core

import (
	"context"

	"dine-order/internal/order/domain/models"
)

// Store is the persistence gateway. Writes to one record are atomic;
// nothing spans records, so callers must stay retry-safe.
type Store interface {
	Foods() IFoodRepo
	Orders() IOrderRepo
	Payments() IPaymentRepo
	Tables() ITableRepo

	IsAlive(ctx context.Context) error
	Close() error
}

type IFoodRepo interface {
	Create(ctx context.Context, food models.Food) (models.Food, error)
	Get(ctx context.Context, id string) (models.Food, error)
	// GetMany returns the foods found, keyed by id. Missing ids are absent from the map.
	GetMany(ctx context.Context, ids []string) (map[string]models.Food, error)
	List(ctx context.Context) ([]models.Food, error)
	Update(ctx context.Context, id string, patch models.FoodPatch) (models.Food, error)
	Delete(ctx context.Context, id string) error
}

type IOrderRepo interface {
	Create(ctx context.Context, order models.Order) (models.Order, error)
	Get(ctx context.Context, id string) (models.Order, error)
	// List returns matching orders, newest first.
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	// UpdateStatus writes to only if the stored status still equals from,
	// bumps Version and appends a history row. A lost race returns ErrConflict.
	UpdateStatus(ctx context.Context, id string, from, to models.Status, change models.StatusChange) (models.Order, error)
	History(ctx context.Context, id string) ([]models.StatusChange, error)
}

type IPaymentRepo interface {
	// CreateOnce inserts the payment unless one with the same SettlementKey
	// exists, in which case the stored one is returned with created=false.
	CreateOnce(ctx context.Context, payment models.Payment) (stored models.Payment, created bool, err error)
	Get(ctx context.Context, id string) (models.Payment, error)
	// List returns matching payments, newest first.
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	// FindByOrderIDs returns payments referencing any of the given orders.
	FindByOrderIDs(ctx context.Context, orderIDs []string) ([]models.Payment, error)
}

type ITableRepo interface {
	Create(ctx context.Context, table models.Table) (models.Table, error)
	Get(ctx context.Context, number int) (models.Table, error)
	List(ctx context.Context) ([]models.Table, error)
	SetOccupied(ctx context.Context, number int, occupied bool) (models.Table, error)
	Delete(ctx context.Context, number int) error
}
