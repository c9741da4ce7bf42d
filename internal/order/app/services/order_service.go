package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// OrderService owns the order lifecycle: placing, status changes,
// cancellation and table settlement.
type OrderService struct {
	store       core.Store
	catalog     *Catalog
	broadcaster core.IBroadcaster
	mylog       logger.Logger
	now         func() time.Time
}

func NewOrderService(
	store core.Store,
	catalog *Catalog,
	broadcaster core.IBroadcaster,
	mylogger logger.Logger,
) *OrderService {
	return &OrderService{
		store:       store,
		catalog:     catalog,
		broadcaster: broadcaster,
		mylog:       mylogger,
		now:         time.Now,
	}
}

// PlaceOrder prices the items from the catalog, stores the order as pending
// and announces it.
func (os *OrderService) PlaceOrder(ctx context.Context, req dto.PlaceOrderRequest) (models.Order, error) {
	mylog := os.mylog.Action("place_order")

	if err := req.Validate(); err != nil {
		return models.Order{}, err
	}

	ids := make([]string, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if _, ok := seen[item.FoodID]; !ok {
			seen[item.FoodID] = struct{}{}
			ids = append(ids, item.FoodID)
		}
	}

	foods, err := os.catalog.ResolveFoods(ctx, ids)
	if err != nil {
		mylog.Error("Failed to resolve foods", err, "table_number", req.TableNumber)
		return models.Order{}, fmt.Errorf("resolve foods: %w", err)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for i, item := range req.Items {
		food, ok := foods[item.FoodID]
		if !ok {
			return models.Order{}, core.Validationf("item %d: unknown food: %s", i+1, item.FoodID)
		}
		if !food.IsAvailable {
			return models.Order{}, core.Validationf("item %d: food is not available: %s", i+1, food.Name)
		}
		items = append(items, models.OrderItem{
			FoodID:   food.ID,
			Quantity: item.Quantity,
			Price:    food.Price,
		})
	}

	now := os.now().UnixMilli()
	order := models.Order{
		ID:          uuid.NewString(),
		TableNumber: req.TableNumber,
		Items:       items,
		Total:       models.ItemsTotal(items),
		Status:      models.StatusPending,
		Note:        req.Note,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := os.store.Orders().Create(ctx, order)
	if err != nil {
		mylog.Error("Failed to save order", err, "table_number", order.TableNumber)
		return models.Order{}, fmt.Errorf("save order: %w", err)
	}
	mylog.Info("Order placed",
		"order_id", created.ID,
		"table_number", created.TableNumber,
		"total", created.Total,
	)

	os.catalog.markTable(ctx, created.TableNumber, true)
	os.publish(ctx, models.EventNew, created)
	os.publish(ctx, models.EventUpdate, created)

	return created, nil
}

// UpdateStatus moves an order to status. Asking for the status the order
// already has is a successful no-op. A write that loses a race is re-read and
// re-validated, so an illegal move is still rejected after a concurrent change.
func (os *OrderService) UpdateStatus(ctx context.Context, orderID string, status models.Status, changedBy string) (models.Order, error) {
	mylog := os.mylog.Action("update_status").With("order_id", orderID)

	if !status.Valid() {
		return models.Order{}, core.Validationf("undefined status: %s", status)
	}
	if changedBy == "" {
		changedBy = core.DefaultChangedBy
	}

	for attempt := 1; attempt <= core.StatusWriteAttempts; attempt++ {
		current, err := os.store.Orders().Get(ctx, orderID)
		if err != nil {
			return models.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
		}

		if current.Status == status {
			mylog.Debug("Order already in requested status", "status", status)
			return current, nil
		}
		if !current.Status.CanTransition(status) {
			return current, &core.InvalidTransitionError{OrderID: orderID, From: current.Status, To: status}
		}

		change := models.StatusChange{
			Status:    status,
			ChangedBy: changedBy,
			ChangedAt: os.now().UnixMilli(),
		}
		updated, err := os.store.Orders().UpdateStatus(ctx, orderID, current.Status, status, change)
		if errors.Is(err, core.ErrConflict) {
			mylog.Debug("Status changed concurrently, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			mylog.Error("Failed to write status", err, "from", current.Status, "to", status)
			return models.Order{}, fmt.Errorf("update order %s: %w", orderID, err)
		}

		mylog.Info("Order status changed",
			"from", current.Status,
			"to", status,
			"changed_by", changedBy,
			"version", updated.Version,
		)

		kind := models.EventUpdate
		if status == models.StatusCancelled {
			kind = models.EventCancelled
		}
		os.publish(ctx, kind, updated)
		return updated, nil
	}

	return models.Order{}, fmt.Errorf("order %s: %w: status kept changing after %d attempts", orderID, core.ErrConflict, core.StatusWriteAttempts)
}

func (os *OrderService) CancelOrder(ctx context.Context, orderID, changedBy string) (models.Order, error) {
	return os.UpdateStatus(ctx, orderID, models.StatusCancelled, changedBy)
}

// CancelTable cancels every open order of the table in parallel. Orders that
// could not be cancelled are reported in a PartialFailureError alongside the
// ones that were.
func (os *OrderService) CancelTable(ctx context.Context, tableNumber int, changedBy string) ([]models.Order, error) {
	mylog := os.mylog.Action("cancel_table").With("table_number", tableNumber)

	if err := dto.ValidateTableNumber(tableNumber); err != nil {
		return nil, err
	}

	open, err := os.store.Orders().List(ctx, models.OrderFilter{
		TableNumber: tableNumber,
		Statuses:    models.OpenStatuses(),
	})
	if err != nil {
		return nil, fmt.Errorf("list orders of table %d: %w", tableNumber, err)
	}
	if len(open) == 0 {
		return []models.Order{}, nil
	}

	ids := make([]string, 0, len(open))
	for _, order := range open {
		ids = append(ids, order.ID)
	}

	res := os.updateMany(ctx, ids, models.StatusCancelled, changedBy)
	cancelled := res.ordered(open)

	if len(res.failed) > 0 {
		mylog.Warn("Table partially cancelled", "cancelled", len(res.done), "failed", len(res.failed))
		return cancelled, &core.PartialFailureError{
			Op:        fmt.Sprintf("cancel table %d", tableNumber),
			Succeeded: res.doneIDs(),
			Failed:    res.failed,
		}
	}

	os.catalog.markTable(ctx, tableNumber, false)
	mylog.Info("Table cancelled", "cancelled", len(cancelled))
	return cancelled, nil
}

func (os *OrderService) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	order, err := os.store.Orders().Get(ctx, orderID)
	if err != nil {
		return models.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return order, nil
}

func (os *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if filter.TableNumber != 0 {
		if err := dto.ValidateTableNumber(filter.TableNumber); err != nil {
			return nil, err
		}
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, core.Validationf("undefined status: %s", st)
		}
	}

	orders, err := os.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (os *OrderService) OrderHistory(ctx context.Context, orderID string) ([]models.StatusChange, error) {
	history, err := os.store.Orders().History(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("history of order %s: %w", orderID, err)
	}
	return history, nil
}

// publish runs after a committed write; a failure is logged and never undoes
// or fails the write.
func (os *OrderService) publish(ctx context.Context, kind models.EventKind, order models.Order) {
	if os.broadcaster == nil {
		return
	}
	err := os.broadcaster.Publish(context.WithoutCancel(ctx), models.Event{Kind: kind, Order: order})
	if err != nil {
		os.mylog.Action("broadcast").Error("Failed to publish order event", err,
			"event", kind.Name(),
			"order_id", order.ID,
			"table_number", order.TableNumber,
		)
	}
}

// bulkResult collects per-order outcomes of a parallel status update.
type bulkResult struct {
	mu     sync.Mutex
	done   map[string]models.Order
	failed map[string]error
}

func (r *bulkResult) ordered(orders []models.Order) []models.Order {
	out := make([]models.Order, 0, len(r.done))
	for _, order := range orders {
		if updated, ok := r.done[order.ID]; ok {
			out = append(out, updated)
		}
	}
	return out
}

func (r *bulkResult) doneIDs() []string {
	ids := make([]string, 0, len(r.done))
	for id := range r.done {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// updateMany applies one status to many orders concurrently. One failure does
// not stop the others.
func (os *OrderService) updateMany(ctx context.Context, ids []string, status models.Status, changedBy string) *bulkResult {
	res := &bulkResult{
		done:   make(map[string]models.Order, len(ids)),
		failed: make(map[string]error),
	}

	var g errgroup.Group
	g.SetLimit(core.BulkParallelism)

	for _, id := range ids {
		g.Go(func() error {
			updated, err := os.UpdateStatus(ctx, id, status, changedBy)

			res.mu.Lock()
			defer res.mu.Unlock()
			if err != nil {
				res.failed[id] = err
				return nil
			}
			res.done[id] = updated
			return nil
		})
	}
	_ = g.Wait()

	return res
}
