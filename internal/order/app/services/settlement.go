package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/order/domain/models"

	"github.com/google/uuid"
)

// settlementNamespace seeds payment ids, which are derived from the settlement key.
var settlementNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("dine-order/settlement"))

// SettlementKey identifies one settlement attempt: the table and the exact set of orders.
func SettlementKey(tableNumber int, orderIDs []string) string {
	ids := append([]string(nil), orderIDs...)
	sort.Strings(ids)
	return strconv.Itoa(tableNumber) + ":" + strings.Join(ids, ",")
}

func PaymentID(settlementKey string) string {
	return uuid.NewSHA1(settlementNamespace, []byte(settlementKey)).String()
}

// lineKey identifies one bill line: a food at one captured price.
type lineKey struct {
	foodID string
	price  int64
}

// MergeItems folds the items of orders, oldest order first, into one line per
// food and captured price. Quantities add up, so a food ordered before and
// after a price edit shows as two lines and the sum still equals the order
// totals.
func MergeItems(orders []models.Order) []models.OrderItem {
	sorted := append([]models.Order(nil), orders...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt != sorted[j].CreatedAt {
			return sorted[i].CreatedAt < sorted[j].CreatedAt
		}
		return sorted[i].ID < sorted[j].ID
	})

	merged := make([]models.OrderItem, 0)
	index := make(map[lineKey]int)
	for _, order := range sorted {
		for _, item := range order.Items {
			key := lineKey{foodID: item.FoodID, price: item.Price}
			i, ok := index[key]
			if !ok {
				index[key] = len(merged)
				merged = append(merged, item)
				continue
			}
			merged[i].Quantity += item.Quantity
		}
	}
	return merged
}

// SettleTable bills every open order of the table and marks the orders paid.
//
// A payment is created at most once per settlement key. When some orders
// could not be marked paid, a PartialSettlementError is returned; calling
// SettleTable again first completes the stored payment, then bills any order
// placed since in a new payment. The table is freed only once no open order
// is left.
func (os *OrderService) SettleTable(ctx context.Context, tableNumber int, method models.PaymentMethod, changedBy string) (models.Payment, error) {
	mylog := os.mylog.Action("settle_table").With("table_number", tableNumber)

	if err := dto.ValidateTableNumber(tableNumber); err != nil {
		return models.Payment{}, err
	}
	if method == "" {
		method = models.MethodCash
	}
	if !method.Valid() {
		return models.Payment{}, core.Validationf("undefined payment method: %s", method)
	}

	open, err := os.store.Orders().List(ctx, models.OrderFilter{
		TableNumber: tableNumber,
		Statuses:    models.OpenStatuses(),
	})
	if err != nil {
		return models.Payment{}, fmt.Errorf("list orders of table %d: %w", tableNumber, err)
	}
	if len(open) == 0 {
		return models.Payment{}, fmt.Errorf("table %d: %w", tableNumber, core.ErrNothingToSettle)
	}

	openIDs := make([]string, 0, len(open))
	for _, order := range open {
		openIDs = append(openIDs, order.ID)
	}

	// earlier settlements that stopped half way are completed first
	previous, err := os.store.Payments().FindByOrderIDs(ctx, openIDs)
	if err != nil {
		return models.Payment{}, fmt.Errorf("find payments of table %d: %w", tableNumber, err)
	}
	var last models.Payment
	covered := make(map[string]struct{})
	for _, payment := range previous {
		remaining := intersect(payment.OrderIDs, openIDs)
		mylog.Warn("Resuming incomplete settlement",
			"payment_id", payment.ID,
			"remaining", len(remaining),
		)
		for _, id := range remaining {
			covered[id] = struct{}{}
		}
		if err := os.completeSettlement(ctx, payment, remaining, changedBy); err != nil {
			return payment, err
		}
		last = payment
	}

	unbilled := make([]models.Order, 0, len(open))
	for _, order := range open {
		if _, ok := covered[order.ID]; !ok {
			unbilled = append(unbilled, order)
		}
	}
	if len(unbilled) == 0 {
		os.catalog.markTable(ctx, tableNumber, false)
		mylog.Info("Table settled", "payment_id", last.ID)
		return last, nil
	}

	payment, err := os.createPayment(ctx, tableNumber, method, unbilled)
	if err != nil {
		return models.Payment{}, err
	}
	if err := os.completeSettlement(ctx, payment, payment.OrderIDs, changedBy); err != nil {
		return payment, err
	}

	os.catalog.markTable(ctx, tableNumber, false)
	mylog.Info("Table settled", "payment_id", payment.ID, "orders", len(payment.OrderIDs))
	return payment, nil
}

// createPayment stores the payment for orders, or returns the one already
// stored under the same settlement key.
func (os *OrderService) createPayment(ctx context.Context, tableNumber int, method models.PaymentMethod, orders []models.Order) (models.Payment, error) {
	mylog := os.mylog.Action("settle_table").With("table_number", tableNumber)

	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	sort.Strings(ids)
	key := SettlementKey(tableNumber, ids)
	items := MergeItems(orders)

	payment, created, err := os.store.Payments().CreateOnce(ctx, models.Payment{
		ID:            PaymentID(key),
		SettlementKey: key,
		TableNumber:   tableNumber,
		Items:         items,
		TotalAmount:   models.ItemsTotal(items),
		Method:        method,
		Status:        models.StatusPaid,
		OrderIDs:      ids,
		CreatedAt:     os.now().UnixMilli(),
	})
	if err != nil {
		mylog.Error("Failed to store payment", err)
		return models.Payment{}, fmt.Errorf("store payment: %w", err)
	}
	if created {
		mylog.Info("Payment stored",
			"payment_id", payment.ID,
			"total_amount", payment.TotalAmount,
			"orders", len(payment.OrderIDs),
			"method", payment.Method,
		)
	} else {
		mylog.Info("Payment already stored for this settlement", "payment_id", payment.ID)
	}
	return payment, nil
}

// completeSettlement marks orderIDs of the payment paid.
func (os *OrderService) completeSettlement(ctx context.Context, payment models.Payment, orderIDs []string, changedBy string) error {
	mylog := os.mylog.Action("settle_table").With("table_number", payment.TableNumber, "payment_id", payment.ID)

	res := os.updateMany(ctx, orderIDs, models.StatusPaid, changedBy)
	if len(res.failed) > 0 {
		for id, err := range res.failed {
			mylog.Error("Order not marked paid", err, "order_id", id)
		}
		return &core.PartialSettlementError{
			Payment: payment,
			Settled: res.doneIDs(),
			Failed:  res.failed,
		}
	}
	return nil
}

func (os *OrderService) GetPayment(ctx context.Context, paymentID string) (models.Payment, error) {
	payment, err := os.store.Payments().Get(ctx, paymentID)
	if err != nil {
		return models.Payment{}, fmt.Errorf("get payment %s: %w", paymentID, err)
	}
	return payment, nil
}

func (os *OrderService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	if filter.TableNumber != 0 {
		if err := dto.ValidateTableNumber(filter.TableNumber); err != nil {
			return nil, err
		}
	}
	payments, err := os.store.Payments().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func intersect(ids, within []string) []string {
	set := make(map[string]struct{}, len(within))
	for _, id := range within {
		set[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
