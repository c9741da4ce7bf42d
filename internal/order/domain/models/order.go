package models

// OrderItem references a food by id. Price is captured when the order is placed.
type OrderItem struct {
	FoodID   string `json:"food" bson:"food"`
	Quantity int    `json:"quantity" bson:"quantity"`
	Price    int64  `json:"price" bson:"price"`
}

func (i OrderItem) Subtotal() int64 {
	return int64(i.Quantity) * i.Price
}

type Order struct {
	ID          string      `json:"_id" bson:"_id"`
	TableNumber int         `json:"tableNumber" bson:"table_number"`
	Items       []OrderItem `json:"items" bson:"items"`
	Total       int64       `json:"total" bson:"total"`
	Status      Status      `json:"status" bson:"status"`
	Note        string      `json:"note,omitempty" bson:"note,omitempty"`
	// Version increases on every status write; clients drop events older than what they hold.
	Version   int   `json:"version" bson:"version"`
	CreatedAt int64 `json:"createdAt" bson:"created_at"`
	UpdatedAt int64 `json:"updatedAt" bson:"updated_at"`
}

// StatusChange is one row of an order's status history.
type StatusChange struct {
	Status    Status `json:"status" bson:"status"`
	ChangedBy string `json:"changedBy" bson:"changed_by"`
	ChangedAt int64  `json:"changedAt" bson:"changed_at"`
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	TableNumber int
	Statuses    []Status
}

func (f OrderFilter) Match(o Order) bool {
	if f.TableNumber != 0 && o.TableNumber != f.TableNumber {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// ItemsTotal sums quantity*price over items.
func ItemsTotal(items []OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// CloneItems copies items so stored orders never share backing arrays with callers.
func CloneItems(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	out := make([]OrderItem, len(items))
	copy(out, items)
	return out
}

func (o Order) Clone() Order {
	o.Items = CloneItems(o.Items)
	return o
}
