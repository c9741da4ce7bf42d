package models

type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodCard PaymentMethod = "card"
	MethodMomo PaymentMethod = "momo"
	MethodZalo PaymentMethod = "zalo"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodMomo, MethodZalo:
		return true
	}
	return false
}

// Payment is the immutable record of one table settlement.
type Payment struct {
	ID string `json:"_id" bson:"_id"`
	// SettlementKey identifies the settlement attempt: table number plus the sorted order ids.
	SettlementKey string        `json:"settlementKey" bson:"settlement_key"`
	TableNumber   int           `json:"tableNumber" bson:"table_number"`
	Items         []OrderItem   `json:"items" bson:"items"`
	TotalAmount   int64         `json:"totalAmount" bson:"total_amount"`
	Method        PaymentMethod `json:"method" bson:"method"`
	Status        Status        `json:"status" bson:"status"`
	OrderIDs      []string      `json:"orderIds" bson:"order_ids"`
	CreatedAt     int64         `json:"createdAt" bson:"created_at"`
}

type PaymentFilter struct {
	TableNumber int
	// From and To bound CreatedAt in epoch millis, inclusive From, exclusive To. Zero is unbounded.
	From int64
	To   int64
}

func (f PaymentFilter) Match(p Payment) bool {
	if f.TableNumber != 0 && p.TableNumber != f.TableNumber {
		return false
	}
	if f.From != 0 && p.CreatedAt < f.From {
		return false
	}
	if f.To != 0 && p.CreatedAt >= f.To {
		return false
	}
	return true
}

func (p Payment) Clone() Payment {
	p.Items = CloneItems(p.Items)
	if p.OrderIDs != nil {
		ids := make([]string, len(p.OrderIDs))
		copy(ids, p.OrderIDs)
		p.OrderIDs = ids
	}
	return p
}
