package core

type OrderParams struct {
	Port int
}

const (
	// in seconds, bounds one HTTP request
	WaitTime = 20

	MinTableNumber = 1
	MaxTableNumber = 999

	MinItems = 1
	MaxItems = 50

	MinItemQuantity = 1
	MaxItemQuantity = 99

	MaxNoteLen     = 500
	MaxFoodNameLen = 100

	// attempts at a compare-and-set status write before giving up
	StatusWriteAttempts = 3

	// concurrent per-order writes during settle and bulk cancel
	BulkParallelism = 8

	DefaultChangedBy = "order-service"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}
