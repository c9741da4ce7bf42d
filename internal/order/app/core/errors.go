package core

import (
	"errors"
	"fmt"
	"strings"

	"dine-order/internal/order/domain/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrValidation        = errors.New("validation failed")
	ErrNothingToSettle   = errors.New("nothing to settle")
	ErrPartialSettlement = errors.New("settlement partially applied")
	ErrPartialFailure    = errors.New("operation partially applied")

	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("missing or invalid token")
)

// Kind is the stable error name clients branch on.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindStoreUnavailable  Kind = "store_unavailable"
	KindInvalidTransition Kind = "invalid_transition"
	KindEmptyOrder        Kind = "empty_order"
	KindValidation        Kind = "validation_error"
	KindNothingToSettle   Kind = "nothing_to_settle"
	KindPartialSettlement Kind = "partial_settlement_failure"
	KindPartialFailure    Kind = "partial_failure"
	KindForbidden         Kind = "forbidden"
	KindUnauthorized      Kind = "unauthorized"
	KindInternal          Kind = "internal"
)

// KindOf maps an error chain to its Kind.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrPartialSettlement):
		return KindPartialSettlement
	case errors.Is(err, ErrPartialFailure):
		return KindPartialFailure
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrEmptyOrder):
		return KindEmptyOrder
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNothingToSettle):
		return KindNothingToSettle
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// Validationf builds an ErrValidation with a field message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type InvalidTransitionError struct {
	OrderID string
	From    models.Status
	To      models.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot change status from %s to %s", e.OrderID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// PartialSettlementError reports a payment that was stored while some of its
// orders could not be marked paid. Calling SettleTable again for the same
// table completes only the failed orders.
type PartialSettlementError struct {
	Payment models.Payment
	Settled []string
	Failed  map[string]error
}

func (e *PartialSettlementError) Error() string {
	return fmt.Sprintf("payment %s stored, %d of %d orders not marked paid: %s",
		e.Payment.ID, len(e.Failed), len(e.Payment.OrderIDs), joinFailed(e.Failed))
}

func (e *PartialSettlementError) Unwrap() error { return ErrPartialSettlement }

// PartialFailureError reports a bulk order update where some orders failed.
type PartialFailureError struct {
	Op        string
	Succeeded []string
	Failed    map[string]error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %d succeeded, %d failed: %s", e.Op, len(e.Succeeded), len(e.Failed), joinFailed(e.Failed))
}

func (e *PartialFailureError) Unwrap() error { return ErrPartialFailure }

func joinFailed(failed map[string]error) string {
	parts := make([]string, 0, len(failed))
	for id, err := range failed {
		parts = append(parts, id+": "+err.Error())
	}
	return strings.Join(parts, "; ")
}
