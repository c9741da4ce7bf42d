package dto

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/models"
)

type PlaceOrderRequest struct {
	TableNumber int    `json:"tableNumber"`
	Items       []Item `json:"items"`
	Note        string `json:"note,omitempty"`
}

// Item is what the customer sends: the price is never taken from the client.
type Item struct {
	FoodID   string `json:"food"`
	Quantity int    `json:"quantity"`
}

type UpdateStatusRequest struct {
	OrderID string        `json:"orderId,omitempty"`
	Status  models.Status `json:"status"`
}

type SettleRequest struct {
	TableNumber int                  `json:"tableNumber"`
	Method      models.PaymentMethod `json:"method,omitempty"`
}

type CancelTableResponse struct {
	TableNumber    int            `json:"tableNumber"`
	CancelledCount int            `json:"cancelledCount"`
	Orders         []models.Order `json:"orders"`
}

type FoodRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        int64  `json:"price"`
	Category     string `json:"category,omitempty"`
	IsBestSeller bool   `json:"isBestSeller"`
	IsAvailable  *bool  `json:"isAvailable,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
}

type TableRequest struct {
	Number int `json:"number"`
}

// Validate checks the request shape before any domain logic runs.
func (r PlaceOrderRequest) Validate() error {
	if err := ValidateTableNumber(r.TableNumber); err != nil {
		return err
	}

	if len(r.Items) == 0 {
		return core.ErrEmptyOrder
	}
	if len(r.Items) > core.MaxItems {
		return core.Validationf("amount of items: %d, must be in range [%d, %d]", len(r.Items), core.MinItems, core.MaxItems)
	}

	for i, item := range r.Items {
		if strings.TrimSpace(item.FoodID) == "" {
			return core.Validationf("item %d: food is empty", i+1)
		}
		if item.Quantity < core.MinItemQuantity || item.Quantity > core.MaxItemQuantity {
			return core.Validationf("item %d: quantity: %d, must be in range [%d, %d]", i+1, item.Quantity, core.MinItemQuantity, core.MaxItemQuantity)
		}
	}

	if utf8.RuneCountInString(r.Note) > core.MaxNoteLen {
		return core.Validationf("note must be at most %d characters", core.MaxNoteLen)
	}
	return nil
}

func (r UpdateStatusRequest) Validate() error {
	if r.Status == "" {
		return core.Validationf("status is empty")
	}
	if !r.Status.Valid() {
		return core.Validationf("undefined status: %s", r.Status)
	}
	return nil
}

func (r SettleRequest) Validate() error {
	if err := ValidateTableNumber(r.TableNumber); err != nil {
		return err
	}
	if r.Method != "" && !r.Method.Valid() {
		return core.Validationf("undefined payment method: %s", r.Method)
	}
	return nil
}

func (r FoodRequest) Validate() error {
	nameLen := utf8.RuneCountInString(strings.TrimSpace(r.Name))
	if nameLen == 0 || nameLen > core.MaxFoodNameLen {
		return core.Validationf("name must be between 1 and %d characters", core.MaxFoodNameLen)
	}
	if r.Price < 0 {
		return core.Validationf("price must not be negative: %d", r.Price)
	}
	return nil
}

func (r FoodRequest) ToFood() models.Food {
	available := true
	if r.IsAvailable != nil {
		available = *r.IsAvailable
	}
	return models.Food{
		Name:         strings.TrimSpace(r.Name),
		Description:  r.Description,
		Price:        r.Price,
		Category:     r.Category,
		IsBestSeller: r.IsBestSeller,
		IsAvailable:  available,
		ImageURL:     r.ImageURL,
	}
}

func ValidateFoodPatch(p models.FoodPatch) error {
	if p.Name != nil {
		nameLen := utf8.RuneCountInString(strings.TrimSpace(*p.Name))
		if nameLen == 0 || nameLen > core.MaxFoodNameLen {
			return core.Validationf("name must be between 1 and %d characters", core.MaxFoodNameLen)
		}
	}
	if p.Price != nil && *p.Price < 0 {
		return core.Validationf("price must not be negative: %d", *p.Price)
	}
	return nil
}

func ValidateTableNumber(n int) error {
	if n < core.MinTableNumber || n > core.MaxTableNumber {
		return fmt.Errorf("%w: table number: %d, must be in range [%d, %d]", core.ErrValidation, n, core.MinTableNumber, core.MaxTableNumber)
	}
	return nil
}
