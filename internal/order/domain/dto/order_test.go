package dto

import (
	"strings"
	"testing"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestPlaceOrderRequestValidate(t *testing.T) {
	valid := PlaceOrderRequest{TableNumber: 5, Items: []Item{{FoodID: "a", Quantity: 2}}}

	tests := []struct {
		name string
		mod  func(r *PlaceOrderRequest)
		want error
	}{
		{"valid", func(r *PlaceOrderRequest) {}, nil},
		{"table zero", func(r *PlaceOrderRequest) { r.TableNumber = 0 }, core.ErrValidation},
		{"table too large", func(r *PlaceOrderRequest) { r.TableNumber = core.MaxTableNumber + 1 }, core.ErrValidation},
		{"no items", func(r *PlaceOrderRequest) { r.Items = nil }, core.ErrEmptyOrder},
		{"blank food", func(r *PlaceOrderRequest) { r.Items = []Item{{FoodID: " ", Quantity: 1}} }, core.ErrValidation},
		{"zero quantity", func(r *PlaceOrderRequest) { r.Items = []Item{{FoodID: "a", Quantity: 0}} }, core.ErrValidation},
		{"quantity too large", func(r *PlaceOrderRequest) { r.Items = []Item{{FoodID: "a", Quantity: core.MaxItemQuantity + 1}} }, core.ErrValidation},
		{"note too long", func(r *PlaceOrderRequest) { r.Note = strings.Repeat("x", core.MaxNoteLen+1) }, core.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.Items = append([]Item(nil), valid.Items...)
			tt.mod(&req)

			err := req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateStatusRequestValidate(t *testing.T) {
	assert.NoError(t, UpdateStatusRequest{Status: models.StatusDone}.Validate())
	assert.ErrorIs(t, UpdateStatusRequest{}.Validate(), core.ErrValidation)
	assert.ErrorIs(t, UpdateStatusRequest{Status: "served"}.Validate(), core.ErrValidation)
}

func TestSettleRequestValidate(t *testing.T) {
	assert.NoError(t, SettleRequest{TableNumber: 1}.Validate())
	assert.NoError(t, SettleRequest{TableNumber: 1, Method: models.MethodMomo}.Validate())
	assert.ErrorIs(t, SettleRequest{TableNumber: 1, Method: "cheque"}.Validate(), core.ErrValidation)
	assert.ErrorIs(t, SettleRequest{}.Validate(), core.ErrValidation)
}

func TestFoodRequest(t *testing.T) {
	assert.ErrorIs(t, FoodRequest{Name: "  ", Price: 1}.Validate(), core.ErrValidation)
	assert.ErrorIs(t, FoodRequest{Name: "pho", Price: -1}.Validate(), core.ErrValidation)

	req := FoodRequest{Name: " pho ", Price: 45000}
	assert.NoError(t, req.Validate())

	food := req.ToFood()
	assert.Equal(t, "pho", food.Name)
	assert.True(t, food.IsAvailable, "foods are available unless stated")

	off := false
	req.IsAvailable = &off
	assert.False(t, req.ToFood().IsAvailable)
}

func TestValidateFoodPatch(t *testing.T) {
	empty := ""
	negative := int64(-5)

	assert.NoError(t, ValidateFoodPatch(models.FoodPatch{}))
	assert.ErrorIs(t, ValidateFoodPatch(models.FoodPatch{Name: &empty}), core.ErrValidation)
	assert.ErrorIs(t, ValidateFoodPatch(models.FoodPatch{Price: &negative}), core.ErrValidation)
}
