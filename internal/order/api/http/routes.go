package http

import (
	"net/http"

	"dine-order/internal/order/api/http/handle"
	"dine-order/internal/order/app/core"
)

type Handlers struct {
	Auth    *handle.Auth
	Order   *handle.OrderHandler
	Payment *handle.PaymentHandler
	Stats   *handle.StatsHandler
	Catalog *handle.CatalogHandler
	Live    *handle.LiveHandler
	Health  *handle.HealthHandler
}

// Routes registers every endpoint on mux.
func Routes(mux *http.ServeMux, h Handlers) {
	anyone := h.Auth.Require()
	staff := h.Auth.Require(core.RoleStaff, core.RoleAdmin)
	admin := h.Auth.Require(core.RoleAdmin)

	// orders
	mux.Handle("POST /orders", anyone(h.Order.Create()))
	mux.Handle("GET /orders", staff(h.Order.List()))
	mux.Handle("GET /orders/{id}", anyone(h.Order.Get()))
	mux.Handle("GET /orders/{id}/history", staff(h.Order.History()))
	mux.Handle("PATCH /orders/{id}/status", staff(h.Order.UpdateStatus()))
	mux.Handle("PATCH /orders/status", staff(h.Order.UpdateStatus()))
	mux.Handle("POST /orders/{id}/cancel", staff(h.Order.Cancel()))

	// tables
	mux.Handle("GET /tables", anyone(h.Catalog.ListTables()))
	mux.Handle("POST /tables", admin(h.Catalog.CreateTable()))
	mux.Handle("DELETE /tables/{number}", admin(h.Catalog.DeleteTable()))
	mux.Handle("GET /tables/{number}/orders", anyone(h.Order.ListByTable()))
	mux.Handle("POST /tables/{number}/cancel", staff(h.Order.CancelTable()))

	// settlement
	mux.Handle("POST /settle", staff(h.Payment.Settle()))
	mux.Handle("GET /payments", staff(h.Payment.List()))
	mux.Handle("GET /payments/{id}", staff(h.Payment.Get()))
	mux.Handle("GET /stats", admin(h.Stats.Get()))

	// menu
	mux.Handle("GET /foods", anyone(h.Catalog.ListFoods()))
	mux.Handle("POST /foods", admin(h.Catalog.CreateFood()))
	mux.Handle("GET /foods/{id}", anyone(h.Catalog.GetFood()))
	mux.Handle("PATCH /foods/{id}", admin(h.Catalog.UpdateFood()))
	mux.Handle("DELETE /foods/{id}", admin(h.Catalog.DeleteFood()))

	mux.Handle("GET /ws", anyone(h.Live.Subscribe()))
	mux.Handle("GET /health", h.Health.Health())
}
