package handle

import (
	"context"
	"net/http"
	"strings"
	"time"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/app/services"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/logger"
)

type OrderHandler struct {
	orderService *services.OrderService
	mylog        logger.Logger
}

func NewOrderHandler(orderService *services.OrderService, mylog logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		mylog:        mylog,
	}
}

func requestCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), core.WaitTime*time.Second)
}

func (oh *OrderHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.PlaceOrderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			oh.mylog.Action("parse_failed").Debug("Failed to parse order", "reason", err.Error())
			domainError(w, err)
			return
		}
		oh.mylog.Action("received").Debug("Received order", "table_number", req.TableNumber, "number_of_items", len(req.Items))

		ctx, cancel := requestCtx(r)
		defer cancel()

		order, err := oh.orderService.PlaceOrder(ctx, req)
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusCreated, order)
	}
}

// List serves GET /orders?table=N&status=pending,preparing.
func (oh *OrderHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := intParam("table", r.URL.Query().Get("table"))
		if err != nil {
			domainError(w, err)
			return
		}
		oh.list(w, r, table)
	}
}

func (oh *OrderHandler) ListByTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := intParam("table number", r.PathValue("number"))
		if err == nil {
			err = dto.ValidateTableNumber(table)
		}
		if err != nil {
			domainError(w, err)
			return
		}
		oh.list(w, r, table)
	}
}

func (oh *OrderHandler) list(w http.ResponseWriter, r *http.Request, table int) {
	filter := models.OrderFilter{TableNumber: table}
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, models.Status(strings.TrimSpace(s)))
		}
	}

	ctx, cancel := requestCtx(r)
	defer cancel()

	orders, err := oh.orderService.ListOrders(ctx, filter)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, orders)
}

func (oh *OrderHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestCtx(r)
		defer cancel()

		order, err := oh.orderService.GetOrder(ctx, r.PathValue("id"))
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

func (oh *OrderHandler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestCtx(r)
		defer cancel()

		history, err := oh.orderService.OrderHistory(ctx, r.PathValue("id"))
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, history)
	}
}

// UpdateStatus serves both PATCH /orders/{id}/status and PATCH /orders/status,
// where the latter names the order in the body.
func (oh *OrderHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.UpdateStatusRequest
		if err := decodeJSON(w, r, &req); err != nil {
			domainError(w, err)
			return
		}
		if id := r.PathValue("id"); id != "" {
			req.OrderID = id
		}
		if req.OrderID == "" {
			domainError(w, core.Validationf("orderId is empty"))
			return
		}
		if err := req.Validate(); err != nil {
			domainError(w, err)
			return
		}

		ctx, cancel := requestCtx(r)
		defer cancel()

		order, err := oh.orderService.UpdateStatus(ctx, req.OrderID, req.Status, identity(r).ChangedBy())
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

func (oh *OrderHandler) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestCtx(r)
		defer cancel()

		order, err := oh.orderService.CancelOrder(ctx, r.PathValue("id"), identity(r).ChangedBy())
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

func (oh *OrderHandler) CancelTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := intParam("table number", r.PathValue("number"))
		if err != nil {
			domainError(w, err)
			return
		}

		ctx, cancel := requestCtx(r)
		defer cancel()

		orders, err := oh.orderService.CancelTable(ctx, table, identity(r).ChangedBy())
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, dto.CancelTableResponse{
			TableNumber:    table,
			CancelledCount: len(orders),
			Orders:         orders,
		})
	}
}
