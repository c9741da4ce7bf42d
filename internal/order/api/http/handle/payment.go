package handle

import (
	"net/http"

	"dine-order/internal/order/app/services"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/order/domain/models"
	"dine-order/internal/order/domain/stats"
	"dine-order/internal/xpkg/logger"
)

type PaymentHandler struct {
	orderService *services.OrderService
	statsService *services.StatsService
	mylog        logger.Logger
}

func NewPaymentHandler(orderService *services.OrderService, statsService *services.StatsService, mylog logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		orderService: orderService,
		statsService: statsService,
		mylog:        mylog,
	}
}

func (ph *PaymentHandler) Settle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.SettleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			domainError(w, err)
			return
		}
		if err := req.Validate(); err != nil {
			domainError(w, err)
			return
		}

		ctx, cancel := requestCtx(r)
		defer cancel()

		payment, err := ph.orderService.SettleTable(ctx, req.TableNumber, req.Method, identity(r).ChangedBy())
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusCreated, payment)
	}
}

// List serves GET /payments?table=N&from=YYYY-MM-DD&to=YYYY-MM-DD. Dates are
// read in the stats timezone and to is inclusive.
func (ph *PaymentHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		table, err := intParam("table", q.Get("table"))
		if err != nil {
			domainError(w, err)
			return
		}
		window, err := ph.statsService.WindowFor(q.Get("from"), q.Get("to"), 0)
		if err != nil {
			domainError(w, err)
			return
		}

		ctx, cancel := requestCtx(r)
		defer cancel()

		payments, err := ph.orderService.ListPayments(ctx, paymentFilter(table, window))
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, payments)
	}
}

func (ph *PaymentHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestCtx(r)
		defer cancel()

		payment, err := ph.orderService.GetPayment(ctx, r.PathValue("id"))
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, payment)
	}
}

func paymentFilter(table int, window stats.Window) models.PaymentFilter {
	filter := models.PaymentFilter{TableNumber: table}
	if !window.From.IsZero() {
		filter.From = window.From.UnixMilli()
	}
	if !window.To.IsZero() {
		filter.To = window.To.UnixMilli()
	}
	return filter
}

type StatsHandler struct {
	statsService *services.StatsService
	mylog        logger.Logger
}

func NewStatsHandler(statsService *services.StatsService, mylog logger.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		mylog:        mylog,
	}
}

// Get serves GET /stats with either from/to dates or days=N.
func (sh *StatsHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		days, err := intParam("days", q.Get("days"))
		if err != nil {
			domainError(w, err)
			return
		}
		window, err := sh.statsService.WindowFor(q.Get("from"), q.Get("to"), days)
		if err != nil {
			domainError(w, err)
			return
		}

		ctx, cancel := requestCtx(r)
		defer cancel()

		report, err := sh.statsService.Report(ctx, window)
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, report)
	}
}
