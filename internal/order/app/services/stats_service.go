package services

import (
	"context"
	"fmt"
	"time"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/models"
	"dine-order/internal/order/domain/stats"
	"dine-order/internal/xpkg/logger"
)

// StatsService recomputes revenue reports from stored payments on every call.
type StatsService struct {
	payments core.IPaymentRepo
	loc      *time.Location
	mylog    logger.Logger
	now      func() time.Time
}

func NewStatsService(payments core.IPaymentRepo, loc *time.Location, mylog logger.Logger) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{
		payments: payments,
		loc:      loc,
		mylog:    mylog,
		now:      time.Now,
	}
}

func (ss *StatsService) Location() *time.Location { return ss.loc }

// Report aggregates the payments inside window. Only the window bounds are
// pushed to the store; grouping happens in memory.
func (ss *StatsService) Report(ctx context.Context, window stats.Window) (stats.Report, error) {
	filter := models.PaymentFilter{}
	if !window.From.IsZero() {
		filter.From = window.From.UnixMilli()
	}
	if !window.To.IsZero() {
		filter.To = window.To.UnixMilli()
	}

	payments, err := ss.payments.List(ctx, filter)
	if err != nil {
		ss.mylog.Action("stats_report").Error("Failed to load payments", err)
		return stats.Report{}, fmt.Errorf("load payments: %w", err)
	}
	return stats.Aggregate(payments, ss.loc, window), nil
}

// WindowFor resolves the query parameters of a report: either from/to dates or
// the last n days. All empty means every payment.
func (ss *StatsService) WindowFor(from, to string, days int) (stats.Window, error) {
	if days < 0 {
		return stats.Window{}, core.Validationf("days must not be negative: %d", days)
	}
	if days > 0 {
		if from != "" || to != "" {
			return stats.Window{}, core.Validationf("days cannot be combined with from/to")
		}
		return stats.LastDays(ss.now(), days, ss.loc), nil
	}

	w, err := stats.ParseWindow(from, to, ss.loc)
	if err != nil {
		return stats.Window{}, core.Validationf("dates must be %s: %v", stats.DateLayout, err)
	}
	if !w.From.IsZero() && !w.To.IsZero() && !w.From.Before(w.To) {
		return stats.Window{}, core.Validationf("from must not be after to")
	}
	return w, nil
}
