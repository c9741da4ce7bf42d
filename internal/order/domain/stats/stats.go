// Package stats folds settled payments into revenue reports.
//
// Dates are calendar days of the payment's CreatedAt (epoch millis) in the
// location passed to Aggregate. The weekday series counts settlements per
// weekday; it is not averaged over elapsed weeks.
package stats

import (
	"sort"
	"time"

	"dine-order/internal/order/domain/models"
)

const DateLayout = "2006-01-02"

type DailyRevenue struct {
	Date        string `json:"date"`
	Revenue     int64  `json:"revenue"`
	Settlements int    `json:"count"`
}

type WeekdayCount struct {
	// Weekday is 0 for Sunday through 6 for Saturday.
	Weekday int    `json:"weekday"`
	Name    string `json:"name"`
	Count   int    `json:"count"`
}

type Report struct {
	Timezone         string         `json:"timezone"`
	Daily            []DailyRevenue `json:"daily"`
	Weekday          []WeekdayCount `json:"weekday"`
	TotalRevenue     int64          `json:"totalRevenue"`
	TotalSettlements int            `json:"totalSettlements"`
}

// Window bounds the payments taken into account. Zero times are unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// Aggregate is pure: the same payments, location and window give the same report.
func Aggregate(payments []models.Payment, loc *time.Location, window Window) Report {
	if loc == nil {
		loc = time.UTC
	}

	byDate := make(map[string]*DailyRevenue)
	var byWeekday [7]int
	report := Report{Timezone: loc.String()}

	for _, p := range payments {
		at := time.UnixMilli(p.CreatedAt).In(loc)
		if !window.contains(at) {
			continue
		}

		date := at.Format(DateLayout)
		day, ok := byDate[date]
		if !ok {
			day = &DailyRevenue{Date: date}
			byDate[date] = day
		}
		day.Revenue += p.TotalAmount
		day.Settlements++

		byWeekday[at.Weekday()]++

		report.TotalRevenue += p.TotalAmount
		report.TotalSettlements++
	}

	report.Daily = make([]DailyRevenue, 0, len(byDate))
	for _, day := range byDate {
		report.Daily = append(report.Daily, *day)
	}
	sort.Slice(report.Daily, func(i, j int) bool {
		return report.Daily[i].Date < report.Daily[j].Date
	})

	report.Weekday = make([]WeekdayCount, 0, 7)
	for wd, count := range byWeekday {
		if count == 0 {
			continue
		}
		report.Weekday = append(report.Weekday, WeekdayCount{
			Weekday: wd,
			Name:    time.Weekday(wd).String(),
			Count:   count,
		})
	}

	return report
}

// LastDays returns the window covering the last n calendar days up to and including now's day.
func LastDays(now time.Time, n int, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return Window{From: end.AddDate(0, 0, -n), To: end}
}

// ParseWindow parses optional from/to dates (inclusive) in loc.
func ParseWindow(from, to string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	var w Window
	if from != "" {
		t, err := time.ParseInLocation(DateLayout, from, loc)
		if err != nil {
			return Window{}, err
		}
		w.From = t
	}
	if to != "" {
		t, err := time.ParseInLocation(DateLayout, to, loc)
		if err != nil {
			return Window{}, err
		}
		w.To = t.AddDate(0, 0, 1)
	}
	return w, nil
}
