package report

import (
	"fmt"
	"io"
	"strconv"

	"dine-order/internal/order/domain/stats"

	"github.com/olekukonko/tablewriter"
)

// Render writes the report as two text tables: revenue per day, then
// settlements per weekday.
func Render(w io.Writer, r stats.Report) error {
	fmt.Fprintf(w, "Revenue by day (%s)\n", r.Timezone)

	daily := tablewriter.NewWriter(w)
	daily.Header("Date", "Revenue", "Settlements")
	for _, d := range r.Daily {
		if err := daily.Append([]string{d.Date, strconv.FormatInt(d.Revenue, 10), strconv.Itoa(d.Settlements)}); err != nil {
			return err
		}
	}
	daily.Footer("Total", strconv.FormatInt(r.TotalRevenue, 10), strconv.Itoa(r.TotalSettlements))
	if err := daily.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nSettlements by weekday")

	weekday := tablewriter.NewWriter(w)
	weekday.Header("Weekday", "Settlements")
	for _, d := range r.Weekday {
		if err := weekday.Append([]string{d.Name, strconv.Itoa(d.Count)}); err != nil {
			return err
		}
	}
	return weekday.Render()
}
