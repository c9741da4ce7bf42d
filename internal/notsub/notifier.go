// Package notsub prints order events relayed from the broker, one line per
// event. It is the terminal counterpart of the websocket feed.
package notsub

import (
	"context"
	"fmt"
	"io"
	"sync"

	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/logger"
)

// Notifier receives events from the relay. With a table set, events of other
// tables are skipped.
type Notifier struct {
	out   io.Writer
	table int
	mylog logger.Logger

	mu sync.Mutex
	// last version printed per order; older redeliveries are dropped
	seen map[string]int
}

func NewNotifier(out io.Writer, table int, mylog logger.Logger) *Notifier {
	return &Notifier{
		out:   out,
		table: table,
		mylog: mylog,
		seen:  make(map[string]int),
	}
}

func (n *Notifier) Publish(_ context.Context, event models.Event) error {
	order := event.Order
	if n.table != 0 && order.TableNumber != n.table {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if v, ok := n.seen[order.ID]; ok && order.Version < v {
		n.mylog.Action("notification_stale").Debug("Dropped stale event", "order_id", order.ID, "version", order.Version)
		return nil
	}
	n.seen[order.ID] = order.Version

	n.mylog.WithGroup("details").With("order_id", order.ID, "status", order.Status).
		Action("notification_received").Info("Received order event")

	_, err := fmt.Fprintf(n.out, "[%s] table %d: order %s is %s (total %d, v%d)\n",
		event.Kind.Name(), order.TableNumber, order.ID, order.Status, order.Total, order.Version)
	return err
}
