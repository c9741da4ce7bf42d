package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/models"

	"github.com/jackc/pgx/v5"
)

type OrderRepo struct {
	s *Store
}

const orderColumns = `id, table_number, items, total, status, note, version, created_at, updated_at`

func (or *OrderRepo) Create(ctx context.Context, order models.Order) (models.Order, error) {
	log := or.s.log.Action("order_insert")

	ctx, cancel := or.s.opCtx(ctx)
	defer cancel()

	if order.ID == "" {
		order.ID = newID()
	}
	if order.CreatedAt == 0 {
		order.CreatedAt = or.s.millis()
	}
	if order.UpdatedAt == 0 {
		order.UpdatedAt = order.CreatedAt
	}
	if order.Version == 0 {
		order.Version = 1
	}

	items, err := json.Marshal(order.Items)
	if err != nil {
		return models.Order{}, fmt.Errorf("encode items: %w", err)
	}

	// the order row and its first status log row commit together
	err = or.s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			order.ID,
			order.TableNumber,
			items,
			order.Total,
			string(order.Status),
			order.Note,
			order.Version,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			return mapErr(err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
			VALUES ($1, $2, $3, $4)
		`, order.ID, string(order.Status), core.DefaultChangedBy, order.CreatedAt)
		return mapErr(err)
	})
	if err != nil {
		log.Error("failed to insert order", err, "order_id", order.ID)
		return models.Order{}, err
	}

	return order.Clone(), nil
}

func (or *OrderRepo) Get(ctx context.Context, id string) (models.Order, error) {
	ctx, cancel := or.s.opCtx(ctx)
	defer cancel()

	row := or.s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return models.Order{}, mapErr(err)
	}
	return order, nil
}

func (or *OrderRepo) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	ctx, cancel := or.s.opCtx(ctx)
	defer cancel()

	statuses := make([]string, 0, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses = append(statuses, string(st))
	}

	rows, err := or.s.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1::int = 0 OR table_number = $1::int)
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY created_at DESC, id DESC
	`, filter.TableNumber, statuses)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

// UpdateStatus is a compare-and-set on the status column. The log row is
// written in the same transaction.
func (or *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to models.Status, change models.StatusChange) (models.Order, error) {
	log := or.s.log.Action("order_status_update")

	ctx, cancel := or.s.opCtx(ctx)
	defer cancel()

	if change.ChangedAt == 0 {
		change.ChangedAt = or.s.millis()
	}

	var updated models.Order
	err := or.s.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE orders
			SET status = $3, version = version + 1, updated_at = $4
			WHERE id = $1 AND status = $2
			RETURNING `+orderColumns,
			id, string(from), string(to), change.ChangedAt,
		)
		order, err := scanOrder(row)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
				return mapErr(err)
			}
			if !exists {
				return core.ErrNotFound
			}
			return core.ErrConflict
		}
		if err != nil {
			return mapErr(err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
			VALUES ($1, $2, $3, $4)
		`, id, string(change.Status), change.ChangedBy, change.ChangedAt)
		if err != nil {
			return mapErr(err)
		}

		updated = order
		return nil
	})
	if err != nil {
		log.Debug("status not written", "order_id", id, "from", from, "to", to, "reason", err.Error())
		return models.Order{}, err
	}
	return updated, nil
}

func (or *OrderRepo) History(ctx context.Context, id string) ([]models.StatusChange, error) {
	ctx, cancel := or.s.opCtx(ctx)
	defer cancel()

	var exists bool
	if err := or.s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, mapErr(err)
	}
	if !exists {
		return nil, core.ErrNotFound
	}

	rows, err := or.s.pool.Query(ctx, `
		SELECT status, changed_by, changed_at FROM order_status_log
		WHERE order_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]models.StatusChange, 0)
	for rows.Next() {
		var (
			change models.StatusChange
			status string
		)
		if err := rows.Scan(&status, &change.ChangedBy, &change.ChangedAt); err != nil {
			return nil, mapErr(err)
		}
		change.Status = models.Status(status)
		out = append(out, change)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		order  models.Order
		items  []byte
		status string
	)
	err := row.Scan(
		&order.ID,
		&order.TableNumber,
		&items,
		&order.Total,
		&status,
		&order.Note,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return models.Order{}, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return models.Order{}, fmt.Errorf("decode items of order %s: %w", order.ID, err)
	}
	order.Status = models.Status(status)
	return order, nil
}
