package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"dine-order/internal/order/domain/models"

	"github.com/jackc/pgx/v5"
)

type PaymentRepo struct {
	s *Store
}

const paymentColumns = `id, settlement_key, table_number, items, total_amount, method, status, order_ids, created_at`

// CreateOnce relies on the unique settlement_key: a conflicting insert is a
// no-op and the stored row is read back instead.
func (pr *PaymentRepo) CreateOnce(ctx context.Context, payment models.Payment) (models.Payment, bool, error) {
	ctx, cancel := pr.s.opCtx(ctx)
	defer cancel()

	if payment.ID == "" {
		payment.ID = newID()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = pr.s.millis()
	}

	items, err := json.Marshal(payment.Items)
	if err != nil {
		return models.Payment{}, false, fmt.Errorf("encode items: %w", err)
	}

	tag, err := pr.s.pool.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (settlement_key) DO NOTHING
	`,
		payment.ID,
		payment.SettlementKey,
		payment.TableNumber,
		items,
		payment.TotalAmount,
		string(payment.Method),
		string(payment.Status),
		payment.OrderIDs,
		payment.CreatedAt,
	)
	if err != nil {
		return models.Payment{}, false, mapErr(err)
	}
	if tag.RowsAffected() == 1 {
		return payment.Clone(), true, nil
	}

	row := pr.s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE settlement_key = $1`, payment.SettlementKey)
	stored, err := scanPayment(row)
	if err != nil {
		return models.Payment{}, false, mapErr(err)
	}
	return stored, false, nil
}

func (pr *PaymentRepo) Get(ctx context.Context, id string) (models.Payment, error) {
	ctx, cancel := pr.s.opCtx(ctx)
	defer cancel()

	row := pr.s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	payment, err := scanPayment(row)
	if err != nil {
		return models.Payment{}, mapErr(err)
	}
	return payment, nil
}

func (pr *PaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	ctx, cancel := pr.s.opCtx(ctx)
	defer cancel()

	rows, err := pr.s.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE ($1::int = 0 OR table_number = $1::int)
		  AND ($2::bigint = 0 OR created_at >= $2::bigint)
		  AND ($3::bigint = 0 OR created_at < $3::bigint)
		ORDER BY created_at DESC, id DESC
	`, filter.TableNumber, filter.From, filter.To)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectPayments(rows)
}

func (pr *PaymentRepo) FindByOrderIDs(ctx context.Context, orderIDs []string) ([]models.Payment, error) {
	ctx, cancel := pr.s.opCtx(ctx)
	defer cancel()

	rows, err := pr.s.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_ids && $1::text[]
		ORDER BY created_at DESC, id DESC
	`, orderIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]models.Payment, error) {
	defer rows.Close()

	out := make([]models.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func scanPayment(row pgx.Row) (models.Payment, error) {
	var (
		payment models.Payment
		items   []byte
		method  string
		status  string
	)
	err := row.Scan(
		&payment.ID,
		&payment.SettlementKey,
		&payment.TableNumber,
		&items,
		&payment.TotalAmount,
		&method,
		&status,
		&payment.OrderIDs,
		&payment.CreatedAt,
	)
	if err != nil {
		return models.Payment{}, err
	}
	if err := json.Unmarshal(items, &payment.Items); err != nil {
		return models.Payment{}, fmt.Errorf("decode items of payment %s: %w", payment.ID, err)
	}
	payment.Method = models.PaymentMethod(method)
	payment.Status = models.Status(status)
	return payment, nil
}
