// Package postgres implements the order store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"dine-order/internal/order/app/core"
	"dine-order/internal/xpkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type Store struct {
	pool      *pgxpool.Pool
	log       logger.Logger
	opTimeout time.Duration
	now       func() time.Time
}

// New wraps an open pool and makes sure the schema exists.
func New(ctx context.Context, pool *pgxpool.Pool, opTimeout time.Duration, log logger.Logger) (*Store, error) {
	s := &Store{
		pool:      pool,
		log:       log,
		opTimeout: opTimeout,
		now:       time.Now,
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

func (s *Store) Foods() core.IFoodRepo       { return &FoodRepo{s} }
func (s *Store) Orders() core.IOrderRepo     { return &OrderRepo{s} }
func (s *Store) Payments() core.IPaymentRepo { return &PaymentRepo{s} }
func (s *Store) Tables() core.ITableRepo     { return &TableRepo{s} }

func (s *Store) IsAlive(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return mapErr(s.pool.Ping(ctx))
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *Store) millis() int64 { return s.now().UnixMilli() }

// inTx runs fn in a transaction, rolling back on any error.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapErr(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return mapErr(err)
	}
	return nil
}

// mapErr translates driver errors into the store error kinds.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrConflict) || errors.Is(err, core.ErrStoreUnavailable) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", core.ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("%w: postgres: %v", core.ErrStoreUnavailable, err)
}

func newID() string { return uuid.NewString() }
