// Package mongodb implements the order store on MongoDB. Each order document
// embeds its status history so a status write is a single-document update.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dine-order/internal/order/app/core"
	"dine-order/internal/xpkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	foodsCollection    = "foods"
	ordersCollection   = "orders"
	paymentsCollection = "payments"
	tablesCollection   = "tables"
)

type Store struct {
	client    *mongo.Client
	foods     *mongo.Collection
	orders    *mongo.Collection
	payments  *mongo.Collection
	tables    *mongo.Collection
	log       logger.Logger
	opTimeout time.Duration
	now       func() time.Time
}

// New binds the collections and creates the indexes the store depends on.
func New(ctx context.Context, client *mongo.Client, database *mongo.Database, opTimeout time.Duration, log logger.Logger) (*Store, error) {
	s := &Store{
		client:    client,
		foods:     database.Collection(foodsCollection),
		orders:    database.Collection(ordersCollection),
		payments:  database.Collection(paymentsCollection),
		tables:    database.Collection(tablesCollection),
		log:       log,
		opTimeout: opTimeout,
		now:       time.Now,
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.orders: {
			{Keys: bson.D{{Key: "table_number", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		s.payments: {
			{Keys: bson.D{{Key: "settlement_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "order_ids", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		s.tables: {
			{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return nil, fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
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
	return mapErr(s.client.Ping(ctx, readpref.Primary()))
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *Store) millis() int64 { return s.now().UnixMilli() }

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.ErrNotFound
	}
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrConflict) || errors.Is(err, core.ErrStoreUnavailable) {
		return err
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", core.ErrConflict, err)
	}
	return fmt.Errorf("%w: mongo: %v", core.ErrStoreUnavailable, err)
}

func newID() string { return uuid.NewString() }

// newestFirst is the listing order for orders and payments.
var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
