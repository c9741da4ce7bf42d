package mongodb

import (
	"context"
	"errors"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// orderDoc is the stored shape of an order.
type orderDoc struct {
	models.Order `bson:",inline"`
	History      []models.StatusChange `bson:"history"`
}

var withoutHistory = bson.M{"history": 0}

type OrderRepo struct {
	s *Store
}

func (or *OrderRepo) Create(ctx context.Context, order models.Order) (models.Order, error) {
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

	doc := orderDoc{
		Order: order.Clone(),
		History: []models.StatusChange{{
			Status:    order.Status,
			ChangedBy: core.DefaultChangedBy,
			ChangedAt: order.CreatedAt,
		}},
	}
	if _, err := or.s.orders.InsertOne(ctx, doc); err != nil {
		or.s.log.Action("order_insert").Error("failed to insert order", err, "order_id", order.ID)
		return models.Order{}, mapErr(err)
	}
	return order.Clone(), nil
}

func (or *OrderRepo) Get(ctx context.Context, id string) (models.Order, error) {
	ctx, cancel := or.s.opCtx(ctx)
	defer cancel()

	var doc orderDoc
	err := or.s.orders.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutHistory)).Decode(&doc)
	if err != nil {
		return models.Order{}, mapErr(err)
	}
	return doc.Order, nil
}

func (or *OrderRepo) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	ctx, cancel := or.s.opCtx(ctx)
	defer cancel()

	query := bson.M{}
	if filter.TableNumber != 0 {
		query["table_number"] = filter.TableNumber
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}

	opts := options.Find().SetSort(newestFirst).SetProjection(withoutHistory)
	cur, err := or.s.orders.Find(ctx, query, opts)
	if err != nil {
		return nil, mapErr(err)
	}

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapErr(err)
	}

	out := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Order)
	}
	return out, nil
}

// UpdateStatus matches on the expected status so the write is a
// compare-and-set; the history entry is pushed in the same update.
func (or *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to models.Status, change models.StatusChange) (models.Order, error) {
	ctx, cancel := or.s.opCtx(ctx)
	defer cancel()

	if change.ChangedAt == 0 {
		change.ChangedAt = or.s.millis()
	}

	update := bson.M{
		"$set":  bson.M{"status": to, "updated_at": change.ChangedAt},
		"$inc":  bson.M{"version": 1},
		"$push": bson.M{"history": change},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutHistory)

	var doc orderDoc
	err := or.s.orders.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, err := or.s.orders.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return models.Order{}, mapErr(err)
		}
		if n == 0 {
			return models.Order{}, core.ErrNotFound
		}
		return models.Order{}, core.ErrConflict
	}
	if err != nil {
		return models.Order{}, mapErr(err)
	}
	return doc.Order, nil
}

func (or *OrderRepo) History(ctx context.Context, id string) ([]models.StatusChange, error) {
	ctx, cancel := or.s.opCtx(ctx)
	defer cancel()

	var doc orderDoc
	err := or.s.orders.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"history": 1})).Decode(&doc)
	if err != nil {
		return nil, mapErr(err)
	}
	if doc.History == nil {
		return []models.StatusChange{}, nil
	}
	return doc.History, nil
}
