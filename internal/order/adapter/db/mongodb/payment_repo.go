package mongodb

import (
	"context"

	"dine-order/internal/order/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PaymentRepo struct {
	s *Store
}

// CreateOnce leans on the unique settlement_key index.
func (pr *PaymentRepo) CreateOnce(ctx context.Context, payment models.Payment) (models.Payment, bool, error) {
	ctx, cancel := pr.s.opCtx(ctx)
	defer cancel()

	if payment.ID == "" {
		payment.ID = newID()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = pr.s.millis()
	}

	_, err := pr.s.payments.InsertOne(ctx, payment)
	if err == nil {
		return payment.Clone(), true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return models.Payment{}, false, mapErr(err)
	}

	var stored models.Payment
	err = pr.s.payments.FindOne(ctx, bson.M{"settlement_key": payment.SettlementKey}).Decode(&stored)
	if err != nil {
		return models.Payment{}, false, mapErr(err)
	}
	return stored, false, nil
}

func (pr *PaymentRepo) Get(ctx context.Context, id string) (models.Payment, error) {
	ctx, cancel := pr.s.opCtx(ctx)
	defer cancel()

	var payment models.Payment
	if err := pr.s.payments.FindOne(ctx, bson.M{"_id": id}).Decode(&payment); err != nil {
		return models.Payment{}, mapErr(err)
	}
	return payment, nil
}

func (pr *PaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	query := bson.M{}
	if filter.TableNumber != 0 {
		query["table_number"] = filter.TableNumber
	}
	createdAt := bson.M{}
	if filter.From != 0 {
		createdAt["$gte"] = filter.From
	}
	if filter.To != 0 {
		createdAt["$lt"] = filter.To
	}
	if len(createdAt) > 0 {
		query["created_at"] = createdAt
	}
	return pr.find(ctx, query)
}

func (pr *PaymentRepo) FindByOrderIDs(ctx context.Context, orderIDs []string) ([]models.Payment, error) {
	return pr.find(ctx, bson.M{"order_ids": bson.M{"$in": orderIDs}})
}

func (pr *PaymentRepo) find(ctx context.Context, query bson.M) ([]models.Payment, error) {
	ctx, cancel := pr.s.opCtx(ctx)
	defer cancel()

	cur, err := pr.s.payments.Find(ctx, query, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, mapErr(err)
	}

	out := make([]models.Payment, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
