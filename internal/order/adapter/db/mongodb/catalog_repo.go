package mongodb

import (
	"context"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FoodRepo struct {
	s *Store
}

func (fr *FoodRepo) Create(ctx context.Context, food models.Food) (models.Food, error) {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	if food.ID == "" {
		food.ID = newID()
	}
	if food.CreatedAt == 0 {
		food.CreatedAt = fr.s.millis()
	}
	if _, err := fr.s.foods.InsertOne(ctx, food); err != nil {
		return models.Food{}, mapErr(err)
	}
	return food, nil
}

func (fr *FoodRepo) Get(ctx context.Context, id string) (models.Food, error) {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	var food models.Food
	if err := fr.s.foods.FindOne(ctx, bson.M{"_id": id}).Decode(&food); err != nil {
		return models.Food{}, mapErr(err)
	}
	return food, nil
}

func (fr *FoodRepo) GetMany(ctx context.Context, ids []string) (map[string]models.Food, error) {
	foods, err := fr.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.Food, len(foods))
	for _, food := range foods {
		out[food.ID] = food
	}
	return out, nil
}

func (fr *FoodRepo) List(ctx context.Context) ([]models.Food, error) {
	return fr.find(ctx, bson.M{})
}

func (fr *FoodRepo) find(ctx context.Context, query bson.M) ([]models.Food, error) {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := fr.s.foods.Find(ctx, query, opts)
	if err != nil {
		return nil, mapErr(err)
	}

	out := make([]models.Food, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (fr *FoodRepo) Update(ctx context.Context, id string, patch models.FoodPatch) (models.Food, error) {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.IsBestSeller != nil {
		set["is_best_seller"] = *patch.IsBestSeller
	}
	if patch.IsAvailable != nil {
		set["is_available"] = *patch.IsAvailable
	}
	if patch.ImageURL != nil {
		set["image_url"] = *patch.ImageURL
	}

	var food models.Food
	if len(set) == 0 {
		if err := fr.s.foods.FindOne(ctx, bson.M{"_id": id}).Decode(&food); err != nil {
			return models.Food{}, mapErr(err)
		}
		return food, nil
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := fr.s.foods.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&food)
	if err != nil {
		return models.Food{}, mapErr(err)
	}
	return food, nil
}

func (fr *FoodRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	res, err := fr.s.foods.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

type TableRepo struct {
	s *Store
}

func (tr *TableRepo) Create(ctx context.Context, table models.Table) (models.Table, error) {
	ctx, cancel := tr.s.opCtx(ctx)
	defer cancel()

	if table.ID == "" {
		table.ID = newID()
	}
	if table.CreatedAt == 0 {
		table.CreatedAt = tr.s.millis()
	}
	if _, err := tr.s.tables.InsertOne(ctx, table); err != nil {
		return models.Table{}, mapErr(err)
	}
	return table, nil
}

func (tr *TableRepo) Get(ctx context.Context, number int) (models.Table, error) {
	ctx, cancel := tr.s.opCtx(ctx)
	defer cancel()

	var table models.Table
	if err := tr.s.tables.FindOne(ctx, bson.M{"number": number}).Decode(&table); err != nil {
		return models.Table{}, mapErr(err)
	}
	return table, nil
}

func (tr *TableRepo) List(ctx context.Context) ([]models.Table, error) {
	ctx, cancel := tr.s.opCtx(ctx)
	defer cancel()

	cur, err := tr.s.tables.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "number", Value: 1}}))
	if err != nil {
		return nil, mapErr(err)
	}

	out := make([]models.Table, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (tr *TableRepo) SetOccupied(ctx context.Context, number int, occupied bool) (models.Table, error) {
	ctx, cancel := tr.s.opCtx(ctx)
	defer cancel()

	var table models.Table
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := tr.s.tables.FindOneAndUpdate(ctx,
		bson.M{"number": number},
		bson.M{"$set": bson.M{"is_occupied": occupied}},
		opts,
	).Decode(&table)
	if err != nil {
		return models.Table{}, mapErr(err)
	}
	return table, nil
}

func (tr *TableRepo) Delete(ctx context.Context, number int) error {
	ctx, cancel := tr.s.opCtx(ctx)
	defer cancel()

	res, err := tr.s.tables.DeleteOne(ctx, bson.M{"number": number})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}
