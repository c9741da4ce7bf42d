package postgres

import (
	"context"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/models"

	"github.com/jackc/pgx/v5"
)

type FoodRepo struct {
	s *Store
}

const foodColumns = `id, name, description, price, category, is_best_seller, is_available, image_url, created_at`

func (fr *FoodRepo) Create(ctx context.Context, food models.Food) (models.Food, error) {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	if food.ID == "" {
		food.ID = newID()
	}
	if food.CreatedAt == 0 {
		food.CreatedAt = fr.s.millis()
	}

	_, err := fr.s.pool.Exec(ctx, `
		INSERT INTO foods (`+foodColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		food.ID,
		food.Name,
		food.Description,
		food.Price,
		food.Category,
		food.IsBestSeller,
		food.IsAvailable,
		food.ImageURL,
		food.CreatedAt,
	)
	if err != nil {
		return models.Food{}, mapErr(err)
	}
	return food, nil
}

func (fr *FoodRepo) Get(ctx context.Context, id string) (models.Food, error) {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	food, err := scanFood(fr.s.pool.QueryRow(ctx, `SELECT `+foodColumns+` FROM foods WHERE id = $1`, id))
	if err != nil {
		return models.Food{}, mapErr(err)
	}
	return food, nil
}

func (fr *FoodRepo) GetMany(ctx context.Context, ids []string) (map[string]models.Food, error) {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	rows, err := fr.s.pool.Query(ctx, `SELECT `+foodColumns+` FROM foods WHERE id = ANY($1::text[])`, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make(map[string]models.Food, len(ids))
	for rows.Next() {
		food, err := scanFood(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out[food.ID] = food
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (fr *FoodRepo) List(ctx context.Context) ([]models.Food, error) {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	rows, err := fr.s.pool.Query(ctx, `SELECT `+foodColumns+` FROM foods ORDER BY created_at, id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]models.Food, 0)
	for rows.Next() {
		food, err := scanFood(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, food)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

// Update reads and rewrites the row under a lock so concurrent patches do not
// lose fields.
func (fr *FoodRepo) Update(ctx context.Context, id string, patch models.FoodPatch) (models.Food, error) {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	var updated models.Food
	err := fr.s.inTx(ctx, func(tx pgx.Tx) error {
		food, err := scanFood(tx.QueryRow(ctx, `SELECT `+foodColumns+` FROM foods WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return mapErr(err)
		}
		food = patch.Apply(food)

		_, err = tx.Exec(ctx, `
			UPDATE foods
			SET name = $2, description = $3, price = $4, category = $5,
			    is_best_seller = $6, is_available = $7, image_url = $8
			WHERE id = $1
		`,
			food.ID,
			food.Name,
			food.Description,
			food.Price,
			food.Category,
			food.IsBestSeller,
			food.IsAvailable,
			food.ImageURL,
		)
		if err != nil {
			return mapErr(err)
		}
		updated = food
		return nil
	})
	if err != nil {
		return models.Food{}, err
	}
	return updated, nil
}

func (fr *FoodRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := fr.s.opCtx(ctx)
	defer cancel()

	tag, err := fr.s.pool.Exec(ctx, `DELETE FROM foods WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanFood(row pgx.Row) (models.Food, error) {
	var food models.Food
	err := row.Scan(
		&food.ID,
		&food.Name,
		&food.Description,
		&food.Price,
		&food.Category,
		&food.IsBestSeller,
		&food.IsAvailable,
		&food.ImageURL,
		&food.CreatedAt,
	)
	return food, err
}

type TableRepo struct {
	s *Store
}

const tableColumns = `id, number, is_occupied, created_at`

func (tr *TableRepo) Create(ctx context.Context, table models.Table) (models.Table, error) {
	ctx, cancel := tr.s.opCtx(ctx)
	defer cancel()

	if table.ID == "" {
		table.ID = newID()
	}
	if table.CreatedAt == 0 {
		table.CreatedAt = tr.s.millis()
	}

	_, err := tr.s.pool.Exec(ctx, `
		INSERT INTO restaurant_tables (`+tableColumns+`)
		VALUES ($1, $2, $3, $4)
	`, table.ID, table.Number, table.IsOccupied, table.CreatedAt)
	if err != nil {
		return models.Table{}, mapErr(err)
	}
	return table, nil
}

func (tr *TableRepo) Get(ctx context.Context, number int) (models.Table, error) {
	ctx, cancel := tr.s.opCtx(ctx)
	defer cancel()

	table, err := scanTable(tr.s.pool.QueryRow(ctx, `SELECT `+tableColumns+` FROM restaurant_tables WHERE number = $1`, number))
	if err != nil {
		return models.Table{}, mapErr(err)
	}
	return table, nil
}

func (tr *TableRepo) List(ctx context.Context) ([]models.Table, error) {
	ctx, cancel := tr.s.opCtx(ctx)
	defer cancel()

	rows, err := tr.s.pool.Query(ctx, `SELECT `+tableColumns+` FROM restaurant_tables ORDER BY number`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]models.Table, 0)
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, table)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (tr *TableRepo) SetOccupied(ctx context.Context, number int, occupied bool) (models.Table, error) {
	ctx, cancel := tr.s.opCtx(ctx)
	defer cancel()

	table, err := scanTable(tr.s.pool.QueryRow(ctx, `
		UPDATE restaurant_tables SET is_occupied = $2
		WHERE number = $1
		RETURNING `+tableColumns,
		number, occupied,
	))
	if err != nil {
		return models.Table{}, mapErr(err)
	}
	return table, nil
}

func (tr *TableRepo) Delete(ctx context.Context, number int) error {
	ctx, cancel := tr.s.opCtx(ctx)
	defer cancel()

	tag, err := tr.s.pool.Exec(ctx, `DELETE FROM restaurant_tables WHERE number = $1`, number)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanTable(row pgx.Row) (models.Table, error) {
	var table models.Table
	err := row.Scan(&table.ID, &table.Number, &table.IsOccupied, &table.CreatedAt)
	return table, err
}
