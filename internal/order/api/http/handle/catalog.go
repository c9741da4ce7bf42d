package handle

import (
	"net/http"

	"dine-order/internal/order/app/services"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/logger"
)

type CatalogHandler struct {
	catalog *services.Catalog
	mylog   logger.Logger
}

func NewCatalogHandler(catalog *services.Catalog, mylog logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		mylog:   mylog,
	}
}

func (ch *CatalogHandler) ListFoods() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestCtx(r)
		defer cancel()

		foods, err := ch.catalog.ListFoods(ctx)
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, foods)
	}
}

func (ch *CatalogHandler) GetFood() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestCtx(r)
		defer cancel()

		food, err := ch.catalog.GetFood(ctx, r.PathValue("id"))
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, food)
	}
}

func (ch *CatalogHandler) CreateFood() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.FoodRequest
		if err := decodeJSON(w, r, &req); err != nil {
			domainError(w, err)
			return
		}

		ctx, cancel := requestCtx(r)
		defer cancel()

		food, err := ch.catalog.CreateFood(ctx, req)
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusCreated, food)
	}
}

func (ch *CatalogHandler) UpdateFood() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch models.FoodPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			domainError(w, err)
			return
		}

		ctx, cancel := requestCtx(r)
		defer cancel()

		food, err := ch.catalog.UpdateFood(ctx, r.PathValue("id"), patch)
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, food)
	}
}

func (ch *CatalogHandler) DeleteFood() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestCtx(r)
		defer cancel()

		if err := ch.catalog.DeleteFood(ctx, r.PathValue("id")); err != nil {
			domainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (ch *CatalogHandler) ListTables() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := requestCtx(r)
		defer cancel()

		tables, err := ch.catalog.ListTables(ctx)
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, tables)
	}
}

func (ch *CatalogHandler) CreateTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.TableRequest
		if err := decodeJSON(w, r, &req); err != nil {
			domainError(w, err)
			return
		}

		ctx, cancel := requestCtx(r)
		defer cancel()

		table, err := ch.catalog.CreateTable(ctx, req)
		if err != nil {
			domainError(w, err)
			return
		}
		jsonResponse(w, http.StatusCreated, table)
	}
}

func (ch *CatalogHandler) DeleteTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, err := intParam("table number", r.PathValue("number"))
		if err != nil {
			domainError(w, err)
			return
		}

		ctx, cancel := requestCtx(r)
		defer cancel()

		if err := ch.catalog.DeleteTable(ctx, number); err != nil {
			domainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
