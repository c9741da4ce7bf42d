package db

import (
	"context"
	"fmt"

	"dine-order/internal/order/adapter/db/memory"
	"dine-order/internal/order/adapter/db/mongodb"
	"dine-order/internal/order/adapter/db/postgres"
	"dine-order/internal/order/app/core"
	"dine-order/internal/xpkg/config"
	xdb "dine-order/internal/xpkg/db"
	myerrors "dine-order/internal/xpkg/errors"
	"dine-order/internal/xpkg/logger"
)

// Open connects the store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, mylog logger.Logger) (core.Store, error) {
	log := mylog.Action("store_open")

	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Info("Using in-memory store")
		return memory.New(), nil

	case config.DriverPostgres:
		pool, err := xdb.StartPostgres(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", myerrors.ErrDBConn, err)
		}
		store, err := postgres.New(ctx, pool, cfg.Store.OpTimeout, mylog)
		if err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("Connected to PostgreSQL", "host", cfg.DB.Host, "database", cfg.DB.Database)
		return store, nil

	case config.DriverMongo:
		client, database, err := xdb.StartMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", myerrors.ErrDBConn, err)
		}
		store, err := mongodb.New(ctx, client, database, cfg.Store.OpTimeout, mylog)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info("Connected to MongoDB", "database", cfg.Mongo.Database)
		return store, nil
	}

	return nil, fmt.Errorf("unknown store driver: %q", cfg.Store.Driver)
}
