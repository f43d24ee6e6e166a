package db

import (
	"context"
	"fmt"

	"github.com/benchbase/worldgate/system"
)

const (
	DriverPgx = "pgx"
	DriverSQL = "sql"
)

// Load opens a pool with the named driver, registers its health check, gauges and close
// with sys, and returns an Executor over it.
func Load(ctx context.Context, dbName, appName, driver string, cfg Config, sys *system.System) (Executor, error) {
	switch driver {
	case DriverPgx, "":
		pool, err := NewPool(ctx, appName, cfg)
		if err != nil {
			return nil, err
		}
		check := &PoolHealthCheck{Name: dbName + "-db", Pool: pool}
		sys.AddMetrics(check)
		sys.AddHealthCheck(check)
		sys.AddCleanup(func(ctx context.Context) error {
			pool.Close()
			return nil
		})
		return NewPoolExecutor(pool), nil
	case DriverSQL:
		db, err := Open(ctx, appName, cfg)
		if err != nil {
			return nil, err
		}
		check := &HealthCheck{Name: dbName + "-db", DB: db}
		sys.AddMetrics(check)
		sys.AddHealthCheck(check)
		sys.AddCleanup(func(ctx context.Context) error {
			return db.Close()
		})
		return NewSQLExecutor(db), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", driver)
}
