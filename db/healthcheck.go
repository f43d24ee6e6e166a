package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// PoolHealthCheck reports readiness and pool gauges for a pgx pool.
type PoolHealthCheck struct {
	Name string
	Pool *pgxpool.Pool
}

func (h *PoolHealthCheck) HealthChecks() (name string, ready, live func(ctx context.Context) error) {
	return h.Name, newPGHealthCheck(h.Pool.Ping, versionQuery(func(ctx context.Context) error {
		rows, err := h.Pool.Query(ctx, `SELECT VERSION()`)
		if err != nil {
			return err
		}
		rows.Close()
		return rows.Err()
	})), nil
}

func (h *PoolHealthCheck) MetricName() string {
	return h.Name
}

func (h *PoolHealthCheck) Gauges(_ context.Context) map[string]float64 {
	stats := h.Pool.Stat()
	return map[string]float64{
		"in_use":              float64(stats.AcquiredConns()),
		"idle":                float64(stats.IdleConns()),
		"total":               float64(stats.TotalConns()),
		"max":                 float64(stats.MaxConns()),
		"wait_count":          float64(stats.EmptyAcquireCount()),
		"acquire_duration":    float64(stats.AcquireDuration() / time.Millisecond),
		"max_lifetime_closed": float64(stats.MaxLifetimeDestroyCount()),
	}
}

// HealthCheck reports readiness and pool gauges for a database/sql pool.
type HealthCheck struct {
	Name string
	DB   *sqlx.DB
}

func (h *HealthCheck) HealthChecks() (name string, ready, live func(ctx context.Context) error) {
	return h.Name, newPGHealthCheck(h.DB.PingContext, versionQuery(func(ctx context.Context) error {
		rows, err := h.DB.QueryContext(ctx, `SELECT VERSION()`)
		if err != nil {
			return err
		}
		return rows.Close()
	})), nil
}

func (h *HealthCheck) MetricName() string {
	return h.Name
}

func (h *HealthCheck) Gauges(_ context.Context) map[string]float64 {
	stats := h.DB.Stats()
	return map[string]float64{
		"in_use":               float64(stats.InUse),
		"idle":                 float64(stats.Idle),
		"wait_count":           float64(stats.WaitCount),
		"wait_duration":        float64(stats.WaitDuration / time.Millisecond),
		"max_idle_closed":      float64(stats.MaxIdleClosed),
		"max_idle_time_closed": float64(stats.MaxIdleTimeClosed),
		"max_lifetime_closed":  float64(stats.MaxLifetimeClosed),
	}
}

type versionQuery func(ctx context.Context) error

// newPGHealthCheck returns a check that pings and then selects the server version
func newPGHealthCheck(ping func(context.Context) error, version versionQuery) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("postgreSQL health check failed on ping: %w", err)
		}
		if err := version(ctx); err != nil {
			return fmt.Errorf("postgreSQL health check failed on select: %w", err)
		}
		return nil
	}
}
