package db

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Load PostgresSQL Driver

	"github.com/benchbase/worldgate/config/secret"
	"github.com/benchbase/worldgate/o11y"
)

type Config struct {
	Host string
	Port int
	User string
	Pass secret.String
	Name string
	SSL  bool

	// MaxConns caps the pool size. Zero means the driver default.
	MaxConns int
}

func (c Config) uri(appName string) string {
	params := url.Values{}
	params.Set("connect_timeout", "5")
	params.Set("application_name", appName)
	if c.SSL {
		params.Set("sslmode", "require")
	} else {
		params.Set("sslmode", "disable")
	}
	user := url.User(c.User)
	if c.Pass.IsSet() {
		user = url.UserPassword(c.User, c.Pass.Raw())
	}
	uri := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     c.Name,
		RawQuery: params.Encode(),
	}
	return uri.String()
}

// NewPool opens a pgx connection pool. No connection is made until the first statement
// or Ping.
func NewPool(ctx context.Context, appName string, cfg Config) (pool *pgxpool.Pool, err error) {
	ctx, span := o11y.StartSpan(ctx, "config: connect to database")
	defer o11y.End(span, &err)
	addConfigFields(span, "pgx", cfg)

	pcfg, err := pgxpool.ParseConfig(cfg.uri(appName))
	if err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	pcfg.MaxConnLifetime = time.Hour
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}

	return pgxpool.NewWithConfig(ctx, pcfg)
}

// Open opens a database/sql pool on the lib/pq driver.
func Open(ctx context.Context, appName string, cfg Config) (db *sqlx.DB, err error) {
	_, span := o11y.StartSpan(ctx, "config: connect to database")
	defer o11y.End(span, &err)
	addConfigFields(span, "postgres", cfg)

	db, err = sqlx.Open("postgres", cfg.uri(appName))
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(time.Hour)
	maxOpen := cfg.MaxConns
	if maxOpen <= 0 {
		maxOpen = 100
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	return db, nil
}

func addConfigFields(span o11y.Span, driver string, cfg Config) {
	span.AddField("driver", driver)
	span.AddField("host", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	span.AddField("dbname", cfg.Name)
	span.AddField("username", cfg.User)
	span.AddField("max_conns", cfg.MaxConns)
}
