// Package dbfixture creates a throwaway Postgres database per test. Tests are skipped when
// no database is reachable, unless CI=true.
package dbfixture

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Load PostgresSQL Driver
	"gotest.tools/v3/assert"

	"github.com/benchbase/worldgate/config/secret"
	"github.com/benchbase/worldgate/db"
	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/recontext"
	"github.com/benchbase/worldgate/testing/internal/types"
)

var globalFixture = &SharedFixture{}

var mustRunAllTests = os.Getenv("CI") == "true"

type SharedFixture struct {
	once sync.Once
	m    *Manager
}

func (s *SharedFixture) Manager() *Manager {
	return s.m
}

// SetupSystem prepares the running system for use
// callers should not rely on the fact this currently uses a package global
func SetupSystem(t types.TestingTB, con Connection) *SharedFixture {
	globalFixture.once.Do(func() {
		var err error
		globalFixture.m, err = NewManager(con)
		if err != nil {
			var noDBError *NoDBError
			if errors.As(err, &noDBError) && !mustRunAllTests {
				t.Skip(noDBError.Error())
			}
			t.Fatal(err.Error())
		}
	})
	if globalFixture.m == nil {
		t.Skip("global fixtures failed setup")
	}
	return globalFixture
}

// Connection is the superuser used to create and drop test databases.
type Connection struct {
	Host     string
	Port     int
	User     string
	Password secret.String
}

// DefaultConnection matches the docker compose database used in development and CI.
var DefaultConnection = Connection{
	Host:     "localhost",
	Port:     5432,
	User:     "user",
	Password: "password",
}

// SetupDB creates a database named after the test, applies schema and drops the database
// when the test ends.
func SetupDB(ctx context.Context, t types.TestingTB, schema string, con Connection) *Fixture {
	t.Helper()
	shared := SetupSystem(t, con)
	fix, err := shared.Manager().NewDB(ctx, con, t.Name(), schema)
	assert.Assert(t, err)
	t.Cleanup(func() {
		ctx, cancel := recontext.WithNewTimeout(ctx, 10*time.Second)
		defer cancel()

		if r := recover(); r != nil {
			_ = fix.Cleanup(ctx)
			panic(r)
		}
		assert.Assert(t, fix.Cleanup(ctx))
	})
	return fix
}

type Manager struct {
	db *sqlx.DB
}

// NewManager returns a DB manager connected to the postgres maintenance database.
func NewManager(con Connection) (*Manager, error) {
	d, err := open(con, "postgres")
	if err != nil {
		return nil, err
	}
	return &Manager{db: d}, nil
}

// NewDB returns a new database fixture. The database name is generated from dbName with a random suffix.
func (m *Manager) NewDB(ctx context.Context, con Connection, dbName, schema string) (*Fixture, error) {
	s := strings.ToLower(fmt.Sprintf("%s-%s", randomSuffix(), strings.ReplaceAll(dbName, "/", "_")))
	if len(s) > 63 {
		s = s[:63]
	}
	return m.newDB(ctx, con, s, schema)
}

const tableNameQuery = `
SELECT
    table_name,
    table_schema
FROM
    information_schema.tables
WHERE
    table_type = 'BASE TABLE'
AND
    table_schema NOT IN ('pg_catalog', 'information_schema')
`

func (m *Manager) newDB(ctx context.Context, con Connection, dbName, schema string) (_ *Fixture, err error) {
	ctx, span := o11y.StartSpan(ctx, "dbfixture: new_db")
	defer o11y.End(span, &err)

	span.AddField("dbname", dbName)
	span.AddField("host", con.Host)

	_, err = m.db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{dbName}.Sanitize()))
	if err != nil {
		return nil, err
	}

	fix := &Fixture{
		Config: db.Config{
			Host: con.Host,
			Port: con.Port,
			User: con.User,
			Pass: con.Password,
			Name: dbName,
		},
	}
	fix.Cleanup = func(ctx context.Context) error {
		return m.cleanup(ctx, fix)
	}

	fix.DB, err = open(con, dbName)
	if err != nil {
		return nil, err
	}

	o11y.Log(ctx, "applying schema")
	_, err = fix.DB.ExecContext(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	err = fix.DB.SelectContext(ctx, &fix.tables, tableNameQuery)
	if err != nil {
		return nil, fmt.Errorf("could not get list of tables: %w", err)
	}

	return fix, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

type NoDBError struct {
	err error
}

func (e *NoDBError) Error() string {
	return fmt.Sprintf("no database available: %s", e.err)
}

func (e *NoDBError) Unwrap() error {
	return e.err
}

func open(con Connection, name string) (*sqlx.DB, error) {
	params := url.Values{}
	params.Set("connect_timeout", "5")
	params.Set("sslmode", "disable")

	uri := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(con.User, con.Password.Raw()),
		Host:     con.Host + ":" + strconv.Itoa(con.Port),
		Path:     name,
		RawQuery: params.Encode(),
	}

	d, err := sqlx.Open("postgres", uri.String())
	if err != nil {
		return nil, err
	}

	d.SetConnMaxLifetime(time.Hour)
	d.SetMaxOpenConns(10)
	d.SetMaxIdleConns(5)

	if err = d.Ping(); err != nil {
		_ = d.Close()
		return nil, &NoDBError{err: err}
	}

	return d, nil
}

func (m *Manager) cleanup(ctx context.Context, fixture *Fixture) error {
	if err := fixture.DB.Close(); err != nil {
		o11y.LogError(ctx, "dbfixture: close", err)
	}

	if os.Getenv("TEST_PRESERVE_DB") != "" {
		return nil
	}

	dbName := pgx.Identifier{fixture.Config.Name}.Sanitize()

	var result error
	// attempt to kick out any malingering connections before dropping the database
	_, err := m.db.ExecContext(ctx, fmt.Sprintf("REVOKE CONNECT ON DATABASE %s FROM public;", dbName))
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("revoke con: %w", err))
	}

	const killConSQL = `
SELECT pid, pg_terminate_backend(pid)
FROM pg_stat_activity
WHERE datname = $1 AND pid <> pg_backend_pid();
`
	_, err = m.db.ExecContext(ctx, killConSQL, fixture.Config.Name)
	if err != nil {
		o11y.LogError(ctx, "dbfixture: cleanup drop con", err)
	}

	_, err = m.db.ExecContext(ctx, fmt.Sprintf("DROP DATABASE %s", dbName))
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("drop db: %w", err))
	}

	return result
}

func randomSuffix() string {
	bytes := make([]byte, 3)
	if _, err := rand.Read(bytes); err != nil {
		return "not-random--i-hope-thats-ok"
	}
	return hex.EncodeToString(bytes)
}

// Fixture is one test database. Config connects to it as the same user, for building the
// executors under test.
type Fixture struct {
	Config  db.Config
	DB      *sqlx.DB
	Cleanup func(ctx context.Context) error

	tables []table
}

type table struct {
	Schema string `db:"table_schema"`
	Name   string `db:"table_name"`
}

// Reset empties every table created by the schema.
func (f *Fixture) Reset(ctx context.Context) (err error) {
	ctx, span := o11y.StartSpan(ctx, "dbfixture: reset")
	defer o11y.End(span, &err)

	tx, err := f.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, t := range f.tables {
		// nolint: gosec
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`TRUNCATE %s CASCADE`, pgx.Identifier{t.Schema, t.Name}.Sanitize()))
		if err != nil {
			return fmt.Errorf("could not truncate table: %w", err)
		}
	}
	return tx.Commit()
}
