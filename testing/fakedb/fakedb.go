// Package fakedb is an in-memory db.Executor for tests. It understands exactly the
// statements the world gateway sends and rejects anything else.
package fakedb

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/benchbase/worldgate/db"
)

const (
	selectWorld   = "SELECT * FROM world WHERE id = $1"
	updateWorld   = "UPDATE world SET randomnumber = $1 WHERE id = $2"
	selectFortune = "SELECT * FROM fortune"
)

// Statement records one call made to the fake.
type Statement struct {
	Query string
	Args  []any
}

type DB struct {
	mu       sync.Mutex
	worlds   []db.Row
	fortunes []db.Row
	failures map[string]error
	log      []Statement
	gate     chan struct{}
	inflight sync.WaitGroup
}

func New() *DB {
	return &DB{failures: map[string]error{}}
}

// AddWorld inserts a world row. Rows are returned in insertion order.
func (d *DB) AddWorld(id, randomNumber int32) {
	d.AddWorldRow(db.Row{id, randomNumber})
}

// AddWorldRow inserts a raw world row, which may be malformed.
func (d *DB) AddWorldRow(row db.Row) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.worlds = append(d.worlds, row)
}

func (d *DB) AddFortune(id int32, message string) {
	d.AddFortuneRow(db.Row{id, message})
}

// AddFortuneRow inserts a raw fortune row, which may be malformed.
func (d *DB) AddFortuneRow(row db.Row) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fortunes = append(d.fortunes, row)
}

// RandomNumber returns the stored random number of the first world row with id.
func (d *DB) RandomNumber(id int32) (int32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, row := range d.worlds {
		if row[0] == id {
			n, ok := row[1].(int32)
			return n, ok
		}
	}
	return 0, false
}

// Fail makes every later statement starting with prefix fail with err.
func (d *DB) Fail(prefix string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[prefix] = err
}

// Statements returns the statements submitted so far, in submission order.
func (d *DB) Statements() []Statement {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Statement(nil), d.log...)
}

// Pause holds back completions of statements submitted from now on until the returned
// func is called.
func (d *DB) Pause() (release func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	gate := make(chan struct{})
	d.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			if d.gate == gate {
				d.gate = nil
			}
			d.mu.Unlock()
			close(gate)
		})
	}
}

// Wait blocks until every submitted statement has called back.
func (d *DB) Wait() {
	d.inflight.Wait()
}

func (d *DB) Query(ctx context.Context, query string, args []any, done db.Callback) {
	d.submit(ctx, query, args, done)
}

func (d *DB) Exec(ctx context.Context, query string, args []any, done db.Callback) {
	d.submit(ctx, query, args, done)
}

func (d *DB) submit(ctx context.Context, query string, args []any, done db.Callback) {
	d.mu.Lock()
	d.log = append(d.log, Statement{Query: query, Args: args})
	gate := d.gate
	d.mu.Unlock()

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		if gate != nil {
			<-gate
		}
		if err := ctx.Err(); err != nil {
			done(nil, err)
			return
		}
		done(d.run(query, args))
	}()
}

func (d *DB) run(query string, args []any) (*db.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for prefix, err := range d.failures {
		if strings.HasPrefix(query, prefix) {
			return nil, err
		}
	}

	switch query {
	case selectWorld:
		res := &db.Result{}
		for _, row := range d.worlds {
			if len(args) == 1 && len(row) > 0 && row[0] == args[0] {
				res.Rows = append(res.Rows, append(db.Row(nil), row...))
			}
		}
		res.RowsAffected = int64(len(res.Rows))
		return res, nil
	case updateWorld:
		if len(args) != 2 {
			return nil, fmt.Errorf("fakedb: update wants 2 args, got %d", len(args))
		}
		res := &db.Result{}
		for _, row := range d.worlds {
			if len(row) > 1 && row[0] == args[1] {
				row[1] = args[0]
				res.RowsAffected++
			}
		}
		return res, nil
	case selectFortune:
		res := &db.Result{}
		for _, row := range d.fortunes {
			res.Rows = append(res.Rows, append(db.Row(nil), row...))
		}
		res.RowsAffected = int64(len(res.Rows))
		return res, nil
	}
	return nil, fmt.Errorf("fakedb: unsupported statement %q", query)
}
