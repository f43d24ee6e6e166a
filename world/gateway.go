package world

import (
	"context"

	"github.com/benchbase/worldgate/async"
	"github.com/benchbase/worldgate/db"
	"github.com/benchbase/worldgate/o11y"
)

var ErrNotFound = o11y.NewWarning("world not found")

type World struct {
	ID           int32 `json:"id"`
	RandomNumber int32 `json:"randomNumber"`
}

type Fortune struct {
	ID      int32  `json:"id"`
	Message string `json:"message"`
}

type Gateway struct {
	exec db.Executor
}

func New(exec db.Executor) *Gateway {
	return &Gateway{exec: exec}
}

// FetchWorld reads the world row with the given id. The future fails with ErrNotFound when
// there is no such row, with a *db.DecodeError when the row cannot be read, and with the
// executor's error otherwise.
func (g *Gateway) FetchWorld(ctx context.Context, id int32) *async.Future[World] {
	ctx, span := db.Span(ctx, "world", "fetch_world")
	span.AddField("id", id)

	p := async.NewPromise[World]()
	g.exec.Query(ctx, fetchWorldSQL, []any{id}, func(res *db.Result, err error) {
		defer o11y.End(span, &err)

		var w World
		if err == nil {
			w, err = firstWorld(res)
		}
		complete(ctx, p, w, err)
	})
	return p.Future()
}

// UpdateWorld writes w.RandomNumber to the row with id w.ID and resolves with w unchanged.
// An update that touches no rows still succeeds.
func (g *Gateway) UpdateWorld(ctx context.Context, w World) *async.Future[World] {
	ctx, span := db.Span(ctx, "world", "update_world")
	span.AddField("id", w.ID)
	span.AddField("random_number", w.RandomNumber)

	p := async.NewPromise[World]()
	g.exec.Exec(ctx, updateWorldSQL, []any{w.RandomNumber, w.ID}, func(res *db.Result, err error) {
		defer o11y.End(span, &err)

		if err == nil {
			span.AddField("rows_affected", res.RowsAffected)
		}
		complete(ctx, p, w, err)
	})
	return p.Future()
}

// FindAndUpdateWorld fetches the world, sets its random number and writes it back. The
// update is only sent once the fetch has succeeded; a failed fetch fails the result with
// the fetch's error and nothing is written.
func (g *Gateway) FindAndUpdateWorld(ctx context.Context, id, randomNumber int32) *async.Future[World] {
	ctx, span := o11y.StartSpan(ctx, "gateway: find_and_update_world")
	span.AddField("id", id)
	span.AddField("random_number", randomNumber)

	f := async.Then(g.FetchWorld(ctx, id), func(w World) *async.Future[World] {
		w.RandomNumber = randomNumber
		return g.UpdateWorld(ctx, w)
	})
	f.OnComplete(func(_ World, err error) {
		o11y.End(span, &err)
	})
	return f
}

// StreamFortunes reads the whole fortune table. The rows arrive from the executor all at
// once and are pushed into the stream without waiting for the consumer. Each call runs a
// fresh query.
func (g *Gateway) StreamFortunes(ctx context.Context) *async.Stream[Fortune] {
	ctx, span := db.Span(ctx, "fortune", "stream_fortunes")

	s := async.NewStream[Fortune]()
	g.exec.Query(ctx, fortunesSQL, nil, func(res *db.Result, err error) {
		defer o11y.End(span, &err)

		if err != nil {
			signal(ctx, s.Fail(err))
			return
		}
		span.AddField("rows", res.Len())
		for _, row := range res.Rows {
			var f Fortune
			f, err = decodeFortune(row)
			if err != nil {
				signal(ctx, s.Fail(err))
				return
			}
			signal(ctx, s.Emit(f))
		}
		signal(ctx, s.Complete())
	})
	return s
}

// complete hands the outcome to p. A second completion means the executor called back
// twice; the first outcome stands and the second is logged.
func complete[T any](ctx context.Context, p *async.Promise[T], v T, err error) {
	signal(ctx, p.Complete(v, err))
}

func signal(ctx context.Context, err error) {
	if err != nil {
		o11y.LogError(ctx, "gateway: completion rejected", err)
	}
}
