// Package api serves the benchmark test types that read and write through the world
// gateway.
package api

import (
	"context"
	"html/template"
	"math/rand/v2"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/benchbase/worldgate/async"
	"github.com/benchbase/worldgate/httpserver/ginrouter"
	"github.com/benchbase/worldgate/world"
)

// Store is the part of *world.Gateway the handlers use.
type Store interface {
	FetchWorld(ctx context.Context, id int32) *async.Future[world.World]
	FindAndUpdateWorld(ctx context.Context, id, randomNumber int32) *async.Future[world.World]
	StreamFortunes(ctx context.Context) *async.Stream[world.Fortune]
}

type Options struct {
	Store Store

	// Random returns a number in [1, 10000], used both for world ids and new random
	// numbers. Defaults to math/rand/v2.
	Random func() int32
}

type API struct {
	router *gin.Engine
	store  Store
	random func() int32
}

func New(ctx context.Context, opts Options) *API {
	r := ginrouter.Default(ctx, "api")
	r.SetHTMLTemplate(template.Must(template.New("fortunes").Parse(fortunesTemplate)))

	a := &API{
		router: r,
		store:  opts.Store,
		random: opts.Random,
	}
	if a.random == nil {
		a.random = randomWorldNumber
	}

	r.GET("/db", a.getDB)
	r.GET("/queries", a.getQueries)
	r.GET("/updates", a.getUpdates)
	r.GET("/fortunes", a.getFortunes)

	return a
}

func (a *API) Handler() http.Handler {
	return a.router
}

const worldRows = 10000

func randomWorldNumber() int32 {
	return rand.Int32N(worldRows) + 1
}
