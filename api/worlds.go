package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/benchbase/worldgate/async"
	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/world"
)

const maxQueries = 500

func (a *API) getDB(c *gin.Context) {
	ctx := c.Request.Context()

	w, err := a.store.FetchWorld(ctx, a.random()).Await(ctx)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, w)
}

func (a *API) getQueries(c *gin.Context) {
	ctx := c.Request.Context()
	n := queryCount(c.Query("queries"))
	o11y.AddField(ctx, "queries", n)

	futures := make([]*async.Future[world.World], n)
	for i := range futures {
		futures[i] = a.store.FetchWorld(ctx, a.random())
	}

	worlds, err := awaitAll(ctx, futures)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, worlds)
}

func (a *API) getUpdates(c *gin.Context) {
	ctx := c.Request.Context()
	n := queryCount(c.Query("queries"))
	o11y.AddField(ctx, "queries", n)

	futures := make([]*async.Future[world.World], n)
	for i := range futures {
		id := a.random()
		futures[i] = a.store.FindAndUpdateWorld(ctx, id, a.random())
	}

	worlds, err := awaitAll(ctx, futures)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, worlds)
}

// queryCount parses the queries parameter. Anything unparseable or below 1 counts as 1
// and anything above maxQueries as maxQueries.
func queryCount(s string) int {
	n, err := strconv.Atoi(s)
	switch {
	case err != nil, n < 1:
		return 1
	case n > maxQueries:
		return maxQueries
	}
	return n
}

// awaitAll waits for every future and returns the values in the order given. The first
// failure is returned.
func awaitAll[T any](ctx context.Context, futures []*async.Future[T]) ([]T, error) {
	vs := make([]T, len(futures))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range futures {
		g.Go(func() (err error) {
			vs[i], err = f.Await(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vs, nil
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, world.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{})
		return
	}
	o11y.LogError(c.Request.Context(), "api: request failed", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{})
}
