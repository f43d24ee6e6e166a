package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellofresh/health-go/v4"

	"github.com/benchbase/worldgate/httpserver/ginrouter"
	"github.com/benchbase/worldgate/system"
)

const checkTimeout = 5 * time.Second

type API struct {
	router *gin.Engine
}

func New(ctx context.Context, checked []system.HealthChecker) (*API, error) {
	r := ginrouter.Default(ctx, "admin")

	live, ready, err := newHealthHandlers(checked)
	if err != nil {
		return nil, fmt.Errorf("failed to create health checks: %w", err)
	}

	r.GET("/live", gin.WrapH(live.Handler()))
	r.GET("/ready", gin.WrapH(ready.Handler()))

	debug := r.Group("/debug/pprof")
	debug.GET("/", gin.WrapF(pprof.Index))
	debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	debug.GET("/profile", gin.WrapF(pprof.Profile))
	debug.GET("/symbol", gin.WrapF(pprof.Symbol))
	debug.GET("/trace", gin.WrapF(pprof.Trace))
	debug.GET("/:profile", func(c *gin.Context) {
		pprof.Handler(c.Param("profile")).ServeHTTP(c.Writer, c.Request)
	})

	return &API{router: r}, nil
}

func (a *API) Handler() http.Handler {
	return a.router
}

func newHealthHandlers(checked []system.HealthChecker) (live, ready *health.Health, err error) {
	if live, err = health.New(); err != nil {
		return nil, nil, err
	}
	if ready, err = health.New(); err != nil {
		return nil, nil, err
	}

	for _, c := range checked {
		name, readyCheck, liveCheck := c.HealthChecks()
		if err = register(ready, name, readyCheck); err != nil {
			return nil, nil, err
		}
		if err = register(live, name, liveCheck); err != nil {
			return nil, nil, err
		}
	}
	return live, ready, nil
}

func register(h *health.Health, name string, check func(context.Context) error) error {
	if check == nil {
		return nil
	}
	return h.Register(health.Config{
		Name:    name,
		Timeout: checkTimeout,
		Check:   check,
	})
}
