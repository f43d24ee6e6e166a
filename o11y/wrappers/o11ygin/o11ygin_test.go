package o11ygin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/o11y/otel"
	"github.com/benchbase/worldgate/testing/fakemetrics"
)

func newRouter(t *testing.T) (*gin.Engine, *tracetest.InMemoryExporter, *fakemetrics.Provider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := tracetest.NewInMemoryExporter()
	metrics := &fakemetrics.Provider{}
	p, err := otel.New(context.Background(), otel.Config{
		Writer:   &nopWriter{},
		Test:     true,
		Exporter: mem,
		Metrics:  metrics,
	})
	assert.NilError(t, err)
	t.Cleanup(func() { p.Close(context.Background()) })

	r := gin.New()
	r.Use(Middleware(p, "test-server"), Recovery(), ClientCancelled())
	return r, mem, metrics
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func attrs(s tracetest.SpanStub) map[string]any {
	m := map[string]any{}
	for _, a := range s.Attributes {
		m[string(a.Key)] = a.Value.AsInterface()
	}
	return m
}

func TestMiddleware(t *testing.T) {
	r, mem, metrics := newRouter(t)
	r.GET("/api/:id", func(c *gin.Context) {
		o11y.AddField(c.Request.Context(), "handled", true)
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/12?queries=3", nil)
	req.Header.Set("User-Agent", "wrk")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Check(t, cmp.Equal(w.Code, http.StatusOK))
	assert.Check(t, cmp.Equal(w.Header().Get("X-Route"), "/api/:id"))

	spans := mem.GetSpans()
	assert.Assert(t, cmp.Len(spans, 1))
	assert.Check(t, cmp.Equal(spans[0].Name, "GET /api/:id"))
	a := attrs(spans[0])
	assert.Check(t, cmp.Equal(a["handler.vars.id"], "12"))
	assert.Check(t, cmp.Equal(a["http.route"], "/api/:id"))
	assert.Check(t, cmp.Equal(a["http.response.status_code"], int64(200)))
	assert.Check(t, cmp.Equal(a["url.query"], "queries=3"))
	assert.Check(t, cmp.Equal(a["user_agent.original"], "wrk"))
	assert.Check(t, cmp.Equal(a["app.handled"], true))

	calls := metrics.Calls()
	assert.Assert(t, cmp.Len(calls, 1))
	assert.Check(t, cmp.Equal(calls[0].Name, "handler"))
	assert.Check(t, cmp.DeepEqual(calls[0].Tags, []string{
		"http.server_name:test-server",
		"http.method:GET",
		"http.route:/api/:id",
		"http.status_code:200",
	}))
}

func TestMiddleware_PropagatesTraceContext(t *testing.T) {
	r, mem, _ := newRouter(t)
	r.GET("/db", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/db", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := mem.GetSpans()
	assert.Assert(t, cmp.Len(spans, 1))
	assert.Check(t, cmp.Equal(spans[0].SpanContext.TraceID().String(), traceID))
}

func TestMiddleware_NotFound(t *testing.T) {
	r, mem, metrics := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Check(t, cmp.Equal(w.Code, http.StatusNotFound))

	spans := mem.GetSpans()
	assert.Assert(t, cmp.Len(spans, 1))
	assert.Check(t, cmp.Equal(spans[0].Name, "GET not-found"))
	assert.Check(t, cmp.Contains(metrics.Calls()[0].Tags, "http.status_code:404"))
}

func TestRecovery(t *testing.T) {
	r, mem, _ := newRouter(t)
	r.GET("/panic", func(c *gin.Context) {
		panic("oh dear")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Check(t, cmp.Equal(w.Code, http.StatusInternalServerError))

	spans := mem.GetSpans()
	assert.Assert(t, cmp.Len(spans, 1))
	a := attrs(spans[0])
	assert.Check(t, cmp.Equal(a["has_panicked"], "true"))
	assert.Check(t, cmp.Equal(a["panic"], "oh dear"))
}

func TestClientCancelled(t *testing.T) {
	r, mem, _ := newRouter(t)
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/slow", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	spans := mem.GetSpans()
	assert.Assert(t, cmp.Len(spans, 1))
	assert.Check(t, cmp.Equal(attrs(spans[0])["http.response.status_code"], int64(499)))
}
