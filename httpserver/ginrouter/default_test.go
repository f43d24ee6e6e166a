package ginrouter

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/o11y/otel"
	"github.com/benchbase/worldgate/testing/fakemetrics"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDefault(t *testing.T) {
	b := &syncBuffer{}
	metrics := &fakemetrics.Provider{}

	p, err := otel.New(context.Background(), otel.Config{
		Metrics: metrics,
		Writer:  b,
		Test:    true,
	})
	assert.NilError(t, err)
	ctx := o11y.WithProvider(context.Background(), p)
	t.Cleanup(func() { p.Close(ctx) })

	r := Default(ctx, "test-server")
	r.GET("/foo", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	t.Run("ok", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/foo", nil))
		assert.Check(t, cmp.Equal(w.Code, http.StatusOK))
		assert.Check(t, cmp.Contains(b.String(), "GET /foo"))
		assert.Check(t, cmp.Contains(b.String(), "http.server_name=test-server"))
	})

	t.Run("panic", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Check(t, cmp.Equal(w.Code, http.StatusInternalServerError))
		assert.Check(t, cmp.Contains(b.String(), "has_panicked=true"))
	})

	t.Run("metrics", func(t *testing.T) {
		assert.Check(t, cmp.Len(metrics.Named("handler"), 2))
	})

	assert.Check(t, cmp.Equal(gin.Mode(), gin.ReleaseMode))
}
