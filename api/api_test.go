package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/benchbase/worldgate/testing/fakedb"
	"github.com/benchbase/worldgate/testing/testcontext"
	"github.com/benchbase/worldgate/world"
)

type fixture struct {
	DB     *fakedb.DB
	random atomic.Int32
	api    *API
}

// startAPI seeds worlds 1..1000 with random number 10*id. Random hands out 1, 2, 3...
func startAPI(t testing.TB) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fix := &fixture{DB: fakedb.New()}
	for id := int32(1); id <= 1000; id++ {
		fix.DB.AddWorld(id, 10*id)
	}
	fix.api = New(testcontext.Background(), Options{
		Store:  world.New(fix.DB),
		Random: func() int32 { return fix.random.Add(1) },
	})
	return fix
}

func (f *fixture) Get(t testing.TB, path string, v any) (statusCode int) {
	t.Helper()

	w := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	if v != nil {
		assert.Assert(t, json.NewDecoder(w.Body).Decode(v))
	}
	return w.Code
}

func (f *fixture) GetBody(t testing.TB, path string) (body string, statusCode int) {
	t.Helper()

	w := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	b, err := io.ReadAll(w.Body)
	assert.Assert(t, err)
	return string(b), w.Code
}

func TestAPI_getDB(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		fix := startAPI(t)

		m := map[string]any{}
		status := fix.Get(t, "/db", &m)
		assert.Check(t, cmp.Equal(status, http.StatusOK))
		assert.Check(t, cmp.DeepEqual(m, map[string]any{
			"id":           float64(1),
			"randomNumber": float64(10),
		}))
	})

	t.Run("Not found", func(t *testing.T) {
		fix := startAPI(t)
		fix.random.Store(5000)

		status := fix.Get(t, "/db", nil)
		assert.Check(t, cmp.Equal(status, http.StatusNotFound))
	})

	t.Run("Database failure", func(t *testing.T) {
		fix := startAPI(t)
		fix.DB.Fail("SELECT", errors.New("connection reset"))

		status := fix.Get(t, "/db", nil)
		assert.Check(t, cmp.Equal(status, http.StatusInternalServerError))
	})
}

func TestAPI_getQueries(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{query: "", want: 1},
		{query: "?queries=", want: 1},
		{query: "?queries=foo", want: 1},
		{query: "?queries=0", want: 1},
		{query: "?queries=-3", want: 1},
		{query: "?queries=1", want: 1},
		{query: "?queries=20", want: 20},
		{query: "?queries=500", want: 500},
		{query: "?queries=501", want: 500},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			fix := startAPI(t)

			var worlds []world.World
			status := fix.Get(t, "/queries"+tt.query, &worlds)
			assert.Check(t, cmp.Equal(status, http.StatusOK))
			assert.Assert(t, cmp.Len(worlds, tt.want))
			for i, w := range worlds {
				assert.Check(t, cmp.Equal(w.ID, int32(i+1)))
				assert.Check(t, cmp.Equal(w.RandomNumber, 10*w.ID))
			}
		})
	}

	t.Run("One missing world fails the request", func(t *testing.T) {
		fix := startAPI(t)
		fix.random.Store(995)

		status := fix.Get(t, "/queries?queries=10", nil)
		assert.Check(t, cmp.Equal(status, http.StatusNotFound))
	})
}

func TestAPI_getUpdates(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		fix := startAPI(t)

		var worlds []world.World
		status := fix.Get(t, "/updates?queries=3", &worlds)
		assert.Check(t, cmp.Equal(status, http.StatusOK))
		assert.Check(t, cmp.DeepEqual(worlds, []world.World{
			{ID: 1, RandomNumber: 2},
			{ID: 3, RandomNumber: 4},
			{ID: 5, RandomNumber: 6},
		}))

		fix.DB.Wait()
		for _, w := range worlds {
			n, ok := fix.DB.RandomNumber(w.ID)
			assert.Check(t, ok)
			assert.Check(t, cmp.Equal(n, w.RandomNumber))
		}
	})

	t.Run("Update failure", func(t *testing.T) {
		fix := startAPI(t)
		fix.DB.Fail("UPDATE", errors.New("deadlock detected"))

		status := fix.Get(t, "/updates?queries=2", nil)
		assert.Check(t, cmp.Equal(status, http.StatusInternalServerError))
	})
}

func TestAPI_getFortunes(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		fix := startAPI(t)
		fix.DB.AddFortune(1, "fortune: No such file or directory")
		fix.DB.AddFortune(2, "A computer scientist is someone who fixes things that aren't broken.")
		fix.DB.AddFortune(3, `<script>alert("This should not be displayed in a browser alert box.");</script>`)

		body, status := fix.GetBody(t, "/fortunes")
		assert.Check(t, cmp.Equal(status, http.StatusOK))

		rows := []string{
			`<tr><td>3</td><td>&lt;script&gt;alert(&#34;This should not be displayed in a browser alert box.&#34;);&lt;/script&gt;</td></tr>`,
			`<tr><td>2</td><td>A computer scientist is someone who fixes things that aren&#39;t broken.</td></tr>`,
			`<tr><td>0</td><td>Additional fortune added at request time.</td></tr>`,
			`<tr><td>1</td><td>fortune: No such file or directory</td></tr>`,
		}
		last := -1
		for _, row := range rows {
			i := strings.Index(body, row)
			assert.Check(t, i > last, "row %q out of order or missing in:\n%s", row, body)
			last = i
		}
	})

	t.Run("Empty table", func(t *testing.T) {
		fix := startAPI(t)

		body, status := fix.GetBody(t, "/fortunes")
		assert.Check(t, cmp.Equal(status, http.StatusOK))
		assert.Check(t, cmp.Equal(strings.Count(body, "<tr><td>"), 1))
		assert.Check(t, cmp.Contains(body, "Additional fortune added at request time."))
	})

	t.Run("Database failure", func(t *testing.T) {
		fix := startAPI(t)
		fix.DB.Fail("SELECT * FROM fortune", errors.New("relation does not exist"))

		status := fix.Get(t, "/fortunes", nil)
		assert.Check(t, cmp.Equal(status, http.StatusInternalServerError))
	})
}

func TestQueryCount(t *testing.T) {
	assert.Check(t, cmp.Equal(queryCount("7"), 7))
	assert.Check(t, cmp.Equal(queryCount(" 7"), 1))
	assert.Check(t, cmp.Equal(queryCount("1000000000000000000000"), 1))
}

func TestRandomWorldNumber(t *testing.T) {
	for range 10_000 {
		n := randomWorldNumber()
		assert.Assert(t, n >= 1 && n <= worldRows, n)
	}
}
