package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/world"
)

const fortunesTemplate = `<!DOCTYPE html>
<html>
<head><title>Fortunes</title></head>
<body>
<table>
<tr><th>id</th><th>message</th></tr>
{{range .}}<tr><td>{{.ID}}</td><td>{{.Message}}</td></tr>
{{end}}</table>
</body>
</html>`

var requestTimeFortune = world.Fortune{
	ID:      0,
	Message: "Additional fortune added at request time.",
}

func (a *API) getFortunes(c *gin.Context) {
	ctx := c.Request.Context()

	fortunes, err := a.store.StreamFortunes(ctx).Collect(ctx)
	if err != nil {
		abort(c, err)
		return
	}
	o11y.AddField(ctx, "fortunes", len(fortunes))

	fortunes = append(fortunes, requestTimeFortune)
	slices.SortFunc(fortunes, func(x, y world.Fortune) int {
		return strings.Compare(x.Message, y.Message)
	})

	c.HTML(http.StatusOK, "fortunes", fortunes)
}
