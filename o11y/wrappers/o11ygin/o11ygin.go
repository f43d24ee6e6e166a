// Package o11ygin instruments gin routers: a span and a timing metric per request,
// panic recovery and client cancellation.
package o11ygin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/benchbase/worldgate/o11y"
)

const contextCancelledKey = "o11y-context-cancelled-key"

// Middleware starts a span for every request, continuing any W3C trace context the caller
// sent, and emits a "handler" timing when the request completes.
func Middleware(provider o11y.Provider, serverName string) gin.HandlerFunc {
	m := provider.MetricsProvider()
	return func(c *gin.Context) {
		before := time.Now()

		route := c.FullPath()
		if route == "" {
			route = "not-found"
		}

		ctx := o11y.WithProvider(c.Request.Context(), provider)
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(c.Request.Header))
		ctx, span := provider.StartSpan(ctx, fmt.Sprintf("%s %s", c.Request.Method, route))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Route", route)

		for _, param := range c.Params {
			span.AddRawField("handler.vars."+param.Key, param.Value)
		}

		span.AddRawField("meta.type", "http_server")
		span.AddRawField("http.server_name", serverName)
		semconvServerRequest(span, c.Request, route, c.ClientIP())

		defer func() {
			status := c.Writer.Status()
			if c.GetBool(contextCancelledKey) {
				status = 499
			}
			semconvServerResponse(span, status, c.Writer.Size())
			if status >= http.StatusInternalServerError {
				span.AddRawField("result", "error")
			}

			_ = m.TimeInMilliseconds("handler",
				float64(time.Since(before).Nanoseconds())/1000000.0,
				[]string{
					"http.server_name:" + serverName,
					"http.method:" + c.Request.Method,
					"http.route:" + route,
					"http.status_code:" + strconv.Itoa(status),
				},
				1,
			)
		}()

		c.Next()
	}
}

// ClientCancelled is a gin middleware that will trap a request context cancellation
// and record a 499 (a.la. nginx).
// If the response has already been written to, for example setting a status code, then
// that code will be honoured.
func ClientCancelled() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		defer func() {
			if errors.Is(ctx.Err(), context.Canceled) {
				c.Set(contextCancelledKey, true)
				if !c.Writer.Written() {
					c.Status(499)
				}
				return
			}
			// rendering errors do not reach the handler, so note them on the span
			if len(c.Errors) > 0 {
				o11y.AddField(ctx, "gin_internal_error", c.Errors.String())
			}
		}()
		c.Next()
	}
}

// Recovery turns a handler panic into a 500 and records it on the request span.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err interface{}) {
		c.AbortWithStatus(http.StatusInternalServerError)
		ctx := c.Request.Context()
		span := o11y.FromContext(ctx).GetSpan(ctx)
		if span == nil {
			return
		}

		// Most likely caused by one side of the proxy disappearing. Not really a panic
		// https://github.com/golang/go/issues/28239
		if origErr, ok := err.(error); ok && errors.Is(origErr, http.ErrAbortHandler) {
			o11y.AddResultToSpan(span, origErr)
			return
		}

		_ = o11y.HandlePanic(ctx, span, err)
	})
}
