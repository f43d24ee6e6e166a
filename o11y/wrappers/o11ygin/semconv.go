package o11ygin

import (
	"net"
	"net/http"
	"strconv"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/benchbase/worldgate/o11y"
)

func semconvServerRequest(span o11y.Span, r *http.Request, route, clientIP string) {
	host, port := hostPort(r.Host)

	span.AddRawField(string(semconv.HTTPRequestMethodKey), r.Method)
	span.AddRawField(string(semconv.HTTPRouteKey), route)
	span.AddRawField(string(semconv.URLPathKey), r.URL.Path)
	span.AddRawField(string(semconv.ServerAddressKey), host)
	if port > 0 {
		span.AddRawField(string(semconv.ServerPortKey), port)
	}
	if r.URL.RawQuery != "" {
		span.AddRawField(string(semconv.URLQueryKey), r.URL.RawQuery)
	}
	if clientIP != "" {
		span.AddRawField(string(semconv.ClientAddressKey), clientIP)
	}
	if ua := r.UserAgent(); ua != "" {
		span.AddRawField(string(semconv.UserAgentOriginalKey), ua)
	}
}

func semconvServerResponse(span o11y.Span, status, size int) {
	span.AddRawField(string(semconv.HTTPResponseStatusCodeKey), status)
	span.AddRawField("http.response.body.size", size)
}

func hostPort(hostport string) (string, int) {
	host, p, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, 0
	}
	port, _ := strconv.Atoi(p)
	return host, port
}
