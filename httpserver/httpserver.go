package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/recontext"
	"github.com/benchbase/worldgate/system"
)

type HTTPServer struct {
	name            string
	listener        *trackedListener
	server          *http.Server
	shutdownTimeout time.Duration
}

type Config struct {
	// Name is the name of the server in o11y
	Name string
	// Addr is the address to listen on
	Addr string
	// Handler is the  HTTP handler to delegate requests to.
	Handler http.Handler

	// Optional
	// Network must be "tcp", "tcp4", "tcp6", "unix", "unixpacket" or "" (which defaults to tcp).
	Network string
	// ShutdownTimeout bounds how long in-flight requests get to finish. Defaults to 10s.
	ShutdownTimeout time.Duration
}

// New listens on the configured address straight away, so a port of zero can be resolved
// with Addr before Serve is called.
func New(ctx context.Context, cfg Config) (s *HTTPServer, err error) {
	_, span := o11y.StartSpan(ctx, "httpserver: new_server")
	defer o11y.End(span, &err)
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	span.AddField("server_name", cfg.Name)
	span.AddField("network", cfg.Network)

	ln, err := net.Listen(cfg.Network, cfg.Addr)
	if err != nil {
		return nil, err
	}
	span.AddField("address", ln.Addr().String())

	return &HTTPServer{
		name:            cfg.Name,
		listener:        &trackedListener{Listener: ln, name: cfg.Name},
		shutdownTimeout: cfg.ShutdownTimeout,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           cfg.Handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       55 * time.Second,
			WriteTimeout:      55 * time.Second,
			BaseContext: func(net.Listener) context.Context {
				// handlers get the o11y provider without the server's cancellation
				return o11y.WithProvider(context.Background(), o11y.FromContext(ctx))
			},
		},
	}, nil
}

// Serve the http server. On context cancellation the server is shutdown giving some time
// for the in flight requests to be handled.
func (s *HTTPServer) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		cctx, cancel := recontext.WithNewTimeout(ctx, s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(cctx); err != nil {
			return fmt.Errorf("%s server shutdown failed: %w", s.name, err)
		}
		o11y.Log(ctx, "httpserver: stopped", o11y.Field("server_name", s.name))
		return nil
	})

	g.Go(func() error {
		o11y.Log(ctx, "httpserver: serving",
			o11y.Field("server_name", s.name),
			o11y.Field("address", s.Addr()),
		)
		err := s.server.Serve(s.listener)
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}

// MetricsProducer reports connection gauges for the server's listener.
func (s *HTTPServer) MetricsProducer() system.MetricProducer {
	return s.listener
}

func (s *HTTPServer) Addr() string {
	return s.listener.Addr().String()
}
