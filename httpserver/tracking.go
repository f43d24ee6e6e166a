package httpserver

import (
	"context"
	"net"
	"net/url"
	"sync"
)

// trackedListener counts accepted and open connections, per remote host, so the gauges
// show how evenly clients spread their connections.
type trackedListener struct {
	net.Listener

	mu         sync.RWMutex
	name       string
	accepted   int
	activeConn int
	remotes    map[string]int
}

func (l *trackedListener) Accept() (net.Conn, error) {
	con, err := l.Listener.Accept()
	if err != nil {
		return con, err
	}
	tracked := &trackedConnection{l: l, Conn: con}
	l.track(tracked, 1)
	return tracked, nil
}

func (l *trackedListener) MetricName() string {
	return l.name + "-listener"
}

func (l *trackedListener) Gauges(_ context.Context) map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var maxPer, minPer int
	if l.activeConn > 0 {
		minPer = l.activeConn
		for _, c := range l.remotes {
			maxPer = max(maxPer, c)
			minPer = min(minPer, c)
		}
	}
	return map[string]float64{
		"number_of_remotes":          float64(len(l.remotes)),
		"total_connections":          float64(l.accepted),
		"active_connections":         float64(l.activeConn),
		"max_connections_per_remote": float64(maxPer),
		"min_connections_per_remote": float64(minPer),
	}
}

func (l *trackedListener) track(c net.Conn, delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remotes == nil {
		l.remotes = make(map[string]int)
	}
	// the remote host (probably an ip) without the port
	host := (&url.URL{Host: c.RemoteAddr().String()}).Hostname()
	if delta > 0 {
		l.accepted++
	}
	l.activeConn += delta
	l.remotes[host] += delta
	if l.remotes[host] <= 0 {
		delete(l.remotes, host)
	}
}

type trackedConnection struct {
	net.Conn

	once sync.Once
	l    *trackedListener
}

// Close untracks the connection once, however many times it is called.
func (c *trackedConnection) Close() error {
	c.once.Do(func() {
		c.l.track(c, -1)
	})
	return c.Conn.Close()
}
