// Package fakestatsd is a UDP statsd server for tests that decodes the DogStatsD lines it
// receives.
package fakestatsd

import (
	"bytes"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
)

type Metric struct {
	Name  string
	Value string
	// Type is the statsd type, such as c, g or ms.
	Type string
	Rate float64
	Tags []string
}

type FakeStatsd struct {
	conn *net.UDPConn
	done chan struct{}

	mu      sync.RWMutex
	metrics []Metric
}

// New listens on a random localhost port until the test ends.
func New(t testing.TB) *FakeStatsd {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	assert.Assert(t, err)

	s := &FakeStatsd{conn: conn, done: make(chan struct{})}
	go s.listen()
	t.Cleanup(func() {
		_ = s.conn.Close()
		<-s.done
	})
	return s
}

func (s *FakeStatsd) Addr() string {
	return s.conn.LocalAddr().String()
}

func (s *FakeStatsd) Metrics() []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Metric(nil), s.metrics...)
}

// Named returns the received metrics with the given name, namespace included.
func (s *FakeStatsd) Named(name string) []Metric {
	var ms []Metric
	for _, m := range s.Metrics() {
		if m.Name == name {
			ms = append(ms, m)
		}
	}
	return ms
}

func (s *FakeStatsd) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = nil
}

func (s *FakeStatsd) listen() {
	defer close(s.done)

	buf := make([]byte, 65535)
	for {
		n, err := s.conn.Read(buf)
		if errors.Is(err, net.ErrClosed) {
			return
		}
		for _, line := range bytes.Split(buf[:n], []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			if m, ok := parse(string(line)); ok {
				s.mu.Lock()
				s.metrics = append(s.metrics, m)
				s.mu.Unlock()
			}
		}
	}
}

// parse decodes name:value|type[|@rate][|#tag,...]. Unknown sections are ignored.
func parse(line string) (Metric, bool) {
	name, rest, ok := strings.Cut(line, ":")
	if !ok {
		return Metric{}, false
	}
	parts := strings.Split(rest, "|")
	if len(parts) < 2 {
		return Metric{}, false
	}

	m := Metric{Name: name, Value: parts[0], Type: parts[1], Rate: 1}
	for _, p := range parts[2:] {
		switch {
		case strings.HasPrefix(p, "@"):
			if r, err := strconv.ParseFloat(p[1:], 64); err == nil {
				m.Rate = r
			}
		case strings.HasPrefix(p, "#"):
			m.Tags = strings.Split(p[1:], ",")
		}
	}
	return m, true
}
