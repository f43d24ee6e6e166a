package async

import (
	"context"
	"io"
	"iter"
	"sync"
)

type streamState int

const (
	streamOpen streamState = iota
	streamCompleted
	streamFailed
)

// Stream is a finite, buffered sequence. Emit never blocks; the consumer drains the buffer
// at its own pace with Next. Once a terminal signal has been given and the buffer is empty,
// Next returns io.EOF after a completion or the failure cause after a failure.
type Stream[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int
	state streamState
	err   error
	// wake is created by a waiting consumer and closed by the producer on the next change
	wake chan struct{}
}

func NewStream[T any]() *Stream[T] {
	return &Stream[T]{}
}

// FailedStream returns a stream that ends with err before emitting anything.
func FailedStream[T any](err error) *Stream[T] {
	s := NewStream[T]()
	_ = s.Fail(err)
	return s
}

// Emit appends v to the buffer.
func (s *Stream[T]) Emit(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != streamOpen {
		return ErrAlreadyCompleted
	}
	s.buf = append(s.buf, v)
	s.signal()
	return nil
}

// Complete marks the normal end of the stream.
func (s *Stream[T]) Complete() error {
	return s.finish(streamCompleted, nil)
}

// Fail ends the stream with err, which must not be nil. Elements emitted before the
// failure are still delivered ahead of it.
func (s *Stream[T]) Fail(err error) error {
	if err == nil {
		return ErrNilRejection
	}
	return s.finish(streamFailed, err)
}

func (s *Stream[T]) finish(state streamState, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != streamOpen {
		return ErrAlreadyCompleted
	}
	s.state = state
	s.err = err
	s.signal()
	return nil
}

// signal must be called with mu held
func (s *Stream[T]) signal() {
	if s.wake != nil {
		close(s.wake)
		s.wake = nil
	}
}

// Buffered returns the number of elements emitted but not yet read.
func (s *Stream[T]) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf) - s.head
}

// Next returns the next element, waiting for one if the buffer is empty.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		s.mu.Lock()
		if s.head < len(s.buf) {
			v := s.buf[s.head]
			s.buf[s.head] = zero
			s.head++
			if s.head == len(s.buf) {
				s.buf = s.buf[:0]
				s.head = 0
			}
			s.mu.Unlock()
			return v, nil
		}
		switch s.state {
		case streamCompleted:
			s.mu.Unlock()
			return zero, io.EOF
		case streamFailed:
			err := s.err
			s.mu.Unlock()
			return zero, err
		}
		if s.wake == nil {
			s.wake = make(chan struct{})
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// All ranges over the remaining elements. Iteration stops after the first non-nil error,
// which is yielded with the zero value. Normal completion yields no error.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := s.Next(ctx)
			// nolint: errorlint // a failure wrapping io.EOF must still be yielded
			if err == io.EOF {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains the stream. On failure it returns the elements read so far and the cause.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for v, err := range s.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
