package async

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestStream_EmitThenDrain(t *testing.T) {
	ctx := context.Background()
	s := NewStream[int]()
	for i := 1; i <= 3; i++ {
		assert.NilError(t, s.Emit(i))
	}
	assert.NilError(t, s.Complete())
	assert.Check(t, cmp.Equal(s.Buffered(), 3))

	got, err := s.Collect(ctx)
	assert.NilError(t, err)
	assert.Check(t, cmp.DeepEqual(got, []int{1, 2, 3}))
	assert.Check(t, cmp.Equal(s.Buffered(), 0))

	_, err = s.Next(ctx)
	assert.Check(t, cmp.ErrorIs(err, io.EOF), "completion is reported every time once drained")
}

func TestStream_Empty(t *testing.T) {
	s := NewStream[string]()
	assert.NilError(t, s.Complete())

	got, err := s.Collect(context.Background())
	assert.NilError(t, err)
	assert.Check(t, cmp.Len(got, 0))
}

func TestStream_FailBeforeAnyElement(t *testing.T) {
	cause := errors.New("relation does not exist")
	s := FailedStream[int](cause)

	n := 0
	var errs []error
	for _, err := range s.All(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	assert.Check(t, cmp.Equal(n, 0))
	assert.Assert(t, cmp.Len(errs, 1))
	assert.Check(t, cmp.ErrorIs(errs[0], cause))
}

func TestStream_FailAfterElements(t *testing.T) {
	cause := errors.New("decode")
	s := NewStream[int]()
	assert.NilError(t, s.Emit(1))
	assert.NilError(t, s.Fail(cause))

	got, err := s.Collect(context.Background())
	assert.Check(t, cmp.ErrorIs(err, cause))
	assert.Check(t, cmp.DeepEqual(got, []int{1}))
}

func TestStream_TerminalIsFinal(t *testing.T) {
	s := NewStream[int]()
	assert.NilError(t, s.Complete())

	assert.Check(t, cmp.ErrorIs(s.Emit(1), ErrAlreadyCompleted))
	assert.Check(t, cmp.ErrorIs(s.Complete(), ErrAlreadyCompleted))
	assert.Check(t, cmp.ErrorIs(s.Fail(errors.New("late")), ErrAlreadyCompleted))
	assert.Check(t, cmp.ErrorIs(s.Fail(nil), ErrNilRejection))

	_, err := s.Next(context.Background())
	assert.Check(t, cmp.ErrorIs(err, io.EOF))
}

func TestStream_ConsumerWaitsForProducer(t *testing.T) {
	ctx := context.Background()
	s := NewStream[int]()

	go func() {
		for i := 0; i < 100; i++ {
			_ = s.Emit(i)
		}
		_ = s.Complete()
	}()

	got, err := s.Collect(ctx)
	assert.NilError(t, err)
	assert.Assert(t, cmp.Len(got, 100))
	for i, v := range got {
		assert.Check(t, cmp.Equal(v, i), "order must be preserved")
	}
}

func TestStream_SlowConsumerDoesNotBlockProducer(t *testing.T) {
	s := NewStream[int]()
	produced := make(chan struct{})
	go func() {
		defer close(produced)
		for i := 0; i < 10_000; i++ {
			_ = s.Emit(i)
		}
		_ = s.Complete()
	}()

	select {
	case <-produced:
	case <-time.After(5 * time.Second):
		t.Fatal("producer blocked without a consumer")
	}
	assert.Check(t, cmp.Equal(s.Buffered(), 10_000))
}

func TestStream_NextContextDone(t *testing.T) {
	s := NewStream[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Next(ctx)
	assert.Check(t, cmp.ErrorIs(err, context.DeadlineExceeded))

	assert.NilError(t, s.Emit(8))
	v, err := s.Next(context.Background())
	assert.NilError(t, err)
	assert.Check(t, cmp.Equal(v, 8))
}

func TestStream_AllStopsEarly(t *testing.T) {
	s := NewStream[int]()
	for i := 0; i < 5; i++ {
		assert.NilError(t, s.Emit(i))
	}
	assert.NilError(t, s.Complete())

	for v, err := range s.All(context.Background()) {
		assert.NilError(t, err)
		if v == 1 {
			break
		}
	}
	assert.Check(t, cmp.Equal(s.Buffered(), 3))
}
