package async

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrAlreadyCompleted = errors.New("async: already completed")
	ErrNilRejection     = errors.New("async: rejected with a nil error")
)

// Future is the read side of a one-shot result.
type Future[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	completed bool
	val       T
	err       error
	listeners []func(T, error)
}

// Promise is the write side of a Future.
type Promise[T any] struct {
	f *Future[T]
}

func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{f: &Future[T]{done: make(chan struct{})}}
}

func (p *Promise[T]) Future() *Future[T] {
	return p.f
}

func (p *Promise[T]) Resolve(v T) error {
	return p.f.complete(v, nil)
}

// Reject fails the future with err, which must not be nil.
func (p *Promise[T]) Reject(err error) error {
	if err == nil {
		return ErrNilRejection
	}
	var zero T
	return p.f.complete(zero, err)
}

// Complete resolves with v when err is nil and rejects with err otherwise. It matches the
// shape of a driver completion callback so it can be handed over directly.
func (p *Promise[T]) Complete(v T, err error) error {
	if err != nil {
		var zero T
		v = zero
	}
	return p.f.complete(v, err)
}

// Resolved returns a future that has already succeeded with v.
func Resolved[T any](v T) *Future[T] {
	p := NewPromise[T]()
	_ = p.Resolve(v)
	return p.Future()
}

// Failed returns a future that has already failed with err.
func Failed[T any](err error) *Future[T] {
	p := NewPromise[T]()
	if p.Reject(err) != nil {
		_ = p.Reject(ErrNilRejection)
	}
	return p.Future()
}

func (f *Future[T]) complete(v T, err error) error {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return ErrAlreadyCompleted
	}
	f.completed = true
	f.val, f.err = v, err
	listeners := f.listeners
	f.listeners = nil
	close(f.done)
	f.mu.Unlock()

	for _, l := range listeners {
		l(v, err)
	}
	return nil
}

// Done is closed once the future has an outcome.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the future has an outcome, without waiting.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future completes or ctx ends. A ctx error does not change the
// outcome of the future, a later Await still sees it.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete registers fn to run with the outcome. If the future is already complete fn runs
// immediately on the calling goroutine, otherwise it runs on the goroutine that completes it.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.completed {
		f.listeners = append(f.listeners, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.val, f.err
	f.mu.Unlock()
	fn(v, err)
}

// Then chains fn after f. fn only runs if f succeeds, and its future's outcome becomes the
// outcome of the returned future. A failure of f is passed through untouched.
func Then[A, B any](f *Future[A], fn func(A) *Future[B]) *Future[B] {
	p := NewPromise[B]()
	f.OnComplete(func(a A, err error) {
		if err != nil {
			_ = p.Reject(err)
			return
		}
		fn(a).OnComplete(func(b B, err error) {
			_ = p.Complete(b, err)
		})
	})
	return p.Future()
}

// Map transforms the value of a successful future.
func Map[A, B any](f *Future[A], fn func(A) B) *Future[B] {
	return Then(f, func(a A) *Future[B] {
		return Resolved(fn(a))
	})
}
