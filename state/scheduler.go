package state

import (
	"context"
	"fmt"
)

type result[T any] struct {
	val T
	err error
}

// Dispatch Dispatches the function to run on the broker goroutine without waiting for it to complete.
// An error returned by fun stops the broker.
func (e *Env) Dispatch(fun func(*State) error) error {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	select {
	case e.DispatchChannel <- fun:
		return nil
	case <-e.Context.Done():
		return ErrChannelClosed
	}
}

// DispatchWait Dispatches the function to run on the broker goroutine and waits for its result.
// The error returned by fun is handed to the caller and does not stop the broker.
func DispatchWait[T any](ctx context.Context, e *Env, fun func(*State) (T, error)) (T, error) {
	var zero T
	ret := make(chan result[T], 1)
	task := func(s *State) error {
		res, err := fun(s)
		ret <- result[T]{res, err}
		return nil
	}
	select {
	case e.DispatchChannel <- task:
	case <-e.Context.Done():
		return zero, ErrChannelClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case res := <-ret:
		return res.val, res.err
	case <-e.Context.Done():
		// the task may have completed right before the loop stopped
		select {
		case res := <-ret:
			return res.val, res.err
		default:
			return zero, ErrChannelClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
