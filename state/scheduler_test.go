package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestEnv(buf int) (*Env, chan func(*State) error, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	dispatchChan := make(chan func(*State) error, buf)
	env := &Env{
		DispatchChannel: dispatchChan,
		Context:         ctx,
		Cancel: func(err error) {
			cancel()
		},
	}
	return env, dispatchChan, cancel
}

func TestDispatch(t *testing.T) {
	env, dispatchChan, cancel := newTestEnv(10)
	defer cancel()
	state := &State{Env: env}

	var called bool

	assert.NoError(t, env.Dispatch(func(s *State) error {
		called = true
		return nil
	}))

	select {
	case f := <-dispatchChan:
		if err := f(state); err != nil {
			t.Errorf("Dispatch error: %v", err)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timed out waiting for dispatched function")
	}

	if !called {
		t.Fatal("Dispatch function was not executed")
	}
}

func TestDispatch_Stopped(t *testing.T) {
	env, _, cancel := newTestEnv(0)
	cancel()
	err := env.Dispatch(func(s *State) error { return nil })
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestDispatchWait(t *testing.T) {
	env, dispatchChan, cancel := newTestEnv(0)
	defer cancel()
	state := &State{Env: env}

	go func() {
		f := <-dispatchChan
		if err := f(state); err != nil {
			t.Errorf("DispatchWait task must not fail the loop: %v", err)
		}
		f = <-dispatchChan
		if err := f(state); err != nil {
			t.Errorf("DispatchWait task must not fail the loop: %v", err)
		}
	}()

	res, err := DispatchWait(context.Background(), env, func(s *State) (int, error) {
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, res)

	_, err = DispatchWait(context.Background(), env, func(s *State) (int, error) {
		return 0, ErrNotFound
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDispatchWait_Stopped(t *testing.T) {
	env, _, cancel := newTestEnv(0)
	cancel()
	_, err := DispatchWait(context.Background(), env, func(s *State) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestDispatchWait_CallerDeadline(t *testing.T) {
	env, _, cancel := newTestEnv(0)
	defer cancel()
	ctx, cancelCall := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelCall()
	// nobody drains the dispatch channel
	_, err := DispatchWait(ctx, env, func(s *State) (int, error) {
		return 1, nil
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
