package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T) (*Env, <-chan func(*State) error, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(context.Background())
	t.Cleanup(func() {
		cancel(context.Canceled)
	})
	dispatchChan := make(chan func(*State) error, 10)
	env := &Env{
		DispatchChannel: dispatchChan,
		Self:            testSelf,
		Context:         ctx,
		Cancel:          cancel,
	}
	return env, dispatchChan, cancel
}

// runLoop executes dispatched functions until the context ends.
func runLoop(s *State, dispatch <-chan func(*State) error) {
	for {
		select {
		case f := <-dispatch:
			_ = f(s)
		case <-s.Context.Done():
			return
		}
	}
}

func TestDispatch(t *testing.T) {
	env, dispatchChan, _ := testEnv(t)
	state := NewState(env)

	called := make(chan struct{})
	env.Dispatch(func(s *State) error {
		close(called)
		return nil
	})

	select {
	case f := <-dispatchChan:
		require.NoError(t, f(state))
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for dispatched function")
	}
	select {
	case <-called:
	default:
		t.Fatal("Dispatch function was not executed")
	}
}

func TestDispatchAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	env := &Env{
		DispatchChannel: make(chan func(*State) error),
		Context:         ctx,
		Cancel:          cancel,
	}
	cancel(context.Canceled)

	done := make(chan struct{})
	go func() {
		env.Dispatch(func(s *State) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a stopped router")
	}
}

func TestAwait(t *testing.T) {
	env, dispatchChan, _ := testEnv(t)
	state := NewState(env)
	go runLoop(state, dispatchChan)

	n, err := Await(env, func(s *State) (int, error) {
		return s.Db.Len(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	boom := errors.New("boom")
	_, err = env.DispatchWait(func(s *State) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, env.Context.Err(), "errors returned to a waiter must not stop the router")
}

func TestAwaitStopped(t *testing.T) {
	env, _, cancel := testEnv(t)
	cancel(context.Canceled)

	_, err := Await(env, func(s *State) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
