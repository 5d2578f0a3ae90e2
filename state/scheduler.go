package state

import (
	"fmt"
)

// Dispatch Dispatches the function to run on the main thread without waiting for it to complete
func (e *Env) Dispatch(fun func(*State) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	select {
	case e.DispatchChannel <- fun:
	case <-e.Context.Done():
	}
}

// DispatchWait Dispatches the function to run on the main thread and wait for it to complete.
// The error is handed back to the caller instead of the main loop.
func (e *Env) DispatchWait(fun func(*State) (any, error)) (any, error) {
	return Await(e, fun)
}

// Await runs fun on the main thread and returns its result
func Await[T any](e *Env, fun func(*State) (T, error)) (T, error) {
	var zero T
	ret := make(chan Pair[T, error], 1)
	select {
	case e.DispatchChannel <- func(s *State) error {
		res, err := fun(s)
		ret <- Pair[T, error]{res, err}
		return nil
	}:
	case <-e.Context.Done():
		return zero, stoppedErr(e)
	}
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-e.Context.Done():
		return zero, stoppedErr(e)
	}
}

func stoppedErr(e *Env) error {
	return fmt.Errorf("router stopped: %w", e.Context.Err())
}
