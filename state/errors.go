package state

import "errors"

var (
	ErrSelfAttach       = errors.New("cannot attach to self")
	ErrAlreadyNeighbour = errors.New("already a neighbour")
	ErrNoFreeSlot       = errors.New("no free neighbour slot")
	ErrInvalidWeight    = errors.New("link weight must not be negative")
	ErrNoSuchSlot       = errors.New("no neighbour attached at slot")
	ErrNotStarted       = errors.New("router has not been started")
	ErrUnreachable      = errors.New("destination unreachable")
)
