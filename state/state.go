package state

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// State access must be done only on a single Goroutine
type State struct {
	*Env
	Neighbours *NeighbourTable
	Db         *LinkStateDb
	Started    bool
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	LocalCfg
	// Self carries the port the listener is actually bound to.
	Self     RouterDesc
	Context  context.Context
	Cancel   context.CancelCauseFunc
	Log      *slog.Logger
	Trace    *Trace
	Stopping atomic.Bool
}

func NewState(env *Env) *State {
	return &State{
		Env:        env,
		Neighbours: NewNeighbourTable(env.Self.Id, MaxNeighbours),
		Db:         NewLinkStateDb(env.Self),
	}
}

// ScrubNeighbour releases the slot of id and removes its link from the local LSA.
func (s *State) ScrubNeighbour(id RouterId) bool {
	released := s.Neighbours.Release(id)
	scrubbed := s.Db.RemoveSelfLink(id)
	if released {
		s.Trace.Submit(Event{Kind: NeighbourReleased, Router: id})
	}
	return released || scrubbed
}
