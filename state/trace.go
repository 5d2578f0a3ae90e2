package state

import (
	"fmt"

	"github.com/dustin/go-broadcast"
)

type EventKind int

const (
	NeighbourConfirmed EventKind = iota
	NeighbourReleased
	LsaInstalled
)

func (k EventKind) String() string {
	switch k {
	case NeighbourConfirmed:
		return "NeighbourConfirmed"
	case NeighbourReleased:
		return "NeighbourReleased"
	case LsaInstalled:
		return "LsaInstalled"
	default:
		return "Unknown"
	}
}

// Event is a notable change inside a router.
type Event struct {
	Kind   EventKind
	Router RouterId
	Seqno  int32
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s(%d)", e.Kind, e.Router, e.Seqno)
}

// Trace fans router events out to any number of listeners. A nil Trace drops everything.
type Trace struct {
	broadcast.Broadcaster
}

func NewTrace() *Trace {
	return &Trace{
		Broadcaster: broadcast.NewBroadcaster(TraceBuffer),
	}
}

func (t *Trace) Submit(e Event) {
	if t == nil {
		return
	}
	t.Broadcaster.Submit(e)
}

// Listen registers ch for every future event. The returned function unregisters it.
func (t *Trace) Listen(ch chan any) func() {
	t.Broadcaster.Register(ch)
	return func() {
		t.Broadcaster.Unregister(ch)
	}
}

func (t *Trace) Close() error {
	if t == nil {
		return nil
	}
	return t.Broadcaster.Close()
}
