package state

import (
	"fmt"
	"slices"
)

type NeighbourState int

const (
	Unconfirmed NeighbourState = iota
	Confirmed
)

func (s NeighbourState) String() string {
	switch s {
	case Unconfirmed:
		return "INIT"
	case Confirmed:
		return "TWO_WAY"
	default:
		return "UNKNOWN"
	}
}

// Neighbour is one occupied slot of the neighbour table.
type Neighbour struct {
	Slot   int
	Remote RouterDesc
	Weight int
	State  NeighbourState
	// Discovered is set for slots created by an inbound Hello. They start with
	// the weight the Hello carried.
	Discovered bool
}

func (n *Neighbour) String() string {
	return fmt.Sprintf("[%d] %s w=%d %s", n.Slot, n.Remote, n.Weight, n.State)
}

// NeighbourTable is a fixed capacity table of neighbour slots keyed by router id.
type NeighbourTable struct {
	self  RouterId
	slots []*Neighbour
}

func NewNeighbourTable(self RouterId, capacity int) *NeighbourTable {
	return &NeighbourTable{
		self:  self,
		slots: make([]*Neighbour, capacity),
	}
}

// Attach occupies the lowest free slot with remote.
func (t *NeighbourTable) Attach(remote RouterDesc, weight int, discovered bool) (*Neighbour, error) {
	if remote.Id == t.self {
		return nil, fmt.Errorf("attach %s: %w", remote.Id, ErrSelfAttach)
	}
	if err := WeightValidator(weight); err != nil {
		return nil, err
	}
	if t.Get(remote.Id) != nil {
		return nil, fmt.Errorf("attach %s: %w", remote.Id, ErrAlreadyNeighbour)
	}
	idx := slices.Index(t.slots, nil)
	if idx == -1 {
		return nil, fmt.Errorf("attach %s: %w", remote.Id, ErrNoFreeSlot)
	}
	n := &Neighbour{
		Slot:       idx,
		Remote:     remote,
		Weight:     weight,
		State:      Unconfirmed,
		Discovered: discovered,
	}
	t.slots[idx] = n
	return n, nil
}

// Release frees the slot held by id. Releasing an unknown id is a no-op.
func (t *NeighbourTable) Release(id RouterId) bool {
	n := t.Get(id)
	if n == nil {
		return false
	}
	t.slots[n.Slot] = nil
	return true
}

func (t *NeighbourTable) Get(id RouterId) *Neighbour {
	for _, n := range t.slots {
		if n != nil && n.Remote.Id == id {
			return n
		}
	}
	return nil
}

func (t *NeighbourTable) BySlot(slot int) (*Neighbour, error) {
	if slot < 0 || slot >= len(t.slots) || t.slots[slot] == nil {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrNoSuchSlot)
	}
	return t.slots[slot], nil
}

// All returns the occupied slots ordered by slot index.
func (t *NeighbourTable) All() []*Neighbour {
	out := make([]*Neighbour, 0, len(t.slots))
	for _, n := range t.slots {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Confirmed returns the remotes of all Confirmed slots ordered by slot index.
func (t *NeighbourTable) Confirmed() []RouterDesc {
	out := make([]RouterDesc, 0)
	for _, n := range t.slots {
		if n != nil && n.State == Confirmed {
			out = append(out, n.Remote)
		}
	}
	return out
}

func (t *NeighbourTable) ConfirmedSet() RouterSet {
	set := NewRouterSet()
	for _, n := range t.Confirmed() {
		set.Add(n.Id)
	}
	return set
}

func (t *NeighbourTable) Len() int {
	return len(t.All())
}

func (t *NeighbourTable) Free() int {
	return len(t.slots) - t.Len()
}

func (t *NeighbourTable) Cap() int {
	return len(t.slots)
}
