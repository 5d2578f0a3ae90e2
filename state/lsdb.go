package state

import (
	"maps"
	"slices"
	"strings"
)

// Freshness is the outcome of offering an LSA to the database.
type Freshness int

const (
	Stale Freshness = iota
	Inserted
	Updated
)

func (f Freshness) String() string {
	switch f {
	case Stale:
		return "Stale"
	case Inserted:
		return "Inserted"
	case Updated:
		return "Updated"
	default:
		return "Unknown"
	}
}

// Accepted reports whether the LSA changed the database and must be flooded further.
func (f Freshness) Accepted() bool {
	return f == Inserted || f == Updated
}

// LinkStateDb holds the latest known LSA of every router. It always contains
// the entry of the local router. It is not safe for concurrent use, it is only
// ever touched from the main loop.
type LinkStateDb struct {
	self       RouterDesc
	store      map[RouterId]LSA
	generation uint64
}

func NewLinkStateDb(self RouterDesc) *LinkStateDb {
	db := &LinkStateDb{
		self:  self,
		store: make(map[RouterId]LSA),
	}
	db.store[self.Id] = SelfLSA(self)
	return db
}

// Consider installs lsa if it is unknown or strictly newer than the stored entry.
// LSAs carrying the local router's id never replace the local links: a newer
// seqno is adopted so that the next local advertisement supersedes it.
// An accepted LSA without links is a withdrawal and is stored as a self-only entry.
func (d *LinkStateDb) Consider(lsa LSA) Freshness {
	if lsa.Origin == d.self.Id {
		if d.AdoptSelfSeqno(lsa.Seqno) {
			return Updated
		}
		return Stale
	}
	old, ok := d.store[lsa.Origin]
	if ok && lsa.Seqno <= old.Seqno {
		return Stale
	}
	lsa = lsa.Clone()
	if len(lsa.Links) == 0 {
		var port uint16
		if link, found := old.LinkTo(lsa.Origin); found {
			port = link.Port
		}
		lsa.Links = []Link{{Target: lsa.Origin, Port: port, Weight: 0}}
	}
	d.put(lsa)
	if !ok {
		return Inserted
	}
	return Updated
}

// AdoptSelfSeqno raises the local seqno to seqno if it is larger.
func (d *LinkStateDb) AdoptSelfSeqno(seqno int32) bool {
	self := d.store[d.self.Id]
	if seqno <= self.Seqno {
		return false
	}
	self.Seqno = seqno
	d.put(self)
	return true
}

func (d *LinkStateDb) Get(id RouterId) (LSA, bool) {
	lsa, ok := d.store[id]
	if !ok {
		return LSA{}, false
	}
	return lsa.Clone(), true
}

func (d *LinkStateDb) Self() LSA {
	return d.store[d.self.Id].Clone()
}

// BumpSelf increments the local seqno and returns the new local LSA.
func (d *LinkStateDb) BumpSelf() LSA {
	self := d.store[d.self.Id]
	self.Seqno = NextSeqno(self.Seqno)
	d.put(self)
	return self.Clone()
}

// UpsertSelfLink adds link to the local LSA, or replaces the link with the same target.
func (d *LinkStateDb) UpsertSelfLink(link Link) {
	self := d.store[d.self.Id].Clone()
	idx := slices.IndexFunc(self.Links, func(l Link) bool {
		return l.Target == link.Target
	})
	if idx == -1 {
		self.Links = append(self.Links, link)
	} else {
		self.Links[idx] = link
	}
	d.put(self)
}

// RemoveSelfLink scrubs the link towards id from the local LSA.
func (d *LinkStateDb) RemoveSelfLink(id RouterId) bool {
	if id == d.self.Id {
		return false
	}
	self := d.store[d.self.Id].Clone()
	n := len(self.Links)
	self.Links = slices.DeleteFunc(self.Links, func(l Link) bool {
		return l.Target == id
	})
	if len(self.Links) == n {
		return false
	}
	d.put(self)
	return true
}

// Snapshot returns a copy of every entry, ordered by origin.
func (d *LinkStateDb) Snapshot() []LSA {
	out := make([]LSA, 0, len(d.store))
	for _, id := range slices.Sorted(maps.Keys(d.store)) {
		out = append(out, d.store[id].Clone())
	}
	return out
}

func (d *LinkStateDb) Len() int {
	return len(d.store)
}

// Generation changes whenever the database is mutated.
func (d *LinkStateDb) Generation() uint64 {
	return d.generation
}

func (d *LinkStateDb) put(lsa LSA) {
	d.store[lsa.Origin] = lsa
	d.generation++
}

func (d *LinkStateDb) String() string {
	sb := strings.Builder{}
	for _, lsa := range d.Snapshot() {
		sb.WriteString(lsa.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
