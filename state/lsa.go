package state

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Link is one edge advertised inside an LSA.
type Link struct {
	Target RouterId
	Port   uint16
	Weight int
}

func (l Link) String() string {
	return fmt.Sprintf("%s,%d,%d", l.Target, l.Port, l.Weight)
}

// LSA is a router's claim about its current links, versioned by Seqno.
type LSA struct {
	Origin RouterId
	Seqno  int32
	Links  []Link
}

// SelfLSA builds the bootstrap entry of a router: a single zero weight link to itself.
func SelfLSA(self RouterDesc) LSA {
	return LSA{
		Origin: self.Id,
		Seqno:  InitialSeqno,
		Links: []Link{{
			Target: self.Id,
			Port:   self.Port,
			Weight: 0,
		}},
	}
}

func (l LSA) Clone() LSA {
	l.Links = slices.Clone(l.Links)
	return l
}

// LinkTo returns the link advertised towards id, if any.
func (l LSA) LinkTo(id RouterId) (Link, bool) {
	idx := slices.IndexFunc(l.Links, func(link Link) bool {
		return link.Target == id
	})
	if idx == -1 {
		return Link{}, false
	}
	return l.Links[idx], true
}

// WithoutLink returns a copy of l that no longer advertises a link to id.
func (l LSA) WithoutLink(id RouterId) LSA {
	l = l.Clone()
	l.Links = slices.DeleteFunc(l.Links, func(link Link) bool {
		return link.Target == id
	})
	return l
}

// NextSeqno returns the seqno of the next advertisement, saturating at math.MaxInt32.
func NextSeqno(seqno int32) int32 {
	if seqno == math.MaxInt32 {
		return seqno
	}
	return seqno + 1
}

func (l LSA) String() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%s(%d):\t", l.Origin, l.Seqno))
	for _, link := range l.Links {
		sb.WriteString(link.String())
		sb.WriteString("\t")
	}
	return sb.String()
}
