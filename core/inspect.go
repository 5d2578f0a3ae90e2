package core

import (
	"fmt"
	"strings"

	"github.com/encodeous/sospf/state"
)

func renderInspect(s *state.State) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Router %s (started: %v)\n", s.Self, s.Started))
	sb.WriteString("Neighbours:\n")
	for slot := range s.Neighbours.Cap() {
		n, err := s.Neighbours.BySlot(slot)
		if err != nil {
			sb.WriteString(fmt.Sprintf(" [%d] (free)\n", slot))
			continue
		}
		origin := "attached"
		if n.Discovered {
			origin = "discovered"
		}
		sb.WriteString(fmt.Sprintf(" [%d] %s\n", slot, n.Remote))
		sb.WriteString(fmt.Sprintf("   State: %s, Weight: %d (%s)\n", n.State, n.Weight, origin))
		if lsa, ok := s.Db.Get(n.Remote.Id); ok {
			sb.WriteString(fmt.Sprintf("   Last LSA: seqno=%d, links=%d\n", lsa.Seqno, len(lsa.Links)))
		} else {
			sb.WriteString("   Last LSA: (none)\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\nDatabase: %d entries, generation %d\n", s.Db.Len(), s.Db.Generation()))
	return sb.String()
}

// Inspect renders the neighbour table and a database summary.
func (r *Router) Inspect() (string, error) {
	return state.Await(r.Env, func(s *state.State) (string, error) {
		return renderInspect(s), nil
	})
}
