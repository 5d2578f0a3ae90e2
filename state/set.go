package state

import (
	"slices"
	"strings"
)

// RouterSet is an unordered set of router ids.
type RouterSet map[RouterId]struct{}

func NewRouterSet(ids ...RouterId) RouterSet {
	s := make(RouterSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s RouterSet) Add(ids ...RouterId) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s RouterSet) Contains(id RouterId) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set, leaving s and o untouched.
func (s RouterSet) Union(o RouterSet) RouterSet {
	out := make(RouterSet, len(s)+len(o))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range o {
		out[id] = struct{}{}
	}
	return out
}

func (s RouterSet) Sorted() []RouterId {
	out := make([]RouterId, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s RouterSet) String() string {
	ids := s.Sorted()
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = string(id)
	}
	return "{" + strings.Join(strs, ", ") + "}"
}
