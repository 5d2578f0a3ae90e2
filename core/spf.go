package core

import (
	"container/heap"
	"fmt"
	"math"
	"strings"

	"github.com/encodeous/sospf/state"
	"github.com/jellydator/ttlcache/v3"
)

// SpfTree is the result of a single source shortest path run.
type SpfTree struct {
	Root state.RouterId
	Dist map[state.RouterId]int
	Prev map[state.RouterId]state.RouterId
}

type spfItem struct {
	id    state.RouterId
	dist  int
	index int
}

type spfQueue []*spfItem

func (q spfQueue) Len() int { return len(q) }

func (q spfQueue) Less(i, j int) bool {
	return q[i].dist < q[j].dist
}

func (q spfQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *spfQueue) Push(x any) {
	it := x.(*spfItem)
	it.index = len(*q)
	*q = append(*q, it)
}

func (q *spfQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

func spfGraph(lsas []state.LSA) map[state.RouterId][]state.Link {
	graph := make(map[state.RouterId][]state.Link, len(lsas))
	for _, lsa := range lsas {
		for _, link := range lsa.Links {
			if link.Target == lsa.Origin || link.Weight < 0 {
				continue
			}
			graph[lsa.Origin] = append(graph[lsa.Origin], link)
		}
	}
	return graph
}

// ComputeSpf runs dijkstra from root over the links advertised in lsas.
// A node is final once popped, so zero weight edges are handled like any other.
func ComputeSpf(lsas []state.LSA, root state.RouterId) *SpfTree {
	graph := spfGraph(lsas)
	t := &SpfTree{
		Root: root,
		Dist: map[state.RouterId]int{root: 0},
		Prev: make(map[state.RouterId]state.RouterId),
	}
	visited := make(map[state.RouterId]bool)
	q := &spfQueue{}
	heap.Push(q, &spfItem{id: root, dist: 0})
	for q.Len() > 0 {
		u := heap.Pop(q).(*spfItem)
		if visited[u.id] {
			continue
		}
		visited[u.id] = true
		for _, link := range graph[u.id] {
			if visited[link.Target] {
				continue
			}
			alt := u.dist + link.Weight
			if alt < 0 {
				alt = math.MaxInt
			}
			if cur, ok := t.Dist[link.Target]; ok && alt >= cur {
				continue
			}
			t.Dist[link.Target] = alt
			t.Prev[link.Target] = u.id
			heap.Push(q, &spfItem{id: link.Target, dist: alt})
		}
	}
	return t
}

// Path renders the route to dst as "src ->(w1) hop1 ->(w2) dst".
func (t *SpfTree) Path(dst state.RouterId) (string, error) {
	if _, ok := t.Dist[dst]; !ok {
		return "", fmt.Errorf("%s: %w", dst, state.ErrUnreachable)
	}
	hops := []string{string(dst)}
	for cur := dst; cur != t.Root; {
		prev := t.Prev[cur]
		hops = append(hops, fmt.Sprintf("%s ->(%d)", prev, t.Dist[cur]-t.Dist[prev]))
		cur = prev
	}
	sb := strings.Builder{}
	for i := len(hops) - 1; i >= 0; i-- {
		sb.WriteString(hops[i])
		if i > 0 {
			sb.WriteString(" ")
		}
	}
	return sb.String(), nil
}

// ShortestPath computes the path from src to dst over the current database.
func ShortestPath(db *state.LinkStateDb, src, dst state.RouterId) (string, error) {
	return ComputeSpf(db.Snapshot(), src).Path(dst)
}

func newSpfCache() *ttlcache.Cache[uint64, *SpfTree] {
	return ttlcache.New[uint64, *SpfTree](
		ttlcache.WithTTL[uint64, *SpfTree](state.SpfCacheTTL),
		ttlcache.WithCapacity[uint64, *SpfTree](state.SpfCacheEntries),
		ttlcache.WithDisableTouchOnHit[uint64, *SpfTree](),
	)
}

// spfTree returns the tree of the current database generation, computing it on a miss.
func spfTree(s *state.State, cache *ttlcache.Cache[uint64, *SpfTree]) *SpfTree {
	gen := s.Db.Generation()
	if item := cache.Get(gen); item != nil {
		return item.Value()
	}
	tree := ComputeSpf(s.Db.Snapshot(), s.Self.Id)
	cache.Set(gen, tree, ttlcache.DefaultTTL)
	return tree
}
