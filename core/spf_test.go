package core

import (
	"testing"

	"github.com/encodeous/sospf/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func link(to state.RouterId, w int) state.Link {
	return state.Link{Target: to, Port: 1, Weight: w}
}

func lsaOf(origin state.RouterId, links ...state.Link) state.LSA {
	return state.LSA{
		Origin: origin,
		Seqno:  1,
		Links:  append([]state.Link{link(origin, 0)}, links...),
	}
}

func triangle() []state.LSA {
	return []state.LSA{
		lsaOf("A", link("B", 3), link("C", 10)),
		lsaOf("B", link("A", 3), link("C", 4)),
		lsaOf("C", link("A", 10), link("B", 4)),
	}
}

func TestSpf_PrefersCheaperPath(t *testing.T) {
	tree := ComputeSpf(triangle(), "A")
	path, err := tree.Path("C")
	require.NoError(t, err)
	assert.Equal(t, "A ->(3) B ->(4) C", path)
	assert.Equal(t, 7, tree.Dist["C"])
}

func TestSpf_Self(t *testing.T) {
	path, err := ComputeSpf(triangle(), "A").Path("A")
	require.NoError(t, err)
	assert.Equal(t, "A", path)
}

func TestSpf_Unreachable(t *testing.T) {
	lsas := append(triangle(), lsaOf("D", link("E", 1)))
	tree := ComputeSpf(lsas, "A")
	_, err := tree.Path("D")
	assert.ErrorIs(t, err, state.ErrUnreachable)
	_, err = tree.Path("nowhere")
	assert.ErrorIs(t, err, state.ErrUnreachable)
}

func TestSpf_EdgesAreDirected(t *testing.T) {
	lsas := []state.LSA{
		lsaOf("A"),
		lsaOf("B", link("A", 1)),
	}
	_, err := ComputeSpf(lsas, "A").Path("B")
	assert.ErrorIs(t, err, state.ErrUnreachable)
}

func TestSpf_ZeroWeightEdges(t *testing.T) {
	lsas := []state.LSA{
		lsaOf("A", link("B", 0), link("D", 5)),
		lsaOf("B", link("C", 0)),
		lsaOf("C", link("D", 1)),
	}
	tree := ComputeSpf(lsas, "A")
	path, err := tree.Path("D")
	require.NoError(t, err)
	assert.Equal(t, "A ->(0) B ->(0) C ->(1) D", path)
}

func TestSpf_LinkTargetWithoutLsa(t *testing.T) {
	lsas := []state.LSA{lsaOf("A", link("B", 2))}
	path, err := ComputeSpf(lsas, "A").Path("B")
	require.NoError(t, err)
	assert.Equal(t, "A ->(2) B", path)
}

func TestShortestPath_Database(t *testing.T) {
	db := state.NewLinkStateDb(state.RouterDesc{Id: "A", Host: "127.0.0.1", Port: 1})
	db.UpsertSelfLink(link("B", 3))
	db.UpsertSelfLink(link("C", 10))
	for _, lsa := range triangle()[1:] {
		db.Consider(lsa)
	}
	path, err := ShortestPath(db, "A", "C")
	require.NoError(t, err)
	assert.Equal(t, "A ->(3) B ->(4) C", path)
}

func TestSpfTree_CachedPerGeneration(t *testing.T) {
	s := newTestState("A")
	cache := newSpfCache()
	first := spfTree(s, cache)
	assert.Same(t, first, spfTree(s, cache))

	s.Db.UpsertSelfLink(link("B", 1))
	second := spfTree(s, cache)
	assert.NotSame(t, first, second)
	_, err := second.Path("B")
	assert.NoError(t, err)
}
