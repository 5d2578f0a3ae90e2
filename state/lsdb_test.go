package state

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSelf = RouterDesc{Id: "10.0.0.1", Host: "127.0.0.1", Port: 5000}

func TestLinkStateDb_Bootstrap(t *testing.T) {
	db := NewLinkStateDb(testSelf)
	self := db.Self()
	assert.Equal(t, testSelf.Id, self.Origin)
	assert.Equal(t, int32(math.MinInt32), self.Seqno)
	assert.Equal(t, []Link{{Target: testSelf.Id, Port: 5000, Weight: 0}}, self.Links)
	assert.Equal(t, 1, db.Len())
}

func TestLinkStateDb_ConsiderFreshness(t *testing.T) {
	db := NewLinkStateDb(testSelf)
	lsa := LSA{Origin: "b", Seqno: 3, Links: []Link{{Target: "b", Port: 1, Weight: 0}, {Target: "c", Port: 2, Weight: 4}}}

	assert.Equal(t, Inserted, db.Consider(lsa))
	assert.Equal(t, Stale, db.Consider(lsa))

	older := lsa
	older.Seqno = 2
	older.Links = nil
	assert.Equal(t, Stale, db.Consider(older))

	newer := LSA{Origin: "b", Seqno: 4, Links: []Link{{Target: "b", Port: 1, Weight: 0}}}
	assert.Equal(t, Updated, db.Consider(newer))

	stored, ok := db.Get("b")
	require.True(t, ok)
	if diff := cmp.Diff(newer, stored); diff != "" {
		t.Fatalf("stored lsa mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkStateDb_SeqnoNeverDecreases(t *testing.T) {
	db := NewLinkStateDb(testSelf)
	seqs := []int32{5, 1, 7, 7, -3, 9, 2}
	highest := int32(math.MinInt32)
	for _, seq := range seqs {
		res := db.Consider(LSA{Origin: "b", Seqno: seq, Links: []Link{{Target: "b", Port: 1, Weight: 0}}})
		if seq > highest {
			assert.True(t, res.Accepted(), "seq %d", seq)
			highest = seq
		} else {
			assert.Equal(t, Stale, res, "seq %d", seq)
		}
		stored, _ := db.Get("b")
		assert.Equal(t, highest, stored.Seqno)
	}
}

func TestLinkStateDb_SelfOriginNeverReplacesLinks(t *testing.T) {
	db := NewLinkStateDb(testSelf)
	db.UpsertSelfLink(Link{Target: "b", Port: 6000, Weight: 3})
	gen := db.Generation()

	assert.Equal(t, Updated, db.Consider(LSA{Origin: testSelf.Id, Seqno: 10}))
	self := db.Self()
	assert.Equal(t, int32(10), self.Seqno)
	assert.Len(t, self.Links, 2)
	assert.Greater(t, db.Generation(), gen)

	assert.Equal(t, Stale, db.Consider(LSA{Origin: testSelf.Id, Seqno: 10}))
	assert.Equal(t, int32(11), db.BumpSelf().Seqno)
}

func TestLinkStateDb_WithdrawalStoredSelfOnly(t *testing.T) {
	db := NewLinkStateDb(testSelf)
	db.Consider(LSA{Origin: "b", Seqno: 1, Links: []Link{{Target: "b", Port: 6000, Weight: 0}, {testSelf.Id, 5000, 2}}})

	assert.Equal(t, Updated, db.Consider(LSA{Origin: "b", Seqno: 2}))
	stored, _ := db.Get("b")
	assert.Equal(t, LSA{Origin: "b", Seqno: 2, Links: []Link{{Target: "b", Port: 6000, Weight: 0}}}, stored)
}

func TestLinkStateDb_SelfLinks(t *testing.T) {
	db := NewLinkStateDb(testSelf)
	db.UpsertSelfLink(Link{Target: "b", Port: 6000, Weight: 3})
	db.UpsertSelfLink(Link{Target: "c", Port: 7000, Weight: 1})
	db.UpsertSelfLink(Link{Target: "b", Port: 6000, Weight: 8})

	link, ok := db.Self().LinkTo("b")
	require.True(t, ok)
	assert.Equal(t, 8, link.Weight)

	assert.True(t, db.RemoveSelfLink("b"))
	assert.False(t, db.RemoveSelfLink("b"))
	assert.False(t, db.RemoveSelfLink(testSelf.Id))
	_, ok = db.Self().LinkTo("b")
	assert.False(t, ok)
	assert.Len(t, db.Self().Links, 2)
}

func TestLinkStateDb_GetReturnsCopy(t *testing.T) {
	db := NewLinkStateDb(testSelf)
	db.Consider(LSA{Origin: "b", Seqno: 1, Links: []Link{{Target: "b", Port: 1, Weight: 0}}})
	lsa, _ := db.Get("b")
	lsa.Links[0].Weight = 99
	stored, _ := db.Get("b")
	assert.Equal(t, 0, stored.Links[0].Weight)
}

func TestLinkStateDb_String(t *testing.T) {
	db := NewLinkStateDb(RouterDesc{Id: "a", Host: "127.0.0.1", Port: 1})
	db.Consider(LSA{Origin: "b", Seqno: 4, Links: []Link{{Target: "b", Port: 2, Weight: 0}, {Target: "a", Port: 1, Weight: 3}}})
	expected := "a(-2147483648):\ta,1,0\t\nb(4):\tb,2,0\ta,1,3\t\n"
	assert.Equal(t, expected, db.String())
}

func TestNextSeqnoSaturates(t *testing.T) {
	assert.Equal(t, int32(math.MinInt32+1), NextSeqno(math.MinInt32))
	assert.Equal(t, int32(math.MaxInt32), NextSeqno(math.MaxInt32))
}

func TestLSA_WithoutLink(t *testing.T) {
	lsa := LSA{Origin: "b", Seqno: 1, Links: []Link{{Target: "b", Port: 1, Weight: 0}, {Target: "a", Port: 2, Weight: 3}}}
	out := lsa.WithoutLink("a")
	assert.Len(t, out.Links, 1)
	assert.Len(t, lsa.Links, 2)
}
