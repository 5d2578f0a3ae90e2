//go:build integration

package integration

import (
	"fmt"
	"testing"

	"github.com/encodeous/sospf/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// newRing builds n routers r0..r(n-1) joined in a cycle of unit weight links.
func newRing(t *testing.T, vh *VirtualHarness, n int) []state.RouterId {
	t.Helper()
	ids := make([]state.RouterId, n)
	for i := range n {
		ids[i] = state.RouterId(fmt.Sprintf("r%d", i))
		require.NoError(t, vh.NewNode(ids[i]))
	}
	for i := range n {
		_, err := vh.AddLink(ids[i], ids[(i+1)%n], 1)
		require.NoError(t, err)
	}
	vh.Start()
	require.Eventually(t, vh.Converged, waitFor, tick)
	return ids
}

func TestRingQuit(t *testing.T) {
	defer goleak.VerifyNone(t)
	vh := &VirtualHarness{}
	defer vh.Stop()
	ids := newRing(t, vh, 5)

	path, err := vh.Path("r1", "r3")
	require.NoError(t, err)
	assert.Equal(t, "r1 ->(1) r2 ->(1) r3", path)

	require.NoError(t, vh.Router("r2").Quit())
	<-vh.Router("r2").Stopped()

	require.Eventually(t, func() bool {
		return vh.Unreachable("r2")
	}, waitFor, tick)
	require.Eventually(t, func() bool {
		path, err := vh.Path("r1", "r3")
		return err == nil && path == "r1 ->(1) r0 ->(1) r4 ->(1) r3"
	}, waitFor, tick)

	for _, id := range ids {
		if id == "r2" {
			continue
		}
		lsa, ok, err := vh.Router(id).Lookup(id)
		require.NoError(t, err)
		require.True(t, ok)
		_, linked := lsa.LinkTo("r2")
		assert.False(t, linked, "%s still advertises r2", id)
	}
}

func TestDisconnectReroute(t *testing.T) {
	defer goleak.VerifyNone(t)
	vh := &VirtualHarness{}
	defer vh.Stop()
	newRing(t, vh, 4)

	path, err := vh.Path("r0", "r1")
	require.NoError(t, err)
	assert.Equal(t, "r0 ->(1) r1", path)

	slots, err := vh.Router("r0").Slots()
	require.NoError(t, err)
	slot := -1
	for _, n := range slots {
		if n.Remote.Id == "r1" {
			slot = n.Slot
		}
	}
	require.NotEqual(t, -1, slot)
	require.NoError(t, vh.Router("r0").Disconnect(slot))

	require.Eventually(t, func() bool {
		path, err := vh.Path("r0", "r1")
		return err == nil && path == "r0 ->(1) r3 ->(1) r2 ->(1) r1"
	}, waitFor, tick)
	require.Eventually(t, func() bool {
		path, err := vh.Path("r1", "r0")
		return err == nil && path == "r1 ->(1) r2 ->(1) r3 ->(1) r0"
	}, waitFor, tick)
}
