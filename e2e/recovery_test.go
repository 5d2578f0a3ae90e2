//go:build e2e

package e2e

import (
	"strconv"
	"testing"

	"github.com/encodeous/sospf/state"
)

func portOf(cfg state.LocalCfg) string {
	return strconv.Itoa(int(cfg.Port))
}

func TestQuitRecovery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	t.Parallel()

	h := NewHarness(t)

	a := h.NewConfig("a")
	b := h.NewConfig("b")
	c := h.NewConfig("c")

	// a triangle with a costly direct a <-> c edge
	a.Neighbours = []state.NeighbourCfg{Neighbour(b, 1), Neighbour(c, 10)}
	b.Neighbours = []state.NeighbourCfg{Neighbour(a, 1), Neighbour(c, 1)}
	c.Neighbours = []state.NeighbourCfg{Neighbour(b, 1), Neighbour(a, 10)}

	h.StartNodes(a, b, c)
	for _, id := range []string{"a", "b", "c"} {
		h.Exec(id, "start", "started")
	}
	h.Eventually("a", "detect c", "a ->(1) b ->(1) c")

	h.Exec("b", "quit", "")
	if err := h.WaitExit("b"); err != nil {
		t.Fatalf("b exited with %v", err)
	}
	h.WaitForLog("a", "neighbour quit")

	h.Eventually("a", "detect c", "a ->(10) c")
	h.Eventually("c", "detect b", "error:")
	h.Eventually("a", "neighbors", "IP Address of the neighbour1: c")
}

func TestDisconnect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	t.Parallel()

	h := NewHarness(t)
	a := h.NewConfig("a")
	b := h.NewConfig("b")
	a.Neighbours = []state.NeighbourCfg{Neighbour(b, 4)}
	b.Neighbours = []state.NeighbourCfg{Neighbour(a, 4)}
	h.StartNodes(a, b)
	h.Exec("a", "start", "started")
	h.Exec("b", "start", "started")
	h.Eventually("b", "detect a", "b ->(4) a")

	h.Exec("a", "disconnect 0", "disconnected slot 0")
	h.Eventually("b", "neighbors", "no neighbours")
	h.Eventually("b", "detect a", "error:")
}
