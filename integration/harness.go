//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"
	"slices"
	"sync"

	"github.com/encodeous/sospf/core"
	"github.com/encodeous/sospf/state"
	"golang.org/x/sync/errgroup"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

// VirtualLink is an undirected edge between two routers, attached on both ends.
type VirtualLink struct {
	Edge   state.Pair[state.RouterId, state.RouterId]
	Weight int
}

// VirtualHarness runs a set of routers in process, each on its own loopback listener.
type VirtualHarness struct {
	Level   slog.Level
	Routers []*core.Router
	Links   []*VirtualLink
	wg      sync.WaitGroup
	errs    chan error
}

func (v *VirtualHarness) IndexOf(id state.RouterId) int {
	return slices.IndexFunc(v.Routers, func(r *core.Router) bool {
		return r.Self.Id == id
	})
}

func (v *VirtualHarness) Router(id state.RouterId) *core.Router {
	idx := v.IndexOf(id)
	if idx == -1 {
		panic(fmt.Sprintf("no router %s in harness", id))
	}
	return v.Routers[idx]
}

// NewNode creates a router and runs its main loop. Nothing is sent until Start.
func (v *VirtualHarness) NewNode(id state.RouterId) error {
	if v.errs == nil {
		v.errs = make(chan error, 128) // a large number so we dont get blocked
	}
	logger, _, err := core.NewLogger(id, os.Stderr, "", v.Level)
	if err != nil {
		return err
	}
	r, err := core.NewRouter(state.LocalCfg{Id: id, Host: state.DefaultHost}, logger)
	if err != nil {
		return err
	}
	v.Routers = append(v.Routers, r)
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		labels := pprof.Labels("sospf router", string(id))
		pprof.Do(context.Background(), labels, func(_ context.Context) {
			rErr := r.Run()
			if rErr != nil {
				v.errs <- fmt.Errorf("router %s: %w", id, rErr)
			}
		})
	}()
	return nil
}

// AddLink attaches both ends of an edge. Before Start this only fills neighbour slots.
func (v *VirtualHarness) AddLink(from, to state.RouterId, weight int) (*VirtualLink, error) {
	a, b := v.Router(from), v.Router(to)
	_, err := a.Attach(b.Self.Host, b.Self.Port, b.Self.Id, weight)
	if err != nil {
		return nil, err
	}
	_, err = b.Attach(a.Self.Host, a.Self.Port, a.Self.Id, weight)
	if err != nil {
		return nil, err
	}
	link := &VirtualLink{
		Edge:   state.Pair[state.RouterId, state.RouterId]{V1: from, V2: to},
		Weight: weight,
	}
	v.Links = append(v.Links, link)
	return link, nil
}

// Connect brings up an edge on a running network. Only from dials, to
// discovers the link and learns the weight from the flooded LSA.
func (v *VirtualHarness) Connect(from, to state.RouterId, weight int) (*VirtualLink, error) {
	a, b := v.Router(from), v.Router(to)
	err := a.Connect(b.Self.Host, b.Self.Port, b.Self.Id, weight)
	if err != nil {
		return nil, err
	}
	link := &VirtualLink{
		Edge:   state.Pair[state.RouterId, state.RouterId]{V1: from, V2: to},
		Weight: weight,
	}
	v.Links = append(v.Links, link)
	return link, nil
}

// Start handshakes every router with its attached neighbours.
func (v *VirtualHarness) Start() chan error {
	g := errgroup.Group{}
	for _, r := range v.Routers {
		g.Go(r.Start)
	}
	err := g.Wait()
	if err != nil {
		v.errs <- err
	}
	return v.errs
}

// Converged reports whether every running router holds the current LSA of
// every other running router.
func (v *VirtualHarness) Converged() bool {
	running := v.running()
	for _, owner := range running {
		self, _, err := owner.Lookup(owner.Self.Id)
		if err != nil {
			return false
		}
		for _, r := range running {
			lsa, ok, err := r.Lookup(owner.Self.Id)
			if err != nil || !ok || lsa.Seqno != self.Seqno {
				return false
			}
		}
	}
	return true
}

func (v *VirtualHarness) running() []*core.Router {
	out := make([]*core.Router, 0, len(v.Routers))
	for _, r := range v.Routers {
		if r.Context.Err() == nil {
			out = append(out, r)
		}
	}
	return out
}

// Path asks from for its shortest path to to.
func (v *VirtualHarness) Path(from, to state.RouterId) (string, error) {
	return v.Router(from).Detect(to)
}

// Unreachable reports whether no running router has a path to id.
func (v *VirtualHarness) Unreachable(id state.RouterId) bool {
	for _, r := range v.running() {
		if r.Self.Id == id {
			continue
		}
		_, err := r.Detect(id)
		if !errors.Is(err, state.ErrUnreachable) {
			return false
		}
	}
	return true
}

func (v *VirtualHarness) Stop() {
	for _, r := range v.Routers {
		r.Stop()
	}
	v.wg.Wait()
}
