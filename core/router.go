package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/encodeous/sospf/state"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
)

var (
	ErrRouterStopped = errors.New("router stopped")
	ErrQuit          = errors.New("quit")
)

// Router is one simulated router process. State lives on the main loop, every
// exported operation may be called from any goroutine.
type Router struct {
	*state.Env
	state    *state.State
	dispatch chan func(*state.State) error
	listener net.Listener
	spf      *ttlcache.Cache[uint64, *SpfTree]
	handlers sync.WaitGroup
	done     chan struct{}
}

// NewRouter binds the listener and attaches the configured neighbours. The
// router does nothing until Run is called.
func NewRouter(cfg state.LocalCfg, logger *slog.Logger) (*Router, error) {
	err := state.LocalConfigValidator(&cfg)
	if err != nil {
		return nil, err
	}
	config := net.ListenConfig{}
	listener, err := config.Listen(context.Background(), "tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port))))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	self := cfg.Desc()
	self.Port = uint16(listener.Addr().(*net.TCPAddr).Port)

	ctx, cancel := context.WithCancelCause(context.Background())
	dispatch := make(chan func(*state.State) error, state.DispatchBuffer)
	env := &state.Env{
		DispatchChannel: dispatch,
		LocalCfg:        cfg,
		Self:            self,
		Context:         ctx,
		Cancel:          cancel,
		Log:             logger,
		Trace:           state.NewTrace(),
	}
	s := state.NewState(env)
	for _, n := range cfg.Neighbours {
		_, err = s.Neighbours.Attach(n.Desc(), n.Weight, false)
		if err != nil {
			cancel(err)
			_ = listener.Close()
			_ = env.Trace.Close()
			return nil, err
		}
	}
	return &Router{
		Env:      env,
		state:    s,
		dispatch: dispatch,
		listener: listener,
		spf:      newSpfCache(),
		done:     make(chan struct{}),
	}, nil
}

// Run serves the router until it is stopped.
func (r *Router) Run() error {
	defer close(r.done)
	g := errgroup.Group{}
	g.Go(func() error {
		return MainLoop(r.state, r.dispatch)
	})
	g.Go(r.listen)
	err := g.Wait()
	r.handlers.Wait()
	r.spf.DeleteAll()
	if cerr := r.Trace.Close(); cerr != nil && err == nil {
		err = cerr
	}
	r.Log.Info("stopped", "reason", context.Cause(r.Context))
	return err
}

// Stop cancels the router. Run returns once everything is shut down.
func (r *Router) Stop() {
	r.StopCause(ErrRouterStopped)
}

func (r *Router) StopCause(cause error) {
	if r.Stopping.Swap(true) {
		return
	}
	r.Cancel(cause)
}

// Stopped is closed once Run has returned.
func (r *Router) Stopped() <-chan struct{} {
	return r.done
}

// Attach occupies a neighbour slot without contacting the remote.
func (r *Router) Attach(host string, port uint16, id state.RouterId, weight int) (state.Neighbour, error) {
	remote := state.RouterDesc{Id: id, Host: host, Port: port}
	return state.Await(r.Env, func(s *state.State) (state.Neighbour, error) {
		n, err := s.Neighbours.Attach(remote, weight, false)
		if err != nil {
			return state.Neighbour{}, err
		}
		s.Log.Info("attached", "neighbour", remote, "slot", n.Slot, "weight", weight)
		return *n, nil
	})
}

// Start handshakes with every neighbour that is not confirmed yet, then
// floods the local LSA once if any of them came up.
func (r *Router) Start() error {
	pending, err := state.Await(r.Env, func(s *state.State) ([]state.Neighbour, error) {
		s.Started = true
		out := make([]state.Neighbour, 0)
		for _, n := range s.Neighbours.All() {
			if n.State != state.Confirmed {
				out = append(out, *n)
			}
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	var confirmed atomic.Int32
	g := errgroup.Group{}
	for _, n := range pending {
		g.Go(func() error {
			if r.handshakeOrRelease(n.Remote, n.Weight) {
				confirmed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	if confirmed.Load() == 0 {
		return nil
	}
	return r.originate()
}

// Connect attaches a neighbour and handshakes with it right away.
func (r *Router) Connect(host string, port uint16, id state.RouterId, weight int) error {
	remote := state.RouterDesc{Id: id, Host: host, Port: port}
	_, err := state.Await(r.Env, func(s *state.State) (bool, error) {
		if !s.Started {
			return false, fmt.Errorf("connect %s: %w", remote.Id, state.ErrNotStarted)
		}
		_, err := s.Neighbours.Attach(remote, weight, false)
		return err == nil, err
	})
	if err != nil {
		return err
	}
	if !r.handshakeOrRelease(remote, weight) {
		return fmt.Errorf("connect %s: handshake failed", remote)
	}
	return r.originate()
}

func (r *Router) originate() error {
	job, err := state.Await(r.Env, func(s *state.State) (*floodJob, error) {
		return originate(s), nil
	})
	if err != nil {
		return err
	}
	r.flood(job)
	return nil
}

// Disconnect removes the neighbour at slot and tells the network.
func (r *Router) Disconnect(slot int) error {
	job, err := state.Await(r.Env, func(s *state.State) (*floodJob, error) {
		return disconnect(s, slot)
	})
	if err != nil {
		return err
	}
	r.flood(job)
	return nil
}

// Neighbours lists the confirmed neighbours ordered by slot.
func (r *Router) Neighbours() ([]state.RouterDesc, error) {
	return state.Await(r.Env, func(s *state.State) ([]state.RouterDesc, error) {
		return s.Neighbours.Confirmed(), nil
	})
}

// Detect returns the shortest path from this router to dst.
func (r *Router) Detect(dst state.RouterId) (string, error) {
	return state.Await(r.Env, func(s *state.State) (string, error) {
		return spfTree(s, r.spf).Path(dst)
	})
}

// Quit withdraws this router from the network and stops it.
func (r *Router) Quit() error {
	job, err := state.Await(r.Env, func(s *state.State) (*floodJob, error) {
		return quit(s), nil
	})
	if err != nil {
		return err
	}
	r.flood(job)
	r.Log.Info("quit flood sent", "neighbours", len(job.targets))
	r.StopCause(ErrQuit)
	return nil
}

// Lsd renders the link state database.
func (r *Router) Lsd() (string, error) {
	return state.Await(r.Env, func(s *state.State) (string, error) {
		return s.Db.String(), nil
	})
}

// Lookup returns the stored LSA of id.
func (r *Router) Lookup(id state.RouterId) (state.LSA, bool, error) {
	type res struct {
		lsa state.LSA
		ok  bool
	}
	out, err := state.Await(r.Env, func(s *state.State) (res, error) {
		lsa, ok := s.Db.Get(id)
		return res{lsa, ok}, nil
	})
	return out.lsa, out.ok, err
}

// Slots returns a copy of every occupied neighbour slot.
func (r *Router) Slots() ([]state.Neighbour, error) {
	return state.Await(r.Env, func(s *state.State) ([]state.Neighbour, error) {
		out := make([]state.Neighbour, 0)
		for _, n := range s.Neighbours.All() {
			out = append(out, *n)
		}
		return out, nil
	})
}
