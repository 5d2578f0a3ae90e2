package core

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/encodeous/sospf/perf"
	"github.com/encodeous/sospf/protocol"
	"github.com/encodeous/sospf/state"
)

// listen accepts connections until the router stops. Every connection is
// served by its own goroutine.
func (r *Router) listen() error {
	r.Log.Info("listening on", "addr", r.listener.Addr())
	stop := context.AfterFunc(r.Context, func() {
		_ = r.listener.Close()
	})
	defer stop()
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if r.Context.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				r.StopCause(err)
				return err
			}
			r.Log.Warn("Failed to accept connection", "err", err)
			continue
		}
		link := protocol.NewCtlLink(conn, true)
		r.handlers.Add(1)
		go func() {
			defer r.handlers.Done()
			r.handle(link)
		}()
	}
}

// handle reads exactly one packet from link and dispatches it.
func (r *Router) handle(link *protocol.CtlLink) {
	defer link.Close()
	stop := context.AfterFunc(r.Context, link.Close)
	defer stop()

	start := time.Now()
	pkt, err := link.ReadMsg()
	if err != nil {
		if errors.Is(err, io.EOF) || r.Context.Err() != nil {
			r.Log.Debug("connection closed before a message arrived", "link", link.Id())
		} else {
			r.Log.Warn("dropped undecodable message", "link", link.Id(), "err", err)
		}
		return
	}
	r.Log.Debug("received", "link", link.Id(), "packet", pkt)

	switch pkt.Type {
	case protocol.Hello:
		err = r.respondHello(link, pkt)
	case protocol.LSAUpdate:
		link.Close()
		err = r.receiveUpdate(pkt)
	}
	if err != nil {
		r.Log.Warn("dropped connection", "link", link.Id(), "type", pkt.Type, "err", err)
	}
	perf.HandlerLatency.Add(float64(time.Since(start).Microseconds()))
}

func (r *Router) receiveUpdate(pkt *protocol.Packet) error {
	jobs, err := state.Await(r.Env, func(s *state.State) ([]*floodJob, error) {
		return relay(s, pkt), nil
	})
	if err != nil {
		return err
	}
	r.flood(jobs...)
	return nil
}
