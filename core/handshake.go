package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/encodeous/sospf/perf"
	"github.com/encodeous/sospf/protocol"
	"github.com/encodeous/sospf/state"
)

var ErrUnexpectedMessage = errors.New("unexpected message")

func (r *Router) helloPacket(remote state.RouterDesc, weight int) *protocol.Packet {
	return &protocol.Packet{
		Type:           protocol.Hello,
		RouterId:       r.Self.Id,
		NeighbourId:    remote.Id,
		SrcIp:          r.Self.Id,
		DstIp:          remote.Id,
		SrcProcessHost: r.Self.Host,
		SrcProcessPort: r.Self.Port,
		Weight:         weight,
	}
}

// confirm promotes the slot of id and adds its link to the local LSA. It
// reports false if the slot is gone or was already confirmed.
func confirm(s *state.State, id state.RouterId) bool {
	n := s.Neighbours.Get(id)
	if n == nil || n.State == state.Confirmed {
		return false
	}
	n.State = state.Confirmed
	reconcileWeight(s, n)
	s.Db.UpsertSelfLink(state.Link{Target: id, Port: n.Remote.Port, Weight: n.Weight})
	s.Trace.Submit(state.Event{Kind: state.NeighbourConfirmed, Router: id})
	s.Log.Info("neighbour confirmed", "neighbour", n.Remote, "slot", n.Slot, "weight", n.Weight)
	return true
}

// handshake runs the initiating side of the hello exchange with remote.
func (r *Router) handshake(remote state.RouterDesc, weight int) error {
	ctx, cancel := context.WithTimeout(r.Context, state.DialTimeout)
	link, err := protocol.Dial(ctx, remote.Addr())
	cancel()
	if err != nil {
		return err
	}
	defer link.Close()
	stop := context.AfterFunc(r.Context, link.Close)
	defer stop()

	hello := r.helloPacket(remote, weight)
	if err = link.WriteMsg(hello); err != nil {
		return err
	}
	perf.HellosSent.Add(1)
	reply, err := link.ReadMsg()
	if err != nil {
		return err
	}
	if reply.Type != protocol.Hello || reply.RouterId != remote.Id {
		return fmt.Errorf("%w: %s", ErrUnexpectedMessage, reply)
	}
	r.Log.Debug("received hello", "from", remote, "link", link.Id())
	if err = link.WriteMsg(hello); err != nil {
		return err
	}
	perf.HellosSent.Add(1)

	_, err = state.Await(r.Env, func(s *state.State) (bool, error) {
		if s.Neighbours.Get(remote.Id) == nil {
			return false, fmt.Errorf("%s was released during the handshake", remote.Id)
		}
		return confirm(s, remote.Id), nil
	})
	return err
}

// handshakeOrRelease runs handshake and frees the slot on failure.
func (r *Router) handshakeOrRelease(remote state.RouterDesc, weight int) bool {
	err := r.handshake(remote, weight)
	if err == nil {
		return true
	}
	r.Log.Warn("handshake failed", "neighbour", remote, "err", err)
	r.Dispatch(func(s *state.State) error {
		s.ScrubNeighbour(remote.Id)
		return nil
	})
	return false
}

// respondHello answers a hello received on link and confirms the sender once
// its second hello arrives on the same connection.
func (r *Router) respondHello(link *protocol.CtlLink, hello *protocol.Packet) error {
	if hello.RouterId == r.Self.Id {
		return fmt.Errorf("%w: hello claims our own id", ErrUnexpectedMessage)
	}
	if hello.DstIp != r.Self.Id {
		return fmt.Errorf("%w: hello addressed to %s", ErrUnexpectedMessage, hello.DstIp)
	}
	remote := state.RouterDesc{
		Id:   hello.RouterId,
		Host: hello.SrcProcessHost,
		Port: hello.SrcProcessPort,
	}
	slot, err := state.Await(r.Env, func(s *state.State) (*state.Neighbour, error) {
		if n := s.Neighbours.Get(remote.Id); n != nil {
			found := *n
			return &found, nil
		}
		weight := hello.Weight
		if state.WeightValidator(weight) != nil {
			weight = 0
		}
		n, err := s.Neighbours.Attach(remote, weight, true)
		if errors.Is(err, state.ErrNoFreeSlot) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		s.Log.Info("discovered neighbour", "neighbour", remote, "slot", n.Slot, "weight", weight)
		found := *n
		return &found, nil
	})
	if err != nil {
		return err
	}
	if slot == nil {
		r.Log.Debug("no free slot, ignoring hello", "from", remote)
		return nil
	}

	err = r.completeHello(link, hello, remote, slot.Weight)
	if err != nil {
		r.Dispatch(func(s *state.State) error {
			n := s.Neighbours.Get(remote.Id)
			if n != nil && n.Discovered && n.State == state.Unconfirmed {
				s.ScrubNeighbour(remote.Id)
			}
			return nil
		})
	}
	return err
}

func (r *Router) completeHello(link *protocol.CtlLink, hello *protocol.Packet, remote state.RouterDesc, weight int) error {
	if err := link.WriteMsg(r.helloPacket(remote, weight)); err != nil {
		return err
	}
	perf.HellosSent.Add(1)
	second, err := link.ReadMsg()
	if err != nil {
		return fmt.Errorf("awaiting second hello from %s: %w", remote.Id, err)
	}
	if second.Type != protocol.Hello || second.SrcIp != hello.SrcIp {
		return fmt.Errorf("%w: %s", ErrUnexpectedMessage, second)
	}
	job, err := state.Await(r.Env, func(s *state.State) (*floodJob, error) {
		if !confirm(s, remote.Id) {
			return nil, nil
		}
		return originate(s), nil
	})
	if err != nil {
		return err
	}
	link.Close()
	r.flood(job)
	return nil
}
