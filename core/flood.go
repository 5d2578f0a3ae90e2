package core

import (
	"context"

	"github.com/encodeous/sospf/perf"
	"github.com/encodeous/sospf/protocol"
	"github.com/encodeous/sospf/state"
	"golang.org/x/sync/errgroup"
)

// floodJob is one LSAUpdate and the neighbours it must be sent to. Jobs are
// built on the main loop and sent outside of it.
type floodJob struct {
	packet  *protocol.Packet
	targets []state.RouterDesc
	// scrubOnError releases a target that could not be reached
	scrubOnError bool
}

func updatePacket(s *state.State, lsas []state.LSA, exclude state.RouterSet, trigger bool) *protocol.Packet {
	return &protocol.Packet{
		Type:            protocol.LSAUpdate,
		RouterId:        s.Self.Id,
		SrcIp:           s.Self.Id,
		SrcProcessHost:  s.Self.Host,
		SrcProcessPort:  s.Self.Port,
		OriginalTrigger: trigger,
		Exclude:         exclude,
		Lsas:            lsas,
	}
}

func idsOf(descs []state.RouterDesc) []state.RouterId {
	ids := make([]state.RouterId, len(descs))
	for i, d := range descs {
		ids[i] = d.Id
	}
	return ids
}

// originate bumps the local LSA and floods it to every confirmed neighbour.
func originate(s *state.State) *floodJob {
	self := s.Db.BumpSelf()
	confirmed := s.Neighbours.Confirmed()
	exclude := state.NewRouterSet(s.Self.Id)
	exclude.Add(idsOf(confirmed)...)
	return &floodJob{
		packet:       updatePacket(s, []state.LSA{self}, exclude, true),
		targets:      confirmed,
		scrubOnError: true,
	}
}

// disconnect withdraws the link to the neighbour at slot on both ends and
// floods the pair of LSAs, the peer included.
func disconnect(s *state.State, slot int) (*floodJob, error) {
	n, err := s.Neighbours.BySlot(slot)
	if err != nil {
		return nil, err
	}
	peer := n.Remote
	s.Db.RemoveSelfLink(peer.Id)
	lsas := []state.LSA{s.Db.BumpSelf()}
	if stored, ok := s.Db.Get(peer.Id); ok {
		withdrawn := stored.WithoutLink(s.Self.Id)
		withdrawn.Seqno = state.NextSeqno(stored.Seqno)
		s.Db.Consider(withdrawn)
		lsas = append(lsas, withdrawn)
	}
	s.ScrubNeighbour(peer.Id)
	s.Log.Info("disconnected", "neighbour", peer, "slot", slot)

	confirmed := s.Neighbours.Confirmed()
	exclude := state.NewRouterSet(s.Self.Id, peer.Id)
	exclude.Add(idsOf(confirmed)...)
	return &floodJob{
		packet:       updatePacket(s, lsas, exclude, true),
		targets:      append(confirmed, peer),
		scrubOnError: true,
	}, nil
}

// quit advertises the local router without links together with the whole database.
func quit(s *state.State) *floodJob {
	self := s.Db.BumpSelf()
	self.Links = nil
	lsas := []state.LSA{self}
	for _, lsa := range s.Db.Snapshot() {
		if lsa.Origin != s.Self.Id {
			lsas = append(lsas, lsa)
		}
	}
	confirmed := s.Neighbours.Confirmed()
	exclude := state.NewRouterSet(s.Self.Id)
	exclude.Add(idsOf(confirmed)...)
	return &floodJob{
		packet:  updatePacket(s, lsas, exclude, true),
		targets: confirmed,
	}
}

// detectDisconnect finds the sender of a disconnect flood aimed at us. Such an
// update carries the sender's LSA and our own, both with fewer links than we
// hold, and our LSA no longer lists the sender.
func detectDisconnect(s *state.State, pkt *protocol.Packet) (state.RouterId, bool) {
	var ours, theirs *state.LSA
	for i := range pkt.Lsas {
		switch pkt.Lsas[i].Origin {
		case s.Self.Id:
			ours = &pkt.Lsas[i]
		case pkt.RouterId:
			theirs = &pkt.Lsas[i]
		}
	}
	if ours == nil || theirs == nil {
		return "", false
	}
	stored := s.Db.Self()
	peer, ok := s.Db.Get(theirs.Origin)
	if !ok || theirs.Seqno <= peer.Seqno {
		return "", false
	}
	if len(ours.Links) >= len(stored.Links) || len(theirs.Links) >= len(peer.Links) {
		return "", false
	}
	if _, listed := ours.LinkTo(theirs.Origin); listed {
		return "", false
	}
	if _, listed := stored.LinkTo(theirs.Origin); !listed {
		return "", false
	}
	return theirs.Origin, true
}

// reconcileWeight lowers the weight of slot n to the weight its neighbour
// advertises towards us, so both ends settle on the smaller of the two.
func reconcileWeight(s *state.State, n *state.Neighbour) bool {
	stored, ok := s.Db.Get(n.Remote.Id)
	if !ok {
		return false
	}
	link, ok := stored.LinkTo(s.Self.Id)
	if !ok || link.Weight >= n.Weight || state.WeightValidator(link.Weight) != nil {
		return false
	}
	s.Log.Info("reconciled weight", "neighbour", n.Remote.Id, "old", n.Weight, "new", link.Weight)
	n.Weight = link.Weight
	s.Db.UpsertSelfLink(state.Link{Target: n.Remote.Id, Port: n.Remote.Port, Weight: n.Weight})
	return true
}

// reconcileWeights runs reconcileWeight for every confirmed origin in lsas and
// reports whether any local link changed.
func reconcileWeights(s *state.State, lsas []state.LSA) bool {
	changed := false
	for _, lsa := range lsas {
		n := s.Neighbours.Get(lsa.Origin)
		if n == nil || n.State != state.Confirmed {
			continue
		}
		if reconcileWeight(s, n) {
			changed = true
		}
	}
	return changed
}

// correctSender answers a sender that advertises an older LSA of its own than
// the one we hold, as a restarted router does. It gets the stored LSA back and
// adopts its seqno.
func correctSender(s *state.State, pkt *protocol.Packet, lsa state.LSA) *floodJob {
	if lsa.Origin != pkt.RouterId || pkt.SrcProcessPort == 0 {
		return nil
	}
	stored, ok := s.Db.Get(lsa.Origin)
	if !ok || stored.Seqno <= lsa.Seqno {
		return nil
	}
	s.Log.Debug("sender is behind on its own LSA", "neighbour", lsa.Origin, "seqno", lsa.Seqno, "stored", stored.Seqno)
	sender := state.RouterDesc{Id: lsa.Origin, Host: pkt.SrcProcessHost, Port: pkt.SrcProcessPort}
	return &floodJob{
		packet:  updatePacket(s, []state.LSA{stored}, state.NewRouterSet(s.Self.Id, lsa.Origin), false),
		targets: []state.RouterDesc{sender},
	}
}

// relay applies a received LSAUpdate and returns the updates to send in response.
func relay(s *state.State, pkt *protocol.Packet) []*floodJob {
	sender := pkt.RouterId
	jobs := make([]*floodJob, 0, 2)

	peer, disconnected := detectDisconnect(s, pkt)

	forward := false
	selfAdopted := false
	for _, lsa := range pkt.Lsas {
		fresh := s.Db.Consider(lsa)
		if !fresh.Accepted() {
			perf.StaleLsas.Add(1)
			if job := correctSender(s, pkt, lsa); job != nil {
				jobs = append(jobs, job)
			}
			continue
		}
		s.Trace.Submit(state.Event{Kind: state.LsaInstalled, Router: lsa.Origin, Seqno: lsa.Seqno})
		if lsa.Origin == s.Self.Id {
			selfAdopted = true
			continue
		}
		forward = true
		if len(lsa.Links) == 0 && s.ScrubNeighbour(lsa.Origin) {
			s.Log.Info("neighbour quit", "neighbour", lsa.Origin)
		}
	}
	if disconnected && s.ScrubNeighbour(peer) {
		s.Log.Info("neighbour disconnected", "neighbour", peer)
	}
	reconciled := reconcileWeights(s, pkt.Lsas)

	confirmed := s.Neighbours.Confirmed()
	if forward {
		skip := pkt.Exclude.Union(state.NewRouterSet(sender))
		targets := make([]state.RouterDesc, 0, len(confirmed))
		for _, n := range confirmed {
			if !skip.Contains(n.Id) {
				targets = append(targets, n)
			}
		}
		exclude := skip.Union(state.NewRouterSet(s.Self.Id))
		exclude.Add(idsOf(confirmed)...)
		if len(targets) > 0 {
			jobs = append(jobs, &floodJob{
				packet:       updatePacket(s, pkt.Lsas, exclude, false),
				targets:      targets,
				scrubOnError: true,
			})
		}
	}
	if pkt.OriginalTrigger || reconciled || selfAdopted {
		self := s.Db.BumpSelf()
		exclude := state.NewRouterSet(s.Self.Id)
		exclude.Add(idsOf(confirmed)...)
		if len(confirmed) > 0 {
			jobs = append(jobs, &floodJob{
				packet:       updatePacket(s, []state.LSA{self}, exclude, false),
				targets:      confirmed,
				scrubOnError: true,
			})
		}
	}
	return jobs
}

func (r *Router) sendUpdate(target state.RouterDesc, pkt protocol.Packet) error {
	ctx, cancel := context.WithTimeout(r.Context, state.DialTimeout)
	defer cancel()
	link, err := protocol.Dial(ctx, target.Addr())
	if err != nil {
		return err
	}
	defer link.Close()
	pkt.NeighbourId = target.Id
	pkt.DstIp = target.Id
	return link.WriteMsg(&pkt)
}

// flood sends every job concurrently and returns once all sends finished.
func (r *Router) flood(jobs ...*floodJob) {
	g := errgroup.Group{}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		perf.FloodFanout.Add(float64(len(job.targets)))
		for _, target := range job.targets {
			g.Go(func() error {
				err := r.sendUpdate(target, *job.packet)
				if err != nil {
					r.Log.Warn("failed to send update", "neighbour", target, "err", err)
					if job.scrubOnError {
						r.Dispatch(func(s *state.State) error {
							if s.ScrubNeighbour(target.Id) {
								s.Log.Info("released unreachable neighbour", "neighbour", target)
							}
							return nil
						})
					}
					return nil
				}
				perf.UpdatesSent.Add(1)
				if !job.packet.OriginalTrigger {
					perf.UpdatesRelayed.Add(1)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
}
