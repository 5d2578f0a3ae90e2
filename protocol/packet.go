package protocol

import (
	"errors"
	"fmt"
	"math"

	"github.com/encodeous/sospf/state"
	"google.golang.org/protobuf/encoding/protowire"
)

type Type int32

const (
	Hello     Type = 0
	LSAUpdate Type = 1
)

func (t Type) String() string {
	switch t {
	case Hello:
		return "HELLO"
	case LSAUpdate:
		return "LSAUPDATE"
	default:
		return fmt.Sprintf("Type(%d)", int32(t))
	}
}

// Packet is the only message exchanged between routers.
type Packet struct {
	Type            Type
	RouterId        state.RouterId
	NeighbourId     state.RouterId
	SrcIp           state.RouterId
	DstIp           state.RouterId
	SrcProcessHost  string
	SrcProcessPort  uint16
	OriginalTrigger bool
	Exclude         state.RouterSet
	Lsas            []state.LSA
	// Weight is the sender's weight for the link, carried by Hello
	Weight          int
}

// field numbers
const (
	fieldType            protowire.Number = 1
	fieldRouterId        protowire.Number = 2
	fieldNeighbourId     protowire.Number = 3
	fieldSrcIp           protowire.Number = 4
	fieldDstIp           protowire.Number = 5
	fieldSrcProcessHost  protowire.Number = 6
	fieldSrcProcessPort  protowire.Number = 7
	fieldOriginalTrigger protowire.Number = 8
	fieldExclude         protowire.Number = 9
	fieldLsas            protowire.Number = 10
	fieldWeight          protowire.Number = 11

	fieldLsaOrigin protowire.Number = 1
	fieldLsaSeqno  protowire.Number = 2
	fieldLsaLinks  protowire.Number = 3

	fieldLinkTarget protowire.Number = 1
	fieldLinkPort   protowire.Number = 2
	fieldLinkWeight protowire.Number = 3
)

var ErrMalformed = errors.New("malformed packet")

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendLink(b []byte, l state.Link) []byte {
	b = appendString(b, fieldLinkTarget, string(l.Target))
	b = appendVarint(b, fieldLinkPort, uint64(l.Port))
	return appendVarint(b, fieldLinkWeight, protowire.EncodeZigZag(int64(l.Weight)))
}

func appendLsa(b []byte, lsa state.LSA) []byte {
	b = appendString(b, fieldLsaOrigin, string(lsa.Origin))
	// the bootstrap seqno is non-zero, always write it
	b = protowire.AppendTag(b, fieldLsaSeqno, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(lsa.Seqno)))
	for _, link := range lsa.Links {
		b = protowire.AppendTag(b, fieldLsaLinks, protowire.BytesType)
		b = protowire.AppendBytes(b, appendLink(nil, link))
	}
	return b
}

// Marshal encodes p in protobuf wire format.
func (p *Packet) Marshal() []byte {
	var b []byte
	// written even when zero so that a Hello is never an empty message
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Type))
	b = appendString(b, fieldRouterId, string(p.RouterId))
	b = appendString(b, fieldNeighbourId, string(p.NeighbourId))
	b = appendString(b, fieldSrcIp, string(p.SrcIp))
	b = appendString(b, fieldDstIp, string(p.DstIp))
	b = appendString(b, fieldSrcProcessHost, p.SrcProcessHost)
	b = appendVarint(b, fieldSrcProcessPort, uint64(p.SrcProcessPort))
	b = appendVarint(b, fieldOriginalTrigger, protowire.EncodeBool(p.OriginalTrigger))
	for _, id := range p.Exclude.Sorted() {
		b = protowire.AppendTag(b, fieldExclude, protowire.BytesType)
		b = protowire.AppendString(b, string(id))
	}
	for _, lsa := range p.Lsas {
		b = protowire.AppendTag(b, fieldLsas, protowire.BytesType)
		b = protowire.AppendBytes(b, appendLsa(nil, lsa))
	}
	return appendVarint(b, fieldWeight, protowire.EncodeZigZag(int64(p.Weight)))
}

// fieldReader walks the fields of one encoded message.
type fieldReader struct {
	b []byte
}

func (r *fieldReader) next() (protowire.Number, protowire.Type, bool, error) {
	if len(r.b) == 0 {
		return 0, 0, false, nil
	}
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		return 0, 0, false, fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return num, typ, true, nil
}

func (r *fieldReader) varint(typ protowire.Type) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("%w: expected varint, got wire type %d", ErrMalformed, typ)
	}
	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return v, nil
}

func (r *fieldReader) bytes(typ protowire.Type) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, fmt.Errorf("%w: expected bytes, got wire type %d", ErrMalformed, typ)
	}
	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return v, nil
}

func (r *fieldReader) str(typ protowire.Type) (string, error) {
	v, err := r.bytes(typ)
	return string(v), err
}

func (r *fieldReader) port(typ protowire.Type) (uint16, error) {
	v, err := r.varint(typ)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		return 0, fmt.Errorf("%w: port %d out of range", ErrMalformed, v)
	}
	return uint16(v), nil
}

func (r *fieldReader) skip(num protowire.Number, typ protowire.Type) error {
	n := protowire.ConsumeFieldValue(num, typ, r.b)
	if n < 0 {
		return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return nil
}

func unmarshalLink(b []byte) (state.Link, error) {
	var link state.Link
	r := fieldReader{b}
	for {
		num, typ, ok, err := r.next()
		if err != nil || !ok {
			return link, err
		}
		switch num {
		case fieldLinkTarget:
			var s string
			s, err = r.str(typ)
			link.Target = state.RouterId(s)
		case fieldLinkPort:
			link.Port, err = r.port(typ)
		case fieldLinkWeight:
			var v uint64
			v, err = r.varint(typ)
			link.Weight = int(protowire.DecodeZigZag(v))
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return link, err
		}
	}
}

func unmarshalLsa(b []byte) (state.LSA, error) {
	var lsa state.LSA
	r := fieldReader{b}
	for {
		num, typ, ok, err := r.next()
		if err != nil {
			return lsa, err
		}
		if !ok {
			break
		}
		switch num {
		case fieldLsaOrigin:
			var s string
			s, err = r.str(typ)
			lsa.Origin = state.RouterId(s)
		case fieldLsaSeqno:
			var v uint64
			v, err = r.varint(typ)
			seq := protowire.DecodeZigZag(v)
			if seq < math.MinInt32 || seq > math.MaxInt32 {
				err = fmt.Errorf("%w: seqno %d out of range", ErrMalformed, seq)
			}
			lsa.Seqno = int32(seq)
		case fieldLsaLinks:
			var raw []byte
			raw, err = r.bytes(typ)
			if err == nil {
				var link state.Link
				link, err = unmarshalLink(raw)
				lsa.Links = append(lsa.Links, link)
			}
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return lsa, err
		}
	}
	if lsa.Origin == "" {
		return lsa, fmt.Errorf("%w: lsa without origin", ErrMalformed)
	}
	return lsa, nil
}

// Unmarshal decodes a packet produced by Marshal. Unknown fields are skipped.
func Unmarshal(b []byte) (*Packet, error) {
	p := &Packet{
		Exclude: state.NewRouterSet(),
	}
	r := fieldReader{b}
	for {
		num, typ, ok, err := r.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		var v uint64
		var s string
		switch num {
		case fieldType:
			v, err = r.varint(typ)
			p.Type = Type(v)
		case fieldRouterId:
			s, err = r.str(typ)
			p.RouterId = state.RouterId(s)
		case fieldNeighbourId:
			s, err = r.str(typ)
			p.NeighbourId = state.RouterId(s)
		case fieldSrcIp:
			s, err = r.str(typ)
			p.SrcIp = state.RouterId(s)
		case fieldDstIp:
			s, err = r.str(typ)
			p.DstIp = state.RouterId(s)
		case fieldSrcProcessHost:
			p.SrcProcessHost, err = r.str(typ)
		case fieldSrcProcessPort:
			p.SrcProcessPort, err = r.port(typ)
		case fieldOriginalTrigger:
			v, err = r.varint(typ)
			p.OriginalTrigger = protowire.DecodeBool(v)
		case fieldExclude:
			s, err = r.str(typ)
			p.Exclude.Add(state.RouterId(s))
		case fieldLsas:
			var raw []byte
			raw, err = r.bytes(typ)
			if err == nil {
				var lsa state.LSA
				lsa, err = unmarshalLsa(raw)
				p.Lsas = append(p.Lsas, lsa)
			}
		case fieldWeight:
			v, err = r.varint(typ)
			p.Weight = int(protowire.DecodeZigZag(v))
		default:
			err = r.skip(num, typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if p.Type != Hello && p.Type != LSAUpdate {
		return nil, fmt.Errorf("%w: unknown type %s", ErrMalformed, p.Type)
	}
	if p.RouterId == "" {
		return nil, fmt.Errorf("%w: missing router id", ErrMalformed)
	}
	return p, nil
}

func (p *Packet) String() string {
	if p.Type == Hello {
		return fmt.Sprintf("%s %s -> %s (%s:%d) weight=%d", p.Type, p.SrcIp, p.DstIp, p.SrcProcessHost, p.SrcProcessPort, p.Weight)
	}
	return fmt.Sprintf("%s from %s trigger=%v exclude=%s lsas=%d", p.Type, p.RouterId, p.OriginalTrigger, p.Exclude, len(p.Lsas))
}
