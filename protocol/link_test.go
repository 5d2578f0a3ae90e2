package protocol

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"

	"github.com/encodeous/sospf/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtlLink_Pipe(t *testing.T) {
	a, b := net.Pipe()
	la := NewCtlLink(a, false)
	lb := NewCtlLink(b, true)
	defer la.Close()
	defer lb.Close()

	hello := &Packet{Type: Hello, RouterId: "a", NeighbourId: "b", SrcIp: "a", DstIp: "b", SrcProcessHost: "127.0.0.1", SrcProcessPort: 4000, Exclude: state.NewRouterSet()}
	errs := make(chan error, 1)
	go func() {
		errs <- la.WriteMsg(hello)
	}()
	got, err := lb.ReadMsg()
	require.NoError(t, err)
	require.NoError(t, <-errs)
	assert.Equal(t, hello, got)
	assert.True(t, lb.IsRemote())
	assert.NotEqual(t, la.Id(), lb.Id())
}

func TestCtlLink_Dial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		link := NewCtlLink(conn, true)
		defer link.Close()
		p, err := link.ReadMsg()
		if err != nil {
			return
		}
		_ = link.WriteMsg(p)
	}()

	link, err := Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer link.Close()
	sent := &Packet{Type: LSAUpdate, RouterId: "z", Exclude: state.NewRouterSet("z")}
	require.NoError(t, link.WriteMsg(sent))
	echo, err := link.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, sent, echo)

	link.Close()
	link.Close()
}

func TestFraming_RejectsBadSizes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(MaxPacketSize+1)))
	_, err := receive(&buf)
	assert.ErrorIs(t, err, ErrPacketSize)

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(0)))
	_, err = receive(&buf)
	assert.ErrorIs(t, err, ErrPacketSize)

	assert.ErrorIs(t, send(&buf, nil), ErrPacketSize)
	assert.ErrorIs(t, send(&buf, make([]byte, MaxPacketSize+1)), ErrPacketSize)
}
