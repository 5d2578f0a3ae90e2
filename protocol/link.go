package protocol

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/encodeous/sospf/perf"
	"github.com/google/uuid"
)

const MaxPacketSize = 64 * 1024

var ErrPacketSize = errors.New("packet size is invalid")

// CtlLink is one framed TCP connection between two routers.
type CtlLink struct {
	id     uuid.UUID
	Conn   net.Conn
	remote bool
	mutex  sync.Mutex
	once   sync.Once
}

func NewCtlLink(conn net.Conn, remote bool) *CtlLink {
	return &CtlLink{
		id:     uuid.New(),
		Conn:   conn,
		remote: remote,
	}
}

// Dial opens a link to addr, giving up when ctx ends.
func Dial(ctx context.Context, addr string) (*CtlLink, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewCtlLink(conn, false), nil
}

func (l *CtlLink) Close() {
	l.once.Do(func() {
		_ = l.Conn.Close()
	})
}

// IsRemote reports whether the link was accepted rather than dialed.
func (l *CtlLink) IsRemote() bool {
	return l.remote
}

func (l *CtlLink) Id() uuid.UUID {
	return l.id
}

func (l *CtlLink) ReadMsg() (*Packet, error) {
	data, err := receive(l.Conn)
	if err != nil {
		return nil, err
	}
	perf.RecvPacketPerSecond.Add(1)
	perf.RecvBytesPerSecond.Add(float64(len(data)))
	return Unmarshal(data)
}

func (l *CtlLink) WriteMsg(p *Packet) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	out := p.Marshal()
	err := send(l.Conn, out)
	if err != nil {
		return err
	}
	perf.SentPacketPerSecond.Add(1)
	perf.SentBytesPerSecond.Add(float64(len(out)))
	return nil
}

func receive(r io.Reader) ([]byte, error) {
	var length uint32

	err := binary.Read(r, binary.BigEndian, &(length))
	if err != nil {
		return nil, err
	}

	if length == 0 || length > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketSize, length)
	}

	data := make([]byte, length)

	_, err = io.ReadFull(r, data)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func send(w io.Writer, out []byte) error {
	if len(out) == 0 || len(out) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketSize, len(out))
	}

	buf := make([]byte, 4, 4+len(out))
	binary.BigEndian.PutUint32(buf, uint32(len(out)))
	_, err := w.Write(append(buf, out...))
	return err
}
