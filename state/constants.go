package state

import (
	"math"
	"time"
)

const (
	// MaxNeighbours is the number of neighbour slots of a router.
	MaxNeighbours = 4
	// InitialSeqno is the seqno of a router's bootstrap entry.
	InitialSeqno int32 = math.MinInt32
)

var (
	DialTimeout     = time.Second * 3
	SpfCacheTTL     = time.Minute * 1
	SpfCacheEntries = uint64(16)
	TraceBuffer     = 1024
	DispatchBuffer  = 128
	SlowDispatch    = time.Millisecond * 4

	// default listener
	DefaultHost = "127.0.0.1"
	DefaultPort = uint16(57175)
)
