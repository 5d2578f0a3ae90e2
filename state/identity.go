package state

import (
	"net"
	"strconv"
)

// RouterId is the simulated address of a router. It identifies the router in
// every protocol message and in the link state database.
type RouterId string

// RouterDesc describes how to reach a router: its simulated id plus the
// process endpoint its listener is bound to.
type RouterDesc struct {
	Id   RouterId
	Host string
	Port uint16
}

func (d RouterDesc) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(int(d.Port)))
}

func (d RouterDesc) String() string {
	return string(d.Id) + "@" + d.Addr()
}
