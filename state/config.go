package state

// NeighbourCfg is a neighbour attached when the router boots.
type NeighbourCfg struct {
	Id     RouterId
	Host   string
	Port   uint16
	Weight int
}

// LocalCfg represents the configuration of a single router process
type LocalCfg struct {
	Id         RouterId       // simulated address of this router
	Host       string         // host the listener binds to and advertises
	Port       uint16         // listener port, 0 picks an ephemeral port
	LogPath    string         `yaml:"log_path,omitempty"`   // if not empty, the router also logs to this file
	Neighbours []NeighbourCfg `yaml:"neighbours,omitempty"` // attached at boot, handshakes happen on start
}

func (c *LocalCfg) Desc() RouterDesc {
	return RouterDesc{
		Id:   c.Id,
		Host: c.Host,
		Port: c.Port,
	}
}

func (n NeighbourCfg) Desc() RouterDesc {
	return RouterDesc{
		Id:   n.Id,
		Host: n.Host,
		Port: n.Port,
	}
}
