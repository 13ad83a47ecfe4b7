package signal

import "sync"

// Group owns a set of connections so a subscriber can drop all of them at
// once when it is torn down.
type Group struct {
	mu    sync.Mutex
	conns []*Connection
}

func (g *Group) Add(conns ...*Connection) {
	g.mu.Lock()
	g.conns = append(g.conns, conns...)
	g.mu.Unlock()
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// DisconnectAll disconnects every owned connection and forgets them.
func (g *Group) DisconnectAll() {
	g.mu.Lock()
	conns := g.conns
	g.conns = nil
	g.mu.Unlock()
	for _, c := range conns {
		c.Disconnect()
	}
}
