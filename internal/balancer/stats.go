package balancer

import (
	"cmp"

	"golang.org/x/exp/slices"
)

// ServerInfo describes one server.
type ServerInfo struct {
	ID         uint32
	Positions  []uint32
	StoreKeys  int
	CacheKeys  int
	CacheCap   int
	QueueDepth int
}

// Placement is one ring entry.
type Placement struct {
	Position uint32
	Label    uint32
	ServerID uint32
	Primary  bool
}

// Servers returns every server ordered by id.
func (b *Balancer) Servers() []ServerInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	byID := make(map[uint32]*ServerInfo, len(b.servers))
	for id, n := range b.servers {
		byID[id] = &ServerInfo{
			ID:         id,
			StoreKeys:  n.Store().Len(),
			CacheKeys:  n.Cache().Len(),
			CacheCap:   n.Cache().Cap(),
			QueueDepth: n.QueueDepth(),
		}
	}
	for _, e := range b.ring.Entries() {
		info := byID[e.Value.Node().ID()]
		info.Positions = append(info.Positions, e.Position)
	}

	out := make([]ServerInfo, 0, len(byID))
	for _, info := range byID {
		out = append(out, *info)
	}
	slices.SortFunc(out, func(a, b ServerInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Placements returns the ring entries in ascending position order.
func (b *Balancer) Placements() []Placement {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.ring.Entries()
	out := make([]Placement, 0, len(entries))
	for _, e := range entries {
		out = append(out, Placement{
			Position: e.Position,
			Label:    e.Label,
			ServerID: e.Value.Node().ID(),
			Primary:  e.Value.Owner(),
		})
	}
	return out
}

// Len returns the number of servers.
func (b *Balancer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.servers)
}
