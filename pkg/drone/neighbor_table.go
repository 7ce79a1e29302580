package drone

import (
	"sort"

	"github.com/getdroned/drone/pkg/wire"
)

// neighborTable maps neighbor identifiers to their outbound packet channels.
// It is owned by the drone goroutine: mutation happens only through command
// processing and is never concurrent with a lookup, so no locking is needed.
type neighborTable map[wire.NodeID]chan<- wire.Packet

func makeNeighborTable(neighbors map[wire.NodeID]chan<- wire.Packet) neighborTable {
	nt := make(neighborTable, len(neighbors))
	for id, ch := range neighbors {
		nt[id] = ch
	}
	return nt
}

func (nt neighborTable) add(id wire.NodeID, send chan<- wire.Packet) error {
	if _, ok := nt[id]; ok {
		return ErrDuplicateNeighbor
	}
	nt[id] = send
	return nil
}

func (nt neighborTable) remove(id wire.NodeID) error {
	if _, ok := nt[id]; !ok {
		return ErrUnknownNeighbor
	}
	delete(nt, id)
	return nil
}

func (nt neighborTable) lookup(id wire.NodeID) (chan<- wire.Packet, bool) {
	ch, ok := nt[id]
	return ch, ok
}

func (nt neighborTable) ids() []wire.NodeID {
	ids := make([]wire.NodeID, 0, len(nt))
	for id := range nt {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
