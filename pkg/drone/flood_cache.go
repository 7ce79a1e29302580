package drone

import "github.com/getdroned/drone/pkg/wire"

type floodKey struct {
	initiator wire.NodeID
	floodID   wire.FloodID
}

// floodCache remembers which floods this node has already taken part in.
// Entries are never pruned: flood termination relies on permanent membership,
// and the cache is bounded by the number of distinct floods observed.
type floodCache map[floodKey]struct{}

func makeFloodCache() floodCache {
	return make(floodCache)
}

func (fc floodCache) seen(initiator wire.NodeID, floodID wire.FloodID) bool {
	_, ok := fc[floodKey{initiator: initiator, floodID: floodID}]
	return ok
}

func (fc floodCache) record(initiator wire.NodeID, floodID wire.FloodID) {
	fc[floodKey{initiator: initiator, floodID: floodID}] = struct{}{}
}
