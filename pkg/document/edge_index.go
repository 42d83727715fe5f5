package document

import "github.com/kittclouds/ucp/internal/blockid"

type edgeEndpoint struct {
	EdgeType EdgeType
	Other    blockid.BlockId
}

// edgeIndex is the derived, non-owning bidirectional view over the edges
// owned by each Block (spec §3.1, §9 "owning the edge graph"). It is never
// serialized and is always rebuildable from primary state.
type edgeIndex struct {
	outgoing map[blockid.BlockId]map[edgeEndpoint]struct{}
	incoming map[blockid.BlockId]map[edgeEndpoint]struct{}
}

func newEdgeIndex() *edgeIndex {
	return &edgeIndex{
		outgoing: make(map[blockid.BlockId]map[edgeEndpoint]struct{}),
		incoming: make(map[blockid.BlockId]map[edgeEndpoint]struct{}),
	}
}

// has reports whether the (source, edge_type, target) triple is already
// present — used to enforce the idempotent-duplicate-add decision recorded
// in DESIGN.md.
func (ei *edgeIndex) has(source blockid.BlockId, edgeType EdgeType, target blockid.BlockId) bool {
	bucket, ok := ei.outgoing[source]
	if !ok {
		return false
	}
	_, ok = bucket[edgeEndpoint{EdgeType: edgeType, Other: target}]
	return ok
}

// add records both sides of the edge atomically: if either side would fail
// (it never does, map writes can't fail) both are applied, preserving the
// invariant that outgoing/incoming always agree.
func (ei *edgeIndex) add(source blockid.BlockId, edgeType EdgeType, target blockid.BlockId) {
	out, ok := ei.outgoing[source]
	if !ok {
		out = make(map[edgeEndpoint]struct{})
		ei.outgoing[source] = out
	}
	out[edgeEndpoint{EdgeType: edgeType, Other: target}] = struct{}{}

	in, ok := ei.incoming[target]
	if !ok {
		in = make(map[edgeEndpoint]struct{})
		ei.incoming[target] = in
	}
	in[edgeEndpoint{EdgeType: edgeType, Other: source}] = struct{}{}
}

// remove drops both sides of the edge. Both sides are always updated
// together, so outgoing and incoming never drift apart (spec §4.2).
func (ei *edgeIndex) remove(source blockid.BlockId, edgeType EdgeType, target blockid.BlockId) {
	if out, ok := ei.outgoing[source]; ok {
		delete(out, edgeEndpoint{EdgeType: edgeType, Other: target})
		if len(out) == 0 {
			delete(ei.outgoing, source)
		}
	}
	if in, ok := ei.incoming[target]; ok {
		delete(in, edgeEndpoint{EdgeType: edgeType, Other: source})
		if len(in) == 0 {
			delete(ei.incoming, target)
		}
	}
}

// removeAllFor drops every edge index entry touching id, whether id is a
// source or a target — used when a block is deleted.
func (ei *edgeIndex) removeAllFor(id blockid.BlockId) {
	if out, ok := ei.outgoing[id]; ok {
		for ep := range out {
			if in, ok := ei.incoming[ep.Other]; ok {
				delete(in, edgeEndpoint{EdgeType: ep.EdgeType, Other: id})
				if len(in) == 0 {
					delete(ei.incoming, ep.Other)
				}
			}
		}
		delete(ei.outgoing, id)
	}
	if in, ok := ei.incoming[id]; ok {
		for ep := range in {
			if out, ok := ei.outgoing[ep.Other]; ok {
				delete(out, edgeEndpoint{EdgeType: ep.EdgeType, Other: id})
				if len(out) == 0 {
					delete(ei.outgoing, ep.Other)
				}
			}
		}
		delete(ei.incoming, id)
	}
}

// Outgoing returns the (edge_type, target) pairs with id as source, in a
// deterministic order (sorted by edge type, then target).
func (d *Document) Outgoing(id blockid.BlockId) []Edge {
	return edgeListFrom(d.edgeIndex.outgoing[id])
}

// Incoming returns the (edge_type, source) pairs with id as target, in a
// deterministic order. Target on each returned Edge holds the source block
// of that incoming edge, not id itself.
func (d *Document) Incoming(id blockid.BlockId) []Edge {
	return edgeListFrom(d.edgeIndex.incoming[id])
}

func edgeListFrom(bucket map[edgeEndpoint]struct{}) []Edge {
	out := make([]Edge, 0, len(bucket))
	for ep := range bucket {
		out = append(out, Edge{EdgeType: ep.EdgeType, Target: ep.Other})
	}
	sortEdgesDeterministic(out)
	return out
}
