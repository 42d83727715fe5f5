package traversal

import (
	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
)

// FindPath runs breadth-first search for the shortest from→to path over
// the undirected graph formed by the block tree's parent/child edges plus
// every semantic edge, capped at maxLength hops (spec §4.5.2 find_path).
// maxLength <= 0 means uncapped.
func (s *Session) FindPath(from, to blockid.BlockId, maxLength int) (PathResult, error) {
	if err := s.allow(); err != nil {
		return PathResult{}, err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanTraverse, "can_traverse"); err != nil {
		return PathResult{}, err
	}

	doc := s.engine.Document()
	if _, ok := doc.GetBlock(from); !ok {
		return PathResult{}, &BlockNotFoundError{Id: from}
	}
	if _, ok := doc.GetBlock(to); !ok {
		return PathResult{}, &BlockNotFoundError{Id: to}
	}

	if from == to {
		return PathResult{Found: true, Path: []blockid.BlockId{from}}, nil
	}

	type queued struct {
		id   blockid.BlockId
		path []blockid.BlockId
	}

	visited := map[blockid.BlockId]struct{}{from: {}}
	queue := []queued{{id: from, path: []blockid.BlockId{from}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if maxLength > 0 && len(cur.path)-1 >= maxLength {
			continue
		}

		for _, n := range undirectedNeighbors(doc, cur.id) {
			if _, seen := visited[n]; seen {
				continue
			}
			path := append(append([]blockid.BlockId{}, cur.path...), n)
			if n == to {
				return PathResult{Found: true, Path: path}, nil
			}
			visited[n] = struct{}{}
			queue = append(queue, queued{id: n, path: path})
		}
	}

	return PathResult{Found: false}, nil
}

func undirectedNeighbors(doc *document.Document, id blockid.BlockId) []blockid.BlockId {
	var out []blockid.BlockId
	out = append(out, doc.Children(id)...)
	if parent, ok := doc.Parent(id); ok {
		out = append(out, parent)
	}
	for _, e := range doc.Outgoing(id) {
		out = append(out, e.Target)
	}
	// Blocks that point to id via a semantic edge are also neighbors in the
	// undirected graph find_path operates over.
	for _, e := range doc.Incoming(id) {
		out = append(out, e.Target)
	}
	return out
}
