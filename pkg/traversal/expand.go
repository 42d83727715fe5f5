package traversal

import (
	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
)

// Expand performs a breadth-first, layered collection from id in the given
// direction, bounded by options.Depth and the session's
// max_expand_depth (both the per-session limit and the redundant
// per-capability cap) (spec §4.5.2).
func (s *Session) Expand(id blockid.BlockId, direction Direction, options ExpandOptions) (ExpansionResult, error) {
	if err := s.allow(); err != nil {
		return ExpansionResult{}, err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanTraverse, "can_traverse"); err != nil {
		return ExpansionResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.engine.Document()
	if _, ok := doc.GetBlock(id); !ok {
		return ExpansionResult{}, &BlockNotFoundError{Id: id}
	}

	depth := options.Depth
	maxDepth := min(s.Config.Limits.MaxExpandDepth, s.Config.Capabilities.MaxExpandDepth)
	switch {
	case depth <= 0:
		depth = maxDepth
	case depth > maxDepth:
		return ExpansionResult{}, &LimitExceededError{Which: LimitMaxExpandDepth}
	}

	var levels [][]blockid.BlockId
	visited := map[blockid.BlockId]struct{}{id: {}}
	frontier := []blockid.BlockId{id}
	total := 0

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []blockid.BlockId
		var level []blockid.BlockId
		for _, cur := range frontier {
			for _, n := range neighbors(doc, cur, direction) {
				if _, seen := visited[n]; seen {
					continue
				}
				if !matchesFilter(doc, n, options) {
					continue
				}
				visited[n] = struct{}{}
				level = append(level, n)
				next = append(next, n)
			}
		}
		if len(level) == 0 {
			break
		}
		if total+len(level) > s.Config.Limits.MaxResultsPerOperation {
			return ExpansionResult{}, &LimitExceededError{Which: LimitMaxResultsPerOp}
		}
		levels = append(levels, level)
		total += len(level)
		frontier = next
	}

	return ExpansionResult{Root: id, Levels: levels, TotalBlocks: total}, nil
}

func neighbors(doc *document.Document, id blockid.BlockId, direction Direction) []blockid.BlockId {
	switch direction {
	case DirDown:
		return doc.Children(id)
	case DirUp:
		if parent, ok := doc.Parent(id); ok {
			return []blockid.BlockId{parent}
		}
		return nil
	case DirBoth:
		out := append([]blockid.BlockId{}, doc.Children(id)...)
		if parent, ok := doc.Parent(id); ok {
			out = append(out, parent)
		}
		return out
	case DirSemantic:
		if b, ok := doc.GetBlock(id); ok {
			out := make([]blockid.BlockId, 0, len(b.Edges))
			for _, e := range b.Edges {
				out = append(out, e.Target)
			}
			return out
		}
		return nil
	default:
		return nil
	}
}

func matchesFilter(doc *document.Document, id blockid.BlockId, options ExpandOptions) bool {
	if options.Role == nil && options.Tag == "" {
		return true
	}
	b, ok := doc.GetBlock(id)
	if !ok {
		return false
	}
	if options.Role != nil {
		if b.Metadata.SemanticRole == nil || b.Metadata.SemanticRole.Category != *options.Role {
			return false
		}
	}
	if options.Tag != "" {
		found := false
		for _, t := range b.Metadata.Tags {
			if t == options.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
