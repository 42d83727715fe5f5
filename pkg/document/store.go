package document

import (
	"fmt"
	"sort"
	"time"

	"github.com/kittclouds/ucp/internal/blockid"
)

// New creates an empty document with a fresh immortal root block.
func New(id string) *Document {
	now := time.Now().UTC()
	root := &Block{
		Id: blockid.Root,
		Metadata: BlockMetadata{
			CreatedAt:  now,
			ModifiedAt: now,
		},
	}
	d := &Document{
		Id:        id,
		Root:      blockid.Root,
		Structure: map[blockid.BlockId][]blockid.BlockId{blockid.Root: {}},
		Blocks:    map[blockid.BlockId]*Block{blockid.Root: root},
		Metadata: DocumentMetadata{
			CreatedAt:  now,
			ModifiedAt: now,
		},
		indices:   newIndices(),
		edgeIndex: newEdgeIndex(),
	}
	return d
}

// GetBlock reads a block by id.
func (d *Document) GetBlock(id blockid.BlockId) (*Block, bool) {
	b, ok := d.Blocks[id]
	return b, ok
}

// Children returns the ordered children of id. Returns nil for an id with
// no recorded children (including unknown ids).
func (d *Document) Children(id blockid.BlockId) []blockid.BlockId {
	return d.Structure[id]
}

// Parent returns id's parent, or (zero, false) if id is the root or
// unknown.
func (d *Document) Parent(id blockid.BlockId) (blockid.BlockId, bool) {
	if id == d.Root {
		return blockid.BlockId{}, false
	}
	for parent, children := range d.Structure {
		for _, c := range children {
			if c == id {
				return parent, true
			}
		}
	}
	return blockid.BlockId{}, false
}

// Descendants returns id's descendants in breadth-first order.
func (d *Document) Descendants(id blockid.BlockId) []blockid.BlockId {
	var out []blockid.BlockId
	queue := append([]blockid.BlockId{}, d.Structure[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		out = append(out, next)
		queue = append(queue, d.Structure[next]...)
	}
	return out
}

// IsAncestor reports whether a is an ancestor of b.
func (d *Document) IsAncestor(a, b blockid.BlockId) bool {
	cur, ok := d.Parent(b)
	for ok {
		if cur == a {
			return true
		}
		cur, ok = d.Parent(cur)
	}
	return false
}

// AddBlock inserts b under parent at index (appended if index is nil),
// updating all derived indices (spec §4.2 add_block).
func (d *Document) AddBlock(b *Block, parent blockid.BlockId, index *int) (blockid.BlockId, error) {
	if _, ok := d.Blocks[parent]; !ok {
		return blockid.BlockId{}, &StructureError{Kind: StructureParentMissing, Block: parent}
	}
	if b.Id.IsRoot() {
		return blockid.BlockId{}, &InvariantViolationError{Message: "cannot add a block using the reserved root id"}
	}
	if _, exists := d.Blocks[b.Id]; exists {
		return blockid.BlockId{}, &InvariantViolationError{Message: fmt.Sprintf("block %s already exists", b.Id)}
	}

	if err := d.indices.indexBlock(b); err != nil {
		return blockid.BlockId{}, err
	}
	for _, e := range b.Edges {
		d.edgeIndex.add(b.Id, e.EdgeType, e.Target)
	}

	d.Blocks[b.Id] = b
	children := d.Structure[parent]
	if index == nil || *index >= len(children) {
		children = append(children, b.Id)
	} else {
		i := *index
		if i < 0 {
			i = 0
		}
		children = append(children, blockid.BlockId{})
		copy(children[i+1:], children[i:])
		children[i] = b.Id
	}
	d.Structure[parent] = children
	if _, ok := d.Structure[b.Id]; !ok {
		d.Structure[b.Id] = []blockid.BlockId{}
	}
	return b.Id, nil
}

// MoveSubtree detaches id from its current parent and reattaches it under
// newParent at index, forbidding moves that would create a cycle (spec
// §4.2 move_subtree).
func (d *Document) MoveSubtree(id, newParent blockid.BlockId, index *int) error {
	if _, ok := d.Blocks[id]; !ok {
		return &NotFoundError{Id: id}
	}
	if _, ok := d.Blocks[newParent]; !ok {
		return &NotFoundError{Id: newParent}
	}
	if id == d.Root {
		return &StructureError{Kind: StructureRootDelete, Block: id}
	}
	if id == newParent || d.IsAncestor(id, newParent) {
		return &StructureError{Kind: StructureCycle, Block: id}
	}

	oldParent, _ := d.Parent(id)
	d.detachChild(oldParent, id)

	children := d.Structure[newParent]
	if index == nil || *index >= len(children) {
		children = append(children, id)
	} else {
		i := *index
		if i < 0 {
			i = 0
		}
		children = append(children, blockid.BlockId{})
		copy(children[i+1:], children[i:])
		children[i] = id
	}
	d.Structure[newParent] = children
	return nil
}

func (d *Document) detachChild(parent, id blockid.BlockId) {
	children := d.Structure[parent]
	for i, c := range children {
		if c == id {
			d.Structure[parent] = append(children[:i:i], children[i+1:]...)
			return
		}
	}
}

// Delete removes id. With cascade, its descendants are removed too; with
// preserveChildren, its children are reparented to id's former parent at
// id's former position (spec §3.3, §4.2 delete).
func (d *Document) Delete(id blockid.BlockId, cascade, preserveChildren bool) ([]blockid.BlockId, error) {
	if id == d.Root {
		return nil, &StructureError{Kind: StructureRootDelete, Block: id}
	}
	if _, ok := d.Blocks[id]; !ok {
		return nil, &NotFoundError{Id: id}
	}

	parent, _ := d.Parent(id)
	children := append([]blockid.BlockId{}, d.Structure[id]...)

	removed := []blockid.BlockId{id}
	if cascade {
		removed = append(removed, d.Descendants(id)...)
	}

	idx := -1
	for i, c := range d.Structure[parent] {
		if c == id {
			idx = i
			break
		}
	}

	d.detachChild(parent, id)

	if preserveChildren && !cascade {
		parentChildren := d.Structure[parent]
		insertAt := len(parentChildren)
		if idx >= 0 {
			insertAt = idx
		}
		merged := make([]blockid.BlockId, 0, len(parentChildren)+len(children))
		merged = append(merged, parentChildren[:insertAt]...)
		merged = append(merged, children...)
		merged = append(merged, parentChildren[insertAt:]...)
		d.Structure[parent] = merged
	}

	for _, rid := range removed {
		if b, ok := d.Blocks[rid]; ok {
			d.indices.unindexBlock(b)
			d.edgeIndex.removeAllFor(rid)
			delete(d.Blocks, rid)
			delete(d.Structure, rid)
		}
	}

	return removed, nil
}

// AddEdge appends edge to source's edge list and updates the bidirectional
// edge index atomically (spec §4.2 add_edge).
func (d *Document) AddEdge(source blockid.BlockId, e Edge) error {
	b, ok := d.Blocks[source]
	if !ok {
		return &NotFoundError{Id: source}
	}
	if _, ok := d.Blocks[e.Target]; !ok {
		return &NotFoundError{Id: e.Target}
	}
	if d.edgeIndex.has(source, e.EdgeType, e.Target) {
		return nil // idempotent duplicate add, per DESIGN.md open-question decision
	}
	b.Edges = append(b.Edges, e)
	d.edgeIndex.add(source, e.EdgeType, e.Target)
	return nil
}

// RemoveEdge removes the (source, edge_type, target) triple from source's
// edge list and the bidirectional index, both or neither (spec §4.2
// remove_edge).
func (d *Document) RemoveEdge(source blockid.BlockId, edgeType EdgeType, target blockid.BlockId) error {
	b, ok := d.Blocks[source]
	if !ok {
		return &NotFoundError{Id: source}
	}
	idx := -1
	for i, e := range b.Edges {
		if e.EdgeType == edgeType && e.Target == target {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNoSuchEdge
	}
	b.Edges = append(b.Edges[:idx:idx], b.Edges[idx+1:]...)
	d.edgeIndex.remove(source, edgeType, target)
	return nil
}

// FindOrphans returns blocks present in Blocks but unreachable from Root
// via Structure (spec §4.2 find_orphans).
func (d *Document) FindOrphans() []blockid.BlockId {
	reachable := map[blockid.BlockId]struct{}{d.Root: {}}
	queue := []blockid.BlockId{d.Root}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, c := range d.Structure[next] {
			if _, seen := reachable[c]; !seen {
				reachable[c] = struct{}{}
				queue = append(queue, c)
			}
		}
	}

	var orphans []blockid.BlockId
	for id := range d.Blocks {
		if _, ok := reachable[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	return blockid.SortedSet(orphans)
}

// PruneUnreachable removes every orphan block and returns the removed
// blocks (spec §4.2 prune_unreachable).
func (d *Document) PruneUnreachable() []*Block {
	orphans := d.FindOrphans()
	removed := make([]*Block, 0, len(orphans))
	for _, id := range orphans {
		if b, ok := d.Blocks[id]; ok {
			removed = append(removed, b)
			d.indices.unindexBlock(b)
			d.edgeIndex.removeAllFor(id)
			delete(d.Blocks, id)
			delete(d.Structure, id)
		}
	}
	return removed
}

func sortEdgesDeterministic(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].EdgeType != edges[j].EdgeType {
			return edges[i].EdgeType < edges[j].EdgeType
		}
		return edges[i].Target.Less(edges[j].Target)
	})
}
