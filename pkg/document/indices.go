package document

import (
	"sort"
	"strings"

	"github.com/kittclouds/ucp/internal/blockid"
)

// indices holds the derived by_tag/by_type/by_role/by_label lookups defined
// in spec §3.1. They are never the source of truth — RebuildIndices
// recomputes them from Structure/Blocks/edges on demand.
type indices struct {
	byTag   map[string]map[blockid.BlockId]struct{}
	byType  map[string]map[blockid.BlockId]struct{}
	byRole  map[string]map[blockid.BlockId]struct{}
	byLabel map[string]blockid.BlockId
}

func newIndices() *indices {
	return &indices{
		byTag:   make(map[string]map[blockid.BlockId]struct{}),
		byType:  make(map[string]map[blockid.BlockId]struct{}),
		byRole:  make(map[string]map[blockid.BlockId]struct{}),
		byLabel: make(map[string]blockid.BlockId),
	}
}

func setAdd(set map[string]map[blockid.BlockId]struct{}, key string, id blockid.BlockId) {
	if key == "" {
		return
	}
	bucket, ok := set[key]
	if !ok {
		bucket = make(map[blockid.BlockId]struct{})
		set[key] = bucket
	}
	bucket[id] = struct{}{}
}

func setRemove(set map[string]map[blockid.BlockId]struct{}, key string, id blockid.BlockId) {
	bucket, ok := set[key]
	if !ok {
		return
	}
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(set, key)
	}
}

// indexBlock adds b's tags, type, role, and label into the derived indices.
func (idx *indices) indexBlock(b *Block) error {
	for _, tag := range b.Metadata.Tags {
		setAdd(idx.byTag, tag, b.Id)
	}
	setAdd(idx.byType, string(b.Content.Kind), b.Id)
	if b.Metadata.SemanticRole != nil {
		setAdd(idx.byRole, string(b.Metadata.SemanticRole.Category), b.Id)
	}
	if b.Metadata.Label != "" {
		if existing, ok := idx.byLabel[b.Metadata.Label]; ok && existing != b.Id {
			return &LabelConflictError{Label: b.Metadata.Label, Existing: existing, Incoming: b.Id}
		}
		idx.byLabel[b.Metadata.Label] = b.Id
	}
	return nil
}

// unindexBlock removes b's tags, type, role, and label from the derived
// indices. It does not fail: removal from a derived structure is always
// safe even if the block was never fully indexed.
func (idx *indices) unindexBlock(b *Block) {
	for _, tag := range b.Metadata.Tags {
		setRemove(idx.byTag, tag, b.Id)
	}
	setRemove(idx.byType, string(b.Content.Kind), b.Id)
	if b.Metadata.SemanticRole != nil {
		setRemove(idx.byRole, string(b.Metadata.SemanticRole.Category), b.Id)
	}
	if b.Metadata.Label != "" {
		delete(idx.byLabel, b.Metadata.Label)
	}
}

// ByTag returns the sorted set of block ids carrying tag.
func (d *Document) ByTag(tag string) []blockid.BlockId {
	return sortedFromSet(d.indices.byTag[tag])
}

// ByType returns the sorted set of block ids with the given content kind.
func (d *Document) ByType(kind string) []blockid.BlockId {
	return sortedFromSet(d.indices.byType[kind])
}

// ByRole returns the sorted set of block ids tagged with the given
// semantic category.
func (d *Document) ByRole(category string) []blockid.BlockId {
	return sortedFromSet(d.indices.byRole[category])
}

// ByLabel returns the block id registered under the exact label, if any.
func (d *Document) ByLabel(label string) (blockid.BlockId, bool) {
	id, ok := d.indices.byLabel[label]
	return id, ok
}

// ByLabelPrefix returns the labels registered with the given prefix, in
// lexicographic order — used by traversal's find_by_pattern.
func (d *Document) ByLabelPrefix(prefix string) []string {
	labels := make([]string, 0)
	for label := range d.indices.byLabel {
		if strings.HasPrefix(label, prefix) {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

func sortedFromSet(set map[blockid.BlockId]struct{}) []blockid.BlockId {
	ids := make([]blockid.BlockId, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return blockid.SortedSet(ids)
}

// RebuildIndices deterministically recomputes every derived index from
// primary state (spec §4.2 rebuild_indices).
func (d *Document) RebuildIndices() error {
	freshIdx := newIndices()
	freshEdges := newEdgeIndex()

	ids := make([]blockid.BlockId, 0, len(d.Blocks))
	for id := range d.Blocks {
		ids = append(ids, id)
	}
	for _, id := range blockid.SortedSet(ids) {
		b := d.Blocks[id]
		if err := freshIdx.indexBlock(b); err != nil {
			return err
		}
		for _, e := range b.Edges {
			freshEdges.add(id, e.EdgeType, e.Target)
		}
	}

	d.indices = freshIdx
	d.edgeIndex = freshEdges
	return nil
}
