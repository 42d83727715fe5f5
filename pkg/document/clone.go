package document

import (
	"github.com/kittclouds/ucp/internal/blockid"
)

// Clone returns a deep copy of d, used by the engine to back transaction
// pre-images and named snapshots (spec §3.3, §9 "Transactions").
func (d *Document) Clone() *Document {
	out := &Document{
		Id:        d.Id,
		Root:      d.Root,
		Structure: make(map[blockid.BlockId][]blockid.BlockId, len(d.Structure)),
		Blocks:    make(map[blockid.BlockId]*Block, len(d.Blocks)),
		Metadata:  d.Metadata,
		Version:   d.Version,
	}
	out.Metadata.Custom = cloneAnyMap(d.Metadata.Custom)
	out.Metadata.Authors = append([]string{}, d.Metadata.Authors...)

	for parent, children := range d.Structure {
		out.Structure[parent] = append([]blockid.BlockId{}, children...)
	}
	for id, b := range d.Blocks {
		cloned := *b
		cloned.Edges = append([]Edge{}, b.Edges...)
		for i := range cloned.Edges {
			cloned.Edges[i].Metadata.Custom = cloneAnyMap(b.Edges[i].Metadata.Custom)
		}
		cloned.Metadata.Tags = append([]string{}, b.Metadata.Tags...)
		cloned.Metadata.Custom = cloneAnyMap(b.Metadata.Custom)
		if b.Metadata.SemanticRole != nil {
			role := *b.Metadata.SemanticRole
			cloned.Metadata.SemanticRole = &role
		}
		if b.Content.Children != nil {
			cloned.Content.Children = append([]blockid.BlockId{}, b.Content.Children...)
		}
		out.Blocks[id] = &cloned
	}

	if err := out.RebuildIndices(); err != nil {
		// Cloning a document that already passed validation cannot introduce a
		// fresh label conflict; surface it loudly if our invariant is wrong.
		panic(err)
	}
	return out
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
