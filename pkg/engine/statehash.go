package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
)

// computeStateHash recomputes the document's equality token: a digest over
// sorted block ids, their content hashes, structure adjacency, and sorted
// edges (spec §4.3.5).
func computeStateHash(d *document.Document) string {
	var b strings.Builder

	ids := make([]blockid.BlockId, 0, len(d.Blocks))
	for id := range d.Blocks {
		ids = append(ids, id)
	}
	sorted := blockid.SortedSet(ids)

	for _, id := range sorted {
		blk, _ := d.GetBlock(id)
		fmt.Fprintf(&b, "block:%s:%s\n", id, blk.Metadata.ContentHash)
	}
	for _, id := range sorted {
		children := d.Children(id)
		fmt.Fprintf(&b, "structure:%s:%v\n", id, children)
	}
	for _, id := range sorted {
		blk, _ := d.GetBlock(id)
		for _, e := range sortedEdgesCopy(blk.Edges) {
			fmt.Fprintf(&b, "edge:%s:%s:%s\n", id, e.EdgeType, e.Target)
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func sortedEdgesCopy(edges []document.Edge) []document.Edge {
	out := append([]document.Edge{}, edges...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].EdgeType != out[j].EdgeType {
			return out[i].EdgeType < out[j].EdgeType
		}
		return out[i].Target.Less(out[j].Target)
	})
	return out
}

// quickDigest produces a cheap 64-bit digest of a block's SHA-256
// content_hash string, used by DiffSnapshot as a pre-check: if the xxhash
// digests of two content hashes differ, the hashes differ too, so only
// blocks with equal digests need the full string comparison.
func quickDigest(s string) uint64 {
	return xxhash.Sum64String(s)
}
