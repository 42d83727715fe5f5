package codegraph

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
)

// canonicalJSON marshals v with sorted object keys and no HTML escaping, the
// same normalization internal/content applies to its own hashed values —
// no third-party canonical-JSON library is required here: encoding/json
// already sorts map keys, and the remaining ordering (slices, map iteration)
// is imposed by the caller before marshaling.
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}

type canonicalNode struct {
	LogicalKey string         `json:"logical_key"`
	NodeClass  string         `json:"node_class"`
	Custom     map[string]any `json:"custom,omitempty"`
}

type canonicalStructureEntry struct {
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
}

type canonicalEdge struct {
	Source   string         `json:"source"`
	EdgeType string         `json:"edge_type"`
	Target   string         `json:"target"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// canonicalDocument is the fixed top-level shape fingerprinted for a
// codegraph.v1 document (spec §6.5): profile markers, the three sorted
// sections, and the document's own normalized metadata.
type canonicalDocument struct {
	Profile          string                    `json:"profile"`
	ProfileVersion   string                    `json:"profile_version"`
	Nodes            []canonicalNode           `json:"nodes"`
	Structure        []canonicalStructureEntry `json:"structure"`
	Edges            []canonicalEdge           `json:"edges"`
	DocumentMetadata map[string]any            `json:"document_metadata,omitempty"`
}

// buildCanonicalDocument flattens doc into the three-section form
// (nodes/structure/edges) used for fingerprinting and portable export
// (spec §4.6 "Canonical form", §6.5).
func buildCanonicalDocument(doc *document.Document) (canonicalDocument, error) {
	logicalKeyOf := func(id blockid.BlockId) string {
		if id == doc.Root {
			return doc.Root.String()
		}
		b, ok := doc.Blocks[id]
		if !ok {
			return id.String()
		}
		key, ok := b.Metadata.Custom[metaLogicalKey].(string)
		if !ok {
			return id.String()
		}
		return key
	}

	var canon canonicalDocument
	canon.Profile = ProfileMarker
	canon.ProfileVersion = ProfileVersion

	ids := make([]blockid.BlockId, 0, len(doc.Blocks))
	for id := range doc.Blocks {
		if id == doc.Root {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return logicalKeyOf(ids[i]) < logicalKeyOf(ids[j]) })

	for _, id := range ids {
		b := doc.Blocks[id]
		custom := stripVolatileMetadata(b.Metadata.Custom)
		nodeClass, _ := custom[metaNodeClass].(string)
		delete(custom, metaNodeClass)
		delete(custom, metaLogicalKey)
		canon.Nodes = append(canon.Nodes, canonicalNode{
			LogicalKey: logicalKeyOf(id),
			NodeClass:  nodeClass,
			Custom:     custom,
		})
	}

	for id, b := range doc.Blocks {
		for _, e := range b.Edges {
			meta := map[string]any{}
			for k, v := range e.Metadata.Custom {
				meta[k] = v
			}
			canon.Edges = append(canon.Edges, canonicalEdge{
				Source:   logicalKeyOf(id),
				EdgeType: string(e.EdgeType),
				Target:   logicalKeyOf(e.Target),
				Metadata: meta,
			})
		}
	}
	sort.Slice(canon.Edges, func(i, j int) bool {
		if canon.Edges[i].Source != canon.Edges[j].Source {
			return canon.Edges[i].Source < canon.Edges[j].Source
		}
		if canon.Edges[i].EdgeType != canon.Edges[j].EdgeType {
			return canon.Edges[i].EdgeType < canon.Edges[j].EdgeType
		}
		return canon.Edges[i].Target < canon.Edges[j].Target
	})

	parents := make([]blockid.BlockId, 0, len(doc.Structure))
	for parent := range doc.Structure {
		parents = append(parents, parent)
	}
	sort.Slice(parents, func(i, j int) bool { return logicalKeyOf(parents[i]) < logicalKeyOf(parents[j]) })

	for _, parent := range parents {
		children := doc.Structure[parent]
		childKeys := make([]string, len(children))
		for i, c := range children {
			childKeys[i] = logicalKeyOf(c)
		}
		sort.Strings(childKeys)
		canon.Structure = append(canon.Structure, canonicalStructureEntry{
			Parent:   logicalKeyOf(parent),
			Children: childKeys,
		})
	}
	sort.Slice(canon.Structure, func(i, j int) bool { return canon.Structure[i].Parent < canon.Structure[j].Parent })

	canon.DocumentMetadata = normalizedDocumentMetadata(doc)

	return canon, nil
}

// normalizedDocumentMetadata strips volatile keys from the document-level
// metadata so it participates in the fingerprint without leaking
// wall-clock build time.
func normalizedDocumentMetadata(doc *document.Document) map[string]any {
	out := stripVolatileMetadata(doc.Metadata.Custom)
	if len(out) == 0 {
		return nil
	}
	return out
}

// stripVolatileMetadata removes keys that vary across otherwise-identical
// builds (spec §4.6 "normalize timestamps... strip volatile metadata keys").
func stripVolatileMetadata(custom map[string]any) map[string]any {
	out := make(map[string]any, len(custom))
	for k, v := range custom {
		switch k {
		case "generated_at", "runtime", "session", "timestamp":
			continue
		}
		out[k] = v
	}
	return out
}

// CanonicalCodeGraphJSON renders doc's canonical three-section JSON form.
func CanonicalCodeGraphJSON(doc *document.Document) (string, error) {
	canon, err := buildCanonicalDocument(doc)
	if err != nil {
		return "", err
	}
	out, err := canonicalJSON(canon)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// CanonicalFingerprint computes the SHA-256 hex digest of doc's canonical
// JSON form, stable across repeated builds of the same repository state
// (spec §4.6 "Determinism guarantee").
func CanonicalFingerprint(doc *document.Document) (string, error) {
	canon, err := CanonicalCodeGraphJSON(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:]), nil
}
