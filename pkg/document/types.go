// Package document implements the block/edge tree store: typed blocks in a
// strict parent/child tree overlaid with a cyclic edge graph, plus the
// derived indices kept in sync with primary state (spec §3, §4.2).
package document

import (
	"time"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
)

// SemanticCategory is the closed set of structural roles a block can carry.
type SemanticCategory string

const (
	CategoryHeading1  SemanticCategory = "heading1"
	CategoryHeading2  SemanticCategory = "heading2"
	CategoryHeading3  SemanticCategory = "heading3"
	CategoryHeading4  SemanticCategory = "heading4"
	CategoryHeading5  SemanticCategory = "heading5"
	CategoryHeading6  SemanticCategory = "heading6"
	CategoryParagraph SemanticCategory = "paragraph"
	CategoryList      SemanticCategory = "list"
	CategoryListItem  SemanticCategory = "list_item"
	CategoryCode      SemanticCategory = "code"
	CategoryTable     SemanticCategory = "table"
	CategoryQuote     SemanticCategory = "quote"
	CategoryCustom    SemanticCategory = "custom"
)

// SemanticRole tags a block with a structural category and an optional
// free-form subcategory (used when Category is CategoryCustom).
type SemanticRole struct {
	Category    SemanticCategory `json:"category"`
	Subcategory string           `json:"subcategory,omitempty"`
}

// TokenEstimate aliases content.TokenEstimate so callers of this package
// don't need to import internal/content directly for the metadata shape.
type TokenEstimate = content.TokenEstimate

// BlockMetadata carries a block's descriptive and bookkeeping fields,
// separate from its content (spec §3.1).
type BlockMetadata struct {
	Label         string            `json:"label,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	SemanticRole  *SemanticRole     `json:"semantic_role,omitempty"`
	Summary       string            `json:"summary,omitempty"`
	TokenEstimate *TokenEstimate    `json:"token_estimate,omitempty"`
	// SummaryTokenEstimate is Summary's own stopword-filtered token count,
	// distinct from TokenEstimate (which covers the block's Content and is
	// never stopword-filtered, per the generic ceil(chars/4) model).
	SummaryTokenEstimate int `json:"summary_token_estimate,omitempty"`
	ContentHash   string            `json:"content_hash"`
	CreatedAt     time.Time         `json:"created_at"`
	ModifiedAt    time.Time         `json:"modified_at"`
	Custom        map[string]any    `json:"custom,omitempty"`
}

// EdgeType is the closed set of semantic relation kinds between blocks, plus
// a Custom escape hatch (spec §3.1).
type EdgeType string

const (
	EdgeReferences      EdgeType = "References"
	EdgeCitedBy         EdgeType = "CitedBy"
	EdgeElaborates      EdgeType = "Elaborates"
	EdgeSummarizes       EdgeType = "Summarizes"
	EdgeSupersedes      EdgeType = "Supersedes"
	EdgeSupports        EdgeType = "Supports"
	EdgeContradicts     EdgeType = "Contradicts"
	EdgeDerivedFrom     EdgeType = "DerivedFrom"
	EdgeTransformedFrom EdgeType = "TransformedFrom"
	EdgeLinksTo         EdgeType = "LinksTo"
	EdgeParentOf        EdgeType = "ParentOf"
	EdgeChildOf         EdgeType = "ChildOf"
	EdgeSiblingOf       EdgeType = "SiblingOf"
	EdgePreviousSibling EdgeType = "PreviousSibling"
	EdgeNextSibling     EdgeType = "NextSibling"
	EdgeVersionOf       EdgeType = "VersionOf"
	EdgeAlternativeOf   EdgeType = "AlternativeOf"
	EdgeTranslationOf   EdgeType = "TranslationOf"
)

// CustomEdgeType builds the `Custom(name)` escape-hatch edge type string.
func CustomEdgeType(name string) EdgeType {
	return EdgeType("Custom:" + name)
}

// IsCustom reports whether et was built by CustomEdgeType, and if so returns
// its name.
func (et EdgeType) IsCustom() (string, bool) {
	const prefix = "Custom:"
	if len(et) > len(prefix) && string(et[:len(prefix)]) == prefix {
		return string(et[len(prefix):]), true
	}
	return "", false
}

// EdgeMetadata carries the optional descriptive fields of an Edge.
type EdgeMetadata struct {
	Confidence  *float64       `json:"confidence,omitempty"`
	Description string         `json:"description,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
}

// Edge is a typed, directed relation originating from the block that owns
// it (spec §3.1, §9 "owning the edge graph").
type Edge struct {
	EdgeType  EdgeType       `json:"edge_type"`
	Target    blockid.BlockId `json:"target"`
	Metadata  EdgeMetadata   `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// BlockVersion is a block's local monotonic counter plus the timestamp of
// its last mutation.
type BlockVersion struct {
	Counter   uint64    `json:"counter"`
	Timestamp time.Time `json:"timestamp"`
}

// Block is the atomic content node of a document (spec §3.1).
type Block struct {
	Id       blockid.BlockId `json:"id"`
	Content  content.Content `json:"content"`
	Metadata BlockMetadata   `json:"metadata"`
	Edges    []Edge          `json:"edges"`
	Version  BlockVersion    `json:"version"`
}

// DocumentMetadata is the free-form descriptive envelope of a Document.
type DocumentMetadata struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Authors     []string       `json:"authors,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ModifiedAt  time.Time      `json:"modified_at"`
	Language    string         `json:"language,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
}

// DocumentVersion is the document-wide monotonic counter, timestamp, and
// engine-computed state hash (spec §4.3.5).
type DocumentVersion struct {
	Counter   uint64    `json:"counter"`
	Timestamp time.Time `json:"timestamp"`
	StateHash string    `json:"state_hash"`
}

// Document is a rooted tree of blocks plus an edge graph and derived
// indices (spec §3.1).
type Document struct {
	Id       string
	Root     blockid.BlockId
	Structure map[blockid.BlockId][]blockid.BlockId
	Blocks    map[blockid.BlockId]*Block
	Metadata  DocumentMetadata
	Version   DocumentVersion

	indices   *indices
	edgeIndex *edgeIndex
}
