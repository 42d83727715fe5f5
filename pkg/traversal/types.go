package traversal

import (
	"time"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
)

// ViewMode selects how much of a block view_block renders, the
// projection pattern generalized from the teacher's pkg/response.Slim*
// "serialize only what's used" convention.
type ViewMode int

const (
	ViewIdsOnly ViewMode = iota
	ViewMetadata
	ViewPreview
	ViewFull
)

// Direction is the closed set of expansion directions.
type Direction int

const (
	DirDown Direction = iota // children
	DirUp                    // ancestors
	DirBoth
	DirSemantic // outgoing edges
)

// Limits bounds a single session's resource usage (spec §4.5.3).
type Limits struct {
	MaxContextTokens       int
	MaxContextBlocks       int
	MaxExpandDepth         int
	MaxResultsPerOperation int
	SessionTimeout         time.Duration
}

// DefaultLimits returns generous per-session limits suitable for tests and
// small/medium sessions.
func DefaultLimits() Limits {
	return Limits{
		MaxContextTokens:       32_000,
		MaxContextBlocks:       500,
		MaxExpandDepth:         16,
		MaxResultsPerOperation: 200,
		SessionTimeout:         30 * time.Minute,
	}
}

// GlobalLimits bounds resource usage across every session a Manager hosts.
type GlobalLimits struct {
	MaxSessions           int
	MaxTotalContextBlocks int
	MaxOpsPerSecond       float64
}

// DefaultGlobalLimits returns generous process-wide limits.
func DefaultGlobalLimits() GlobalLimits {
	return GlobalLimits{
		MaxSessions:           1000,
		MaxTotalContextBlocks: 100_000,
		MaxOpsPerSecond:       500,
	}
}

// Capabilities is the set of permissions a session carries (spec §4.5.3).
type Capabilities struct {
	CanTraverse      bool
	CanSearch        bool
	CanModifyContext bool
	CanCoordinate    bool
	MaxExpandDepth   int // redundant per-capability cap, min'd against Limits.MaxExpandDepth
}

// DefaultCapabilities grants every capability, suitable for a trusted
// single-agent session.
func DefaultCapabilities() Capabilities {
	return Capabilities{CanTraverse: true, CanSearch: true, CanModifyContext: true, CanCoordinate: true, MaxExpandDepth: 16}
}

// Config configures a new session (spec §4.5.1).
type Config struct {
	Name         string
	StartBlock   *blockid.BlockId
	Limits       Limits
	Capabilities Capabilities
	ViewMode     ViewMode
}

// ExpandOptions bounds and filters an expand call.
type ExpandOptions struct {
	Depth int
	Role  *document.SemanticCategory
	Tag   string
}

// BlockView is the view_block projection of a single block, shaped by
// ViewMode.
type BlockView struct {
	Id       blockid.BlockId
	Kind     string // content kind, always present
	Label    string
	Tags     []string
	Preview  string
	Full     *document.Block
}

// ExpansionResult is expand's return shape (spec §4.5.2).
type ExpansionResult struct {
	Root        blockid.BlockId
	Levels      [][]blockid.BlockId
	TotalBlocks int
}

// NeighborhoodView is view_neighborhood's return shape.
type NeighborhoodView struct {
	Cursor     blockid.BlockId
	Ancestors  []blockid.BlockId
	Children   []blockid.BlockId
	Siblings   []blockid.BlockId
	Semantic   []document.Edge
}

// PatternQuery filters find_by_pattern.
type PatternQuery struct {
	Role          *document.SemanticCategory
	Tag           string
	Label         string
	ContentRegex  string
}

// PathResult is find_path's return shape: the block sequence from `from` to
// `to`, or Found=false if no path exists within the length cap.
type PathResult struct {
	Found bool
	Path  []blockid.BlockId
}

// ContextEntry is one pinned block in a session's context window.
type ContextEntry struct {
	BlockId   blockid.BlockId
	Relevance float64
	Focus     bool
	AddedAt   time.Time
}

// SearchMatch is one hit returned by a RAGProvider.
type SearchMatch struct {
	BlockId    blockid.BlockId
	Similarity float64
	Preview    string
}

// RAGProvider is the pluggable retrieval contract search() delegates to
// (spec §4.5.2, §6.6). A session with no provider attached fails search
// with UnsupportedCapabilityError rather than silently no-op'ing.
// DocumentReady is called by Session.ExecuteUcl after a UCL transcript
// applies successfully, so a provider backed by an external index can
// re-embed without polling for staleness. Mutations made through the
// engine outside ExecuteUcl do not trigger it.
type RAGProvider interface {
	Embed(text string) ([]float32, error)
	Search(vec []float32, k int, minSimilarity float64) ([]SearchMatch, error)
	DocumentReady(doc *document.Document)
}
