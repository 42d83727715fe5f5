package engine

import (
	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
)

// OperationKind is the closed set of mutations the engine accepts (spec
// §4.3.1), mirroring the Command enum in the UCL grammar 1:1 so lowering
// from parsed UCL is a direct translation.
type OperationKind int

const (
	OpKindEdit OperationKind = iota
	OpKindAppend
	OpKindMove
	OpKindDelete
	OpKindPrune
	OpKindLink
	OpKindUnlink
	OpKindFold
	OpKindWriteSection
	OpKindCreateSnapshot
	OpKindRestoreSnapshot
	OpKindDeleteSnapshot
	OpKindDiffSnapshot
	OpKindAtomic
)

// Operation is the tagged union of every mutation the engine accepts.
// Exactly one payload field is populated, selected by Kind.
type Operation struct {
	Kind OperationKind

	Edit         *EditOp
	Append       *AppendOp
	Move         *MoveOp
	Delete       *DeleteOp
	Prune        *PruneOp
	Link         *LinkOp
	Unlink       *UnlinkOp
	Fold         *FoldOp
	WriteSection *WriteSectionOp
	Snapshot     *SnapshotOp
	Atomic       []Operation
}

// EditOp applies Operator to the value addressed by Path inside BlockId's
// content or metadata, optionally gated by Condition.
type EditOp struct {
	BlockId   blockid.BlockId
	Path      Path
	Operator  Operator
	Value     Value
	Condition *Condition
}

// AppendOp creates a new child block under ParentId.
type AppendOp struct {
	ParentId     blockid.BlockId
	Content      content.Content
	Label        string
	Tags         []string
	SemanticRole *document.SemanticRole
	Index        *int
}

// MoveTargetKind selects which of the three Move destinations is used.
type MoveTargetKind int

const (
	MoveToParent MoveTargetKind = iota
	MoveBefore
	MoveAfter
)

// MoveTarget is the destination of a Move operation.
type MoveTarget struct {
	Kind    MoveTargetKind
	Parent  blockid.BlockId
	Index   *int
	Sibling blockid.BlockId
}

// MoveOp relocates BlockId to Target.
type MoveOp struct {
	BlockId blockid.BlockId
	Target  MoveTarget
}

// DeleteOp removes either a specific BlockId or every block matching
// Condition (spec §4.3.1 allows a WHERE-qualified delete).
type DeleteOp struct {
	BlockId          *blockid.BlockId
	Condition        *Condition
	Cascade          bool
	PreserveChildren bool
}

// PruneTargetKind selects between removing unreachable blocks and removing
// blocks matching a predicate.
type PruneTargetKind int

const (
	PruneUnreachableTarget PruneTargetKind = iota
	PruneWhereTarget
)

// PruneTarget is the selection criterion for a Prune operation.
type PruneTarget struct {
	Kind      PruneTargetKind
	Condition *Condition
}

// PruneOp removes blocks matching Target; with DryRun, reports what would
// be removed without mutating the document.
type PruneOp struct {
	Target  PruneTarget
	DryRun  bool
}

// LinkOp adds a typed edge from Source to Target.
type LinkOp struct {
	Source   blockid.BlockId
	EdgeType document.EdgeType
	Target   blockid.BlockId
	Metadata document.EdgeMetadata
}

// UnlinkOp removes a typed edge from Source to Target.
type UnlinkOp struct {
	Source   blockid.BlockId
	EdgeType document.EdgeType
	Target   blockid.BlockId
}

// FoldOp marks a subtree as folded for presentation purposes; it is a
// metadata-only change (spec §4.3.1).
type FoldOp struct {
	BlockId      blockid.BlockId
	Depth        *int
	MaxTokens    *int
	PreserveTags []string
}

// WriteSectionOp atomically replaces the subtree rooted at SectionId with
// Blocks arranged per Structure. Markdown→blocks lowering is delegated to
// the caller (spec §9 open question decision); the engine only guarantees
// the atomic swap.
type WriteSectionOp struct {
	SectionId blockid.BlockId
	Blocks    []*document.Block
	Structure map[blockid.BlockId][]blockid.BlockId
}

// SnapshotCommandKind selects the snapshot sub-operation.
type SnapshotCommandKind int

const (
	SnapshotCreate SnapshotCommandKind = iota
	SnapshotRestore
	SnapshotList
	SnapshotDelete
	SnapshotDiff
)

// SnapshotOp is the tagged union of snapshot sub-operations (spec §4.3.4).
type SnapshotOp struct {
	Kind        SnapshotCommandKind
	Name        string
	Name2       string // second name, for Diff
	Description string
}

// OperationResult is returned by every Apply call (spec §6.3).
type OperationResult struct {
	Success        bool
	AffectedBlocks []blockid.BlockId
	Warnings       []string
	Error          string
}

func failure(err error) OperationResult {
	return OperationResult{Success: false, Error: err.Error()}
}

func success(affected ...blockid.BlockId) OperationResult {
	return OperationResult{Success: true, AffectedBlocks: affected}
}
