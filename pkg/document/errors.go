package document

import (
	"errors"
	"fmt"

	"github.com/kittclouds/ucp/internal/blockid"
)

// StructureErrorKind is the closed set of ways a tree-structure operation
// can fail (spec §7 StructureError).
type StructureErrorKind string

const (
	StructureParentMissing StructureErrorKind = "parent_missing"
	StructureCycle         StructureErrorKind = "cycle"
	StructureRootDelete    StructureErrorKind = "root_delete"
)

// StructureError reports a violation of the rooted-tree invariant.
type StructureError struct {
	Kind  StructureErrorKind
	Block blockid.BlockId
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("document: structure error %s at %s", e.Kind, e.Block)
}

// LabelConflictError reports an attempt to register a label already held
// by a different block (spec §3.2 invariant 4).
type LabelConflictError struct {
	Label    string
	Existing blockid.BlockId
	Incoming blockid.BlockId
}

func (e *LabelConflictError) Error() string {
	return fmt.Sprintf("document: label %q already held by %s, cannot assign to %s",
		e.Label, e.Existing, e.Incoming)
}

// NotFoundError reports a reference to a block id absent from the document.
type NotFoundError struct {
	Id blockid.BlockId
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document: block not found: %s", e.Id)
}

// InvariantViolationError reports a consistency check failing outside the
// more specific error kinds above.
type InvariantViolationError struct {
	Message string
}

func (e *InvariantViolationError) Error() string {
	return "document: invariant violation: " + e.Message
}

// ErrNoSuchEdge is returned by RemoveEdge when the (source, edge_type,
// target) triple is not present on the source block.
var ErrNoSuchEdge = errors.New("document: no matching edge")
