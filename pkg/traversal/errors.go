// Package traversal implements bounded, cursor-based agent navigation over
// a document snapshot: sessions with history and a context window,
// breadth-first expansion, pattern/content search, shortest-path lookup,
// and UCL execution gated by per-session capabilities (spec §4.5).
package traversal

import (
	"fmt"

	"github.com/kittclouds/ucp/internal/blockid"
)

// LimitKind names which quota a LimitExceeded error reports.
type LimitKind string

const (
	LimitMaxSessions           LimitKind = "max_sessions"
	LimitMaxContextTokens      LimitKind = "max_context_tokens"
	LimitMaxContextBlocks      LimitKind = "max_context_blocks"
	LimitMaxExpandDepth        LimitKind = "max_expand_depth"
	LimitMaxResultsPerOp       LimitKind = "max_results_per_operation"
	LimitMaxTotalContextBlocks LimitKind = "max_total_context_blocks"
)

// SessionNotFoundError reports a lookup against an unknown or closed
// AgentSessionId.
type SessionNotFoundError struct {
	Id AgentSessionId
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("traversal: session %s not found", e.Id)
}

// BlockNotFoundError reports an operation against a block absent from the
// session's current document snapshot. A cursor that UpdateDocument has
// already marked dangling reports DocumentChangedError instead.
type BlockNotFoundError struct {
	Id blockid.BlockId
}

func (e *BlockNotFoundError) Error() string {
	return fmt.Sprintf("traversal: block %s not found", e.Id)
}

// LimitExceededError reports a per-session or global quota violation.
type LimitExceededError struct {
	Which LimitKind
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("traversal: limit exceeded: %s", e.Which)
}

// CapabilityDeniedError reports a call against a capability the session was
// not granted.
type CapabilityDeniedError struct {
	Capability string
}

func (e *CapabilityDeniedError) Error() string {
	return fmt.Sprintf("traversal: capability denied: %s", e.Capability)
}

// RateLimitedError reports the global token-bucket limiter rejecting a call.
type RateLimitedError struct{}

func (e *RateLimitedError) Error() string { return "traversal: rate limited" }

// UnsupportedCapabilityError reports a call requiring a collaborator the
// session was never wired with (e.g. search with no RAGProvider attached).
type UnsupportedCapabilityError struct {
	Operation string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("traversal: unsupported: %s", e.Operation)
}

// DocumentChangedError reports that UpdateDocument invalidated the cursor
// the caller was relying on.
type DocumentChangedError struct{}

func (e *DocumentChangedError) Error() string { return "traversal: document changed, cursor invalidated" }

// InternalError wraps an unexpected failure from a collaborator (store,
// estimator, RAG provider).
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return fmt.Sprintf("traversal: internal error: %v", e.Err) }
func (e *InternalError) Unwrap() error { return e.Err }
