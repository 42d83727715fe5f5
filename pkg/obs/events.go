// Package obs is the thin observability layer spec.md §2 calls for:
// structured events, audit entries, and metric counters. It does not own
// any logger itself — pkg/engine already carries its own zerolog.Logger
// field for line-level diagnostics (operation application, transaction
// begin/commit/rollback), and pkg/codegraph reports walk problems as
// diagnostics rather than log lines. Recorder sits one level up: named,
// structured event methods a caller invokes at the boundaries those
// packages don't log themselves (session lifecycle, search, codegraph
// build completion), in the same "one method per event kind, fixed fields"
// shape as the pack's own higher-level logging helper.
package obs

import (
	"time"

	"github.com/rs/zerolog"
)

// Recorder emits structured domain events through zerolog. The zero value
// is safe to use and discards everything, mirroring the teacher's pattern
// of a zero-value-safe logger field rather than requiring a nil check at
// every call site.
type Recorder struct {
	log zerolog.Logger
}

// NewRecorder wraps an existing zerolog.Logger.
func NewRecorder(logger zerolog.Logger) *Recorder {
	return &Recorder{log: logger}
}

// SessionCreated records a traversal session coming into existence.
func (r *Recorder) SessionCreated(sessionID, name string) {
	r.log.Info().
		Str("event", "session_created").
		Str("session_id", sessionID).
		Str("name", name).
		Time("at", time.Now()).
		Msg("traversal session created")
}

// SessionClosed records a traversal session being torn down.
func (r *Recorder) SessionClosed(sessionID string, lifetime time.Duration) {
	r.log.Info().
		Str("event", "session_closed").
		Str("session_id", sessionID).
		Dur("lifetime", lifetime).
		Msg("traversal session closed")
}

// RateLimited records a call rejected by the global token bucket.
func (r *Recorder) RateLimited(sessionID, operation string) {
	r.log.Warn().
		Str("event", "rate_limited").
		Str("session_id", sessionID).
		Str("operation", operation).
		Msg("call rejected by rate limiter")
}

// SearchPerformed records one search() call and its result count.
func (r *Recorder) SearchPerformed(sessionID, query string, matchCount int, elapsed time.Duration) {
	r.log.Info().
		Str("event", "search_performed").
		Str("session_id", sessionID).
		Int("query_len", len(query)).
		Int("match_count", matchCount).
		Dur("elapsed", elapsed).
		Msg("search performed")
}

// UclExecuted records an execute_ucl call, auditing which session wrote
// how many operations and whether it succeeded — the audit-entry half of
// this package's job, since execute_ucl is the one write path traversal
// sessions have onto the document.
func (r *Recorder) UclExecuted(sessionID string, operationCount int, err error) {
	ev := r.log.Info()
	if err != nil {
		ev = r.log.Warn()
	}
	ev.Str("event", "ucl_executed").
		Str("session_id", sessionID).
		Int("operation_count", operationCount).
		AnErr("error", err).
		Msg("execute_ucl completed")
}

// CodeGraphBuilt records a completed codegraph build, successful or not.
func (r *Recorder) CodeGraphBuilt(repoPath string, fileCount, symbolCount int, status string, elapsed time.Duration) {
	r.log.Info().
		Str("event", "codegraph_built").
		Str("repo_path", repoPath).
		Int("file_count", fileCount).
		Int("symbol_count", symbolCount).
		Str("status", status).
		Dur("elapsed", elapsed).
		Msg("codegraph build finished")
}

// ValidationFailed records an operation rejected by the engine's
// validation pipeline, the audit trail for spec §7's ValidationError.
func (r *Recorder) ValidationFailed(transactionID string, issueCount int) {
	r.log.Warn().
		Str("event", "validation_failed").
		Str("transaction_id", transactionID).
		Int("issue_count", issueCount).
		Msg("operation rejected by validation pipeline")
}
