package engine

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
)

// ValidationError carries a full ValidationReport from an aborted mutation
// (spec §7 ValidationError).
type ValidationError struct {
	Report ValidationReport
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("engine: validation failed with %d issue(s)", len(e.Report.Issues))
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithPipeline overrides the default ValidationPipeline.
func WithPipeline(p *ValidationPipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// WithEstimator overrides the default token estimator.
func WithEstimator(est *content.Estimator) Option {
	return func(e *Engine) { e.estimator = est }
}

// WithLogger overrides the default zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine is the sole mutator of a Document: it is a single-writer,
// multi-reader component (spec §5) guarding doc behind a RWMutex, exposing
// the closed Operation set plus transaction and snapshot controls.
type Engine struct {
	mu        sync.RWMutex
	doc       *document.Document
	pipeline  *ValidationPipeline
	estimator *content.Estimator
	tx        *transactionState
	snapshots map[string]*namedSnapshot
	logger    zerolog.Logger
}

// New constructs an Engine over doc with the default validation pipeline
// and token estimator, recomputing the initial state hash.
func New(doc *document.Document, opts ...Option) *Engine {
	e := &Engine{
		doc:       doc,
		pipeline:  DefaultPipeline(),
		estimator: content.NewEstimator(nil),
		snapshots: make(map[string]*namedSnapshot),
		logger:    zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.doc.Version.StateHash = computeStateHash(e.doc)
	return e
}

// Document returns an immutable snapshot of the document as of this call
// (spec §5 "readers ... see a consistent snapshot" / "immutable snapshot
// handle"). Apply mutates the live document's maps in place under e.mu, so
// handing out that pointer directly would let a reader walk Structure/
// Blocks concurrently with a write; cloning under the read lock, the same
// Clone used for Apply's own pre-image, gives every reader its own
// point-in-time copy safe to use without holding any engine lock.
func (e *Engine) Document() *document.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Clone()
}

// Apply validates, performs, and reindexes a single Operation (or an
// Atomic group) as one unit. On any error the document is left bit-for-bit
// as it was before the call; the version counter only advances on success
// (spec §4.3.1, §8.1 "Transaction atomicity").
func (e *Engine) Apply(op Operation) (OperationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	preImage := e.doc.Clone()
	result, err := e.applyOperation(op)
	if err != nil {
		e.doc = preImage
		return failure(err), err
	}

	if e.pipeline.ValidateOnOperation {
		report := e.pipeline.Run(e.doc)
		if !report.Valid {
			e.doc = preImage
			verr := &ValidationError{Report: report}
			return failure(verr), verr
		}
		for _, issue := range report.Issues {
			if issue.Severity != SeverityError {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
			}
		}
	}

	e.doc.Version.Counter++
	e.doc.Version.Timestamp = time.Now().UTC()
	e.doc.Version.StateHash = computeStateHash(e.doc)
	result.Success = true
	e.logger.Debug().
		Int("kind", int(op.Kind)).
		Uint64("version", e.doc.Version.Counter).
		Int("affected", len(result.AffectedBlocks)).
		Msg("operation applied")
	return result, nil
}

// Validate runs the validation pipeline against the live document without
// mutating it (spec §6.4).
func (e *Engine) Validate() ValidationReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pipeline.Run(e.doc)
}
