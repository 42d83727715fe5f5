package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kittclouds/ucp/pkg/document"
)

// TransactionId identifies an active transaction (spec §4.3.3).
type TransactionId string

// TransactionErrorKind is the closed set of ways a transaction control call
// can fail (spec §7 TransactionError).
type TransactionErrorKind string

const (
	TxAlreadyActive    TransactionErrorKind = "already_active"
	TxNoneActive       TransactionErrorKind = "none_active"
	TxSavepointMissing TransactionErrorKind = "savepoint_missing"
)

// TransactionError reports a misuse of the transaction control surface.
type TransactionError struct {
	Kind TransactionErrorKind
	Name string
}

func (e *TransactionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("engine: transaction error %s: %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("engine: transaction error %s", e.Kind)
}

type savepoint struct {
	name     string
	preImage *document.Document
}

type transactionState struct {
	id         TransactionId
	preImage   *document.Document
	savepoints []savepoint
}

// Begin starts the engine's single active transaction, capturing a
// pre-image deep copy of the live document (spec §4.3.3). Only one
// transaction may be active at a time per the spec's Open Question
// decision recorded in DESIGN.md.
func (e *Engine) Begin() (TransactionId, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx != nil {
		return "", &TransactionError{Kind: TxAlreadyActive}
	}
	id := TransactionId(uuid.NewString())
	e.tx = &transactionState{id: id, preImage: e.doc.Clone()}
	e.logger.Info().Str("transaction_id", string(id)).Msg("transaction begin")
	return id, nil
}

// Commit discards the pre-image, ending the active transaction.
func (e *Engine) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx == nil {
		return &TransactionError{Kind: TxNoneActive}
	}
	e.logger.Info().Str("transaction_id", string(e.tx.id)).Msg("transaction commit")
	e.tx = nil
	return nil
}

// Rollback restores the pre-image and bumps the version counter so
// external observers see a change (spec §4.3.3).
func (e *Engine) Rollback() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx == nil {
		return &TransactionError{Kind: TxNoneActive}
	}
	e.restoreLocked(e.tx.preImage)
	e.logger.Info().Str("transaction_id", string(e.tx.id)).Msg("transaction rollback")
	e.tx = nil
	return nil
}

// Savepoint captures an intermediate pre-image under name, for later
// RollbackTo. Requires an active transaction.
func (e *Engine) Savepoint(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx == nil {
		return &TransactionError{Kind: TxNoneActive}
	}
	e.tx.savepoints = append(e.tx.savepoints, savepoint{name: name, preImage: e.doc.Clone()})
	return nil
}

// RollbackTo restores the document to the state captured by Savepoint(name)
// and discards any later savepoints.
func (e *Engine) RollbackTo(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx == nil {
		return &TransactionError{Kind: TxNoneActive}
	}
	for i := len(e.tx.savepoints) - 1; i >= 0; i-- {
		if e.tx.savepoints[i].name == name {
			e.restoreLocked(e.tx.savepoints[i].preImage)
			e.tx.savepoints = e.tx.savepoints[:i]
			return nil
		}
	}
	return &TransactionError{Kind: TxSavepointMissing, Name: name}
}

// restoreLocked swaps the live document for a clone of snapshot, bumping
// the version counter. Callers must hold e.mu.
func (e *Engine) restoreLocked(snapshot *document.Document) {
	restored := snapshot.Clone()
	restored.Version.Counter = e.doc.Version.Counter + 1
	e.doc = restored
	e.doc.Version.StateHash = computeStateHash(e.doc)
}

// inTransaction reports whether a transaction is currently active.
func (e *Engine) inTransaction() bool {
	return e.tx != nil
}

var errNotImplemented = errors.New("engine: not implemented")
