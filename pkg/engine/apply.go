package engine

import (
	"fmt"
	"time"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
)

// applyOperation dispatches op against e.doc without locking, validating,
// or touching the version counter — Apply (and Atomic's recursive calls)
// own that bookkeeping.
func (e *Engine) applyOperation(op Operation) (OperationResult, error) {
	switch op.Kind {
	case OpKindEdit:
		return e.applyEdit(op.Edit)
	case OpKindAppend:
		return e.applyAppend(op.Append)
	case OpKindMove:
		return e.applyMove(op.Move)
	case OpKindDelete:
		return e.applyDelete(op.Delete)
	case OpKindPrune:
		return e.applyPrune(op.Prune)
	case OpKindLink:
		return e.applyLink(op.Link)
	case OpKindUnlink:
		return e.applyUnlink(op.Unlink)
	case OpKindFold:
		return e.applyFold(op.Fold)
	case OpKindWriteSection:
		return e.applyWriteSection(op.WriteSection)
	case OpKindCreateSnapshot, OpKindRestoreSnapshot, OpKindDeleteSnapshot, OpKindDiffSnapshot:
		return e.applySnapshotOp(op.Snapshot)
	case OpKindAtomic:
		return e.applyAtomic(op.Atomic)
	default:
		return OperationResult{}, fmt.Errorf("engine: unknown operation kind %v", op.Kind)
	}
}

func (e *Engine) applyEdit(op *EditOp) (OperationResult, error) {
	b, ok := e.doc.GetBlock(op.BlockId)
	if !ok {
		return OperationResult{}, &document.NotFoundError{Id: op.BlockId}
	}

	if op.Condition != nil {
		matched, err := Eval(blockToDynamic(b), *op.Condition)
		if err != nil {
			return OperationResult{}, err
		}
		if !matched {
			return OperationResult{Warnings: []string{"EDIT condition did not match; no-op"}}, nil
		}
	}

	tree := blockToDynamic(b)
	current, err := Get(tree, op.Path)
	if err != nil {
		current = nil
	}
	updated, err := ApplyOperator(current, op.Operator, op.Value)
	if err != nil {
		return OperationResult{}, err
	}
	newTree, err := Set(tree, op.Path, updated)
	if err != nil {
		return OperationResult{}, err
	}
	treeMap, ok := newTree.(map[string]any)
	if !ok {
		return OperationResult{}, fmt.Errorf("engine: edit produced a non-object root")
	}
	if err := applyDynamicToBlock(b, treeMap); err != nil {
		return OperationResult{}, err
	}
	if err := refreshDerived(b, e.estimator); err != nil {
		return OperationResult{}, err
	}
	b.Metadata.ModifiedAt = time.Now().UTC()
	b.Version.Counter++
	b.Version.Timestamp = b.Metadata.ModifiedAt

	return success(op.BlockId), nil
}

func (e *Engine) applyAppend(op *AppendOp) (OperationResult, error) {
	now := time.Now().UTC()
	id, err := blockid.New()
	if err != nil {
		return OperationResult{}, err
	}
	b := &document.Block{
		Id:      id,
		Content: op.Content,
		Metadata: document.BlockMetadata{
			Label:        op.Label,
			Tags:         append([]string{}, op.Tags...),
			SemanticRole: op.SemanticRole,
			CreatedAt:    now,
			ModifiedAt:   now,
		},
		Version: document.BlockVersion{Counter: 1, Timestamp: now},
	}
	if err := refreshDerived(b, e.estimator); err != nil {
		return OperationResult{}, err
	}

	newID, err := e.doc.AddBlock(b, op.ParentId, op.Index)
	if err != nil {
		return OperationResult{}, err
	}
	return success(newID), nil
}

func (e *Engine) applyMove(op *MoveOp) (OperationResult, error) {
	var newParent blockid.BlockId
	var index *int

	switch op.Target.Kind {
	case MoveToParent:
		newParent = op.Target.Parent
		index = op.Target.Index
	case MoveBefore, MoveAfter:
		parent, ok := e.doc.Parent(op.Target.Sibling)
		if !ok {
			return OperationResult{}, &document.NotFoundError{Id: op.Target.Sibling}
		}
		newParent = parent
		siblingIdx := -1
		for i, c := range e.doc.Children(parent) {
			if c == op.Target.Sibling {
				siblingIdx = i
				break
			}
		}
		if siblingIdx == -1 {
			return OperationResult{}, &document.NotFoundError{Id: op.Target.Sibling}
		}
		pos := siblingIdx
		if op.Target.Kind == MoveAfter {
			pos = siblingIdx + 1
		}
		index = &pos
	default:
		return OperationResult{}, fmt.Errorf("engine: unknown move target kind %v", op.Target.Kind)
	}

	if err := e.doc.MoveSubtree(op.BlockId, newParent, index); err != nil {
		return OperationResult{}, err
	}
	return success(op.BlockId), nil
}

func (e *Engine) applyDelete(op *DeleteOp) (OperationResult, error) {
	var targets []blockid.BlockId
	if op.BlockId != nil {
		targets = []blockid.BlockId{*op.BlockId}
	} else if op.Condition != nil {
		targets = e.matchingBlocks(*op.Condition)
	} else {
		return OperationResult{}, fmt.Errorf("engine: DELETE requires a block id or a WHERE condition")
	}

	var affected []blockid.BlockId
	var warnings []string
	for _, id := range targets {
		removed, err := e.doc.Delete(id, op.Cascade, op.PreserveChildren)
		if err != nil {
			if _, ok := err.(*document.NotFoundError); ok && op.BlockId == nil {
				warnings = append(warnings, fmt.Sprintf("DELETE: %s already absent", id))
				continue
			}
			return OperationResult{}, err
		}
		affected = append(affected, removed...)
	}
	res := success(affected...)
	res.Warnings = warnings
	return res, nil
}

func (e *Engine) applyPrune(op *PruneOp) (OperationResult, error) {
	switch op.Target.Kind {
	case PruneUnreachableTarget:
		if op.DryRun {
			return success(e.doc.FindOrphans()...), nil
		}
		removed := e.doc.PruneUnreachable()
		ids := make([]blockid.BlockId, len(removed))
		for i, b := range removed {
			ids[i] = b.Id
		}
		return success(ids...), nil
	case PruneWhereTarget:
		if op.Target.Condition == nil {
			return OperationResult{}, fmt.Errorf("engine: PRUNE WHERE requires a condition")
		}
		matches := e.matchingBlocks(*op.Target.Condition)
		if op.DryRun {
			return success(matches...), nil
		}
		var affected []blockid.BlockId
		for _, id := range matches {
			removed, err := e.doc.Delete(id, true, false)
			if err != nil {
				continue
			}
			affected = append(affected, removed...)
		}
		return success(affected...), nil
	default:
		return OperationResult{}, fmt.Errorf("engine: unknown prune target kind %v", op.Target.Kind)
	}
}

func (e *Engine) matchingBlocks(cond Condition) []blockid.BlockId {
	ids := make([]blockid.BlockId, 0, len(e.doc.Blocks))
	for id := range e.doc.Blocks {
		ids = append(ids, id)
	}
	var matches []blockid.BlockId
	for _, id := range blockid.SortedSet(ids) {
		b, _ := e.doc.GetBlock(id)
		ok, err := Eval(blockToDynamic(b), cond)
		if err == nil && ok {
			matches = append(matches, id)
		}
	}
	return matches
}

func (e *Engine) applyLink(op *LinkOp) (OperationResult, error) {
	edge := document.Edge{
		EdgeType:  op.EdgeType,
		Target:    op.Target,
		Metadata:  op.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.doc.AddEdge(op.Source, edge); err != nil {
		return OperationResult{}, err
	}
	return success(op.Source, op.Target), nil
}

func (e *Engine) applyUnlink(op *UnlinkOp) (OperationResult, error) {
	if err := e.doc.RemoveEdge(op.Source, op.EdgeType, op.Target); err != nil {
		return OperationResult{}, err
	}
	return success(op.Source, op.Target), nil
}

func (e *Engine) applyFold(op *FoldOp) (OperationResult, error) {
	b, ok := e.doc.GetBlock(op.BlockId)
	if !ok {
		return OperationResult{}, &document.NotFoundError{Id: op.BlockId}
	}
	if b.Metadata.Custom == nil {
		b.Metadata.Custom = map[string]any{}
	}
	folded := map[string]any{"preserve_tags": op.PreserveTags}
	if op.Depth != nil {
		folded["depth"] = *op.Depth
	}
	if op.MaxTokens != nil {
		folded["max_tokens"] = *op.MaxTokens
	}
	b.Metadata.Custom["folded"] = folded
	b.Metadata.ModifiedAt = time.Now().UTC()
	return success(op.BlockId), nil
}

// applyWriteSection atomically swaps the subtree rooted at SectionId for
// op.Blocks/op.Structure. The caller supplies already-lowered blocks (spec
// §9 open question decision); the engine only guarantees the swap is
// all-or-nothing.
func (e *Engine) applyWriteSection(op *WriteSectionOp) (OperationResult, error) {
	section, ok := e.doc.GetBlock(op.SectionId)
	if !ok {
		return OperationResult{}, &document.NotFoundError{Id: op.SectionId}
	}
	parent, hadParent := e.doc.Parent(op.SectionId)
	if !hadParent {
		return OperationResult{}, fmt.Errorf("engine: cannot WriteSection on the document root")
	}

	if _, err := e.doc.Delete(op.SectionId, true, false); err != nil {
		return OperationResult{}, err
	}

	affected := []blockid.BlockId{section.Id}
	for _, b := range op.Blocks {
		if err := refreshDerived(b, e.estimator); err != nil {
			return OperationResult{}, err
		}
		bp := parent
		for p, children := range op.Structure {
			for _, c := range children {
				if c == b.Id {
					bp = p
				}
			}
		}
		if _, err := e.doc.AddBlock(b, bp, nil); err != nil {
			return OperationResult{}, err
		}
		affected = append(affected, b.Id)
	}
	return success(affected...), nil
}

func (e *Engine) applySnapshotOp(op *SnapshotOp) (OperationResult, error) {
	switch op.Kind {
	case SnapshotCreate:
		if err := e.createSnapshotLocked(op.Name, op.Description); err != nil {
			return OperationResult{}, err
		}
		return success(), nil
	case SnapshotRestore:
		if err := e.restoreSnapshotLocked(op.Name); err != nil {
			return OperationResult{}, err
		}
		return success(), nil
	case SnapshotDelete:
		if _, ok := e.snapshots[op.Name]; !ok {
			return OperationResult{}, fmt.Errorf("%w: %q", ErrSnapshotNotFound, op.Name)
		}
		delete(e.snapshots, op.Name)
		return success(), nil
	case SnapshotList, SnapshotDiff:
		// List/Diff are read-only queries, not mutations; callers use
		// ListSnapshots/DiffSnapshot directly rather than routing through Apply.
		return OperationResult{}, fmt.Errorf("engine: use ListSnapshots/DiffSnapshot directly for read-only snapshot queries")
	default:
		return OperationResult{}, fmt.Errorf("engine: unknown snapshot op kind %v", op.Kind)
	}
}

// createSnapshotLocked/restoreSnapshotLocked assume e.mu is already held by
// Apply; they exist so SnapshotCreate/Restore commands lowered from UCL
// route through the same Apply/version-bump path as every other operation.
func (e *Engine) createSnapshotLocked(name, description string) error {
	if _, exists := e.snapshots[name]; exists {
		return fmt.Errorf("%w: %q", ErrSnapshotExists, name)
	}
	e.snapshots[name] = &namedSnapshot{
		info: SnapshotInfo{Name: name, Description: description, CreatedAt: time.Now().UTC()},
		doc:  e.doc.Clone(),
	}
	return nil
}

func (e *Engine) restoreSnapshotLocked(name string) error {
	snap, ok := e.snapshots[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSnapshotNotFound, name)
	}
	// Keep the live counter so Apply's bump leaves it above its pre-restore
	// value rather than resuming from the snapshot's older one.
	restored := snap.doc.Clone()
	restored.Version.Counter = e.doc.Version.Counter
	e.doc = restored
	return nil
}

func (e *Engine) applyAtomic(ops []Operation) (OperationResult, error) {
	var affected []blockid.BlockId
	var warnings []string
	for _, sub := range ops {
		res, err := e.applyOperation(sub)
		if err != nil {
			return OperationResult{}, err
		}
		affected = append(affected, res.AffectedBlocks...)
		warnings = append(warnings, res.Warnings...)
	}
	res := success(affected...)
	res.Warnings = warnings
	return res, nil
}
