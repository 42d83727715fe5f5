package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
)

func newTestEngine() *Engine {
	return New(document.New("doc1"))
}

func TestApplyAppendThenEdit(t *testing.T) {
	e := newTestEngine()
	doc := e.Document()

	res, err := e.Apply(Operation{
		Kind: OpKindAppend,
		Append: &AppendOp{
			ParentId: doc.Root,
			Content:  content.Content{Kind: content.KindText, Text: "hello"},
			Label:    "intro",
		},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.AffectedBlocks, 1)
	id := res.AffectedBlocks[0]

	res, err = e.Apply(Operation{
		Kind: OpKindEdit,
		Edit: &EditOp{
			BlockId:  id,
			Path:     SimplePath("content", "text"),
			Operator: OpSet,
			Value:    String("goodbye"),
		},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	b, ok := e.Document().GetBlock(id)
	require.True(t, ok)
	assert.Equal(t, "goodbye", b.Content.Text)
}

func TestApplyFailureLeavesDocumentUnchanged(t *testing.T) {
	e := newTestEngine()
	before := e.Document().Version.StateHash

	_, err := e.Apply(Operation{
		Kind: OpKindEdit,
		Edit: &EditOp{
			BlockId:  blockid.MustNew(),
			Path:     SimplePath("content", "text"),
			Operator: OpSet,
			Value:    String("x"),
		},
	})
	require.Error(t, err)
	assert.Equal(t, before, e.Document().Version.StateHash)
}

// TestMoveCycleRejected mirrors scenario 2 of the engine's testable
// properties: a Move that would create a cycle is rejected and the document
// is left unchanged.
func TestMoveCycleRejected(t *testing.T) {
	e := newTestEngine()
	doc := e.Document()

	parentRes, err := e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: doc.Root, Content: content.Content{Kind: content.KindText, Text: "p"},
	}})
	require.NoError(t, err)
	parent := parentRes.AffectedBlocks[0]

	childRes, err := e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: parent, Content: content.Content{Kind: content.KindText, Text: "c"},
	}})
	require.NoError(t, err)
	child := childRes.AffectedBlocks[0]

	_, err = e.Apply(Operation{Kind: OpKindMove, Move: &MoveOp{
		BlockId: parent,
		Target:  MoveTarget{Kind: MoveToParent, Parent: child},
	}})
	require.Error(t, err)

	var structErr *document.StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, document.StructureCycle, structErr.Kind)
}

// TestDeletePreserveChildren mirrors scenario 3: deleting a block with
// preserve_children reparents its children at the deleted block's former
// position.
func TestDeletePreserveChildren(t *testing.T) {
	e := newTestEngine()
	doc := e.Document()

	pRes, err := e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: doc.Root, Content: content.Content{Kind: content.KindText, Text: "p"},
	}})
	require.NoError(t, err)
	p := pRes.AffectedBlocks[0]

	c1Res, err := e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: p, Content: content.Content{Kind: content.KindText, Text: "c1"},
	}})
	require.NoError(t, err)
	c1 := c1Res.AffectedBlocks[0]

	c2Res, err := e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: p, Content: content.Content{Kind: content.KindText, Text: "c2"},
	}})
	require.NoError(t, err)
	c2 := c2Res.AffectedBlocks[0]

	res, err := e.Apply(Operation{Kind: OpKindDelete, Delete: &DeleteOp{
		BlockId: &p, Cascade: false, PreserveChildren: true,
	}})
	require.NoError(t, err)
	assert.Equal(t, []blockid.BlockId{p}, res.AffectedBlocks)
	assert.Equal(t, []blockid.BlockId{c1, c2}, e.Document().Children(e.Document().Root))
}

// TestAtomicAllOrNothing mirrors scenario 4: if any sub-operation of an
// Atomic group fails, none of the group's effects are observable.
func TestAtomicAllOrNothing(t *testing.T) {
	e := newTestEngine()
	doc := e.Document()
	before := e.Document().Version.StateHash

	_, err := e.Apply(Operation{
		Kind: OpKindAtomic,
		Atomic: []Operation{
			{Kind: OpKindAppend, Append: &AppendOp{
				ParentId: doc.Root, Content: content.Content{Kind: content.KindText, Text: "ok"},
			}},
			{Kind: OpKindDelete, Delete: &DeleteOp{BlockId: ptrTo(blockid.MustNew())}},
		},
	})
	require.Error(t, err)
	assert.Equal(t, before, e.Document().Version.StateHash)
	assert.Empty(t, e.Document().Children(e.Document().Root))
}

func TestTransactionRollbackRestoresPreImage(t *testing.T) {
	e := newTestEngine()
	doc := e.Document()

	_, err := e.Begin()
	require.NoError(t, err)

	_, err = e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: doc.Root, Content: content.Content{Kind: content.KindText, Text: "temp"},
	}})
	require.NoError(t, err)
	assert.Len(t, e.Document().Children(e.Document().Root), 1)

	require.NoError(t, e.Rollback())
	assert.Empty(t, e.Document().Children(e.Document().Root))
}

func TestSnapshotCreateRestoreDiff(t *testing.T) {
	e := newTestEngine()
	doc := e.Document()

	require.NoError(t, e.CreateSnapshot("before", "empty doc"))

	res, err := e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: doc.Root, Content: content.Content{Kind: content.KindText, Text: "new"},
	}})
	require.NoError(t, err)
	id := res.AffectedBlocks[0]

	require.NoError(t, e.CreateSnapshot("after", "one block added"))

	diff, err := e.DiffSnapshot("before", "after")
	require.NoError(t, err)
	assert.Equal(t, []blockid.BlockId{id}, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.Empty(t, diff.Modified)

	require.NoError(t, e.RestoreSnapshot("before"))
	assert.Empty(t, e.Document().Children(e.Document().Root))
}

func TestApplyLinkAndUnlink(t *testing.T) {
	e := newTestEngine()
	doc := e.Document()

	aRes, err := e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: doc.Root, Content: content.Content{Kind: content.KindText, Text: "a"},
	}})
	require.NoError(t, err)
	a := aRes.AffectedBlocks[0]

	bRes, err := e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: doc.Root, Content: content.Content{Kind: content.KindText, Text: "b"},
	}})
	require.NoError(t, err)
	b := bRes.AffectedBlocks[0]

	_, err = e.Apply(Operation{Kind: OpKindLink, Link: &LinkOp{
		Source: a, EdgeType: document.EdgeReferences, Target: b,
	}})
	require.NoError(t, err)
	assert.Len(t, e.Document().Outgoing(a), 1)

	_, err = e.Apply(Operation{Kind: OpKindUnlink, Unlink: &UnlinkOp{
		Source: a, EdgeType: document.EdgeReferences, Target: b,
	}})
	require.NoError(t, err)
	assert.Empty(t, e.Document().Outgoing(a))
}

func TestApplyDeleteWhereCondition(t *testing.T) {
	e := newTestEngine()
	doc := e.Document()

	_, err := e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: doc.Root, Content: content.Content{Kind: content.KindText, Text: "keep"}, Label: "keep",
	}})
	require.NoError(t, err)
	_, err = e.Apply(Operation{Kind: OpKindAppend, Append: &AppendOp{
		ParentId: doc.Root, Content: content.Content{Kind: content.KindText, Text: "drop"}, Label: "drop",
	}})
	require.NoError(t, err)

	res, err := e.Apply(Operation{Kind: OpKindDelete, Delete: &DeleteOp{
		Cascade: true,
		Condition: &Condition{
			Kind:  CondComparison,
			Path:  SimplePath("content", "text"),
			Op:    CmpEq,
			Value: String("drop"),
		},
	}})
	require.NoError(t, err)
	assert.Len(t, res.AffectedBlocks, 1)
	assert.Len(t, e.Document().Children(e.Document().Root), 1)
}

func ptrTo(id blockid.BlockId) *blockid.BlockId { return &id }
