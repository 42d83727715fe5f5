package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
)

func textBlock(text string) *Block {
	return &Block{
		Id:      blockid.MustNew(),
		Content: content.Content{Kind: content.KindText, Text: text},
	}
}

func TestAddBlockAppendsAndIndexes(t *testing.T) {
	d := New("doc1")
	b := textBlock("hello")
	b.Metadata.Tags = []string{"greeting"}
	b.Metadata.Label = "intro"

	id, err := d.AddBlock(b, d.Root, nil)
	require.NoError(t, err)
	assert.Equal(t, b.Id, id)
	assert.Equal(t, []blockid.BlockId{id}, d.Children(d.Root))
	assert.Equal(t, []blockid.BlockId{id}, d.ByTag("greeting"))
	assert.Equal(t, []blockid.BlockId{id}, d.ByType("text"))
	got, ok := d.ByLabel("intro")
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestAddBlockRejectsUnknownParent(t *testing.T) {
	d := New("doc1")
	_, err := d.AddBlock(textBlock("x"), blockid.MustNew(), nil)
	require.Error(t, err)
	var structErr *StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, StructureParentMissing, structErr.Kind)
}

func TestAddBlockRejectsLabelConflict(t *testing.T) {
	d := New("doc1")
	a := textBlock("a")
	a.Metadata.Label = "dup"
	_, err := d.AddBlock(a, d.Root, nil)
	require.NoError(t, err)

	b := textBlock("b")
	b.Metadata.Label = "dup"
	_, err = d.AddBlock(b, d.Root, nil)
	require.Error(t, err)
	var conflict *LabelConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestMoveSubtreeRejectsCycle(t *testing.T) {
	d := New("doc1")
	a := textBlock("a")
	_, err := d.AddBlock(a, d.Root, nil)
	require.NoError(t, err)
	b := textBlock("b")
	_, err = d.AddBlock(b, a.Id, nil)
	require.NoError(t, err)

	err = d.MoveSubtree(a.Id, b.Id, nil)
	require.Error(t, err)
	var structErr *StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, StructureCycle, structErr.Kind)

	assert.Equal(t, []blockid.BlockId{a.Id}, d.Children(d.Root))
	assert.Equal(t, []blockid.BlockId{b.Id}, d.Children(a.Id))
}

func TestDeletePreserveChildren(t *testing.T) {
	d := New("doc1")
	p := textBlock("p")
	_, err := d.AddBlock(p, d.Root, nil)
	require.NoError(t, err)
	c1 := textBlock("c1")
	_, err = d.AddBlock(c1, p.Id, nil)
	require.NoError(t, err)
	c2 := textBlock("c2")
	_, err = d.AddBlock(c2, p.Id, nil)
	require.NoError(t, err)

	removed, err := d.Delete(p.Id, false, true)
	require.NoError(t, err)
	assert.Equal(t, []blockid.BlockId{p.Id}, removed)
	assert.Equal(t, []blockid.BlockId{c1.Id, c2.Id}, d.Children(d.Root))
	_, ok := d.GetBlock(p.Id)
	assert.False(t, ok)
}

func TestDeleteCascadeRemovesDescendants(t *testing.T) {
	d := New("doc1")
	p := textBlock("p")
	_, err := d.AddBlock(p, d.Root, nil)
	require.NoError(t, err)
	c1 := textBlock("c1")
	_, err = d.AddBlock(c1, p.Id, nil)
	require.NoError(t, err)

	removed, err := d.Delete(p.Id, true, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []blockid.BlockId{p.Id, c1.Id}, removed)
	assert.Empty(t, d.Children(d.Root))
	_, ok := d.GetBlock(c1.Id)
	assert.False(t, ok)
}

func TestDeleteRootRejected(t *testing.T) {
	d := New("doc1")
	_, err := d.Delete(d.Root, true, false)
	require.Error(t, err)
	var structErr *StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, StructureRootDelete, structErr.Kind)
}

func TestAddEdgeUpdatesBothSidesOfIndex(t *testing.T) {
	d := New("doc1")
	a := textBlock("a")
	_, err := d.AddBlock(a, d.Root, nil)
	require.NoError(t, err)
	b := textBlock("b")
	_, err = d.AddBlock(b, d.Root, nil)
	require.NoError(t, err)

	err = d.AddEdge(a.Id, Edge{EdgeType: EdgeReferences, Target: b.Id})
	require.NoError(t, err)

	out := d.Outgoing(a.Id)
	require.Len(t, out, 1)
	assert.Equal(t, b.Id, out[0].Target)

	in := d.Incoming(b.Id)
	require.Len(t, in, 1)
	assert.Equal(t, a.Id, in[0].Target)
}

func TestAddEdgeDuplicateIsIdempotent(t *testing.T) {
	d := New("doc1")
	a := textBlock("a")
	_, err := d.AddBlock(a, d.Root, nil)
	require.NoError(t, err)
	b := textBlock("b")
	_, err = d.AddBlock(b, d.Root, nil)
	require.NoError(t, err)

	require.NoError(t, d.AddEdge(a.Id, Edge{EdgeType: EdgeReferences, Target: b.Id}))
	require.NoError(t, d.AddEdge(a.Id, Edge{EdgeType: EdgeReferences, Target: b.Id}))
	assert.Len(t, d.GetBlockMustExist(t, a.Id).Edges, 1)
}

func TestRemoveEdgeRequiresExistingTriple(t *testing.T) {
	d := New("doc1")
	a := textBlock("a")
	_, err := d.AddBlock(a, d.Root, nil)
	require.NoError(t, err)
	b := textBlock("b")
	_, err = d.AddBlock(b, d.Root, nil)
	require.NoError(t, err)

	err = d.RemoveEdge(a.Id, EdgeReferences, b.Id)
	assert.ErrorIs(t, err, ErrNoSuchEdge)
}

func TestFindOrphansAndPrune(t *testing.T) {
	d := New("doc1")
	a := textBlock("a")
	_, err := d.AddBlock(a, d.Root, nil)
	require.NoError(t, err)

	orphan := textBlock("orphan")
	d.Blocks[orphan.Id] = orphan // simulate corruption bypassing AddBlock

	orphans := d.FindOrphans()
	assert.Equal(t, []blockid.BlockId{orphan.Id}, orphans)

	removed := d.PruneUnreachable()
	require.Len(t, removed, 1)
	assert.Equal(t, orphan.Id, removed[0].Id)
	assert.Empty(t, d.FindOrphans())
}

func TestRebuildIndicesRecomputesFromPrimaryState(t *testing.T) {
	d := New("doc1")
	a := textBlock("a")
	a.Metadata.Tags = []string{"x"}
	_, err := d.AddBlock(a, d.Root, nil)
	require.NoError(t, err)
	b := textBlock("b")
	_, err = d.AddBlock(b, d.Root, nil)
	require.NoError(t, err)
	require.NoError(t, d.AddEdge(a.Id, Edge{EdgeType: EdgeReferences, Target: b.Id}))

	require.NoError(t, d.RebuildIndices())

	assert.Equal(t, []blockid.BlockId{a.Id}, d.ByTag("x"))
	out := d.Outgoing(a.Id)
	require.Len(t, out, 1)
	assert.Equal(t, b.Id, out[0].Target)
}

// GetBlockMustExist is a test-only helper kept small and local rather than
// adding a panic-on-miss accessor to the public API.
func (d *Document) GetBlockMustExist(t *testing.T, id blockid.BlockId) *Block {
	t.Helper()
	b, ok := d.GetBlock(id)
	require.True(t, ok)
	return b
}
