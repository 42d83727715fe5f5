package ucl

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
	"github.com/kittclouds/ucp/pkg/engine"
)

func TestTokenizeEditCommand(t *testing.T) {
	id := blockid.MustNew().String()
	toks, err := Tokenize(fmt.Sprintf(`EDIT %s SET content.text = "hi"`, id))
	require.NoError(t, err)

	kinds := make([]TokenKind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	// "text" lexes as the TokTextType content-type keyword, not a plain
	// identifier — parsePath accepts any keyword token as a property name
	// via its text, so this does not affect path resolution.
	assert.Equal(t, []TokenKind{
		TokEdit, TokBlockId, TokSet, TokIdentifier, TokDot, TokTextType, TokEq, TokString, TokEOF,
	}, kinds)
}

func TestParseEditSetsPathOperatorAndValue(t *testing.T) {
	id := blockid.MustNew()
	src := fmt.Sprintf(`EDIT %s SET content.text = "hello world"`, id)

	ops, err := ParseCommandsOnly(src)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	op := ops[0]
	require.Equal(t, engine.OpKindEdit, op.Kind)
	assert.Equal(t, id, op.Edit.BlockId)
	assert.Equal(t, engine.SimplePath("content", "text"), op.Edit.Path)
	assert.Equal(t, engine.OpSet, op.Edit.Operator)
	assert.Equal(t, engine.String("hello world"), op.Edit.Value)
	assert.Nil(t, op.Edit.Condition)
}

func TestParseEditWithWhereCondition(t *testing.T) {
	id := blockid.MustNew()
	src := fmt.Sprintf(`EDIT %s SET content.text = "new" WHERE content.text == "old"`, id)

	ops, err := ParseCommandsOnly(src)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	cond := ops[0].Edit.Condition
	require.NotNil(t, cond)
	assert.Equal(t, engine.CondComparison, cond.Kind)
	assert.Equal(t, engine.CmpEq, cond.Op)
	assert.Equal(t, engine.String("old"), cond.Value)
}

func TestParseEditWithCompoundWhereCondition(t *testing.T) {
	id := blockid.MustNew()
	src := fmt.Sprintf(`EDIT %s SET content.text = "new" WHERE content.text == "old" AND metadata.tags CONTAINS "draft"`, id)

	ops, err := ParseCommandsOnly(src)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	cond := ops[0].Edit.Condition
	require.NotNil(t, cond)
	require.Equal(t, engine.CondAnd, cond.Kind)
	assert.Equal(t, engine.CondComparison, cond.Left.Kind)
	assert.Equal(t, engine.CondContains, cond.Right.Kind)
	assert.Equal(t, engine.String("draft"), cond.Right.Value)
}

func TestParseAppendWithLabelAndTags(t *testing.T) {
	parent := blockid.MustNew()
	src := fmt.Sprintf(`APPEND TO %s WITH text """a new paragraph""" { label: "intro", tags: ["greeting", "draft"] }`, parent)

	ops, err := ParseCommandsOnly(src)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	app := ops[0].Append
	require.NotNil(t, app)
	assert.Equal(t, parent, app.ParentId)
	assert.Equal(t, "a new paragraph", app.Content.Text)
	assert.Equal(t, "intro", app.Label)
	assert.Equal(t, []string{"greeting", "draft"}, app.Tags)
}

func TestParseAppendCodeWithLanguage(t *testing.T) {
	parent := blockid.MustNew()
	src := fmt.Sprintf("APPEND TO %s WITH code(python) ```\nprint(1)\n```", parent)

	ops, err := ParseCommandsOnly(src)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	app := ops[0].Append
	require.NotNil(t, app)
	assert.Equal(t, "python", app.Content.Language)
	assert.Equal(t, "print(1)\n", app.Content.Source)
}

func TestParseMoveForms(t *testing.T) {
	a, b := blockid.MustNew(), blockid.MustNew()

	opsTo, err := ParseCommandsOnly(fmt.Sprintf("MOVE %s TO %s", a, b))
	require.NoError(t, err)
	require.Equal(t, engine.MoveToParent, opsTo[0].Move.Target.Kind)
	assert.Equal(t, b, opsTo[0].Move.Target.Parent)

	opsBefore, err := ParseCommandsOnly(fmt.Sprintf("MOVE %s BEFORE %s", a, b))
	require.NoError(t, err)
	require.Equal(t, engine.MoveBefore, opsBefore[0].Move.Target.Kind)
	assert.Equal(t, b, opsBefore[0].Move.Target.Sibling)

	opsAfter, err := ParseCommandsOnly(fmt.Sprintf("MOVE %s AFTER %s", a, b))
	require.NoError(t, err)
	require.Equal(t, engine.MoveAfter, opsAfter[0].Move.Target.Kind)
}

func TestParseDeleteWhereCondition(t *testing.T) {
	ops, err := ParseCommandsOnly(`DELETE WHERE content.text == "drop" CASCADE`)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	del := ops[0].Delete
	require.NotNil(t, del)
	require.Nil(t, del.BlockId)
	require.NotNil(t, del.Condition)
	assert.True(t, del.Cascade)
}

func TestParsePruneUnreachableDryRun(t *testing.T) {
	ops, err := ParseCommandsOnly(`PRUNE UNREACHABLE DRY_RUN`)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, engine.PruneUnreachableTarget, ops[0].Prune.Target.Kind)
	assert.True(t, ops[0].Prune.DryRun)
}

func TestParseLinkAndUnlink(t *testing.T) {
	a, b := blockid.MustNew(), blockid.MustNew()

	linkOps, err := ParseCommandsOnly(fmt.Sprintf("LINK %s References %s", a, b))
	require.NoError(t, err)
	require.Equal(t, document.EdgeReferences, linkOps[0].Link.EdgeType)

	unlinkOps, err := ParseCommandsOnly(fmt.Sprintf("UNLINK %s References %s", a, b))
	require.NoError(t, err)
	require.Equal(t, document.EdgeReferences, unlinkOps[0].Unlink.EdgeType)
}

func TestParseFoldWithOptions(t *testing.T) {
	id := blockid.MustNew()
	ops, err := ParseCommandsOnly(fmt.Sprintf(`FOLD %s DEPTH 2 MAX_TOKENS 500 PRESERVE_TAGS ["keep"]`, id))
	require.NoError(t, err)
	require.Len(t, ops, 1)

	fold := ops[0].Fold
	require.NotNil(t, fold.Depth)
	assert.Equal(t, 2, *fold.Depth)
	require.NotNil(t, fold.MaxTokens)
	assert.Equal(t, 500, *fold.MaxTokens)
	assert.Equal(t, []string{"keep"}, fold.PreserveTags)
}

func TestParseSnapshotCommands(t *testing.T) {
	create, err := ParseCommandsOnly(`SNAPSHOT CREATE "v1" "before the rewrite"`)
	require.NoError(t, err)
	assert.Equal(t, engine.OpKindCreateSnapshot, create[0].Kind)
	assert.Equal(t, "v1", create[0].Snapshot.Name)
	assert.Equal(t, "before the rewrite", create[0].Snapshot.Description)

	diff, err := ParseCommandsOnly(`SNAPSHOT DIFF "v1" "v2"`)
	require.NoError(t, err)
	assert.Equal(t, engine.OpKindDiffSnapshot, diff[0].Kind)
	assert.Equal(t, "v1", diff[0].Snapshot.Name)
	assert.Equal(t, "v2", diff[0].Snapshot.Name2)
}

func TestParseAtomicGroup(t *testing.T) {
	a, b := blockid.MustNew(), blockid.MustNew()
	src := fmt.Sprintf(`ATOMIC {
		EDIT %s SET content.text = "x"
		LINK %s References %s
	}`, a, a, b)

	ops, err := ParseCommandsOnly(src)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, engine.OpKindAtomic, ops[0].Kind)
	require.Len(t, ops[0].Atomic, 2)
	assert.Equal(t, engine.OpKindEdit, ops[0].Atomic[0].Kind)
	assert.Equal(t, engine.OpKindLink, ops[0].Atomic[1].Kind)
}

func TestBuildDocumentFromStructureAndBlocks(t *testing.T) {
	root := blockid.Root.String()
	child := blockid.MustNew().String()
	grandchild := blockid.MustNew().String()

	src := fmt.Sprintf(`STRUCTURE
%s : %s
%s : %s

BLOCKS
%s text { label: "section" } """Intro"""
%s code(go) ` + "```\nfunc main() {}\n```", root, child, child, grandchild, child, grandchild)

	parsed, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, parsed.Blocks, 2)

	doc, err := BuildDocument("doc1", parsed)
	require.NoError(t, err)

	childID, err := blockIdOf(child)
	require.NoError(t, err)
	grandchildID, err := blockIdOf(grandchild)
	require.NoError(t, err)

	assert.Equal(t, []blockid.BlockId{childID}, doc.Children(doc.Root))
	assert.Equal(t, []blockid.BlockId{grandchildID}, doc.Children(childID))

	childBlock, ok := doc.GetBlock(childID)
	require.True(t, ok)
	assert.Equal(t, "Intro", childBlock.Content.Text)
	assert.Equal(t, "section", childBlock.Metadata.Label)

	grandchildBlock, ok := doc.GetBlock(grandchildID)
	require.True(t, ok)
	assert.Equal(t, "go", grandchildBlock.Content.Language)
}

func TestApplyAllRunsCommandsAgainstEngine(t *testing.T) {
	doc := document.New("doc1")
	e := engine.New(doc)

	src := fmt.Sprintf(`APPEND TO %s WITH text """hello""" { label: "greeting" }`, doc.Root.String())

	ops, err := ParseCommandsOnly(src)
	require.NoError(t, err)

	results, err := ApplyAll(e, ops)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	found := false
	for _, id := range e.Document().Children(e.Document().Root) {
		b, ok := e.Document().GetBlock(id)
		require.True(t, ok)
		if b.Metadata.Label == "greeting" {
			found = true
		}
	}
	assert.True(t, found)
}
