package traversal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
	"github.com/kittclouds/ucp/pkg/engine"
)

func block(text string) *document.Block {
	return &document.Block{
		Id:      blockid.MustNew(),
		Content: content.Content{Kind: content.KindText, Text: text},
	}
}

type testIds struct {
	root, a, b, c blockid.BlockId
}

func buildTestDocument(t *testing.T) (*document.Document, testIds) {
	t.Helper()
	doc := document.New("doc1")

	a := block("section a")
	a.Metadata.Tags = []string{"intro"}
	a.Metadata.Label = "a"
	_, err := doc.AddBlock(a, doc.Root, nil)
	require.NoError(t, err)

	b := block("section b")
	b.Metadata.Tags = []string{"body"}
	_, err = doc.AddBlock(b, doc.Root, nil)
	require.NoError(t, err)

	c := block("child of a")
	_, err = doc.AddBlock(c, a.Id, nil)
	require.NoError(t, err)

	require.NoError(t, doc.AddEdge(a.Id, document.Edge{EdgeType: document.EdgeReferences, Target: b.Id}))

	return doc, testIds{root: doc.Root, a: a.Id, b: b.Id, c: c.Id}
}

func TestCreateGetCloseSession(t *testing.T) {
	eng := engine.New(document.New("doc1"))
	mgr := NewManager(eng, DefaultGlobalLimits())

	id, err := mgr.CreateSession(Config{Limits: DefaultLimits(), Capabilities: DefaultCapabilities()})
	require.NoError(t, err)

	sess, err := mgr.GetSession(id)
	require.NoError(t, err)
	assert.Equal(t, eng.Document().Root, sess.Cursor().Current)

	require.NoError(t, mgr.CloseSession(id))
	_, err = mgr.GetSession(id)
	require.Error(t, err)
	var notFound *SessionNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCreateSessionEnforcesMaxSessions(t *testing.T) {
	eng := engine.New(document.New("doc1"))
	mgr := NewManager(eng, GlobalLimits{MaxSessions: 1, MaxTotalContextBlocks: 10, MaxOpsPerSecond: 100})

	_, err := mgr.CreateSession(Config{Limits: DefaultLimits(), Capabilities: DefaultCapabilities()})
	require.NoError(t, err)

	_, err = mgr.CreateSession(Config{Limits: DefaultLimits(), Capabilities: DefaultCapabilities()})
	require.Error(t, err)
	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, LimitMaxSessions, limitErr.Which)
}

func TestExpandAllDirections(t *testing.T) {
	doc, ids := buildTestDocument(t)
	eng := engine.New(doc)
	mgr := NewManager(eng, DefaultGlobalLimits())
	sessID, err := mgr.CreateSession(Config{Limits: DefaultLimits(), Capabilities: DefaultCapabilities()})
	require.NoError(t, err)
	sess, err := mgr.GetSession(sessID)
	require.NoError(t, err)

	down, err := sess.Expand(ids.root, DirDown, ExpandOptions{Depth: 2})
	require.NoError(t, err)
	require.Len(t, down.Levels, 2)
	assert.ElementsMatch(t, []blockid.BlockId{ids.a, ids.b}, down.Levels[0])
	assert.Equal(t, []blockid.BlockId{ids.c}, down.Levels[1])

	up, err := sess.Expand(ids.c, DirUp, ExpandOptions{Depth: 5})
	require.NoError(t, err)
	assert.Equal(t, []blockid.BlockId{ids.a}, up.Levels[0])
	assert.Equal(t, []blockid.BlockId{ids.root}, up.Levels[1])

	both, err := sess.Expand(ids.a, DirBoth, ExpandOptions{Depth: 1})
	require.NoError(t, err)
	assert.ElementsMatch(t, []blockid.BlockId{ids.c, ids.root}, both.Levels[0])

	sem, err := sess.Expand(ids.a, DirSemantic, ExpandOptions{Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, []blockid.BlockId{ids.b}, sem.Levels[0])
}

func TestViewBlockModes(t *testing.T) {
	doc, ids := buildTestDocument(t)
	eng := engine.New(doc)
	mgr := NewManager(eng, DefaultGlobalLimits())
	sessID, err := mgr.CreateSession(Config{Limits: DefaultLimits(), Capabilities: DefaultCapabilities()})
	require.NoError(t, err)
	sess, err := mgr.GetSession(sessID)
	require.NoError(t, err)

	idsOnly, err := sess.ViewBlock(nil, ids.a, ViewIdsOnly, 0)
	require.NoError(t, err)
	assert.Empty(t, idsOnly.Label)

	meta, err := sess.ViewBlock(nil, ids.a, ViewMetadata, 0)
	require.NoError(t, err)
	assert.Equal(t, "a", meta.Label)
	assert.Empty(t, meta.Preview)

	preview, err := sess.ViewBlock(nil, ids.a, ViewPreview, 4)
	require.NoError(t, err)
	assert.Equal(t, "sect", preview.Preview)

	full, err := sess.ViewBlock(nil, ids.a, ViewFull, 0)
	require.NoError(t, err)
	require.NotNil(t, full.Full)
	assert.Equal(t, "section a", full.Full.Content.Text)
}

func TestViewBlockUsesSharedRenderCache(t *testing.T) {
	doc, ids := buildTestDocument(t)
	eng := engine.New(doc)
	mgr := NewManager(eng, DefaultGlobalLimits())
	sessID, err := mgr.CreateSession(Config{Limits: DefaultLimits(), Capabilities: DefaultCapabilities()})
	require.NoError(t, err)
	sess, err := mgr.GetSession(sessID)
	require.NoError(t, err)

	cache := newRenderCache(16)
	first, err := sess.ViewBlock(cache, ids.a, ViewFull, 0)
	require.NoError(t, err)
	second, err := sess.ViewBlock(cache, ids.a, ViewFull, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFindByPattern(t *testing.T) {
	doc, ids := buildTestDocument(t)
	eng := engine.New(doc)
	mgr := NewManager(eng, DefaultGlobalLimits())
	sessID, err := mgr.CreateSession(Config{Limits: DefaultLimits(), Capabilities: DefaultCapabilities()})
	require.NoError(t, err)
	sess, err := mgr.GetSession(sessID)
	require.NoError(t, err)

	matches, err := sess.FindByPattern(PatternQuery{Tag: "intro"})
	require.NoError(t, err)
	assert.Equal(t, []blockid.BlockId{ids.a}, matches)

	matches, err = sess.FindByPattern(PatternQuery{ContentRegex: "child"})
	require.NoError(t, err)
	assert.Equal(t, []blockid.BlockId{ids.c}, matches)
}

func TestFindPath(t *testing.T) {
	doc, ids := buildTestDocument(t)
	eng := engine.New(doc)
	mgr := NewManager(eng, DefaultGlobalLimits())
	sessID, err := mgr.CreateSession(Config{Limits: DefaultLimits(), Capabilities: DefaultCapabilities()})
	require.NoError(t, err)
	sess, err := mgr.GetSession(sessID)
	require.NoError(t, err)

	result, err := sess.FindPath(ids.c, ids.b, 0)
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, ids.c, result.Path[0])
	assert.Equal(t, ids.b, result.Path[len(result.Path)-1])

	unreachable, err := sess.FindPath(ids.c, ids.b, 1)
	require.NoError(t, err)
	assert.False(t, unreachable.Found)
}

func TestContextWindowRespectsLimits(t *testing.T) {
	doc, ids := buildTestDocument(t)
	eng := engine.New(doc)
	mgr := NewManager(eng, DefaultGlobalLimits())
	limits := DefaultLimits()
	limits.MaxContextBlocks = 1
	sessID, err := mgr.CreateSession(Config{Limits: limits, Capabilities: DefaultCapabilities()})
	require.NoError(t, err)
	sess, err := mgr.GetSession(sessID)
	require.NoError(t, err)

	require.NoError(t, sess.ContextAdd(ids.a, 0.9))
	err = sess.ContextAdd(ids.b, 0.5)
	require.Error(t, err)
	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, LimitMaxContextBlocks, limitErr.Which)

	require.NoError(t, sess.ContextFocus(ids.a))
	entries := sess.ContextEntries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Focus)

	require.NoError(t, sess.ContextClear())
	assert.Empty(t, sess.ContextEntries())
}

func TestExecuteUclGatedByCapability(t *testing.T) {
	doc, _ := buildTestDocument(t)
	eng := engine.New(doc)
	mgr := NewManager(eng, DefaultGlobalLimits())

	caps := DefaultCapabilities()
	caps.CanModifyContext = false
	sessID, err := mgr.CreateSession(Config{Limits: DefaultLimits(), Capabilities: caps})
	require.NoError(t, err)
	sess, err := mgr.GetSession(sessID)
	require.NoError(t, err)

	_, err = sess.ExecuteUcl(`APPEND TO ` + doc.Root.String() + ` WITH text """hi"""`)
	require.Error(t, err)
	var denied *CapabilityDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestExecuteUclAppliesThroughEngine(t *testing.T) {
	doc, _ := buildTestDocument(t)
	eng := engine.New(doc)
	mgr := NewManager(eng, DefaultGlobalLimits())

	sessID, err := mgr.CreateSession(Config{Limits: DefaultLimits(), Capabilities: DefaultCapabilities()})
	require.NoError(t, err)
	sess, err := mgr.GetSession(sessID)
	require.NoError(t, err)

	results, err := sess.ExecuteUcl(`APPEND TO ` + doc.Root.String() + ` WITH text """hi""" { label: "greeting" }`)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
}

func TestUpdateDocumentMarksDanglingCursor(t *testing.T) {
	doc, ids := buildTestDocument(t)
	eng := engine.New(doc)
	mgr := NewManager(eng, DefaultGlobalLimits())

	start := ids.c
	sessID, err := mgr.CreateSession(Config{StartBlock: &start, Limits: DefaultLimits(), Capabilities: DefaultCapabilities()})
	require.NoError(t, err)
	sess, err := mgr.GetSession(sessID)
	require.NoError(t, err)

	_, err = doc.Delete(ids.c, false, false)
	require.NoError(t, err)

	mgr.UpdateDocument()

	_, err = sess.ViewNeighborhood()
	require.Error(t, err)
	var changed *DocumentChangedError
	require.ErrorAs(t, err, &changed)
}

func TestSessionTimeoutReaping(t *testing.T) {
	doc, _ := buildTestDocument(t)
	eng := engine.New(doc)
	mgr := NewManager(eng, DefaultGlobalLimits())

	limits := DefaultLimits()
	limits.SessionTimeout = time.Millisecond
	sessID, err := mgr.CreateSession(Config{Limits: limits, Capabilities: DefaultCapabilities()})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	reaped := mgr.ReapIdle()
	assert.Contains(t, reaped, sessID)

	_, err = mgr.GetSession(sessID)
	require.Error(t, err)
}
