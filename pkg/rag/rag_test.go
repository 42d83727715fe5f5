package rag

import (
	"testing"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
)

func newTestDoc(t *testing.T) (*document.Document, blockid.BlockId, blockid.BlockId) {
	t.Helper()
	doc := document.New("doc1")

	apple := &document.Block{
		Id:      blockid.MustNew(),
		Content: content.Content{Kind: content.KindText, Text: "the orchard grows apples and pears"},
		Metadata: document.BlockMetadata{
			Label: "orchard notes",
		},
	}
	if _, err := doc.AddBlock(apple, doc.Root, nil); err != nil {
		t.Fatalf("add apple block: %v", err)
	}

	rocket := &document.Block{
		Id:      blockid.MustNew(),
		Content: content.Content{Kind: content.KindText, Text: "the rocket launched into orbit"},
		Metadata: document.BlockMetadata{
			Label: "launch log",
		},
	}
	if _, err := doc.AddBlock(rocket, doc.Root, nil); err != nil {
		t.Fatalf("add rocket block: %v", err)
	}

	return doc, apple.Id, rocket.Id
}

func TestEmbedIsDeterministic(t *testing.T) {
	a := hashEmbed("the orchard grows apples and pears")
	b := hashEmbed("the orchard grows apples and pears")
	if len(a) != Dimensions || len(b) != Dimensions {
		t.Fatalf("expected %d dims, got %d and %d", Dimensions, len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding for identical text diverged at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEmbedDistinguishesUnrelatedText(t *testing.T) {
	a := hashEmbed("the orchard grows apples and pears")
	b := hashEmbed("the rocket launched into orbit")
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if dot > 0.9 {
		t.Fatalf("expected unrelated text to have low cosine similarity, got %v", dot)
	}
}

func TestDocumentReadyThenSearchFindsNearestBlock(t *testing.T) {
	store, err := NewVectorStore()
	if err != nil {
		t.Fatalf("new vector store: %v", err)
	}
	defer store.Close()

	doc, appleID, _ := newTestDoc(t)
	provider := NewProvider(store, doc.Id)
	provider.DocumentReady(doc)

	queryVec, err := provider.Embed("apples and pears in the orchard")
	if err != nil {
		t.Fatalf("embed query: %v", err)
	}

	matches, err := provider.Search(queryVec, 1, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].BlockId != appleID {
		t.Fatalf("expected nearest match to be the orchard block, got %s", matches[0].BlockId)
	}
	if matches[0].Preview == "" {
		t.Fatalf("expected a non-empty preview")
	}
}

func TestDocumentReadyPrunesRemovedBlocks(t *testing.T) {
	store, err := NewVectorStore()
	if err != nil {
		t.Fatalf("new vector store: %v", err)
	}
	defer store.Close()

	doc, appleID, rocketID := newTestDoc(t)
	provider := NewProvider(store, doc.Id)
	provider.DocumentReady(doc)

	delete(doc.Blocks, rocketID)
	doc.Structure[doc.Root] = []blockid.BlockId{appleID}
	provider.DocumentReady(doc)

	var count int
	if err := store.db.QueryRow(`SELECT count(*) FROM rag_blocks WHERE document_id = ?`, doc.Id).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 remaining indexed block after pruning, got %d", count)
	}
}
