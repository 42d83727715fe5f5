package rag

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
	"github.com/kittclouds/ucp/pkg/traversal"
)

// Provider implements traversal.RAGProvider over a VectorStore. One
// Provider is meant to be attached per session via Session.AttachRAGProvider
// (spec §4.5.1); a single VectorStore may back several Providers, each
// scoped to a different document id.
type Provider struct {
	store      *VectorStore
	documentID string
}

var _ traversal.RAGProvider = (*Provider)(nil)

// NewProvider returns a Provider over store, scoped to documentID — the
// value DocumentReady's snapshots are expected to carry as their Id.
func NewProvider(store *VectorStore, documentID string) *Provider {
	return &Provider{store: store, documentID: documentID}
}

// Embed hashes text into a Dimensions-wide unit vector (spec §6.6
// `embed(text) → vector<f32>`).
func (p *Provider) Embed(text string) ([]float32, error) {
	return hashEmbed(text), nil
}

// Search runs a k-NN query over the attached document's indexed blocks and
// returns matches at or above minSimilarity, nearest first (spec §6.6
// `search(query_vec, k, min_similarity) → [{block_id, similarity, preview?}]`).
func (p *Provider) Search(vec []float32, k int, minSimilarity float64) ([]traversal.SearchMatch, error) {
	if k <= 0 {
		return nil, nil
	}
	blob, err := serialize(vec)
	if err != nil {
		return nil, fmt.Errorf("rag: serialize query vector: %w", err)
	}

	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	rows, err := p.store.db.Query(`
		SELECT v.rowid, v.distance, b.block_id, b.preview
		FROM rag_vectors v
		JOIN rag_blocks b ON b.rowid_ref = v.rowid
		WHERE v.embedding MATCH ? AND k = ? AND b.document_id = ?
		ORDER BY v.distance
	`, blob, k, p.documentID)
	if err != nil {
		return nil, fmt.Errorf("rag: search query: %w", err)
	}
	defer rows.Close()

	var matches []traversal.SearchMatch
	for rows.Next() {
		var rowid int64
		var distance float64
		var blockIDStr, preview string
		if err := rows.Scan(&rowid, &distance, &blockIDStr, &preview); err != nil {
			return nil, fmt.Errorf("rag: scan search row: %w", err)
		}
		similarity := cosineFromL2(distance)
		if similarity < minSimilarity {
			continue
		}
		id, err := blockid.Parse(blockIDStr)
		if err != nil {
			return nil, fmt.Errorf("rag: parse indexed block id %q: %w", blockIDStr, err)
		}
		matches = append(matches, traversal.SearchMatch{
			BlockId:    id,
			Similarity: similarity,
			Preview:    preview,
		})
	}
	return matches, rows.Err()
}

// DocumentReady re-embeds every block of doc and reconciles the index
// against it: blocks that changed get re-upserted, blocks no longer present
// get dropped (spec §6.6 "called on snapshot updates"). Called by
// traversal.Session.ExecuteUcl after a write lands.
func (p *Provider) DocumentReady(doc *document.Document) {
	if doc == nil || doc.Id != p.documentID {
		return
	}

	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	ids := make([]blockid.BlockId, 0, len(doc.Blocks))
	for id := range doc.Blocks {
		if id == doc.Root {
			continue
		}
		ids = append(ids, id)
	}

	for _, id := range blockid.SortedSet(ids) {
		b := doc.Blocks[id]
		text := blockSearchText(b)
		vec := hashEmbed(text)
		if err := p.upsertBlock(id, previewOf(text), vec); err != nil {
			continue // best-effort: a single bad block never blocks the rest of the index
		}
	}

	p.pruneMissing(ids)
}

// upsertBlock replaces any existing index row for id with a fresh one.
// vec0 rows are awkward to UPDATE in place across sqlite-vec's supported
// versions, so upsert here is delete-then-insert under the same lock.
func (p *Provider) upsertBlock(id blockid.BlockId, preview string, vec []float32) error {
	idStr := id.String()

	tx, err := p.store.db.Begin()
	if err != nil {
		return fmt.Errorf("rag: begin upsert: %w", err)
	}
	defer tx.Rollback()

	if err := deleteBlockTx(tx, idStr); err != nil {
		return err
	}

	res, err := tx.Exec(
		`INSERT INTO rag_blocks (block_id, document_id, preview, updated_at) VALUES (?, ?, ?, ?)`,
		idStr, p.documentID, preview, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("rag: insert block row: %w", err)
	}
	rowid, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("rag: read inserted rowid: %w", err)
	}

	blob, err := serialize(vec)
	if err != nil {
		return fmt.Errorf("rag: serialize embedding: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO rag_vectors (rowid, embedding) VALUES (?, ?)`, rowid, blob); err != nil {
		return fmt.Errorf("rag: insert vector row: %w", err)
	}

	return tx.Commit()
}

// pruneMissing deletes indexed rows for this document whose block id is no
// longer present in the snapshot just processed.
func (p *Provider) pruneMissing(present []blockid.BlockId) {
	keep := make(map[string]struct{}, len(present))
	for _, id := range present {
		keep[id.String()] = struct{}{}
	}

	rows, err := p.store.db.Query(`SELECT block_id FROM rag_blocks WHERE document_id = ?`, p.documentID)
	if err != nil {
		return
	}
	var stale []string
	for rows.Next() {
		var blockID string
		if err := rows.Scan(&blockID); err != nil {
			continue
		}
		if _, ok := keep[blockID]; !ok {
			stale = append(stale, blockID)
		}
	}
	rows.Close()

	for _, blockID := range stale {
		tx, err := p.store.db.Begin()
		if err != nil {
			continue
		}
		if deleteBlockTx(tx, blockID) == nil {
			tx.Commit()
		} else {
			tx.Rollback()
		}
	}
}

// deleteBlockTx removes any existing rag_blocks/rag_vectors rows for
// blockID within tx.
func deleteBlockTx(tx *sql.Tx, blockID string) error {
	var rowid sql.NullInt64
	err := tx.QueryRow(`SELECT rowid_ref FROM rag_blocks WHERE block_id = ?`, blockID).Scan(&rowid)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rag: lookup existing row: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM rag_vectors WHERE rowid = ?`, rowid.Int64); err != nil {
		return fmt.Errorf("rag: delete stale vector row: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM rag_blocks WHERE block_id = ?`, blockID); err != nil {
		return fmt.Errorf("rag: delete stale block row: %w", err)
	}
	return nil
}

// blockSearchText builds the text embedded and stored as a block's preview:
// label and tags first (the part a human scans a result list by), then the
// block's own normalized content — mirroring pkg/traversal's contentPreview
// dispatch, independently implemented here since that helper is unexported.
func blockSearchText(b *document.Block) string {
	var parts []string
	if b.Metadata.Label != "" {
		parts = append(parts, b.Metadata.Label)
	}
	parts = append(parts, b.Metadata.Tags...)

	normalized, err := content.Normalize(b.Content)
	if err == nil {
		parts = append(parts, string(normalized))
	} else if b.Metadata.Summary != "" {
		parts = append(parts, b.Metadata.Summary)
	}

	text := strings.Join(parts, " ")
	if len(text) > embedTextMaxLen {
		text = text[:embedTextMaxLen]
	}
	return text
}

// previewOf shortens embed text down to the length stored as a search
// result's human-facing preview.
func previewOf(text string) string {
	if len(text) > previewMaxLen {
		return text[:previewMaxLen]
	}
	return text
}

// embedTextMaxLen caps how much of a block's normalized content is fed to
// the embedder. previewMaxLen further shortens that down to what's stored
// and returned as a search result's preview.
const (
	embedTextMaxLen = 2000
	previewMaxLen   = 240
)
