package ucl

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
	"github.com/kittclouds/ucp/pkg/engine"
)

// literalToContent interprets a BlockDef's raw literal text per its declared
// ContentType, producing the tagged content.Content the document store
// keeps (spec §3.1).
func literalToContent(ct ContentType, lang, lit string) (content.Content, error) {
	switch ct {
	case ContentText:
		return content.Content{Kind: content.KindText, Text: lit, TextFormat: content.TextMarkdown}, nil
	case ContentCode:
		return content.Content{Kind: content.KindCode, Language: lang, Source: lit}, nil
	case ContentMath:
		return content.Content{Kind: content.KindMath, Expression: lit, MathFormat: content.MathLatex}, nil
	case ContentMedia:
		return content.Content{Kind: content.KindMedia, MediaSource: content.MediaReference, MediaRef: lit}, nil
	case ContentJson:
		var v any
		if err := json.Unmarshal([]byte(lit), &v); err != nil {
			return content.Content{}, fmt.Errorf("ucl: invalid json content literal: %w", err)
		}
		return content.Content{Kind: content.KindJson, Value: json.RawMessage(lit)}, nil
	case ContentBinary:
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(lit))
		if err != nil {
			return content.Content{}, fmt.Errorf("ucl: invalid base64 binary content literal: %w", err)
		}
		return content.Content{Kind: content.KindBinary, Bytes: raw, Encoding: content.BinaryBase64}, nil
	case ContentTable:
		return parseTableLiteral(lit)
	case ContentComposite:
		return parseCompositeLiteral(lit)
	default:
		return content.Content{}, fmt.Errorf("ucl: unknown content type %v", ct)
	}
}

// parseTableLiteral reads pipe-delimited rows, `|a|b|c|` per line, the first
// row naming the columns.
func parseTableLiteral(lit string) (content.Content, error) {
	lines := strings.Split(strings.TrimRight(lit, "\n"), "\n")
	var rows [][]string
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		trimmed := strings.Trim(line, "|")
		cells := strings.Split(trimmed, "|")
		for i, c := range cells {
			cells[i] = strings.TrimSpace(c)
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return content.Content{Kind: content.KindTable}, nil
	}
	return content.Content{Kind: content.KindTable, Columns: rows[0], Rows: rows[1:]}, nil
}

// parseCompositeLiteral reads a comma-separated list of block ids naming the
// composite's children.
func parseCompositeLiteral(lit string) (content.Content, error) {
	var children []blockid.BlockId
	for _, part := range strings.Split(lit, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := blockIdOf(part)
		if err != nil {
			return content.Content{}, fmt.Errorf("ucl: invalid composite child %q: %w", part, err)
		}
		children = append(children, id)
	}
	return content.Content{Kind: content.KindComposite, Children: children, Layout: content.CompositeLayout{Kind: "vertical"}}, nil
}

// buildBlock turns a parsed BlockDef into a document.Block, computing its
// content hash up front (the store recomputes it on every mutation, but a
// freshly-lowered block needs one for the initial load).
func buildBlock(bd BlockDef) (*document.Block, error) {
	id, err := blockIdOf(bd.Id)
	if err != nil {
		return nil, fmt.Errorf("ucl: block %q: %w", bd.Id, err)
	}
	c, err := literalToContent(bd.ContentType, bd.Language, bd.Literal)
	if err != nil {
		return nil, fmt.Errorf("ucl: block %q: %w", bd.Id, err)
	}
	hash, err := content.HashHex(c)
	if err != nil {
		return nil, fmt.Errorf("ucl: block %q: %w", bd.Id, err)
	}

	now := time.Now().UTC()
	meta := document.BlockMetadata{ContentHash: hash, CreatedAt: now, ModifiedAt: now}
	if v, ok := bd.Properties["label"]; ok {
		meta.Label = v.String
	}
	if v, ok := bd.Properties["tags"]; ok {
		for _, e := range v.Array {
			meta.Tags = append(meta.Tags, e.String)
		}
	}
	if v, ok := bd.Properties["category"]; ok {
		role := &document.SemanticRole{Category: document.SemanticCategory(v.String)}
		if sub, ok := bd.Properties["subcategory"]; ok {
			role.Subcategory = sub.String
		}
		meta.SemanticRole = role
	}
	if v, ok := bd.Properties["summary"]; ok {
		meta.Summary = v.String
	}

	return &document.Block{Id: id, Content: c, Metadata: meta}, nil
}

// BuildDocument lowers a fully-parsed UclDocument — its STRUCTURE and BLOCKS
// sections — into a fresh *document.Document, bulk-loading it in
// breadth-first order from the reserved root. BLOCKS entries not reachable
// from root through STRUCTURE are rejected, matching the engine's own
// structure-validity invariant (spec §3.2 invariant 2).
func BuildDocument(id string, parsed *UclDocument) (*document.Document, error) {
	defs := make(map[string]BlockDef, len(parsed.Blocks))
	for _, bd := range parsed.Blocks {
		defs[bd.Id] = bd
	}

	doc := document.New(id)
	rootText := blockid.Root.String()

	type pending struct {
		parentText string
		childText  string
	}
	var queue []pending
	for _, childText := range parsed.Structure[rootText] {
		queue = append(queue, pending{parentText: rootText, childText: childText})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		bd, ok := defs[cur.childText]
		if !ok {
			return nil, fmt.Errorf("ucl: STRUCTURE references block %q with no BLOCKS entry", cur.childText)
		}
		block, err := buildBlock(bd)
		if err != nil {
			return nil, err
		}
		parentID, err := blockIdOf(cur.parentText)
		if err != nil {
			return nil, fmt.Errorf("ucl: invalid parent id %q: %w", cur.parentText, err)
		}
		if _, err := doc.AddBlock(block, parentID, nil); err != nil {
			return nil, fmt.Errorf("ucl: adding block %q: %w", cur.childText, err)
		}

		for _, grandchildText := range parsed.Structure[cur.childText] {
			queue = append(queue, pending{parentText: cur.childText, childText: grandchildText})
		}
	}

	// doc.Blocks holds the root plus every BLOCKS entry placed above.
	if placed := len(doc.Blocks) - 1; placed < len(defs) {
		return nil, fmt.Errorf("ucl: %d BLOCKS entries are not reachable from root through STRUCTURE", len(defs)-placed)
	}

	return doc, nil
}

// ApplyAll runs every operation in ops against e in order, stopping and
// returning the first error. Each operation is validated and applied
// independently through Engine.Apply — a COMMANDS section is a transcript
// of independent mutations, not an implicit Atomic group; wrap ops in a
// single OpKindAtomic beforehand for all-or-nothing semantics.
func ApplyAll(e *engine.Engine, ops []engine.Operation) ([]engine.OperationResult, error) {
	results := make([]engine.OperationResult, 0, len(ops))
	for i, op := range ops {
		res, err := e.Apply(op)
		if err != nil {
			return results, fmt.Errorf("ucl: command %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}
