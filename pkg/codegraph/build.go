package codegraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
	"github.com/kittclouds/ucp/pkg/obs"
	"github.com/kittclouds/ucp/pkg/pool"
)

// nodeClass is the block-tree role every non-root block in a codegraph
// document carries (spec §4.6 "Document construction").
type nodeClass string

const (
	classRepository nodeClass = "repository"
	classDirectory  nodeClass = "directory"
	classFile       nodeClass = "file"
	classSymbol     nodeClass = "symbol"
)

// BuildResult is the outcome of BuildCodeGraph: the constructed document,
// its validation/build diagnostics, summary stats, and fingerprint.
type BuildResult struct {
	Document    *document.Document
	Status      BuildStatus
	Diagnostics []Diagnostic
	Stats       Stats
	Fingerprint string
}

// BuildCodeGraph walks input.RepositoryPath, parses every included source
// file, and assembles a codegraph.v1 profile document: a repository node,
// one directory node per ancestor directory, one file node per source
// file, and one symbol node per top-level declaration, linked by
// import-reference and export edges (spec §4.6).
func BuildCodeGraph(ctx context.Context, input BuildInput) (BuildResult, error) {
	start := time.Now()
	config := input.Config
	if len(config.IncludeExtensions) == 0 {
		config = DefaultExtractorConfig()
	}

	repoRoot, err := filepath.Abs(input.RepositoryPath)
	if err != nil {
		return BuildResult{}, fmt.Errorf("codegraph: resolve repository path: %w", err)
	}
	if info, err := os.Stat(repoRoot); err != nil || !info.IsDir() {
		return BuildResult{}, fmt.Errorf("codegraph: repository path %q is not a directory", repoRoot)
	}

	var diagnostics []Diagnostic

	matcher, err := newGitignoreMatcher(repoRoot)
	if err != nil {
		return BuildResult{}, err
	}

	files, err := collectRepositoryFiles(repoRoot, config, matcher, &diagnostics)
	if err != nil {
		return BuildResult{}, err
	}

	knownFiles := make(map[string]struct{}, len(files))
	for _, f := range files {
		knownFiles[f.relativePath] = struct{}{}
	}

	docID := sanitizeIdentifier(filepath.Base(repoRoot))
	if input.CommitHash != "" {
		docID = docID + "@" + sanitizeIdentifier(input.CommitHash)
	}
	doc := document.New(docID)
	doc.Metadata.Custom = map[string]any{
		"profile":           ProfileMarker,
		"profile_version":   ProfileVersion,
		"extractor_version": ExtractorVersion,
	}
	if input.CommitHash != "" {
		doc.Metadata.Custom["commit_hash"] = input.CommitHash
	}
	doc.Metadata.CreatedAt = deterministicEpoch
	doc.Metadata.ModifiedAt = deterministicEpoch

	repoName := filepath.Base(repoRoot)
	repoKey := "repository:" + repoName
	repoSummary := pool.GetMap()
	repoSummary["name"] = repoName
	repoSummary["commit"] = input.CommitHash
	repoID, err := addBlock(doc, doc.Root, repoName, classRepository, repoKey,
		repoSummary,
		map[string]any{},
	)
	if err != nil {
		return BuildResult{}, err
	}

	dirBlocks := map[string]blockid.BlockId{"": repoID}
	keyCounts := map[string]int{}

	stats := Stats{Languages: map[string]int{}}
	stats.RepositoryNodes = 1

	for _, f := range files {
		parentID, err := ensureDirectoryChain(doc, repoID, dirBlocks, keyCounts, parentDirectory(f.relativePath))
		if err != nil {
			return BuildResult{}, err
		}

		source, err := os.ReadFile(f.absolutePath)
		if err != nil {
			diagnostics = append(diagnostics, errorDiag("CG2005", fmt.Sprintf("failed to read %s: %v", f.relativePath, err)).withPath(f.relativePath))
			continue
		}
		if config.MaxFileBytes > 0 && len(source) > config.MaxFileBytes {
			diagnostics = append(diagnostics, warningDiag("CG2008", fmt.Sprintf("skipped %s: exceeds max_file_bytes", f.relativePath)).withPath(f.relativePath))
			continue
		}

		fileKey := uniqueLogicalKey("file:"+f.relativePath, keyCounts)
		fileSummary := pool.GetMap()
		fileSummary["path"] = f.relativePath
		fileSummary["language"] = string(f.lang)
		fileID, err := addBlock(doc, parentID, f.relativePath, classFile, fileKey,
			fileSummary,
			map[string]any{metaPath: f.relativePath, metaLanguage: string(f.lang)},
		)
		if err != nil {
			return BuildResult{}, err
		}
		stats.FileNodes++
		stats.Languages[string(f.lang)]++

		analysis, fileDiags, err := analyzeFile(ctx, source, f.lang)
		if err != nil {
			diagnostics = append(diagnostics, errorDiag("CG2001", fmt.Sprintf("failed to parse %s: %v", f.relativePath, err)).withPath(f.relativePath))
			if !config.ContinueOnParseErr {
				return BuildResult{}, err
			}
			continue
		}
		for _, d := range fileDiags {
			diagnostics = append(diagnostics, d.withPath(f.relativePath))
		}

		for _, sym := range analysis.Symbols {
			symKey := uniqueLogicalKey(fmt.Sprintf("symbol:%s::%s", f.relativePath, sym.Name), keyCounts)
			symID, err := addSymbolBlock(doc, fileID, symKey, f.relativePath, string(f.lang), sym)
			if err != nil {
				return BuildResult{}, err
			}
			stats.SymbolNodes++

			if config.EmitExportEdges && sym.Exported {
				if err := doc.AddEdge(fileID, document.Edge{
					EdgeType:  document.CustomEdgeType("exports"),
					Target:    symID,
					CreatedAt: deterministicEpoch,
				}); err != nil {
					return BuildResult{}, err
				}
				stats.ExportEdges++
			}
		}

		for _, imp := range analysis.Imports {
			resolved, ok := resolveImport(imp, f.relativePath, f.lang, knownFiles)
			if !ok {
				diagnostics = append(diagnostics, warningDiag("CG2006", fmt.Sprintf("could not resolve import %q", strings.TrimSpace(imp.Raw))).withPath(f.relativePath))
				continue
			}
			if resolved.External {
				continue
			}
			targetID, ok := fileBlockByRelativePath(doc, resolved.TargetRelativePath)
			if !ok {
				continue
			}
			if err := doc.AddEdge(fileID, document.Edge{
				EdgeType: document.EdgeReferences,
				Metadata: document.EdgeMetadata{
					Custom: map[string]any{"raw_import": strings.TrimSpace(imp.Raw)},
				},
				Target:    targetID,
				CreatedAt: deterministicEpoch,
			}); err != nil {
				return BuildResult{}, err
			}
			stats.ReferenceEdges++
		}
	}

	stats.DirectoryNodes = len(dirBlocks) - 1 // exclude the repository root entry at ""
	stats.TotalNodes = stats.RepositoryNodes + stats.DirectoryNodes + stats.FileNodes + stats.SymbolNodes
	stats.TotalEdges = stats.ReferenceEdges + stats.ExportEdges

	sortDocumentForDeterminism(doc)

	validation := ValidateCodeGraphProfile(doc)
	diagnostics = append(diagnostics, validation.Diagnostics...)

	fingerprint, err := CanonicalFingerprint(doc)
	if err != nil {
		return BuildResult{}, err
	}

	status := StatusSuccess
	if !validation.Valid {
		status = StatusFailedValidation
	} else if HasErrors(diagnostics) {
		status = StatusPartialSuccess
	}

	input.Recorder.CodeGraphBuilt(repoRoot, stats.FileNodes, stats.SymbolNodes, string(status), time.Since(start))
	if input.Metrics != nil {
		input.Metrics.IncCodeGraphsBuilt()
	}

	return BuildResult{
		Document:    doc,
		Status:      status,
		Diagnostics: diagnostics,
		Stats:       stats,
		Fingerprint: fingerprint,
	}, nil
}

// fileBlockByRelativePath is a best-effort lookup rather than an index: the
// document is small enough per build that a linear scan is preferable to
// maintaining a second map in parallel with doc.Blocks.
func fileBlockByRelativePath(doc *document.Document, relativePath string) (blockid.BlockId, bool) {
	target := "file:" + relativePath
	for id, b := range doc.Blocks {
		if key, ok := b.Metadata.Custom[metaLogicalKey]; ok && key == target {
			return id, true
		}
	}
	return blockid.BlockId{}, false
}

// ensureDirectoryChain creates (or reuses) every directory node from the
// repository root down to dir, returning the deepest one's block id.
func ensureDirectoryChain(doc *document.Document, repoID blockid.BlockId, dirBlocks map[string]blockid.BlockId, keyCounts map[string]int, dir string) (blockid.BlockId, error) {
	if dir == "" {
		return repoID, nil
	}
	if id, ok := dirBlocks[dir]; ok {
		return id, nil
	}

	parent, err := ensureDirectoryChain(doc, repoID, dirBlocks, keyCounts, parentDirectory(dir))
	if err != nil {
		return blockid.BlockId{}, err
	}

	key := uniqueLogicalKey("directory:"+dir, keyCounts)
	dirSummary := pool.GetMap()
	dirSummary["path"] = dir
	id, err := addBlock(doc, parent, dir, classDirectory, key,
		dirSummary,
		map[string]any{metaPath: dir},
	)
	if err != nil {
		return blockid.BlockId{}, err
	}
	dirBlocks[dir] = id
	return id, nil
}

// uniqueLogicalKey appends a "#<n>" disambiguator the first and every
// subsequent time key collides, per spec §4.6's logical_key collision rule.
func uniqueLogicalKey(key string, counts map[string]int) string {
	n := counts[key]
	counts[key] = n + 1
	if n == 0 {
		return key
	}
	return fmt.Sprintf("%s#%d", key, n)
}

// addBlock inserts a node-class-tagged block under parent, carrying a JSON
// content summary of its own metadata — mirroring the original's
// make_repository_block/make_directory_block/make_file_block/
// make_symbol_block, which each wrap a Content::json summary rather than
// the file's own source text.
func addBlock(doc *document.Document, parent blockid.BlockId, label string, class nodeClass, logicalKey string, summary map[string]any, custom map[string]any) (blockid.BlockId, error) {
	id, err := blockid.New()
	if err != nil {
		return blockid.BlockId{}, err
	}

	custom[metaNodeClass] = string(class)
	custom[metaLogicalKey] = logicalKey

	raw, err := canonicalJSON(summary)
	pool.PutMap(summary)
	if err != nil {
		return blockid.BlockId{}, fmt.Errorf("codegraph: marshal block content: %w", err)
	}
	c := content.Content{Kind: content.KindJson, Value: raw}

	hash, err := content.HashHex(c)
	if err != nil {
		return blockid.BlockId{}, err
	}

	b := &document.Block{
		Id:      id,
		Content: c,
		Metadata: document.BlockMetadata{
			Label:       label,
			ContentHash: hash,
			CreatedAt:   deterministicEpoch,
			ModifiedAt:  deterministicEpoch,
			Custom:      custom,
		},
		Version: document.BlockVersion{Counter: 1, Timestamp: deterministicEpoch},
	}
	if _, err := doc.AddBlock(b, parent, nil); err != nil {
		return blockid.BlockId{}, err
	}
	return id, nil
}

func addSymbolBlock(doc *document.Document, fileID blockid.BlockId, logicalKey, filePath, language string, sym extractedSymbol) (blockid.BlockId, error) {
	spanValue := map[string]any{
		"start_line": sym.Span.StartLine,
		"start_col":  sym.Span.StartCol,
		"end_line":   sym.Span.EndLine,
		"end_col":    sym.Span.EndCol,
	}
	symSummary := pool.GetMap()
	symSummary["name"] = sym.Name
	symSummary["kind"] = string(sym.Kind)
	symSummary["path"] = filePath
	symSummary["span"] = spanValue
	symSummary["exported"] = sym.Exported
	return addBlock(doc, fileID, sym.Name, classSymbol, logicalKey,
		symSummary,
		map[string]any{
			metaPath:       filePath,
			metaLanguage:   language,
			metaSymbolKind: string(sym.Kind),
			metaSymbolName: sym.Name,
			metaExported:   sym.Exported,
			metaSpan:       spanValue,
		})
}

// sortDocumentForDeterminism orders every block's children and edges by
// logical key so two builds of the same tree produce identical canonical
// JSON regardless of filesystem or map iteration order (spec §4.6
// "Determinism guarantee").
func sortDocumentForDeterminism(doc *document.Document) {
	logicalKeyOf := func(id blockid.BlockId) string {
		b, ok := doc.Blocks[id]
		if !ok {
			return ""
		}
		key, _ := b.Metadata.Custom[metaLogicalKey].(string)
		return key
	}

	for parent, children := range doc.Structure {
		sorted := append([]blockid.BlockId(nil), children...)
		sort.Slice(sorted, func(i, j int) bool { return logicalKeyOf(sorted[i]) < logicalKeyOf(sorted[j]) })
		doc.Structure[parent] = sorted
	}

	for _, b := range doc.Blocks {
		edges := b.Edges
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].EdgeType != edges[j].EdgeType {
				return edges[i].EdgeType < edges[j].EdgeType
			}
			return logicalKeyOf(edges[i].Target) < logicalKeyOf(edges[j].Target)
		})
	}
}
