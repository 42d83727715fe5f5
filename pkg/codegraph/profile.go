// Package codegraph extracts a "codegraph.v1" profile document from a
// source repository: a repository/directory/file/symbol block tree plus
// import-reference and export edges, with a deterministic canonical form
// and SHA-256 fingerprint (spec §4.6).
package codegraph

import (
	"time"

	"github.com/kittclouds/ucp/pkg/obs"
)

const (
	// ProfileMarker is the value stored at document metadata custom["profile"].
	ProfileMarker = "codegraph"
	// ProfileVersion is the value stored at custom["profile_version"].
	ProfileVersion = "v1"
	// ProfileTag combines the two, used in logs and CLI output.
	ProfileTag = ProfileMarker + "." + ProfileVersion
	// ExtractorVersion identifies this extractor implementation, independent
	// of ProfileVersion (the wire format can outlive extractor revisions).
	ExtractorVersion = "ucp-codegraph-extractor.go.v1"
)

const (
	metaNodeClass  = "node_class"
	metaLogicalKey = "logical_key"
	metaPath       = "path"
	metaLanguage   = "language"
	metaSymbolKind = "symbol_kind"
	metaSymbolName = "name"
	metaSpan       = "span"
	metaExported   = "exported"
)

// ExtractorConfig governs the repository walk and per-file extraction.
type ExtractorConfig struct {
	IncludeExtensions  []string
	ExcludeDirs        []string
	ContinueOnParseErr bool
	IncludeHidden      bool
	MaxFileBytes       int
	EmitExportEdges    bool
}

// DefaultExtractorConfig returns the extractor's default walk/extraction
// policy (spec §4.6 "Walk").
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		IncludeExtensions:  []string{"rs", "py", "ts", "tsx", "js", "jsx"},
		ExcludeDirs:        []string{".git", "target", "node_modules", "dist", "build"},
		ContinueOnParseErr: true,
		IncludeHidden:      false,
		MaxFileBytes:       2 * 1024 * 1024,
		EmitExportEdges:    true,
	}
}

// BuildInput is the request to BuildCodeGraph.
type BuildInput struct {
	RepositoryPath string
	CommitHash     string
	Config         ExtractorConfig

	// Recorder and Metrics are optional observability hooks (spec §2); both
	// zero values are safe to leave unset.
	Recorder obs.Recorder
	Metrics  *obs.Counters
}

// Stats summarizes a built code-graph document's node/edge composition.
type Stats struct {
	TotalNodes      int
	RepositoryNodes int
	DirectoryNodes  int
	FileNodes       int
	SymbolNodes     int
	TotalEdges      int
	ReferenceEdges  int
	ExportEdges     int
	Languages       map[string]int
}

// BuildStatus summarizes a build's outcome against CG1xxx validation.
type BuildStatus string

const (
	StatusSuccess          BuildStatus = "success"
	StatusPartialSuccess   BuildStatus = "partial_success"
	StatusFailedValidation BuildStatus = "failed_validation"
)

// deterministicEpoch is the fixed timestamp every codegraph document and
// block carries, so two builds of the same tree at the same commit produce
// byte-identical canonical JSON regardless of wall-clock time (spec §4.6
// "Determinism guarantee").
var deterministicEpoch = time.Unix(0, 0).UTC()
