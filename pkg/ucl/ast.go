package ucl

import (
	"fmt"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/engine"
)

// ContentType is the closed set of content kinds a BLOCKS entry can declare,
// mirroring internal/content.Kind at the surface-syntax level.
type ContentType int

const (
	ContentText ContentType = iota
	ContentTable
	ContentCode
	ContentMath
	ContentMedia
	ContentJson
	ContentBinary
	ContentComposite
)

// ParseContentType maps a lowercase type keyword to a ContentType.
func ParseContentType(s string) (ContentType, bool) {
	switch s {
	case "text":
		return ContentText, true
	case "table":
		return ContentTable, true
	case "code":
		return ContentCode, true
	case "math":
		return ContentMath, true
	case "media":
		return ContentMedia, true
	case "json":
		return ContentJson, true
	case "binary":
		return ContentBinary, true
	case "composite":
		return ContentComposite, true
	default:
		return 0, false
	}
}

func (t ContentType) String() string {
	switch t {
	case ContentText:
		return "text"
	case ContentTable:
		return "table"
	case ContentCode:
		return "code"
	case ContentMath:
		return "math"
	case ContentMedia:
		return "media"
	case ContentJson:
		return "json"
	case ContentBinary:
		return "binary"
	case ContentComposite:
		return "composite"
	default:
		return fmt.Sprintf("ContentType(%d)", int(t))
	}
}

// BlockDef is one `BLOCKS` section entry: an id, its declared content type,
// a literal payload for that type, and optional properties (label, tags,
// semantic role) carried as a generic property map so the parser doesn't
// need to know BlockMetadata's Go shape.
type BlockDef struct {
	Id          string
	ContentType ContentType
	Language    string // set when ContentType == ContentCode, from the `code(lang)` annotation (a tag on the opening fence is discarded by the lexer)
	Literal     string // raw literal text: prose, code source, JSON text, or table rows
	Properties  map[string]engine.Value
}

// UclDocument is the parsed form of a full UCL source file: an optional
// STRUCTURE section (parent id -> ordered child ids), an optional BLOCKS
// section, and an optional COMMANDS section lowered directly into engine
// Operations.
type UclDocument struct {
	Structure map[string][]string
	Blocks    []BlockDef
	Commands  []engine.Operation
}

// blockIdOf parses a textual block id, used throughout lowering.
func blockIdOf(s string) (blockid.BlockId, error) {
	if s == "root" {
		return blockid.Root, nil
	}
	return blockid.Parse(s)
}
