package codegraph

import (
	"strings"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
)

// ValidateCodeGraphProfile checks doc against the codegraph.v1 profile's
// structural rules (spec §4.6 "Validation (CG1xxx)"). It is pure: it never
// mutates doc.
func ValidateCodeGraphProfile(doc *document.Document) ValidationResult {
	var diagnostics []Diagnostic

	if doc.Metadata.Custom["profile"] != ProfileMarker {
		diagnostics = append(diagnostics, errorDiag("CG1001", "document is missing profile=\"codegraph\" marker"))
	}
	if doc.Metadata.Custom["profile_version"] != ProfileVersion {
		diagnostics = append(diagnostics, errorDiag("CG1002", "document is missing profile_version=\"v1\" marker"))
	}

	seenKeys := map[string]blockid.BlockId{}

	for id, b := range doc.Blocks {
		if id == doc.Root {
			continue
		}
		class, hasClass := b.Metadata.Custom[metaNodeClass].(string)
		key, hasKey := b.Metadata.Custom[metaLogicalKey].(string)

		if !hasClass || class == "" {
			diagnostics = append(diagnostics, errorDiag("CG1003", "block is missing node_class").withLogicalKey(key))
			continue
		}
		if !hasKey || key == "" {
			diagnostics = append(diagnostics, errorDiag("CG1004", "block is missing logical_key").withPath(pathOf(b)))
			continue
		}

		if other, dup := seenKeys[key]; dup && other != id {
			diagnostics = append(diagnostics, errorDiag("CG1005", "duplicate logical_key").withLogicalKey(key))
		}
		seenKeys[key] = id

		if !strings.HasPrefix(key, class+":") {
			diagnostics = append(diagnostics, errorDiag("CG1006", "logical_key prefix does not match node_class").withLogicalKey(key))
		}

		switch nodeClass(class) {
		case classDirectory, classFile:
			if _, ok := b.Metadata.Custom[metaPath]; !ok {
				diagnostics = append(diagnostics, errorDiag("CG1007", "block is missing required path metadata").withLogicalKey(key))
			}
		case classSymbol:
			for _, required := range []string{metaPath, metaLanguage, metaSymbolKind, metaSymbolName, metaSpan, metaExported} {
				if _, ok := b.Metadata.Custom[required]; !ok {
					diagnostics = append(diagnostics, errorDiag("CG1008", "symbol block is missing required metadata: "+required).withLogicalKey(key))
				}
			}
		}

		for _, e := range b.Edges {
			switch e.EdgeType {
			case document.EdgeReferences:
				if class != string(classFile) {
					diagnostics = append(diagnostics, errorDiag("CG1009", "References edge must originate from a file block").withLogicalKey(key))
				} else if target, ok := doc.Blocks[e.Target]; ok {
					if tc, _ := target.Metadata.Custom[metaNodeClass].(string); tc != string(classFile) {
						diagnostics = append(diagnostics, errorDiag("CG1010", "References edge must target a file block").withLogicalKey(key))
					}
				}
			default:
				if name, ok := e.EdgeType.IsCustom(); ok && name == "exports" {
					if class != string(classFile) {
						diagnostics = append(diagnostics, errorDiag("CG1011", "exports edge must originate from a file block").withLogicalKey(key))
					} else if target, ok := doc.Blocks[e.Target]; ok {
						if tc, _ := target.Metadata.Custom[metaNodeClass].(string); tc != string(classSymbol) {
							diagnostics = append(diagnostics, errorDiag("CG1012", "exports edge must target a symbol block").withLogicalKey(key))
						}
					}
				}
			}
		}
	}

	return ValidationResult{Valid: !HasErrors(diagnostics), Diagnostics: diagnostics}
}

func pathOf(b *document.Block) string {
	if p, ok := b.Metadata.Custom[metaPath].(string); ok {
		return p
	}
	return ""
}
