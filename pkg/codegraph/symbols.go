package codegraph

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// symbolKind mirrors the top-level declaration kinds the extractor
// recognizes across languages (spec §4.6 "Per-file extraction").
type symbolKind string

const (
	kindFunction  symbolKind = "function"
	kindClass     symbolKind = "class"
	kindStruct    symbolKind = "struct"
	kindEnum      symbolKind = "enum"
	kindInterface symbolKind = "interface"
	kindTrait     symbolKind = "trait"
	kindImpl      symbolKind = "impl"
	kindTypeAlias symbolKind = "type_alias"
	kindConstant  symbolKind = "constant"
	kindModule    symbolKind = "module"
)

type span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// extractedSymbol is one top-level declaration found in a source file.
type extractedSymbol struct {
	Name     string
	Kind     symbolKind
	Span     span
	Exported bool
}

// extractedImport is one raw import/use statement found in a source file,
// not yet resolved to a repository-relative target.
type extractedImport struct {
	Raw string
}

type fileAnalysis struct {
	Symbols []extractedSymbol
	Imports []extractedImport
}

func sitterLanguage(lang language) *sitter.Language {
	switch lang {
	case langRust:
		return rust.GetLanguage()
	case langPython:
		return python.GetLanguage()
	case langTypeScript:
		return typescript.GetLanguage()
	case langJavaScript:
		return javascript.GetLanguage()
	default:
		return golang.GetLanguage()
	}
}

// analyzeFile parses source with the tree-sitter grammar for lang and walks
// its root node's named children to collect top-level symbols and raw
// imports (spec §4.6 "Per-file extraction").
func analyzeFile(ctx context.Context, source []byte, lang language) (fileAnalysis, []Diagnostic, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(sitterLanguage(lang))

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return fileAnalysis{}, nil, fmt.Errorf("codegraph: parse: %w", err)
	}
	root := tree.RootNode()

	var diagnostics []Diagnostic
	if root.HasError() {
		diagnostics = append(diagnostics, warningDiag("CG2002", "source contains syntax errors; extraction is best-effort"))
	}

	var analysis fileAnalysis
	switch lang {
	case langRust:
		analyzeRustTree(root, source, &analysis)
	case langPython:
		analyzePythonTree(root, source, &analysis)
	case langTypeScript, langJavaScript:
		analyzeTsTree(root, source, &analysis)
	}
	return analysis, diagnostics, nil
}

func nodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(source)
}

func nodeSpan(n *sitter.Node) span {
	start, end := n.StartPoint(), n.EndPoint()
	return span{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

// -- Rust -------------------------------------------------------------

func analyzeRustTree(root *sitter.Node, source []byte, out *fileAnalysis) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		analyzeRustItem(child, source, out, true)
	}
}

func analyzeRustItem(n *sitter.Node, source []byte, out *fileAnalysis, exportable bool) {
	switch n.Type() {
	case "use_declaration":
		out.Imports = append(out.Imports, extractedImport{Raw: nodeText(n, source)})
	case "function_item", "struct_item", "enum_item", "trait_item", "type_item", "const_item", "static_item", "mod_item", "impl_item":
		name := nodeText(n.ChildByFieldName("name"), source)
		if name == "" && n.Type() == "impl_item" {
			name = nodeText(n.ChildByFieldName("type"), source)
		}
		if name == "" {
			return
		}
		kind := rustSymbolKind(n.Type())
		exported := exportable && isRustPublic(n, source)
		out.Symbols = append(out.Symbols, extractedSymbol{Name: name, Kind: kind, Span: nodeSpan(n), Exported: exported})
	}
}

func rustSymbolKind(nodeType string) symbolKind {
	switch nodeType {
	case "function_item":
		return kindFunction
	case "struct_item":
		return kindStruct
	case "enum_item":
		return kindEnum
	case "trait_item":
		return kindTrait
	case "impl_item":
		return kindImpl
	case "type_item":
		return kindTypeAlias
	case "const_item", "static_item":
		return kindConstant
	case "mod_item":
		return kindModule
	default:
		return kindFunction
	}
}

func isRustPublic(n *sitter.Node, source []byte) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "visibility_modifier" && len(nodeText(c, source)) > 0 {
			return true
		}
	}
	return false
}

// -- Python -------------------------------------------------------------

func analyzePythonTree(root *sitter.Node, source []byte, out *fileAnalysis) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "import_statement", "import_from_statement":
			out.Imports = append(out.Imports, extractedImport{Raw: nodeText(child, source)})
		case "function_definition", "class_definition":
			name := nodeText(child.ChildByFieldName("name"), source)
			if name == "" {
				continue
			}
			kind := kindFunction
			if child.Type() == "class_definition" {
				kind = kindClass
			}
			out.Symbols = append(out.Symbols, extractedSymbol{
				Name:     name,
				Kind:     kind,
				Span:     nodeSpan(child),
				Exported: !isPythonPrivateName(name),
			})
		case "expression_statement":
			collectPythonModuleConstants(child, source, out)
		}
	}
}

func isPythonPrivateName(name string) bool {
	return len(name) > 0 && name[0] == '_'
}

func collectPythonModuleConstants(n *sitter.Node, source []byte, out *fileAnalysis) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		assign := n.NamedChild(i)
		if assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			continue
		}
		name := nodeText(left, source)
		out.Symbols = append(out.Symbols, extractedSymbol{
			Name:     name,
			Kind:     kindConstant,
			Span:     nodeSpan(assign),
			Exported: !isPythonPrivateName(name),
		})
	}
}

// -- TypeScript / JavaScript ---------------------------------------------

func analyzeTsTree(root *sitter.Node, source []byte, out *fileAnalysis) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		analyzeTsStatement(root.NamedChild(i), source, out, false)
	}
}

func analyzeTsStatement(n *sitter.Node, source []byte, out *fileAnalysis, forceExported bool) {
	switch n.Type() {
	case "import_statement":
		out.Imports = append(out.Imports, extractedImport{Raw: nodeText(n, source)})
	case "export_statement":
		inner := n.NamedChild(0)
		if inner != nil {
			analyzeTsStatement(inner, source, out, true)
		}
	case "function_declaration":
		addTsSymbol(n, source, kindFunction, forceExported, out)
	case "class_declaration":
		addTsSymbol(n, source, kindClass, forceExported, out)
	case "interface_declaration":
		addTsSymbol(n, source, kindInterface, forceExported, out)
	case "type_alias_declaration":
		addTsSymbol(n, source, kindTypeAlias, forceExported, out)
	case "enum_declaration":
		addTsSymbol(n, source, kindEnum, forceExported, out)
	case "module", "internal_module":
		addTsSymbol(n, source, kindModule, forceExported, out)
	case "lexical_declaration", "variable_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			decl := n.NamedChild(i)
			if decl.Type() != "variable_declarator" {
				continue
			}
			name := nodeText(decl.ChildByFieldName("name"), source)
			if name == "" {
				continue
			}
			out.Symbols = append(out.Symbols, extractedSymbol{
				Name:     name,
				Kind:     kindConstant,
				Span:     nodeSpan(n),
				Exported: forceExported,
			})
		}
	}
}

func addTsSymbol(n *sitter.Node, source []byte, kind symbolKind, exported bool, out *fileAnalysis) {
	name := nodeText(n.ChildByFieldName("name"), source)
	if name == "" {
		return
	}
	out.Symbols = append(out.Symbols, extractedSymbol{Name: name, Kind: kind, Span: nodeSpan(n), Exported: exported})
}
