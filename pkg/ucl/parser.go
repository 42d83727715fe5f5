package ucl

import (
	"fmt"
	"strings"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
	"github.com/kittclouds/ucp/pkg/engine"
)

// ParseError reports a syntactic failure, carrying the offending token's
// position for caller diagnostics.
type ParseError struct {
	Line, Column int
	Message      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ucl: parse error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// Parser is a recursive-descent parser over a pre-lexed token stream. The
// lexer never emits Newline tokens (whitespace is insignificant in UCL), so,
// unlike the reference lexer/parser split, no token-stream filtering pass is
// needed between lexing and parsing here.
type Parser struct {
	toks []Token
	pos  int
}

// NewParser wraps a token stream produced by Tokenize.
func NewParser(toks []Token) *Parser {
	return &Parser{toks: toks}
}

// Parse lexes and parses src in one step.
func Parse(src string) (*UclDocument, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return NewParser(toks).ParseDocument()
}

// ParseCommandsOnly lexes and parses src as a bare COMMANDS body — no
// section headers — for callers that already have a loaded document and
// only want to run ad hoc mutations (the traversal layer's execute_ucl
// operation).
func ParseCommandsOnly(src string) ([]engine.Operation, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := NewParser(toks)
	var ops []engine.Operation
	for !p.isAtEnd() {
		op, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekKind() TokenKind { return p.peek().Kind }

func (p *Parser) advance() Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) isAtEnd() bool { return p.peekKind() == TokEOF }

func (p *Parser) check(k TokenKind) bool { return p.peekKind() == k }

func (p *Parser) parseErrorf(format string, args ...any) error {
	t := p.peek()
	return &ParseError{Line: t.Line, Column: t.Column, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(k TokenKind, what string) (Token, error) {
	if !p.check(k) {
		return Token{}, p.parseErrorf("expected %s, found %v", what, p.peek())
	}
	return p.advance(), nil
}

func (p *Parser) expectBlockId() (blockid.BlockId, error) {
	t, err := p.expect(TokBlockId, "a block id")
	if err != nil {
		return blockid.BlockId{}, err
	}
	return blockIdOf(t.Text)
}

func (p *Parser) expectIdent() (string, error) {
	t, err := p.expect(TokIdentifier, "an identifier")
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

func (p *Parser) expectStr() (string, error) {
	t, err := p.expect(TokString, "a string literal")
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

func (p *Parser) expectInt() (int, error) {
	t, err := p.expect(TokInteger, "an integer literal")
	if err != nil {
		return 0, err
	}
	return int(t.Int), nil
}

func (p *Parser) tryStr() (string, bool) {
	if p.check(TokString) {
		return p.advance().Text, true
	}
	return "", false
}

// identOrKeywordText returns the textual form of the current token when it
// can serve as a bare property/path name — an identifier or any reserved
// keyword used as a field name (e.g. "label", "depth").
func (p *Parser) identOrKeywordText() (string, bool) {
	t := p.peek()
	switch t.Kind {
	case TokIdentifier, TokDepth, TokMaxTokens, TokPreserveTags, TokBaseLevel, TokWith:
		return t.Text, true
	default:
		if t.Text != "" {
			return t.Text, true
		}
		return "", false
	}
}

func (p *Parser) isSectionHeader() bool {
	switch p.peekKind() {
	case TokStructure, TokBlocks, TokCommands:
		return true
	default:
		return false
	}
}

// ParseDocument parses a full UCL source: optional STRUCTURE, BLOCKS, and
// COMMANDS sections in any order, each introduced by its header keyword.
func (p *Parser) ParseDocument() (*UclDocument, error) {
	doc := &UclDocument{Structure: map[string][]string{}}
	for !p.isAtEnd() {
		switch p.peekKind() {
		case TokStructure:
			p.advance()
			if err := p.parseStructureBody(doc); err != nil {
				return nil, err
			}
		case TokBlocks:
			p.advance()
			if err := p.parseBlocksBody(doc); err != nil {
				return nil, err
			}
		case TokCommands:
			p.advance()
			if err := p.parseCommandsBody(doc); err != nil {
				return nil, err
			}
		default:
			return nil, p.parseErrorf("expected a section header (STRUCTURE, BLOCKS, COMMANDS), found %v", p.peek())
		}
	}
	return doc, nil
}

func (p *Parser) parseStructureBody(doc *UclDocument) error {
	for !p.isAtEnd() && !p.isSectionHeader() {
		parentTok, err := p.expect(TokBlockId, "a parent block id")
		if err != nil {
			return err
		}
		if _, err := p.expect(TokColon, "':'"); err != nil {
			return err
		}
		var children []string
		for {
			childTok, err := p.expect(TokBlockId, "a child block id")
			if err != nil {
				return err
			}
			children = append(children, childTok.Text)
			if p.check(TokComma) {
				p.advance()
				continue
			}
			break
		}
		doc.Structure[parentTok.Text] = children
	}
	return nil
}

func (p *Parser) parseBlocksBody(doc *UclDocument) error {
	for !p.isAtEnd() && !p.isSectionHeader() {
		bd, err := p.parseBlockDef()
		if err != nil {
			return err
		}
		doc.Blocks = append(doc.Blocks, bd)
	}
	return nil
}

func (p *Parser) parseCommandsBody(doc *UclDocument) error {
	for !p.isAtEnd() && !p.isSectionHeader() {
		op, err := p.parseCommand()
		if err != nil {
			return err
		}
		doc.Commands = append(doc.Commands, op)
	}
	return nil
}

// parseBlockDef parses one `BLOCKS` entry:
//
//	<id> <type>[(lang)] [{ prop: value, ... }] <literal>
func (p *Parser) parseBlockDef() (BlockDef, error) {
	idTok, err := p.expect(TokBlockId, "a block id")
	if err != nil {
		return BlockDef{}, err
	}
	ct, err := p.parseContentTypeKeyword()
	if err != nil {
		return BlockDef{}, err
	}

	bd := BlockDef{Id: idTok.Text, ContentType: ct}

	if ct == ContentCode && p.check(TokLParen) {
		p.advance()
		lang, err := p.expectIdent()
		if err != nil {
			return BlockDef{}, err
		}
		bd.Language = lang
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return BlockDef{}, err
		}
	}

	if p.check(TokLBrace) {
		props, err := p.parsePropertyMap()
		if err != nil {
			return BlockDef{}, err
		}
		bd.Properties = props
	}

	lit, err := p.expectContentLiteral()
	if err != nil {
		return BlockDef{}, err
	}
	bd.Literal = lit
	return bd, nil
}

func (p *Parser) parseContentTypeKeyword() (ContentType, error) {
	t := p.peek()
	var ct ContentType
	switch t.Kind {
	case TokTextType:
		ct = ContentText
	case TokTableType:
		ct = ContentTable
	case TokCodeType:
		ct = ContentCode
	case TokMathType:
		ct = ContentMath
	case TokMediaType:
		ct = ContentMedia
	case TokJsonType:
		ct = ContentJson
	case TokBinaryType:
		ct = ContentBinary
	case TokCompositeType:
		ct = ContentComposite
	default:
		return 0, p.parseErrorf("expected a content type keyword, found %v", t)
	}
	p.advance()
	return ct, nil
}

func (p *Parser) expectContentLiteral() (string, error) {
	t := p.peek()
	switch t.Kind {
	case TokString, TokCodeBlock, TokTableLiteral:
		p.advance()
		return t.Text, nil
	default:
		return "", p.parseErrorf("expected a content literal (string, code block, or table literal), found %v", t)
	}
}

// parsePropertyMap parses `{ key: value, key: value }`.
func (p *Parser) parsePropertyMap() (map[string]engine.Value, error) {
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	props := map[string]engine.Value{}
	for !p.check(TokRBrace) {
		name, ok := p.identOrKeywordText()
		if !ok {
			return nil, p.parseErrorf("expected a property name, found %v", p.peek())
		}
		p.advance()
		if _, err := p.expect(TokColon, "':'"); err != nil {
			return nil, err
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		props[name] = v
		if p.check(TokComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return props, nil
}

// parseValue parses a JSON-like scalar/array/object literal into an
// engine.Value.
func (p *Parser) parseValue() (engine.Value, error) {
	t := p.peek()
	switch t.Kind {
	case TokString:
		p.advance()
		return engine.String(t.Text), nil
	case TokInteger:
		p.advance()
		return engine.Number(float64(t.Int)), nil
	case TokFloat:
		p.advance()
		return engine.Number(t.Float), nil
	case TokTrue:
		p.advance()
		return engine.Bool(true), nil
	case TokFalse:
		p.advance()
		return engine.Bool(false), nil
	case TokNull:
		p.advance()
		return engine.Null(), nil
	case TokBlockId:
		p.advance()
		id, err := blockIdOf(t.Text)
		if err != nil {
			return engine.Value{}, err
		}
		return engine.BlockRef(id), nil
	case TokLBracket:
		return p.parseArrayValue()
	case TokLBrace:
		return p.parseObjectValue()
	default:
		return engine.Value{}, p.parseErrorf("expected a value, found %v", t)
	}
}

func (p *Parser) parseArrayValue() (engine.Value, error) {
	p.advance()
	var elems []engine.Value
	for !p.check(TokRBracket) {
		v, err := p.parseValue()
		if err != nil {
			return engine.Value{}, err
		}
		elems = append(elems, v)
		if p.check(TokComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokRBracket, "']'"); err != nil {
		return engine.Value{}, err
	}
	return engine.Array(elems), nil
}

func (p *Parser) parseObjectValue() (engine.Value, error) {
	p.advance()
	obj := map[string]engine.Value{}
	for !p.check(TokRBrace) {
		name, ok := p.identOrKeywordText()
		if !ok {
			return engine.Value{}, p.parseErrorf("expected an object key, found %v", p.peek())
		}
		p.advance()
		if _, err := p.expect(TokColon, "':'"); err != nil {
			return engine.Value{}, err
		}
		v, err := p.parseValue()
		if err != nil {
			return engine.Value{}, err
		}
		obj[name] = v
		if p.check(TokComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return engine.Value{}, err
	}
	return engine.Object(obj), nil
}

// parsePath parses a dotted/bracketed address, e.g. `content.text`,
// `metadata.tags[0]`, `content.value$.foo.bar`.
func (p *Parser) parsePath() (engine.Path, error) {
	var segs []engine.PathSegment
	for {
		switch {
		case p.check(TokDollar):
			p.advance()
			var b strings.Builder
			for p.check(TokDot) {
				p.advance()
				name, ok := p.identOrKeywordText()
				if !ok {
					return engine.Path{}, p.parseErrorf("expected a json path segment, found %v", p.peek())
				}
				p.advance()
				b.WriteByte('.')
				b.WriteString(name)
			}
			segs = append(segs, engine.PathSegment{Kind: engine.SegmentJsonPath, JsonPath: b.String()})
		case p.check(TokLBracket):
			p.advance()
			seg, err := p.parseIndexOrSlice()
			if err != nil {
				return engine.Path{}, err
			}
			if _, err := p.expect(TokRBracket, "']'"); err != nil {
				return engine.Path{}, err
			}
			segs = append(segs, seg)
		default:
			name, ok := p.identOrKeywordText()
			if !ok {
				return engine.Path{}, p.parseErrorf("expected a path segment, found %v", p.peek())
			}
			p.advance()
			segs = append(segs, engine.PathSegment{Kind: engine.SegmentProperty, Property: name})
		}

		if p.check(TokDot) {
			p.advance()
			continue
		}
		if p.check(TokLBracket) {
			continue
		}
		break
	}
	return engine.Path{Segments: segs}, nil
}

func (p *Parser) parseIndexOrSlice() (engine.PathSegment, error) {
	var lo, hi *int
	if p.check(TokInteger) {
		n := int(p.advance().Int)
		lo = &n
	}
	if p.check(TokColon) {
		p.advance()
		if p.check(TokInteger) {
			n := int(p.advance().Int)
			hi = &n
		}
		return engine.PathSegment{Kind: engine.SegmentSlice, SliceLo: lo, SliceHi: hi}, nil
	}
	if lo == nil {
		return engine.PathSegment{}, p.parseErrorf("expected an index or slice inside '[...]', found %v", p.peek())
	}
	return engine.PathSegment{Kind: engine.SegmentIndex, Index: *lo}, nil
}

func (p *Parser) parseOperator() (engine.Operator, error) {
	t := p.peek()
	switch t.Kind {
	case TokEq:
		p.advance()
		return engine.OpSet, nil
	case TokPlusEq:
		p.advance()
		return engine.OpAppend, nil
	case TokMinusEq:
		p.advance()
		return engine.OpRemove, nil
	case TokPlusPlus:
		p.advance()
		return engine.OpIncrement, nil
	case TokMinusMinus:
		p.advance()
		return engine.OpDecrement, nil
	default:
		return "", p.parseErrorf("expected an assignment operator (= += -= ++ --), found %v", t)
	}
}

// parseCommand parses one COMMANDS entry into an engine.Operation.
func (p *Parser) parseCommand() (engine.Operation, error) {
	switch p.peekKind() {
	case TokEdit:
		return p.parseEdit()
	case TokAppend:
		return p.parseAppend()
	case TokMove:
		return p.parseMove()
	case TokDelete:
		return p.parseDelete()
	case TokPrune:
		return p.parsePrune()
	case TokLink:
		return p.parseLink()
	case TokUnlink:
		return p.parseUnlink()
	case TokFold:
		return p.parseFold()
	case TokWriteSection:
		return p.parseWriteSection()
	case TokSnapshot:
		return p.parseSnapshot()
	case TokBegin, TokCommit, TokRollback:
		return p.parseTransactionControl()
	case TokAtomic:
		return p.parseAtomic()
	default:
		return engine.Operation{}, p.parseErrorf("expected a command keyword, found %v", p.peek())
	}
}

// parseEdit: EDIT <id> SET <path> <op> <value> [WHERE <condition>]
func (p *Parser) parseEdit() (engine.Operation, error) {
	p.advance() // EDIT
	id, err := p.expectBlockId()
	if err != nil {
		return engine.Operation{}, err
	}
	if _, err := p.expect(TokSet, "SET"); err != nil {
		return engine.Operation{}, err
	}
	path, err := p.parsePath()
	if err != nil {
		return engine.Operation{}, err
	}
	op, err := p.parseOperator()
	if err != nil {
		return engine.Operation{}, err
	}
	val, err := p.parseValue()
	if err != nil {
		return engine.Operation{}, err
	}
	var cond *engine.Condition
	if p.check(TokWhere) {
		p.advance()
		c, err := p.parseCondition()
		if err != nil {
			return engine.Operation{}, err
		}
		cond = &c
	}
	return engine.Operation{Kind: engine.OpKindEdit, Edit: &engine.EditOp{
		BlockId: id, Path: path, Operator: op, Value: val, Condition: cond,
	}}, nil
}

// parseAppend: APPEND TO <parent> WITH <type> <literal> [{ props }]
func (p *Parser) parseAppend() (engine.Operation, error) {
	p.advance() // APPEND
	if _, err := p.expect(TokTo, "TO"); err != nil {
		return engine.Operation{}, err
	}
	parent, err := p.expectBlockId()
	if err != nil {
		return engine.Operation{}, err
	}
	if _, err := p.expect(TokWith, "WITH"); err != nil {
		return engine.Operation{}, err
	}
	ct, err := p.parseContentTypeKeyword()
	if err != nil {
		return engine.Operation{}, err
	}
	var lang string
	if ct == ContentCode && p.check(TokLParen) {
		p.advance()
		lang, err = p.expectIdent()
		if err != nil {
			return engine.Operation{}, err
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return engine.Operation{}, err
		}
	}
	lit, err := p.expectContentLiteral()
	if err != nil {
		return engine.Operation{}, err
	}
	c, err := literalToContent(ct, lang, lit)
	if err != nil {
		return engine.Operation{}, err
	}

	appendOp := &engine.AppendOp{ParentId: parent, Content: c}
	if p.check(TokLBrace) {
		props, err := p.parsePropertyMap()
		if err != nil {
			return engine.Operation{}, err
		}
		applyAppendProps(appendOp, props)
	}
	return engine.Operation{Kind: engine.OpKindAppend, Append: appendOp}, nil
}

func applyAppendProps(op *engine.AppendOp, props map[string]engine.Value) {
	if v, ok := props["label"]; ok {
		op.Label = v.String
	}
	if v, ok := props["tags"]; ok {
		for _, e := range v.Array {
			op.Tags = append(op.Tags, e.String)
		}
	}
	if v, ok := props["index"]; ok {
		n := int(v.Number)
		op.Index = &n
	}
	if v, ok := props["category"]; ok {
		role := &document.SemanticRole{Category: document.SemanticCategory(v.String)}
		if sub, ok := props["subcategory"]; ok {
			role.Subcategory = sub.String
		}
		op.SemanticRole = role
	}
}

// parseMove: MOVE <id> TO <parent> | MOVE <id> BEFORE <sibling> | MOVE <id> AFTER <sibling>
func (p *Parser) parseMove() (engine.Operation, error) {
	p.advance() // MOVE
	id, err := p.expectBlockId()
	if err != nil {
		return engine.Operation{}, err
	}
	switch p.peekKind() {
	case TokTo:
		p.advance()
		parent, err := p.expectBlockId()
		if err != nil {
			return engine.Operation{}, err
		}
		var idx *int
		if p.check(TokAt) {
			p.advance()
			n, err := p.expectInt()
			if err != nil {
				return engine.Operation{}, err
			}
			idx = &n
		}
		return engine.Operation{Kind: engine.OpKindMove, Move: &engine.MoveOp{
			BlockId: id, Target: engine.MoveTarget{Kind: engine.MoveToParent, Parent: parent, Index: idx},
		}}, nil
	case TokBefore:
		p.advance()
		sib, err := p.expectBlockId()
		if err != nil {
			return engine.Operation{}, err
		}
		return engine.Operation{Kind: engine.OpKindMove, Move: &engine.MoveOp{
			BlockId: id, Target: engine.MoveTarget{Kind: engine.MoveBefore, Sibling: sib},
		}}, nil
	case TokAfter:
		p.advance()
		sib, err := p.expectBlockId()
		if err != nil {
			return engine.Operation{}, err
		}
		return engine.Operation{Kind: engine.OpKindMove, Move: &engine.MoveOp{
			BlockId: id, Target: engine.MoveTarget{Kind: engine.MoveAfter, Sibling: sib},
		}}, nil
	default:
		return engine.Operation{}, p.parseErrorf("expected TO, BEFORE, or AFTER, found %v", p.peek())
	}
}

// parseDelete: DELETE <id> [CASCADE] [PRESERVE_CHILDREN] | DELETE WHERE <condition>
func (p *Parser) parseDelete() (engine.Operation, error) {
	p.advance() // DELETE
	del := &engine.DeleteOp{}
	if p.check(TokWhere) {
		p.advance()
		c, err := p.parseCondition()
		if err != nil {
			return engine.Operation{}, err
		}
		del.Condition = &c
	} else {
		id, err := p.expectBlockId()
		if err != nil {
			return engine.Operation{}, err
		}
		del.BlockId = &id
	}
	for {
		switch p.peekKind() {
		case TokCascade:
			p.advance()
			del.Cascade = true
		case TokPreserveChildren:
			p.advance()
			del.PreserveChildren = true
		default:
			return engine.Operation{Kind: engine.OpKindDelete, Delete: del}, nil
		}
	}
}

// parsePrune: PRUNE UNREACHABLE [DRY_RUN] | PRUNE WHERE <condition> [DRY_RUN]
func (p *Parser) parsePrune() (engine.Operation, error) {
	p.advance() // PRUNE
	prune := &engine.PruneOp{}
	switch p.peekKind() {
	case TokUnreachable:
		p.advance()
		prune.Target = engine.PruneTarget{Kind: engine.PruneUnreachableTarget}
	case TokWhere:
		p.advance()
		c, err := p.parseCondition()
		if err != nil {
			return engine.Operation{}, err
		}
		prune.Target = engine.PruneTarget{Kind: engine.PruneWhereTarget, Condition: &c}
	default:
		return engine.Operation{}, p.parseErrorf("expected UNREACHABLE or WHERE, found %v", p.peek())
	}
	if p.check(TokDryRun) {
		p.advance()
		prune.DryRun = true
	}
	return engine.Operation{Kind: engine.OpKindPrune, Prune: prune}, nil
}

// parseLink: LINK <source> <EdgeType> <target>
func (p *Parser) parseLink() (engine.Operation, error) {
	p.advance() // LINK
	src, err := p.expectBlockId()
	if err != nil {
		return engine.Operation{}, err
	}
	et, err := p.expectEdgeType()
	if err != nil {
		return engine.Operation{}, err
	}
	tgt, err := p.expectBlockId()
	if err != nil {
		return engine.Operation{}, err
	}
	return engine.Operation{Kind: engine.OpKindLink, Link: &engine.LinkOp{
		Source: src, EdgeType: et, Target: tgt,
	}}, nil
}

// parseUnlink: UNLINK <source> <EdgeType> <target>
func (p *Parser) parseUnlink() (engine.Operation, error) {
	p.advance() // UNLINK
	src, err := p.expectBlockId()
	if err != nil {
		return engine.Operation{}, err
	}
	et, err := p.expectEdgeType()
	if err != nil {
		return engine.Operation{}, err
	}
	tgt, err := p.expectBlockId()
	if err != nil {
		return engine.Operation{}, err
	}
	return engine.Operation{Kind: engine.OpKindUnlink, Unlink: &engine.UnlinkOp{
		Source: src, EdgeType: et, Target: tgt,
	}}, nil
}

func (p *Parser) expectEdgeType() (document.EdgeType, error) {
	name, ok := p.identOrKeywordText()
	if !ok {
		return "", p.parseErrorf("expected an edge type name, found %v", p.peek())
	}
	p.advance()
	if name == "Custom" && p.check(TokLParen) {
		p.advance()
		inner, err := p.expectIdent()
		if err != nil {
			return "", err
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return "", err
		}
		return document.CustomEdgeType(inner), nil
	}
	return document.EdgeType(name), nil
}

// parseFold: FOLD <id> [DEPTH <n>] [MAX_TOKENS <n>] [PRESERVE_TAGS [...]]
func (p *Parser) parseFold() (engine.Operation, error) {
	p.advance() // FOLD
	id, err := p.expectBlockId()
	if err != nil {
		return engine.Operation{}, err
	}
	fold := &engine.FoldOp{BlockId: id}
	for {
		switch p.peekKind() {
		case TokDepth:
			p.advance()
			n, err := p.expectInt()
			if err != nil {
				return engine.Operation{}, err
			}
			fold.Depth = &n
		case TokMaxTokens:
			p.advance()
			n, err := p.expectInt()
			if err != nil {
				return engine.Operation{}, err
			}
			fold.MaxTokens = &n
		case TokPreserveTags:
			p.advance()
			v, err := p.parseArrayValue()
			if err != nil {
				return engine.Operation{}, err
			}
			for _, e := range v.Array {
				fold.PreserveTags = append(fold.PreserveTags, e.String)
			}
		default:
			return engine.Operation{Kind: engine.OpKindFold, Fold: fold}, nil
		}
	}
}

// parseWriteSection is a stub surface form: WRITE_SECTION <id> consumes the
// section id only. Building the replacement block/structure payload from
// markdown is left to the caller per spec §9 (the engine only guarantees
// the atomic swap once a WriteSectionOp is constructed); a bare UCL command
// can only name the section to be cleared.
func (p *Parser) parseWriteSection() (engine.Operation, error) {
	p.advance() // WRITE_SECTION
	id, err := p.expectBlockId()
	if err != nil {
		return engine.Operation{}, err
	}
	return engine.Operation{Kind: engine.OpKindWriteSection, WriteSection: &engine.WriteSectionOp{
		SectionId: id,
		Structure: map[blockid.BlockId][]blockid.BlockId{},
	}}, nil
}

// parseSnapshot: SNAPSHOT CREATE "name" ["description"] | SNAPSHOT RESTORE "name"
// | SNAPSHOT DELETE "name" | SNAPSHOT DIFF "name1" "name2" | SNAPSHOT LIST
func (p *Parser) parseSnapshot() (engine.Operation, error) {
	p.advance() // SNAPSHOT
	snap := &engine.SnapshotOp{}
	switch p.peekKind() {
	case TokCreate:
		p.advance()
		snap.Kind = engine.SnapshotCreate
		name, err := p.expectStr()
		if err != nil {
			return engine.Operation{}, err
		}
		snap.Name = name
		if desc, ok := p.tryStr(); ok {
			snap.Description = desc
		}
		return engine.Operation{Kind: engine.OpKindCreateSnapshot, Snapshot: snap}, nil
	case TokRestore:
		p.advance()
		snap.Kind = engine.SnapshotRestore
		name, err := p.expectStr()
		if err != nil {
			return engine.Operation{}, err
		}
		snap.Name = name
		return engine.Operation{Kind: engine.OpKindRestoreSnapshot, Snapshot: snap}, nil
	case TokDelete:
		p.advance()
		snap.Kind = engine.SnapshotDelete
		name, err := p.expectStr()
		if err != nil {
			return engine.Operation{}, err
		}
		snap.Name = name
		return engine.Operation{Kind: engine.OpKindDeleteSnapshot, Snapshot: snap}, nil
	case TokDiff:
		p.advance()
		snap.Kind = engine.SnapshotDiff
		name1, err := p.expectStr()
		if err != nil {
			return engine.Operation{}, err
		}
		name2, err := p.expectStr()
		if err != nil {
			return engine.Operation{}, err
		}
		snap.Name, snap.Name2 = name1, name2
		return engine.Operation{Kind: engine.OpKindDiffSnapshot, Snapshot: snap}, nil
	case TokList:
		p.advance()
		snap.Kind = engine.SnapshotList
		return engine.Operation{}, p.parseErrorf("SNAPSHOT LIST is a read query, not a mutating operation; call ListSnapshots directly")
	default:
		return engine.Operation{}, p.parseErrorf("expected CREATE, RESTORE, DELETE, DIFF, or LIST, found %v", p.peek())
	}
}

// parseTransactionControl parses BEGIN TRANSACTION / COMMIT / ROLLBACK as
// Atomic no-op markers; actual transaction control lives on *engine.Engine
// directly (Begin/Commit/Rollback), not in the Operation set, so these forms
// only exist to let a UCL script round-trip through a transcript without the
// caller special-casing them.
func (p *Parser) parseTransactionControl() (engine.Operation, error) {
	switch p.peekKind() {
	case TokBegin:
		p.advance()
		if _, err := p.expect(TokTransaction, "TRANSACTION"); err != nil {
			return engine.Operation{}, err
		}
	case TokCommit, TokRollback:
		p.advance()
	}
	return engine.Operation{Kind: engine.OpKindAtomic, Atomic: nil}, nil
}

// parseAtomic: ATOMIC { <command>* }
func (p *Parser) parseAtomic() (engine.Operation, error) {
	p.advance() // ATOMIC
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return engine.Operation{}, err
	}
	var ops []engine.Operation
	for !p.check(TokRBrace) {
		op, err := p.parseCommand()
		if err != nil {
			return engine.Operation{}, err
		}
		ops = append(ops, op)
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return engine.Operation{}, err
	}
	return engine.Operation{Kind: engine.OpKindAtomic, Atomic: ops}, nil
}

// parseCondition parses a WHERE-clause predicate with OR binding loosest,
// then AND, then a unary NOT/atom.
func (p *Parser) parseCondition() (engine.Condition, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (engine.Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return engine.Condition{}, err
	}
	for p.check(TokOr) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return engine.Condition{}, err
		}
		l, r := left, right
		left = engine.Condition{Kind: engine.CondOr, Left: &l, Right: &r}
	}
	return left, nil
}

func (p *Parser) parseAnd() (engine.Condition, error) {
	left, err := p.parseUnary()
	if err != nil {
		return engine.Condition{}, err
	}
	for p.check(TokAnd) {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return engine.Condition{}, err
		}
		l, r := left, right
		left = engine.Condition{Kind: engine.CondAnd, Left: &l, Right: &r}
	}
	return left, nil
}

func (p *Parser) parseUnary() (engine.Condition, error) {
	if p.check(TokNot) {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return engine.Condition{}, err
		}
		return engine.Condition{Kind: engine.CondNot, Left: &inner}, nil
	}
	if p.check(TokLParen) {
		p.advance()
		inner, err := p.parseCondition()
		if err != nil {
			return engine.Condition{}, err
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return engine.Condition{}, err
		}
		return inner, nil
	}
	return p.parsePredicate()
}

// parsePredicate parses one atomic predicate: a path followed by a
// comparison/string-match/existence operator and, for binary predicates, an
// operand.
func (p *Parser) parsePredicate() (engine.Condition, error) {
	path, err := p.parsePath()
	if err != nil {
		return engine.Condition{}, err
	}
	switch p.peekKind() {
	case TokEq, TokNe, TokGt, TokGe, TokLt, TokLe:
		cmp := comparisonFor(p.advance().Kind)
		v, err := p.parseValue()
		if err != nil {
			return engine.Condition{}, err
		}
		return engine.Condition{Kind: engine.CondComparison, Path: path, Op: cmp, Value: v}, nil
	case TokContains:
		p.advance()
		v, err := p.parseValue()
		if err != nil {
			return engine.Condition{}, err
		}
		return engine.Condition{Kind: engine.CondContains, Path: path, Value: v}, nil
	case TokStartsWith:
		p.advance()
		s, err := p.expectStr()
		if err != nil {
			return engine.Condition{}, err
		}
		return engine.Condition{Kind: engine.CondStartsWith, Path: path, Prefix: s}, nil
	case TokEndsWith:
		p.advance()
		s, err := p.expectStr()
		if err != nil {
			return engine.Condition{}, err
		}
		return engine.Condition{Kind: engine.CondEndsWith, Path: path, Suffix: s}, nil
	case TokMatches:
		p.advance()
		s, err := p.expectStr()
		if err != nil {
			return engine.Condition{}, err
		}
		return engine.Condition{Kind: engine.CondMatches, Path: path, Regex: s}, nil
	case TokExists:
		p.advance()
		return engine.Condition{Kind: engine.CondExists, Path: path}, nil
	case TokIsNull:
		p.advance()
		return engine.Condition{Kind: engine.CondIsNull, Path: path}, nil
	default:
		return engine.Condition{}, p.parseErrorf("expected a comparison or predicate operator, found %v", p.peek())
	}
}

func comparisonFor(k TokenKind) engine.ComparisonOp {
	switch k {
	case TokEq:
		return engine.CmpEq
	case TokNe:
		return engine.CmpNe
	case TokGt:
		return engine.CmpGt
	case TokGe:
		return engine.CmpGe
	case TokLt:
		return engine.CmpLt
	case TokLe:
		return engine.CmpLe
	default:
		return engine.CmpEq
	}
}
