package ucl

import (
	"fmt"
	"strconv"
	"strings"
)

// LexError reports a byte the scanner could not turn into a token.
type LexError struct {
	Line, Column int
	Message      string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("ucl: lex error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// Lexer is a hand-written scanner over UCL source, replacing the
// Logos-derived token enum of the original with direct byte-at-a-time
// scanning — the grammar's triple-quoted strings, fenced code blocks, and
// pipe table literals interleave with keyword tokens in a way no
// off-the-shelf Go lexer/parser-generator in the pack models without
// fighting its own grammar DSL.
type Lexer struct {
	src        string
	pos        int
	line, col  int
}

// NewLexer constructs a Lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Tokenize scans src to completion, skipping comments and newlines (UCL has
// no indentation or statement-terminator significance), and appends a
// trailing TokEOF.
func Tokenize(src string) ([]Token, error) {
	lx := NewLexer(src)
	var toks []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokEOF {
			toks = append(toks, tok)
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advanceByte() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

func (l *Lexer) next() (Token, error) {
	for {
		l.skipWhitespaceAndComments()
		if l.pos >= len(l.src) {
			return Token{Kind: TokEOF, Line: l.line, Column: l.col}, nil
		}

		startLine, startCol := l.line, l.col
		b := l.peekByte()

		switch {
		case b == '"' && l.peekAt(1) == '"' && l.peekAt(2) == '"':
			return l.scanTripleString('"', startLine, startCol)
		case b == '\'' && l.peekAt(1) == '\'' && l.peekAt(2) == '\'':
			return l.scanTripleString('\'', startLine, startCol)
		case b == '`' && l.peekAt(1) == '`' && l.peekAt(2) == '`':
			return l.scanCodeBlock(startLine, startCol)
		case b == '"':
			return l.scanString('"', startLine, startCol)
		case b == '\'':
			return l.scanString('\'', startLine, startCol)
		case b == '|':
			if tok, ok, err := l.tryScanTableLiteral(startLine, startCol); ok || err != nil {
				return tok, err
			}
			l.advanceByte()
			return Token{Kind: TokIdentifier, Text: "|", Line: startLine, Column: startCol}, nil
		case isDigit(b) || (b == '-' && isDigit(l.peekAt(1))):
			return l.scanNumber(startLine, startCol)
		case isIdentStart(b):
			return l.scanIdentOrBlockId(startLine, startCol)
		default:
			return l.scanPunct(startLine, startCol)
		}
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.src) {
		b := l.peekByte()
		switch {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			l.advanceByte()
		case b == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advanceByte()
			}
		default:
			return
		}
	}
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isIdentStart(b byte) bool { return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isIdentCont(b byte) bool  { return isIdentStart(b) || isDigit(b) }
func isHex(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func (l *Lexer) scanIdentOrBlockId(line, col int) (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		l.advanceByte()
	}
	text := l.src[start:l.pos]

	if strings.HasPrefix(text, "blk_") && len(text) > 4 {
		hexPart := text[4:]
		allHex := true
		for i := 0; i < len(hexPart); i++ {
			if !isHex(hexPart[i]) {
				allHex = false
				break
			}
		}
		if allHex {
			return Token{Kind: TokBlockId, Text: text, Line: line, Column: col}, nil
		}
	}

	if kind, ok := keywords[text]; ok {
		return Token{Kind: kind, Text: text, Line: line, Column: col}, nil
	}
	return Token{Kind: TokIdentifier, Text: text, Line: line, Column: col}, nil
}

func (l *Lexer) scanNumber(line, col int) (Token, error) {
	start := l.pos
	if l.peekByte() == '-' {
		l.advanceByte()
	}
	for l.pos < len(l.src) && isDigit(l.peekByte()) {
		l.advanceByte()
	}
	isFloat := false
	if l.peekByte() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advanceByte()
		for l.pos < len(l.src) && isDigit(l.peekByte()) {
			l.advanceByte()
		}
	}
	text := l.src[start:l.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, &LexError{Line: line, Column: col, Message: "invalid float literal"}
		}
		return Token{Kind: TokFloat, Text: text, Float: f, Line: line, Column: col}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, &LexError{Line: line, Column: col, Message: "invalid integer literal"}
	}
	return Token{Kind: TokInteger, Text: text, Int: n, Line: line, Column: col}, nil
}

func (l *Lexer) scanString(quote byte, line, col int) (Token, error) {
	l.advanceByte() // opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, &LexError{Line: line, Column: col, Message: "unterminated string literal"}
		}
		c := l.peekByte()
		if c == quote {
			l.advanceByte()
			break
		}
		if c == '\\' {
			l.advanceByte()
			b.WriteByte(unescapeByte(l.advanceByte()))
			continue
		}
		b.WriteByte(l.advanceByte())
	}
	return Token{Kind: TokString, Text: b.String(), Line: line, Column: col}, nil
}

func unescapeByte(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func (l *Lexer) scanTripleString(quote byte, line, col int) (Token, error) {
	l.pos += 3
	l.col += 3
	start := l.pos
	for {
		if l.pos+2 >= len(l.src) {
			return Token{}, &LexError{Line: line, Column: col, Message: "unterminated triple-quoted string"}
		}
		if l.peekByte() == quote && l.peekAt(1) == quote && l.peekAt(2) == quote {
			text := l.src[start:l.pos]
			l.pos += 3
			l.col += 3
			return Token{Kind: TokString, Text: text, Line: line, Column: col}, nil
		}
		l.advanceByte()
	}
}

func (l *Lexer) scanCodeBlock(line, col int) (Token, error) {
	l.pos += 3
	l.col += 3
	// Optional language tag up to the end of the opening fence's line.
	for l.pos < len(l.src) && l.peekByte() != '\n' {
		l.advanceByte()
	}
	if l.pos < len(l.src) {
		l.advanceByte() // consume the newline after the fence
	}
	start := l.pos
	for {
		if l.pos+2 >= len(l.src) {
			return Token{}, &LexError{Line: line, Column: col, Message: "unterminated code block"}
		}
		if l.peekByte() == '`' && l.peekAt(1) == '`' && l.peekAt(2) == '`' {
			text := l.src[start:l.pos]
			l.pos += 3
			l.col += 3
			return Token{Kind: TokCodeBlock, Text: text, Line: line, Column: col}, nil
		}
		l.advanceByte()
	}
}

// tryScanTableLiteral consumes consecutive `|...|` lines as one TableLiteral
// token, returning ok=false without consuming input if the current line
// isn't pipe-delimited.
func (l *Lexer) tryScanTableLiteral(line, col int) (Token, bool, error) {
	lineEnd := strings.IndexByte(l.src[l.pos:], '\n')
	var firstLine string
	if lineEnd < 0 {
		firstLine = l.src[l.pos:]
	} else {
		firstLine = l.src[l.pos : l.pos+lineEnd]
	}
	trimmed := strings.TrimRight(firstLine, "\r")
	if !strings.HasPrefix(trimmed, "|") || !strings.HasSuffix(trimmed, "|") || len(trimmed) < 2 {
		return Token{}, false, nil
	}

	start := l.pos
	for {
		lineEnd := strings.IndexByte(l.src[l.pos:], '\n')
		var cur string
		if lineEnd < 0 {
			cur = l.src[l.pos:]
		} else {
			cur = l.src[l.pos : l.pos+lineEnd]
		}
		cur = strings.TrimRight(cur, "\r")
		if !strings.HasPrefix(cur, "|") || !strings.HasSuffix(cur, "|") || len(cur) < 2 {
			break
		}
		for i := 0; i < len(cur); i++ {
			l.advanceByte()
		}
		if l.pos >= len(l.src) || l.peekByte() != '\n' {
			break
		}
		l.advanceByte() // consume newline, tentatively continuing the literal
		next := l.pos
		nextLineEnd := strings.IndexByte(l.src[next:], '\n')
		var peekLine string
		if nextLineEnd < 0 {
			peekLine = l.src[next:]
		} else {
			peekLine = l.src[next : next+nextLineEnd]
		}
		peekLine = strings.TrimRight(peekLine, "\r")
		if !strings.HasPrefix(peekLine, "|") || !strings.HasSuffix(peekLine, "|") || len(peekLine) < 2 {
			break
		}
	}
	text := strings.TrimRight(l.src[start:l.pos], "\n")
	return Token{Kind: TokTableLiteral, Text: text, Line: line, Column: col}, true, nil
}

func (l *Lexer) scanPunct(line, col int) (Token, error) {
	b := l.advanceByte()
	two := func(next byte, kind TokenKind) (Token, bool) {
		if l.peekByte() == next {
			l.advanceByte()
			return Token{Kind: kind, Line: line, Column: col}, true
		}
		return Token{}, false
	}

	switch b {
	case '=':
		if l.peekByte() == '=' { // accept both `=` and `==` as the equality/assignment token
			l.advanceByte()
		}
		return Token{Kind: TokEq, Line: line, Column: col}, nil
	case '!':
		if tok, ok := two('=', TokNe); ok {
			return tok, nil
		}
	case '>':
		if tok, ok := two('=', TokGe); ok {
			return tok, nil
		}
		return Token{Kind: TokGt, Line: line, Column: col}, nil
	case '<':
		if tok, ok := two('=', TokLe); ok {
			return tok, nil
		}
		return Token{Kind: TokLt, Line: line, Column: col}, nil
	case '+':
		if tok, ok := two('=', TokPlusEq); ok {
			return tok, nil
		}
		if tok, ok := two('+', TokPlusPlus); ok {
			return tok, nil
		}
	case '-':
		if tok, ok := two('=', TokMinusEq); ok {
			return tok, nil
		}
		if tok, ok := two('-', TokMinusMinus); ok {
			return tok, nil
		}
	case ':':
		if tok, ok := two(':', TokDoubleColon); ok {
			return tok, nil
		}
		return Token{Kind: TokColon, Line: line, Column: col}, nil
	case ',':
		return Token{Kind: TokComma, Line: line, Column: col}, nil
	case '.':
		return Token{Kind: TokDot, Line: line, Column: col}, nil
	case '#':
		return Token{Kind: TokHash, Line: line, Column: col}, nil
	case '@':
		return Token{Kind: TokAtSign, Line: line, Column: col}, nil
	case '$':
		return Token{Kind: TokDollar, Line: line, Column: col}, nil
	case '[':
		return Token{Kind: TokLBracket, Line: line, Column: col}, nil
	case ']':
		return Token{Kind: TokRBracket, Line: line, Column: col}, nil
	case '{':
		return Token{Kind: TokLBrace, Line: line, Column: col}, nil
	case '}':
		return Token{Kind: TokRBrace, Line: line, Column: col}, nil
	case '(':
		return Token{Kind: TokLParen, Line: line, Column: col}, nil
	case ')':
		return Token{Kind: TokRParen, Line: line, Column: col}, nil
	}
	return Token{}, &LexError{Line: line, Column: col, Message: fmt.Sprintf("unexpected byte %q", b)}
}
