// Package ucl implements the Unified Content Language: a lexer, a
// recursive-descent parser, and lowering from parsed UCL into engine
// Operations and document.Block literals (spec §4.4).
package ucl

import "fmt"

// TokenKind is the closed set of lexical token kinds UCL source can contain.
type TokenKind int

const (
	TokEOF TokenKind = iota

	// Section headers
	TokStructure
	TokBlocks
	TokCommands

	// Commands
	TokEdit
	TokSet
	TokMove
	TokTo
	TokAt
	TokBefore
	TokAfter
	TokAppend
	TokWith
	TokDelete
	TokCascade
	TokPreserveChildren
	TokPrune
	TokUnreachable
	TokWhere
	TokDryRun
	TokFold
	TokDepth
	TokMaxTokens
	TokPreserveTags
	TokLink
	TokUnlink
	TokWriteSection
	TokBaseLevel
	TokSnapshot
	TokCreate
	TokRestore
	TokList
	TokDiff
	TokBegin
	TokTransaction
	TokCommit
	TokRollback
	TokAtomic

	// Operators
	TokEq
	TokNe
	TokGt
	TokGe
	TokLt
	TokLe
	TokPlusEq
	TokMinusEq
	TokPlusPlus
	TokMinusMinus

	// Logic
	TokAnd
	TokOr
	TokNot
	TokContains
	TokStartsWith
	TokEndsWith
	TokMatches
	TokExists
	TokIsNull

	// Punctuation
	TokDoubleColon
	TokColon
	TokComma
	TokDot
	TokHash
	TokAtSign
	TokDollar
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokLParen
	TokRParen

	// Content types
	TokTextType
	TokTableType
	TokCodeType
	TokMathType
	TokMediaType
	TokJsonType
	TokBinaryType
	TokCompositeType

	// Literals
	TokTrue
	TokFalse
	TokNull
	TokBlockId
	TokIdentifier
	TokInteger
	TokFloat
	TokString   // single-, double-, or triple-quoted
	TokCodeBlock
	TokTableLiteral
)

// Token is a single lexed unit with its source position and literal value,
// mirroring the position-tracking Token the original lexer produces.
type Token struct {
	Kind   TokenKind
	Text   string
	Int    int64
	Float  float64
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%v(%q)@%d:%d", t.Kind, t.Text, t.Line, t.Column)
}

var keywords = map[string]TokenKind{
	"STRUCTURE":          TokStructure,
	"BLOCKS":             TokBlocks,
	"COMMANDS":           TokCommands,
	"EDIT":               TokEdit,
	"SET":                TokSet,
	"MOVE":               TokMove,
	"TO":                 TokTo,
	"AT":                 TokAt,
	"BEFORE":             TokBefore,
	"AFTER":              TokAfter,
	"APPEND":             TokAppend,
	"WITH":               TokWith,
	"DELETE":             TokDelete,
	"CASCADE":            TokCascade,
	"PRESERVE_CHILDREN":  TokPreserveChildren,
	"PRUNE":              TokPrune,
	"UNREACHABLE":        TokUnreachable,
	"WHERE":              TokWhere,
	"DRY_RUN":            TokDryRun,
	"FOLD":               TokFold,
	"DEPTH":              TokDepth,
	"MAX_TOKENS":         TokMaxTokens,
	"PRESERVE_TAGS":      TokPreserveTags,
	"LINK":               TokLink,
	"UNLINK":             TokUnlink,
	"WRITE_SECTION":      TokWriteSection,
	"BASE_LEVEL":         TokBaseLevel,
	"SNAPSHOT":           TokSnapshot,
	"CREATE":             TokCreate,
	"RESTORE":            TokRestore,
	"LIST":               TokList,
	"DIFF":               TokDiff,
	"BEGIN":              TokBegin,
	"TRANSACTION":        TokTransaction,
	"COMMIT":             TokCommit,
	"ROLLBACK":           TokRollback,
	"ATOMIC":             TokAtomic,
	"AND":                TokAnd,
	"OR":                 TokOr,
	"NOT":                TokNot,
	"CONTAINS":           TokContains,
	"STARTS_WITH":        TokStartsWith,
	"ENDS_WITH":          TokEndsWith,
	"MATCHES":            TokMatches,
	"EXISTS":             TokExists,
	"IS_NULL":            TokIsNull,
	"true":               TokTrue,
	"false":              TokFalse,
	"null":                TokNull,
	"text":               TokTextType,
	"table":              TokTableType,
	"code":               TokCodeType,
	"math":               TokMathType,
	"media":              TokMediaType,
	"json":               TokJsonType,
	"binary":             TokBinaryType,
	"composite":          TokCompositeType,
}
