// Package content implements the UCP tagged content variant: normalization,
// content hashing, and token estimation (spec §3.1, §4.1).
package content

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/ucp/internal/blockid"
)

// Kind identifies which Content variant a value holds. The set is closed —
// every boundary that dispatches on Content (normalization, size estimation,
// serialization) must exhaustively switch over Kind.
type Kind string

const (
	KindText      Kind = "text"
	KindCode      Kind = "code"
	KindTable     Kind = "table"
	KindMath      Kind = "math"
	KindMedia     Kind = "media"
	KindJson      Kind = "json"
	KindBinary    Kind = "binary"
	KindComposite Kind = "composite"
)

// TextFormat distinguishes plain text from Markdown inside a Text content.
type TextFormat string

const (
	TextPlain    TextFormat = "plain"
	TextMarkdown TextFormat = "markdown"
)

// MathFormat identifies the notation a Math content is expressed in.
type MathFormat string

const (
	MathLatex     MathFormat = "latex"
	MathMathML    MathFormat = "mathml"
	MathAsciiMath MathFormat = "asciimath"
)

// MediaSourceKind identifies how a Media content's bytes are referenced.
type MediaSourceKind string

const (
	MediaURL       MediaSourceKind = "url"
	MediaBase64    MediaSourceKind = "base64"
	MediaReference MediaSourceKind = "reference"
	MediaExternal  MediaSourceKind = "external"
)

// BinaryEncoding identifies how Binary content's bytes are encoded for
// transport within the tagged variant.
type BinaryEncoding string

const (
	BinaryRaw    BinaryEncoding = "raw"
	BinaryBase64 BinaryEncoding = "base64"
	BinaryHex    BinaryEncoding = "hex"
)

// CompositeLayout describes how a Composite content's children are arranged
// for presentation.
type CompositeLayout struct {
	Kind string `json:"kind"` // vertical | horizontal | tabs | grid
	Grid int    `json:"grid,omitempty"`
}

// Dimensions is the optional width/height of a Media content.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Content is the tagged variant described in spec §3.1. Exactly the fields
// relevant to Kind are populated; the rest are left at their zero value.
type Content struct {
	Kind Kind `json:"type"`

	// Text
	Text       string     `json:"text,omitempty"`
	TextFormat TextFormat `json:"format,omitempty"`

	// Code
	Language string `json:"language,omitempty"`
	Source   string `json:"source,omitempty"`

	// Table
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`

	// Math
	Expression  string     `json:"expression,omitempty"`
	MathFormat  MathFormat `json:"math_format,omitempty"`
	DisplayMode bool       `json:"display_mode,omitempty"`

	// Media
	MediaKind   string          `json:"media_kind,omitempty"`
	MediaSource MediaSourceKind `json:"source_kind,omitempty"`
	MediaRef    string          `json:"media_ref,omitempty"`
	Alt         string          `json:"alt,omitempty"`
	Dims        *Dimensions     `json:"dims,omitempty"`

	// Json
	Value json.RawMessage `json:"value,omitempty"`

	// Binary
	Mime     string         `json:"mime,omitempty"`
	Bytes    []byte         `json:"bytes,omitempty"`
	Encoding BinaryEncoding `json:"encoding,omitempty"`

	// Composite
	Layout   CompositeLayout   `json:"layout,omitempty"`
	Children []blockid.BlockId `json:"children,omitempty"`
}

// Equal reports whether two Content values are identical after
// normalization — the property required by spec §3.2 invariant 5.
func Equal(a, b Content) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(na, nb)
}

// Normalize produces the canonical byte form of c used to compute its
// content hash (spec §4.1). It is a pure function of c.
func Normalize(c Content) ([]byte, error) {
	switch c.Kind {
	case KindText:
		return []byte(normalizeText(c.Text)), nil
	case KindCode:
		return []byte(normalizeLineEndings(c.Source)), nil
	case KindTable:
		return normalizeTable(c)
	case KindMath:
		return canonicalJSON(map[string]any{
			"expression":   normalizeText(c.Expression),
			"format":       c.MathFormat,
			"display_mode": c.DisplayMode,
		})
	case KindMedia:
		return canonicalJSON(map[string]any{
			"kind":   c.MediaKind,
			"source": c.MediaSource,
			"ref":    c.MediaRef,
			"alt":    normalizeText(c.Alt),
			"dims":   c.Dims,
		})
	case KindJson:
		return normalizeJSONValue(c.Value)
	case KindBinary:
		return canonicalJSON(map[string]any{
			"mime":     c.Mime,
			"bytes":    hex.EncodeToString(c.Bytes),
			"encoding": c.Encoding,
		})
	case KindComposite:
		children := make([]string, len(c.Children))
		for i, id := range c.Children {
			children[i] = id.String()
		}
		return canonicalJSON(map[string]any{
			"layout":   c.Layout,
			"children": children,
		})
	default:
		return nil, fmt.Errorf("content: unknown kind %q", c.Kind)
	}
}

// Hash computes the SHA-256 content hash of c over its normalized form
// (spec §4.1, §3.2 invariant 5).
func Hash(c Content) ([32]byte, error) {
	normalized, err := Normalize(c)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(normalized), nil
}

// HashHex is Hash rendered as a lowercase hex string, the form stored on
// BlockMetadata.content_hash.
func HashHex(c Content) (string, error) {
	h, err := Hash(c)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// normalizeText collapses runs of ASCII whitespace to a single space and
// trims the ends, after normalizing line endings — spec §4.1.
func normalizeText(s string) string {
	s = normalizeLineEndings(s)
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if isASCIIWhitespace(r) {
			if !inRun {
				b.WriteByte(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func isASCIIWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

func normalizeTable(c Content) ([]byte, error) {
	// Column order and cell values are preserved verbatim (spec §4.1); only
	// line endings within cells are normalized for cross-platform stability.
	rows := make([][]string, len(c.Rows))
	for i, row := range c.Rows {
		normRow := make([]string, len(row))
		for j, cell := range row {
			normRow[j] = normalizeLineEndings(cell)
		}
		rows[i] = normRow
	}
	return canonicalJSON(map[string]any{
		"columns": c.Columns,
		"rows":    rows,
	})
}

func normalizeJSONValue(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return []byte("null"), nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("content: invalid json value: %w", err)
	}
	return canonicalJSON(v)
}

// canonicalJSON serializes v with sorted object keys and no insignificant
// whitespace. encoding/json already marshals Go maps in sorted key order, so
// no third-party canonical-JSON library is required here (see DESIGN.md).
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("content: canonical json encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// TokenEstimate holds per-model token counts cached on BlockMetadata.
type TokenEstimate struct {
	Generic int            `json:"generic"`
	ByModel map[string]int `json:"by_model,omitempty"`
}

// Estimator estimates token counts for a Content across a configurable set
// of named models, in addition to the always-present generic estimate.
type Estimator struct {
	models    map[string]func(string) int
	stopwords *stopwords.Stopwords
}

// NewEstimator builds an Estimator with the generic ceil(chars/4) model and
// any additional named models supplied.
func NewEstimator(models map[string]func(string) int) *Estimator {
	return &Estimator{
		models:    models,
		stopwords: stopwords.MustGet("en"),
	}
}

// Estimate computes the token estimate for c, cached on BlockMetadata per
// spec §4.1: Generic is always ceil(chars/4) over c's own raw text, and any
// named models run over that same raw text. See EstimateSummaryTokens for
// the separate stopword-filtered estimate.
func (e *Estimator) Estimate(c Content) (TokenEstimate, error) {
	text, err := estimationText(c)
	if err != nil {
		return TokenEstimate{}, err
	}

	est := TokenEstimate{
		Generic: genericEstimate(text),
	}
	if len(e.models) > 0 {
		est.ByModel = make(map[string]int, len(e.models))
		names := make([]string, 0, len(e.models))
		for name := range e.models {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			est.ByModel[name] = e.models[name](text)
		}
	}
	return est, nil
}

// EstimateSummaryTokens estimates the token count of an auto-generated
// block summary, stripping function words first (spec §4.1 scopes the
// stopword-filtered estimate to summaries, not a block's own content —
// Estimate above always uses the generic ceil(chars/4) model over raw
// content).
func (e *Estimator) EstimateSummaryTokens(summary string) int {
	return genericEstimate(e.stripStopwords(summary))
}

func (e *Estimator) stripStopwords(text string) string {
	if e.stopwords == nil {
		return text
	}
	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !e.stopwords.Contains(w) {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func genericEstimate(text string) int {
	return int(math.Ceil(float64(len(text)) / 4.0))
}

func estimationText(c Content) (string, error) {
	switch c.Kind {
	case KindText:
		return c.Text, nil
	case KindCode:
		return c.Source, nil
	case KindMath:
		return c.Expression, nil
	case KindMedia:
		return c.Alt, nil
	case KindTable:
		var b strings.Builder
		for _, row := range c.Rows {
			b.WriteString(strings.Join(row, " "))
			b.WriteByte(' ')
		}
		return b.String(), nil
	case KindJson:
		return string(c.Value), nil
	case KindBinary:
		return "", nil
	case KindComposite:
		return "", nil
	default:
		return "", fmt.Errorf("content: unknown kind %q", c.Kind)
	}
}
