// Package blockid defines the opaque 12-byte block identifier shared by
// every document, operation, and traversal type in the engine.
package blockid

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
)

// Size is the length in bytes of a BlockId's underlying value.
const Size = 12

// Prefix is prepended to the hex form of every rendered BlockId.
const Prefix = "blk_"

// ErrInvalidFormat is returned when a string does not parse as a BlockId.
var ErrInvalidFormat = errors.New("blockid: invalid format")

// BlockId is an opaque 12-byte identifier. Callers must never extract or
// depend on structure inside the value; it is rendered as blk_ + 24 hex
// characters and ordered lexicographically over that hex form.
type BlockId [Size]byte

// Root is the reserved all-zero identifier for a document's root block.
var Root = BlockId{}

// New generates a fresh random BlockId.
func New() (BlockId, error) {
	var id BlockId
	if _, err := rand.Read(id[:]); err != nil {
		return BlockId{}, fmt.Errorf("blockid: failed to generate: %w", err)
	}
	return id, nil
}

// MustNew generates a fresh random BlockId, panicking on entropy failure.
// Intended for call sites (tests, fixtures) that cannot propagate an error.
func MustNew() BlockId {
	id, err := New()
	if err != nil {
		panic(err)
	}
	return id
}

// IsRoot reports whether id is the reserved root value.
func (id BlockId) IsRoot() bool {
	return id == Root
}

// String renders the BlockId in its canonical blk_<hex> form.
func (id BlockId) String() string {
	return Prefix + hex.EncodeToString(id[:])
}

// Less orders two BlockIds lexicographically over their hex form, the
// ordering used for deterministic iteration throughout the engine.
func (id BlockId) Less(other BlockId) bool {
	return id.String() < other.String()
}

// Parse parses the blk_<hex> form produced by String. The all-zero value is
// accepted and returns Root.
func Parse(s string) (BlockId, error) {
	if len(s) != len(Prefix)+Size*2 || s[:len(Prefix)] != Prefix {
		return BlockId{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	raw, err := hex.DecodeString(s[len(Prefix):])
	if err != nil {
		return BlockId{}, fmt.Errorf("%w: %q: %v", ErrInvalidFormat, s, err)
	}
	var id BlockId
	copy(id[:], raw)
	return id, nil
}

// MarshalText implements encoding.TextMarshaler so BlockId serializes as its
// blk_ string form in JSON documents and map keys.
func (id BlockId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *BlockId) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// SortedSet returns the given ids sorted and deduplicated — used wherever
// canonical output (state hash, codegraph fingerprint) depends on a stable
// iteration order over a set of ids.
func SortedSet(ids []BlockId) []BlockId {
	seen := make(map[BlockId]struct{}, len(ids))
	out := make([]BlockId, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
