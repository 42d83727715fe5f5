package blockid

import "testing"

func TestRootIsAllZero(t *testing.T) {
	if !Root.IsRoot() {
		t.Fatalf("Root.IsRoot() = false")
	}
	if got, want := Root.String(), Prefix+"000000000000000000000000"; got != want {
		t.Fatalf("unexpected root string: got %s, want %s", got, want)
	}
}

func TestParseRoundTrip(t *testing.T) {
	id := MustNew()
	s := id.String()

	parsed, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed != id {
		t.Fatalf("round trip mismatch: got %s, want %s", parsed, id)
	}
}

func TestParseRejectsBadFormat(t *testing.T) {
	cases := []string{
		"",
		"blk_123",
		"nope_000000000000000000000000",
		"blk_zzzzzzzzzzzzzzzzzzzzzzzz",
	}
	for _, s := range cases {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", s)
		}
	}
}

func TestLessIsLexicographicOverHex(t *testing.T) {
	a := BlockId{0x00}
	b := BlockId{0x01}
	if !a.Less(b) {
		t.Fatalf("expected %s < %s", a, b)
	}
	if b.Less(a) {
		t.Fatalf("expected %s not < %s", b, a)
	}
}

func TestSortedSetDedupsAndOrders(t *testing.T) {
	a := BlockId{0x02}
	b := BlockId{0x01}
	c := BlockId{0x03}

	got := SortedSet([]BlockId{a, b, c, b, a})
	want := []BlockId{b, a, c}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	id := MustNew()
	text, err := id.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var decoded BlockId
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if decoded != id {
		t.Fatalf("round trip mismatch: got %s, want %s", decoded, id)
	}
}
