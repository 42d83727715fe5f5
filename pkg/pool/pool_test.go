package pool

import "testing"

func TestGetMapReturnsEmptyMap(t *testing.T) {
	m := GetMap()
	if len(m) != 0 {
		t.Fatalf("expected empty map, got %v", m)
	}
	m["a"] = 1
	PutMap(m)
}

func TestPutMapClearsBeforeReuse(t *testing.T) {
	m := GetMap()
	m["leftover"] = "value"
	PutMap(m)

	for i := 0; i < 8; i++ {
		reused := GetMap()
		if len(reused) != 0 {
			t.Fatalf("expected PutMap to clear entries before reuse, got %v", reused)
		}
		PutMap(reused)
	}
}
