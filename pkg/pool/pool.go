// Package pool reduces GC pressure in codegraph's block-building loop by
// pooling the short-lived map[string]any values addBlock marshals into a
// content summary and then discards (spec §4.6: one repository/directory/
// file/symbol block per source entity, each carrying a JSON summary of its
// own metadata — built and thrown away many thousands of times per large
// repository build).
package pool

import "sync"

var mapPool = sync.Pool{
	New: func() interface{} {
		return make(map[string]any, 8)
	},
}

// GetMap returns an empty map[string]any ready to populate. Callers must
// return it with PutMap once they're done reading from it — after
// marshaling, never after handing it off to something that retains it.
func GetMap() map[string]any {
	return mapPool.Get().(map[string]any)
}

// PutMap clears m and returns it to the pool. Do not use m after calling
// PutMap.
func PutMap(m map[string]any) {
	for k := range m {
		delete(m, k)
	}
	mapPool.Put(m)
}
