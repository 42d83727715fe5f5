package engine

import (
	"fmt"
)

// PathSegmentKind distinguishes the four addressing modes a Path can mix
// (spec §4.3.1, §9 "Path expressions").
type PathSegmentKind int

const (
	SegmentProperty PathSegmentKind = iota
	SegmentIndex
	SegmentSlice
	SegmentJsonPath
)

// PathSegment is one step of a Path: a dotted property name, a bracketed
// index, a bracketed slice, or a `$`-rooted JSON path name.
type PathSegment struct {
	Kind     PathSegmentKind
	Property string
	Index    int
	SliceLo  *int
	SliceHi  *int
	JsonPath string
}

// Path is an ordered sequence of PathSegments addressing a value inside a
// block's content or metadata.
type Path struct {
	Segments []PathSegment
}

// SimplePath builds a single-property Path, e.g. for "content.text".
func SimplePath(names ...string) Path {
	segs := make([]PathSegment, len(names))
	for i, n := range names {
		segs[i] = PathSegment{Kind: SegmentProperty, Property: n}
	}
	return Path{Segments: segs}
}

func (p Path) String() string {
	out := ""
	for i, s := range p.Segments {
		switch s.Kind {
		case SegmentProperty:
			if i > 0 {
				out += "."
			}
			out += s.Property
		case SegmentIndex:
			out += fmt.Sprintf("[%d]", s.Index)
		case SegmentSlice:
			lo, hi := "", ""
			if s.SliceLo != nil {
				lo = fmt.Sprintf("%d", *s.SliceLo)
			}
			if s.SliceHi != nil {
				hi = fmt.Sprintf("%d", *s.SliceHi)
			}
			out += fmt.Sprintf("[%s:%s]", lo, hi)
		case SegmentJsonPath:
			out += "$" + s.JsonPath
		}
	}
	return out
}

// PathError is returned when a Path cannot be resolved or applied against
// a dynamic value tree.
type PathError struct {
	Path    Path
	Message string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("engine: path %q: %s", e.Path.String(), e.Message)
}

// Get resolves path against root (a tree of map[string]any / []any / scalar,
// as produced by Value.ToAny), returning the addressed value.
func Get(root any, path Path) (any, error) {
	cur := root
	for _, seg := range path.Segments {
		next, err := getSegment(cur, seg, path)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func getSegment(cur any, seg PathSegment, full Path) (any, error) {
	switch seg.Kind {
	case SegmentProperty, SegmentJsonPath:
		name := seg.Property
		if seg.Kind == SegmentJsonPath {
			name = seg.JsonPath
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, &PathError{Path: full, Message: fmt.Sprintf("cannot index non-object with property %q", name)}
		}
		return m[name], nil
	case SegmentIndex:
		arr, ok := cur.([]any)
		if !ok {
			return nil, &PathError{Path: full, Message: "cannot index non-array"}
		}
		i := seg.Index
		if i < 0 || i >= len(arr) {
			return nil, &PathError{Path: full, Message: fmt.Sprintf("index %d out of range", i)}
		}
		return arr[i], nil
	case SegmentSlice:
		arr, ok := cur.([]any)
		if !ok {
			return nil, &PathError{Path: full, Message: "cannot slice non-array"}
		}
		lo, hi := sliceBounds(seg, len(arr))
		if lo < 0 || hi > len(arr) || lo > hi {
			return nil, &PathError{Path: full, Message: "slice out of range"}
		}
		return arr[lo:hi], nil
	default:
		return nil, &PathError{Path: full, Message: "unknown path segment"}
	}
}

func sliceBounds(seg PathSegment, length int) (int, int) {
	lo, hi := 0, length
	if seg.SliceLo != nil {
		lo = *seg.SliceLo
	}
	if seg.SliceHi != nil {
		hi = *seg.SliceHi
	}
	return lo, hi
}

// Set resolves path against root up to its final segment and writes value
// there, mutating root in place where possible (maps) and returning a
// possibly-new root when the top-level value itself had to be replaced
// (arrays, scalars).
func Set(root any, path Path, value any) (any, error) {
	if len(path.Segments) == 0 {
		return value, nil
	}
	return setSegments(root, path.Segments, value, path)
}

func setSegments(cur any, segs []PathSegment, value any, full Path) (any, error) {
	seg := segs[0]
	if len(segs) == 1 {
		return applySet(cur, seg, value, full)
	}

	child, err := getSegment(cur, seg, full)
	if err != nil {
		// Auto-vivify missing intermediate objects so `APPEND ... WITH` can
		// build nested structures in one step.
		if seg.Kind == SegmentProperty || seg.Kind == SegmentJsonPath {
			child = map[string]any{}
		} else {
			return nil, err
		}
	}
	updatedChild, err := setSegments(child, segs[1:], value, full)
	if err != nil {
		return nil, err
	}
	return applySet(cur, seg, updatedChild, full)
}

func applySet(cur any, seg PathSegment, value any, full Path) (any, error) {
	switch seg.Kind {
	case SegmentProperty, SegmentJsonPath:
		name := seg.Property
		if seg.Kind == SegmentJsonPath {
			name = seg.JsonPath
		}
		m, ok := cur.(map[string]any)
		if !ok {
			if cur == nil {
				m = map[string]any{}
			} else {
				return nil, &PathError{Path: full, Message: fmt.Sprintf("cannot set property %q on non-object", name)}
			}
		}
		m[name] = value
		return m, nil
	case SegmentIndex:
		arr, ok := cur.([]any)
		if !ok {
			return nil, &PathError{Path: full, Message: "cannot index non-array"}
		}
		if seg.Index < 0 || seg.Index >= len(arr) {
			return nil, &PathError{Path: full, Message: fmt.Sprintf("index %d out of range", seg.Index)}
		}
		arr[seg.Index] = value
		return arr, nil
	default:
		return nil, &PathError{Path: full, Message: "cannot assign through this path segment"}
	}
}
