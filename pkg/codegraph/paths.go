package codegraph

import "strings"

// parentDirectory returns path's parent directory in repo-relative slash
// form, or "" if path has no parent (is at repo root).
func parentDirectory(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// ascendDirectory strips levels trailing path segments off path.
func ascendDirectory(path string, levels int) string {
	if path == "" {
		return ""
	}
	parts := strings.Split(path, "/")
	for i := 0; i < levels && len(parts) > 0; i++ {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "/")
}

// normalizeRelativeJoin joins base with a relative path expression possibly
// containing "." and ".." segments, producing a clean slash-form path.
func normalizeRelativeJoin(base, relative string) string {
	var segments []string
	if base != "" {
		for _, s := range strings.Split(base, "/") {
			if s != "" {
				segments = append(segments, s)
			}
		}
	}
	for _, part := range strings.Split(relative, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, "/")
}

func isHiddenPath(path string) bool {
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func sanitizeIdentifier(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
