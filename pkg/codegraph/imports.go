package codegraph

import (
	"regexp"
	"strings"
)

// resolvedImport is an import whose raw text was mapped onto a candidate
// repository-relative path.
type resolvedImport struct {
	TargetRelativePath string
	External           bool
}

var (
	rustUseModulePattern   = regexp.MustCompile(`^use\s+([a-zA-Z0-9_:]+)`)
	pyImportPattern        = regexp.MustCompile(`^import\s+([a-zA-Z0-9_.]+)`)
	pyFromImportPattern    = regexp.MustCompile(`^from\s+([.a-zA-Z0-9_]+)\s+import`)
	tsModuleLiteralPattern = regexp.MustCompile(`from\s+['"]([^'"]+)['"]`)
)

// resolveImport maps one raw import string found in the file at
// fileRelativePath onto a repository-relative target, per spec §4.6
// "Import resolution". An external import (a crate/package from outside
// the repository) yields ok=true with External set; ok=false means the
// import could not be resolved against any known sibling file.
func resolveImport(raw extractedImport, fileRelativePath string, lang language, knownFiles map[string]struct{}) (resolvedImport, bool) {
	switch lang {
	case langRust:
		return resolveRustImport(raw.Raw, fileRelativePath, knownFiles)
	case langPython:
		return resolvePythonImport(raw.Raw, fileRelativePath, knownFiles)
	case langTypeScript, langJavaScript:
		return resolveTsImport(raw.Raw, fileRelativePath, knownFiles)
	default:
		return resolvedImport{}, false
	}
}

// -- Rust -----------------------------------------------------------------

func resolveRustImport(raw, fileRelativePath string, knownFiles map[string]struct{}) (resolvedImport, bool) {
	match := rustUseModulePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return resolvedImport{}, false
	}
	path := match[1]

	if strings.HasPrefix(path, "std::") || strings.HasPrefix(path, "core::") || strings.HasPrefix(path, "alloc::") {
		return resolvedImport{External: true}, true
	}

	var segments []string
	switch {
	case strings.HasPrefix(path, "crate::"):
		segments = strings.Split(strings.TrimPrefix(path, "crate::"), "::")
		segments = append([]string{"src"}, segments...)
	case strings.HasPrefix(path, "self::"):
		segments = strings.Split(strings.TrimPrefix(path, "self::"), "::")
		segments = append(strings.Split(parentDirectory(fileRelativePath), "/"), segments...)
	case strings.HasPrefix(path, "super::"):
		rest := path
		levels := 0
		for strings.HasPrefix(rest, "super::") {
			rest = strings.TrimPrefix(rest, "super::")
			levels++
		}
		base := ascendDirectory(parentDirectory(fileRelativePath), levels-1)
		segments = append(strings.Split(base, "/"), strings.Split(rest, "::")...)
	default:
		return resolvedImport{External: true}, true
	}

	seg := lastNonEmpty(segments)
	if seg == "" {
		return resolvedImport{}, false
	}
	base := strings.Join(segments, "/")
	for _, candidate := range []string{base + ".rs", base + "/mod.rs"} {
		if _, ok := knownFiles[candidate]; ok {
			return resolvedImport{TargetRelativePath: candidate}, true
		}
	}
	return resolvedImport{}, false
}

func lastNonEmpty(parts []string) string {
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}

// -- Python -----------------------------------------------------------------

func resolvePythonImport(raw, fileRelativePath string, knownFiles map[string]struct{}) (resolvedImport, bool) {
	trimmed := strings.TrimSpace(raw)

	if match := pyFromImportPattern.FindStringSubmatch(trimmed); match != nil {
		return resolvePythonModule(match[1], fileRelativePath, knownFiles)
	}
	if match := pyImportPattern.FindStringSubmatch(trimmed); match != nil {
		return resolvePythonModule(match[1], fileRelativePath, knownFiles)
	}
	return resolvedImport{}, false
}

func resolvePythonModule(module, fileRelativePath string, knownFiles map[string]struct{}) (resolvedImport, bool) {
	if !strings.HasPrefix(module, ".") {
		base := strings.ReplaceAll(module, ".", "/")
		return tryPythonCandidates(base, knownFiles)
	}

	dots := 0
	for dots < len(module) && module[dots] == '.' {
		dots++
	}
	rest := module[dots:]
	base := ascendDirectory(parentDirectory(fileRelativePath), dots-1)
	if rest != "" {
		base = normalizeRelativeJoin(base, strings.ReplaceAll(rest, ".", "/"))
	}
	return tryPythonCandidates(base, knownFiles)
}

func tryPythonCandidates(base string, knownFiles map[string]struct{}) (resolvedImport, bool) {
	if base == "" {
		return resolvedImport{}, false
	}
	for _, candidate := range []string{base + ".py", base + "/__init__.py"} {
		if _, ok := knownFiles[candidate]; ok {
			return resolvedImport{TargetRelativePath: candidate}, true
		}
	}
	return resolvedImport{}, false
}

// -- TypeScript / JavaScript -----------------------------------------------

func resolveTsImport(raw, fileRelativePath string, knownFiles map[string]struct{}) (resolvedImport, bool) {
	match := tsModuleLiteralPattern.FindStringSubmatch(raw)
	if match == nil {
		return resolvedImport{}, false
	}
	module := match[1]
	if !strings.HasPrefix(module, ".") {
		return resolvedImport{External: true}, true
	}

	base := normalizeRelativeJoin(parentDirectory(fileRelativePath), module)
	if fileKnown(base, knownFiles) {
		return resolvedImport{TargetRelativePath: base}, true
	}
	for _, ext := range []string{"ts", "tsx", "js", "jsx"} {
		if candidate := base + "." + ext; fileKnown(candidate, knownFiles) {
			return resolvedImport{TargetRelativePath: candidate}, true
		}
		if candidate := base + "/index." + ext; fileKnown(candidate, knownFiles) {
			return resolvedImport{TargetRelativePath: candidate}, true
		}
	}
	return resolvedImport{}, false
}

func fileKnown(path string, knownFiles map[string]struct{}) bool {
	_, ok := knownFiles[path]
	return ok
}
