package codegraph

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// language identifies which tree-sitter grammar a source file is parsed
// with.
type language string

const (
	langRust       language = "rust"
	langPython     language = "python"
	langTypeScript language = "typescript"
	langJavaScript language = "javascript"
)

func extensionLanguage(ext string) (language, bool) {
	switch ext {
	case "rs":
		return langRust, true
	case "py":
		return langPython, true
	case "ts", "tsx":
		return langTypeScript, true
	case "js", "jsx":
		return langJavaScript, true
	default:
		return "", false
	}
}

// repoFile is one source file discovered by the walk, with its resolved
// language.
type repoFile struct {
	absolutePath string
	relativePath string
	lang         language
}

// gitignoreRule is one non-comment, non-negation line from a .gitignore,
// translated into a doublestar glob anchored per its leading "/" and scoped
// to directories per its trailing "/" (spec §4.6 "Walk" — subset support:
// no negation, no nested .gitignore files).
type gitignoreRule struct {
	pattern       string
	directoryOnly bool
}

func newGitignoreRule(line string) (gitignoreRule, bool) {
	directoryOnly := strings.HasSuffix(line, "/")
	core := strings.TrimSuffix(line, "/")
	core = strings.TrimPrefix(core, "./")
	if core == "" {
		return gitignoreRule{}, false
	}

	anchored := strings.HasPrefix(core, "/")
	core = strings.TrimPrefix(core, "/")

	pattern := core
	if !anchored {
		pattern = "**/" + core
	}
	return gitignoreRule{pattern: pattern, directoryOnly: directoryOnly}, true
}

func (r gitignoreRule) matches(relPath string, isDir bool) bool {
	if r.directoryOnly && !isDir {
		return false
	}
	ok, _ := doublestar.Match(r.pattern, relPath)
	return ok
}

// gitignoreMatcher holds the rules parsed from a repository's root
// .gitignore, if any.
type gitignoreMatcher struct {
	rules []gitignoreRule
}

func newGitignoreMatcher(repoRoot string) (*gitignoreMatcher, error) {
	raw, err := os.ReadFile(filepath.Join(repoRoot, ".gitignore"))
	if os.IsNotExist(err) {
		return &gitignoreMatcher{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("codegraph: read .gitignore: %w", err)
	}

	var rules []gitignoreRule
	for _, line := range strings.Split(string(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
			continue
		}
		if rule, ok := newGitignoreRule(trimmed); ok {
			rules = append(rules, rule)
		}
	}
	return &gitignoreMatcher{rules: rules}, nil
}

func (m *gitignoreMatcher) isIgnored(relPath string, isDir bool) bool {
	for _, r := range m.rules {
		if r.matches(relPath, isDir) {
			return true
		}
	}
	return false
}

// collectRepositoryFiles walks repoRoot depth-first in lexical order,
// honoring config's extension/exclude-dir/hidden-file policy and the
// repository's .gitignore (spec §4.6 "Walk").
func collectRepositoryFiles(repoRoot string, config ExtractorConfig, matcher *gitignoreMatcher, diagnostics *[]Diagnostic) ([]repoFile, error) {
	includeExts := make(map[string]struct{}, len(config.IncludeExtensions))
	for _, ext := range config.IncludeExtensions {
		includeExts[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	excludeDirs := make(map[string]struct{}, len(config.ExcludeDirs))
	for _, d := range config.ExcludeDirs {
		excludeDirs[d] = struct{}{}
	}

	var out []repoFile
	if err := walkDir(repoRoot, repoRoot, includeExts, excludeDirs, config, matcher, diagnostics, &out); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].relativePath < out[j].relativePath })
	return out, nil
}

func walkDir(root, current string, includeExts, excludeDirs map[string]struct{}, config ExtractorConfig, matcher *gitignoreMatcher, diagnostics *[]Diagnostic, out *[]repoFile) error {
	entries, err := os.ReadDir(current)
	if err != nil {
		*diagnostics = append(*diagnostics, warningDiag("CG2004", fmt.Sprintf("failed to read directory %s: %v", current, err)))
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		path := filepath.Join(current, entry.Name())
		rel := normalizePath(root, path)
		if rel == "" {
			continue
		}

		if !config.IncludeHidden && isHiddenPath(rel) {
			continue
		}

		if entry.IsDir() {
			if _, excluded := excludeDirs[entry.Name()]; excluded || matcher.isIgnored(rel, true) {
				continue
			}
			if err := walkDir(root, path, includeExts, excludeDirs, config, matcher, diagnostics, out); err != nil {
				return err
			}
			continue
		}

		if matcher.isIgnored(rel, false) {
			continue
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), "."))
		if _, ok := includeExts[ext]; !ok {
			continue
		}

		lang, ok := extensionLanguage(ext)
		if !ok {
			*diagnostics = append(*diagnostics, infoDiag("CG2007", fmt.Sprintf("unsupported extension '.%s'", ext)).withPath(rel))
			continue
		}
		*out = append(*out, repoFile{absolutePath: path, relativePath: rel, lang: lang})
	}
	return nil
}

func normalizePath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}
