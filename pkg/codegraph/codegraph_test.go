package codegraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func sampleRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "src/lib.ts", "export function greet(name: string) {\n  return name\n}\n")
	writeFile(t, root, "src/util.ts", "import { greet } from './lib'\n\nexport function shout(name: string) {\n  return greet(name).toUpperCase()\n}\n")
	writeFile(t, root, ".gitignore", "dist/\n*.log\n")
	writeFile(t, root, "dist/bundle.ts", "export const bundled = true\n")
	writeFile(t, root, "debug.log", "noise")
	return root
}

func TestBuildCodeGraphProfileMarkers(t *testing.T) {
	root := sampleRepo(t)
	result, err := BuildCodeGraph(context.Background(), BuildInput{RepositoryPath: root})
	if err != nil {
		t.Fatalf("BuildCodeGraph: %v", err)
	}
	if result.Document.Metadata.Custom["profile"] != ProfileMarker {
		t.Fatalf("missing profile marker")
	}
	if result.Document.Metadata.Custom["profile_version"] != ProfileVersion {
		t.Fatalf("missing profile_version marker")
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %v, diagnostics = %+v", result.Status, result.Diagnostics)
	}
}

func TestBuildCodeGraphHonorsGitignore(t *testing.T) {
	root := sampleRepo(t)
	result, err := BuildCodeGraph(context.Background(), BuildInput{RepositoryPath: root})
	if err != nil {
		t.Fatalf("BuildCodeGraph: %v", err)
	}
	for _, b := range result.Document.Blocks {
		if path, ok := b.Metadata.Custom[metaPath].(string); ok && path == "dist/bundle.ts" {
			t.Fatalf("gitignored file dist/bundle.ts was included")
		}
	}
}

func TestBuildCodeGraphResolvesRelativeImport(t *testing.T) {
	root := sampleRepo(t)
	result, err := BuildCodeGraph(context.Background(), BuildInput{RepositoryPath: root})
	if err != nil {
		t.Fatalf("BuildCodeGraph: %v", err)
	}
	if result.Stats.ReferenceEdges == 0 {
		t.Fatalf("expected at least one resolved import edge, got 0 (diagnostics: %+v)", result.Diagnostics)
	}
}

func TestBuildCodeGraphFingerprintIsDeterministic(t *testing.T) {
	root := sampleRepo(t)

	first, err := BuildCodeGraph(context.Background(), BuildInput{RepositoryPath: root})
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := BuildCodeGraph(context.Background(), BuildInput{RepositoryPath: root})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}

	if first.Fingerprint != second.Fingerprint {
		t.Fatalf("fingerprint changed across identical builds: %s vs %s", first.Fingerprint, second.Fingerprint)
	}

	firstJSON, err := CanonicalCodeGraphJSON(first.Document)
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	secondJSON, err := CanonicalCodeGraphJSON(second.Document)
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	if firstJSON != secondJSON {
		t.Fatalf("canonical JSON differs across identical builds")
	}
}

func TestBuildCodeGraphValidates(t *testing.T) {
	root := sampleRepo(t)
	result, err := BuildCodeGraph(context.Background(), BuildInput{RepositoryPath: root})
	if err != nil {
		t.Fatalf("BuildCodeGraph: %v", err)
	}
	validation := ValidateCodeGraphProfile(result.Document)
	if !validation.Valid {
		t.Fatalf("expected valid profile document, diagnostics: %+v", validation.Diagnostics)
	}
}

func TestGitignoreRuleDirectoryOnlyMatch(t *testing.T) {
	rule, ok := newGitignoreRule("dist/")
	if !ok {
		t.Fatalf("expected rule to parse")
	}
	if !rule.matches("dist", true) {
		t.Fatalf("expected dist/ rule to match directory 'dist'")
	}
	if rule.matches("dist", false) {
		t.Fatalf("directory-only rule should not match a file")
	}
}

func TestResolveTsRelativeImport(t *testing.T) {
	known := map[string]struct{}{"src/lib.ts": {}}
	resolved, ok := resolveImport(extractedImport{Raw: "import { greet } from './lib'"}, "src/util.ts", langTypeScript, known)
	if !ok {
		t.Fatalf("expected import to resolve")
	}
	if resolved.TargetRelativePath != "src/lib.ts" {
		t.Fatalf("resolved to %q, want src/lib.ts", resolved.TargetRelativePath)
	}
}

func TestResolveRustCrateImportIsExternal(t *testing.T) {
	resolved, ok := resolveImport(extractedImport{Raw: "use std::collections::HashMap;"}, "src/main.rs", langRust, map[string]struct{}{})
	if !ok || !resolved.External {
		t.Fatalf("expected std:: import to resolve as external, got %+v, ok=%v", resolved, ok)
	}
}

func TestUniqueLogicalKeyDisambiguates(t *testing.T) {
	counts := map[string]int{}
	a := uniqueLogicalKey("symbol:src/lib.ts::greet", counts)
	b := uniqueLogicalKey("symbol:src/lib.ts::greet", counts)
	if a == b {
		t.Fatalf("expected distinct keys on collision, both were %q", a)
	}
}
