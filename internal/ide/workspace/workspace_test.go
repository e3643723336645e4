package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgeide/forgeide/internal/ide/ideerrors"
)

func newTestWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "file.py"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	ws, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ws, dir
}

func TestResolveRejectsEscapes(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	bad := []string{"", "..", "../x", "/abs", "a/../..", "x\x00y"}
	for _, rel := range bad {
		if _, err := ws.Resolve(rel); err == nil {
			t.Errorf("Resolve(%q) = nil error, want SandboxViolation", rel)
		} else if _, ok := err.(*ideerrors.SandboxViolation); !ok {
			t.Errorf("Resolve(%q) error type = %T, want *SandboxViolation", rel, err)
		}
	}
}

func TestResolveAcceptedIsWithin(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	for _, rel := range []string{"main.go", "sub/file.py", "new_file.txt"} {
		resolved, err := ws.Resolve(rel)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", rel, err)
		}
		if !ws.IsWithin(resolved) {
			t.Errorf("IsWithin(%q) = false, want true", resolved)
		}
	}
}

func TestFileTreeSortedAndFiltered(t *testing.T) {
	ws, dir := newTestWorkspace(t)
	if err := os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "node_modules", "pkg.js"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	entries, err := ws.FileTree(nil)
	if err != nil {
		t.Fatalf("FileTree: %v", err)
	}
	for _, e := range entries {
		if e.Path == "node_modules" || e.Language == "unknown" && e.Path == "node_modules/pkg.js" {
			t.Errorf("expected node_modules to be skipped, found %q", e.Path)
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Path > entries[i].Path {
			t.Fatalf("entries not sorted: %q before %q", entries[i-1].Path, entries[i].Path)
		}
	}
}

func TestSummaryAggregates(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	summary, err := ws.Summary(nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", summary.FileCount)
	}
	if summary.Languages["go"] != 1 || summary.Languages["python"] != 1 {
		t.Errorf("Languages = %+v, want go:1 python:1", summary.Languages)
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"main.go":    "go",
		"app.py":     "python",
		"Dockerfile": "dockerfile",
		"README":     "unknown",
	}
	for name, want := range cases {
		if got := DetectLanguage(name); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", name, got, want)
		}
	}
}
