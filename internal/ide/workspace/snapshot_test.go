package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgeide/forgeide/internal/ide/workspace"
)

func writeSnapshotFile(t *testing.T, ws *workspace.Workspace, rel, content string) {
	t.Helper()
	full := filepath.Join(ws.Root(), rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCaptureSnapshotBuildsSymbolTableAndTests(t *testing.T) {
	dir := t.TempDir()
	ws, err := workspace.New(dir)
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	writeSnapshotFile(t, ws, "pkg/foo.py", "def bar():\n    pass\n\nclass Baz:\n    pass\n")
	writeSnapshotFile(t, ws, "tests/test_foo.py", "import pytest\n\ndef test_bar():\n    assert True\n")

	snap, err := workspace.CaptureSnapshot(ws)
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}

	if snap.SymbolTable["pkg.foo.bar"] != "function" {
		t.Errorf("symbol_table = %+v", snap.SymbolTable)
	}
	if snap.SymbolTable["pkg.foo.Baz"] != "class" {
		t.Errorf("symbol_table = %+v", snap.SymbolTable)
	}
	if snap.TestInventory.TestCount != 1 {
		t.Errorf("test_count = %d, want 1", snap.TestInventory.TestCount)
	}
	if len(snap.TestInventory.TestFiles) != 1 {
		t.Fatalf("test_files = %+v", snap.TestInventory.TestFiles)
	}
	if !containsFramework(snap.TestInventory.Frameworks, "pytest") {
		t.Errorf("frameworks = %+v, want pytest", snap.TestInventory.Frameworks)
	}
	if snap.TotalFiles != 2 {
		t.Errorf("total_files = %d, want 2", snap.TotalFiles)
	}
	if snap.Tree == "" {
		t.Error("expected non-empty tree")
	}
}

func containsFramework(items []string, want string) bool {
	for _, it := range items {
		if it == want {
			return true
		}
	}
	return false
}

func TestCaptureSnapshotSQLSchema(t *testing.T) {
	dir := t.TempDir()
	ws, err := workspace.New(dir)
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	writeSnapshotFile(t, ws, "migrations/0001_init.sql", "CREATE TABLE users (\n  id UUID,\n  name TEXT\n);\n")

	snap, err := workspace.CaptureSnapshot(ws)
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	if len(snap.SchemaInventory.Tables) != 1 || snap.SchemaInventory.Tables[0] != "users" {
		t.Fatalf("tables = %+v", snap.SchemaInventory.Tables)
	}
	if cols := snap.SchemaInventory.Columns["users"]; len(cols) != 2 {
		t.Fatalf("columns = %+v", cols)
	}
}

func TestUpdateSnapshotRescansOnlyChanged(t *testing.T) {
	dir := t.TempDir()
	ws, err := workspace.New(dir)
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	writeSnapshotFile(t, ws, "a.py", "def original():\n    pass\n")

	snap, err := workspace.CaptureSnapshot(ws)
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	if snap.SymbolTable["a.original"] != "function" {
		t.Fatalf("expected initial symbol, got %+v", snap.SymbolTable)
	}

	writeSnapshotFile(t, ws, "a.py", "def renamed():\n    pass\n")
	updated, err := workspace.UpdateSnapshot(snap, []string{"a.py"}, ws)
	if err != nil {
		t.Fatalf("UpdateSnapshot: %v", err)
	}
	if _, stillThere := updated.SymbolTable["a.original"]; stillThere {
		t.Error("expected stale symbol removed")
	}
	if updated.SymbolTable["a.renamed"] != "function" {
		t.Fatalf("expected updated symbol, got %+v", updated.SymbolTable)
	}
}

func TestSnapshotToWorkspaceInfoRendersSections(t *testing.T) {
	dir := t.TempDir()
	ws, err := workspace.New(dir)
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	writeSnapshotFile(t, ws, "a.py", "def foo():\n    pass\n")

	snap, err := workspace.CaptureSnapshot(ws)
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	info := workspace.SnapshotToWorkspaceInfo(snap)
	if info == "" {
		t.Fatal("expected non-empty workspace info")
	}
}

func TestBuildStructureTreeTruncatesPerDirectory(t *testing.T) {
	dir := t.TempDir()
	ws, err := workspace.New(dir)
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	for i := 0; i < 10; i++ {
		writeSnapshotFile(t, ws, "many/file"+string(rune('a'+i))+".txt", "x")
	}
	entries, err := ws.FileTree(nil)
	if err != nil {
		t.Fatalf("FileTree: %v", err)
	}
	tree := workspace.BuildStructureTree(entries, 3)
	if tree == "" {
		t.Fatal("expected non-empty tree")
	}
}
