package fileindex_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgeide/forgeide/internal/ide/fileindex"
	"github.com/forgeide/forgeide/internal/ide/workspace"
)

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	dir := t.TempDir()
	ws, err := workspace.New(dir)
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	return ws
}

func writeFile(t *testing.T, ws *workspace.Workspace, rel, content string) {
	t.Helper()
	full := filepath.Join(ws.Root(), rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestBuildIndexesPythonImportsAndExports(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "pkg/a.py", "import os\nfrom pkg.b import helper\n\ndef foo():\n    pass\n\nclass Thing:\n    pass\n")
	writeFile(t, ws, "pkg/b.py", "def helper():\n    pass\n")

	idx, err := fileindex.Build(ws)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	meta, ok := idx.GetMetadata("pkg/a.py")
	if !ok {
		t.Fatal("expected pkg/a.py to be indexed")
	}
	if meta.Language != "python" {
		t.Errorf("language = %q", meta.Language)
	}
	if len(meta.Exports) != 2 {
		t.Fatalf("exports = %+v", meta.Exports)
	}

	imports := idx.GetImports("pkg/a.py")
	found := false
	for _, m := range imports {
		if m == "os" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected os in imports, got %+v", imports)
	}
}

func TestGetImportersReverseLookup(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "a.py", "import json\n")
	writeFile(t, ws, "b.py", "import json\n")
	writeFile(t, ws, "c.py", "import os\n")

	idx, err := fileindex.Build(ws)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	importers := idx.GetImporters("json")
	if len(importers) != 2 {
		t.Fatalf("importers = %+v", importers)
	}
}

func TestAllFilesSorted(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "z.py", "")
	writeFile(t, ws, "a.py", "")

	idx, err := fileindex.Build(ws)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	files := idx.AllFiles()
	if len(files) != 2 || files[0] != "a.py" || files[1] != "z.py" {
		t.Fatalf("files = %+v", files)
	}
}

func TestInvalidateFileRemovesDeleted(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "a.py", "import os\n")

	idx, err := fileindex.Build(ws)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := idx.GetMetadata("a.py"); !ok {
		t.Fatal("expected a.py indexed before delete")
	}

	if err := os.Remove(filepath.Join(ws.Root(), "a.py")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	idx.InvalidateFile("a.py")

	if _, ok := idx.GetMetadata("a.py"); ok {
		t.Fatal("expected a.py removed from index after delete")
	}
	if importers := idx.GetImporters("os"); len(importers) != 0 {
		t.Fatalf("expected no importers after delete, got %+v", importers)
	}
}

func TestInvalidateFileReindexesOnChange(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "a.py", "import os\n")

	idx, err := fileindex.Build(ws)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	writeFile(t, ws, "a.py", "import sys\n")
	idx.InvalidateFile("a.py")

	imports := idx.GetImports("a.py")
	if len(imports) != 1 || imports[0] != "sys" {
		t.Fatalf("imports after reindex = %+v", imports)
	}
	if len(idx.GetImporters("os")) != 0 {
		t.Fatal("expected os importer gone after reindex")
	}
}
