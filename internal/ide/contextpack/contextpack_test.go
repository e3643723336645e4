package contextpack_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forgeide/forgeide/internal/ide/contextpack"
	"github.com/forgeide/forgeide/internal/ide/contracts"
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

func TestEstimateTokens(t *testing.T) {
	if got := contextpack.EstimateTokens("abcd"); got != 1 {
		t.Errorf("EstimateTokens(4 chars) = %d, want 1", got)
	}
	if got := contextpack.EstimateTokens("abcde"); got != 2 {
		t.Errorf("EstimateTokens(5 chars) = %d, want 2", got)
	}
}

func TestAssemblePackStopsAtBudget(t *testing.T) {
	target := []contracts.TargetFile{{Path: "a.py", Content: strings.Repeat("x", 40)}} // 10 tokens
	repoSummary := contracts.RepoSummary{Stats: strings.Repeat("y", 20)}               // 5 tokens
	snippets := []contracts.DependencySnippet{
		{Path: "b.py", Snippet: strings.Repeat("z", 20)}, // 5 tokens
		{Path: "c.py", Snippet: strings.Repeat("w", 400)}, // 100 tokens, should be dropped
	}

	pack := contextpack.AssemblePack(target, repoSummary, snippets, 25)
	if len(pack.DependencySnippets) != 1 {
		t.Fatalf("dependency snippets = %+v", pack.DependencySnippets)
	}
	if pack.DependencySnippets[0].Path != "b.py" {
		t.Errorf("kept snippet = %+v, want b.py", pack.DependencySnippets[0])
	}
	if pack.UsedTokens > pack.BudgetTokens {
		t.Errorf("used %d exceeds budget %d", pack.UsedTokens, pack.BudgetTokens)
	}
}

func TestAssemblePackAlwaysKeepsTargetFiles(t *testing.T) {
	target := []contracts.TargetFile{{Path: "a.py", Content: strings.Repeat("x", 4000)}}
	pack := contextpack.AssemblePack(target, contracts.RepoSummary{}, nil, 10)
	if len(pack.TargetFiles) != 1 {
		t.Fatal("expected target file retained even over budget")
	}
}

func TestPackToTextRendersSections(t *testing.T) {
	pack := contracts.ContextPack{
		TargetFiles: []contracts.TargetFile{{Path: "a.py", Content: "print(1)\n"}},
		RepoSummary: contracts.RepoSummary{Stats: "Total: 1 files, 1 lines"},
		DependencySnippets: []contracts.DependencySnippet{
			{Path: "b.py", Reason: "direct import", Snippet: "def helper(): pass\n"},
		},
	}
	text := contextpack.PackToText(pack)
	if !strings.Contains(text, "## File: a.py") {
		t.Error("expected target file header")
	}
	if !strings.Contains(text, "## Related: b.py (direct import)") {
		t.Error("expected dependency snippet header with reason")
	}
	if !strings.Contains(text, "Total: 1 files, 1 lines") {
		t.Error("expected repo summary text")
	}
}

func TestBuildContextPackForFileEndToEnd(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "pkg/a.py", "import pkg.b\n\ndef foo():\n    pass\n")
	writeFile(t, ws, "pkg/b.py", "def helper():\n    pass\n")

	idx, err := fileindex.Build(ws)
	if err != nil {
		t.Fatalf("fileindex.Build: %v", err)
	}
	snapshot, err := workspace.CaptureSnapshot(ws)
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}

	pack, err := contextpack.BuildContextPackForFile(ws, idx, snapshot, "pkg/a.py", 5000)
	if err != nil {
		t.Fatalf("BuildContextPackForFile: %v", err)
	}
	if len(pack.TargetFiles) != 1 || pack.TargetFiles[0].Path != "pkg/a.py" {
		t.Fatalf("target files = %+v", pack.TargetFiles)
	}
	foundDep := false
	for _, snip := range pack.DependencySnippets {
		if snip.Path == "pkg/b.py" {
			foundDep = true
		}
	}
	if !foundDep {
		t.Fatalf("expected pkg/b.py as dependency snippet, got %+v", pack.DependencySnippets)
	}
}
