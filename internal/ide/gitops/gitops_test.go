package gitops_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/forgeide/forgeide/internal/ide/gitops"
	"github.com/forgeide/forgeide/internal/ide/workspace"
)

func newGitWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("line1\nline2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	run("add", "a.txt")
	run("commit", "-q", "-m", "initial")

	ws, err := workspace.New(dir)
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	return ws
}

func TestGitStatusReportsModifiedFile(t *testing.T) {
	ws := newGitWorkspace(t)
	if err := os.WriteFile(filepath.Join(ws.Root(), "a.txt"), []byte("line1\nchanged\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ws.Root(), "b.txt"), []byte("new file\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	status, err := gitops.GitStatus(ws)
	if err != nil {
		t.Fatalf("GitStatus: %v", err)
	}

	found := map[string]gitops.FileStatus{}
	for _, f := range status.Files {
		found[f.Path] = f
	}
	if _, ok := found["a.txt"]; !ok {
		t.Fatalf("expected a.txt in status, got %+v", status.Files)
	}
	if _, ok := found["b.txt"]; !ok {
		t.Fatalf("expected b.txt in status, got %+v", status.Files)
	}
}

func TestGitDiffParsesHunks(t *testing.T) {
	ws := newGitWorkspace(t)
	if err := os.WriteFile(filepath.Join(ws.Root(), "a.txt"), []byte("line1\nchanged\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	hunks, err := gitops.GitDiff(ws, "a.txt")
	if err != nil {
		t.Fatalf("GitDiff: %v", err)
	}
	if len(hunks) != 1 {
		t.Fatalf("hunks = %+v, want 1", hunks)
	}
}

func TestGitLogReturnsEntries(t *testing.T) {
	ws := newGitWorkspace(t)
	entries, err := gitops.GitLog(ws, 5)
	if err != nil {
		t.Fatalf("GitLog: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want 1", entries)
	}
	if entries[0].Subject != "initial" {
		t.Errorf("subject = %q, want initial", entries[0].Subject)
	}
}
