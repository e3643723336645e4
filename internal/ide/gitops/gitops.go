// Package gitops wraps read-only git plumbing (status, diff, log) behind
// the sandboxed Runner, so the registry can expose them as ordinary tools
// without any component shelling out to git unchecked.
package gitops

import (
	"strconv"
	"strings"

	"github.com/forgeide/forgeide/internal/ide/patch"
	"github.com/forgeide/forgeide/internal/ide/runner"
	"github.com/forgeide/forgeide/internal/ide/workspace"
)

// gitPrefixes is the runner's default allowlist, which already carries the
// read-only git subcommands this package needs, with those git prefixes
// appended once more. git push / git remote stay off the allowlist
// entirely — gitops never requests them.
var gitPrefixes = append(append([]string{}, runner.AllAllowedPrefixes...),
	"git status", "git diff", "git log")

// FileStatus is one entry from `git status --porcelain=v1`.
type FileStatus struct {
	Path            string `json:"path"`
	IndexStatus     string `json:"index_status"`
	WorktreeStatus  string `json:"worktree_status"`
}

// StatusResult is the parsed form of a working tree status check.
type StatusResult struct {
	Files []FileStatus `json:"files"`
}

// LogEntry is one line of `git log --oneline`.
type LogEntry struct {
	Hash    string `json:"hash"`
	Subject string `json:"subject"`
}

// GitStatus runs `git status --porcelain=v1` in ws's root and parses the
// two-letter status codes into a typed slice.
func GitStatus(ws *workspace.Workspace) (StatusResult, error) {
	result, err := runner.Run("git status --porcelain=v1", 0, ws.Root(), nil, gitPrefixes)
	if err != nil {
		return StatusResult{}, err
	}

	var files []FileStatus
	for _, line := range strings.Split(result.Stdout, "\n") {
		if len(line) < 4 {
			continue
		}
		index := string(line[0])
		worktree := string(line[1])
		path := strings.TrimSpace(line[3:])
		files = append(files, FileStatus{Path: path, IndexStatus: index, WorktreeStatus: worktree})
	}
	return StatusResult{Files: files}, nil
}

// GitDiff runs `git diff -- path` in ws's root and parses the output with
// the patch engine's unified-diff parser, reusing its hunk-header parsing
// rather than duplicating it.
func GitDiff(ws *workspace.Workspace, path string) ([]patch.Hunk, error) {
	command := "git diff -- " + path
	result, err := runner.Run(command, 0, ws.Root(), nil, gitPrefixes)
	if err != nil {
		return nil, err
	}
	return patch.ParseUnifiedDiff(result.Stdout)
}

// GitLog runs `git log --oneline -n n` in ws's root and splits each line
// into hash and subject.
func GitLog(ws *workspace.Workspace, n int) ([]LogEntry, error) {
	if n <= 0 {
		n = 10
	}
	command := "git log --oneline -n " + strconv.Itoa(n)
	result, err := runner.Run(command, 0, ws.Root(), nil, gitPrefixes)
	if err != nil {
		return nil, err
	}

	var entries []LogEntry
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		entry := LogEntry{Hash: parts[0]}
		if len(parts) == 2 {
			entry.Subject = parts[1]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
