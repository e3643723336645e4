// Package searcher provides code search across a workspace, preferring an
// external ripgrep fast path and falling back to an in-process walker.
package searcher

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/workspace"
)

// DefaultMaxResults and DefaultContextLines mirror the source tool's
// defaults for search(...).
const (
	DefaultMaxResults   = 100
	DefaultContextLines = 2
	maxSnippetLen       = 200
)

var binarySkip = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".bmp": true, ".webp": true, ".woff": true, ".woff2": true, ".ttf": true,
	".eot": true, ".otf": true, ".zip": true, ".tar": true, ".gz": true,
	".bz2": true, ".xz": true, ".7z": true, ".rar": true, ".exe": true,
	".dll": true, ".so": true, ".dylib": true, ".pyc": true, ".pyo": true,
	".class": true, ".o": true, ".a": true, ".lib": true, ".bin": true,
	".dat": true, ".pdf": true, ".doc": true, ".docx": true, ".sqlite": true,
	".db": true,
}

// Searcher caches ripgrep availability per instance (not package-level)
// so tests can construct independent searchers without cross-contaminating
// each other's cached result.
type Searcher struct {
	once      sync.Once
	available bool
}

// New constructs a Searcher.
func New() *Searcher {
	return &Searcher{}
}

func (s *Searcher) ripgrepAvailable() bool {
	s.once.Do(func() {
		_, err := exec.LookPath("rg")
		s.available = err == nil
	})
	return s.available
}

// ResetRipgrepCache clears the cached availability check (test hook).
func (s *Searcher) ResetRipgrepCache() {
	s.once = sync.Once{}
	s.available = false
}

// Options bundles the optional search parameters.
type Options struct {
	Glob          string
	IsRegex       bool
	MaxResults    int
	ContextLines  int
	CaseSensitive bool
}

func (o Options) withDefaults() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.ContextLines < 0 {
		o.ContextLines = DefaultContextLines
	}
	return o
}

// Search finds pattern across ws's files, trying ripgrep first and falling
// back to an in-process walker on error or unavailability.
func (s *Searcher) Search(ws *workspace.Workspace, pattern string, opts Options) contracts.ToolResponse {
	if pattern == "" {
		return contracts.Fail("Search pattern must not be empty")
	}
	opts = opts.withDefaults()

	var matches []contracts.Match
	var total int
	var truncated bool

	if s.ripgrepAvailable() {
		var err error
		matches, total, truncated, err = searchRipgrep(ws, pattern, opts)
		if err != nil {
			matches, total, truncated = searchWalk(ws, pattern, opts)
		}
	} else {
		matches, total, truncated = searchWalk(ws, pattern, opts)
	}

	return contracts.Ok(map[string]any{
		"matches":     matches,
		"total_count": total,
		"truncated":   truncated,
	})
}

type rgEntry struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		Lines struct {
			Text string `json:"text"`
		} `json:"lines"`
		LineNumber int `json:"line_number"`
		Submatches []struct {
			Start int `json:"start"`
		} `json:"submatches"`
	} `json:"data"`
}

func searchRipgrep(ws *workspace.Workspace, pattern string, opts Options) ([]contracts.Match, int, bool, error) {
	args := []string{"--json", "--max-count", itoa(opts.MaxResults + 1)}
	if opts.CaseSensitive {
		args = append(args, "--case-sensitive")
	} else {
		args = append(args, "--ignore-case")
	}
	if !opts.IsRegex {
		args = append(args, "--fixed-strings")
	}
	if opts.ContextLines > 0 {
		args = append(args, "-C", itoa(opts.ContextLines))
	}
	if opts.Glob != "" {
		args = append(args, "--glob", opts.Glob)
	}
	args = append(args, "--", pattern)

	cmd := exec.Command("rg", args...)
	cmd.Dir = ws.Root()
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil
	_ = cmd.Run() // ripgrep exits 1 on "no matches" — not an execution error here

	var matches []contracts.Match
	var contextBefore []string
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry rgEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		switch entry.Type {
		case "context":
			text := strings.TrimRight(entry.Data.Lines.Text, "\n")
			contextBefore = append(contextBefore, text)
			if len(contextBefore) > opts.ContextLines {
				contextBefore = contextBefore[len(contextBefore)-opts.ContextLines:]
			}
		case "match":
			col := 0
			if len(entry.Data.Submatches) > 0 {
				col = entry.Data.Submatches[0].Start
			}
			text := strings.TrimRight(entry.Data.Lines.Text, "\n")
			snippet := trimSnippet(strings.TrimSpace(text))
			matches = append(matches, contracts.Match{
				Path:          strings.ReplaceAll(entry.Data.Path.Text, "\\", "/"),
				Line:          entry.Data.LineNumber,
				Column:        col,
				Snippet:       snippet,
				ContextBefore: append([]string{}, contextBefore...),
				ContextAfter:  nil,
			})
			contextBefore = nil
		case "end":
			contextBefore = nil
		}
	}

	total := len(matches)
	truncated := total > opts.MaxResults
	if truncated {
		matches = matches[:opts.MaxResults]
	}
	return matches, total, truncated, nil
}

func trimSnippet(s string) string {
	if len(s) > maxSnippetLen {
		return s[:maxSnippetLen]
	}
	return s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func searchWalk(ws *workspace.Workspace, pattern string, opts Options) ([]contracts.Match, int, bool) {
	flags := "(?i)"
	if opts.CaseSensitive {
		flags = ""
	}
	rePattern := pattern
	if !opts.IsRegex {
		rePattern = regexp.QuoteMeta(pattern)
	}
	re, err := regexp.Compile(flags + rePattern)
	if err != nil {
		return nil, 0, false
	}

	glob := opts.Glob
	if glob == "" {
		glob = "*"
	}

	root := ws.Root()
	ignorePatterns := parseGitignore(root)

	dirFiles := walkDirs(root)
	dirs := make([]string, 0, len(dirFiles))
	for dir := range dirFiles {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var matches []contracts.Match
	total := 0
	truncated := false

	for _, dir := range dirs {
		names := append([]string{}, dirFiles[dir]...)
		sort.Strings(names)
		for _, fname := range names {
			matched, _ := filepath.Match(glob, fname)
			if !matched {
				continue
			}
			fpath := filepath.Join(dir, fname)
			rel, relErr := filepath.Rel(root, fpath)
			if relErr != nil {
				continue
			}
			rel = strings.ReplaceAll(rel, "\\", "/")

			if binarySkip[strings.ToLower(filepath.Ext(fname))] {
				continue
			}
			if isGitignored(rel, ignorePatterns) {
				continue
			}

			raw, readErr := os.ReadFile(fpath)
			if readErr != nil {
				continue
			}
			content := strings.ToValidUTF8(string(raw), "�")
			lines := splitLines(content)

			for i, line := range lines {
				loc := re.FindStringIndex(line)
				if loc == nil {
					continue
				}
				total++
				if len(matches) >= opts.MaxResults {
					truncated = true
					continue
				}
				before := lines[max(0, i-opts.ContextLines):i]
				afterEnd := min(len(lines), i+1+opts.ContextLines)
				after := lines[i+1 : afterEnd]
				matches = append(matches, contracts.Match{
					Path:          rel,
					Line:          i + 1,
					Column:        loc[0],
					Snippet:       trimSnippet(strings.TrimSpace(line)),
					ContextBefore: append([]string{}, before...),
					ContextAfter:  append([]string{}, after...),
				})
			}
		}
	}

	return matches, total, truncated
}

// walkDirs collects, for every directory under root (skipping
// workspace.DefaultSkipDirs), the plain file names it directly contains.
func walkDirs(root string) map[string][]string {
	out := make(map[string][]string)
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != root && workspace.DefaultSkipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		dir := filepath.Dir(path)
		out[dir] = append(out[dir], info.Name())
		return nil
	})
	return out
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(content, "\n")
	return strings.Split(trimmed, "\n")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
