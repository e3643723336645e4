// Package workspace implements sandboxed path resolution over a project
// root, plus a TTL-cached recursive file tree and summary.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/ideerrors"
)

// DefaultCacheTTL matches the source's 30-second file-tree/summary cache window.
const DefaultCacheTTL = 30 * time.Second

// DefaultSkipDirs is the default directory-name skip set honored by
// file_tree and the searcher's in-process fallback.
var DefaultSkipDirs = map[string]bool{
	".git":           true,
	".venv":          true,
	"venv":           true,
	".tox":           true,
	".mypy_cache":    true,
	".pytest_cache":  true,
	"__pycache__":    true,
	"node_modules":   true,
	"dist":           true,
	"build":          true,
}

// extensionLanguage is the closed extension -> language table. Unknown
// extensions map to "unknown".
var extensionLanguage = map[string]string{
	".py":           "python",
	".pyi":          "python",
	".ts":           "typescript",
	".tsx":          "typescript",
	".js":           "javascript",
	".jsx":          "javascript",
	".mjs":          "javascript",
	".cjs":          "javascript",
	".json":         "json",
	".yaml":         "yaml",
	".yml":          "yaml",
	".md":           "markdown",
	".html":         "html",
	".htm":          "html",
	".css":          "css",
	".scss":         "css",
	".sql":          "sql",
	".toml":         "toml",
	".txt":          "text",
	".cfg":          "ini",
	".ini":          "ini",
	".ps1":          "powershell",
	".sh":           "shell",
	".bash":         "shell",
	".bat":          "batch",
	".cmd":          "batch",
	".xml":          "xml",
	".svg":          "xml",
	".rs":           "rust",
	".go":           "go",
	".java":         "java",
	".c":            "c",
	".h":            "c",
	".cpp":          "cpp",
	".hpp":          "cpp",
	".rb":           "ruby",
	".php":          "php",
	".swift":        "swift",
	".kt":           "kotlin",
	".r":            "r",
	".R":            "r",
	".lock":         "lock",
	".env":          "env",
	".gitignore":    "gitignore",
	".dockerignore": "dockerignore",
}

// nameLanguage handles extensionless well-known filenames.
var nameLanguage = map[string]string{
	"Dockerfile": "dockerfile",
	"Makefile":   "makefile",
}

// DetectLanguage maps a file's base name/extension to a language tag,
// defaulting to "unknown".
func DetectLanguage(base string) string {
	if lang, ok := nameLanguage[base]; ok {
		return lang
	}
	ext := filepath.Ext(base)
	if lang, ok := extensionLanguage[strings.ToLower(ext)]; ok {
		return lang
	}
	return "unknown"
}

// Workspace is a sandboxed absolute directory root plus cached recursive
// tree/summary views over its descendants. It is safe for concurrent use:
// cache mutation is serialized by an internal mutex.
type Workspace struct {
	root string

	mu          sync.Mutex
	treeCache   map[string]cachedTree
	summaryCache map[string]cachedSummary
}

type cachedTree struct {
	entries []contracts.FileEntry
	at      time.Time
}

type cachedSummary struct {
	summary contracts.WorkspaceSummary
	at      time.Time
}

// New constructs a Workspace rooted at root. root must exist and be a
// directory; its resolved absolute form is stored.
func New(root string) (*Workspace, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("workspace root does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root is not a directory: %s", root)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve workspace root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve workspace root symlinks: %w", err)
	}
	return &Workspace{
		root:         resolved,
		treeCache:    make(map[string]cachedTree),
		summaryCache: make(map[string]cachedSummary),
	}, nil
}

// Root returns the resolved absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Resolve validates rel and returns its absolute, symlink-resolved path,
// guaranteed to be a descendant of Root(). It rejects (in order): empty
// input, a null byte, an absolute path (either separator convention), and
// any path whose component list contains "..". The final candidate is
// then resolved and checked against root with a post-resolution prefix
// check so a hostile symlink pointing outside root is also rejected.
func (w *Workspace) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", ideerrors.NewSandboxViolation(rel, "empty path")
	}
	if strings.ContainsRune(rel, 0) {
		return "", ideerrors.NewSandboxViolation(rel, "path contains a null byte")
	}
	if filepath.IsAbs(rel) || isWindowsAbs(rel) {
		return "", ideerrors.NewSandboxViolation(rel, "absolute paths are not allowed")
	}
	normalized := strings.ReplaceAll(rel, "\\", "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return "", ideerrors.NewSandboxViolation(rel, "path traversal via '..' component is not allowed")
		}
	}

	candidate := filepath.Join(w.root, filepath.FromSlash(normalized))
	resolved, err := resolveMaybeMissing(candidate)
	if err != nil {
		return "", ideerrors.NewSandboxViolation(rel, fmt.Sprintf("failed to resolve path: %v", err))
	}

	rootWithSep := w.root
	if !strings.HasSuffix(rootWithSep, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	if resolved != w.root && !strings.HasPrefix(resolved, rootWithSep) {
		return "", ideerrors.NewSandboxEscape(rel, resolved, w.root)
	}
	return resolved, nil
}

// resolveMaybeMissing resolves symlinks for as much of candidate's path as
// exists on disk, so that Resolve can sandbox-check paths that are about to
// be created (e.g. a new file write target) and not only ones that exist.
func resolveMaybeMissing(candidate string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		return resolved, nil
	}
	dir := filepath.Dir(candidate)
	resolvedDir, err := resolveMaybeMissing(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, filepath.Base(candidate)), nil
}

func isWindowsAbs(p string) bool {
	if len(p) >= 2 && p[1] == ':' {
		c := p[0]
		return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	return strings.HasPrefix(p, "\\") || strings.HasPrefix(p, "/")
}

// IsWithin is a cheap, non-authoritative prefix check on normalized paths.
// Security-critical decisions must use Resolve instead.
func (w *Workspace) IsWithin(path string) bool {
	clean := filepath.Clean(path)
	root := filepath.Clean(w.root)
	if clean == root {
		return true
	}
	return strings.HasPrefix(clean, root+string(filepath.Separator))
}

// InvalidateCache clears both the file-tree and summary caches.
func (w *Workspace) InvalidateCache() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.treeCache = make(map[string]cachedTree)
	w.summaryCache = make(map[string]cachedSummary)
}

func ignoreKey(ignore map[string]bool) string {
	names := make([]string, 0, len(ignore))
	for name := range ignore {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// FileTree walks the workspace, skipping ignore (or DefaultSkipDirs when
// nil), and returns entries sorted by path. Results are cached for
// DefaultCacheTTL, keyed on the ignore set.
func (w *Workspace) FileTree(ignore map[string]bool) ([]contracts.FileEntry, error) {
	if ignore == nil {
		ignore = DefaultSkipDirs
	}
	key := ignoreKey(ignore)

	w.mu.Lock()
	if cached, ok := w.treeCache[key]; ok && time.Since(cached.at) < DefaultCacheTTL {
		entries := cached.entries
		w.mu.Unlock()
		return entries, nil
	}
	w.mu.Unlock()

	entries, err := w.walkTree(ignore)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.treeCache[key] = cachedTree{entries: entries, at: time.Now()}
	w.mu.Unlock()
	return entries, nil
}

func (w *Workspace) walkTree(ignore map[string]bool) ([]contracts.FileEntry, error) {
	var entries []contracts.FileEntry
	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // safe stat failure — skip, matching the source's try/except
		}
		if path == w.root {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if ignore[info.Name()] {
				return filepath.SkipDir
			}
			entries = append(entries, contracts.FileEntry{Path: rel, IsDir: true, Language: "unknown"})
			return nil
		}

		mtime := info.ModTime().UTC()
		entries = append(entries, contracts.FileEntry{
			Path:         rel,
			IsDir:        false,
			SizeBytes:    info.Size(),
			Language:     DetectLanguage(info.Name()),
			LastModified: &mtime,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Summary aggregates FileTree(ignore) into file counts, total size, a
// per-language histogram, and the most recent modification time. Cached
// independently of FileTree, same TTL and key.
func (w *Workspace) Summary(ignore map[string]bool) (contracts.WorkspaceSummary, error) {
	if ignore == nil {
		ignore = DefaultSkipDirs
	}
	key := ignoreKey(ignore)

	w.mu.Lock()
	if cached, ok := w.summaryCache[key]; ok && time.Since(cached.at) < DefaultCacheTTL {
		summary := cached.summary
		w.mu.Unlock()
		return summary, nil
	}
	w.mu.Unlock()

	entries, err := w.FileTree(ignore)
	if err != nil {
		return contracts.WorkspaceSummary{}, err
	}

	summary := contracts.WorkspaceSummary{Languages: make(map[string]int)}
	var latest *time.Time
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		summary.FileCount++
		summary.TotalSizeBytes += e.SizeBytes
		summary.Languages[e.Language]++
		if e.LastModified != nil && (latest == nil || e.LastModified.After(*latest)) {
			latest = e.LastModified
		}
	}
	summary.LastModified = latest

	w.mu.Lock()
	w.summaryCache[key] = cachedSummary{summary: summary, at: time.Now()}
	w.mu.Unlock()
	return summary, nil
}
