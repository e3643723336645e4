// Package fileindex builds an in-memory per-workspace file index with a
// Python import graph, supporting forward and reverse lookups plus
// selective single-file invalidation.
package fileindex

import (
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/lang/pyintel"
	"github.com/forgeide/forgeide/internal/ide/workspace"
)

var logger = log.New(os.Stderr, "[fileindex] ", log.LstdFlags)

// FileIndex is an in-memory index of a workspace's files plus the import
// graph extracted from its Python sources. Safe for concurrent use.
type FileIndex struct {
	ws *workspace.Workspace

	mu            sync.RWMutex
	index         map[string]contracts.FileMetadata
	importGraph   map[string][]string
	reverseGraph  map[string][]string
}

// Build walks ws's file tree and indexes every file, extracting Python
// imports/exports for ".py" sources.
func Build(ws *workspace.Workspace) (*FileIndex, error) {
	idx := &FileIndex{
		ws:           ws,
		index:        make(map[string]contracts.FileMetadata),
		importGraph:  make(map[string][]string),
		reverseGraph: make(map[string][]string),
	}

	entries, err := ws.FileTree(nil)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir {
			continue
		}

		meta := contracts.FileMetadata{
			Path:         entry.Path,
			Language:     entry.Language,
			SizeBytes:    entry.SizeBytes,
			LastModified: entry.LastModified,
		}

		if entry.Language == "python" {
			source := readSourceBestEffort(ws, entry.Path)
			meta.Imports = extractPythonImportModules(source)
			meta.Exports = extractPythonExports(source)
		}

		idx.index[entry.Path] = meta
		if len(meta.Imports) > 0 {
			idx.importGraph[entry.Path] = append([]string{}, meta.Imports...)
		}
	}

	idx.rebuildReverseGraph()
	return idx, nil
}

// GetImports returns the modules imported by relPath.
func (idx *FileIndex) GetImports(relPath string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]string{}, idx.importGraph[relPath]...)
}

// GetImporters returns the files that import moduleName.
func (idx *FileIndex) GetImporters(moduleName string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]string{}, idx.reverseGraph[moduleName]...)
}

// GetMetadata returns the indexed metadata for relPath, or false if unindexed.
func (idx *FileIndex) GetMetadata(relPath string) (contracts.FileMetadata, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	meta, ok := idx.index[relPath]
	return meta, ok
}

// AllFiles returns every indexed path, sorted.
func (idx *FileIndex) AllFiles() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, len(idx.index))
	for p := range idx.index {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Languages returns a language -> file count histogram.
func (idx *FileIndex) Languages() map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	counts := make(map[string]int)
	for _, meta := range idx.index {
		counts[meta.Language]++
	}
	return counts
}

// InvalidateFile re-indexes a single file, or removes it if it no longer
// exists, then rebuilds the reverse import graph from scratch.
func (idx *FileIndex) InvalidateFile(relPath string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.index, relPath)
	delete(idx.importGraph, relPath)

	abs, err := idx.ws.Resolve(relPath)
	if err == nil {
		if info, statErr := os.Stat(abs); statErr == nil && !info.IsDir() {
			mtime := info.ModTime().UTC()
			language := workspace.DetectLanguage(info.Name())
			meta := contracts.FileMetadata{
				Path:         relPath,
				Language:     language,
				SizeBytes:    info.Size(),
				LastModified: &mtime,
			}
			if language == "python" {
				raw, readErr := os.ReadFile(abs)
				source := ""
				if readErr == nil {
					source = strings.ToValidUTF8(string(raw), "�")
				}
				meta.Imports = extractPythonImportModules(source)
				meta.Exports = extractPythonExports(source)
			}
			idx.index[relPath] = meta
			if len(meta.Imports) > 0 {
				idx.importGraph[relPath] = append([]string{}, meta.Imports...)
			}
		}
	}

	idx.rebuildReverseGraphLocked()
	logger.Printf("invalidated %s", relPath)
}

// rebuildReverseGraph rebuilds the reverse import graph from scratch. Done
// wholesale rather than incrementally since cyclic references make an
// incremental add/remove error-prone to get right.
func (idx *FileIndex) rebuildReverseGraph() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.rebuildReverseGraphLocked()
}

func (idx *FileIndex) rebuildReverseGraphLocked() {
	rev := make(map[string][]string)
	for filePath, modules := range idx.importGraph {
		for _, mod := range modules {
			rev[mod] = append(rev[mod], filePath)
		}
	}
	for _, files := range rev {
		sort.Strings(files)
	}
	idx.reverseGraph = rev
}

func readSourceBestEffort(ws *workspace.Workspace, relPath string) string {
	abs, err := ws.Resolve(relPath)
	if err != nil {
		return ""
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(raw), "�")
}

// extractPythonImportModules reduces pyintel.ResolveImports to the flat
// module-name list file_index needs for its import graph (relative imports
// keep their leading dots, matching original_source's "." * level prefix).
func extractPythonImportModules(source string) []string {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	infos := pyintel.ResolveImports(source, "", nil)
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.Module)
	}
	return out
}

// extractPythonExports returns top-level public names: functions, async
// functions, classes, and simple top-level assignment targets.
func extractPythonExports(source string) []string {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	var exports []string
	for _, sym := range pyintel.ExtractSymbols(source) {
		if sym.Parent != "" {
			continue // only top-level names, matching ast.iter_child_nodes semantics
		}
		if strings.HasPrefix(sym.Name, "_") {
			continue
		}
		if sym.Kind == "function" || sym.Kind == "class" || sym.Kind == "variable" || sym.Kind == "constant" {
			exports = append(exports, sym.Name)
		}
	}
	return exports
}
