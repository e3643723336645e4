// Package contextpack assembles token-budgeted bundles of target files,
// relevance-ranked dependency snippets, and a repo summary for an LLM
// agent call, and renders them to canonical text.
package contextpack

import (
	"os"
	"strconv"
	"strings"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/fileindex"
	"github.com/forgeide/forgeide/internal/ide/lang/pyintel"
	"github.com/forgeide/forgeide/internal/ide/relevance"
	"github.com/forgeide/forgeide/internal/ide/workspace"
)

// charsPerToken approximates tokens as characters / 4, matching
// spec.md's stated estimator.
const charsPerToken = 4

// EstimateTokens approximates the token count of s.
func EstimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}

// BuildRepoSummary reduces a captured workspace snapshot to the compact,
// structurally-typed brief a context pack embeds (the same sections
// workspace.SnapshotToWorkspaceInfo renders as one string, broken out
// here into independently addressable fields).
func BuildRepoSummary(snapshot contracts.WorkspaceSnapshot) contracts.RepoSummary {
	classes, functions := 0, 0
	for _, kind := range snapshot.SymbolTable {
		switch kind {
		case "class":
			classes++
		case "function":
			functions++
		}
	}
	others := len(snapshot.SymbolTable) - classes - functions

	symbolCounts := map[string]int{"class": classes, "function": functions}
	if others > 0 {
		symbolCounts["other"] = others
	}

	ti := snapshot.TestInventory
	testSummary := ""
	if len(ti.TestFiles) > 0 {
		fw := ""
		if len(ti.Frameworks) > 0 {
			fw = " (" + strings.Join(ti.Frameworks, ", ") + ")"
		}
		testSummary = "Tests: " + itoa(ti.TestCount) + " test functions in " + itoa(len(ti.TestFiles)) + " files" + fw
	}

	si := snapshot.SchemaInventory
	schemaSummary := ""
	if len(si.Tables) > 0 {
		shown := si.Tables
		suffix := ""
		if len(shown) > 10 {
			shown = shown[:10]
			suffix = "..."
		}
		schemaSummary = "Database: " + itoa(len(si.Tables)) + " tables (" + strings.Join(shown, ", ") + suffix + "), " + itoa(len(si.MigrationFiles)) + " migrations"
	}

	stats := "Total: " + itoa(snapshot.TotalFiles) + " files, " + itoa(snapshot.TotalLines) + " lines"

	return contracts.RepoSummary{
		Tree:          snapshot.Tree,
		Stats:         stats,
		SymbolCounts:  symbolCounts,
		TestSummary:   testSummary,
		SchemaSummary: schemaSummary,
	}
}

// BuildStructureTree delegates to the workspace package's tree renderer,
// giving callers a single stable entry point named after its Python
// counterpart (build_structure_tree).
func BuildStructureTree(entries []contracts.FileEntry, maxDepth int) string {
	return workspace.BuildStructureTree(entries, maxDepth)
}

// AssemblePack greedily fills a token budget: target files go in first
// (always, even if they alone exceed the budget — truncation is the
// caller's problem to avoid silently dropping the files the agent asked
// for), then the repo summary, then dependency snippets in the order
// given (callers pass them already relevance-ranked), stopping before the
// next addition would exceed budgetTokens.
func AssemblePack(targetFiles []contracts.TargetFile, repoSummary contracts.RepoSummary, dependencySnippets []contracts.DependencySnippet, budgetTokens int) contracts.ContextPack {
	used := 0
	for _, tf := range targetFiles {
		used += EstimateTokens(tf.Content)
	}
	used += EstimateTokens(renderRepoSummary(repoSummary))

	var kept []contracts.DependencySnippet
	for _, snip := range dependencySnippets {
		cost := EstimateTokens(snip.Snippet)
		if budgetTokens > 0 && used+cost > budgetTokens {
			break
		}
		kept = append(kept, snip)
		used += cost
	}

	return contracts.ContextPack{
		TargetFiles:        targetFiles,
		DependencySnippets: kept,
		RepoSummary:        repoSummary,
		BudgetTokens:       budgetTokens,
		UsedTokens:         used,
	}
}

// BuildContextPackForFile is the end-to-end orchestrator: it reads
// targetPath's content, ranks the rest of the index by relevance to it,
// pulls the top candidates' content as dependency snippets, and hands the
// whole thing to AssemblePack.
func BuildContextPackForFile(ws *workspace.Workspace, idx *fileindex.FileIndex, snapshot contracts.WorkspaceSnapshot, targetPath string, budgetTokens int) (contracts.ContextPack, error) {
	abs, err := ws.Resolve(targetPath)
	if err != nil {
		return contracts.ContextPack{}, err
	}
	content := readFileBestEffort(abs)
	targetFiles := []contracts.TargetFile{{Path: targetPath, Content: content}}

	allPaths := idx.AllFiles()
	var allMeta []contracts.FileMetadata
	for _, p := range allPaths {
		if meta, ok := idx.GetMetadata(p); ok {
			allMeta = append(allMeta, meta)
		}
	}

	// relevance.FindRelated wants a path -> [imported file path] graph, but
	// the file index keeps dotted module strings (matching what
	// get_importers(module_name) needs) — re-resolve each Python file's
	// imports to workspace-relative paths here instead.
	imports := ResolvedImportGraph(ws, allMeta, allPaths)

	related := relevance.FindRelated(targetPath, allMeta, imports, relevance.DefaultMaxResults)

	var snippets []contracts.DependencySnippet
	for _, r := range related {
		relAbs, resolveErr := ws.Resolve(r.Path)
		if resolveErr != nil {
			continue
		}
		snippetContent := readFileBestEffort(relAbs)
		if snippetContent == "" {
			continue
		}
		reason := strings.Join(r.Reasons, ", ")
		snippets = append(snippets, contracts.DependencySnippet{Path: r.Path, Reason: reason, Snippet: snippetContent})
	}

	repoSummary := BuildRepoSummary(snapshot)
	return AssemblePack(targetFiles, repoSummary, snippets, budgetTokens), nil
}

// ResolvedImportGraph rebuilds a path -> [imported file path] graph for
// relevance scoring. The file index's own Imports field holds dotted module
// strings (what GetImporters needs); relevance.FindRelated needs workspace
// file paths instead, so each Python file's source is re-resolved here
// against the full file list. Exported so other callers building their own
// relevance.FindRelated calls (e.g. pkg/ideclient) don't have to duplicate
// the resolution step.
func ResolvedImportGraph(ws *workspace.Workspace, allMeta []contracts.FileMetadata, allPaths []string) map[string][]string {
	graph := make(map[string][]string)
	for _, meta := range allMeta {
		if meta.Language != "python" || len(meta.Imports) == 0 {
			continue
		}
		abs, err := ws.Resolve(meta.Path)
		if err != nil {
			continue
		}
		source := readFileBestEffort(abs)
		if source == "" {
			continue
		}
		var resolved []string
		for _, imp := range pyintel.ResolveImports(source, meta.Path, allPaths) {
			if imp.ResolvedPath != "" {
				resolved = append(resolved, imp.ResolvedPath)
			}
		}
		if len(resolved) > 0 {
			graph[meta.Path] = resolved
		}
	}
	return graph
}

func renderRepoSummary(rs contracts.RepoSummary) string {
	var parts []string
	if rs.Tree != "" {
		parts = append(parts, rs.Tree)
	}
	if rs.Stats != "" {
		parts = append(parts, rs.Stats)
	}
	if rs.TestSummary != "" {
		parts = append(parts, rs.TestSummary)
	}
	if rs.SchemaSummary != "" {
		parts = append(parts, rs.SchemaSummary)
	}
	return strings.Join(parts, "\n")
}

// PackToText renders a ContextPack into the canonical textual form
// suitable as LLM input: target files first (each under a path header),
// then the repo summary, then dependency snippets (each annotated with
// its inclusion reason).
func PackToText(pack contracts.ContextPack) string {
	var b strings.Builder

	for _, tf := range pack.TargetFiles {
		b.WriteString("## File: ")
		b.WriteString(tf.Path)
		b.WriteString("\n```\n")
		b.WriteString(tf.Content)
		if !strings.HasSuffix(tf.Content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")
	}

	summaryText := renderRepoSummary(pack.RepoSummary)
	if summaryText != "" {
		b.WriteString("## Workspace summary\n")
		b.WriteString(summaryText)
		b.WriteString("\n\n")
	}

	for _, snip := range pack.DependencySnippets {
		b.WriteString("## Related: ")
		b.WriteString(snip.Path)
		if snip.Reason != "" {
			b.WriteString(" (")
			b.WriteString(snip.Reason)
			b.WriteString(")")
		}
		b.WriteString("\n```\n")
		b.WriteString(snip.Snippet)
		if !strings.HasSuffix(snip.Snippet, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func readFileBestEffort(absPath string) string {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(raw), "�")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
