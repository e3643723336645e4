package main

import (
	"github.com/forgeide/forgeide/internal/ide/config"
	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/gitops"
	"github.com/forgeide/forgeide/internal/ide/reader"
	"github.com/forgeide/forgeide/internal/ide/registry"
	"github.com/forgeide/forgeide/internal/ide/responseparser"
	"github.com/forgeide/forgeide/internal/ide/runner"
	"github.com/forgeide/forgeide/internal/ide/searcher"
	"github.com/forgeide/forgeide/internal/ide/workspace"
)

// buildRegistry registers every tool a forgeide process exposes to a
// dispatch loop (serve/run subcommands), scoped to a single workspace
// and config.
func buildRegistry(ws *workspace.Workspace, cfg config.Config) *registry.Registry {
	r := registry.New()
	search := searcher.New()

	r.Register("read_file", func(params map[string]any, workingDir string) contracts.ToolResponse {
		path, _ := params["path"].(string)
		maxBytes := 200_000
		return reader.ReadFile(ws, path, maxBytes)
	}, "Read a file's content from the workspace", map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
		"required":   []any{"path"},
	})

	r.Register("search", func(params map[string]any, workingDir string) contracts.ToolResponse {
		pattern, _ := params["pattern"].(string)
		return search.Search(ws, pattern, searcher.Options{})
	}, "Search the workspace for a pattern", map[string]any{
		"type":       "object",
		"properties": map[string]any{"pattern": map[string]any{"type": "string"}},
		"required":   []any{"pattern"},
	})

	r.Register("run", func(params map[string]any, workingDir string) contracts.ToolResponse {
		command, _ := params["command"].(string)
		result, err := runner.Run(command, cfg.Runner.TimeoutSec, ws.Root(), nil, cfg.Runner.AllowedPrefixes)
		if err != nil {
			return contracts.Fail(err.Error())
		}
		return contracts.Ok(result)
	}, "Run an allowlisted shell command in the workspace", map[string]any{
		"type":       "object",
		"properties": map[string]any{"command": map[string]any{"type": "string"}},
		"required":   []any{"command"},
	})

	r.Register("apply_response", func(params map[string]any, workingDir string) contracts.ToolResponse {
		original, _ := params["original"].(string)
		llmResponse, _ := params["llm_response"].(string)
		path, _ := params["path"].(string)
		return contracts.Ok(responseparser.ApplyResponse(original, llmResponse, path))
	}, "Apply an LLM builder response to existing file content", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"original":     map[string]any{"type": "string"},
			"llm_response": map[string]any{"type": "string"},
			"path":         map[string]any{"type": "string"},
		},
		"required": []any{"original", "llm_response"},
	})

	r.Register("git_status", func(params map[string]any, workingDir string) contracts.ToolResponse {
		status, err := gitops.GitStatus(ws)
		if err != nil {
			return contracts.Fail(err.Error())
		}
		return contracts.Ok(status)
	}, "Report working-tree status via git status --porcelain", nil)

	r.Register("git_diff", func(params map[string]any, workingDir string) contracts.ToolResponse {
		path, _ := params["path"].(string)
		hunks, err := gitops.GitDiff(ws, path)
		if err != nil {
			return contracts.Fail(err.Error())
		}
		return contracts.Ok(hunks)
	}, "Diff a tracked file against HEAD", map[string]any{
		"type":       "object",
		"properties": map[string]any{"path": map[string]any{"type": "string"}},
		"required":   []any{"path"},
	})

	r.Register("git_log", func(params map[string]any, workingDir string) contracts.ToolResponse {
		n := 10
		if v, ok := params["n"].(float64); ok {
			n = int(v)
		}
		entries, err := gitops.GitLog(ws, n)
		if err != nil {
			return contracts.Fail(err.Error())
		}
		return contracts.Ok(entries)
	}, "List recent commits via git log --oneline", nil)

	return r
}
