// Package ideclient is the public API surface of the forgeide runtime,
// mirroring the component list in internal/ide/... so external Go programs
// can drive a workspace without reaching into internal packages directly.
package ideclient

import (
	"github.com/forgeide/forgeide/internal/ide/config"
	"github.com/forgeide/forgeide/internal/ide/contextpack"
	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/fileindex"
	"github.com/forgeide/forgeide/internal/ide/gitops"
	"github.com/forgeide/forgeide/internal/ide/patch"
	"github.com/forgeide/forgeide/internal/ide/reader"
	"github.com/forgeide/forgeide/internal/ide/registry"
	"github.com/forgeide/forgeide/internal/ide/relevance"
	"github.com/forgeide/forgeide/internal/ide/responseparser"
	"github.com/forgeide/forgeide/internal/ide/runner"
	"github.com/forgeide/forgeide/internal/ide/searcher"
	"github.com/forgeide/forgeide/internal/ide/workspace"
)

// Re-exported record types, so callers only need this one package for
// both calls and their result shapes.
type (
	RunResult          = contracts.RunResult
	Diagnostic         = contracts.Diagnostic
	DiagnosticReport   = contracts.DiagnosticReport
	Match              = contracts.Match
	ParsedResponse     = contracts.ParsedResponse
	ContextPack        = contracts.ContextPack
	WorkspaceSnapshot  = contracts.WorkspaceSnapshot
	ApplyResult        = responseparser.ApplyResult
	VerificationResult = responseparser.VerificationResult
	Config             = config.Config
)

// Client binds a single sandboxed workspace and its configuration to the
// runtime's components, providing one façade over workspace access, the
// patch/diff/search/run primitives, snapshots, context packs, and git
// plumbing.
type Client struct {
	ws       *workspace.Workspace
	cfg      config.Config
	searcher *searcher.Searcher
	index    *fileindex.FileIndex
}

// Open constructs a Client rooted at workspaceRoot with cfg applied. cfg
// may be the zero value; config.Default() fields are not auto-filled here
// — callers building a Client programmatically should start from
// config.Default() themselves.
func Open(workspaceRoot string, cfg config.Config) (*Client, error) {
	ws, err := workspace.New(workspaceRoot)
	if err != nil {
		return nil, err
	}
	return &Client{ws: ws, cfg: cfg, searcher: searcher.New()}, nil
}

// Root returns the resolved absolute workspace root.
func (c *Client) Root() string { return c.ws.Root() }

// ReadFile reads a workspace-relative file's content.
func (c *Client) ReadFile(relPath string, maxBytes int) contracts.ToolResponse {
	return reader.ReadFile(c.ws, relPath, maxBytes)
}

// ReadRange reads a line range from a workspace-relative file.
func (c *Client) ReadRange(relPath string, startLine, endLine, maxBytes int) contracts.ToolResponse {
	return reader.ReadRange(c.ws, relPath, startLine, endLine, maxBytes)
}

// Search runs a pattern search across the workspace.
func (c *Client) Search(pattern string, opts searcher.Options) contracts.ToolResponse {
	return c.searcher.Search(c.ws, pattern, opts)
}

// Run executes an allowlisted shell command in the workspace, using the
// client's configured timeout and allowlist overrides.
func (c *Client) Run(command string) (contracts.RunResult, error) {
	return runner.Run(command, c.cfg.Runner.TimeoutSec, c.ws.Root(), nil, c.cfg.Runner.AllowedPrefixes)
}

// ApplyResponse applies an LLM builder response to existing file content.
func (c *Client) ApplyResponse(original, llmResponse, path string) ApplyResult {
	return responseparser.ApplyResponse(original, llmResponse, path)
}

// Snapshot captures a fresh single-pass workspace reconnaissance.
func (c *Client) Snapshot() (WorkspaceSnapshot, error) {
	return workspace.CaptureSnapshot(c.ws)
}

// UpdateSnapshot incrementally rescans changedFiles within an existing
// snapshot.
func (c *Client) UpdateSnapshot(snapshot WorkspaceSnapshot, changedFiles []string) (WorkspaceSnapshot, error) {
	return workspace.UpdateSnapshot(snapshot, changedFiles, c.ws)
}

// BuildIndex (re)builds the in-memory file index backing relevance
// scoring and context-pack assembly, caching it on the client.
func (c *Client) BuildIndex() error {
	idx, err := fileindex.Build(c.ws)
	if err != nil {
		return err
	}
	c.index = idx
	return nil
}

// FindRelated ranks the indexed workspace against targetPath, calling
// BuildIndex first if no index has been built yet.
func (c *Client) FindRelated(targetPath string, maxResults int) ([]contracts.RelatedFile, error) {
	if c.index == nil {
		if err := c.BuildIndex(); err != nil {
			return nil, err
		}
	}
	allPaths := c.index.AllFiles()
	var allMeta []contracts.FileMetadata
	for _, p := range allPaths {
		if meta, ok := c.index.GetMetadata(p); ok {
			allMeta = append(allMeta, meta)
		}
	}
	imports := contextpack.ResolvedImportGraph(c.ws, allMeta, allPaths)
	return relevance.FindRelated(targetPath, allMeta, imports, maxResults), nil
}

// ContextPackForFile assembles a token-budgeted context pack for
// targetPath, rebuilding the file index and a fresh snapshot as needed.
func (c *Client) ContextPackForFile(targetPath string, budgetTokens int) (ContextPack, error) {
	if c.index == nil {
		if err := c.BuildIndex(); err != nil {
			return ContextPack{}, err
		}
	}
	snap, err := c.Snapshot()
	if err != nil {
		return ContextPack{}, err
	}
	return contextpack.BuildContextPackForFile(c.ws, c.index, snap, targetPath, budgetTokens)
}

// GitStatus reports working-tree status.
func (c *Client) GitStatus() (gitops.StatusResult, error) {
	return gitops.GitStatus(c.ws)
}

// GitDiff diffs a tracked file against HEAD.
func (c *Client) GitDiff(path string) ([]patch.Hunk, error) {
	return gitops.GitDiff(c.ws, path)
}

// GitLog lists the last n commits.
func (c *Client) GitLog(n int) ([]gitops.LogEntry, error) {
	return gitops.GitLog(c.ws, n)
}

// Registry returns a freshly built tool registry scoped to this client's
// workspace and config, for callers that want dispatch-by-name semantics
// (e.g. driving the runtime from a language-agnostic wire protocol)
// instead of calling the typed methods above directly. Only the read_file
// tool is registered; the other typed methods have no registry entry here.
func (c *Client) Registry() *registry.Registry {
	r := registry.New()
	r.Register("read_file", func(params map[string]any, workingDir string) contracts.ToolResponse {
		path, _ := params["path"].(string)
		return c.ReadFile(path, 200_000)
	}, "Read a file's content from the workspace", nil)
	return r
}
