// Package contracts holds the frozen request/response/diagnostic/diff
// record types shared across the IDE runtime. Values are constructed once
// and never mutated after that; callers treat every record as read-only.
package contracts

import "time"

// FileEntry describes one file or directory under a workspace root.
type FileEntry struct {
	Path         string     `json:"path"`
	IsDir        bool       `json:"is_dir"`
	SizeBytes    int64      `json:"size_bytes"`
	Language     string     `json:"language"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// WorkspaceSummary aggregates a file tree into counts.
type WorkspaceSummary struct {
	FileCount      int            `json:"file_count"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	Languages      map[string]int `json:"languages"`
	LastModified   *time.Time     `json:"last_modified,omitempty"`
}

// TestInventory summarizes the test surface discovered in a snapshot pass.
type TestInventory struct {
	TestFiles  []string `json:"test_files"`
	TestCount  int      `json:"test_count"`
	Frameworks []string `json:"frameworks"`
}

// SchemaInventory summarizes SQL schema artifacts discovered in a snapshot pass.
type SchemaInventory struct {
	Tables          []string            `json:"tables"`
	Columns         map[string][]string `json:"columns"`
	MigrationFiles  []string            `json:"migration_files"`
}

// WorkspaceSnapshot is a single-pass reconnaissance artifact: tree, symbol
// table, import graph, tests, and schema combined.
type WorkspaceSnapshot struct {
	Tree             string            `json:"tree"`
	SymbolTable      map[string]string `json:"symbol_table"` // dotted path -> kind
	DependencyGraph  map[string][]string `json:"dependency_graph"`
	TestInventory    TestInventory     `json:"test_inventory"`
	SchemaInventory  SchemaInventory   `json:"schema_inventory"`
	TotalFiles       int               `json:"total_files"`
	TotalLines       int               `json:"total_lines"`
	LineCounts       map[string]int    `json:"line_counts"` // language -> total lines
	LanguageCounts   map[string]int    `json:"language_counts"` // language -> file count
	CapturedAt       time.Time         `json:"captured_at"`
}

// FileMetadata is the indexed form of a FileEntry, carrying extracted
// import/export information.
type FileMetadata struct {
	Path         string     `json:"path"`
	Language     string     `json:"language"`
	SizeBytes    int64      `json:"size_bytes"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	Imports      []string   `json:"imports"`
	Exports      []string   `json:"exports"`
}

// RelatedFile is a workspace file with an aggregate relevance score against
// some target file.
type RelatedFile struct {
	Path    string   `json:"path"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// Diagnostic is one tool-reported issue at a specific location.
type Diagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // error | warning | info | hint
	Code     string `json:"code,omitempty"`
}

// DiagnosticReport groups diagnostics by file with aggregate severity counts.
type DiagnosticReport struct {
	Files         map[string][]Diagnostic `json:"files"`
	ErrorCount    int                     `json:"error_count"`
	WarningCount  int                     `json:"warning_count"`
	InfoCount     int                     `json:"info_count"`
	HintCount     int                     `json:"hint_count"`
}

// Symbol is a named top-level (or class-nested) source entity.
type Symbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Parent    string `json:"parent,omitempty"`
}

// ImportInfo describes a single resolved or unresolved import statement.
type ImportInfo struct {
	Module       string   `json:"module"`
	Names        []string `json:"names"`
	ResolvedPath string   `json:"resolved_path,omitempty"`
	IsStdlib     bool     `json:"is_stdlib"`
}

// RunResult is the structured outcome of a sandboxed subprocess invocation.
type RunResult struct {
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs int64  `json:"duration_ms"`
	Truncated  bool   `json:"truncated"`
	Killed     bool   `json:"killed"`
	Command    string `json:"command"`
}

// Match is one search hit with surrounding context lines.
type Match struct {
	Path          string   `json:"path"`
	Line          int      `json:"line"`
	Column        int      `json:"column"`
	Snippet       string   `json:"snippet"`
	ContextBefore []string `json:"context_before"`
	ContextAfter  []string `json:"context_after"`
}

// TargetFile is one file included verbatim in a context pack.
type TargetFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// DependencySnippet is one relevance-ranked excerpt included in a context pack.
type DependencySnippet struct {
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Snippet string `json:"snippet"`
}

// RepoSummary is the rendered form of a workspace snapshot brief.
type RepoSummary struct {
	Tree          string         `json:"tree"`
	Stats         string         `json:"stats"`
	SymbolCounts  map[string]int `json:"symbol_counts"`
	TestSummary   string         `json:"test_summary"`
	SchemaSummary string         `json:"schema_summary"`
}

// ContextPack is a token-budgeted bundle assembled for an LLM agent call.
type ContextPack struct {
	TargetFiles        []TargetFile        `json:"target_files"`
	DependencySnippets []DependencySnippet `json:"dependency_snippets"`
	RepoSummary        RepoSummary         `json:"repo_summary"`
	BudgetTokens       int                 `json:"budget_tokens"`
	UsedTokens         int                 `json:"used_tokens"`
}

// ToolRequest is the uniform envelope in which the registry receives calls.
type ToolRequest struct {
	Name       string         `json:"name"`
	Params     map[string]any `json:"params"`
	WorkingDir string         `json:"working_dir"`
}

// ToolErrorDetail is the structured shape of ToolResponse.Error.
type ToolErrorDetail struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// ToolResponse is the uniform envelope every registered tool returns.
type ToolResponse struct {
	Success bool             `json:"success"`
	Data    any              `json:"data,omitempty"`
	Error   *ToolErrorDetail `json:"error,omitempty"`
}

// Ok builds a successful ToolResponse wrapping data.
func Ok(data any) ToolResponse {
	return ToolResponse{Success: true, Data: data}
}

// Fail builds a failed ToolResponse with a plain-string reason, matching the
// source's "validation errors produce a failed response with a short
// reason" behavior (no structured detail attached).
func Fail(message string) ToolResponse {
	return ToolResponse{Success: false, Error: &ToolErrorDetail{Kind: "error", Message: message}}
}

// FailDetail builds a failed ToolResponse carrying a structured error kind
// and detail map, used when an IDEError of a known kind propagates to the
// registry boundary.
func FailDetail(kind, message string, detail map[string]any) ToolResponse {
	return ToolResponse{Success: false, Error: &ToolErrorDetail{Kind: kind, Message: message, Detail: detail}}
}

// ParsedResponse is the output of classifying and cleaning an LLM response.
type ParsedResponse struct {
	Kind    string `json:"kind"` // diff | full_content
	Raw     string `json:"raw"`
	Cleaned string `json:"cleaned"`
}
