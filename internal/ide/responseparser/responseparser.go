// Package responseparser classifies and cleans LLM builder responses, and
// composes the patch engine, log parser, and runner into the higher-level
// apply/run primitives a builder loop calls directly.
package responseparser

import (
	"context"
	"regexp"
	"strings"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/logparse"
	"github.com/forgeide/forgeide/internal/ide/patch"
	"github.com/forgeide/forgeide/internal/ide/runner"
)

// Match a unified-diff file header: "--- a/path" or "--- path".
var diffOldRe = regexp.MustCompile(`(?m)^---\s+\S`)
var diffNewRe = regexp.MustCompile(`(?m)^\+\+\+\s+\S`)

// Match a hunk header: "@@ -1,3 +1,4 @@".
var hunkHeaderRe = regexp.MustCompile(`(?m)^@@\s+-\d+`)

// Match outermost fenced code block markers.
var fenceOpenRe = regexp.MustCompile(`^` + "```" + `[a-zA-Z0-9_]*$`)
var fenceCloseRe = regexp.MustCompile(`^` + "```" + `$`)

// ClassifyResponse reports whether text is a unified diff or full file
// content. It is classified "diff" only when all three markers are
// present: a "--- path" line, a "+++ path" line, and at least one
// "@@ -" hunk header. Otherwise "full_content".
func ClassifyResponse(text string) string {
	if text == "" {
		return "full_content"
	}
	hasOld := diffOldRe.MatchString(text)
	hasNew := diffNewRe.MatchString(text)
	hasHunk := hunkHeaderRe.MatchString(text)
	if hasOld && hasNew && hasHunk {
		return "diff"
	}
	return "full_content"
}

// StripFences removes the outermost markdown code fence from text, with or
// without a language tag. Only the first opening fence and its matching
// closing fence are removed; nested fences are preserved. Returns text
// unchanged if no fence pair is found.
func StripFences(text string) string {
	if text == "" {
		return text
	}
	lines := strings.Split(text, "\n")

	openIdx := -1
	for i, line := range lines {
		if fenceOpenRe.MatchString(strings.TrimSpace(line)) {
			openIdx = i
			break
		}
	}
	if openIdx < 0 {
		return text
	}

	closeIdx := -1
	for i := len(lines) - 1; i > openIdx; i-- {
		if fenceCloseRe.MatchString(strings.TrimSpace(lines[i])) {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return text
	}

	var out []string
	out = append(out, lines[:openIdx]...)
	out = append(out, lines[openIdx+1:closeIdx]...)
	out = append(out, lines[closeIdx+1:]...)
	return strings.Join(out, "\n")
}

// EnsureTrailingNewline appends a trailing newline if text doesn't already
// end with one. Empty text is returned unchanged.
func EnsureTrailingNewline(text string) string {
	if text == "" {
		return text
	}
	if strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

// ParseResponse strips fences, classifies the result, and (for full
// content only) ensures a trailing newline. Diffs are kept as-is.
func ParseResponse(raw string) contracts.ParsedResponse {
	stripped := StripFences(raw)
	kind := ClassifyResponse(stripped)

	cleaned := stripped
	if kind == "full_content" {
		cleaned = EnsureTrailingNewline(stripped)
	}

	return contracts.ParsedResponse{Kind: kind, Raw: raw, Cleaned: cleaned}
}

// ApplyResult is the outcome of applying a parsed response to existing
// file content.
type ApplyResult struct {
	Content      string `json:"content"`
	Method       string `json:"method"` // patch | full
	HunksApplied int    `json:"hunks_applied"`
	HadConflict  bool   `json:"had_conflict"`
}

// VerificationResult is the structured output of a phase verification
// step: diagnostics plus a test-run summary plus a count of fixes applied
// during the same pass.
type VerificationResult struct {
	Diagnostics  *contracts.DiagnosticReport `json:"diagnostics,omitempty"`
	TestSummary  *logparse.PytestSummary     `json:"test_summary,omitempty"`
	FixesApplied int                         `json:"fixes_applied"`
}

// ApplyResponse applies an LLM builder response to existing file content:
// parse it, return full content as-is, or attempt a patch application and
// fall back to the cleaned diff text as full content (with HadConflict
// set) when the hunks don't match.
func ApplyResponse(original, llmResponse, path string) ApplyResult {
	parsed := ParseResponse(llmResponse)

	if parsed.Kind == "full_content" {
		return ApplyResult{Content: parsed.Cleaned, Method: "full"}
	}

	result, err := patch.ApplyPatch(original, parsed.Cleaned, path, patch.DefaultFuzz)
	if err != nil {
		// The cleaned diff text is not valid file content; signal the
		// conflict so the caller re-requests the file as full content.
		return ApplyResult{Content: parsed.Cleaned, Method: "full", HadConflict: true}
	}

	return ApplyResult{Content: result.PostContent, Method: "patch", HunksApplied: result.HunksApplied}
}

// RunAndSummarise runs command and auto-summarises its output, combining
// subprocess execution with log parsing into a single call.
func RunAndSummarise(ctx context.Context, command string, cwd string, timeoutSec int) (contracts.RunResult, any, error) {
	result, err := runner.Run(command, timeoutSec, cwd, nil, nil)
	if err != nil {
		return result, nil, err
	}
	return result, logparse.AutoSummarise(result), nil
}
