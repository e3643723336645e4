// Package sanitiser provides deterministic sort keys and noise-stripping
// pure functions so that identical logical results always produce
// byte-identical textual output, regardless of platform, timing, or
// process IDs.
package sanitiser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/forgeide/forgeide/internal/ide/contracts"
)

var severityRank = map[string]int{
	"error":   0,
	"warning": 1,
	"info":    2,
	"hint":    3,
}

var (
	isoTimestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)
	pidRe          = regexp.MustCompile(`(?i)(?:pid|process)\s*[=:]\s*\d+`)
	digitsRe       = regexp.MustCompile(`\d+`)
	tmpdirRe       = regexp.MustCompile(
		`/tmp/\S+` + `|` +
			`/var/folders/\S+` + `|` +
			`[A-Za-z]:[/\\](?:Users|USERS)[/\\][^/\\\s]+[/\\]AppData[/\\]Local[/\\]Temp[/\\]\S+` + `|` +
			`[A-Za-z]:[/\\](?:Windows[/\\])?Temp[/\\]\S+`)
)

// NormalisePath converts backslashes to forward slashes.
func NormalisePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// SortFileList sorts paths alphabetically, case-insensitive, forward-slash normalised.
func SortFileList(paths []string) []string {
	out := append([]string{}, paths...)
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(NormalisePath(out[i])) < strings.ToLower(NormalisePath(out[j]))
	})
	return out
}

// SortMatches sorts search matches by (path, line, column).
func SortMatches(matches []contracts.Match) []contracts.Match {
	out := append([]contracts.Match{}, matches...)
	sort.Slice(out, func(i, j int) bool {
		pi, pj := strings.ToLower(NormalisePath(out[i].Path)), strings.ToLower(NormalisePath(out[j].Path))
		if pi != pj {
			return pi < pj
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// SortDiagnostics sorts diagnostics by (file, line, severity-rank, message).
func SortDiagnostics(diagnostics []contracts.Diagnostic) []contracts.Diagnostic {
	out := append([]contracts.Diagnostic{}, diagnostics...)
	sort.Slice(out, func(i, j int) bool {
		fi, fj := strings.ToLower(NormalisePath(out[i].File)), strings.ToLower(NormalisePath(out[j].File))
		if fi != fj {
			return fi < fj
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		ri, rj := rankOf(out[i].Severity), rankOf(out[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return out[i].Message < out[j].Message
	})
	return out
}

func rankOf(severity string) int {
	if r, ok := severityRank[severity]; ok {
		return r
	}
	return 99
}

// SortSymbols sorts symbols by start_line (stable).
func SortSymbols(symbols []contracts.Symbol) []contracts.Symbol {
	out := append([]contracts.Symbol{}, symbols...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartLine < out[j].StartLine })
	return out
}

// StripTimestamps replaces ISO-8601 and common log timestamps with "[timestamp]".
func StripTimestamps(text string) string {
	return isoTimestampRe.ReplaceAllString(text, "[timestamp]")
}

// StripPids replaces process ID markers ("pid=12345", "PID: 9999",
// "process=42") with "[pid]", preserving the matched prefix text.
func StripPids(text string) string {
	return pidRe.ReplaceAllStringFunc(text, func(match string) string {
		return digitsRe.ReplaceAllString(match, "[pid]")
	})
}

// StripTmpdir replaces temp-directory paths with "[tmpdir]".
func StripTmpdir(text string) string {
	return tmpdirRe.ReplaceAllString(text, "[tmpdir]")
}

// NormalisePaths strips the workspace-root prefix in both separator
// conventions. If workspaceRoot is empty, text is returned unchanged.
func NormalisePaths(text, workspaceRoot string) string {
	if workspaceRoot == "" {
		return text
	}
	normRoot := NormalisePath(workspaceRoot)
	if !strings.HasSuffix(normRoot, "/") {
		normRoot += "/"
	}
	bsRoot := strings.ReplaceAll(workspaceRoot, "/", "\\")
	if !strings.HasSuffix(bsRoot, "\\") {
		bsRoot += "\\"
	}

	result := text
	if strings.Contains(result, "\\") {
		result = strings.ReplaceAll(result, bsRoot, "")
	}
	result = strings.ReplaceAll(result, normRoot, "")
	return result
}

// SanitiseOutput runs the full noise-filtering pipeline: timestamps -> pids
// -> tmpdir -> paths.
func SanitiseOutput(text, workspaceRoot string) string {
	result := StripTimestamps(text)
	result = StripPids(result)
	result = StripTmpdir(result)
	result = NormalisePaths(result, workspaceRoot)
	return result
}

// secretPatterns match common secret shapes redacted to "[REDACTED]".
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9]{16,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]{10,}=*`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(?:api[_-]?key|secret|token)\s*[:=]\s*['"]?[A-Za-z0-9._-]{12,}['"]?`),
}

// RedactSecrets replaces common secret shapes (API-key prefixes, bearer
// tokens, AWS access keys, generic key/secret/token assignments) with a
// "[REDACTED]" sentinel.
func RedactSecrets(text string) string {
	result := text
	for _, re := range secretPatterns {
		result = re.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}
