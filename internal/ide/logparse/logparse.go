// Package logparse produces deterministic, structured summaries from raw
// command output: test-runner summaries, build-tool summaries, and a
// generic head/tail/error-line fallback.
package logparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/forgeide/forgeide/internal/ide/contracts"
)

// TestFailure is a single failing test case.
type TestFailure struct {
	TestName string `json:"test_name"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message,omitempty"`
}

// PytestSummary is a structured summary of a pytest run.
type PytestSummary struct {
	Total             int           `json:"total"`
	Passed            int           `json:"passed"`
	Failed            int           `json:"failed"`
	Errors            int           `json:"errors"`
	Skipped           int           `json:"skipped"`
	Warnings          int           `json:"warnings"`
	DurationS         float64       `json:"duration_s"`
	Failures          []TestFailure `json:"failures"`
	CollectionErrors  []string      `json:"collection_errors"`
}

// NpmTestSummary is a structured summary of a vitest/jest run.
type NpmTestSummary struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Failures []TestFailure `json:"failures"`
	Suite    string        `json:"suite"`
}

// BuildIssue is a single build error or warning.
type BuildIssue struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// BuildSummary is a structured summary of a build/compile run.
type BuildSummary struct {
	Success  bool         `json:"success"`
	Errors   []BuildIssue `json:"errors"`
	Warnings []BuildIssue `json:"warnings"`
}

// GenericSummary is a truncated summary of arbitrary command output.
type GenericSummary struct {
	LineCount  int      `json:"line_count"`
	Head       []string `json:"head"`
	Tail       []string `json:"tail"`
	ErrorLines []string `json:"error_lines"`
	Truncated  bool     `json:"truncated"`
}

var (
	pytestSummaryRe          = regexp.MustCompile(`=+\s+(.+?)\s+in\s+([\d.]+)s?\s+=+`)
	pytestCountsRe           = regexp.MustCompile(`(\d+)\s+(passed|failed|error|errors|skipped|warnings?|deselected)`)
	pytestFailedRe           = regexp.MustCompile(`(?m)^FAILED\s+(.+?)::(.+?)(?:\s+-\s+(.*))?$`)
	pytestFailedSimpleRe     = regexp.MustCompile(`(?m)FAILED\s+(.+?)\s+-\s+(.*)`)
	pytestCollectionErrorRe  = regexp.MustCompile(`(?m)ERROR collecting (.+?)$`)

	vitestPassedRe = regexp.MustCompile(`(?i)(\d+)\s+passed`)
	vitestFailedRe = regexp.MustCompile(`(?i)(\d+)\s+failed`)
	vitestTotalRe  = regexp.MustCompile(`(?m)\((\d+)\)\s*$`)
	vitestSuiteRe  = regexp.MustCompile(`(?i)Test Files?\s+.*?(\d+)\s+(?:passed|failed)`)
	vitestFailBlockRe = regexp.MustCompile(`(?m)(?:FAIL|×|✕)\s+(.+?)$`)

	jestSummaryRe   = regexp.MustCompile(`(?i)Tests:\s+(?:(\d+)\s+failed,?\s*)?(?:(\d+)\s+passed,?\s*)?(\d+)\s+total`)
	jestFailBlockRe = regexp.MustCompile(`(?m)●\s+(.+?)$`)

	buildErrorRe        = regexp.MustCompile(`(?m)^(.+?):(\d+)(?::\d+)?:\s*(?:error|Error)\b[:\s]*(.*)$`)
	buildErrorGenericRe = regexp.MustCompile(`(?m)^(?:ERROR|error)\b[:\s]+(.*)$`)
	buildWarningRe        = regexp.MustCompile(`(?m)^(.+?):(\d+)(?::\d+)?:\s*(?:warning|Warning)\b[:\s]*(.*)$`)
	buildWarningGenericRe = regexp.MustCompile(`(?m)^(?:WARNING|warning|Warning)\b[:\s]+(.*)$`)

	errorLineRe = regexp.MustCompile(`(?i)error|fail|exception|traceback`)
)

// SummarisePytest parses pytest stdout.
func SummarisePytest(stdout string) PytestSummary {
	var passed, failed, errs, skipped, warnings int
	var duration float64
	var failures []TestFailure
	var collectionErrors []string

	for _, m := range pytestCountsRe.FindAllStringSubmatch(stdout, -1) {
		count, _ := strconv.Atoi(m[1])
		switch kind := strings.ToLower(m[2]); {
		case kind == "passed":
			passed = count
		case kind == "failed":
			failed = count
		case kind == "error" || kind == "errors":
			errs = count
		case kind == "skipped":
			skipped = count
		case strings.HasPrefix(kind, "warning"):
			warnings = count
		}
	}

	if m := pytestSummaryRe.FindStringSubmatch(stdout); m != nil {
		if d, err := strconv.ParseFloat(m[2], 64); err == nil {
			duration = d
		}
	}

	for _, m := range pytestFailedRe.FindAllStringSubmatch(stdout, -1) {
		failures = append(failures, TestFailure{
			TestName: strings.TrimSpace(m[2]),
			File:     strings.TrimSpace(m[1]),
			Message:  strings.TrimSpace(m[3]),
		})
	}
	if len(failures) == 0 {
		for _, m := range pytestFailedSimpleRe.FindAllStringSubmatch(stdout, -1) {
			failures = append(failures, TestFailure{
				TestName: strings.TrimSpace(m[1]),
				Message:  strings.TrimSpace(m[2]),
			})
		}
	}

	for _, m := range pytestCollectionErrorRe.FindAllStringSubmatch(stdout, -1) {
		collectionErrors = append(collectionErrors, strings.TrimSpace(m[1]))
	}

	return PytestSummary{
		Total:            passed + failed + errs + skipped,
		Passed:           passed,
		Failed:           failed,
		Errors:           errs,
		Skipped:          skipped,
		Warnings:         warnings,
		DurationS:        duration,
		Failures:         failures,
		CollectionErrors: collectionErrors,
	}
}

// SummariseNpmTest parses vitest/jest stdout.
func SummariseNpmTest(stdout string) NpmTestSummary {
	var passed, failed, total int
	var suite string
	var failures []TestFailure

	testsLine := ""
	for _, line := range strings.Split(stdout, "\n") {
		stripped := strings.TrimSpace(line)
		lower := strings.ToLower(stripped)
		if strings.HasPrefix(lower, "tests") && (strings.Contains(lower, "passed") || strings.Contains(lower, "failed")) {
			if strings.HasPrefix(lower, "test files") || strings.HasPrefix(lower, "test suites") || strings.HasPrefix(lower, "tests:") {
				continue
			}
			testsLine = stripped
			break
		}
	}

	if testsLine != "" {
		if m := vitestPassedRe.FindStringSubmatch(testsLine); m != nil {
			passed, _ = strconv.Atoi(m[1])
		}
		if m := vitestFailedRe.FindStringSubmatch(testsLine); m != nil {
			failed, _ = strconv.Atoi(m[1])
		}
		if m := vitestTotalRe.FindStringSubmatch(testsLine); m != nil {
			total, _ = strconv.Atoi(m[1])
		} else {
			total = passed + failed
		}
	}

	if vitestSuiteRe.MatchString(stdout) {
		suite = "vitest"
	}

	if testsLine == "" {
		if m := jestSummaryRe.FindStringSubmatch(stdout); m != nil {
			failed = atoiOrZero(m[1])
			passed = atoiOrZero(m[2])
			total = atoiOrZero(m[3])
			suite = "jest"
		}
	}

	if suite == "vitest" || (suite == "" && failed > 0) {
		for _, m := range vitestFailBlockRe.FindAllStringSubmatch(stdout, -1) {
			name := strings.TrimSpace(m[1])
			if name != "" && !strings.HasPrefix(name, "Test Files") {
				failures = append(failures, TestFailure{TestName: name})
			}
		}
	}
	if suite == "jest" {
		for _, m := range jestFailBlockRe.FindAllStringSubmatch(stdout, -1) {
			name := strings.TrimSpace(m[1])
			if name != "" {
				failures = append(failures, TestFailure{TestName: name})
			}
		}
	}

	return NpmTestSummary{Total: total, Passed: passed, Failed: failed, Failures: failures, Suite: suite}
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

// SummariseBuild parses build/compile output.
func SummariseBuild(stdout, stderr string) BuildSummary {
	combined := strings.TrimSpace(stdout + "\n" + stderr)

	var errs, warnings []BuildIssue

	for _, m := range buildErrorRe.FindAllStringSubmatch(combined, -1) {
		line, _ := strconv.Atoi(m[2])
		errs = append(errs, BuildIssue{File: strings.TrimSpace(m[1]), Line: line, Message: strings.TrimSpace(m[3]), Severity: "error"})
	}
	for _, m := range buildErrorGenericRe.FindAllStringSubmatch(combined, -1) {
		msg := strings.TrimSpace(m[1])
		if !containsMessage(errs, msg) {
			errs = append(errs, BuildIssue{Message: msg, Severity: "error"})
		}
	}
	for _, m := range buildWarningRe.FindAllStringSubmatch(combined, -1) {
		line, _ := strconv.Atoi(m[2])
		warnings = append(warnings, BuildIssue{File: strings.TrimSpace(m[1]), Line: line, Message: strings.TrimSpace(m[3]), Severity: "warning"})
	}
	for _, m := range buildWarningGenericRe.FindAllStringSubmatch(combined, -1) {
		msg := strings.TrimSpace(m[1])
		if !containsMessage(warnings, msg) {
			warnings = append(warnings, BuildIssue{Message: msg, Severity: "warning"})
		}
	}

	return BuildSummary{Success: len(errs) == 0, Errors: errs, Warnings: warnings}
}

func containsMessage(issues []BuildIssue, msg string) bool {
	for _, i := range issues {
		if i.Message == msg {
			return true
		}
	}
	return false
}

// SummariseGeneric produces a head/tail/error-line truncated summary.
func SummariseGeneric(stdout, stderr string, maxLines int) GenericSummary {
	if maxLines <= 0 {
		maxLines = 50
	}
	combined := strings.TrimRight(stdout+"\n"+stderr, "\n\r\t ")
	if strings.TrimSpace(combined) == "" {
		return GenericSummary{LineCount: 0, Truncated: false}
	}

	lines := strings.Split(combined, "\n")
	total := len(lines)

	var errorLines []string
	for _, ln := range lines {
		if errorLineRe.MatchString(ln) {
			errorLines = append(errorLines, ln)
		}
	}

	if total <= maxLines*2 {
		return GenericSummary{LineCount: total, Head: lines, Tail: nil, ErrorLines: errorLines, Truncated: false}
	}

	head := append([]string{}, lines[:maxLines]...)
	tail := append([]string{}, lines[total-maxLines:]...)
	return GenericSummary{LineCount: total, Head: head, Tail: tail, ErrorLines: errorLines, Truncated: true}
}

var parserMap = []struct {
	prefixes []string
	name     string
}{
	{[]string{"pytest", "python -m pytest", "python3 -m pytest"}, "pytest"},
	{[]string{"npm test", "npm run test", "npx vitest", "npx jest"}, "npm"},
	{[]string{"pip install", "pip3 install", "npm install", "npx tsc", "tsc"}, "build"},
}

// DetectParser maps a command string to the most appropriate parser name.
func DetectParser(command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	for _, entry := range parserMap {
		for _, prefix := range entry.prefixes {
			if strings.HasPrefix(cmd, prefix) {
				return entry.name
			}
		}
	}
	return "generic"
}

// AutoSummarise detects the right parser from result.Command and applies it.
func AutoSummarise(result contracts.RunResult) any {
	switch DetectParser(result.Command) {
	case "pytest":
		return SummarisePytest(result.Stdout)
	case "npm":
		return SummariseNpmTest(result.Stdout)
	case "build":
		return SummariseBuild(result.Stdout, result.Stderr)
	default:
		return SummariseGeneric(result.Stdout, result.Stderr, 50)
	}
}
