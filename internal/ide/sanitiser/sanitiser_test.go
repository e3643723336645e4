package sanitiser_test

import (
	"testing"

	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/sanitiser"
)

func TestSanitiseOutputIdempotent(t *testing.T) {
	inputs := []string{
		"built at 2024-01-02T03:04:05Z pid=12345 in /tmp/xyz123",
		`C:\Users\bob\AppData\Local\Temp\build42\out.log PID: 999`,
		"no noise here at all",
		"",
	}
	for _, in := range inputs {
		once := sanitiser.SanitiseOutput(in, "")
		twice := sanitiser.SanitiseOutput(once, "")
		if once != twice {
			t.Errorf("not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestStripTimestamps(t *testing.T) {
	got := sanitiser.StripTimestamps("log at 2024-01-02T03:04:05.123Z done")
	if got != "log at [timestamp] done" {
		t.Errorf("got %q", got)
	}
}

func TestStripPidsPreservesPrefix(t *testing.T) {
	got := sanitiser.StripPids("worker pid=12345 started")
	if got != "worker pid=[pid] started" {
		t.Errorf("got %q", got)
	}
}

func TestStripTmpdir(t *testing.T) {
	got := sanitiser.StripTmpdir("wrote to /tmp/abc123/out.txt")
	if got != "wrote to [tmpdir]" {
		t.Errorf("got %q", got)
	}
}

func TestNormalisePathsStripsRoot(t *testing.T) {
	got := sanitiser.NormalisePaths("/home/build/project/src/main.go", "/home/build/project")
	if got != "src/main.go" {
		t.Errorf("got %q", got)
	}
}

func TestSortDiagnosticsOrdersBySeverity(t *testing.T) {
	diags := []contracts.Diagnostic{
		{File: "a.go", Line: 1, Severity: "warning", Message: "m1"},
		{File: "a.go", Line: 1, Severity: "error", Message: "m2"},
	}
	sorted := sanitiser.SortDiagnostics(diags)
	if sorted[0].Severity != "error" {
		t.Errorf("sorted[0].Severity = %q, want error", sorted[0].Severity)
	}
}
