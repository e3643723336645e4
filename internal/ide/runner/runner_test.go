package runner_test

import (
	"os"
	"strings"
	"testing"

	"github.com/forgeide/forgeide/internal/ide/ideerrors"
	"github.com/forgeide/forgeide/internal/ide/runner"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestValidateCommandRejectsInjectionChars(t *testing.T) {
	for ch := range runner.InjectionChars {
		cmd := "ls " + string(ch)
		if reason := runner.ValidateCommand(cmd, nil); reason == "" {
			t.Errorf("ValidateCommand(%q) = accepted, want rejected", cmd)
		}
	}
}

func TestValidateCommandRejectsBlocked(t *testing.T) {
	for _, blocked := range runner.BlockedCommands {
		cmd := blocked + " something"
		if reason := runner.ValidateCommand(cmd, nil); reason == "" {
			t.Errorf("ValidateCommand(%q) = accepted, want rejected", cmd)
		}
	}
}

func TestValidateCommandRejectsOffAllowlist(t *testing.T) {
	reason := runner.ValidateCommand("my_custom_tool --arg", nil)
	if reason == "" {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(reason, "allowlist") {
		t.Errorf("reason = %q, want it to mention allowlist", reason)
	}
}

func TestValidateCommandAcceptsAllowlisted(t *testing.T) {
	for _, ok := range []string{"pytest", "npm test", "ls -la", "git status"} {
		if reason := runner.ValidateCommand(ok, nil); reason != "" {
			t.Errorf("ValidateCommand(%q) = %q, want accepted", ok, reason)
		}
	}
}

func TestRunRejectsUnsafeCommand(t *testing.T) {
	_, err := runner.Run("rm -rf /", 5, "", nil, nil)
	if err == nil {
		t.Fatal("expected SandboxViolation")
	}
	if _, ok := err.(*ideerrors.SandboxViolation); !ok {
		t.Errorf("error type = %T, want *SandboxViolation", err)
	}
}

func TestRunCapturesOutput(t *testing.T) {
	result, err := runner.Run("find . -maxdepth 0", 5, ".", nil, []string{"find "})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", result.ExitCode)
	}
	if result.Command != "find . -maxdepth 0" {
		t.Errorf("Command echoed = %q", result.Command)
	}
}

func TestRunTruncatesLargeOutput(t *testing.T) {
	dir := t.TempDir()
	bigFile := dir + "/big.txt"
	if err := writeRepeated(bigFile, "x", runner.MaxStdoutBytes+5_000); err != nil {
		t.Fatalf("setup: %v", err)
	}
	result, err := runner.Run("cat "+bigFile, 10, ".", nil, []string{"cat "})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Truncated {
		t.Fatal("expected Truncated = true")
	}
	if len(result.Stdout) > runner.MaxStdoutBytes+100 {
		t.Errorf("len(Stdout) = %d, want <= %d", len(result.Stdout), runner.MaxStdoutBytes+100)
	}
}

func writeRepeated(path, chunk string, n int) error {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(chunk)
	}
	return writeFile(path, b.String())
}
