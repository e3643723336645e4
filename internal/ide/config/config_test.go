package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgeide/forgeide/internal/ide/config"
)

func TestDefaultHasSaneCaps(t *testing.T) {
	cfg := config.Default()
	if cfg.OutputCapBytes <= 0 {
		t.Errorf("OutputCapBytes = %d, want positive", cfg.OutputCapBytes)
	}
	if cfg.Patch.Fuzz != 3 {
		t.Errorf("Patch.Fuzz = %d, want 3", cfg.Patch.Fuzz)
	}
}

func TestLoadWithMissingConfigFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputCapBytes != config.Default().OutputCapBytes {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestLoadReadsExplicitYAMLFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yamlText := "workspace_root: /tmp/proj\nverbose: true\ncontext_pack:\n  budget_tokens: 4000\n"
	if err := os.WriteFile(cfgPath, []byte(yamlText), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkspaceRoot != "/tmp/proj" {
		t.Errorf("WorkspaceRoot = %q", cfg.WorkspaceRoot)
	}
	if !cfg.Verbose {
		t.Error("expected Verbose = true")
	}
	if cfg.ContextPack.BudgetTokens != 4000 {
		t.Errorf("ContextPack.BudgetTokens = %d", cfg.ContextPack.BudgetTokens)
	}
}

func TestMarshalYAMLRoundTrips(t *testing.T) {
	cfg := config.Default()
	text, err := config.MarshalYAML(cfg)
	if err != nil {
		t.Fatalf("MarshalYAML: %v", err)
	}
	if text == "" {
		t.Fatal("expected non-empty YAML text")
	}
}
