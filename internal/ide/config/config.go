// Package config loads forgeide's structural settings: a .env file for
// process-level overrides, then a YAML config file read through viper,
// following the same godotenv-then-viper sequence the CLI's ancestor used.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// RunnerConfig embeds the subset of runner knobs an operator may override.
type RunnerConfig struct {
	TimeoutSec      int      `yaml:"timeout_sec" mapstructure:"timeout_sec"`
	AllowedPrefixes []string `yaml:"allowed_prefixes" mapstructure:"allowed_prefixes"`
}

// PatchConfig embeds the subset of patch-engine knobs an operator may
// override.
type PatchConfig struct {
	Fuzz int `yaml:"fuzz" mapstructure:"fuzz"`
}

// ContextPackConfig embeds context-pack assembly knobs.
type ContextPackConfig struct {
	BudgetTokens int `yaml:"budget_tokens" mapstructure:"budget_tokens"`
}

// Config is the root structural configuration for a forgeide process,
// embedding sub-configs the same way the ancestor CLI's Config embedded
// provider sub-configs.
type Config struct {
	WorkspaceRoot     string            `yaml:"workspace_root" mapstructure:"workspace_root"`
	Verbose           bool              `yaml:"verbose" mapstructure:"verbose"`
	OutputCapBytes    int               `yaml:"output_cap_bytes" mapstructure:"output_cap_bytes"`
	Runner            RunnerConfig      `yaml:"runner" mapstructure:"runner"`
	Patch             PatchConfig       `yaml:"patch" mapstructure:"patch"`
	ContextPack       ContextPackConfig `yaml:"context_pack" mapstructure:"context_pack"`
}

// Default returns the zero-config baseline, used when no config file is
// present.
func Default() Config {
	return Config{
		WorkspaceRoot:  ".",
		OutputCapBytes: 50_000,
		Runner:         RunnerConfig{TimeoutSec: 120},
		Patch:          PatchConfig{Fuzz: 3},
		ContextPack:    ContextPackConfig{BudgetTokens: 8000},
	}
}

// Load loads a .env file (if present, warnings are non-fatal) then reads a
// YAML config file via viper. cfgFile, when non-empty, names an explicit
// config path; otherwise viper looks for config.yaml under .forgeide/.
func Load(cfgFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		// A malformed .env is a warning, not a fatal error — matches the
		// ancestor CLI's tolerance for a missing/broken .env.
	}

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".forgeide")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}
	v.AutomaticEnv()

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
			return cfg, nil
		}
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MarshalYAML renders cfg as YAML text, matching the config-serialization
// convention used elsewhere for structured dumps (e.g. the snapshot
// command's `--format yaml` output).
func MarshalYAML(cfg Config) (string, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
