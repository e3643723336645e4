// Command forgeide is the thin CLI front door over the headless IDE
// runtime library: it holds a registry open for line-delimited tool
// dispatch, runs one-shot tool invocations, and prints workspace
// snapshots, without itself containing any runtime logic.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/atotto/clipboard"
	"github.com/blang/semver"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/forgeide/forgeide/internal/ide/config"
	"github.com/forgeide/forgeide/internal/ide/contextpack"
	"github.com/forgeide/forgeide/internal/ide/contracts"
	"github.com/forgeide/forgeide/internal/ide/fileindex"
	"github.com/forgeide/forgeide/internal/ide/responseparser"
	"github.com/forgeide/forgeide/internal/ide/workspace"

	"gopkg.in/yaml.v3"
)

// version is injected at build time; "dev" is the unreleased default.
var version = "dev"

var logger = log.New(os.Stderr, "[forgeide] ", log.LstdFlags)

var (
	cfgFile    string
	verbose    bool
	workDir    string
	outFormat  string
	useClip    bool
	checkMinV  string
)

var rootCmd = &cobra.Command{
	Use:   "forgeide",
	Short: "forgeide — a headless IDE runtime for LLM build agents",
	Long: `forgeide sits between an LLM-driven build agent and a project
workspace: sandboxed file access, a patch engine, a command runner,
deterministic log summarisers, workspace snapshots, and relevance-ranked
context packs, all exposed as a typed tool registry.`,
}

func loadConfigOrDefault() config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}
	if workDir != "" {
		cfg.WorkspaceRoot = workDir
	}
	cfg.Verbose = cfg.Verbose || verbose
	return cfg
}

func openWorkspace(cfg config.Config) (*workspace.Workspace, error) {
	root := cfg.WorkspaceRoot
	if root == "" {
		root = "."
	}
	return workspace.New(root)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Hold the tool registry open, dispatching JSON-line requests from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfigOrDefault()
		ws, err := openWorkspace(cfg)
		if err != nil {
			return fmt.Errorf("opening workspace: %w", err)
		}
		r := buildRegistry(ws, cfg)

		if cfg.Verbose {
			logger.Printf("serving %d tools over stdin from %s", len(r.ListTools()), ws.Root())
		}

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		encoder := json.NewEncoder(os.Stdout)
		for scanner.Scan() {
			var req contracts.ToolRequest
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				encoder.Encode(contracts.Fail(fmt.Sprintf("invalid request line: %v", err)))
				continue
			}
			resp := r.Dispatch(req.Name, req.Params, req.WorkingDir)
			encoder.Encode(resp)
		}
		return scanner.Err()
	},
}

var runCmd = &cobra.Command{
	Use:   "run [tool-name] [json-params]",
	Short: "Invoke a single registered tool and print its response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfigOrDefault()
		ws, err := openWorkspace(cfg)
		if err != nil {
			return fmt.Errorf("opening workspace: %w", err)
		}
		r := buildRegistry(ws, cfg)

		name := args[0]
		rawParams := map[string]any{}

		if useClip {
			text, err := clipboard.ReadAll()
			if err != nil {
				return fmt.Errorf("reading clipboard: %w", err)
			}
			parsed := responseparser.ParseResponse(text)
			rawParams["llm_response"] = parsed.Raw
		} else if len(args) > 1 {
			if err := json.Unmarshal([]byte(args[1]), &rawParams); err != nil {
				return fmt.Errorf("invalid JSON params: %w", err)
			}
		}

		resp := r.Dispatch(name, rawParams, ws.Root())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture and print a workspace snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfigOrDefault()
		ws, err := openWorkspace(cfg)
		if err != nil {
			return fmt.Errorf("opening workspace: %w", err)
		}

		snap, err := workspace.CaptureSnapshot(ws)
		if err != nil {
			return fmt.Errorf("capturing snapshot: %w", err)
		}

		switch outFormat {
		case "yaml":
			out, err := yaml.Marshal(snap)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		default:
			printSnapshotHuman(snap)
		}
		return nil
	},
}

var packCmd = &cobra.Command{
	Use:   "pack [target-file]",
	Short: "Assemble a token-budgeted context pack for a target file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfigOrDefault()
		ws, err := openWorkspace(cfg)
		if err != nil {
			return fmt.Errorf("opening workspace: %w", err)
		}

		idx, err := fileindex.Build(ws)
		if err != nil {
			return fmt.Errorf("building file index: %w", err)
		}
		snap, err := workspace.CaptureSnapshot(ws)
		if err != nil {
			return fmt.Errorf("capturing snapshot: %w", err)
		}

		pack, err := contextpack.BuildContextPackForFile(ws, idx, snap, args[0], cfg.ContextPack.BudgetTokens)
		if err != nil {
			return fmt.Errorf("assembling context pack: %w", err)
		}
		fmt.Println(contextpack.PackToText(pack))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("forgeide %s\n", version)
		if checkMinV == "" {
			return nil
		}
		current, err := semver.Parse(normaliseVersionForSemver(version))
		if err != nil {
			return fmt.Errorf("linked version %q is not semver: %w", version, err)
		}
		minimum, err := semver.Parse(normaliseVersionForSemver(checkMinV))
		if err != nil {
			return fmt.Errorf("--check-compat value %q is not semver: %w", checkMinV, err)
		}
		if current.LT(minimum) {
			return fmt.Errorf("linked version %s is below required minimum %s", current, minimum)
		}
		fmt.Printf("compatible with minimum %s\n", minimum)
		return nil
	},
}

func normaliseVersionForSemver(v string) string {
	if v == "dev" {
		return "0.0.0"
	}
	if len(v) > 0 && v[0] == 'v' {
		return v[1:]
	}
	return v
}

func printSnapshotHuman(snap contracts.WorkspaceSnapshot) {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	stat := lipgloss.NewStyle().Faint(true)

	fmt.Println(header.Render("Workspace tree"))
	fmt.Println(snap.Tree)
	fmt.Println()
	fmt.Println(header.Render("Stats"))
	fmt.Println(stat.Render(fmt.Sprintf("%d files, %d lines", snap.TotalFiles, snap.TotalLines)))
	if len(snap.TestInventory.TestFiles) > 0 {
		fmt.Println()
		fmt.Println(header.Render("Tests"))
		fmt.Println(stat.Render(fmt.Sprintf("%d test functions across %d files", snap.TestInventory.TestCount, len(snap.TestInventory.TestFiles))))
	}
	if len(snap.SchemaInventory.Tables) > 0 {
		fmt.Println()
		fmt.Println(header.Render("Schema"))
		fmt.Println(stat.Render(fmt.Sprintf("%d tables, %d migration files", len(snap.SchemaInventory.Tables), len(snap.SchemaInventory.MigrationFiles))))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .forgeide/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workspace", "w", "", "workspace root (overrides config)")

	runCmd.Flags().BoolVar(&useClip, "clipboard", false, "read the LLM response text from the OS clipboard instead of args")
	snapshotCmd.Flags().StringVar(&outFormat, "format", "", "output format: (empty) human, json, or yaml")
	versionCmd.Flags().StringVar(&checkMinV, "check-compat", "", "fail unless the linked version is >= this semver")

	rootCmd.AddCommand(serveCmd, runCmd, snapshotCmd, packCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
