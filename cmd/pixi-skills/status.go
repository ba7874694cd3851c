package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/pixi-skills/pkg/backends"
	"github.com/jingkaihe/pixi-skills/pkg/environments"
	"github.com/jingkaihe/pixi-skills/pkg/linker"
	"github.com/jingkaihe/pixi-skills/pkg/presenter"
)

type StatusConfig struct {
	Backend string
	Output  string
}

func NewStatusConfig() *StatusConfig {
	return &StatusConfig{
		Backend: "",
		Output:  "table",
	}
}

// linkRecord is the machine-readable form of an observed directory entry
type linkRecord struct {
	Name   string `json:"name" yaml:"name"`
	Class  string `json:"class" yaml:"class"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// scopeRecord groups observed entries per backend scope
type scopeRecord struct {
	Scope string       `json:"scope" yaml:"scope"`
	Dir   string       `json:"dir" yaml:"dir"`
	Links []linkRecord `json:"links" yaml:"links"`
}

// backendRecord is the per-backend status report
type backendRecord struct {
	Backend string        `json:"backend" yaml:"backend"`
	Scopes  []scopeRecord `json:"scopes" yaml:"scopes"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installed skills for all or a specific backend",
	Long: `Inspect backend skills directories without modifying them. Each entry is
classified as managed (symlink into a known skill), broken (symlink target
missing), or foreign (anything else; never touched by this tool).

Examples:
  pixi-skills status
  pixi-skills status --backend claude
  pixi-skills status --output yaml`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getStatusConfigFromFlags(cmd)
		statusSkillsCmd(cmd.Context(), config)
	},
}

func init() {
	defaults := NewStatusConfig()
	statusCmd.Flags().StringP("backend", "b", defaults.Backend, "Filter by backend")
	statusCmd.Flags().StringP("output", "o", defaults.Output, "Output format (table, json, yaml)")
	rootCmd.AddCommand(statusCmd)
}

func getStatusConfigFromFlags(cmd *cobra.Command) *StatusConfig {
	config := NewStatusConfig()
	if backend, err := cmd.Flags().GetString("backend"); err == nil {
		config.Backend = backend
	}
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	return config
}

func statusSkillsCmd(ctx context.Context, config *StatusConfig) {
	targets := backends.All()
	if config.Backend != "" {
		backend, err := backends.Get(config.Backend)
		if err != nil {
			presenter.Error(err, "Unknown backend")
			os.Exit(1)
		}
		targets = []backends.Backend{backend}
	}

	registry, err := discoverAll(ctx)
	if err != nil {
		presenter.Error(err, "Failed to discover skills")
		os.Exit(1)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		presenter.Error(err, "Failed to get user home directory")
		os.Exit(1)
	}

	var report []backendRecord
	for _, backend := range targets {
		record := backendRecord{Backend: backend.ID}

		for _, scope := range []environments.Scope{environments.ScopeLocal, environments.ScopeGlobal} {
			dir := backend.SkillsDir(scope, ".", homeDir)

			links, err := linker.Inspect(ctx, dir, registry)
			if err != nil {
				presenter.Error(err, fmt.Sprintf("Failed to inspect %s", dir))
				os.Exit(1)
			}

			scopeRec := scopeRecord{Scope: string(scope), Dir: dir}
			for _, link := range links {
				scopeRec.Links = append(scopeRec.Links, linkRecord{
					Name:   link.Name,
					Class:  string(link.Class),
					Target: link.Target,
				})
			}
			record.Scopes = append(record.Scopes, scopeRec)
		}

		report = append(report, record)
	}

	switch config.Output {
	case "table":
		printStatusTables(report)
	case "json":
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			presenter.Error(err, "Failed to encode status report")
			os.Exit(1)
		}
		fmt.Println(string(encoded))
	case "yaml":
		encoded, err := yaml.Marshal(report)
		if err != nil {
			presenter.Error(err, "Failed to encode status report")
			os.Exit(1)
		}
		fmt.Print(string(encoded))
	default:
		presenter.Error(errors.Errorf("unknown output format %q", config.Output), "Invalid flags")
		os.Exit(1)
	}
}

func printStatusTables(report []backendRecord) {
	for _, record := range report {
		presenter.Section(record.Backend)

		for _, scopeRec := range record.Scopes {
			if len(scopeRec.Links) == 0 {
				presenter.Info(fmt.Sprintf("No %s skills installed", scopeRec.Scope))
				continue
			}

			presenter.Info(fmt.Sprintf("%s (%s)", scopeRec.Scope, scopeRec.Dir))

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTATE\tTARGET")
			fmt.Fprintln(tw, "----\t-----\t------")
			for _, link := range scopeRec.Links {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", link.Name, link.Class, link.Target)
			}
			tw.Flush()
		}
		presenter.Separator()
	}
}
