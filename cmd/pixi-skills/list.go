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

	"github.com/jingkaihe/pixi-skills/pkg/environments"
	"github.com/jingkaihe/pixi-skills/pkg/presenter"
	"github.com/jingkaihe/pixi-skills/pkg/skills"
)

type ListConfig struct {
	Scope  string
	Env    string
	Output string
}

func NewListConfig() *ListConfig {
	return &ListConfig{
		Scope:  "",
		Env:    "",
		Output: "table",
	}
}

// skillRecord is the machine-readable form of a discovered skill
type skillRecord struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Path        string `json:"path" yaml:"path"`
	Environment string `json:"environment" yaml:"environment"`
	Scope       string `json:"scope" yaml:"scope"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available skills",
	Long: `List skills discovered in pixi environments.

Local skills come from <project>/.pixi/envs/<env>/share/agent-skills; global
skills come from agent-skill-* packages under ~/.pixi/envs.

Examples:
  pixi-skills list
  pixi-skills list --scope local --env dev
  pixi-skills list --output json`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getListConfigFromFlags(cmd)
		listSkillsCmd(cmd.Context(), config)
	},
}

func init() {
	defaults := NewListConfig()
	listCmd.Flags().StringP("scope", "s", defaults.Scope, "Filter by scope (local or global)")
	listCmd.Flags().StringP("env", "e", defaults.Env, "Pixi environment to search for local skills")
	listCmd.Flags().StringP("output", "o", defaults.Output, "Output format (table, json, yaml)")
	rootCmd.AddCommand(listCmd)
}

func getListConfigFromFlags(cmd *cobra.Command) *ListConfig {
	config := NewListConfig()
	if scope, err := cmd.Flags().GetString("scope"); err == nil {
		config.Scope = scope
	}
	if env, err := cmd.Flags().GetString("env"); err == nil {
		config.Env = env
	}
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	return config
}

func listSkillsCmd(ctx context.Context, config *ListConfig) {
	scopes, err := scopesForListing(config.Scope, config.Env)
	if err != nil {
		presenter.Error(err, "Invalid flags")
		os.Exit(1)
	}

	records := []skillRecord{}
	for _, scope := range scopes {
		env := config.Env
		if scope == environments.ScopeGlobal {
			env = ""
		}

		registry, err := discoverScope(ctx, scope, env)
		if err != nil {
			if errors.Is(err, environments.ErrEnvironmentNotFound) {
				presenter.Error(err, "Environment not found")
			} else {
				presenter.Error(err, "Failed to discover skills")
			}
			os.Exit(1)
		}

		if config.Output == "table" {
			printSkillsTable(scope, registry)
			continue
		}
		for _, skill := range registry.Skills() {
			records = append(records, skillRecord{
				Name:        skill.Name,
				Description: skill.Description,
				Path:        skill.Path,
				Environment: skill.Env.Name,
				Scope:       string(skill.Env.Scope),
			})
		}
	}

	switch config.Output {
	case "table":
		// Already printed per scope
	case "json":
		encoded, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			presenter.Error(err, "Failed to encode skills")
			os.Exit(1)
		}
		fmt.Println(string(encoded))
	case "yaml":
		encoded, err := yaml.Marshal(records)
		if err != nil {
			presenter.Error(err, "Failed to encode skills")
			os.Exit(1)
		}
		fmt.Print(string(encoded))
	default:
		presenter.Error(errors.Errorf("unknown output format %q", config.Output), "Invalid flags")
		os.Exit(1)
	}
}

// scopesForListing applies the --env/--scope interplay: --env is local-only,
// and a non-default --env without an explicit scope implies local so global
// skills are not listed alongside.
func scopesForListing(scope, env string) ([]environments.Scope, error) {
	if scope == "" {
		if env != "" {
			return []environments.Scope{environments.ScopeLocal}, nil
		}
		return []environments.Scope{environments.ScopeLocal, environments.ScopeGlobal}, nil
	}

	parsed, err := environments.ParseScope(scope)
	if err != nil {
		return nil, err
	}
	if parsed == environments.ScopeGlobal && env != "" {
		return nil, errors.New("--env can only be used with local scope")
	}
	return []environments.Scope{parsed}, nil
}

func printSkillsTable(scope environments.Scope, registry *skills.Registry) {
	title := "Local Skills"
	if scope == environments.ScopeGlobal {
		title = "Global Skills"
	}

	if registry.Len() == 0 {
		presenter.Info(fmt.Sprintf("No %s found.", title))
		return
	}

	presenter.Section(title)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tENVIRONMENT\tDESCRIPTION\tPATH")
	fmt.Fprintln(tw, "----\t-----------\t-----------\t----")

	for _, skill := range registry.Skills() {
		description := skill.Description
		if len(description) > 60 {
			description = description[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", skill.Name, skill.Env.Name, description, skill.Path)
	}
	tw.Flush()
}
