package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/pixi-skills/pkg/backends"
	"github.com/jingkaihe/pixi-skills/pkg/environments"
	"github.com/jingkaihe/pixi-skills/pkg/linker"
	"github.com/jingkaihe/pixi-skills/pkg/presenter"
	"github.com/jingkaihe/pixi-skills/pkg/skills"
	"github.com/jingkaihe/pixi-skills/pkg/tui"
)

type ManageConfig struct {
	Backend   string
	Scope     string
	Env       string
	Install   []string
	Uninstall []string
}

func NewManageConfig() *ManageConfig {
	return &ManageConfig{}
}

var manageCmd = &cobra.Command{
	Use:   "manage",
	Short: "Manage installed skills for a backend",
	Long: `Install and uninstall skills for a backend by creating or removing
relative symlinks in the backend's skills directory.

Without --install/--uninstall this opens an interactive selector with the
currently installed skills pre-selected: select skills to install them,
unselect to uninstall them.

Examples:
  pixi-skills manage
  pixi-skills manage --backend claude --scope local
  pixi-skills manage -b claude -s local --install foo --uninstall bar`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getManageConfigFromFlags(cmd)
		manageSkillsCmd(cmd.Context(), config)
	},
}

func init() {
	defaults := NewManageConfig()
	manageCmd.Flags().StringP("backend", "b", defaults.Backend, "Backend to manage skills for")
	manageCmd.Flags().StringP("scope", "s", defaults.Scope, "Scope to manage (local or global)")
	manageCmd.Flags().StringP("env", "e", defaults.Env, "Pixi environment to search for local skills")
	manageCmd.Flags().StringSlice("install", defaults.Install, "Skill identifiers to install (skips the interactive selector)")
	manageCmd.Flags().StringSlice("uninstall", defaults.Uninstall, "Skill identifiers to uninstall (skips the interactive selector)")
	rootCmd.AddCommand(manageCmd)
}

func getManageConfigFromFlags(cmd *cobra.Command) *ManageConfig {
	config := NewManageConfig()
	if backend, err := cmd.Flags().GetString("backend"); err == nil {
		config.Backend = backend
	}
	if scope, err := cmd.Flags().GetString("scope"); err == nil {
		config.Scope = scope
	}
	if env, err := cmd.Flags().GetString("env"); err == nil {
		config.Env = env
	}
	if install, err := cmd.Flags().GetStringSlice("install"); err == nil {
		config.Install = install
	}
	if uninstall, err := cmd.Flags().GetStringSlice("uninstall"); err == nil {
		config.Uninstall = uninstall
	}
	return config
}

func manageSkillsCmd(ctx context.Context, config *ManageConfig) {
	if config.Env != "" && config.Scope == "global" {
		presenter.Error(errors.New("--env can only be used with local scope"), "Invalid flags")
		os.Exit(1)
	}

	interactive := len(config.Install) == 0 && len(config.Uninstall) == 0

	backend, ok := resolveBackend(config.Backend, interactive)
	if !ok {
		return
	}

	scope, ok := resolveScope(config.Scope, config.Env, interactive)
	if !ok {
		return
	}

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

	if registry.Len() == 0 {
		presenter.Warning(fmt.Sprintf("No %s skills available.", scope))
		os.Exit(1)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		presenter.Error(err, "Failed to get user home directory")
		os.Exit(1)
	}

	skillsDir := backend.SkillsDir(scope, ".", homeDir)
	presenter.Info(fmt.Sprintf("Managing %s", skillsDir))

	installed, err := linker.Installed(ctx, skillsDir, registry)
	if err != nil {
		presenter.Error(err, "Failed to inspect installed skills")
		os.Exit(1)
	}

	var toInstall, toUninstall []*skills.Skill
	if interactive {
		toInstall, toUninstall, ok = selectChanges(backend, scope, registry, installed)
		if !ok {
			return
		}
	} else {
		toInstall, toUninstall, ok = namedChanges(config.Install, config.Uninstall, registry)
		if !ok {
			os.Exit(1)
		}
	}

	if len(toInstall) == 0 && len(toUninstall) == 0 {
		presenter.Info("No changes.")
		return
	}

	reconciler := linker.New(skillsDir)

	var outcomes []linker.Outcome
	installOutcomes, err := reconciler.Install(ctx, toInstall)
	if err != nil {
		presenter.Error(err, "Failed to prepare skills directory")
		os.Exit(1)
	}
	outcomes = append(outcomes, installOutcomes...)
	outcomes = append(outcomes, reconciler.Uninstall(ctx, toUninstall)...)

	succeeded := reportOutcomes(outcomes)
	if !succeeded {
		os.Exit(1)
	}
}

func resolveBackend(id string, interactive bool) (backends.Backend, bool) {
	if id == "" {
		if !interactive {
			presenter.Error(errors.New("--backend is required with --install/--uninstall"), "Invalid flags")
			os.Exit(1)
		}
		choice, ok, err := tui.Choose("Select backend", backends.IDs())
		if err != nil {
			presenter.Error(err, "Backend selection failed")
			os.Exit(1)
		}
		if !ok {
			return backends.Backend{}, false
		}
		id = choice
	}

	backend, err := backends.Get(id)
	if err != nil {
		presenter.Error(err, "Unknown backend")
		os.Exit(1)
	}
	return backend, true
}

func resolveScope(scope, env string, interactive bool) (environments.Scope, bool) {
	if scope == "" {
		if env != "" {
			presenter.Info("Using the local scope as environment was requested")
			return environments.ScopeLocal, true
		}
		if !interactive {
			return environments.ScopeLocal, true
		}
		choice, ok, err := tui.Choose("Select scope", []string{
			string(environments.ScopeLocal),
			string(environments.ScopeGlobal),
		})
		if err != nil {
			presenter.Error(err, "Scope selection failed")
			os.Exit(1)
		}
		if !ok {
			return "", false
		}
		scope = choice
	}

	parsed, err := environments.ParseScope(scope)
	if err != nil {
		presenter.Error(err, "Invalid flags")
		os.Exit(1)
	}
	return parsed, true
}

// selectChanges runs the interactive selector and diffs the selection against
// the installed set. When nothing is installed yet, everything starts
// selected.
func selectChanges(backend backends.Backend, scope environments.Scope, registry *skills.Registry, installed map[string]bool) ([]*skills.Skill, []*skills.Skill, bool) {
	items := make([]tui.SkillItem, 0, registry.Len())
	for _, skill := range registry.Skills() {
		items = append(items, tui.SkillItem{
			Name:        skill.Name,
			Description: skill.Description,
			Selected:    len(installed) == 0 || installed[skill.Name],
		})
	}

	items, confirmed, err := tui.SelectSkills(fmt.Sprintf("Select skills for %s (%s)", backend.ID, scope), items)
	if err != nil {
		presenter.Error(err, "Skill selection failed")
		os.Exit(1)
	}
	if !confirmed {
		return nil, nil, false
	}

	var toInstall, toUninstall []*skills.Skill
	for _, item := range items {
		skill, _ := registry.Get(item.Name)
		switch {
		case item.Selected && !installed[item.Name]:
			toInstall = append(toInstall, skill)
		case !item.Selected && installed[item.Name]:
			toUninstall = append(toUninstall, skill)
		}
	}
	return toInstall, toUninstall, true
}

// namedChanges resolves explicitly named skills against the registry. Unknown
// identifiers fail the invocation before any filesystem work happens.
func namedChanges(install, uninstall []string, registry *skills.Registry) ([]*skills.Skill, []*skills.Skill, bool) {
	var toInstall, toUninstall []*skills.Skill
	ok := true

	for _, name := range install {
		skill, exists := registry.Get(name)
		if !exists {
			presenter.Error(errors.Errorf("skill %q not found", name), "Unknown skill")
			ok = false
			continue
		}
		toInstall = append(toInstall, skill)
	}

	for _, name := range uninstall {
		skill, exists := registry.Get(name)
		if !exists {
			presenter.Error(errors.Errorf("skill %q not found", name), "Unknown skill")
			ok = false
			continue
		}
		toUninstall = append(toUninstall, skill)
	}

	return toInstall, toUninstall, ok
}

// reportOutcomes prints per-item results and reports whether the batch should
// exit zero: per-item conflicts keep the exit code at zero as long as at
// least one item reached its desired state.
func reportOutcomes(outcomes []linker.Outcome) bool {
	succeeded := 0
	failed := 0

	for _, outcome := range outcomes {
		switch outcome.Status {
		case linker.StatusInstalled:
			succeeded++
			presenter.Success(fmt.Sprintf("Installed '%s' at %s", outcome.Name, outcome.Link))
		case linker.StatusRemoved:
			succeeded++
			presenter.Success(fmt.Sprintf("Uninstalled '%s'", outcome.Name))
		case linker.StatusNoop:
			succeeded++
			presenter.Info(fmt.Sprintf("'%s' already in desired state", outcome.Name))
		default:
			failed++
			presenter.Error(outcome.Err, fmt.Sprintf("Failed to reconcile '%s' (%s)", outcome.Name, outcome.Status))
		}
	}

	return failed == 0 || succeeded > 0
}
