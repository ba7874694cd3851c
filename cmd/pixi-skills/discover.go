package main

import (
	"context"
	"fmt"

	"github.com/jingkaihe/pixi-skills/pkg/environments"
	"github.com/jingkaihe/pixi-skills/pkg/presenter"
	"github.com/jingkaihe/pixi-skills/pkg/skills"
)

// discoverScope builds the skill registry for one scope and surfaces the
// scan's non-fatal warnings and conflicts.
func discoverScope(ctx context.Context, scope environments.Scope, env string) (*skills.Registry, error) {
	locator, err := environments.NewLocator()
	if err != nil {
		return nil, err
	}

	envs, err := locator.ForScope(ctx, scope, env)
	if err != nil {
		return nil, err
	}

	registry := skills.Scan(ctx, envs)
	reportScanIssues(registry)
	return registry, nil
}

// discoverAll builds a merged registry across both scopes, local first. Used
// by status to recognize managed links regardless of scope.
func discoverAll(ctx context.Context) (*skills.Registry, error) {
	locator, err := environments.NewLocator()
	if err != nil {
		return nil, err
	}

	envs, err := locator.All(ctx, "")
	if err != nil {
		return nil, err
	}

	registry := skills.Scan(ctx, envs)
	reportScanIssues(registry)
	return registry, nil
}

func reportScanIssues(registry *skills.Registry) {
	for _, warning := range registry.Warnings() {
		presenter.Warning(warning.Error())
	}
	for _, conflict := range registry.Conflicts() {
		presenter.Warning(fmt.Sprintf(
			"Skill %q provided by both %s and %s; using %s",
			conflict.Name, conflict.Winner.Env.Name, conflict.Loser.Env.Name, conflict.Winner.Env.Name,
		))
	}
}
