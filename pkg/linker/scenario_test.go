package linker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/pixi-skills/pkg/backends"
	"github.com/jingkaihe/pixi-skills/pkg/environments"
	"github.com/jingkaihe/pixi-skills/pkg/skills"
)

// Exercises the whole flow: discover a local environment, install a skill for
// the claude backend, then verify status reports it as managed.
func TestLocalInstallFlow(t *testing.T) {
	projectRoot := t.TempDir()
	homeDir := t.TempDir()

	skillDir := filepath.Join(projectRoot, ".pixi", "envs", "dev", "share", "agent-skills", "foo")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	manifest := "---\ndescription: helps\n---\n\n# Foo\n\nInstructions.\n"
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, skills.ManifestFileName), []byte(manifest), 0o644))

	locator, err := environments.NewLocator(
		environments.WithProjectRoot(projectRoot),
		environments.WithHomeDir(homeDir),
	)
	require.NoError(t, err)

	envs, err := locator.Local(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "dev", envs[0].Name)

	registry := skills.Scan(context.Background(), envs)
	require.Equal(t, 1, registry.Len())
	foo, ok := registry.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "helps", foo.Description)

	claude, err := backends.Get("claude")
	require.NoError(t, err)
	targetDir := claude.SkillsDir(environments.ScopeLocal, projectRoot, homeDir)
	assert.Equal(t, filepath.Join(projectRoot, ".claude", "skills"), targetDir)

	outcomes, err := New(targetDir).Install(context.Background(), []*skills.Skill{foo})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusInstalled, outcomes[0].Status)

	// The created link is relative and survives as long as the layout does
	rawTarget, err := os.Readlink(filepath.Join(targetDir, "foo"))
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(rawTarget))

	links, err := Inspect(context.Background(), targetDir, registry)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "foo", links[0].Name)
	assert.Equal(t, ClassManaged, links[0].Class)
}
