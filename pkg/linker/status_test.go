package linker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/pixi-skills/pkg/skills"
)

func TestInspectMissingDir(t *testing.T) {
	registry, _ := newSkillFixture(t, "foo")

	links, err := Inspect(context.Background(), filepath.Join(t.TempDir(), "nope"), registry)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestInspectClassification(t *testing.T) {
	registry, skill := newSkillFixture(t, "foo")
	targetDir := t.TempDir()

	// managed: installed by the reconciler
	_, err := New(targetDir).Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)

	// foreign: a regular file
	require.NoError(t, os.WriteFile(filepath.Join(targetDir, "afile"), []byte("x"), 0o644))

	// foreign: a symlink outside all known sources
	require.NoError(t, os.Symlink(t.TempDir(), filepath.Join(targetDir, "elsewhere")))

	// broken: a symlink to a missing target
	require.NoError(t, os.Symlink("/non/existent/path", filepath.Join(targetDir, "dangling")))

	links, err := Inspect(context.Background(), targetDir, registry)
	require.NoError(t, err)
	require.Len(t, links, 4)

	byName := make(map[string]InstalledLink)
	for _, link := range links {
		byName[link.Name] = link
	}

	assert.Equal(t, ClassForeign, byName["afile"].Class)
	assert.Equal(t, ClassForeign, byName["elsewhere"].Class)
	assert.Equal(t, ClassBroken, byName["dangling"].Class)

	managed := byName["foo"]
	assert.Equal(t, ClassManaged, managed.Class)
	require.NotNil(t, managed.Skill)
	assert.Equal(t, "foo", managed.Skill.Name)

	canonical, err := filepath.EvalSymlinks(skill.Path)
	require.NoError(t, err)
	assert.Equal(t, canonical, managed.Target)
}

func TestInspectIsReadOnly(t *testing.T) {
	registry, _ := newSkillFixture(t, "foo")
	targetDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(targetDir, "afile"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("/non/existent/path", filepath.Join(targetDir, "dangling")))
	before := readDirNames(t, targetDir)

	_, err := Inspect(context.Background(), targetDir, registry)
	require.NoError(t, err)
	assert.Equal(t, before, readDirNames(t, targetDir))
}

func TestInstalled(t *testing.T) {
	registry, skill := newSkillFixture(t, "foo")
	targetDir := t.TempDir()

	_, err := New(targetDir).Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(targetDir, "afile"), []byte("x"), 0o644))

	installed, err := Installed(context.Background(), targetDir, registry)
	require.NoError(t, err)

	assert.True(t, installed["foo"])
	assert.False(t, installed["afile"])
	assert.Len(t, installed, 1)
}
