package linker

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/pixi-skills/pkg/environments"
	"github.com/jingkaihe/pixi-skills/pkg/logger"
	"github.com/jingkaihe/pixi-skills/pkg/skills"
)

// newSkillFixture creates a skill directory with a valid manifest and returns
// the scanned registry plus the skill itself.
func newSkillFixture(t *testing.T, name string) (*skills.Registry, *skills.Skill) {
	t.Helper()

	env := environments.Environment{
		Name:  "dev",
		Root:  filepath.Join(t.TempDir(), "dev"),
		Scope: environments.ScopeLocal,
	}

	skillDir := filepath.Join(env.SkillsDir(), name)
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	manifest := "---\ndescription: helps\n---\n\nBody.\n"
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, skills.ManifestFileName), []byte(manifest), 0o644))

	registry := skills.Scan(context.Background(), []environments.Environment{env})
	skill, ok := registry.Get(name)
	require.True(t, ok)
	return registry, skill
}

func readDirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestInstall(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := filepath.Join(t.TempDir(), ".claude", "skills")

	reconciler := New(targetDir)
	outcomes, err := reconciler.Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.Equal(t, StatusInstalled, outcomes[0].Status)
	assert.Equal(t, "foo", outcomes[0].Name)
	assert.False(t, outcomes[0].Failed())

	// The link is relative and resolves to the skill source
	linkPath := filepath.Join(targetDir, "foo")
	target, err := os.Readlink(linkPath)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(target))

	resolved, err := filepath.EvalSymlinks(linkPath)
	require.NoError(t, err)
	canonical, err := filepath.EvalSymlinks(skill.Path)
	require.NoError(t, err)
	assert.Equal(t, canonical, resolved)
}

func TestInstallRelativeTargetDir(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	t.Chdir(t.TempDir())

	// Relative target dir against an absolute skill path still yields a
	// relative link
	targetDir := filepath.Join(".claude", "skills")
	outcomes, err := New(targetDir).Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusInstalled, outcomes[0].Status)

	linkPath := filepath.Join(targetDir, "foo")
	target, err := os.Readlink(linkPath)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(target))

	resolved, err := filepath.EvalSymlinks(linkPath)
	require.NoError(t, err)
	canonical, err := filepath.EvalSymlinks(skill.Path)
	require.NoError(t, err)
	assert.Equal(t, canonical, resolved)
}

func TestInstallIdempotent(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := filepath.Join(t.TempDir(), "skills")
	reconciler := New(targetDir)

	_, err := reconciler.Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)
	before := readDirNames(t, targetDir)

	outcomes, err := reconciler.Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.Equal(t, StatusNoop, outcomes[0].Status)
	assert.Equal(t, before, readDirNames(t, targetDir))
}

func TestInstallConflictWithForeignFile(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := t.TempDir()

	foreign := filepath.Join(targetDir, "foo")
	require.NoError(t, os.WriteFile(foreign, []byte("precious"), 0o644))

	outcomes, err := New(targetDir).Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.Equal(t, StatusConflict, outcomes[0].Status)
	assert.True(t, outcomes[0].Failed())
	assert.Error(t, outcomes[0].Err)

	// The foreign file is untouched
	content, err := os.ReadFile(foreign)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(content))
}

func TestInstallConflictWithUnrelatedSymlink(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := t.TempDir()

	unrelated := t.TempDir()
	linkPath := filepath.Join(targetDir, "foo")
	require.NoError(t, os.Symlink(unrelated, linkPath))

	outcomes, err := New(targetDir).Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)
	assert.Equal(t, StatusConflict, outcomes[0].Status)

	// The unrelated link still points where it pointed
	target, err := os.Readlink(linkPath)
	require.NoError(t, err)
	assert.Equal(t, unrelated, target)
}

func TestInstallBatchIsItemIndependent(t *testing.T) {
	_, skillA := newSkillFixture(t, "alpha")
	_, skillB := newSkillFixture(t, "beta")

	targetDir := t.TempDir()
	// Occupy beta's name with a regular file
	require.NoError(t, os.WriteFile(filepath.Join(targetDir, "beta"), []byte("x"), 0o644))

	outcomes, err := New(targetDir).Install(context.Background(), []*skills.Skill{skillA, skillB})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, StatusInstalled, outcomes[0].Status)
	assert.Equal(t, StatusConflict, outcomes[1].Status)

	// alpha made it despite beta's conflict
	_, err = os.Readlink(filepath.Join(targetDir, "alpha"))
	assert.NoError(t, err)
}

func TestUninstall(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := t.TempDir()
	reconciler := New(targetDir)

	_, err := reconciler.Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)

	outcomes := reconciler.Uninstall(context.Background(), []*skills.Skill{skill})
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusRemoved, outcomes[0].Status)

	_, err = os.Lstat(filepath.Join(targetDir, "foo"))
	assert.True(t, os.IsNotExist(err))
}

func TestUninstallAbsentIsNoop(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")

	outcomes := New(t.TempDir()).Uninstall(context.Background(), []*skills.Skill{skill})
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusNoop, outcomes[0].Status)
	assert.False(t, outcomes[0].Failed())
}

func TestUninstallLeavesForeignFile(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := t.TempDir()

	foreign := filepath.Join(targetDir, "foo")
	require.NoError(t, os.WriteFile(foreign, []byte("precious"), 0o644))

	outcomes := New(targetDir).Uninstall(context.Background(), []*skills.Skill{skill})
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusNotManaged, outcomes[0].Status)
	assert.True(t, outcomes[0].Failed())

	_, err := os.Stat(foreign)
	assert.NoError(t, err)
}

func TestUninstallLeavesUnrelatedSymlink(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := t.TempDir()

	unrelated := t.TempDir()
	linkPath := filepath.Join(targetDir, "foo")
	require.NoError(t, os.Symlink(unrelated, linkPath))

	outcomes := New(targetDir).Uninstall(context.Background(), []*skills.Skill{skill})
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusNotManaged, outcomes[0].Status)

	_, err := os.Lstat(linkPath)
	assert.NoError(t, err)
}

func TestUninstallBrokenManagedLink(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := t.TempDir()
	reconciler := New(targetDir)

	_, err := reconciler.Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)

	// The source vanished after installation
	require.NoError(t, os.RemoveAll(skill.Path))

	outcomes := reconciler.Uninstall(context.Background(), []*skills.Skill{skill})
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusRemoved, outcomes[0].Status)
}

func TestInstallUninstallRoundTrip(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := t.TempDir()

	// Pre-existing foreign content
	require.NoError(t, os.WriteFile(filepath.Join(targetDir, "notes.txt"), []byte("keep"), 0o644))
	before := readDirNames(t, targetDir)

	reconciler := New(targetDir)
	_, err := reconciler.Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)
	reconciler.Uninstall(context.Background(), []*skills.Skill{skill})

	assert.Equal(t, before, readDirNames(t, targetDir))
	content, err := os.ReadFile(filepath.Join(targetDir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep", string(content))
}

func TestReconcileLogsOutcomes(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := filepath.Join(t.TempDir(), "skills")

	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.DebugLevel)
	ctx := logger.WithLogger(context.Background(), logrus.NewEntry(log))

	reconciler := New(targetDir)
	_, err := reconciler.Install(ctx, []*skills.Skill{skill})
	require.NoError(t, err)
	reconciler.Uninstall(ctx, []*skills.Skill{skill})

	output := buf.String()
	assert.Contains(t, output, "reconciled skill link")
	assert.Contains(t, output, "installed")
	assert.Contains(t, output, "removed")
}

func TestInstallCreatesTargetDir(t *testing.T) {
	_, skill := newSkillFixture(t, "foo")
	targetDir := filepath.Join(t.TempDir(), "deep", "nested", "skills")

	outcomes, err := New(targetDir).Install(context.Background(), []*skills.Skill{skill})
	require.NoError(t, err)
	assert.Equal(t, StatusInstalled, outcomes[0].Status)

	info, err := os.Stat(targetDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
