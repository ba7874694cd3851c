// Package environments locates pixi environments that may carry agent-skill
// bundles. Local environments live under the project's .pixi/envs directory,
// one subdirectory per named environment. Global environments are pixi global
// packages installed under ~/.pixi/envs whose name matches the agent-skill-*
// convention.
package environments

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/pixi-skills/pkg/logger"
)

const (
	localEnvsDir  = ".pixi/envs"
	globalPattern = "agent-skill-*"

	// SkillsSubdir is the fixed path under an environment root where skill
	// directories are packaged.
	SkillsSubdir = "share/agent-skills"
)

// ErrEnvironmentNotFound is returned when an explicitly requested environment
// does not exist. An empty discovery result without an explicit filter is not
// an error.
var ErrEnvironmentNotFound = errors.New("environment not found")

// Scope distinguishes project-local environments from user-wide global
// packages. Local sorts before global.
type Scope string

const (
	ScopeLocal  Scope = "local"
	ScopeGlobal Scope = "global"
)

// ParseScope parses a user-supplied scope string
func ParseScope(s string) (Scope, error) {
	switch s {
	case "local":
		return ScopeLocal, nil
	case "global":
		return ScopeGlobal, nil
	default:
		return "", errors.Errorf("invalid scope %q: must be 'local' or 'global'", s)
	}
}

// Environment represents one resolved pixi environment directory that may
// host skills. Discovered at scan time; read-only.
type Environment struct {
	Name  string
	Root  string
	Scope Scope
}

// SkillsDir returns the directory under the environment root where skill
// directories live. The directory may not exist.
func (e Environment) SkillsDir() string {
	return filepath.Join(e.Root, filepath.FromSlash(SkillsSubdir))
}

// Locator discovers environments for a given scope
type Locator struct {
	projectRoot string
	homeDir     string
}

// Option is a function that configures a Locator
type Option func(*Locator) error

// WithProjectRoot overrides the project root used for local discovery
func WithProjectRoot(dir string) Option {
	return func(l *Locator) error {
		l.projectRoot = dir
		return nil
	}
}

// WithHomeDir overrides the home directory used for global discovery
func WithHomeDir(dir string) Option {
	return func(l *Locator) error {
		l.homeDir = dir
		return nil
	}
}

// NewLocator creates a Locator rooted at the current project and the user's
// home directory unless overridden by options.
func NewLocator(opts ...Option) (*Locator, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user home directory")
	}

	l := &Locator{
		projectRoot: ".",
		homeDir:     homeDir,
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Local enumerates local environments under <project>/.pixi/envs in
// lexicographic order. A non-empty name restricts the result to that
// environment and fails with ErrEnvironmentNotFound if it does not exist.
func (l *Locator) Local(ctx context.Context, name string) ([]Environment, error) {
	envsDir := filepath.Join(l.projectRoot, filepath.FromSlash(localEnvsDir))
	logger.G(ctx).WithField("dir", envsDir).Debug("discovering local environments")

	entries, err := os.ReadDir(envsDir)
	if err != nil {
		if os.IsNotExist(err) {
			if name != "" {
				return nil, errors.Wrapf(ErrEnvironmentNotFound, "no local environment %q", name)
			}
			logger.G(ctx).WithField("dir", envsDir).Debug("no local environments directory")
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", envsDir)
	}

	var envs []Environment
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if name != "" && entry.Name() != name {
			continue
		}
		envs = append(envs, Environment{
			Name:  entry.Name(),
			Root:  filepath.Join(envsDir, entry.Name()),
			Scope: ScopeLocal,
		})
	}

	if name != "" && len(envs) == 0 {
		return nil, errors.Wrapf(ErrEnvironmentNotFound, "no local environment %q", name)
	}

	sortEnvironments(envs)
	logger.G(ctx).WithField("count", len(envs)).Debug("local environments discovered")
	return envs, nil
}

// Global enumerates global pixi packages under ~/.pixi/envs whose name
// matches the agent-skill-* convention, in lexicographic order.
func (l *Locator) Global(ctx context.Context) ([]Environment, error) {
	envsDir := filepath.Join(l.homeDir, filepath.FromSlash(localEnvsDir))
	logger.G(ctx).WithField("dir", envsDir).Debug("discovering global environments")

	entries, err := os.ReadDir(envsDir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.G(ctx).WithField("dir", envsDir).Debug("no global environments directory")
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", envsDir)
	}

	var envs []Environment
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		matched, err := doublestar.Match(globalPattern, entry.Name())
		if err != nil || !matched {
			continue
		}
		envs = append(envs, Environment{
			Name:  entry.Name(),
			Root:  filepath.Join(envsDir, entry.Name()),
			Scope: ScopeGlobal,
		})
	}

	sortEnvironments(envs)
	logger.G(ctx).WithField("count", len(envs)).Debug("global environments discovered")
	return envs, nil
}

// ForScope returns environments for a single scope. The name filter only
// applies to the local scope.
func (l *Locator) ForScope(ctx context.Context, scope Scope, name string) ([]Environment, error) {
	if scope == ScopeGlobal {
		return l.Global(ctx)
	}
	return l.Local(ctx, name)
}

// All returns local environments followed by global ones, preserving the
// deterministic per-scope ordering. Downstream conflict resolution depends on
// this order being stable.
func (l *Locator) All(ctx context.Context, name string) ([]Environment, error) {
	local, err := l.Local(ctx, name)
	if err != nil {
		return nil, err
	}
	global, err := l.Global(ctx)
	if err != nil {
		return nil, err
	}
	return append(local, global...), nil
}

func sortEnvironments(envs []Environment) {
	sort.Slice(envs, func(i, j int) bool {
		return envs[i].Name < envs[j].Name
	})
}
