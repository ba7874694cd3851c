package skills

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/pixi-skills/pkg/environments"
	"github.com/jingkaihe/pixi-skills/pkg/logger"
)

// Conflict records a cross-environment identifier collision. The winner is
// the skill from the environment earlier in scan order.
type Conflict struct {
	Name   string
	Winner Skill
	Loser  Skill
}

// Registry is the aggregate result of one scan. It is rebuilt from the
// filesystem on every invocation and never persisted.
type Registry struct {
	skills    map[string]*Skill
	conflicts []Conflict
	warnings  *multierror.Error
}

// Scan walks the skills directory of each environment in order and merges the
// results. Environments without a skills directory contribute nothing. When
// two environments provide the same identifier, the earlier environment wins;
// the collision is recorded as a conflict. Invalid manifests are skipped and
// surfaced as warnings. The merge is a strictly ordered sequential fold so
// the winning skill for a given input is always the same.
func Scan(ctx context.Context, envs []environments.Environment) *Registry {
	reg := &Registry{
		skills: make(map[string]*Skill),
	}

	for _, env := range envs {
		reg.scanEnvironment(ctx, env)
	}

	logger.G(ctx).WithField("skills", len(reg.skills)).Debug("skill scan complete")
	return reg
}

func (r *Registry) scanEnvironment(ctx context.Context, env environments.Environment) {
	skillsDir := env.SkillsDir()
	log := logger.G(ctx).WithField("env", env.Name)

	entries, err := os.ReadDir(skillsDir)
	if err != nil {
		// An environment without a skills directory contributes zero skills
		log.WithField("dir", skillsDir).Debug("no skills directory")
		return
	}

	for _, entry := range entries {
		entryPath := filepath.Join(skillsDir, entry.Name())

		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		skill, err := LoadSkill(entryPath, env)
		if err != nil {
			if errors.Is(err, ErrInvalidManifest) {
				log.WithError(err).WithField("dir", entryPath).Debug("skipping invalid skill directory")
				r.warnings = multierror.Append(r.warnings, errors.Wrapf(err, "skipping %s", entryPath))
			}
			continue
		}

		if existing, ok := r.skills[skill.Name]; ok {
			log.WithField("skill", skill.Name).WithField("winner", existing.Env.Name).Debug("skill name conflict")
			r.conflicts = append(r.conflicts, Conflict{
				Name:   skill.Name,
				Winner: *existing,
				Loser:  *skill,
			})
			continue
		}

		r.skills[skill.Name] = skill
	}
}

// Get returns the skill registered under the given identifier
func (r *Registry) Get(name string) (*Skill, bool) {
	skill, ok := r.skills[name]
	return skill, ok
}

// Names returns all registered identifiers in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Skills returns all registered skills sorted by identifier
func (r *Registry) Skills() []*Skill {
	result := make([]*Skill, 0, len(r.skills))
	for _, name := range r.Names() {
		result = append(result, r.skills[name])
	}
	return result
}

// Len returns the number of registered skills
func (r *Registry) Len() int {
	return len(r.skills)
}

// Conflicts returns the identifier collisions recorded during the scan
func (r *Registry) Conflicts() []Conflict {
	return r.conflicts
}

// Warnings returns non-fatal problems encountered during the scan, one per
// skipped skill directory.
func (r *Registry) Warnings() []error {
	if r.warnings == nil {
		return nil
	}
	return r.warnings.Errors
}
