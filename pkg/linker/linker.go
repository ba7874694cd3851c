// Package linker reconciles desired skill state against a backend's skills
// directory using relative symlinks. Every entry it manages is a symlink
// resolving into a known skill's source directory; anything else is foreign
// and is never deleted or overwritten. Batches are processed item by item and
// report per-item outcomes rather than aborting on first error.
package linker

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/pixi-skills/pkg/logger"
	"github.com/jingkaihe/pixi-skills/pkg/skills"
)

// Status is the per-item outcome of a reconciliation step
type Status string

const (
	// StatusInstalled means a new symlink was created
	StatusInstalled Status = "installed"
	// StatusRemoved means a managed symlink was deleted
	StatusRemoved Status = "removed"
	// StatusNoop means the desired state already held (link already correct,
	// or nothing to remove)
	StatusNoop Status = "no-op"
	// StatusConflict means the entry name is taken by foreign content
	StatusConflict Status = "conflict"
	// StatusNotManaged means the entry is not a symlink into the skill's
	// source and was left untouched
	StatusNotManaged Status = "not-managed"
	// StatusFailed means an unexpected filesystem error occurred
	StatusFailed Status = "failed"
)

// Outcome reports the result of reconciling a single skill
type Outcome struct {
	Name   string
	Status Status
	Link   string
	Err    error
}

// Failed reports whether the item did not reach its desired state
func (o Outcome) Failed() bool {
	return o.Status == StatusConflict || o.Status == StatusNotManaged || o.Status == StatusFailed
}

// Reconciler applies install and uninstall batches against one target
// directory.
type Reconciler struct {
	dir string
}

// New creates a Reconciler for the given target directory
func New(dir string) *Reconciler {
	return &Reconciler{dir: dir}
}

// Dir returns the target directory being reconciled
func (r *Reconciler) Dir() string {
	return r.dir
}

// Install creates a relative symlink for each desired skill, named by its
// identifier. An entry that already links to the skill's source is a no-op.
// An entry occupied by anything else is a per-item conflict and is left
// untouched. The target directory is created with parents first; failure to
// create it fails the whole batch.
func (r *Reconciler) Install(ctx context.Context, desired []*skills.Skill) ([]Outcome, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", r.dir)
	}

	outcomes := make([]Outcome, 0, len(desired))
	for _, skill := range desired {
		outcome := r.installOne(skill)
		logOutcome(ctx, outcome)
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (r *Reconciler) installOne(skill *skills.Skill) Outcome {
	linkPath := filepath.Join(r.dir, skill.Name)
	outcome := Outcome{Name: skill.Name, Link: linkPath}

	info, err := os.Lstat(linkPath)
	switch {
	case err == nil:
		if info.Mode()&os.ModeSymlink != 0 {
			resolved, rerr := resolveLink(linkPath)
			if rerr == nil && sameDir(resolved, skill.Path) {
				outcome.Status = StatusNoop
				return outcome
			}
		}
		outcome.Status = StatusConflict
		outcome.Err = errors.Errorf("%s already exists and does not link to %s", linkPath, skill.Path)
		return outcome
	case !os.IsNotExist(err):
		outcome.Status = StatusFailed
		outcome.Err = errors.Wrapf(err, "failed to stat %s", linkPath)
		return outcome
	}

	// Link relatively so the tree stays valid if moved or copied
	target, err := relativeTarget(r.dir, skill.Path)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = errors.Wrapf(err, "failed to compute link target for %s", skill.Path)
		return outcome
	}

	if err := os.Symlink(target, linkPath); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = errors.Wrapf(err, "failed to link %s", linkPath)
		return outcome
	}

	outcome.Status = StatusInstalled
	return outcome
}

// Uninstall removes the entry for each named skill, but only when it is a
// symlink resolving under that skill's source directory. Foreign entries and
// symlinks into unrelated paths fail that item with not-managed and are left
// untouched. An absent entry is a no-op.
func (r *Reconciler) Uninstall(ctx context.Context, unwanted []*skills.Skill) []Outcome {
	outcomes := make([]Outcome, 0, len(unwanted))
	for _, skill := range unwanted {
		outcome := r.uninstallOne(skill)
		logOutcome(ctx, outcome)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (r *Reconciler) uninstallOne(skill *skills.Skill) Outcome {
	linkPath := filepath.Join(r.dir, skill.Name)
	outcome := Outcome{Name: skill.Name, Link: linkPath}

	info, err := os.Lstat(linkPath)
	switch {
	case os.IsNotExist(err):
		outcome.Status = StatusNoop
		return outcome
	case err != nil:
		outcome.Status = StatusFailed
		outcome.Err = errors.Wrapf(err, "failed to stat %s", linkPath)
		return outcome
	}

	if info.Mode()&os.ModeSymlink == 0 {
		outcome.Status = StatusNotManaged
		outcome.Err = errors.Errorf("%s is not a symlink", linkPath)
		return outcome
	}

	resolved, err := resolveLink(linkPath)
	if err != nil {
		// Broken link: fall back to the lexical target so a managed link
		// whose source vanished can still be cleaned up
		resolved = lexicalTarget(linkPath)
	}

	if !within(resolved, skill.Path) {
		outcome.Status = StatusNotManaged
		outcome.Err = errors.Errorf("%s resolves outside %s", linkPath, skill.Path)
		return outcome
	}

	if err := os.Remove(linkPath); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = errors.Wrapf(err, "failed to remove %s", linkPath)
		return outcome
	}

	outcome.Status = StatusRemoved
	return outcome
}

func logOutcome(ctx context.Context, outcome Outcome) {
	log := logger.G(ctx).WithField("skill", outcome.Name).WithField("status", string(outcome.Status))
	if outcome.Err != nil {
		log = log.WithError(outcome.Err)
	}
	log.Debug("reconciled skill link")
}

// relativeTarget computes the symlink target relative to the link's directory.
// Both sides are absolutized first so a relative target dir and an absolute
// skill path still yield a relative link.
func relativeTarget(dir, skillPath string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(skillPath)
	if err != nil {
		return "", err
	}
	return filepath.Rel(absDir, absPath)
}

// resolveLink fully resolves a symlink to a canonical path
func resolveLink(linkPath string) (string, error) {
	return filepath.EvalSymlinks(linkPath)
}

// lexicalTarget returns the link's target joined against the link's parent
// directory without touching the filesystem beyond readlink.
func lexicalTarget(linkPath string) string {
	target, err := os.Readlink(linkPath)
	if err != nil {
		return ""
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(linkPath), target)
	}
	return filepath.Clean(target)
}

// sameDir reports whether two paths refer to the same directory once symlinks
// are resolved.
func sameDir(resolved, skillPath string) bool {
	canonical, err := filepath.EvalSymlinks(skillPath)
	if err != nil {
		canonical = filepath.Clean(skillPath)
	}
	return resolved == canonical
}

// within reports whether path lies at or under root, comparing canonical
// forms when available.
func within(path, root string) bool {
	if path == "" {
		return false
	}
	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		canonical = filepath.Clean(root)
	}
	if path == canonical {
		return true
	}
	return strings.HasPrefix(path, canonical+string(filepath.Separator))
}
