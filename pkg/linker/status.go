package linker

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/jingkaihe/pixi-skills/pkg/logger"
	"github.com/jingkaihe/pixi-skills/pkg/skills"
)

// Class categorizes a target-directory entry relative to known skill sources
type Class string

const (
	// ClassManaged means the entry is a symlink resolving into a known
	// skill's source directory
	ClassManaged Class = "managed"
	// ClassBroken means the entry is a symlink whose target is missing
	ClassBroken Class = "broken"
	// ClassForeign means the entry is not a symlink, or resolves outside all
	// known skill sources
	ClassForeign Class = "foreign"
)

// InstalledLink is an observed entry in a backend's skills directory. It is
// derived from the filesystem on each inspection, never stored.
type InstalledLink struct {
	Name   string
	Target string
	Class  Class
	Skill  *skills.Skill // set when managed
}

// Inspect lists and classifies every entry of a target directory against the
// known skill registry. It is read-only; a missing directory yields an empty
// result. Entries come back in name order.
func Inspect(ctx context.Context, dir string, reg *skills.Registry) ([]InstalledLink, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.G(ctx).WithField("dir", dir).Debug("skills directory absent")
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", dir)
	}

	var links []InstalledLink
	for _, entry := range entries {
		links = append(links, classify(dir, entry.Name(), reg))
	}
	logger.G(ctx).WithField("dir", dir).WithField("entries", len(links)).Debug("inspected skills directory")
	return links, nil
}

func classify(dir, name string, reg *skills.Registry) InstalledLink {
	linkPath := filepath.Join(dir, name)
	link := InstalledLink{Name: name}

	info, err := os.Lstat(linkPath)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		link.Class = ClassForeign
		return link
	}

	resolved, err := resolveLink(linkPath)
	if err != nil {
		link.Class = ClassBroken
		link.Target = lexicalTarget(linkPath)
		return link
	}

	link.Target = resolved
	for _, skill := range reg.Skills() {
		if within(resolved, skill.Path) {
			link.Class = ClassManaged
			link.Skill = skill
			return link
		}
	}

	link.Class = ClassForeign
	return link
}

// Installed returns the names of managed links in the directory, for
// pre-selecting the interactive picker.
func Installed(ctx context.Context, dir string, reg *skills.Registry) (map[string]bool, error) {
	links, err := Inspect(ctx, dir, reg)
	if err != nil {
		return nil, err
	}

	installed := make(map[string]bool)
	for _, link := range links {
		if link.Class == ClassManaged {
			installed[link.Name] = true
		}
	}
	return installed, nil
}
