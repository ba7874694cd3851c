// Package backends holds the static registry of coding-agent backends and the
// skills directories each one reads. The registry is compiled in and
// immutable; resolving a directory performs no I/O.
package backends

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/jingkaihe/pixi-skills/pkg/environments"
)

// ErrUnknownBackend is returned when a backend identifier is not registered
var ErrUnknownBackend = errors.New("unknown backend")

// Backend maps a coding-agent tool to its skills directories. Local
// directories are relative to the project root; global directories are
// relative to the user's home directory.
type Backend struct {
	ID        string
	LocalDir  string
	GlobalDir string
}

// SkillsDir resolves the concrete skills directory for the given scope,
// substituting the caller's project root or home directory.
func (b Backend) SkillsDir(scope environments.Scope, projectRoot, homeDir string) string {
	if scope == environments.ScopeGlobal {
		return filepath.Join(homeDir, filepath.FromSlash(b.GlobalDir))
	}
	return filepath.Join(projectRoot, filepath.FromSlash(b.LocalDir))
}

// registry is ordered by backend ID so enumeration is deterministic
var registry = []Backend{
	{ID: "claude", LocalDir: ".claude/skills", GlobalDir: ".claude/skills"},
	{ID: "codex", LocalDir: ".codex/skills", GlobalDir: ".codex/skills"},
	{ID: "copilot", LocalDir: ".github/skills", GlobalDir: ".github/skills"},
	{ID: "crush", LocalDir: ".crush/skills", GlobalDir: ".crush/skills"},
	{ID: "cursor", LocalDir: ".cursor/skills", GlobalDir: ".cursor/skills"},
	{ID: "gemini", LocalDir: ".gemini/skills", GlobalDir: ".gemini/skills"},
	{ID: "opencode", LocalDir: ".opencode/skills", GlobalDir: ".opencode/skills"},
}

// Get returns the backend registered under the given identifier
func Get(id string) (Backend, error) {
	for _, b := range registry {
		if b.ID == id {
			return b, nil
		}
	}
	return Backend{}, errors.Wrapf(ErrUnknownBackend, "%q", id)
}

// All returns every registered backend in ID order
func All() []Backend {
	result := make([]Backend, len(registry))
	copy(result, registry)
	return result
}

// IDs returns every registered backend identifier in order
func IDs() []string {
	ids := make([]string, len(registry))
	for i, b := range registry {
		ids[i] = b.ID
	}
	return ids
}
