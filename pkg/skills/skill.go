// Package skills parses agent-skill manifests and aggregates skills
// discovered across pixi environments. Skills are packaged as directories
// containing a SKILL.md file with YAML frontmatter describing the skill's
// purpose; the body is free-form instructional text that is never
// interpreted here.
package skills

import (
	"github.com/jingkaihe/pixi-skills/pkg/environments"
)

// Skill represents a discovered skill with its metadata
type Skill struct {
	Name        string                   // Unique identifier within a scan
	Description string                   // Required, from frontmatter
	Path        string                   // Full path to the skill directory
	Env         environments.Environment // Environment the skill came from
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}
