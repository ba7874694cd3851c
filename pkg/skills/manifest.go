package skills

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/jingkaihe/pixi-skills/pkg/environments"
)

// ManifestFileName is the manifest file that qualifies a directory as a skill
const ManifestFileName = "SKILL.md"

// ErrInvalidManifest is returned when a candidate directory has no usable
// manifest. Scans skip such directories without aborting.
var ErrInvalidManifest = errors.New("invalid skill manifest")

// LoadSkill loads a skill from a directory containing SKILL.md. The manifest
// must carry a non-empty description in its frontmatter; a missing name
// defaults to the directory's base name. The markdown body is opaque payload
// and is not retained.
func LoadSkill(dir string, env environments.Environment) (*Skill, error) {
	manifestPath := filepath.Join(dir, ManifestFileName)

	content, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrInvalidManifest, "no %s in %s", ManifestFileName, dir)
		}
		return nil, errors.Wrapf(err, "failed to read %s", manifestPath)
	}

	metadata, err := parseFrontmatter(content)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidManifest, "%s: %v", manifestPath, err)
	}

	if metadata.Description == "" {
		return nil, errors.Wrapf(ErrInvalidManifest, "%s: missing or empty 'description' in frontmatter", manifestPath)
	}

	name := metadata.Name
	if name == "" {
		name = filepath.Base(dir)
	}
	// The identifier becomes a directory entry name, so it must not traverse
	if err := validateName(name); err != nil {
		return nil, errors.Wrapf(ErrInvalidManifest, "%s: %v", manifestPath, err)
	}

	return &Skill{
		Name:        name,
		Description: metadata.Description,
		Path:        dir,
		Env:         env,
	}, nil
}

// validateName rejects identifiers that would escape the directory they are
// linked into.
func validateName(name string) error {
	if name == "." || name == ".." {
		return errors.Errorf("invalid skill name %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return errors.Errorf("skill name %q must not contain path separators", name)
	}
	return nil
}

// parseFrontmatter extracts the YAML frontmatter from SKILL.md content
func parseFrontmatter(content []byte) (*Metadata, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	return &Metadata{
		Name:        name,
		Description: description,
	}, nil
}
