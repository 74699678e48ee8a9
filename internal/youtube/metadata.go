package youtube

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var frontMatter = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n(.*)$`)

// Metadata describes a video for upload or update. Empty fields are unset.
type Metadata struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Tags        TagList `yaml:"-"`
	Category    string  `yaml:"category"`
	Privacy     string  `yaml:"privacy"`
	Thumbnail   string  `yaml:"thumbnail"`

	hasTags bool
}

// HasTags reports whether the metadata file listed tags.
func (m Metadata) HasTags() bool {
	return m.hasTags
}

// TagList accepts a YAML sequence or a comma separated string.
type TagList []string

func (t *TagList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*t = SplitTags(value.Value)
		return nil
	}
	var tags []string
	if err := value.Decode(&tags); err != nil {
		return err
	}
	*t = tags
	return nil
}

// SplitTags splits a comma separated tag list, dropping blanks.
func SplitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ReadMetadataFile loads video metadata from a YAML file, or from a
// Markdown file whose YAML front matter holds the fields and whose body is
// the description.
func ReadMetadataFile(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, fmt.Errorf("metadata file not found: %s", path)
		}
		return Metadata{}, err
	}
	if strings.EqualFold(filepath.Ext(path), ".md") {
		return parseMarkdownMetadata(string(data)), nil
	}
	return parseYAMLMetadata(data)
}

func parseMarkdownMetadata(content string) Metadata {
	m := frontMatter.FindStringSubmatch(content)
	if m == nil {
		return Metadata{Description: strings.TrimSpace(content)}
	}
	meta, err := parseYAMLMetadata([]byte(m[1]))
	if err != nil {
		meta = Metadata{}
	}
	meta.Description = strings.TrimSpace(m[2])
	return meta
}

func parseYAMLMetadata(data []byte) (Metadata, error) {
	var raw struct {
		Meta Metadata `yaml:",inline"`
		Tags *TagList `yaml:"tags"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	meta := raw.Meta
	if raw.Tags != nil {
		meta.Tags = *raw.Tags
		meta.hasTags = true
	}
	return meta, nil
}
