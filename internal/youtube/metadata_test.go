package youtube

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMetadataMarkdownFrontMatter(t *testing.T) {
	path := writeFile(t, "video.md", `---
title: Go channels explained
tags: go, concurrency , ,channels
category: 27
privacy: unlisted
thumbnail: thumb.png
---

First line of the description.

Second paragraph.
`)
	meta, err := ReadMetadataFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Go channels explained", meta.Title)
	assert.Equal(t, TagList{"go", "concurrency", "channels"}, meta.Tags)
	assert.True(t, meta.HasTags())
	assert.Equal(t, "27", meta.Category)
	assert.Equal(t, "unlisted", meta.Privacy)
	assert.Equal(t, "thumb.png", meta.Thumbnail)
	assert.Equal(t, "First line of the description.\n\nSecond paragraph.", meta.Description)
}

func TestReadMetadataMarkdownWithoutFrontMatter(t *testing.T) {
	meta, err := ReadMetadataFile(writeFile(t, "notes.md", "\n  Just a description.\n"))
	require.NoError(t, err)
	assert.Equal(t, Metadata{Description: "Just a description."}, meta)
	assert.False(t, meta.HasTags())
}

func TestReadMetadataYAML(t *testing.T) {
	meta, err := ReadMetadataFile(writeFile(t, "video.yaml", `
title: Rate limiting in Go
description: |
  Token buckets with x/time/rate.
tags:
  - go
  - rate limiting
`))
	require.NoError(t, err)
	assert.Equal(t, "Rate limiting in Go", meta.Title)
	assert.Equal(t, "Token buckets with x/time/rate.\n", meta.Description)
	assert.Equal(t, TagList{"go", "rate limiting"}, meta.Tags)
	assert.True(t, meta.HasTags())
	assert.Empty(t, meta.Category)
}

func TestReadMetadataErrors(t *testing.T) {
	_, err := ReadMetadataFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata file not found: ")

	_, err = ReadMetadataFile(writeFile(t, "bad.yaml", "title: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse metadata: ")
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, SplitTags(" a ,, b c ,"))
	assert.Nil(t, SplitTags(""))
}
