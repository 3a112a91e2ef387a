package workspace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/faughnn/factreel/internal/workspace"
)

func TestSanitizeForFileSystemReplacesUnsafeCharacters(t *testing.T) {
	got := workspace.SanitizeForFileSystem(`a:b\c/d*e?f"g<h>i|j'k`)
	for _, bad := range []string{":", "\\", "/", "*", "?", "\"", "<", ">", "|", "'"} {
		assert.NotContains(t, got, bad)
	}
}

func TestSanitizeForFileSystemTrimsWhitespace(t *testing.T) {
	got := workspace.SanitizeForFileSystem("  spaced out  ")
	assert.Equal(t, "spaced out", got)
}

func TestSanitizeForFFmpegEscapesFilterGraphMetacharacters(t *testing.T) {
	got := workspace.SanitizeForFFmpeg(`path:with,special;chars[a]'quoted'\end`)
	assert.Contains(t, got, `\:`)
	assert.Contains(t, got, `\,`)
	assert.Contains(t, got, `\;`)
	assert.Contains(t, got, `\[`)
	assert.Contains(t, got, `\]`)
	assert.Contains(t, got, `\'`)
	assert.Contains(t, got, `\\`)
}
