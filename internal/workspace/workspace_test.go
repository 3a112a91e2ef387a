package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/workspace"
)

func TestLocateEmptySourceIsInputError(t *testing.T) {
	_, err := workspace.Locate("")
	require.Error(t, err)
	assert.IsType(t, &core.InputError{}, err)
}

func TestLocateRemoteURLDerivesLabelFromHostAndPath(t *testing.T) {
	ref, err := workspace.Locate("https://example.com/channel/My Episode!")
	require.NoError(t, err)
	assert.NotEmpty(t, ref.Label)
	assert.NotContains(t, ref.Label, "/")
	assert.NotContains(t, ref.Label, " ")
	assert.NotContains(t, ref.Label, "!")
}

func TestLocateLocalPathDerivesLabelFromBasename(t *testing.T) {
	ref, err := workspace.Locate("/audio/My Interview (Part 1).mp3")
	require.NoError(t, err)
	assert.Equal(t, "My_Interview_Part_1", ref.Label)
}

func TestLocateIsStableForTheSameSource(t *testing.T) {
	a, err := workspace.Locate("https://example.com/show/ep1")
	require.NoError(t, err)
	b, err := workspace.Locate("https://example.com/show/ep1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEnsureCreatesSkeletonDirectories(t *testing.T) {
	root := t.TempDir()
	ws, err := workspace.Ensure(root, workspace.EpisodeRef{Label: "ep1"})
	require.NoError(t, err)

	for _, dir := range []string{"Input", "Processing", "Processing/sessions", "Output/Audio", "Output/Video", "Output/Final"} {
		info, statErr := os.Stat(filepath.Join(ws.Root, dir))
		require.NoError(t, statErr, "expected %s to exist", dir)
		assert.True(t, info.IsDir())
	}
}

func TestPathOfNeverEscapesRoot(t *testing.T) {
	ws, err := workspace.Ensure(t.TempDir(), workspace.EpisodeRef{Label: "ep1"})
	require.NoError(t, err)
	p := ws.PathOf(workspace.ArtifactTranscript)
	assert.True(t, filepath.IsAbs(p))
	rel, err := filepath.Rel(ws.Root, p)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(rel))
	assert.NotContains(t, rel, "..")
}

func TestWriteAtomicThenExistsAndStatOf(t *testing.T) {
	ws, err := workspace.Ensure(t.TempDir(), workspace.EpisodeRef{Label: "ep1"})
	require.NoError(t, err)

	assert.False(t, ws.Exists(workspace.ArtifactTranscript))

	require.NoError(t, ws.WriteAtomic(workspace.ArtifactTranscript, []byte(`{"total_segments":0,"segments":[]}`)))

	assert.True(t, ws.Exists(workspace.ArtifactTranscript))
	st, err := ws.StatOf(workspace.ArtifactTranscript)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.Greater(t, st.Size, int64(0))
}

func TestWriteAtomicLeavesNoTempFileBehind(t *testing.T) {
	ws, err := workspace.Ensure(t.TempDir(), workspace.EpisodeRef{Label: "ep1"})
	require.NoError(t, err)
	require.NoError(t, ws.WriteAtomic(workspace.ArtifactTranscript, []byte(`{}`)))

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(ws.PathOf(workspace.ArtifactTranscript)), ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "WriteAtomic should rename its temp file away, not leave it behind")
}

func TestInvalidateCachedArtifactRenamesAside(t *testing.T) {
	ws, err := workspace.Ensure(t.TempDir(), workspace.EpisodeRef{Label: "ep1"})
	require.NoError(t, err)
	require.NoError(t, ws.WriteAtomic(workspace.ArtifactTranscript, []byte(`{}`)))

	newPath, err := ws.InvalidateCachedArtifact(workspace.ArtifactTranscript)
	require.NoError(t, err)

	assert.False(t, ws.Exists(workspace.ArtifactTranscript))
	_, statErr := os.Stat(newPath)
	assert.NoError(t, statErr)
	assert.Contains(t, newPath, ".invalid.")
}

func TestSectionAndFinalVideoPathsAreSanitized(t *testing.T) {
	ws, err := workspace.Ensure(t.TempDir(), workspace.EpisodeRef{Label: "ep1"})
	require.NoError(t, err)

	audioPath := ws.SectionAudioPath("intro: the start")
	assert.NotContains(t, filepath.Base(audioPath), ":")

	finalPath := ws.FinalVideoPath("mp4")
	assert.Contains(t, finalPath, "ep1_final.mp4")
}

func TestSessionLogPathUnderProcessingSessions(t *testing.T) {
	ws, err := workspace.Ensure(t.TempDir(), workspace.EpisodeRef{Label: "ep1"})
	require.NoError(t, err)
	p := ws.SessionLogPath("20260731-abc123")
	assert.Contains(t, p, filepath.Join("Processing", "sessions"))
	assert.Contains(t, p, "20260731-abc123.ndjson")
}
