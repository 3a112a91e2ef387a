// Package workspace implements the Episode Workspace (C1): a
// content-addressed, per-episode directory tree with atomic writes and a
// non-blocking lock guarding against concurrent runs against the same
// episode.
package workspace

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/faughnn/factreel/internal/core"
)

// Logical artifact names relative to the episode root, resolved by PathOf.
const (
	ArtifactOriginalAudio   = "Input/original_audio"
	ArtifactOriginalVideo   = "Input/original_video"
	ArtifactTranscript      = "Processing/transcript.json"
	ArtifactPass1Analysis   = "Processing/pass1_analysis.json"
	ArtifactPass2Filtered   = "Processing/pass2_filtered.json"
	ArtifactUnifiedScript   = "Processing/unified_script.json"
	ArtifactVerifiedScript  = "Processing/verified_script.json"
	lockFileName            = "lock"
)

// EpisodeRef is a normalized, filesystem-safe label identifying one
// episode. Producing one never touches disk (spec §4.1: "does not touch
// disk").
type EpisodeRef struct {
	Label string
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Locate normalizes a source reference (a remote URL or a local audio
// path) into a stable EpisodeRef. Remote sources derive the label from the
// URL host+path; local sources derive it from the file's basename,
// mirroring the teacher's AudioBasePath/OutputBasePath derivation from a
// subtitle basename, generalized to either a channel+title reference or a
// local file.
func Locate(source string) (EpisodeRef, error) {
	if source == "" {
		return EpisodeRef{}, &core.InputError{Detail: "empty source reference"}
	}

	var raw string
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		raw = u.Host + "_" + strings.Trim(u.Path, "/")
	} else {
		base := filepath.Base(source)
		raw = strings.TrimSuffix(base, filepath.Ext(base))
	}

	label := SanitizeForFileSystem(raw)
	label = nonAlnum.ReplaceAllString(label, "_")
	label = strings.Trim(label, "_")
	if label == "" {
		return EpisodeRef{}, &core.InputError{Detail: "source reference normalizes to an empty label: " + source}
	}
	return EpisodeRef{Label: label}, nil
}

// Workspace is a live handle onto one episode's directory tree, rooted at
// <contentRoot>/<episode label>.
type Workspace struct {
	Root string
	Ref  EpisodeRef
	lock *lockHandle
}

var skeleton = []string{
	"Input",
	"Processing",
	"Processing/sessions",
	"Output/Audio",
	"Output/Video",
	"Output/Final",
}

// Ensure creates the directory skeleton under contentRoot for ref if
// missing and returns a live Workspace handle. It does not acquire the
// episode lock; call Lock separately once the orchestrator is ready to
// run.
func Ensure(contentRoot string, ref EpisodeRef) (*Workspace, error) {
	root := filepath.Join(contentRoot, ref.Label)
	for _, dir := range skeleton {
		full := filepath.Join(root, dir)
		if err := os.MkdirAll(full, 0o755); err != nil {
			return nil, &core.IOError{Op: "mkdir", Path: full, Err: err}
		}
	}
	return &Workspace{Root: root, Ref: ref}, nil
}

// PathOf resolves a logical artifact name to an absolute path under the
// workspace root. All artifact paths resolve under the episode root (§3
// invariant) by construction: filepath.Join never escapes Root for a
// logicalName free of "..".
func (w *Workspace) PathOf(logicalName string) string {
	return filepath.Join(w.Root, filepath.FromSlash(logicalName))
}

// SectionAudioPath returns the narration output path for a non-clip
// section, named by section_id as §3 requires.
func (w *Workspace) SectionAudioPath(sectionID string) string {
	return w.PathOf(fmt.Sprintf("Output/Audio/%s.mp3", SanitizeForFileSystem(sectionID)))
}

// SectionVideoPath returns the clip output path for a video_clip section.
func (w *Workspace) SectionVideoPath(sectionID string) string {
	return w.PathOf(fmt.Sprintf("Output/Video/%s.mp4", SanitizeForFileSystem(sectionID)))
}

// FinalVideoPath returns the final composed video path.
func (w *Workspace) FinalVideoPath(ext string) string {
	return w.PathOf(fmt.Sprintf("Output/Final/%s_final.%s", w.Ref.Label, ext))
}

// DebugDumpPath returns a path under Processing/ for a pretty-printed
// stage debug dump, named by stage.
func (w *Workspace) DebugDumpPath(name string) string {
	return w.PathOf(fmt.Sprintf("Processing/%s.debug.json", name))
}

// SessionLogPath returns the NDJSON session log path for sessionID.
func (w *Workspace) SessionLogPath(sessionID string) string {
	return w.PathOf(fmt.Sprintf("Processing/sessions/%s.ndjson", sessionID))
}

// Stat describes the presence/age of a cached artifact, per §4.1's
// "report artifact presence, size, and mtime."
type Stat struct {
	Exists bool
	Size   int64
	Mtime  time.Time
}

// StatOf reports size/mtime for a logical artifact without validating its
// contents.
func (w *Workspace) StatOf(logicalName string) (Stat, error) {
	fi, err := os.Stat(w.PathOf(logicalName))
	if err != nil {
		if os.IsNotExist(err) {
			return Stat{}, nil
		}
		return Stat{}, &core.IOError{Op: "stat", Path: w.PathOf(logicalName), Err: err}
	}
	return Stat{Exists: true, Size: fi.Size(), Mtime: fi.ModTime()}, nil
}

// Exists reports whether a logical artifact is present, without
// validating its contents (schema validation is C2/C3's job).
func (w *Workspace) Exists(logicalName string) bool {
	st, err := w.StatOf(logicalName)
	return err == nil && st.Exists
}

// WriteAtomic writes bytes to logicalName via temp-file + fsync + rename
// in the same directory, so a reader never observes a partially written
// file (§4.1 rationale).
func (w *Workspace) WriteAtomic(logicalName string, data []byte) error {
	dest := w.PathOf(logicalName)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &core.IOError{Op: "create-temp", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &core.IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &core.IOError{Op: "fsync", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &core.IOError{Op: "close", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return &core.IOError{Op: "rename", Path: dest, Err: err}
	}
	return nil
}

// InvalidateCachedArtifact renames a failed-validation artifact to
// "<name>.invalid.<timestamp>" per C3's no-silent-repair policy, and
// returns the new path for logging.
func (w *Workspace) InvalidateCachedArtifact(logicalName string) (string, error) {
	src := w.PathOf(logicalName)
	dst := fmt.Sprintf("%s.invalid.%d", src, time.Now().UnixNano())
	if err := os.Rename(src, dst); err != nil {
		return "", &core.IOError{Op: "invalidate-rename", Path: src, Err: err}
	}
	return dst, nil
}
