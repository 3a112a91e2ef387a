package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/workspace"
)

// FFmpegCompositor stitches narration audio and video clips into the
// final output using ffmpeg's concat demuxer, the same shell-out style as
// the Clipper. Segments are concatenated whole; no timecodes are passed.
type FFmpegCompositor struct{}

// NewFFmpegCompositor returns the default Compositor implementation.
func NewFFmpegCompositor() *FFmpegCompositor { return &FFmpegCompositor{} }

func (c *FFmpegCompositor) Compose(ctx context.Context, segments []ComposeSegment, outPath string) (ComposeResult, error) {
	if len(segments) == 0 {
		return ComposeResult{}, &core.AdapterError{Adapter: "compositor", Kind: core.AdapterKindMalformed, Cause: fmt.Errorf("no segments to compose")}
	}

	listFile, err := os.CreateTemp("", "factreel-concat-*.txt")
	if err != nil {
		return ComposeResult{}, &core.AdapterError{Adapter: "compositor", Kind: core.AdapterKindUnavailable, Cause: err}
	}
	defer os.Remove(listFile.Name())

	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString("file '" + workspace.SanitizeForFFmpeg(seg.Path) + "'\n")
	}
	if _, err := listFile.WriteString(sb.String()); err != nil {
		listFile.Close()
		return ComposeResult{}, &core.AdapterError{Adapter: "compositor", Kind: core.AdapterKindUnavailable, Cause: err}
	}
	listFile.Close()

	args := []string{
		"-y", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listFile.Name(),
		"-c", "copy",
		outPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return ComposeResult{}, &core.AdapterError{Adapter: "compositor", Kind: core.AdapterKindFormat, Cause: err}
	}

	dur, err := probeDuration(ctx, outPath)
	if err != nil {
		dur = 0
	}
	fi, statErr := os.Stat(outPath)
	var size int64
	if statErr == nil {
		size = fi.Size()
	}
	return ComposeResult{DurationSeconds: dur, Bytes: size}, nil
}

// probeDuration shells ffprobe to read the final container duration,
// used only to populate ComposeResult.DurationSeconds for the run report.
func probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}
