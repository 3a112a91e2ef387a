package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/faughnn/factreel/internal/core"
)

// ffmpegPosition formats a duration as the fractional-seconds timecode
// ffmpeg's -ss/-to flags accept, the same helper pkg/media's ffmpeg
// wrapper used for subtitle-aligned audio/image extraction, generalized
// here for clip and composition cuts.
func ffmpegPosition(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%d.%03d", s, ms)
}

// pathPosition formats a duration as a filesystem-safe timecode
// (e.g. "01h01m01s200ms"); it is not an ffmpeg argument format.
func pathPosition(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02dh%02dm%02ds%03dms", h, m, s, ms)
}

// runFFmpeg shells out to ffmpeg with the given arguments, always
// prepending -y -loglevel error, exactly as pkg/media's ffmpeg() helper did.
func runFFmpeg(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, "ffmpeg", full...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return &core.AdapterError{Adapter: "clipper", Kind: core.AdapterKindTimeout, Cause: ctx.Err()}
		}
		return &core.AdapterError{Adapter: "clipper", Kind: core.AdapterKindFormat, Cause: fmt.Errorf("ffmpeg %v: %w", args, err)}
	}
	return nil
}
