package adapters

import (
	"context"
	"os"

	"github.com/faughnn/factreel/internal/core"
)

// FFmpegClipper cuts [start, end) out of a source video via a direct
// ffmpeg shell-out, grounded in pkg/media/ffmpeg.go's
// ffmpegExtractAudio/ffmpegExtractImage: -ss/-to placed *before* -i for
// accurate, re-encode-free seeks.
type FFmpegClipper struct{}

// NewFFmpegClipper returns the default Clipper implementation.
func NewFFmpegClipper() *FFmpegClipper { return &FFmpegClipper{} }

func (c *FFmpegClipper) Clip(ctx context.Context, videoPath string, start, end float64, outPath string) error {
	if _, err := os.Stat(videoPath); err != nil {
		return &core.AdapterError{Adapter: "clipper", Kind: core.AdapterKindNotFound, Cause: err}
	}
	args := []string{
		"-ss", ffmpegPosition(start),
		"-to", ffmpegPosition(end),
		"-i", videoPath,
		"-c", "copy",
		outPath,
	}
	if err := runFFmpeg(ctx, args...); err != nil {
		return err
	}
	return nil
}
