// Package adapters defines the narrow External Adapter interfaces (C5) the
// core depends on — Downloader, Diarizer, LLM, TTS, Clipper, Compositor —
// plus one concrete implementation of each grounded in a real third-party
// client library. The core only ever depends on the interfaces in this
// file; concrete adapters are wired in by the caller (cmd/root.go) via
// dependency injection, so tests substitute fakes without touching the
// orchestrator or two-pass controller.
package adapters

import (
	"context"

	"github.com/faughnn/factreel/internal/model"
)

// Downloader resolves a source reference to local audio/video files.
type Downloader interface {
	Fetch(ctx context.Context, source, destDir string) (audioPath, videoPath string, err error)
}

// Diarizer turns an audio file into a timestamped, speaker-attributed
// transcript.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) (*model.Transcript, error)
}

// FileHandle is an opaque reference to content uploaded to the LLM
// provider, returned by LLM.UploadFile and released with LLM.DeleteFile.
type FileHandle struct {
	ID       string
	Provider string
}

// LLM is the narrow interface the Two-Pass Controller drives. Large
// inputs are passed by upload handle (Attachments), never inlined into
// the prompt, so oversized documents don't trip provider-side safety
// heuristics tuned for normal chat-sized inputs.
type LLM interface {
	UploadFile(ctx context.Context, path string) (FileHandle, error)
	DeleteFile(ctx context.Context, handle FileHandle) error
	Generate(ctx context.Context, prompt string, attachments []FileHandle) ([]byte, error)
}

// TTS synthesizes narration audio for one script section.
type TTS interface {
	Synthesize(ctx context.Context, text, tone string) ([]byte, error)
}

// Clipper cuts [start, end) out of a source video into outPath.
type Clipper interface {
	Clip(ctx context.Context, videoPath string, start, end float64, outPath string) error
}

// ComposeSegment is one ordered element the Compositor concatenates: a
// narration audio file or a video clip file, in final-output order.
type ComposeSegment struct {
	SectionID string
	Path      string
	IsVideo   bool
}

// ComposeResult reports what the Compositor produced.
type ComposeResult struct {
	DurationSeconds float64
	Bytes           int64
}

// Compositor stitches the verified-script-ordered segments into the final
// video.
type Compositor interface {
	Compose(ctx context.Context, segments []ComposeSegment, outPath string) (ComposeResult, error)
}
