// Package fakes provides narrow-interface test doubles for every
// internal/adapters interface, the same style the teacher fakes
// core.TaskInterface/MessageHandler in internal/core/test_helpers.go — no
// mocking framework, just a struct implementing the interface with
// scriptable behavior.
package fakes

import (
	"context"
	"fmt"

	"github.com/faughnn/factreel/internal/adapters"
	"github.com/faughnn/factreel/internal/model"
)

// Downloader returns fixed paths, or Err on every call when Err is set.
type Downloader struct {
	AudioPath, VideoPath string
	Err                  error
	Calls                int
}

func (d *Downloader) Fetch(ctx context.Context, source, destDir string) (string, string, error) {
	d.Calls++
	if d.Err != nil {
		return "", "", d.Err
	}
	return d.AudioPath, d.VideoPath, nil
}

// Diarizer returns a fixed transcript.
type Diarizer struct {
	Transcript *model.Transcript
	Err        error
	Calls      int
}

func (d *Diarizer) Diarize(ctx context.Context, audioPath string) (*model.Transcript, error) {
	d.Calls++
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Transcript, nil
}

// LLM returns scripted responses in call order, keyed loosely by call
// index so a recorded fixture can drive pass-1/pass-2/script/verify in
// sequence deterministically (spec §8 round-trip tests require
// deterministic adapter fakes).
type LLM struct {
	Responses [][]byte
	calls     int
	Uploads   int
	Deletes   int
	UploadErr error
	GenErr    error
}

func (l *LLM) UploadFile(ctx context.Context, path string) (adapters.FileHandle, error) {
	l.Uploads++
	if l.UploadErr != nil {
		return adapters.FileHandle{}, l.UploadErr
	}
	return adapters.FileHandle{ID: fmt.Sprintf("fake-upload-%d", l.Uploads), Provider: "fake"}, nil
}

func (l *LLM) DeleteFile(ctx context.Context, handle adapters.FileHandle) error {
	l.Deletes++
	return nil
}

func (l *LLM) Generate(ctx context.Context, prompt string, attachments []adapters.FileHandle) ([]byte, error) {
	if l.GenErr != nil {
		return nil, l.GenErr
	}
	if l.calls >= len(l.Responses) {
		return nil, fmt.Errorf("fake LLM: no scripted response for call %d", l.calls)
	}
	resp := l.Responses[l.calls]
	l.calls++
	return resp, nil
}

// TTS returns a fixed byte payload per call.
type TTS struct {
	Audio []byte
	Err   error
	Calls int
}

func (t *TTS) Synthesize(ctx context.Context, text, tone string) ([]byte, error) {
	t.Calls++
	if t.Err != nil {
		return nil, t.Err
	}
	return t.Audio, nil
}

// Clipper records clip requests without touching the filesystem.
type Clipper struct {
	Err   error
	Calls int
}

func (c *Clipper) Clip(ctx context.Context, videoPath string, start, end float64, outPath string) error {
	c.Calls++
	return c.Err
}

// Compositor returns a fixed result.
type Compositor struct {
	Result adapters.ComposeResult
	Err    error
	Calls  int
}

func (c *Compositor) Compose(ctx context.Context, segments []adapters.ComposeSegment, outPath string) (adapters.ComposeResult, error) {
	c.Calls++
	if c.Err != nil {
		return adapters.ComposeResult{}, c.Err
	}
	return c.Result, nil
}
