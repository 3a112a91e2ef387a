package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/faughnn/factreel/internal/adapters"
	"github.com/faughnn/factreel/internal/cache"
	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/retry"
	"github.com/faughnn/factreel/internal/schema"
	"github.com/faughnn/factreel/internal/session"
	"github.com/faughnn/factreel/internal/twopass"
	"github.com/faughnn/factreel/internal/workspace"
	"github.com/faughnn/factreel/pkg/eta"
)

const defaultWorkerCount = 2

// runState carries the per-run collaborators every stage function needs,
// kept separate from Orchestrator (which is shared across runs) so nothing
// here outlives one Run call.
type runState struct {
	o              *Orchestrator
	source         string
	ws             *workspace.Workspace
	store          *cache.Store
	twoPass        *twopass.Controller
	rec            *session.Recorder
	opts           Options
	records        map[int]*model.StageRecord
	finalVideoPath string
}

func (r *runState) report(sessionID string) RunReport {
	records := make([]model.StageRecord, 0, stageCount)
	for n := 1; n <= stageCount; n++ {
		records = append(records, *r.records[n])
	}
	return RunReport{SessionID: sessionID, Stages: records, FinalVideoPath: r.finalVideoPath}
}

func (r *runState) retryPolicy(adapterName string) *retry.Policy {
	var logger *zerolog.Logger
	if r.o.logger != nil {
		l := r.o.logger.With().Str("adapter", adapterName).Logger()
		logger = &l
	}
	return retry.New(r.opts.Retry, retry.DefaultClassify, logger)
}

// ttsWorkerCount sizes stage 5's (TTS) worker pool from --concurrency /
// concurrency.tts_workers.
func (r *runState) ttsWorkerCount() int {
	if r.opts.MaxConcurrency > 0 {
		return r.opts.MaxConcurrency
	}
	return defaultWorkerCount
}

// clipWorkerCount sizes stage 6's (clipping) worker pool from
// --clip-concurrency / concurrency.clip_workers, independently of stage 5's
// TTS pool, since clip extraction and TTS synthesis put very different load
// on CPU/ffmpeg vs. network-bound API calls.
func (r *runState) clipWorkerCount() int {
	if r.opts.ClipConcurrency > 0 {
		return r.opts.ClipConcurrency
	}
	return defaultWorkerCount
}

const defaultMinFreeDiskGB = 5

func (r *runState) requiredFreeSpaceGB() int {
	if r.opts.MinFreeDiskGB > 0 {
		return r.opts.MinFreeDiskGB
	}
	return defaultMinFreeDiskGB
}

// runExtraction is Stage 1: downloader -> original_audio, original_video.
// Skippable iff both canonical media files already exist (raw media has no
// JSON schema to validate against; presence is the cache-hit signal).
func (r *runState) runExtraction(ctx context.Context) (cached bool, err error) {
	audioExists := r.ws.Exists(workspace.ArtifactOriginalAudio)
	videoExists := r.ws.Exists(workspace.ArtifactOriginalVideo)
	if audioExists && videoExists && !forcedStage(r.opts, StageExtraction) {
		return true, nil
	}

	destDir := r.ws.PathOf("Input")
	if err := workspace.RequireFreeSpace(destDir, r.requiredFreeSpaceGB(), r.o.logger); err != nil {
		return false, err
	}

	var audioPath, videoPath string
	rp := r.retryPolicy("downloader")
	err = rp.Do(ctx, func(ctx context.Context) error {
		a, v, e := r.o.deps.Downloader.Fetch(ctx, r.source, destDir)
		audioPath, videoPath = a, v
		return e
	})
	if err != nil {
		return false, err
	}

	if err := copyIntoWorkspace(r.ws, audioPath, workspace.ArtifactOriginalAudio); err != nil {
		return false, err
	}
	if videoPath != "" {
		if err := copyIntoWorkspace(r.ws, videoPath, workspace.ArtifactOriginalVideo); err != nil {
			return false, err
		}
	}
	return false, nil
}

// runTranscription is Stage 2: diarizer -> transcript.
func (r *runState) runTranscription(ctx context.Context) (model.Transcript, bool, error) {
	var cached model.Transcript
	if !forcedStage(r.opts, StageTranscription) {
		if ok, err := r.store.Get(workspace.ArtifactTranscript, schema.Transcript, &cached); err != nil {
			return model.Transcript{}, false, err
		} else if ok {
			return cached, true, nil
		}
	}

	audioPath := r.ws.PathOf(workspace.ArtifactOriginalAudio)
	var result *model.Transcript
	rp := r.retryPolicy("diarizer")
	err := rp.Do(ctx, func(ctx context.Context) error {
		t, e := r.o.deps.Diarizer.Diarize(ctx, audioPath)
		result = t
		return e
	})
	if err != nil {
		return model.Transcript{}, false, err
	}
	if err := r.store.PutValue(workspace.ArtifactTranscript, *result, schema.Transcript); err != nil {
		return model.Transcript{}, false, err
	}
	return *result, false, nil
}

// runPass1 is Stage 3, mapped straight onto C6.runPass1. The controller
// already does its own cache.Get; Exists is only consulted to report an
// honest Cached flag on the stage event.
func (r *runState) runPass1(ctx context.Context, transcript model.Transcript) (model.Pass1Analysis, bool, error) {
	wasCached := r.ws.Exists(workspace.ArtifactPass1Analysis) && !forcedStage(r.opts, StagePass1)
	if forcedStage(r.opts, StagePass1) {
		r.ws.InvalidateCachedArtifact(workspace.ArtifactPass1Analysis)
	}
	result, err := r.twoPass.RunPass1(ctx, r.ws, transcript)
	if err != nil {
		return model.Pass1Analysis{}, false, err
	}
	return result, wasCached, nil
}

// runNarrative is Stage 4, mapped onto C6.runFilterScriptVerify.
func (r *runState) runNarrative(ctx context.Context, pass1 model.Pass1Analysis) (model.VerifiedScript, bool, error) {
	wasCached := r.ws.Exists(workspace.ArtifactVerifiedScript) && !forcedStage(r.opts, StageNarrative)
	if forcedStage(r.opts, StageNarrative) {
		r.ws.InvalidateCachedArtifact(workspace.ArtifactPass2Filtered)
		r.ws.InvalidateCachedArtifact(workspace.ArtifactUnifiedScript)
		r.ws.InvalidateCachedArtifact(workspace.ArtifactVerifiedScript)
	}
	result, err := r.twoPass.RunFilterScriptVerify(ctx, r.ws, pass1)
	if err != nil {
		return model.VerifiedScript{}, false, err
	}
	return result, wasCached, nil
}

// runAudio is Stage 5: TTS over every non-clip section, bounded
// concurrency, item-level resumability (a section whose audio file already
// exists is skipped even mid-stage, satisfying §8's "partial TTS files
// exist for completed sections only; resume completes the rest").
func (r *runState) runAudio(ctx context.Context, verified model.VerifiedScript) error {
	var items []WorkItem
	for i, s := range verified.Sections {
		if s.IsClip() {
			continue
		}
		if !forcedStage(r.opts, StageAudio) && fileExists(r.ws.SectionAudioPath(s.SectionID)) {
			continue
		}
		items = append(items, WorkItem{Index: i, Value: s})
	}
	if len(items) == 0 {
		return nil
	}

	rp := r.retryPolicy("tts")
	task := func(ctx context.Context, item WorkItem) (interface{}, error) {
		section := item.Value.(model.Section)
		var audio []byte
		err := rp.Do(ctx, func(ctx context.Context) error {
			a, e := r.o.deps.TTS.Synthesize(ctx, section.ScriptContent, section.AudioTone)
			audio = a
			return e
		})
		if err != nil {
			return nil, err
		}
		audioPath := r.ws.SectionAudioPath(section.SectionID)
		if err := atomicWriteFile(audioPath, audio); err != nil {
			return nil, err
		}
		if err := adapters.TagNarrationLyrics(audioPath, section.ScriptContent); err != nil && r.o.logger != nil {
			r.o.logger.Warn().Err(err).Str("section", section.SectionID).Msg("failed to embed narration lyrics tag")
		}
		return section.SectionID, nil
	}

	calc := eta.NewSimpleETACalculator(int64(len(items)))
	onProgress := func(done, total int) {
		calc.TaskCompleted(int64(done))
		msg := fmt.Sprintf("%d/%d narration sections synthesized", done, total)
		if remaining := calc.CalculateETA(); remaining > 0 {
			msg += fmt.Sprintf(", eta %s", remaining.Round(time.Second))
		}
		r.rec.Progress(StageAudio, "", float64(done)/float64(total)*100, msg)
	}
	_, err := runWorkerPool(ctx, r.o.logger, r.ttsWorkerCount(), items, task, onProgress)
	return err
}

// runClipping is Stage 6: clipper over every video_clip section, bounded
// concurrency, same item-level resumability as Stage 5.
func (r *runState) runClipping(ctx context.Context, verified model.VerifiedScript) error {
	videoPath := r.ws.PathOf(workspace.ArtifactOriginalVideo)

	var items []WorkItem
	for i, s := range verified.Sections {
		if !s.IsClip() {
			continue
		}
		if !forcedStage(r.opts, StageClipping) && fileExists(r.ws.SectionVideoPath(s.SectionID)) {
			continue
		}
		items = append(items, WorkItem{Index: i, Value: s})
	}
	if len(items) == 0 {
		return nil
	}

	rp := r.retryPolicy("clipper")
	task := func(ctx context.Context, item WorkItem) (interface{}, error) {
		section := item.Value.(model.Section)
		outPath := r.ws.SectionVideoPath(section.SectionID)
		err := rp.Do(ctx, func(ctx context.Context) error {
			return r.o.deps.Clipper.Clip(ctx, videoPath, section.StartTime, section.EndTime, outPath)
		})
		if err != nil {
			return nil, err
		}
		return section.SectionID, nil
	}

	// ffmpeg clip durations vary far more than TTS call latency (source
	// resolution, codec, clip length all move the per-item cost), so
	// stage 6 uses the advanced calculator's rate-variability tracking
	// instead of the plain cross-multiplication estimate stage 5 uses.
	calc := eta.NewETACalculator(int64(len(items)))
	onProgress := func(done, total int) {
		calc.TaskCompleted(int64(done))
		msg := fmt.Sprintf("%d/%d clips cut", done, total)
		if remaining := calc.CalculateETA(); remaining > 0 {
			msg += fmt.Sprintf(", eta %s", remaining.Round(time.Second))
		}
		r.rec.Progress(StageClipping, "", float64(done)/float64(total)*100, msg)
	}
	_, err := runWorkerPool(ctx, r.o.logger, r.clipWorkerCount(), items, task, onProgress)
	return err
}

// runComposition is Stage 7: the compositor consumes sections strictly in
// verified-script order (§5's ordering guarantee), never completion order,
// because stages 5/6 wrote each section to its own section_id-keyed file
// regardless of which worker finished it.
func (r *runState) runComposition(ctx context.Context, verified model.VerifiedScript) (string, error) {
	outPath := r.ws.FinalVideoPath("mp4")
	if !forcedStage(r.opts, StageComposition) && fileExists(outPath) {
		return outPath, nil
	}

	segments := make([]adapters.ComposeSegment, 0, len(verified.Sections))
	for _, s := range verified.Sections {
		if s.IsClip() {
			segments = append(segments, adapters.ComposeSegment{SectionID: s.SectionID, Path: r.ws.SectionVideoPath(s.SectionID), IsVideo: true})
		} else {
			segments = append(segments, adapters.ComposeSegment{SectionID: s.SectionID, Path: r.ws.SectionAudioPath(s.SectionID), IsVideo: false})
		}
	}

	rp := r.retryPolicy("compositor")
	var result adapters.ComposeResult
	err := rp.Do(ctx, func(ctx context.Context) error {
		res, e := r.o.deps.Compositor.Compose(ctx, segments, outPath)
		result = res
		return e
	})
	if err != nil {
		return "", err
	}
	if r.o.logger != nil {
		r.o.logger.Info().Float64("duration_seconds", result.DurationSeconds).Int64("bytes", result.Bytes).Str("path", outPath).Msg("final video composed")
	}
	return outPath, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// atomicWriteFile writes data to an absolute path via temp-file + rename in
// the same directory, mirroring workspace.WriteAtomic's contract for
// binary stage-5/6 outputs that live outside the logical-artifact-name
// scheme (they're keyed by section_id, not by a fixed logical name).
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &core.IOError{Op: "create-temp", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
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
	if err := os.Rename(tmpPath, path); err != nil {
		return &core.IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// copyIntoWorkspace streams src into the workspace's canonical logicalName
// path, for the large media files Stage 1 produces (too big to round-trip
// through WriteAtomic's in-memory []byte contract).
func copyIntoWorkspace(ws *workspace.Workspace, src, logicalName string) error {
	dest := ws.PathOf(logicalName)
	if src == dest {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return &core.IOError{Op: "open", Path: src, Err: err}
	}
	defer in.Close()

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &core.IOError{Op: "create-temp", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return &core.IOError{Op: "copy", Path: tmpPath, Err: err}
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
	if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
		return &core.IOError{Op: "remove-source", Path: src, Err: err}
	}
	return nil
}
