package orchestrator_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faughnn/factreel/internal/adapters"
	"github.com/faughnn/factreel/internal/adapters/fakes"
	"github.com/faughnn/factreel/internal/cache"
	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/orchestrator"
	"github.com/faughnn/factreel/internal/retry"
	"github.com/faughnn/factreel/internal/twopass"
	"github.com/faughnn/factreel/internal/workspace"
)

func writeTempMedia(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("fake-media-bytes"), 0o644))
	return path
}

func marshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// scriptedLLM builds the four in-order responses RunPass1 +
// RunFilterScriptVerify need to clear every stage-3/4 sub-stage on the
// first attempt: pass-1 analysis, pass-2 scoring, script generation, and
// rebuttal verification.
func scriptedLLM(t *testing.T) *fakes.LLM {
	segment := model.Pass1Segment{SegmentID: "seg1", Title: "claim", Severity: "HIGH", HarmCategory: "misinfo", Context: "c"}
	pass1Resp := model.Pass1Analysis{Segments: []model.Pass1Segment{segment}}

	pass2Resp := struct {
		Segments []model.Pass2Segment `json:"segments"`
	}{Segments: []model.Pass2Segment{{
		Pass1Segment: segment,
		Scores:       model.SubScores{QuoteStrength: 9, FactualAccuracy: 9, PotentialImpact: 9, Specificity: 9, ContextAppropriateness: 9},
	}}}

	unifiedResp := model.UnifiedScript{Sections: []model.Section{
		{SectionID: "intro", Kind: model.SectionIntro, ScriptContent: "welcome", AudioTone: "neutral"},
		{SectionID: "pre-1", Kind: model.SectionPreClip, ClipID: "seg1", ScriptContent: "before the clip", AudioTone: "neutral"},
		{SectionID: "seg1", Kind: model.SectionVideoClip, ClipID: "seg1", StartTime: 1, EndTime: 2},
		{SectionID: "post-1", Kind: model.SectionPostClip, ClipID: "seg1", ScriptContent: "after the clip", AudioTone: "neutral"},
		{SectionID: "outro", Kind: model.SectionOutro, ScriptContent: "goodbye", AudioTone: "neutral"},
	}}

	rewriteResp := struct {
		Rewrites []struct {
			SectionID     string `json:"section_id"`
			ScriptContent string `json:"script_content"`
		} `json:"rewrites"`
	}{}

	return &fakes.LLM{Responses: [][]byte{
		marshal(t, pass1Resp),
		marshal(t, pass2Resp),
		marshal(t, unifiedResp),
		marshal(t, rewriteResp),
	}}
}

func testDeps(llm *fakes.LLM, downloader *fakes.Downloader, diarizer *fakes.Diarizer, tts *fakes.TTS, clipper *fakes.Clipper, compositor *fakes.Compositor) orchestrator.Deps {
	return orchestrator.Deps{
		Downloader: downloader,
		Diarizer:   diarizer,
		TTS:        tts,
		Clipper:    clipper,
		Compositor: compositor,
		TwoPass: func(store *cache.Store) *twopass.Controller {
			return twopass.New(llm, store, twopass.Config{Filter: twopass.DefaultFilterConfig()}, nil)
		},
	}
}

func testOptions() orchestrator.Options {
	return orchestrator.Options{
		MaxConcurrency: 2,
		MinFreeDiskGB:  1,
		Retry:          retry.Config{MaxAttempts: 1, BaseDelaySeconds: 0.01, PerCallTimeoutSeconds: 5},
	}
}

func TestOrchestratorRunHappyPath(t *testing.T) {
	llm := scriptedLLM(t)
	downloader := &fakes.Downloader{AudioPath: writeTempMedia(t, "audio.wav"), VideoPath: writeTempMedia(t, "video.mp4")}
	diarizer := &fakes.Diarizer{Transcript: &model.Transcript{TotalSegments: 1, Segments: []model.Segment{{ID: 0, Speaker: "A", Text: "hello", Start: 0, End: 1}}}}
	tts := &fakes.TTS{Audio: []byte("fake-audio")}
	clipper := &fakes.Clipper{}
	compositor := &fakes.Compositor{Result: adapters.ComposeResult{DurationSeconds: 42, Bytes: 1024}}

	deps := testDeps(llm, downloader, diarizer, tts, clipper, compositor)
	contentRoot := t.TempDir()
	logger := zerolog.Nop()
	orch := orchestrator.New(deps, contentRoot, &logger)

	report, err := orch.Run(context.Background(), "https://example.com/show/episode1", testOptions())
	require.NoError(t, err)

	require.Len(t, report.Stages, 7)
	for _, s := range report.Stages {
		assert.Equal(t, model.StageDone, s.State, "stage %s should have completed", s.Name)
		assert.False(t, s.Cached, "a first run should not report any stage as cached")
	}
	assert.NotEmpty(t, report.FinalVideoPath)

	assert.Equal(t, 1, downloader.Calls)
	assert.Equal(t, 1, diarizer.Calls)
	assert.Equal(t, 4, tts.Calls, "intro, pre-1, post-1 and outro are the 4 non-clip sections needing narration")
	assert.Equal(t, 1, clipper.Calls)
	assert.Equal(t, 1, compositor.Calls)
}

func TestOrchestratorRunResumesFromCacheOnSecondInvocation(t *testing.T) {
	llm := scriptedLLM(t)
	downloader := &fakes.Downloader{AudioPath: writeTempMedia(t, "audio.wav"), VideoPath: writeTempMedia(t, "video.mp4")}
	diarizer := &fakes.Diarizer{Transcript: &model.Transcript{TotalSegments: 1, Segments: []model.Segment{{ID: 0, Speaker: "A", Text: "hello", Start: 0, End: 1}}}}
	tts := &fakes.TTS{Audio: []byte("fake-audio")}
	clipper := &fakes.Clipper{}
	compositor := &fakes.Compositor{Result: adapters.ComposeResult{DurationSeconds: 42, Bytes: 1024}}

	deps := testDeps(llm, downloader, diarizer, tts, clipper, compositor)
	contentRoot := t.TempDir()
	logger := zerolog.Nop()
	orch := orchestrator.New(deps, contentRoot, &logger)

	source := "https://example.com/show/episode1"
	_, err := orch.Run(context.Background(), source, testOptions())
	require.NoError(t, err)

	// Second run against the same workspace/source should hit the
	// artifact-backed caches (stages 1-4) and skip re-synthesizing any
	// narration section whose audio file already exists on disk.
	report, err := orch.Run(context.Background(), source, testOptions())
	require.NoError(t, err)

	cachedByName := map[string]bool{}
	for _, s := range report.Stages {
		cachedByName[s.Name] = s.Cached
		assert.Equal(t, model.StageDone, s.State)
	}
	assert.True(t, cachedByName["media_extraction"])
	assert.True(t, cachedByName["transcript_generation"])
	assert.True(t, cachedByName["content_analysis"])
	assert.True(t, cachedByName["narrative_generation"])

	assert.Equal(t, 1, downloader.Calls, "downloader must not be called again once the media exists")
	assert.Equal(t, 1, diarizer.Calls)
	assert.Equal(t, 4, tts.Calls, "tts must not resynthesize sections whose audio file already exists")
}

func TestOrchestratorRunHonorsStageSubsetWithDependencyRule(t *testing.T) {
	llm := scriptedLLM(t)
	downloader := &fakes.Downloader{AudioPath: writeTempMedia(t, "audio.wav"), VideoPath: writeTempMedia(t, "video.mp4")}
	diarizer := &fakes.Diarizer{Transcript: &model.Transcript{TotalSegments: 1, Segments: []model.Segment{{ID: 0, Speaker: "A", Text: "hello", Start: 0, End: 1}}}}
	tts := &fakes.TTS{Audio: []byte("fake-audio")}
	clipper := &fakes.Clipper{}
	compositor := &fakes.Compositor{Result: adapters.ComposeResult{DurationSeconds: 42, Bytes: 1024}}

	deps := testDeps(llm, downloader, diarizer, tts, clipper, compositor)
	contentRoot := t.TempDir()
	logger := zerolog.Nop()
	orch := orchestrator.New(deps, contentRoot, &logger)

	opts := testOptions()
	opts.Stages = map[int]bool{4: true} // requesting stage 4 alone must still run 1-4

	report, err := orch.Run(context.Background(), "https://example.com/show/episode2", opts)
	require.NoError(t, err)

	states := map[string]model.StageState{}
	for _, s := range report.Stages {
		states[s.Name] = s.State
	}
	assert.Equal(t, model.StageDone, states["media_extraction"])
	assert.Equal(t, model.StageDone, states["transcript_generation"])
	assert.Equal(t, model.StageDone, states["content_analysis"])
	assert.Equal(t, model.StageDone, states["narrative_generation"])
	assert.Equal(t, model.StagePending, states["audio_generation"], "stage 5 was never requested and has no dependent requesting it")
	assert.Equal(t, model.StagePending, states["video_clipping"])
	assert.Equal(t, model.StagePending, states["composition"])
}

func TestOrchestratorRunFailsFastWhenWorkspaceLocked(t *testing.T) {
	llm := scriptedLLM(t)
	downloader := &fakes.Downloader{AudioPath: writeTempMedia(t, "audio.wav"), VideoPath: writeTempMedia(t, "video.mp4")}
	diarizer := &fakes.Diarizer{}
	tts := &fakes.TTS{}
	clipper := &fakes.Clipper{}
	compositor := &fakes.Compositor{}

	deps := testDeps(llm, downloader, diarizer, tts, clipper, compositor)
	contentRoot := t.TempDir()
	logger := zerolog.Nop()
	orch := orchestrator.New(deps, contentRoot, &logger)

	source := "https://example.com/show/locked-episode"

	// Hold the lock for this episode's workspace directly, the way a
	// concurrently running second invocation would find it held.
	ref, err := workspace.Locate(source)
	require.NoError(t, err)
	ws, err := workspace.Ensure(contentRoot, ref)
	require.NoError(t, err)
	require.NoError(t, ws.Lock())
	defer ws.Unlock()

	_, err = orch.Run(context.Background(), source, testOptions())
	require.Error(t, err)
	assert.Equal(t, 3, orchestrator.ExitCode(err))
}
