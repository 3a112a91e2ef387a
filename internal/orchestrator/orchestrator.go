// Package orchestrator implements the Pipeline Orchestrator (C7): the
// top-level seven-stage scheduler over one episode workspace, honouring
// selective execution, the dependency/skippability rule, bounded
// concurrency for stages 5/6, and cooperative cancellation, per spec §4.7
// and §5.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/faughnn/factreel/internal/adapters"
	"github.com/faughnn/factreel/internal/cache"
	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/retry"
	"github.com/faughnn/factreel/internal/session"
	"github.com/faughnn/factreel/internal/twopass"
	"github.com/faughnn/factreel/internal/workspace"
)

// stage numbers, named for readability at call sites.
const (
	StageExtraction    = 1
	StageTranscription = 2
	StagePass1         = 3
	StageNarrative     = 4
	StageAudio         = 5
	StageClipping      = 6
	StageComposition   = 7
	stageCount         = 7
)

var stageNames = map[int]string{
	StageExtraction:    "media_extraction",
	StageTranscription: "transcript_generation",
	StagePass1:         "content_analysis",
	StageNarrative:     "narrative_generation",
	StageAudio:         "audio_generation",
	StageClipping:      "video_clipping",
	StageComposition:   "composition",
}

// TwoPassFactory builds a two-pass Controller scoped to one workspace's
// cache.Store. The controller can't be built until a run's workspace (and
// therefore its Store) exists, so Deps carries a factory rather than a
// fixed instance.
type TwoPassFactory func(store *cache.Store) *twopass.Controller

// Deps bundles every external collaborator the orchestrator drives. The
// core only ever sees the adapters.* interfaces; cmd/root.go wires
// concrete implementations.
type Deps struct {
	Downloader adapters.Downloader
	Diarizer   adapters.Diarizer
	TTS        adapters.TTS
	Clipper    adapters.Clipper
	Compositor adapters.Compositor
	TwoPass    TwoPassFactory
}

// Options is the run(source, options) parameter set from §4.7.
type Options struct {
	Stages          map[int]bool // explicit subset from --stages; nil means "all"
	StartFrom       int          // --from, 0 means unset
	StopAfter       int          // --to, 0 means unset
	MaxConcurrency  int          // worker count for stage 5 (TTS), default 2 if unset
	ClipConcurrency int          // worker count for stage 6 (clipping), default 2 if unset; sized independently of MaxConcurrency
	MinFreeDiskGB   int          // disk space floor checked before stage 1, default 5
	Retry           retry.Config
	Force           bool // invalidate caches for selected stages
	DryRun          bool
	Cancel          <-chan struct{}
}

// RunReport is the operator-facing result of one Run call: the stage
// ledger and the final artifact location, per §3's "Stage Record" type.
type RunReport struct {
	SessionID      string
	Stages         []model.StageRecord
	FinalVideoPath string
}

// Orchestrator owns the Episode Workspace handle and the Stage Records for
// one run (§4.1: "The Pipeline Orchestrator owns the Episode Workspace
// handle and the set of Stage Records for a run").
type Orchestrator struct {
	deps    Deps
	logger  *zerolog.Logger
	content string
}

// New builds an Orchestrator rooted at contentRoot.
func New(deps Deps, contentRoot string, logger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{deps: deps, logger: logger, content: contentRoot}
}

// Run executes the seven-stage pipeline for source under opts, returning a
// RunReport on success or any stage's failure. The returned error, when
// non-nil, is one of *core.WorkspaceBusy, *core.Cancelled,
// *core.InputError, *core.StageError, or *core.IOError (a filesystem
// failure while preparing the workspace, its lock or the session log), so
// callers can map it to an exit code via ExitCode.
func (o *Orchestrator) Run(ctx context.Context, source string, opts Options) (RunReport, error) {
	ref, err := workspace.Locate(source)
	if err != nil {
		return RunReport{}, err
	}
	ws, err := workspace.Ensure(o.content, ref)
	if err != nil {
		return RunReport{}, err
	}
	if err := ws.Lock(); err != nil {
		return RunReport{}, err
	}
	defer ws.Unlock()

	store := cache.New(ws, o.logger)

	sessionID := session.NewID(time.Now())
	logFile, err := os.OpenFile(ws.SessionLogPath(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return RunReport{}, &core.IOError{Op: "create", Path: ws.SessionLogPath(sessionID), Err: err}
	}
	defer logFile.Close()
	rec := session.NewRecorder(sessionID, logFile)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	if opts.Cancel != nil {
		go func() {
			select {
			case <-opts.Cancel:
				cancelRun()
			case <-runCtx.Done():
			}
		}()
	}

	plan := resolvePlan(opts)
	records := make(map[int]*model.StageRecord, stageCount)
	for n := 1; n <= stageCount; n++ {
		records[n] = &model.StageRecord{Name: stageNames[n], State: model.StagePending}
	}

	run := &runState{
		o:       o,
		source:  source,
		ws:      ws,
		store:   store,
		twoPass: o.deps.TwoPass(store),
		rec:     rec,
		opts:    opts,
		records: records,
	}

	if opts.DryRun {
		for n := 1; n <= stageCount; n++ {
			if !plan[n] {
				records[n].State = model.StageSkipped
				continue
			}
			records[n].State = model.StagePending
		}
		return run.report(sessionID), nil
	}

	var transcript model.Transcript
	var pass1 model.Pass1Analysis
	var verified model.VerifiedScript

	for stage := 1; stage <= stageCount; stage++ {
		if !plan[stage] {
			continue
		}
		if runCtx.Err() != nil {
			run.markCancelled(stage)
			return run.report(sessionID), &core.Cancelled{Stage: stage}
		}

		record := records[stage]
		record.State = model.StageRunning
		record.StartedAt = time.Now()
		rec.Start(stage, "", stageNames[stage])

		var stageErr error
		switch stage {
		case StageExtraction:
			var cached bool
			cached, stageErr = run.runExtraction(runCtx)
			record.Cached = cached
		case StageTranscription:
			var cached bool
			transcript, cached, stageErr = run.runTranscription(runCtx)
			record.Cached = cached
		case StagePass1:
			var cached bool
			pass1, cached, stageErr = run.runPass1(runCtx, transcript)
			record.Cached = cached
		case StageNarrative:
			var cached bool
			verified, cached, stageErr = run.runNarrative(runCtx, pass1)
			record.Cached = cached
		case StageAudio:
			stageErr = run.runAudio(runCtx, verified)
		case StageClipping:
			stageErr = run.runClipping(runCtx, verified)
		case StageComposition:
			var finalPath string
			finalPath, stageErr = run.runComposition(runCtx, verified)
			if stageErr == nil {
				run.finalVideoPath = finalPath
			}
		}

		record.EndedAt = time.Now()
		if stageErr != nil {
			record.State = model.StageFailed
			record.Error = stageErr.Error()
			wrapped := wrapStageError(stage, stageErr)
			rec.Fail(stage, wrapped)
			return run.report(sessionID), wrapped
		}

		record.State = model.StageDone
		record.ProgressPct = 100
		rec.Complete(stage, record.Cached, stageNames[stage])
	}

	return run.report(sessionID), nil
}

func wrapStageError(stage int, err error) error {
	if se, ok := err.(*core.StageError); ok {
		return se
	}
	if _, ok := err.(*core.Cancelled); ok {
		return err
	}
	return &core.StageError{Stage: stage, Cause: err}
}

// resolvePlan implements §4.7's dependency rule: selecting a stage implies
// every prior stage whose output is missing from the cache must also run.
// Walking 1..maxRequested and running a stage unless it is already cached
// and not explicitly forced realizes that rule without separate recursion:
// a stage the caller didn't ask for but whose artifact is missing still
// runs, because a later requested stage needs it.
func resolvePlan(opts Options) map[int]bool {
	requested := requestedStages(opts)
	maxRequested := 0
	for n := range requested {
		if n > maxRequested {
			maxRequested = n
		}
	}
	plan := make(map[int]bool, stageCount)
	for n := 1; n <= maxRequested; n++ {
		plan[n] = true
	}
	return plan
}

func requestedStages(opts Options) map[int]bool {
	if len(opts.Stages) > 0 {
		return opts.Stages
	}
	from, to := opts.StartFrom, opts.StopAfter
	if from <= 0 {
		from = 1
	}
	if to <= 0 {
		to = stageCount
	}
	set := make(map[int]bool, to-from+1)
	for n := from; n <= to; n++ {
		set[n] = true
	}
	return set
}

// forcedStage reports whether stage n was explicitly selected and --force
// was passed, meaning its cache must be invalidated before running even if
// present and valid.
func forcedStage(opts Options, n int) bool {
	if !opts.Force {
		return false
	}
	return requestedStages(opts)[n]
}

// ExitCode maps a Run error to the §6 process exit code table.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch err.(type) {
	case *core.InputError:
		return 2
	case *core.WorkspaceBusy:
		return 3
	case *core.Cancelled:
		return 5
	case *core.StageError:
		return 4
	default:
		return 4
	}
}

func (r *runState) markCancelled(stage int) {
	rec := r.records[stage]
	rec.State = model.StageFailed
	rec.Error = fmt.Sprintf("cancelled before stage %d started", stage)
}
