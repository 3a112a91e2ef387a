package session

import (
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/faughnn/factreel/internal/core"
)

// EventState is the lifecycle point a progress event reports.
type EventState string

const (
	EventStart    EventState = "start"
	EventProgress EventState = "progress"
	EventComplete EventState = "complete"
	EventFail     EventState = "fail"
)

// Event is one NDJSON record in the session log (§4.8).
type Event struct {
	SessionID   string     `json:"session_id"`
	Stage       int        `json:"stage"`
	SubStage    string     `json:"sub_stage,omitempty"`
	State       EventState `json:"state"`
	ProgressPct float64    `json:"progress_pct"`
	Message     string     `json:"message,omitempty"`
	Cached      bool       `json:"cached,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Recorder emits Events to a dedicated NDJSON zerolog.Logger (separate
// from the human console logger, per SPEC_FULL §4.8) and enforces
// monotonic, deduplicated progress percentages within a stage.
type Recorder struct {
	sessionID string
	logger    zerolog.Logger
	mu        sync.Mutex
	lastPct   map[int]float64
}

// NewRecorder builds a Recorder writing NDJSON to w.
func NewRecorder(sessionID string, w io.Writer) *Recorder {
	return &Recorder{
		sessionID: sessionID,
		logger:    core.NewNDJSONLogger(w),
		lastPct:   make(map[int]float64),
	}
}

func (r *Recorder) emit(ev Event) {
	ev.SessionID = r.sessionID
	ev.Timestamp = time.Now()
	r.logger.Log().
		Int("stage", ev.Stage).
		Str("sub_stage", ev.SubStage).
		Str("state", string(ev.State)).
		Float64("progress_pct", ev.ProgressPct).
		Str("message", ev.Message).
		Bool("cached", ev.Cached).
		Time("timestamp", ev.Timestamp).
		Str("session_id", ev.SessionID).
		Send()
}

// Start emits a stage-start event and resets that stage's progress
// watermark.
func (r *Recorder) Start(stage int, subStage, message string) {
	r.mu.Lock()
	r.lastPct[stage] = 0
	r.mu.Unlock()
	r.emit(Event{Stage: stage, SubStage: subStage, State: EventStart, Message: message})
}

// Progress emits a progress event, clamped to [0,100] and deduplicated
// against the last reported percentage for this stage — a caller that
// reports the same or a lower percentage again is silently dropped,
// matching §4.8's "progress percentages are monotonic within a stage;
// orchestrator clamps and deduplicates."
func (r *Recorder) Progress(stage int, subStage string, pct float64, message string) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	r.mu.Lock()
	last, seen := r.lastPct[stage]
	if seen && pct <= last {
		r.mu.Unlock()
		return
	}
	r.lastPct[stage] = pct
	r.mu.Unlock()

	r.emit(Event{Stage: stage, SubStage: subStage, State: EventProgress, ProgressPct: pct, Message: message})
}

// Complete emits a stage-complete event; cached indicates a cache-hit
// fast path rather than a fresh run (§8 scenario 2).
func (r *Recorder) Complete(stage int, cached bool, message string) {
	r.emit(Event{Stage: stage, State: EventComplete, ProgressPct: 100, Cached: cached, Message: message})
}

// Fail emits a stage-fail event summarizing err.
func (r *Recorder) Fail(stage int, err error) {
	var subStage string
	var stageErr *core.StageError
	if se, ok := err.(*core.StageError); ok {
		stageErr = se
		subStage = se.SubStage
	}
	msg := err.Error()
	if stageErr != nil {
		msg = stageErr.Error()
	}
	r.emit(Event{Stage: stage, SubStage: subStage, State: EventFail, Message: msg})
}
