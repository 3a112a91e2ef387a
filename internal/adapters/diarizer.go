package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	replicate "github.com/replicate/replicate-go"
	"github.com/rivo/uniseg"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/model"
)

// ReplicateDiarizer runs a diarization-capable Whisper variant through
// replicate-go, generalized from pkg/stt/stt.go's Replicate(...) helper: a
// single transcription string there becomes a full TranscriptArtifact
// here (segments with speaker labels and start/end timestamps).
type ReplicateDiarizer struct {
	APIToken string
	Owner    string
	Name     string
	Timeout  time.Duration
}

// NewReplicateDiarizer returns the default Diarizer implementation,
// targeting a diarization-capable model (owner/name selected by config's
// adapter model identifier, defaulting to a whisperx-style model).
func NewReplicateDiarizer(apiToken, owner, name string, timeout time.Duration) *ReplicateDiarizer {
	if owner == "" {
		owner = "victor-upmeet"
	}
	if name == "" {
		name = "whisperx"
	}
	return &ReplicateDiarizer{APIToken: apiToken, Owner: owner, Name: name, Timeout: timeout}
}

func (d *ReplicateDiarizer) Diarize(ctx context.Context, audioPath string) (*model.Transcript, error) {
	if d.APIToken == "" {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindRestricted, Cause: fmt.Errorf("no replicate API token configured")}
	}

	r8, err := replicate.NewClient(replicate.WithToken(d.APIToken))
	if err != nil {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindNetwork, Cause: err}
	}

	runCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	modelInfo, err := r8.GetModel(runCtx, d.Owner, d.Name)
	if err != nil {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindNetwork, Cause: err}
	}

	file, err := r8.CreateFileFromPath(runCtx, audioPath, nil)
	if err != nil {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindFormat, Cause: err}
	}

	input := replicate.PredictionInput{
		"audio_file":    file,
		"diarization":   true,
		"align_output":  true,
	}
	out, err := r8.Run(runCtx, d.Owner+"/"+d.Name+":"+modelInfo.LatestVersion.ID, input, nil)
	if err != nil {
		if runCtx.Err() != nil {
			return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindTimeout, Cause: err}
		}
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindNetwork, Cause: err}
	}

	segments, err := parseWhisperXSegments(out)
	if err != nil {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindMalformed, Cause: err}
	}

	return &model.Transcript{
		Language:      "auto",
		Model:         d.Owner + "/" + d.Name,
		TotalSegments: len(segments),
		Segments:      segments,
	}, nil
}

func parseWhisperXSegments(out replicate.PredictionOutput) ([]model.Segment, error) {
	top, ok := out.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected prediction output shape %T", out)
	}
	raw, ok := top["segments"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("prediction output missing segments array")
	}

	segments := make([]model.Segment, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		seg := model.Segment{ID: i}
		if v, ok := m["speaker"].(string); ok {
			seg.Speaker = v
		}
		if v, ok := m["text"].(string); ok {
			seg.Text = strings.TrimSpace(v)
		}
		if v, ok := m["start"].(float64); ok {
			seg.Start = v
		}
		if v, ok := m["end"].(float64); ok {
			seg.End = v
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// VerifyAlignment sanity-checks a transcript by comparing its
// concatenated text against a reference (e.g. a cheaper ASR pass) using
// the teacher's computeCER helper, built on uniseg grapheme tokenization
// and diffmatchpatch's Levenshtein distance. Returns the character error
// rate; a caller treats a high CER as a signal the transcript doesn't tile
// the audio duration correctly.
func VerifyAlignment(reference, hypothesis string) float64 {
	const sep = "Ⲱ"
	refTokens := tokenizeGraphemes(reference)
	hypTokens := tokenizeGraphemes(hypothesis)
	refStr := strings.Join(refTokens, sep)
	hypStr := strings.Join(hypTokens, sep)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(refStr, hypStr, false)
	distance := dmp.DiffLevenshtein(diffs)

	if len(refTokens) == 0 {
		return 0
	}
	return float64(distance) / float64(len(refTokens))
}

func tokenizeGraphemes(s string) []string {
	var out []string
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		out = append(out, gr.Str())
	}
	return out
}
