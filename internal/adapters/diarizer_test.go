package adapters

import (
	"testing"

	replicate "github.com/replicate/replicate-go"
)

func TestParseWhisperXSegmentsExtractsFields(t *testing.T) {
	out := replicate.PredictionOutput(map[string]interface{}{
		"segments": []interface{}{
			map[string]interface{}{"speaker": "SPEAKER_00", "text": "  hello there  ", "start": 0.0, "end": 1.5},
			map[string]interface{}{"speaker": "SPEAKER_01", "text": "hi", "start": 1.5, "end": 2.0},
		},
	})

	segments, err := parseWhisperXSegments(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Text != "hello there" {
		t.Errorf("text = %q, want trimmed %q", segments[0].Text, "hello there")
	}
	if segments[0].ID != 0 || segments[1].ID != 1 {
		t.Errorf("segment IDs should be assigned by position, got %d and %d", segments[0].ID, segments[1].ID)
	}
	if segments[1].Speaker != "SPEAKER_01" {
		t.Errorf("speaker = %q", segments[1].Speaker)
	}
}

func TestParseWhisperXSegmentsRejectsUnexpectedShape(t *testing.T) {
	_, err := parseWhisperXSegments(replicate.PredictionOutput("not a map"))
	if err == nil {
		t.Fatal("expected an error for a non-map prediction output")
	}
}

func TestParseWhisperXSegmentsRejectsMissingSegmentsKey(t *testing.T) {
	_, err := parseWhisperXSegments(replicate.PredictionOutput(map[string]interface{}{}))
	if err == nil {
		t.Fatal("expected an error when segments is missing")
	}
}

func TestParseWhisperXSegmentsSkipsMalformedEntries(t *testing.T) {
	out := replicate.PredictionOutput(map[string]interface{}{
		"segments": []interface{}{
			"not a map",
			map[string]interface{}{"speaker": "SPEAKER_00", "text": "ok", "start": 0.0, "end": 1.0},
		},
	})
	segments, err := parseWhisperXSegments(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want the malformed entry skipped leaving 1", len(segments))
	}
}

func TestVerifyAlignmentIsZeroForIdenticalText(t *testing.T) {
	if cer := VerifyAlignment("the quick brown fox", "the quick brown fox"); cer != 0 {
		t.Errorf("CER = %v, want 0 for identical text", cer)
	}
}

func TestVerifyAlignmentIsPositiveForDivergentText(t *testing.T) {
	cer := VerifyAlignment("the quick brown fox", "a slow red dog")
	if cer <= 0 {
		t.Errorf("CER = %v, want > 0 for divergent text", cer)
	}
}

func TestVerifyAlignmentHandlesEmptyReference(t *testing.T) {
	if cer := VerifyAlignment("", "anything"); cer != 0 {
		t.Errorf("CER = %v, want 0 when reference has no tokens", cer)
	}
}

func TestTokenizeGraphemesSplitsMultibyteText(t *testing.T) {
	toks := tokenizeGraphemes("héllo")
	if len(toks) != 5 {
		t.Errorf("got %d graphemes, want 5 for %q", len(toks), "héllo")
	}
}
