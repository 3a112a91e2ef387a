package adapters

import (
	"context"
	"testing"
)

func TestToneSettingsMapsUrgentToLowStability(t *testing.T) {
	s := toneSettings("urgent")
	if s.Stability != 0.3 {
		t.Errorf("Stability = %v, want 0.3 for urgent", s.Stability)
	}
}

func TestToneSettingsMapsSomberToHighStability(t *testing.T) {
	s := toneSettings("somber")
	if s.Stability != 0.7 {
		t.Errorf("Stability = %v, want 0.7 for somber", s.Stability)
	}
}

func TestToneSettingsFallsBackToNeutralForUnknownTone(t *testing.T) {
	s := toneSettings("whimsical")
	if s.Stability != 0.5 || s.SimilarityBoost != 0.75 {
		t.Errorf("unknown tone should map to neutral defaults, got %+v", s)
	}
}

func TestSynthesizeFailsWithoutAPIKey(t *testing.T) {
	tts := &ElevenLabsTTS{}
	_, err := tts.Synthesize(context.Background(), "hello", "neutral")
	if err == nil {
		t.Fatal("expected an error when no API key is configured")
	}
}
