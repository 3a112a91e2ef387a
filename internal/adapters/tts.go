package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/tassa-yoniso-manasi-karoto/elevenlabs-go"

	"github.com/faughnn/factreel/internal/core"
)

// ElevenLabsTTS synthesizes narration audio, built on the same
// elevenlabs.NewClient(ctx, apiKey, timeout) construction pkg/voice.go's
// ElevenlabsIsolator uses, with a new method (speech synthesis) rather
// than voice isolation.
type ElevenLabsTTS struct {
	APIKey  string
	VoiceID string
	Timeout time.Duration
}

// NewElevenLabsTTS returns the default TTS implementation. voiceID
// selects the narrator voice; tone (passed per-call) maps to ElevenLabs
// voice-settings stability/style sliders.
func NewElevenLabsTTS(apiKey, voiceID string, timeout time.Duration) *ElevenLabsTTS {
	return &ElevenLabsTTS{APIKey: apiKey, VoiceID: voiceID, Timeout: timeout}
}

// toneSettings maps the script generator's free-form tone label to
// ElevenLabs voice-settings sliders. Unknown tones fall back to neutral
// defaults.
func toneSettings(tone string) elevenlabs.VoiceSettings {
	switch tone {
	case "urgent", "alarmed":
		return elevenlabs.VoiceSettings{Stability: 0.3, SimilarityBoost: 0.8}
	case "somber", "measured":
		return elevenlabs.VoiceSettings{Stability: 0.7, SimilarityBoost: 0.7}
	default:
		return elevenlabs.VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75}
	}
}

func (t *ElevenLabsTTS) Synthesize(ctx context.Context, text, tone string) ([]byte, error) {
	if t.APIKey == "" {
		return nil, &core.AdapterError{Adapter: "tts", Kind: core.AdapterKindRestricted, Cause: fmt.Errorf("no ElevenLabs API key configured")}
	}
	client := elevenlabs.NewClient(ctx, t.APIKey, t.Timeout)

	req := elevenlabs.TextToSpeechRequest{
		Text:          text,
		ModelID:       "eleven_multilingual_v2",
		VoiceSettings: toneSettings(tone),
	}
	audio, err := client.TextToSpeech(t.VoiceID, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &core.AdapterError{Adapter: "tts", Kind: core.AdapterKindTimeout, Cause: err}
		}
		return nil, &core.AdapterError{Adapter: "tts", Kind: core.AdapterKindNetwork, Cause: err}
	}
	return audio, nil
}
