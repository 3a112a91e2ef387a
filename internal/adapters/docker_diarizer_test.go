package adapters

import (
	"context"
	"testing"

	"github.com/faughnn/factreel/internal/core"
)

func TestDockerDiarizerCloseOnUnstartedInstanceIsSafe(t *testing.T) {
	d := NewDockerDiarizer("")
	if err := d.Close(context.Background()); err != nil {
		t.Errorf("Close on an unstarted DockerDiarizer should be a no-op, got %v", err)
	}
}

func TestDockerDiarizerDiarizeFailsFastWithoutADockerEngine(t *testing.T) {
	// Start checks dockerutil.EngineIsReachable before anything else, so
	// in a CI environment with no docker engine, Diarize must surface an
	// *core.AdapterError without ever reaching the HTTP transcription call.
	d := NewDockerDiarizer("")
	_, err := d.Diarize(context.Background(), "/tmp/audio.wav")
	if err == nil {
		t.Fatal("expected an error when no docker engine is reachable")
	}
	if ae, ok := err.(*core.AdapterError); !ok || ae.Kind != core.AdapterKindUnavailable {
		t.Errorf("err = %#v, want *core.AdapterError{Kind: Unavailable}", err)
	}
}
