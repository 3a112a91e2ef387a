package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/faughnn/factreel/internal/core"
)

func TestFFmpegCompositorRejectsEmptySegments(t *testing.T) {
	c := NewFFmpegCompositor()
	_, err := c.Compose(context.Background(), nil, filepath.Join(t.TempDir(), "out.mp4"))
	if err == nil {
		t.Fatal("expected an error when there are no segments to compose")
	}
	if ae, ok := err.(*core.AdapterError); !ok || ae.Kind != core.AdapterKindMalformed {
		t.Errorf("err = %#v, want *core.AdapterError{Kind: Malformed}", err)
	}
}
