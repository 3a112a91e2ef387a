package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/faughnn/factreel/internal/core"
)

func TestFFmpegClipperFailsFastWhenSourceVideoMissing(t *testing.T) {
	c := NewFFmpegClipper()
	missing := filepath.Join(t.TempDir(), "does-not-exist.mp4")
	err := c.Clip(context.Background(), missing, 0, 1, filepath.Join(t.TempDir(), "out.mp4"))
	if err == nil {
		t.Fatal("expected an error for a missing source video")
	}
	if ae, ok := err.(*core.AdapterError); !ok || ae.Kind != core.AdapterKindNotFound {
		t.Errorf("err = %#v, want *core.AdapterError{Kind: NotFound}", err)
	}
}
