package adapters

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFetchLocalCopiesSourceIntoDestDir(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "episode.wav")
	if err := os.WriteFile(src, []byte("pcm-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	destDir := t.TempDir()
	d := &YTDLPDownloader{}
	audioPath, videoPath, err := d.fetchLocal(src, destDir)
	if err != nil {
		t.Fatalf("fetchLocal: %v", err)
	}
	if videoPath != "" {
		t.Errorf("fetchLocal should never return a video path, got %q", videoPath)
	}
	if filepath.Base(audioPath) != "episode.wav" {
		t.Errorf("audioPath = %q, want basename episode.wav", audioPath)
	}
	got, err := os.ReadFile(audioPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "pcm-bytes" {
		t.Errorf("copied file contents = %q, want %q", got, "pcm-bytes")
	}
}

func TestFetchLocalFailsWhenSourceMissing(t *testing.T) {
	d := &YTDLPDownloader{}
	_, _, err := d.fetchLocal(filepath.Join(t.TempDir(), "does-not-exist.wav"), t.TempDir())
	if err == nil {
		t.Fatal("expected an error for a missing source file")
	}
}

func TestFindNewestMediaPicksMostRecentMatchingExtension(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "a.mp4")
	newer := filepath.Join(dir, "b.mp4")
	ignored := filepath.Join(dir, "c.txt")

	for _, p := range []string{old, newer, ignored} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	now := time.Now()
	os.Chtimes(old, now.Add(-time.Hour), now.Add(-time.Hour))
	os.Chtimes(newer, now, now)

	got, err := findNewestMedia(dir, videoExts)
	if err != nil {
		t.Fatal(err)
	}
	if got != newer {
		t.Errorf("findNewestMedia = %q, want %q", got, newer)
	}
}

func TestFindNewestMediaErrorsWhenNothingMatches(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := findNewestMedia(dir, videoExts)
	if err == nil {
		t.Fatal("expected an error when no file matches the wanted extensions")
	}
}

func TestCopyFilePreservesContent(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "in.bin")
	if err := os.WriteFile(src, []byte("binary-payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "out.bin")

	if err := copyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "binary-payload" {
		t.Errorf("copied content = %q", got)
	}
}

func TestProgressReaderReportsCompletionPercentage(t *testing.T) {
	var lastPct float64
	var lastRead int64
	data := make([]byte, 100)
	pr := &ProgressReader{
		Reader: &fakeReader{data: data},
		Total:  int64(len(data)),
		Handler: func(pct float64, read, total int64, speed float64) {
			lastPct = pct
			lastRead = read
		},
	}
	buf := make([]byte, len(data))
	n, err := pr.Read(buf)
	if err != nil && n == 0 {
		t.Fatalf("Read: %v", err)
	}
	if lastRead != int64(n) {
		t.Errorf("lastRead = %d, want %d", lastRead, n)
	}
	if lastPct <= 0 {
		t.Errorf("expected a positive progress percentage, got %v", lastPct)
	}
}

type fakeReader struct {
	data []byte
	pos  int
}

func (f *fakeReader) Read(p []byte) (int, error) {
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}
