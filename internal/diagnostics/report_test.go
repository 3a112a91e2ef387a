package diagnostics

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/faughnn/factreel/internal/config"
	"github.com/faughnn/factreel/internal/model"
)

func TestWriteReportProducesAReadableZipWithRedactedSecrets(t *testing.T) {
	dir := t.TempDir()
	sessionLog := filepath.Join(dir, "session.ndjson")
	if err := os.WriteFile(sessionLog, []byte(`{"stage":1}`+"\n"), 0o644); err != nil {
		t.Fatalf("seed session log: %v", err)
	}

	var settings config.Settings
	settings.Adapters.LLM.APIKey = "sk-super-secret"

	records := []model.StageRecord{{Name: "extraction", State: model.StageDone}}

	path, err := WriteReport(dir, ModeStageFailure, "sess-1", errors.New("boom"), records, settings, sessionLog)
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening produced zip: %v", err)
	}
	defer r.Close()

	names := map[string]bool{}
	var reportBody []byte
	for _, f := range r.File {
		names[f.Name] = true
		if f.Name == "report.txt" {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("opening report.txt: %v", err)
			}
			reportBody, err = io.ReadAll(rc)
			if err != nil {
				t.Fatalf("reading report.txt: %v", err)
			}
			rc.Close()
		}
	}
	if !names["report.txt"] || !names["session.ndjson"] {
		t.Fatalf("zip entries = %v, want report.txt and session.ndjson", names)
	}
	if strings.Contains(string(reportBody), "sk-super-secret") {
		t.Error("report.txt leaked the raw API key instead of redacting it")
	}
	if !strings.Contains(string(reportBody), "boom") {
		t.Error("report.txt does not mention the failure cause")
	}
}
