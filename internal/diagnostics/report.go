// Package diagnostics builds a compressed debug/crash report bundle on
// pipeline failure, the way the teacher's internal/pkg/crash package does:
// a text report plus the raw session log, zipped up for the operator to
// attach to a bug report.
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/faughnn/factreel/internal/config"
	"github.com/faughnn/factreel/internal/model"
)

// Mode distinguishes a report written after an unhandled panic from one
// written after an ordinary stage failure.
type Mode int

const (
	ModeCrash Mode = iota
	ModeStageFailure
)

// WriteReport renders a text report describing the failed run (settings
// with credentials redacted, the stage ledger, and the failure itself),
// appends the session's NDJSON event log if present, and compresses both
// into dir/<prefix>_<sessionID>_<timestamp>.zip. It returns the path to
// the zip.
func WriteReport(dir string, mode Mode, sessionID string, cause error, records []model.StageRecord, settings config.Settings, sessionLogPath string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	prefix := "debug"
	if mode == ModeCrash {
		prefix = "crash"
	}
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	zipPath := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.zip", prefix, sessionID, timestamp))

	zipFile, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("creating zip file: %w", err)
	}
	defer zipFile.Close()

	zw := zip.NewWriter(zipFile)
	defer zw.Close()

	reportWriter, err := zw.Create("report.txt")
	if err != nil {
		return "", fmt.Errorf("creating report.txt entry: %w", err)
	}
	writeReportText(reportWriter, mode, sessionID, cause, records, settings)

	if sessionLogPath != "" {
		if err := appendFileToZip(zw, sessionLogPath, "session.ndjson"); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("adding session log to report: %w", err)
		}
	}

	return zipPath, nil
}

func writeReportText(w io.Writer, mode Mode, sessionID string, cause error, records []model.StageRecord, settings config.Settings) {
	if mode == ModeCrash {
		fmt.Fprintln(w, "FACTREEL CRASH REPORT")
	} else {
		fmt.Fprintln(w, "FACTREEL DEBUG REPORT")
	}
	fmt.Fprintln(w, "======================")
	fmt.Fprintf(w, "session: %s\n", sessionID)
	fmt.Fprintf(w, "generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	if cause != nil {
		fmt.Fprintln(w, "-- failure --")
		fmt.Fprintln(w, cause.Error())
		fmt.Fprintln(w)
	}
	if mode == ModeCrash {
		fmt.Fprintln(w, "-- stack trace --")
		w.Write(debug.Stack())
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "-- stage ledger --")
	for _, r := range records {
		fmt.Fprintf(w, "%-12s %-8s %6.1f%%  %s\n", r.Name, r.State, r.ProgressPct, r.Error)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "-- settings (credentials redacted) --")
	redacted := settings
	redacted.Adapters.LLM.APIKey = redactSecret(redacted.Adapters.LLM.APIKey)
	redacted.Adapters.TTS.APIKey = redactSecret(redacted.Adapters.TTS.APIKey)
	redacted.Adapters.Diarizer.APIToken = redactSecret(redacted.Adapters.Diarizer.APIToken)
	fmt.Fprintf(w, "%+v\n", redacted)
}

func redactSecret(s string) string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

func appendFileToZip(zw *zip.Writer, srcPath, entryName string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create(entryName)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
