package core_test

import (
	"errors"
	"testing"

	"github.com/faughnn/factreel/internal/core"
)

func TestBehaviorStringNamesAreStable(t *testing.T) {
	cases := map[core.Behavior]string{
		core.ContinueProcessing:  "continue",
		core.ContinueWithWarning: "warning",
		core.AbortStage:          "abort_task",
		core.AbortRun:            "abort_all",
		core.Behavior(99):        "unknown",
	}
	for behavior, want := range cases {
		if got := behavior.String(); got != want {
			t.Errorf("Behavior(%d).String() = %q, want %q", behavior, got, want)
		}
	}
}

func TestNewProcessingErrorInitializesContext(t *testing.T) {
	err := core.NewProcessingError(core.AbortStage, "bad input", nil)
	if err.Context == nil {
		t.Fatal("expected a non-nil Context map ready for assignment")
	}
	err.Context["key"] = "value"
	if err.Context["key"] != "value" {
		t.Errorf("Context did not retain assigned value")
	}
}

func TestProcessingErrorMessageIncludesWrappedError(t *testing.T) {
	cause := errors.New("disk full")
	err := core.NewProcessingError(core.AbortRun, "write failed", cause)
	if got := err.Error(); got != "write failed: disk full" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause via Unwrap")
	}
}

func TestProcessingErrorMessageWithoutCause(t *testing.T) {
	err := core.NewProcessingError(core.ContinueWithWarning, "heads up", nil)
	if got := err.Error(); got != "heads up" {
		t.Errorf("Error() = %q, want bare message when Err is nil", got)
	}
}

func TestInputErrorFormatting(t *testing.T) {
	cause := errors.New("no such file")
	withCause := &core.InputError{Detail: "source missing", Err: cause}
	if got := withCause.Error(); got != "input error: source missing: no such file" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(withCause, cause) {
		t.Errorf("expected errors.Is to unwrap to cause")
	}

	bare := &core.InputError{Detail: "bad url"}
	if got := bare.Error(); got != "input error: bad url" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWorkspaceBusyReportsLockPath(t *testing.T) {
	err := &core.WorkspaceBusy{Path: "/tmp/ep/.lock"}
	if got := err.Error(); got != "workspace busy: lock held at /tmp/ep/.lock" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIOErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("permission denied")
	err := &core.IOError{Op: "open", Path: "/tmp/x", Err: cause}
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find cause via Unwrap")
	}
	if got := err.Error(); got != "io error: open /tmp/x: permission denied" {
		t.Errorf("Error() = %q", got)
	}
}

func TestValidationErrorIncludesSchemaName(t *testing.T) {
	err := &core.ValidationError{Schema: "unified_script", Detail: "missing outro section"}
	if got := err.Error(); got != `validation error: schema "unified_script": missing outro section` {
		t.Errorf("Error() = %q", got)
	}
}

func TestAdapterErrorUnwrapsAndFormats(t *testing.T) {
	cause := errors.New("connection reset")
	err := &core.AdapterError{Adapter: "downloader", Kind: core.AdapterKindNetwork, Cause: cause}
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find cause via Unwrap")
	}
	if got := err.Error(); got != "downloader adapter error [Network]: connection reset" {
		t.Errorf("Error() = %q", got)
	}
}

func TestStageErrorFormattingWithAndWithoutSubStage(t *testing.T) {
	cause := errors.New("llm timeout")

	withSub := &core.StageError{Stage: 3, SubStage: "pass2_scoring", Cause: cause}
	if got := withSub.Error(); got != "stage 3 (pass2_scoring) failed: llm timeout" {
		t.Errorf("Error() = %q", got)
	}

	withoutSub := &core.StageError{Stage: 5, Cause: cause}
	if got := withoutSub.Error(); got != "stage 5 failed: llm timeout" {
		t.Errorf("Error() = %q", got)
	}

	if !errors.Is(withSub, cause) {
		t.Errorf("expected errors.Is to find cause via Unwrap")
	}
}

func TestCancelledFormattingWithAndWithoutStage(t *testing.T) {
	withStage := &core.Cancelled{Stage: 4}
	if got := withStage.Error(); got != "cancelled during stage 4" {
		t.Errorf("Error() = %q", got)
	}

	withoutStage := &core.Cancelled{}
	if got := withoutStage.Error(); got != "cancelled" {
		t.Errorf("Error() = %q", got)
	}
}
