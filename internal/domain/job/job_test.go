package job

import (
	"errors"
	"testing"
)

type ocrInput struct {
	FileID string
}

type ocrConfig struct {
	Language string
}

func newOCRJob(maxRetries int) *Job[ocrInput, ocrConfig] {
	return New(KindOCR, ocrInput{FileID: "f1"}, ocrConfig{Language: "en"}, maxRetries)
}

func TestNewJob(t *testing.T) {
	j := newOCRJob(0)

	if j.Status() != Pending {
		t.Errorf("Status() = %q, want %q", j.Status(), Pending)
	}
	if j.MaxRetries() != DefaultMaxRetries {
		t.Errorf("MaxRetries() = %d, want %d", j.MaxRetries(), DefaultMaxRetries)
	}
	if j.ID() == "" {
		t.Error("ID() is empty")
	}
	if j.Input().FileID != "f1" {
		t.Errorf("Input().FileID = %q, want %q", j.Input().FileID, "f1")
	}

	events := j.DrainEvents()
	if len(events) != 1 || events[0].Kind() != "job.created" {
		t.Errorf("events = %v, want one job.created", events)
	}
}

func TestHappyPath(t *testing.T) {
	j := newOCRJob(1)
	j.DrainEvents()

	if err := j.StartProcessing(); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if j.Status() != Processing {
		t.Errorf("Status() = %q, want %q", j.Status(), Processing)
	}
	if j.StartedAt() == nil {
		t.Error("StartedAt() = nil after start")
	}

	if err := j.CompleteProcessing(Succeeded("text")); err != nil {
		t.Fatalf("CompleteProcessing: %v", err)
	}
	if j.Status() != Completed {
		t.Errorf("Status() = %q, want %q", j.Status(), Completed)
	}
	if j.CompletedAt() == nil {
		t.Error("CompletedAt() = nil after completion")
	}
	if j.Result() == nil || !j.Result().Success {
		t.Errorf("Result() = %+v, want success", j.Result())
	}

	events := j.DrainEvents()
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Kind() != "job.started" || events[1].Kind() != "job.completed" {
		t.Errorf("event kinds = [%s, %s], want [job.started, job.completed]",
			events[0].Kind(), events[1].Kind())
	}
}

// Mirrors the full retry lifecycle: fail, retry, fail again, retry
// budget exhausted.
func TestRetryLifecycle(t *testing.T) {
	j := newOCRJob(1)

	if err := j.StartProcessing(); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if err := j.CompleteProcessing(FailedWith("x", "OCRError")); err != nil {
		t.Fatalf("CompleteProcessing: %v", err)
	}
	if j.Status() != Failed {
		t.Fatalf("Status() = %q, want %q", j.Status(), Failed)
	}
	if j.RetryCount() != 0 {
		t.Errorf("RetryCount() = %d, want 0", j.RetryCount())
	}

	if err := j.RetryProcessing(); err != nil {
		t.Fatalf("RetryProcessing: %v", err)
	}
	if j.Status() != Pending {
		t.Errorf("Status() = %q, want %q", j.Status(), Pending)
	}
	if j.RetryCount() != 1 {
		t.Errorf("RetryCount() = %d, want 1", j.RetryCount())
	}
	if j.StartedAt() != nil || j.CompletedAt() != nil || j.Result() != nil {
		t.Error("attempt state not cleared by retry")
	}

	if err := j.StartProcessing(); err != nil {
		t.Fatalf("StartProcessing after retry: %v", err)
	}
	if err := j.CompleteProcessing(FailedWith("x", "OCRError")); err != nil {
		t.Fatalf("CompleteProcessing after retry: %v", err)
	}
	if j.Status() != Failed {
		t.Fatalf("Status() = %q, want %q", j.Status(), Failed)
	}

	err := j.RetryProcessing()
	if !errors.Is(err, ErrCannotRetry) {
		t.Errorf("RetryProcessing with exhausted budget: err = %v, want ErrCannotRetry", err)
	}
}

func TestInvalidTransitions(t *testing.T) {
	j := newOCRJob(1)

	// Complete before start.
	err := j.CompleteProcessing(Succeeded(""))
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("CompleteProcessing from pending: err = %v, want InvalidTransitionError", err)
	}
	if ite.Current != Pending {
		t.Errorf("InvalidTransitionError.Current = %q, want %q", ite.Current, Pending)
	}

	// Double start.
	if err := j.StartProcessing(); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if err := j.StartProcessing(); !errors.As(err, &ite) {
		t.Errorf("second StartProcessing: err = %v, want InvalidTransitionError", err)
	}

	// Retry from non-failed.
	if err := j.RetryProcessing(); !errors.Is(err, ErrCannotRetry) {
		t.Errorf("RetryProcessing from processing: err = %v, want ErrCannotRetry", err)
	}
}

func TestCancel(t *testing.T) {
	j := newOCRJob(1)
	j.DrainEvents()

	if err := j.CancelProcessing(""); err == nil {
		t.Error("CancelProcessing(\"\"): err = nil, want error")
	}

	if err := j.CancelProcessing("superseded"); err != nil {
		t.Fatalf("CancelProcessing: %v", err)
	}
	if j.Status() != Cancelled {
		t.Errorf("Status() = %q, want %q", j.Status(), Cancelled)
	}
	if j.CompletedAt() == nil {
		t.Error("CompletedAt() = nil after cancel")
	}

	events := j.DrainEvents()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	cancelled, ok := events[0].(CancelledEvent)
	if !ok || cancelled.Reason != "superseded" {
		t.Errorf("event = %+v, want CancelledEvent with reason", events[0])
	}

	// Terminal: no further cancel.
	var ite *InvalidTransitionError
	if err := j.CancelProcessing("again"); !errors.As(err, &ite) {
		t.Errorf("cancel after cancel: err = %v, want InvalidTransitionError", err)
	}
}

func TestCancelFromProcessing(t *testing.T) {
	j := newOCRJob(1)
	if err := j.StartProcessing(); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if err := j.CancelProcessing("operator abort"); err != nil {
		t.Fatalf("CancelProcessing from processing: %v", err)
	}
	if j.Status() != Cancelled {
		t.Errorf("Status() = %q, want %q", j.Status(), Cancelled)
	}
}

func TestCancelFromFailedRejected(t *testing.T) {
	j := newOCRJob(1)
	if err := j.StartProcessing(); err != nil {
		t.Fatal(err)
	}
	if err := j.CompleteProcessing(FailedWith("x", "y")); err != nil {
		t.Fatal(err)
	}
	var ite *InvalidTransitionError
	if err := j.CancelProcessing("late"); !errors.As(err, &ite) {
		t.Errorf("cancel from failed: err = %v, want InvalidTransitionError", err)
	}
}

func TestUpdateInputOnlyWhilePending(t *testing.T) {
	j := newOCRJob(1)
	j.DrainEvents()

	if err := j.UpdateInput(ocrInput{FileID: "f2"}); err != nil {
		t.Fatalf("UpdateInput while pending: %v", err)
	}
	if j.Input().FileID != "f2" {
		t.Errorf("Input().FileID = %q, want %q", j.Input().FileID, "f2")
	}
	if err := j.UpdateConfig(ocrConfig{Language: "zh"}); err != nil {
		t.Fatalf("UpdateConfig while pending: %v", err)
	}

	events := j.DrainEvents()
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	if err := j.StartProcessing(); err != nil {
		t.Fatal(err)
	}
	var ite *InvalidTransitionError
	if err := j.UpdateInput(ocrInput{FileID: "f3"}); !errors.As(err, &ite) {
		t.Errorf("UpdateInput while processing: err = %v, want InvalidTransitionError", err)
	}
	if err := j.UpdateConfig(ocrConfig{}); !errors.As(err, &ite) {
		t.Errorf("UpdateConfig while processing: err = %v, want InvalidTransitionError", err)
	}
}

func TestProps(t *testing.T) {
	j := newOCRJob(1)
	if err := j.SetProp("", "v"); err == nil {
		t.Error("SetProp(\"\"): err = nil, want error")
	}
	if err := j.SetProp("source", "upload"); err != nil {
		t.Fatalf("SetProp: %v", err)
	}
	if v, ok := j.Prop("source"); !ok || v != "upload" {
		t.Errorf("Prop(source) = (%q, %v), want (upload, true)", v, ok)
	}
}

func TestStatusPredicates(t *testing.T) {
	if !Completed.IsTerminal() || !Cancelled.IsTerminal() {
		t.Error("Completed/Cancelled must be terminal")
	}
	if Failed.IsTerminal() {
		t.Error("Failed.IsTerminal() = true, want false (retryable)")
	}
	if Status("weird").IsValid() {
		t.Error(`Status("weird").IsValid() = true, want false`)
	}
}
