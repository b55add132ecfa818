package bootstrap

import (
	"context"
	"errors"
	"testing"

	"reelforge/internal/domain"
	"reelforge/internal/jobs"
	"reelforge/internal/transcode"
)

func testApp() *App {
	return &App{
		Jobs:   jobs.NewManager(),
		events: jobs.NewEventBus(100),
	}
}

// lastEventOfType scans the bus history backwards for a type.
func lastEventOfType(t *testing.T, app *App, want jobs.EventType) jobs.Event {
	t.Helper()
	history := app.events.Since(0)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Type == want {
			return history[i]
		}
	}
	t.Fatalf("no %s event in %d events", want, len(history))
	return jobs.Event{}
}

// TestNormalizeSettings checks trimming and defaults.
func TestNormalizeSettings(t *testing.T) {
	got := normalizeSettings(domain.Settings{
		FFmpegPath: "  /opt/ffmpeg  ",
		OutputDir:  " /srv/out ",
		FrameRate:  25,
	})
	if got.FFmpegPath != "/opt/ffmpeg" || got.OutputDir != "/srv/out" || got.FrameRate != 25 {
		t.Fatalf("normalized = %+v", got)
	}

	got = normalizeSettings(domain.Settings{})
	if got.FFmpegPath != "ffmpeg" {
		t.Fatalf("default transcoder = %q, want ffmpeg", got.FFmpegPath)
	}
	if got.FrameRate != 24 {
		t.Fatalf("default frame rate = %d, want 24", got.FrameRate)
	}
}

// TestContainerDescriptor checks extension classification.
func TestContainerDescriptor(t *testing.T) {
	desc := containerDescriptor("/in/Tape.MXF")
	if desc.Kind != domain.InputKindContainer || desc.Container != domain.ContainerMXF {
		t.Fatalf("mxf descriptor = %+v", desc)
	}

	desc = containerDescriptor("/in/grade.mov")
	if desc.Container != domain.ContainerMOV {
		t.Fatalf("mov descriptor = %+v", desc)
	}

	if desc := containerDescriptor("/in/frame.dpx"); desc.Kind != "" {
		t.Fatalf("dpx descriptor = %+v, want empty", desc)
	}
}

// TestFinishWithErrorCancellation checks cancellation maps to the cancelled
// status.
func TestFinishWithErrorCancellation(t *testing.T) {
	app := testApp()
	if err := app.Jobs.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	app.finishWithError("job-1", context.Canceled)

	if got := app.Jobs.Current().Status; got != domain.JobStatusCancelled {
		t.Fatalf("status = %v, want cancelled", got)
	}
	event := lastEventOfType(t, app, jobs.EventTypeStatus)
	if event.Status != domain.JobStatusCancelled {
		t.Fatalf("event status = %v, want cancelled", event.Status)
	}
}

// TestFinishWithErrorValidationFallsBackToIdle checks validation failures
// return the job to idle with an error event.
func TestFinishWithErrorValidationFallsBackToIdle(t *testing.T) {
	app := testApp()
	if err := app.Jobs.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	app.finishWithError("job-1", &transcode.ValidationError{
		Message: "no folder selected",
		Err:     transcode.ErrNoInput,
	})

	if got := app.Jobs.Current().Status; got != domain.JobStatusIdle {
		t.Fatalf("status = %v, want idle", got)
	}
	event := lastEventOfType(t, app, jobs.EventTypeError)
	if event.Message == "" {
		t.Fatal("error event missing message")
	}
}

// TestFinishWithErrorStepFailure checks step failures mark the job failed
// and carry the step diagnostics.
func TestFinishWithErrorStepFailure(t *testing.T) {
	app := testApp()
	if err := app.Jobs.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := app.Jobs.Transition(domain.JobStatusRunning); err != nil {
		t.Fatalf("to running error = %v", err)
	}

	app.finishWithError("job-1", &transcode.StepError{
		StepID:      "lossless",
		ExitCode:    1,
		Diagnostics: "No such file or directory",
	})

	if got := app.Jobs.Current().Status; got != domain.JobStatusFailed {
		t.Fatalf("status = %v, want failed", got)
	}
	event := lastEventOfType(t, app, jobs.EventTypeError)
	if event.StepName != "lossless" {
		t.Fatalf("event step = %q, want lossless", event.StepName)
	}
	if event.Diagnostics != "No such file or directory" {
		t.Fatalf("event diagnostics = %q", event.Diagnostics)
	}
}

// TestFinishWithErrorFilesystemFailureDuringValidation checks unexpected
// errors before running still mark the job failed.
func TestFinishWithErrorFilesystemFailureDuringValidation(t *testing.T) {
	app := testApp()
	if err := app.Jobs.Start("job-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	app.finishWithError("job-1", errors.New("create output directory: permission denied"))

	if got := app.Jobs.Current().Status; got != domain.JobStatusFailed {
		t.Fatalf("status = %v, want failed", got)
	}
}

// TestCancelJobWithoutActiveJob checks the no-op error shape.
func TestCancelJobWithoutActiveJob(t *testing.T) {
	app := testApp()

	if err := app.CancelJob(); !errors.Is(err, jobs.ErrNoRunningJob) {
		t.Fatalf("CancelJob() error = %v, want ErrNoRunningJob", err)
	}
}

// TestJobEventsIncrementalRead checks the binding exposes the event history
// incrementally.
func TestJobEventsIncrementalRead(t *testing.T) {
	app := testApp()
	app.publishStatus("job-1", domain.JobStatusValidating, "Job started")
	app.publishStatus("job-1", domain.JobStatusRunning, "Validation passed")

	all := app.JobEvents(0)
	if len(all) != 2 {
		t.Fatalf("events = %d, want 2", len(all))
	}
	tail := app.JobEvents(all[0].Seq)
	if len(tail) != 1 || tail[0].Status != domain.JobStatusRunning {
		t.Fatalf("incremental events = %+v", tail)
	}
}
