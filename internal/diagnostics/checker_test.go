package diagnostics

import (
	"errors"
	"os"
	"testing"

	"reelforge/internal/domain"
)

func passingChecker(runTool func(name string, args ...string) (string, error)) *Checker {
	return NewCheckerForTests(
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		func(string, os.FileMode) error { return nil },
		os.CreateTemp,
		os.Remove,
		runTool,
	)
}

// TestRunAllChecksPass checks the report shape with everything healthy.
func TestRunAllChecksPass(t *testing.T) {
	checker := passingChecker(func(name string, args ...string) (string, error) {
		return "cuda\nvaapi", nil
	})

	report := checker.Run(domain.Settings{FFmpegPath: "ffmpeg"})

	if report.HasFailures {
		t.Fatalf("HasFailures = true, items = %+v", report.Items)
	}
	if len(report.Items) != 2 {
		t.Fatalf("items = %d, want 2 without output dir", len(report.Items))
	}
	if !report.AccelAvailable {
		t.Fatal("AccelAvailable = false, want true")
	}
	if report.GeneratedAt.IsZero() {
		t.Fatal("GeneratedAt not set")
	}
}

// TestRunMissingTool checks a missing executable fails the report.
func TestRunMissingTool(t *testing.T) {
	checker := NewCheckerForTests(
		func(name string) (string, error) {
			if name == "ffprobe" {
				return "", errors.New("not found")
			}
			return "/usr/bin/" + name, nil
		},
		func(string, os.FileMode) error { return nil },
		os.CreateTemp,
		os.Remove,
		func(name string, args ...string) (string, error) { return "", errors.New("no tool") },
	)

	report := checker.Run(domain.Settings{})

	if !report.HasFailures {
		t.Fatal("HasFailures = false, want true")
	}
	var failed *domain.DiagnosticItem
	for i := range report.Items {
		if report.Items[i].Status == domain.DiagnosticStatusFail {
			failed = &report.Items[i]
		}
	}
	if failed == nil || failed.Name != "ffprobe" {
		t.Fatalf("failed item = %+v, want ffprobe", failed)
	}
	if failed.Hint == "" {
		t.Fatal("failed item missing hint")
	}
}

// TestRunUsesConfiguredTranscoderPath checks the override is probed instead
// of the default name.
func TestRunUsesConfiguredTranscoderPath(t *testing.T) {
	var probed []string
	checker := NewCheckerForTests(
		func(name string) (string, error) {
			probed = append(probed, name)
			return "/x/" + name, nil
		},
		func(string, os.FileMode) error { return nil },
		os.CreateTemp,
		os.Remove,
		func(name string, args ...string) (string, error) { return "", errors.New("no accel") },
	)

	checker.Run(domain.Settings{FFmpegPath: "/opt/ffmpeg/bin/ffmpeg"})

	if len(probed) == 0 || probed[0] != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("probed = %v, want configured path first", probed)
	}
}

// TestRunChecksOutputDirWhenConfigured checks the optional writability item.
func TestRunChecksOutputDirWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
		func(name string, args ...string) (string, error) { return "", errors.New("no accel") },
	)

	report := checker.Run(domain.Settings{OutputDir: dir})

	if len(report.Items) != 3 {
		t.Fatalf("items = %d, want 3 with output dir", len(report.Items))
	}
	last := report.Items[2]
	if last.ID != "output_dir" || last.Status != domain.DiagnosticStatusPass {
		t.Fatalf("output dir item = %+v", last)
	}
}

// TestRunOutputDirNotWritable checks creation failure maps to a fail item.
func TestRunOutputDirNotWritable(t *testing.T) {
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		func(string, os.FileMode) error { return errors.New("read-only filesystem") },
		os.CreateTemp,
		os.Remove,
		func(name string, args ...string) (string, error) { return "", errors.New("no accel") },
	)

	report := checker.Run(domain.Settings{OutputDir: "/mnt/ro"})

	if !report.HasFailures {
		t.Fatal("HasFailures = false, want true")
	}
}

// TestProbeAcceleration checks the two-stage hardware probe.
func TestProbeAcceleration(t *testing.T) {
	cases := []struct {
		name    string
		hwOut   string
		hwErr   error
		smiErr  error
		want    bool
	}{
		{"cuda and device", "Hardware acceleration methods:\ncuda\nvulkan", nil, nil, true},
		{"no cuda support", "Hardware acceleration methods:\nvaapi", nil, nil, false},
		{"probe fails", "", errors.New("exec format error"), nil, false},
		{"no device", "cuda", nil, errors.New("exit status 9"), false},
	}

	for _, tc := range cases {
		checker := passingChecker(func(name string, args ...string) (string, error) {
			if name == "nvidia-smi" {
				return "", tc.smiErr
			}
			return tc.hwOut, tc.hwErr
		})

		if got := checker.ProbeAcceleration("ffmpeg"); got != tc.want {
			t.Fatalf("%s: ProbeAcceleration() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
