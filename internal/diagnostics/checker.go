package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"reelforge/internal/domain"
)

// Checker validates the external transcoder and required filesystem paths,
// and probes hardware encode capability.
type Checker struct {
	lookPath   func(string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
	runTool    func(name string, args ...string) (string, error)
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
		runTool: func(name string, args ...string) (string, error) {
			out, err := exec.Command(name, args...).Output()
			return string(out), err
		},
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	ffmpeg := settings.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	items := []domain.DiagnosticItem{
		c.checkTool(ffmpeg),
		c.checkTool("ffprobe"),
	}
	if settings.OutputDir != "" {
		items = append(items, c.checkOutputDir(settings.OutputDir))
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt:    time.Now().UTC(),
		HasFailures:    hasFailures,
		AccelAvailable: c.ProbeAcceleration(ffmpeg),
		Items:          items,
	}
}

// ProbeAcceleration reports whether hardware-accelerated encoding can be
// used: the transcoder must list cuda among its accelerators and an NVIDIA
// device must answer nvidia-smi. Any probe failure means software encoding.
func (c *Checker) ProbeAcceleration(ffmpegPath string) bool {
	out, err := c.runTool(ffmpegPath, "-hwaccels")
	if err != nil {
		return false
	}
	if !strings.Contains(out, "cuda") {
		return false
	}
	if _, err := c.runTool("nvidia-smi"); err != nil {
		return false
	}
	return true
}

// checkTool verifies a required CLI executable is on PATH or at the
// configured location.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found: %s", name),
			Hint:    "Install it and ensure the binary is available on PATH before starting a conversion job.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for the deliverables."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
	runTool func(name string, args ...string) (string, error),
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
		runTool:    runTool,
	}
}
