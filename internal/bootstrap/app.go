package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"reelforge/internal/config"
	"reelforge/internal/diagnostics"
	"reelforge/internal/domain"
	"reelforge/internal/jobs"
	"reelforge/internal/transcode"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var videoDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Movie files",
		Pattern:     "*.mov;*.mxf",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

var audioDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Audio files",
		Pattern:     "*.wav;*.mxf",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, jobs, the transcode pipeline, and UI runtime
// callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Pipeline    jobPipeline
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	runner      transcode.StepRunner
	logger      hclog.Logger

	mu          sync.Mutex
	activeJobID string
	cancel      context.CancelFunc
	events      *jobs.EventBus
	runtimeCtx  context.Context
}

// jobPipeline isolates the transcode pipeline behind an interface.
type jobPipeline interface {
	Run(ctx context.Context, req transcode.Request) (transcode.Result, error)
}

// New builds the application with persisted settings and startup
// diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".reelforge", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "reelforge",
		Level: hclog.Info,
	})

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	runner := transcode.NewRunner(logger.Named("runner"))

	return &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Pipeline:    transcode.NewPipeline(runner, logger.Named("pipeline")),
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		runner:      runner,
		logger:      logger,
		events:      jobs.NewEventBus(1000),
	}, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Reelforge",
		Width:       1100,
		Height:      740,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for dialogs and push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	return a.Diagnostics, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes
// diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// PickSourceFolder opens a directory picker, scans it for the acceptable
// source kinds, and resolves the choice into an input descriptor. When more
// than one kind is present the operator picks one; when a container kind has
// several candidate files the operator picks the file.
func (a *App) PickSourceFolder(frameRate int) (domain.InputDescriptor, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return domain.InputDescriptor{}, err
	}

	dir, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select source folder",
	})
	if err != nil {
		return domain.InputDescriptor{}, err
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return domain.InputDescriptor{}, nil
	}

	scan, err := transcode.ScanFolder(dir)
	if err != nil {
		return domain.InputDescriptor{}, err
	}

	kinds := scan.Kinds()
	if len(kinds) == 0 {
		return domain.InputDescriptor{}, fmt.Errorf("no .dpx, .mxf, or .mov files found in %s", dir)
	}

	kind := kinds[0]
	if len(kinds) > 1 {
		kind = a.chooseFileType(kinds)
		if kind == "" {
			return domain.InputDescriptor{}, nil
		}
	}

	switch kind {
	case ".dpx":
		return domain.InputDescriptor{
			Kind:      domain.InputKindSequence,
			Directory: dir,
			FrameRate: frameRate,
		}, nil
	case ".mxf":
		path, err := a.pickAmong(scan.MXF)
		if err != nil || path == "" {
			return domain.InputDescriptor{}, err
		}
		return containerDescriptor(path), nil
	default:
		path, err := a.pickAmong(scan.MOV)
		if err != nil || path == "" {
			return domain.InputDescriptor{}, err
		}
		return containerDescriptor(path), nil
	}
}

// PickVideoFile opens a native file dialog for a container video source.
func (a *App) PickVideoFile() (domain.InputDescriptor, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return domain.InputDescriptor{}, err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select video file",
		Filters: videoDialogFilter,
	})
	if err != nil {
		return domain.InputDescriptor{}, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.InputDescriptor{}, nil
	}

	desc := containerDescriptor(path)
	if desc.Kind == "" {
		return domain.InputDescriptor{}, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	return desc, nil
}

// PickAudioFile opens a native file dialog for an audio source. Selecting a
// file that follows the discrete stem naming convention offers to combine
// the set into one interleaved file; the returned path is the combined file
// on confirmation, otherwise the selected one.
func (a *App) PickAudioFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select audio file",
		Filters: audioDialogFilter,
	})
	if err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path == "" || !transcode.IsStemFile(path) {
		return path, nil
	}

	combiner := transcode.NewCombiner(a.ffmpegPath(), a.runner, &dialogConfirmer{app: a})
	combined, err := combiner.Combine(context.Background(), path, func(p transcode.Progress) {
		a.publishEvent(jobs.Event{
			JobID:      "combine-stems",
			Type:       jobs.EventTypeProgress,
			StepName:   "combine-stems",
			Percent:    p.Percent,
			EtaSeconds: p.EtaSeconds,
		})
	})
	if err != nil {
		if errors.Is(err, transcode.ErrIncompleteStemSet) {
			return "", err
		}
		return "", fmt.Errorf("combine audio stems: %w", err)
	}
	return combined, nil
}

// StartJob freezes the hardware profile, creates a job, and runs it
// asynchronously. The returned job snapshot is in validating state.
func (a *App) StartJob(input domain.InputDescriptor, options domain.ConversionOptions) (domain.Job, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Job{}, fmt.Errorf("load settings: %w", err)
	}

	jobID := "job-" + uuid.NewString()
	if err := a.Jobs.Start(jobID); err != nil {
		return domain.Job{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.activeJobID = jobID
	a.cancel = cancel
	a.Settings = settings
	a.mu.Unlock()

	hardware := domain.HardwareProfile{
		AccelAvailable: a.checker.ProbeAcceleration(settings.FFmpegPath),
	}

	a.publishStatus(jobID, domain.JobStatusValidating, "Job started")
	go a.runJob(ctx, jobID, input, options, settings, hardware)

	return a.Jobs.Current(), nil
}

// CancelJob cancels the currently running job, if any.
func (a *App) CancelJob() error {
	a.mu.Lock()
	cancel := a.cancel
	activeJobID := a.activeJobID
	a.mu.Unlock()

	if cancel == nil {
		return jobs.ErrNoRunningJob
	}

	cancel()
	if err := a.Jobs.Cancel(); err != nil && !errors.Is(err, jobs.ErrNoRunningJob) {
		return err
	}

	if activeJobID != "" {
		a.publishStatus(activeJobID, domain.JobStatusCancelled, "Cancellation requested")
	}
	return nil
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// OpenOutputFolder opens the given path (or configured output dir) in the
// platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// runJob executes the pipeline and maps its outcome onto job status and
// events.
func (a *App) runJob(ctx context.Context, jobID string, input domain.InputDescriptor, options domain.ConversionOptions, settings domain.Settings, hardware domain.HardwareProfile) {
	req := transcode.Request{
		Input:      input,
		Options:    options,
		OutputRoot: settings.OutputDir,
		Hardware:   hardware,
		FFmpegPath: a.ffmpegPath(),
		Confirm:    &dialogConfirmer{app: a},
		OnValidated: func(targets domain.OutputTargets, stepCount int) {
			if err := a.Jobs.Transition(domain.JobStatusRunning); err == nil {
				a.Jobs.SetStep(0, stepCount)
				a.publishStatus(jobID, domain.JobStatusRunning, "Validation passed")
			}
		},
		OnStep: func(index, count int, name string) {
			a.Jobs.SetStep(index, count)
			a.publishEvent(jobs.Event{
				JobID:     jobID,
				Type:      jobs.EventTypeStep,
				StepIndex: index,
				StepCount: count,
				StepName:  name,
				Message:   fmt.Sprintf("Step %d/%d: %s", index+1, count, name),
			})
		},
		OnProgress: func(p transcode.Progress) {
			current := a.Jobs.Current()
			a.publishEvent(jobs.Event{
				JobID:      jobID,
				Type:       jobs.EventTypeProgress,
				StepIndex:  current.StepIndex,
				StepCount:  current.StepCount,
				Percent:    p.Percent,
				EtaSeconds: p.EtaSeconds,
			})
		},
		OnStepDone: func(step transcode.Step, result transcode.RunResult) {
			a.publishEvent(jobs.Event{
				JobID:       jobID,
				Type:        jobs.EventTypeLog,
				StepName:    step.ID,
				Message:     fmt.Sprintf("Step %s finished: %s", step.ID, result.Outcome),
				Diagnostics: result.Diagnostics,
			})
		},
	}

	result, err := a.Pipeline.Run(ctx, req)
	if err != nil {
		a.finishWithError(jobID, err)
		return
	}

	if transitionErr := a.Jobs.Transition(domain.JobStatusSucceeded); transitionErr == nil {
		a.publishStatus(jobID, domain.JobStatusSucceeded, "Conversion finished")
	}
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeResult,
		Status:  domain.JobStatusSucceeded,
		Message: "Deliverables written",
		Path:    filepath.Dir(result.Targets.LosslessPath),
	})
	a.clearActiveJob(jobID)
}

// finishWithError maps an error to the terminal job status: cancellation,
// a validation failure falling back to idle, or a failed job.
func (a *App) finishWithError(jobID string, err error) {
	defer a.clearActiveJob(jobID)

	if errors.Is(err, context.Canceled) {
		_ = a.Jobs.Transition(domain.JobStatusCancelled)
		a.publishStatus(jobID, domain.JobStatusCancelled, "Job cancelled")
		return
	}

	var validationErr *transcode.ValidationError
	if errors.As(err, &validationErr) {
		a.publishEvent(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeError,
			Status:  domain.JobStatusIdle,
			Message: validationErr.Error(),
		})
		_ = a.Jobs.Transition(domain.JobStatusIdle)
		return
	}

	_ = a.Jobs.Transition(domain.JobStatusFailed)
	a.publishStatus(jobID, domain.JobStatusFailed, "Job failed")

	event := jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeError,
		Status:  domain.JobStatusFailed,
		Message: err.Error(),
	}
	var stepErr *transcode.StepError
	if errors.As(err, &stepErr) {
		event.StepName = stepErr.StepID
		event.Diagnostics = stepErr.Diagnostics
	}
	a.publishEvent(event)
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status domain.JobStatus, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// clearActiveJob clears cancellation handles for completed job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
		a.cancel = nil
	}
}

// ffmpegPath returns the configured transcoder path, defaulting to PATH
// lookup.
func (a *App) ffmpegPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Settings.FFmpegPath != "" {
		return a.Settings.FFmpegPath
	}
	return "ffmpeg"
}

// chooseFileType asks the operator which of the discovered source kinds to
// use. An empty return means the choice was cancelled.
func (a *App) chooseFileType(kinds []string) string {
	ctx, err := a.runtimeContext()
	if err != nil {
		return ""
	}

	buttons := make([]string, 0, len(kinds)+1)
	for _, kind := range kinds {
		buttons = append(buttons, kind+" files")
	}
	buttons = append(buttons, "Cancel")

	choice, err := wailsruntime.MessageDialog(ctx, wailsruntime.MessageDialogOptions{
		Type:    wailsruntime.QuestionDialog,
		Title:   "Multiple file types found",
		Message: fmt.Sprintf("Found %s files. Please pick one of the alternatives.", strings.Join(kinds, " and ")),
		Buttons: buttons,
	})
	if err != nil {
		return ""
	}
	for _, kind := range kinds {
		if choice == kind+" files" {
			return kind
		}
	}
	return ""
}

// pickAmong returns the single candidate directly or lets the operator pick
// one from the candidates' folder.
func (a *App) pickAmong(files []string) (string, error) {
	if len(files) == 1 {
		return files[0], nil
	}

	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}
	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:            "Select source file",
		DefaultDirectory: filepath.Dir(files[0]),
		Filters:          videoDialogFilter,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

// runtimeContext returns the current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// containerDescriptor classifies a container video path by extension.
func containerDescriptor(path string) domain.InputDescriptor {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mxf":
		return domain.InputDescriptor{Kind: domain.InputKindContainer, Path: path, Container: domain.ContainerMXF}
	case ".mov":
		return domain.InputDescriptor{Kind: domain.InputKindContainer, Path: path, Container: domain.ContainerMOV}
	default:
		return domain.InputDescriptor{}
	}
}

// normalizeSettings trims user inputs and applies defaults for empty
// fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.FFmpegPath = strings.TrimSpace(settings.FFmpegPath)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	if settings.FFmpegPath == "" {
		settings.FFmpegPath = "ffmpeg"
	}
	if settings.FrameRate <= 0 {
		settings.FrameRate = 24
	}
	return settings
}

// openInFileManager launches the platform file explorer for the provided
// path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
