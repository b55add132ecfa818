package transcode

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"reelforge/internal/domain"
)

// defaultFrameRate applies when a sequence job does not specify one.
const defaultFrameRate = 24

// Request contains one job's inputs, toggles, and execution callbacks.
// Confirm is required; the remaining callbacks are optional.
type Request struct {
	Input      domain.InputDescriptor
	Options    domain.ConversionOptions
	OutputRoot string
	Hardware   domain.HardwareProfile
	FFmpegPath string
	Confirm    Confirmer

	// OnValidated fires once after validation passes, before any
	// subprocess starts.
	OnValidated func(targets domain.OutputTargets, stepCount int)
	OnStep      func(index, count int, name string)
	OnProgress  func(Progress)
	OnStepDone  func(step Step, result RunResult)
}

// Result lists what a completed job produced.
type Result struct {
	Targets domain.OutputTargets
	Steps   []string
}

// Pipeline validates a job, plans its ordered step list, and drives the
// runner through it, halting on the first failure.
type Pipeline struct {
	runner StepRunner
	logger hclog.Logger
	stat   func(string) (os.FileInfo, error)
}

// NewPipeline constructs the production pipeline.
func NewPipeline(runner StepRunner, logger hclog.Logger) *Pipeline {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Pipeline{runner: runner, logger: logger, stat: os.Stat}
}

// NewPipelineForTests constructs a pipeline with an injectable stat.
func NewPipelineForTests(runner StepRunner, stat func(string) (os.FileInfo, error)) *Pipeline {
	return &Pipeline{runner: runner, logger: hclog.NewNullLogger(), stat: stat}
}

// Run executes one conversion job end to end. Validation failures return
// before any subprocess starts; a failed step halts the remaining list; a
// context cancellation surfaces as context.Canceled once the active child
// has been terminated.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	opts := req.Options.Normalize()

	input, firstFrame, err := p.validateInput(req.Input, opts)
	if err != nil {
		return Result{}, err
	}
	if input.Kind == domain.InputKindSequence {
		if !req.Confirm.ConfirmFirstFrame(firstFrame, input.Directory) {
			return Result{}, &ValidationError{
				Message: "first frame not confirmed",
				Err:     ErrAborted,
			}
		}
	}

	targets, err := ResolveTargets(input, req.OutputRoot)
	if err != nil {
		return Result{}, err
	}

	audioPath := p.effectiveAudio(opts)
	policy := &OverwritePolicy{confirm: req.Confirm, stat: p.stat}
	decisions := Decisions{
		Lossless: policy.Decide(targets.LosslessPath, opts.IncludeMezzanine),
		Prores:   policy.Decide(targets.ProresPath, opts.IncludeProres),
		H264:     policy.Decide(targets.H264Path, true),
	}

	ffmpegPath := req.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	builder := &Builder{FFmpegPath: ffmpegPath, Hardware: req.Hardware}
	steps := PlanSteps(builder, input, opts, targets, decisions, audioPath)

	if req.OnValidated != nil {
		req.OnValidated(targets, len(steps))
	}

	result := Result{Targets: targets}
	for i, step := range steps {
		if req.OnStep != nil {
			req.OnStep(i, len(steps), step.ID)
		}
		p.logger.Info("running step", "step", step.ID, "index", i+1, "count", len(steps))

		runResult, runErr := p.runner.Run(ctx, step, req.OnProgress)
		if req.OnStepDone != nil {
			req.OnStepDone(step, runResult)
		}
		if runErr != nil {
			return result, runErr
		}
		if runResult.Outcome == OutcomeFailed {
			return result, &StepError{
				StepID:      step.ID,
				ExitCode:    runResult.ExitCode,
				Diagnostics: runResult.Diagnostics,
			}
		}
		result.Steps = append(result.Steps, step.ID)
	}

	return result, nil
}

// validateInput resolves the effective input descriptor for the job and
// verifies its source exists. For sequences the frame files are detected
// here so that no command is ever built against an empty folder; the path
// of the first detected frame is returned for the confirmation prompt.
func (p *Pipeline) validateInput(input domain.InputDescriptor, opts domain.ConversionOptions) (domain.InputDescriptor, string, error) {
	if opts.AudioOnly {
		if opts.AudioFilePath == "" {
			return domain.InputDescriptor{}, "", &ValidationError{Message: "no audio file selected", Err: ErrNoInput}
		}
		if _, err := p.stat(opts.AudioFilePath); err != nil {
			return domain.InputDescriptor{}, "", &ValidationError{
				Message: fmt.Sprintf("cannot access audio file %s", opts.AudioFilePath),
				Err:     err,
			}
		}
		return domain.InputDescriptor{Kind: domain.InputKindAudio, Path: opts.AudioFilePath}, "", nil
	}

	switch input.Kind {
	case domain.InputKindSequence:
		if input.Directory == "" {
			return domain.InputDescriptor{}, "", &ValidationError{Message: "no folder selected", Err: ErrNoInput}
		}
		rate := input.FrameRate
		if rate <= 0 {
			rate = defaultFrameRate
		}
		detected, firstFrame, err := DetectSequence(input.Directory, rate)
		if err != nil {
			return domain.InputDescriptor{}, "", err
		}
		return detected, firstFrame, nil

	case domain.InputKindContainer:
		if input.Path == "" {
			return domain.InputDescriptor{}, "", &ValidationError{Message: "no file selected", Err: ErrNoInput}
		}
		if _, err := p.stat(input.Path); err != nil {
			return domain.InputDescriptor{}, "", &ValidationError{
				Message: fmt.Sprintf("cannot access input file %s", input.Path),
				Err:     err,
			}
		}
		return input, "", nil

	default:
		return domain.InputDescriptor{}, "", &ValidationError{Message: "no input selected", Err: ErrNoInput}
	}
}

// effectiveAudio returns the audio path to mux, empty when audio is not
// requested or the file is missing on disk.
func (p *Pipeline) effectiveAudio(opts domain.ConversionOptions) string {
	if !opts.IncludeAudio || opts.AudioFilePath == "" {
		return ""
	}
	if _, err := p.stat(opts.AudioFilePath); err != nil {
		return ""
	}
	return opts.AudioFilePath
}

// PlanSteps resolves the ordered step list for a job from the three
// deliverable toggles and the input kind. The mapping is a closed
// enumeration: every runnable step is constructed here, in execution order.
//
//	container          -> [lossless?, prores?, h264-from-source]
//	sequence  --/--    -> [h264-direct]
//	sequence  --/pr    -> [prores-from-frames, h264-direct]
//	sequence  mz/--    -> [lossless, h264-from-lossless]
//	sequence  mz/pr    -> [lossless, (normalize), prores, h264-from-lossless]
//	audio-only         -> [audio-lossless?, audio-aac]
//
// The normalize step appears only when hardware acceleration is available.
func PlanSteps(b *Builder, in domain.InputDescriptor, opts domain.ConversionOptions, t domain.OutputTargets, dec Decisions, audioPath string) []Step {
	if opts.AudioOnly || in.Kind == domain.InputKindAudio {
		var steps []Step
		if opts.IncludeMezzanine {
			steps = append(steps, b.AudioLossless(in.Path, t, dec.Lossless))
		}
		return append(steps, b.AudioAAC(in.Path, t, dec.H264))
	}

	if in.Kind == domain.InputKindContainer {
		var steps []Step
		if opts.IncludeMezzanine {
			steps = append(steps, b.ContainerLossless(in, t, audioPath, dec.Lossless))
		}
		if opts.IncludeProres {
			steps = append(steps, b.ContainerProres(in, t, audioPath, dec.Prores))
		}
		return append(steps, b.ContainerH264(in, t, audioPath, dec.H264))
	}

	switch {
	case !opts.IncludeMezzanine && !opts.IncludeProres:
		return []Step{b.SequenceDirectH264(in, t, audioPath, dec.H264)}

	case !opts.IncludeMezzanine && opts.IncludeProres:
		return []Step{
			b.SequenceProres(in, t, audioPath, dec.Prores),
			b.SequenceDirectH264(in, t, audioPath, dec.H264),
		}

	case opts.IncludeMezzanine && !opts.IncludeProres:
		return []Step{
			b.SequenceLossless(in, t, audioPath, dec.Lossless),
			b.H264FromLossless(t, dec.H264),
		}

	default:
		steps := []Step{b.SequenceLossless(in, t, audioPath, dec.Lossless)}
		if b.Hardware.AccelAvailable {
			steps = append(steps, b.ProresNormalize(t, dec.Prores))
		}
		return append(steps,
			b.ProresFromLossless(t, dec.Prores),
			b.H264FromLossless(t, dec.H264),
		)
	}
}
