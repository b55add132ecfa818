package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Outcome classifies how a single step run ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Progress is one parsed progress update from the tool's diagnostic stream.
type Progress struct {
	Percent    float64 `json:"percent"`
	EtaSeconds float64 `json:"etaSeconds"`
}

// RunResult is the terminal state of one step subprocess. Diagnostics holds
// the full captured stderr text.
type RunResult struct {
	Outcome     Outcome
	ExitCode    int
	Diagnostics string
}

// StepRunner abstracts subprocess execution for testability.
type StepRunner interface {
	Run(ctx context.Context, step Step, onProgress func(Progress)) (RunResult, error)
}

// Runner executes one step as a supervised child process, draining both
// output streams concurrently and parsing progress markers from stderr.
type Runner struct {
	logger hclog.Logger
	now    func() time.Time
}

// NewRunner builds a runner with the given logger.
func NewRunner(logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{logger: logger, now: time.Now}
}

// Run launches the step's argv, streams stderr for progress and diagnostics,
// and waits for exit. Cancellation through ctx terminates the child; the
// runner still drains remaining output and waits before reporting the
// cancelled outcome. Both pipes are drained concurrently with the wait so a
// full pipe buffer can never stall the child.
func (r *Runner) Run(ctx context.Context, step Step, onProgress func(Progress)) (RunResult, error) {
	cmd := exec.CommandContext(ctx, step.Args[0], step.Args[1:]...)
	if step.LogFile != "" {
		cmd.Env = append(os.Environ(), "FFREPORT=file="+step.LogFile+":level=32")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return RunResult{Outcome: OutcomeFailed}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return RunResult{Outcome: OutcomeFailed}, err
	}

	r.logger.Info("starting step", "step", step.ID, "args", strings.Join(step.Args, " "))
	if err := cmd.Start(); err != nil {
		return RunResult{Outcome: OutcomeFailed}, err
	}

	// Readers push stderr lines into a buffered channel so the parsing loop
	// never blocks the child. Stdout carries the machine-readable progress
	// stream, which is drained and discarded; the human-readable markers on
	// stderr are the source of truth for percent and ETA.
	lines := make(chan string, 256)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Split(scanStatusLines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	go func() {
		wg.Wait()
		close(lines)
	}()

	var diagnostics strings.Builder
	parser := newProgressParser()
	for line := range lines {
		diagnostics.WriteString(line)
		diagnostics.WriteByte('\n')
		if p, ok := parser.Feed(line, r.now()); ok && onProgress != nil {
			onProgress(p)
		}
	}

	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		r.logger.Info("step cancelled", "step", step.ID)
		return RunResult{
			Outcome:     OutcomeCancelled,
			ExitCode:    exitCode(waitErr),
			Diagnostics: diagnostics.String(),
		}, ctx.Err()
	}
	if waitErr != nil {
		r.logger.Error("step failed", "step", step.ID, "exit", exitCode(waitErr))
		return RunResult{
			Outcome:     OutcomeFailed,
			ExitCode:    exitCode(waitErr),
			Diagnostics: diagnostics.String(),
		}, nil
	}

	r.logger.Info("step finished", "step", step.ID)
	return RunResult{Outcome: OutcomeSuccess, Diagnostics: diagnostics.String()}, nil
}

// scanStatusLines splits the diagnostic stream on newline or carriage
// return. The tool rewrites its stats line in place with a bare \r, so a
// newline-only split would hold every progress marker back until exit and
// let the unterminated token outgrow the scanner buffer.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// exitCode extracts the process exit code, -1 when unknown.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

var (
	durationMarker = regexp.MustCompile(`Duration: (\d+):(\d+):(\d+)\.(\d+)`)
	timeMarker     = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
)

// progressParser computes completion percentage from the tool's stderr
// markers. The total duration is parsed once from the first duration marker;
// the current source position is re-parsed from every time marker. No update
// is emitted before the total is known.
type progressParser struct {
	totalSeconds float64
	startedAt    time.Time
}

func newProgressParser() *progressParser {
	return &progressParser{}
}

// Feed consumes one diagnostic line. It returns a progress update and true
// when the line carried a usable time marker.
func (p *progressParser) Feed(line string, now time.Time) (Progress, bool) {
	if p.totalSeconds == 0 {
		if m := durationMarker.FindStringSubmatch(line); m != nil {
			p.totalSeconds = markerSeconds(m)
			p.startedAt = now
		}
		return Progress{}, false
	}

	m := timeMarker.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}

	percent := markerSeconds(m) / p.totalSeconds * 100
	var eta float64
	if percent > 0 {
		eta = now.Sub(p.startedAt).Seconds() * (100 - percent) / percent
	}
	return Progress{Percent: percent, EtaSeconds: eta}, true
}

// markerSeconds converts the H:M:S submatches of a marker to whole seconds.
func markerSeconds(m []string) float64 {
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	return float64(hours*3600 + minutes*60 + seconds)
}
