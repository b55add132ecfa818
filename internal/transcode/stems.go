package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// stemChannelOrder fixes the input order of the six discrete stems; output
// channels 0-5 map one-to-one onto this order.
var stemChannelOrder = [6]string{"L", "R", "C", "LFE", "Ls", "Rs"}

// stemTagPattern matches the case-sensitive channel tag immediately before
// the extension of a discrete stem filename.
var stemTagPattern = regexp.MustCompile(`\.(L|R|C|LFE|Ls|Rs)\.wav$`)

// StemSet is a complete set of six sibling stem files sharing one base name.
type StemSet struct {
	Base  string
	Dir   string
	Files [6]string // ordered L, R, C, LFE, Ls, Rs
}

// IsStemFile reports whether a filename follows the discrete stem naming
// convention.
func IsStemFile(path string) bool {
	return stemTagPattern.MatchString(filepath.Base(path))
}

// FindStemSet strips the channel tag from the selected file to recover the
// base name and probes for all six siblings. Fewer than six present is an
// ErrIncompleteStemSet validation failure.
func FindStemSet(selected string) (StemSet, error) {
	name := filepath.Base(selected)
	if !stemTagPattern.MatchString(name) {
		return StemSet{}, &ValidationError{
			Message: fmt.Sprintf("%s does not follow the stem naming convention", name),
			Err:     ErrIncompleteStemSet,
		}
	}

	dir := filepath.Dir(selected)
	base := stemTagPattern.ReplaceAllString(name, "")

	set := StemSet{Base: base, Dir: dir}
	var missing []string
	for i, tag := range stemChannelOrder {
		candidate := filepath.Join(dir, base+"."+tag+".wav")
		if _, err := os.Stat(candidate); err != nil {
			missing = append(missing, tag)
			continue
		}
		set.Files[i] = candidate
	}
	if len(missing) > 0 {
		return StemSet{}, &ValidationError{
			Message: fmt.Sprintf("missing stem channels: %s", strings.Join(missing, ", ")),
			Err:     ErrIncompleteStemSet,
		}
	}
	return set, nil
}

// CombinedPath returns the output path for the merged interleaved file.
func (s StemSet) CombinedPath() string {
	return filepath.Join(s.Dir, s.Base+"_combined.wav")
}

// Combiner merges discrete stem sets through the process runner.
type Combiner struct {
	builder   *Builder
	runner    StepRunner
	overwrite *OverwritePolicy
	confirm   Confirmer
}

// NewCombiner builds a combiner sharing the job pipeline's runner.
func NewCombiner(ffmpegPath string, runner StepRunner, confirm Confirmer) *Combiner {
	return &Combiner{
		builder:   &Builder{FFmpegPath: ffmpegPath},
		runner:    runner,
		overwrite: NewOverwritePolicy(confirm),
		confirm:   confirm,
	}
}

// Combine verifies the stem set named by the selected file and, with
// operator confirmation, merges it into one interleaved file, returning its
// path. Declining the confirmation returns the originally selected file
// unchanged; an incomplete set fails without producing output.
func (c *Combiner) Combine(ctx context.Context, selected string, onProgress func(Progress)) (string, error) {
	set, err := FindStemSet(selected)
	if err != nil {
		return "", err
	}

	if !c.confirm.ConfirmCombineStems() {
		return selected, nil
	}

	out := set.CombinedPath()
	dec := c.overwrite.Decide(out, true)
	step := c.builder.CombineStems(set, out, dec)

	result, err := c.runner.Run(ctx, step, onProgress)
	if err != nil {
		return "", err
	}
	if result.Outcome != OutcomeSuccess {
		return "", &StepError{
			StepID:      step.ID,
			ExitCode:    result.ExitCode,
			Diagnostics: result.Diagnostics,
		}
	}
	return out, nil
}
