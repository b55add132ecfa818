package transcode

import (
	"os"

	"reelforge/internal/domain"
)

// Confirmer is the synchronous operator prompt collaborator. The pipeline
// blocks the current step on each answer.
type Confirmer interface {
	ConfirmOverwrite(path string) bool
	ConfirmFirstFrame(framePath, folder string) bool
	ConfirmCombineStems() bool
}

// OverwritePolicy decides per target path whether production proceeds,
// is skipped, or was never requested. It never returns abort on its own;
// aborts are reserved for upstream validation failures.
type OverwritePolicy struct {
	confirm Confirmer
	stat    func(string) (os.FileInfo, error)
}

// NewOverwritePolicy builds a policy backed by the real filesystem.
func NewOverwritePolicy(confirm Confirmer) *OverwritePolicy {
	return &OverwritePolicy{confirm: confirm, stat: os.Stat}
}

// Decide returns skip without touching the filesystem when the deliverable
// was not requested, proceed when the target does not exist, and otherwise
// maps the operator's overwrite answer to proceed or skip.
func (p *OverwritePolicy) Decide(path string, requested bool) domain.OverwriteDecision {
	if !requested {
		return domain.OverwriteSkip
	}
	if _, err := p.stat(path); err != nil {
		return domain.OverwriteProceed
	}
	if p.confirm.ConfirmOverwrite(path) {
		return domain.OverwriteProceed
	}
	return domain.OverwriteSkip
}

// overwriteFlag translates a decision into the external tool's two-value
// clobber flag appended at the end of every argv. "-n" makes the tool
// refuse to overwrite, which is how skip is communicated without building
// conditional argv branches.
func overwriteFlag(d domain.OverwriteDecision) string {
	if d == domain.OverwriteProceed {
		return "-y"
	}
	return "-n"
}
