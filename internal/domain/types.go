package domain

// JobStatus tracks the lifecycle of a single conversion job.
type JobStatus string

const (
	JobStatusIdle       JobStatus = "idle"
	JobStatusValidating JobStatus = "validating"
	JobStatusRunning    JobStatus = "running"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// InputKind identifies which of the three supported source types a job reads.
type InputKind string

const (
	InputKindSequence  InputKind = "sequence"
	InputKindContainer InputKind = "container"
	InputKindAudio     InputKind = "audio"
)

// ContainerKind narrows container inputs to the supported wrappers.
type ContainerKind string

const (
	ContainerMXF ContainerKind = "mxf"
	ContainerMOV ContainerKind = "mov"
)

// InputDescriptor describes exactly one job source. Kind selects which
// fields are meaningful: Directory/FilenamePrefix/FirstFrame/FrameRate for
// sequences, Path/Container for container video, Path for audio-only jobs.
type InputDescriptor struct {
	Kind           InputKind     `json:"kind"`
	Directory      string        `json:"directory,omitempty"`
	FilenamePrefix string        `json:"filenamePrefix,omitempty"`
	FirstFrame     int           `json:"firstFrame,omitempty"`
	FrameRate      int           `json:"frameRate,omitempty"`
	Path           string        `json:"path,omitempty"`
	Container      ContainerKind `json:"container,omitempty"`
}

// ConversionOptions holds the operator toggles for one job.
type ConversionOptions struct {
	IncludeAudio     bool   `json:"includeAudio"`
	IncludeProres    bool   `json:"includeProres"`
	IncludeMezzanine bool   `json:"includeMezzanine"`
	AudioOnly        bool   `json:"audioOnly"`
	AudioFilePath    string `json:"audioFilePath,omitempty"`
}

// Normalize enforces the toggle invariants: audio-only forces ProRes off
// and audio on.
func (o ConversionOptions) Normalize() ConversionOptions {
	if o.AudioOnly {
		o.IncludeProres = false
		o.IncludeAudio = true
	}
	return o
}

// HardwareProfile captures encoder capability, resolved once per job and
// immutable afterwards.
type HardwareProfile struct {
	AccelAvailable bool `json:"accelAvailable"`
}

// OutputTargets are the deliverable paths derived for one job.
type OutputTargets struct {
	LosslessPath string `json:"losslessPath"`
	ProresPath   string `json:"proresPath"`
	H264Path     string `json:"h264Path"`
	TempPath     string `json:"tempPath"`
	LogDir       string `json:"logDir"`
}

// OverwriteDecision is the per-target outcome of the overwrite check.
type OverwriteDecision string

const (
	OverwriteProceed OverwriteDecision = "proceed"
	OverwriteSkip    OverwriteDecision = "skip"
	OverwriteAbort   OverwriteDecision = "abort"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	FFmpegPath string `json:"ffmpegPath"`
	OutputDir  string `json:"outputDir"`
	FrameRate  int    `json:"frameRate"`
}

// Job stores the current job identity, lifecycle status, and step position.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	StepIndex int       `json:"stepIndex"`
	StepCount int       `json:"stepCount"`
}
