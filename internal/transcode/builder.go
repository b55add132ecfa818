package transcode

import (
	"path/filepath"
	"strconv"

	"reelforge/internal/domain"
)

// Step is one immutable transcoder invocation. Args is the complete argument
// vector including the tool path at index 0 and the clobber flag at the end.
// ID is the human-readable stage name used for progress reporting and log
// naming; LogFile is where the tool writes its own structured log when the
// reporting hook is set.
type Step struct {
	ID       string   `json:"id"`
	Args     []string `json:"args"`
	WritesTo string   `json:"writesTo"`
	LogFile  string   `json:"logFile"`
}

// Decisions carries the per-deliverable overwrite outcomes resolved before
// commands are built.
type Decisions struct {
	Lossless domain.OverwriteDecision
	Prores   domain.OverwriteDecision
	H264     domain.OverwriteDecision
}

// Builder constructs argument vectors for every transcode step. Pure
// construction: no I/O beyond reading the frozen hardware profile.
type Builder struct {
	FFmpegPath string
	Hardware   domain.HardwareProfile
}

// base returns the shared preamble: verbose diagnostics plus machine-readable
// progress on stdout.
func (b *Builder) base() []string {
	return []string{b.FFmpegPath, "-v", "info", "-stats", "-progress", "-"}
}

// hwaccel returns the decode acceleration hint for the profile.
func (b *Builder) hwaccel() []string {
	if b.Hardware.AccelAvailable {
		return []string{"-hwaccel", "cuda"}
	}
	return []string{"-hwaccel", "auto"}
}

// encoder returns the codec and pixel-format pair for the profile. The
// 10-bit 4:2:2 pixel format is shared; only the codec differs.
func (b *Builder) encoder() []string {
	if b.Hardware.AccelAvailable {
		return []string{"-c:v", "hevc_nvenc", "-pix_fmt", "yuv422p10le"}
	}
	return []string{"-c:v", "libx264", "-pix_fmt", "yuv422p10le"}
}

// sequenceInput builds the image2 demuxer arguments for a frame sequence.
func sequenceInput(in domain.InputDescriptor) []string {
	return []string{
		"-f", "image2",
		"-vsync", "0",
		"-framerate", strconv.Itoa(in.FrameRate),
		"-start_number", strconv.Itoa(in.FirstFrame),
		"-i", framePattern(in),
	}
}

// stepLog returns the per-step structured log path under the job's log dir.
func stepLog(t domain.OutputTargets, id string) string {
	return filepath.Join(t.LogDir, id+".log")
}

// SequenceLossless encodes the frame sequence into the lossless
// intermediate, muxing the audio file in with a copy codec when present.
func (b *Builder) SequenceLossless(in domain.InputDescriptor, t domain.OutputTargets, audioPath string, dec domain.OverwriteDecision) Step {
	args := append(b.base(), b.hwaccel()...)
	args = append(args, sequenceInput(in)...)
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	args = append(args, b.encoder()...)
	if audioPath != "" {
		args = append(args, "-c:a", "copy")
	}
	args = append(args,
		"-preset", "slow",
		"-qp", "0",
		t.LosslessPath, overwriteFlag(dec),
	)
	return Step{ID: "lossless", Args: args, WritesTo: t.LosslessPath, LogFile: stepLog(t, "lossless")}
}

// SequenceDirectH264 encodes the distribution copy in a single pass from
// the source frames, used when no intermediate is produced. With audio
// present the two input streams are mapped explicitly to avoid ambiguous
// auto-mapping.
func (b *Builder) SequenceDirectH264(in domain.InputDescriptor, t domain.OutputTargets, audioPath string, dec domain.OverwriteDecision) Step {
	args := append(b.base(), b.hwaccel()...)
	args = append(args, sequenceInput(in)...)
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	args = append(args,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-vf", "scale=-2:1080",
		"-preset", "slow",
		"-crf", "23",
	)
	if audioPath != "" {
		args = append(args,
			"-c:a", "aac",
			"-b:a", "224k",
			"-map", "0:v:0",
			"-map", "1:a:0",
		)
	} else {
		args = append(args, "-map", "0:v:0")
	}
	args = append(args, t.H264Path, overwriteFlag(dec))
	return Step{ID: "h264-direct", Args: args, WritesTo: t.H264Path, LogFile: stepLog(t, "h264-direct")}
}

// SequenceProres encodes the mezzanine directly from the source frames,
// used when no lossless intermediate is produced.
func (b *Builder) SequenceProres(in domain.InputDescriptor, t domain.OutputTargets, audioPath string, dec domain.OverwriteDecision) Step {
	args := append(b.base(), b.hwaccel()...)
	args = append(args, sequenceInput(in)...)
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	args = append(args,
		"-c:v", "prores",
		"-profile:v", "3",
		"-vf", "scale=-2:1080,format=yuv422p10le",
		"-c:a", "pcm_s16le",
		t.ProresPath, overwriteFlag(dec),
	)
	return Step{ID: "prores", Args: args, WritesTo: t.ProresPath, LogFile: stepLog(t, "prores")}
}

// ProresNormalize produces the colorspace-normalized temp copy of the
// lossless intermediate. Only used with hardware acceleration, where the
// accelerated decode otherwise mismatches the ProRes input colorspace.
func (b *Builder) ProresNormalize(t domain.OutputTargets, dec domain.OverwriteDecision) Step {
	args := append(b.base(),
		"-i", t.LosslessPath,
		"-pix_fmt", "yuv422p10le",
		"-vf", "scale=in_color_matrix=bt709:out_color_matrix=bt709",
		t.TempPath, overwriteFlag(dec),
	)
	return Step{ID: "prores-normalize", Args: args, WritesTo: t.TempPath, LogFile: stepLog(t, "prores-normalize")}
}

// ProresFromLossless encodes the mezzanine from the lossless intermediate,
// or from the normalized temp copy when acceleration is available.
func (b *Builder) ProresFromLossless(t domain.OutputTargets, dec domain.OverwriteDecision) Step {
	src := t.LosslessPath
	if b.Hardware.AccelAvailable {
		src = t.TempPath
	}
	args := append(b.base(),
		"-hwaccel", "auto",
		"-i", src,
		"-vf", "scale=-2:1080,format=yuv422p10le",
		"-c:v", "prores",
		"-profile:v", "3",
		"-c:a", "pcm_s16le",
		t.ProresPath, overwriteFlag(dec),
	)
	return Step{ID: "prores", Args: args, WritesTo: t.ProresPath, LogFile: stepLog(t, "prores")}
}

// H264FromLossless encodes the distribution copy from the lossless
// intermediate through the profile's encoder.
func (b *Builder) H264FromLossless(t domain.OutputTargets, dec domain.OverwriteDecision) Step {
	args := append(b.base(), b.hwaccel()...)
	args = append(args, "-i", t.LosslessPath)
	args = append(args, b.encoder()...)
	args = append(args,
		"-vf", "scale=-2:1080",
		"-pix_fmt", "yuv420p",
		"-preset", "slow",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "224k",
		t.H264Path, overwriteFlag(dec),
	)
	return Step{ID: "h264", Args: args, WritesTo: t.H264Path, LogFile: stepLog(t, "h264")}
}

// containerInput builds the input arguments for a container source plus
// an optional second audio input.
func containerInput(in domain.InputDescriptor, audioPath string) []string {
	args := []string{"-i", in.Path}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	return args
}

// ContainerLossless encodes a container source into the lossless
// intermediate, copying the audio streams.
func (b *Builder) ContainerLossless(in domain.InputDescriptor, t domain.OutputTargets, audioPath string, dec domain.OverwriteDecision) Step {
	args := append(b.base(), b.hwaccel()...)
	args = append(args, containerInput(in, audioPath)...)
	args = append(args, b.encoder()...)
	args = append(args,
		"-preset", "slow",
		"-qp", "0",
		"-c:a", "copy",
		t.LosslessPath, overwriteFlag(dec),
	)
	return Step{ID: "lossless", Args: args, WritesTo: t.LosslessPath, LogFile: stepLog(t, "lossless")}
}

// ContainerProres encodes the mezzanine directly from the container source.
func (b *Builder) ContainerProres(in domain.InputDescriptor, t domain.OutputTargets, audioPath string, dec domain.OverwriteDecision) Step {
	args := append(b.base(), b.hwaccel()...)
	args = append(args, containerInput(in, audioPath)...)
	args = append(args,
		"-c:v", "prores",
		"-profile:v", "3",
		"-pix_fmt", "yuv422p10le",
		"-vf", "scale=-2:1080",
		"-c:a", "pcm_s16le",
		t.ProresPath, overwriteFlag(dec),
	)
	return Step{ID: "prores", Args: args, WritesTo: t.ProresPath, LogFile: stepLog(t, "prores")}
}

// ContainerH264 encodes the distribution copy directly from the container
// source, downmixing to stereo.
func (b *Builder) ContainerH264(in domain.InputDescriptor, t domain.OutputTargets, audioPath string, dec domain.OverwriteDecision) Step {
	args := append(b.base(), b.hwaccel()...)
	args = append(args, containerInput(in, audioPath)...)
	args = append(args,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", "slow",
		"-crf", "21",
		"-ac", "2",
	)
	if audioPath != "" {
		args = append(args, "-c:a", "aac", "-b:a", "224k")
	}
	args = append(args, t.H264Path, overwriteFlag(dec))
	return Step{ID: "h264", Args: args, WritesTo: t.H264Path, LogFile: stepLog(t, "h264")}
}

// AudioAAC encodes an audio-only source as AAC into the distribution
// target, with video disabled.
func (b *Builder) AudioAAC(audioPath string, t domain.OutputTargets, dec domain.OverwriteDecision) Step {
	args := append(b.base(),
		"-i", audioPath,
		"-c:a", "aac",
		"-b:a", "192k",
		"-vn",
		t.H264Path, overwriteFlag(dec),
	)
	return Step{ID: "audio-aac", Args: args, WritesTo: t.H264Path, LogFile: stepLog(t, "audio-aac")}
}

// AudioLossless encodes an audio-only source as PCM into the lossless
// target, with video disabled.
func (b *Builder) AudioLossless(audioPath string, t domain.OutputTargets, dec domain.OverwriteDecision) Step {
	args := append(b.base(),
		"-i", audioPath,
		"-c:a", "pcm_s16le",
		"-vn",
		t.LosslessPath, overwriteFlag(dec),
	)
	return Step{ID: "audio-lossless", Args: args, WritesTo: t.LosslessPath, LogFile: stepLog(t, "audio-lossless")}
}

// CombineStems merges the six discrete stems into one interleaved 6-channel
// PCM file, assigning input channels one-to-one in L,R,C,LFE,Ls,Rs order.
func (b *Builder) CombineStems(stems StemSet, outPath string, dec domain.OverwriteDecision) Step {
	args := b.base()
	for _, stem := range stems.Files {
		args = append(args, "-i", stem)
	}
	args = append(args,
		"-filter_complex", "[0][1][2][3][4][5]amerge=inputs=6,pan=6c|c0<c0|c1<c1|c2<c2|c3<c3|c4<c4|c5<c5",
		"-ac", "6",
		"-c:a", "pcm_s16le",
		outPath, overwriteFlag(dec),
	)
	return Step{ID: "combine-stems", Args: args, WritesTo: outPath}
}
