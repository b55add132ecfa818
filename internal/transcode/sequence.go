package transcode

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"reelforge/internal/domain"
)

var (
	leadingDigitsPattern = regexp.MustCompile(`\d+`)
	leadingPrefixPattern = regexp.MustCompile(`^\D*`)
)

// FolderScan lists the recognized source files found in a picked folder,
// grouped by kind. MXF files whose names contain AUDIO are treated as audio
// essence and excluded from the video candidates.
type FolderScan struct {
	DPX []string `json:"dpx"`
	MXF []string `json:"mxf"`
	MOV []string `json:"mov"`
}

// Kinds returns the extensions present in the scan, in fixed order.
func (s FolderScan) Kinds() []string {
	var kinds []string
	if len(s.DPX) > 0 {
		kinds = append(kinds, ".dpx")
	}
	if len(s.MXF) > 0 {
		kinds = append(kinds, ".mxf")
	}
	if len(s.MOV) > 0 {
		kinds = append(kinds, ".mov")
	}
	return kinds
}

// ScanFolder searches a folder for the acceptable source file types.
func ScanFolder(dir string) (FolderScan, error) {
	var scan FolderScan

	dpx, err := filepath.Glob(filepath.Join(dir, "*.dpx"))
	if err != nil {
		return scan, fmt.Errorf("scan folder %s: %w", dir, err)
	}
	scan.DPX = dpx

	mxf, err := filepath.Glob(filepath.Join(dir, "*.mxf"))
	if err != nil {
		return scan, fmt.Errorf("scan folder %s: %w", dir, err)
	}
	for _, f := range mxf {
		if strings.Contains(strings.ToUpper(filepath.Base(f)), "AUDIO") {
			continue
		}
		scan.MXF = append(scan.MXF, f)
	}

	mov, err := filepath.Glob(filepath.Join(dir, "*.mov"))
	if err != nil {
		return scan, fmt.Errorf("scan folder %s: %w", dir, err)
	}
	scan.MOV = mov

	return scan, nil
}

// DetectSequence locates the numbered DPX frames in a folder and returns a
// populated sequence descriptor plus the path of the first frame. The frame
// number is the first run of digits in each filename; the prefix is the
// leading non-digit substring of the first frame's name.
func DetectSequence(dir string, frameRate int) (domain.InputDescriptor, string, error) {
	frames, err := filepath.Glob(filepath.Join(dir, "*.dpx"))
	if err != nil {
		return domain.InputDescriptor{}, "", fmt.Errorf("scan folder %s: %w", dir, err)
	}
	if len(frames) == 0 {
		return domain.InputDescriptor{}, "", &ValidationError{
			Message: fmt.Sprintf("no .dpx files found in %s", dir),
			Err:     ErrNoFramesFound,
		}
	}

	sort.Slice(frames, func(i, j int) bool {
		return frameNumber(frames[i]) < frameNumber(frames[j])
	})

	first := frames[0]
	base := filepath.Base(first)
	prefix := leadingPrefixPattern.FindString(base)

	return domain.InputDescriptor{
		Kind:           domain.InputKindSequence,
		Directory:      dir,
		FilenamePrefix: prefix,
		FirstFrame:     frameNumber(first),
		FrameRate:      frameRate,
	}, first, nil
}

// frameNumber extracts the first run of digits in a filename. Files without
// a number sort last.
func frameNumber(path string) int {
	match := leadingDigitsPattern.FindString(filepath.Base(path))
	n, err := strconv.Atoi(match)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// framePattern builds the printf-style input pattern for a frame sequence.
func framePattern(in domain.InputDescriptor) string {
	return filepath.Join(in.Directory, in.FilenamePrefix+"%06d.dpx")
}
