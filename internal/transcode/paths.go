package transcode

import (
	"fmt"
	"os"
	"path/filepath"

	"reelforge/internal/domain"
)

// localeTag prefixes the H.264 distribution copy, fixed by the delivery
// convention this tool serves.
const localeTag = "nb-no"

const (
	losslessDirName = "lossless"
	logDirName      = "logs"
)

// reservedStagingNames are generic folder names used for raw frame/audio
// staging. When the input sits directly in one of these, the deliverable
// base name is taken from the parent so that sibling images/ and audio/
// folders under one project collapse to the same base name.
var reservedStagingNames = map[string]struct{}{
	"images": {},
	"audio":  {},
}

// ResolveTargets derives all deliverable paths for a job and creates the
// lossless/ and logs/ directories under the output root. The root is the
// explicit override when given, otherwise the input's containing folder.
func ResolveTargets(input domain.InputDescriptor, outputRoot string) (domain.OutputTargets, error) {
	root := outputRoot
	if root == "" {
		switch input.Kind {
		case domain.InputKindSequence:
			root = input.Directory
		default:
			root = filepath.Dir(input.Path)
		}
	}
	if root == "" {
		return domain.OutputTargets{}, &ValidationError{Message: "cannot resolve output root", Err: ErrNoInput}
	}

	base := deliverableBaseName(root)

	losslessDir := filepath.Join(root, losslessDirName)
	logDir := filepath.Join(root, logDirName)
	for _, dir := range []string{losslessDir, logDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.OutputTargets{}, fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	return domain.OutputTargets{
		LosslessPath: filepath.Join(losslessDir, base+".mov"),
		ProresPath:   filepath.Join(losslessDir, base+"_prores.mov"),
		H264Path:     filepath.Join(losslessDir, localeTag+"_"+base+".mp4"),
		TempPath:     filepath.Join(losslessDir, "temp_"+base+".mov"),
		LogDir:       logDir,
	}, nil
}

// deliverableBaseName returns the output base name for a root folder,
// collapsing one level when the immediate folder is a staging name.
func deliverableBaseName(root string) string {
	base := filepath.Base(root)
	if _, reserved := reservedStagingNames[base]; reserved {
		if parent := filepath.Base(filepath.Dir(root)); parent != "" && parent != string(filepath.Separator) && parent != "." {
			return parent
		}
	}
	return base
}
