package transcode

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelforge/internal/domain"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TestScanFolderGroupsByKind checks file grouping and the audio essence
// exclusion for MXF names.
func TestScanFolderGroupsByKind(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "frame_000001.dpx"), "x")
	mustWriteFile(t, filepath.Join(dir, "frame_000002.dpx"), "x")
	mustWriteFile(t, filepath.Join(dir, "master.mxf"), "x")
	mustWriteFile(t, filepath.Join(dir, "reel_AUDIO_51.mxf"), "x")
	mustWriteFile(t, filepath.Join(dir, "grade.mov"), "x")
	mustWriteFile(t, filepath.Join(dir, "notes.txt"), "x")

	scan, err := ScanFolder(dir)
	if err != nil {
		t.Fatalf("ScanFolder() error = %v", err)
	}

	if len(scan.DPX) != 2 {
		t.Fatalf("dpx count = %d, want 2", len(scan.DPX))
	}
	if len(scan.MXF) != 1 || filepath.Base(scan.MXF[0]) != "master.mxf" {
		t.Fatalf("mxf = %v, want only master.mxf", scan.MXF)
	}
	if len(scan.MOV) != 1 {
		t.Fatalf("mov count = %d, want 1", len(scan.MOV))
	}

	kinds := scan.Kinds()
	want := []string{".dpx", ".mxf", ".mov"}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}

// TestDetectSequenceFindsFirstFrame checks numeric ordering and prefix
// extraction.
func TestDetectSequenceFindsFirstFrame(t *testing.T) {
	dir := t.TempDir()
	// Deliberately created out of order; frame numbering starts at 86400.
	mustWriteFile(t, filepath.Join(dir, "frame_086402.dpx"), "x")
	mustWriteFile(t, filepath.Join(dir, "frame_086400.dpx"), "x")
	mustWriteFile(t, filepath.Join(dir, "frame_086401.dpx"), "x")

	input, first, err := DetectSequence(dir, 25)
	if err != nil {
		t.Fatalf("DetectSequence() error = %v", err)
	}

	if input.Kind != domain.InputKindSequence {
		t.Fatalf("kind = %v, want sequence", input.Kind)
	}
	if input.FilenamePrefix != "frame_" {
		t.Fatalf("prefix = %q, want frame_", input.FilenamePrefix)
	}
	if input.FirstFrame != 86400 {
		t.Fatalf("first frame = %d, want 86400", input.FirstFrame)
	}
	if input.FrameRate != 25 {
		t.Fatalf("frame rate = %d, want 25", input.FrameRate)
	}
	if filepath.Base(first) != "frame_086400.dpx" {
		t.Fatalf("first frame path = %q", first)
	}
}

// TestDetectSequenceEmptyFolder checks the missing frames failure.
func TestDetectSequenceEmptyFolder(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "notes.txt"), "x")

	_, _, err := DetectSequence(dir, 24)
	if !errors.Is(err, ErrNoFramesFound) {
		t.Fatalf("DetectSequence() error = %v, want ErrNoFramesFound", err)
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

// TestFramePatternUsesPrefix checks the printf-style pattern derivation.
func TestFramePatternUsesPrefix(t *testing.T) {
	got := framePattern(domain.InputDescriptor{
		Directory:      "/media/reel",
		FilenamePrefix: "shot01_",
	})
	want := filepath.Join("/media/reel", "shot01_%06d.dpx")
	if got != want {
		t.Fatalf("framePattern() = %q, want %q", got, want)
	}
}

// TestFrameNumberUnnumberedSortsLast checks files without digits sort after
// any numbered frame.
func TestFrameNumberUnnumberedSortsLast(t *testing.T) {
	if frameNumber("/a/frame_000001.dpx") >= frameNumber("/a/poster.dpx") {
		t.Fatal("numbered frame should sort before unnumbered file")
	}
}
