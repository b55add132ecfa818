package config

import (
	"strings"

	"reelforge/internal/domain"
)

// DefaultSettings returns baseline local configuration for first launch.
// The output directory is left empty so targets derive from each job's
// input folder.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		FFmpegPath: "ffmpeg",
		OutputDir:  "",
		FrameRate:  24,
	}
}

// withDefaults fills empty or invalid fields so a partial or hand-edited
// settings file still yields a usable configuration.
func withDefaults(cfg domain.Settings) domain.Settings {
	cfg.FFmpegPath = strings.TrimSpace(cfg.FFmpegPath)
	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 24
	}
	return cfg
}
