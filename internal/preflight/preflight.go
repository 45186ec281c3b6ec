package preflight

import (
	"context"

	"vimeodl/internal/config"
	"vimeodl/internal/deps"
	"vimeodl/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks for the given config. The output
// and state directories are always checked; the log directory only when set.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	return results
}

// Requirements lists the external binaries for cfg. ffprobe is only
// required when merged output verification is enabled.
func Requirements(cfg *config.Config) []deps.Requirement {
	return []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.YtDlpBinary(),
			Description: "Required for stream downloads",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "ffmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for muxing video and audio",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "ffprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Verifies merged output",
			Optional:    !cfg.Tools.VerifyOutput,
			VersionArgs: []string{"-version"},
		},
	}
}

// CheckSystemDeps probes every external binary for the given config.
func CheckSystemDeps(ctx context.Context, cfg *config.Config, run services.CommandRunner) []deps.Status {
	return deps.Probe(ctx, run, Requirements(cfg))
}
