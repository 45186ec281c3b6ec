package download

import (
	"errors"
	"log/slog"

	"vimeodl/internal/config"
	"vimeodl/internal/manifest"
	"vimeodl/internal/media/ffprobe"
	"vimeodl/internal/services/ffmpeg"
	"vimeodl/internal/services/ytdlp"
)

// FromConfig builds an Orchestrator using the configured binaries and HTTP
// settings. Extra options are applied last; pass WithRecorder to persist
// history.
func FromConfig(cfg *config.Config, logger *slog.Logger, extra ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("download: config is required")
	}
	timeout := cfg.ToolTimeout()

	resolver := manifest.NewResolver(cfg.HTTPTimeout(),
		manifest.WithUserAgent(cfg.HTTP.UserAgent),
		manifest.WithMaxBytes(cfg.HTTP.MaxManifestBytes),
		manifest.WithLogger(logger),
	)
	fetcher, err := ytdlp.New(cfg.YtDlpBinary(), cfg.Tools.ConcurrentFragments,
		ytdlp.WithTimeout(timeout),
		ytdlp.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	merger, err := ffmpeg.New(cfg.FFmpegBinary(),
		ffmpeg.WithTimeout(timeout),
		ffmpeg.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLogger(logger),
		WithMaxTitleLength(cfg.Naming.MaxTitleLength),
	}
	if cfg.Tools.VerifyOutput {
		opts = append(opts, WithVerifier(ffprobe.NewProber(cfg.FFprobeBinary(), timeout, nil)))
	}
	opts = append(opts, extra...)
	return NewOrchestrator(resolver, fetcher, merger, opts...)
}
