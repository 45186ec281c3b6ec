package ffmpeg

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"vimeodl/internal/logging"
	"vimeodl/internal/services"
)

const toolName = "ffmpeg"

// Option configures the muxer.
type Option func(*Muxer)

// WithCommandRunner injects a custom runner (primarily for tests).
func WithCommandRunner(run services.CommandRunner) Option {
	return func(m *Muxer) {
		if run != nil {
			m.run = run
		}
	}
}

// WithTimeout bounds each invocation. Zero leaves invocations unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Muxer) {
		m.timeout = timeout
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Muxer) {
		m.logger = logging.NewComponentLogger(logger, "ffmpeg")
	}
}

// Muxer stream-copies a video and an audio input into one container.
type Muxer struct {
	binary  string
	timeout time.Duration
	run     services.CommandRunner
	logger  *slog.Logger
}

// New constructs a muxer for the given ffmpeg binary.
func New(binary string, opts ...Option) (*Muxer, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	m := &Muxer{
		binary: binary,
		run:    services.RunCommand,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Name returns the tool name used in errors and logs.
func (m *Muxer) Name() string { return toolName }

// Binary returns the configured executable.
func (m *Muxer) Binary() string { return m.binary }

// Version runs `ffmpeg -version` and returns its first line.
func (m *Muxer) Version(ctx context.Context) (string, error) {
	out, err := services.RunTool(ctx, m.run, m.timeout, toolName, m.binary, "-version")
	if err != nil {
		return "", services.Wrap(services.ErrToolNotFound, "preflight", toolName, "version probe failed for "+m.binary, err)
	}
	text := strings.TrimSpace(string(out))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text), nil
}

// Merge writes output from videoPath and audioPath using stream copy,
// overwriting any existing file. It only reports the tool's exit status;
// callers verify the produced file.
func (m *Muxer) Merge(ctx context.Context, videoPath, audioPath, output string) error {
	args := MergeArgs(videoPath, audioPath, output)
	logging.WithContext(ctx, m.logger).Debug("executing ffmpeg",
		logging.String("video", videoPath),
		logging.String("audio", audioPath),
		logging.String("output", output),
	)
	if _, err := services.RunTool(ctx, m.run, m.timeout, toolName, m.binary, args...); err != nil {
		return services.Wrap(services.ErrMerge, "mux", toolName, output, err)
	}
	return nil
}

// MergeArgs returns the argument list Merge passes to ffmpeg.
func MergeArgs(videoPath, audioPath, output string) []string {
	return []string{
		"-v", "quiet",
		"-stats",
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
		output,
	}
}
