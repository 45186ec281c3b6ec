package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vimeodl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Tools.TimeoutSeconds = 30

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithVerifyOutput toggles ffprobe verification of merged files.
func WithVerifyOutput(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.VerifyOutput = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names into a
// private bin directory and points the tool config at them. If names is
// empty, yt-dlp, ffmpeg and ffprobe are stubbed. Each stub exits 0.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
		}
		for _, name := range names {
			path := WriteScript(b.t, filepath.Join(b.baseDir, "bin"), name, "exit 0\n")
			b.pointTool(name, path)
		}
	}
}

// WithScript installs a stub named name whose body is the given shell
// script and points the matching tool setting at it.
func WithScript(name, body string) ConfigOption {
	return func(b *configBuilder) {
		path := WriteScript(b.t, filepath.Join(b.baseDir, "bin"), name, body)
		b.pointTool(name, path)
	}
}

func (b *configBuilder) pointTool(name, path string) {
	switch name {
	case "yt-dlp":
		b.cfg.Tools.YtDlp = path
	case "ffmpeg":
		b.cfg.Tools.FFmpeg = path
	case "ffprobe":
		b.cfg.Tools.FFprobe = path
	}
}

// WriteScript writes an executable /bin/sh script into dir and returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
