package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vimeodl/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "vimeodl", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, "Downloads", "vimeo"); cfg.Paths.OutputDir != want {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "vimeodl", "logs"); cfg.Paths.LogDir != want {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, want)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "vimeodl", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.Tools.ConcurrentFragments != 16 {
		t.Fatalf("expected 16 concurrent fragments, got %d", cfg.Tools.ConcurrentFragments)
	}
	if cfg.ToolTimeout() != 3*time.Hour {
		t.Fatalf("unexpected tool timeout: %s", cfg.ToolTimeout())
	}
	if cfg.HTTPTimeout() != 30*time.Second {
		t.Fatalf("unexpected http timeout: %s", cfg.HTTPTimeout())
	}
	if !strings.Contains(cfg.HTTP.UserAgent, "Chrome/") {
		t.Fatalf("expected browser user agent, got %q", cfg.HTTP.UserAgent)
	}
	if cfg.Server.Bind != "127.0.0.1:5000" {
		t.Fatalf("unexpected server bind: %q", cfg.Server.Bind)
	}
	if cfg.Bridge.MaxMessageBytes != 64<<20 {
		t.Fatalf("unexpected bridge limit: %d", cfg.Bridge.MaxMessageBytes)
	}
	if cfg.Naming.MaxTitleLength != 200 {
		t.Fatalf("unexpected title limit: %d", cfg.Naming.MaxTitleLength)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	if cfg.YtDlpBinary() != "yt-dlp" || cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected binaries: %q %q %q", cfg.YtDlpBinary(), cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadFindsProjectConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	workdir := t.TempDir()
	t.Chdir(workdir)

	if err := os.WriteFile(filepath.Join(workdir, "vimeodl.toml"), []byte("[naming]\nmax_title_length = 64\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected project config to be found")
	}
	if filepath.Base(resolved) != "vimeodl.toml" {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Naming.MaxTitleLength != 64 {
		t.Fatalf("expected title limit from project config, got %d", cfg.Naming.MaxTitleLength)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "vimeodl.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Tools struct {
			YtDlp               string `toml:"ytdlp"`
			ConcurrentFragments int    `toml:"concurrent_fragments"`
			TimeoutSeconds      int    `toml:"timeout_seconds"`
		} `toml:"tools"`
		Server struct {
			Bind string `toml:"bind"`
		} `toml:"server"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Tools.YtDlp = filepath.Join(tempDir, "bin", "yt-dlp")
	custom.Tools.ConcurrentFragments = 4
	custom.Tools.TimeoutSeconds = 0
	custom.Server.Bind = "127.0.0.1:6123"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("expected output dir from file, got %q", cfg.Paths.OutputDir)
	}
	if cfg.YtDlpBinary() != filepath.Join(tempDir, "bin", "yt-dlp") {
		t.Fatalf("expected yt-dlp path from file, got %q", cfg.YtDlpBinary())
	}
	if cfg.Tools.ConcurrentFragments != 4 {
		t.Fatalf("expected 4 fragments, got %d", cfg.Tools.ConcurrentFragments)
	}
	if cfg.ToolTimeout() != 0 {
		t.Fatalf("expected unbounded tool timeout, got %s", cfg.ToolTimeout())
	}
	if cfg.Server.Bind != "127.0.0.1:6123" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "vimeodl.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nstaging_dir = \"/tmp\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "vimeodl.toml")
	contents := "[paths]\noutput_dir = \"" + filepath.Join(tempDir, "file-out") + "\"\n\n[http]\nuser_agent = \"file-agent\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	envOut := filepath.Join(tempDir, "env-out")
	t.Setenv("VIMEODL_OUTPUT_DIR", envOut)
	t.Setenv("VIMEODL_USER_AGENT", "env-agent")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.OutputDir != envOut {
		t.Errorf("expected output dir from env, got %q", cfg.Paths.OutputDir)
	}
	if cfg.HTTP.UserAgent != "env-agent" {
		t.Errorf("expected user agent from env, got %q", cfg.HTTP.UserAgent)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if string(contents) != config.SampleConfig() {
		t.Fatal("sample file differs from embedded sample")
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	defaults := config.Default()
	if cfg.Tools.ConcurrentFragments != defaults.Tools.ConcurrentFragments {
		t.Fatalf("sample fragments %d differ from default %d", cfg.Tools.ConcurrentFragments, defaults.Tools.ConcurrentFragments)
	}
	if cfg.Bridge.MaxMessageBytes != defaults.Bridge.MaxMessageBytes {
		t.Fatalf("sample bridge limit %d differs from default %d", cfg.Bridge.MaxMessageBytes, defaults.Bridge.MaxMessageBytes)
	}
	if cfg.HTTP.UserAgent != defaults.HTTP.UserAgent {
		t.Fatalf("sample user agent differs from default: %q", cfg.HTTP.UserAgent)
	}
	if !strings.Contains(cfg.Paths.OutputDir, "vimeo") {
		t.Fatalf("expected output dir to mention vimeo, got %q", cfg.Paths.OutputDir)
	}
}

func TestEncodeRoundTripsEffectiveConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Bind = "127.0.0.1:7000"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "127.0.0.1:7000") {
		t.Fatalf("encoded config missing bind: %s", data)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero fragments", func(c *config.Config) { c.Tools.ConcurrentFragments = 0 }},
		{"too many fragments", func(c *config.Config) { c.Tools.ConcurrentFragments = 500 }},
		{"negative tool timeout", func(c *config.Config) { c.Tools.TimeoutSeconds = -1 }},
		{"zero http timeout", func(c *config.Config) { c.HTTP.TimeoutSeconds = 0 }},
		{"zero manifest cap", func(c *config.Config) { c.HTTP.MaxManifestBytes = 0 }},
		{"bad bind", func(c *config.Config) { c.Server.Bind = "localhost" }},
		{"zero bridge limit", func(c *config.Config) { c.Bridge.MaxMessageBytes = 0 }},
		{"short title limit", func(c *config.Config) { c.Naming.MaxTitleLength = 2 }},
		{"bad level", func(c *config.Config) { c.Logging.Level = "verbose" }},
		{"empty output dir", func(c *config.Config) { c.Paths.OutputDir = " " }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
