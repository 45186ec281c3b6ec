package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Tools names the external binaries and how they are invoked.
type Tools struct {
	YtDlp               string `toml:"ytdlp"`
	FFmpeg              string `toml:"ffmpeg"`
	FFprobe             string `toml:"ffprobe"`
	ConcurrentFragments int    `toml:"concurrent_fragments"`
	// TimeoutSeconds bounds a single tool invocation. Zero disables the limit.
	TimeoutSeconds int  `toml:"timeout_seconds"`
	VerifyOutput   bool `toml:"verify_output"`
}

// HTTP contains manifest fetch settings.
type HTTP struct {
	UserAgent        string `toml:"user_agent"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	MaxManifestBytes int64  `toml:"max_manifest_bytes"`
}

// Server contains the local HTTP endpoint settings.
type Server struct {
	Bind string `toml:"bind"`
}

// Bridge contains native messaging settings.
type Bridge struct {
	MaxMessageBytes int `toml:"max_message_bytes"`
}

// Naming controls how titles become directory and file names.
type Naming struct {
	MaxTitleLength int `toml:"max_title_length"`
}

// History controls the persistent job history.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	FileLevel     string `toml:"file_level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for vimeodl.
//
// Configuration sections by subsystem:
//   - Paths: download root, logs, and state (history database, locks)
//   - Tools: yt-dlp, ffmpeg, and ffprobe invocation
//   - HTTP: manifest requests
//   - Server: local HTTP endpoint used by the browser extension
//   - Bridge: native messaging limits
//   - Naming: title sanitization
//   - History: job history persistence
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Tools   Tools   `toml:"tools"`
	HTTP    HTTP    `toml:"http"`
	Server  Server  `toml:"server"`
	Bridge  Bridge  `toml:"bridge"`
	Naming  Naming  `toml:"naming"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// YtDlpBinary returns the yt-dlp executable name or path.
func (c *Config) YtDlpBinary() string {
	if v := strings.TrimSpace(c.Tools.YtDlp); v != "" {
		return v
	}
	return defaultYtDlpBinary
}

// FFmpegBinary returns the ffmpeg executable name or path.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.Tools.FFmpeg); v != "" {
		return v
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used for output verification.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.Tools.FFprobe); v != "" {
		return v
	}
	return defaultFFprobeBinary
}

// ToolTimeout returns the per-invocation limit for external tools; zero means none.
func (c *Config) ToolTimeout() time.Duration {
	if c.Tools.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Tools.TimeoutSeconds) * time.Second
}

// HTTPTimeout returns the manifest request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTP.TimeoutSeconds <= 0 {
		return defaultHTTPTimeoutSeconds * time.Second
	}
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// HistoryPath returns the location of the job history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// ServerLockPath returns the lock file that keeps a single `serve` instance per state dir.
func (c *Config) ServerLockPath() string {
	return filepath.Join(c.Paths.StateDir, "serve.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
