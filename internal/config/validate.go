package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("paths.output_dir must be set (or set %s)", envOutputDir)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.ConcurrentFragments < 1 || c.Tools.ConcurrentFragments > 128 {
		return errors.New("tools.concurrent_fragments must be between 1 and 128")
	}
	if c.Tools.TimeoutSeconds < 0 {
		return errors.New("tools.timeout_seconds must be >= 0 (0 disables the limit)")
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.New("http.timeout_seconds must be positive")
	}
	if c.HTTP.MaxManifestBytes <= 0 {
		return errors.New("http.max_manifest_bytes must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Bridge.MaxMessageBytes <= 0 {
		return errors.New("bridge.max_message_bytes must be positive")
	}
	if c.Naming.MaxTitleLength < 8 {
		return errors.New("naming.max_title_length must be at least 8")
	}
	return nil
}

func (c *Config) validateLogging() error {
	for key, value := range map[string]string{
		"logging.level":      c.Logging.Level,
		"logging.file_level": c.Logging.FileLevel,
	} {
		switch value {
		case "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("%s: unsupported value %q", key, value)
		}
	}
	return nil
}
