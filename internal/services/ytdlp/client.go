package ytdlp

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"vimeodl/internal/logging"
	"vimeodl/internal/services"
)

const (
	toolName = "yt-dlp"
	// DefaultFragments matches the parallelism the browser extension was tuned for.
	DefaultFragments = 16
)

// Option configures the client.
type Option func(*Client)

// WithCommandRunner injects a custom runner (primarily for tests).
func WithCommandRunner(run services.CommandRunner) Option {
	return func(c *Client) {
		if run != nil {
			c.run = run
		}
	}
}

// WithTimeout bounds each invocation. Zero leaves invocations unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "ytdlp")
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary    string
	fragments int
	timeout   time.Duration
	run       services.CommandRunner
	logger    *slog.Logger
}

// New constructs a yt-dlp client.
func New(binary string, fragments int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	if fragments <= 0 {
		fragments = DefaultFragments
	}
	c := &Client{
		binary:    binary,
		fragments: fragments,
		run:       services.RunCommand,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the tool name used in errors and logs.
func (c *Client) Name() string { return toolName }

// Binary returns the configured executable.
func (c *Client) Binary() string { return c.binary }

// Version runs `yt-dlp --version` and returns the reported version.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := services.RunTool(ctx, c.run, c.timeout, toolName, c.binary, "--version")
	if err != nil {
		return "", services.Wrap(services.ErrToolNotFound, "preflight", toolName, "version probe failed for "+c.binary, err)
	}
	return firstLine(out), nil
}

// Fetch downloads url into dest.
func (c *Client) Fetch(ctx context.Context, url, dest string) error {
	args := c.FetchArgs(url, dest)
	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("executing yt-dlp",
		logging.String(logging.FieldURL, url),
		logging.String("dest", dest),
		logging.Int("fragments", c.fragments),
	)
	start := time.Now()
	if _, err := services.RunTool(ctx, c.run, c.timeout, toolName, c.binary, args...); err != nil {
		return services.Wrap(services.ErrStreamFetch, "fetch", toolName, dest, err)
	}
	logger.Debug("yt-dlp finished",
		logging.String("dest", dest),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// FetchArgs returns the argument list Fetch passes to yt-dlp.
func (c *Client) FetchArgs(url, dest string) []string {
	return []string{
		"-N", strconv.Itoa(c.fragments),
		"--no-warnings",
		"--no-check-certificate",
		"-o", dest,
		url,
	}
}

func firstLine(out []byte) string {
	text := strings.TrimSpace(string(out))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
