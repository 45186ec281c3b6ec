package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"vimeodl/internal/logging"
	"vimeodl/internal/services"
)

const (
	// DefaultUserAgent is sent when no user agent is configured; the CDN
	// rejects obviously scripted clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	acceptHeader     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"
	// DefaultMaxBytes bounds the playlist body read into memory.
	DefaultMaxBytes int64 = 8 << 20
	defaultTimeout        = 30 * time.Second
)

// HTTPDoer describes the HTTP client used by the resolver.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient injects the client used for playlist requests.
func WithHTTPClient(client HTTPDoer) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		if ua = strings.TrimSpace(ua); ua != "" {
			r.userAgent = ua
		}
	}
}

// WithMaxBytes caps the playlist body size.
func WithMaxBytes(limit int64) Option {
	return func(r *Resolver) {
		if limit > 0 {
			r.maxBytes = limit
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logging.NewComponentLogger(logger, "manifest")
	}
}

// Resolver fetches playlists and binds their streams to asset URLs.
type Resolver struct {
	client    HTTPDoer
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

// NewResolver constructs a Resolver with a timeout-bounded client unless one is injected.
func NewResolver(timeout time.Duration, opts ...Option) *Resolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r := &Resolver{
		client:    &http.Client{Timeout: timeout},
		userAgent: DefaultUserAgent,
		maxBytes:  DefaultMaxBytes,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates the URL, fetches the playlist, and binds its streams.
// The URL shape is checked before any request is made.
func (r *Resolver) Resolve(ctx context.Context, manifestURL string) (Resolution, error) {
	manifestURL = strings.TrimSpace(manifestURL)
	base, err := ExtractBaseURL(manifestURL)
	if err != nil {
		return Resolution{}, err
	}

	body, err := r.fetch(ctx, manifestURL)
	if err != nil {
		return Resolution{}, err
	}

	doc, err := Decode(body)
	if err != nil {
		return Resolution{}, err
	}

	res, err := Bind(manifestURL, base, doc)
	if err != nil {
		return Resolution{}, err
	}
	logging.WithContext(ctx, r.logger).Debug("manifest resolved",
		logging.String(logging.FieldEventType, "manifest_resolved"),
		logging.String("base_url", base),
		logging.Int("video_streams", len(res.Video)),
		logging.Int("audio_streams", len(res.Audio)),
	)
	return res, nil
}

// Decode parses a playlist body.
func Decode(body []byte) (Manifest, error) {
	if !utf8.Valid(body) {
		return Manifest{}, services.Wrap(services.ErrManifestParse, "resolve", "decode", "body is not valid UTF-8", nil)
	}
	var doc Manifest
	if err := json.Unmarshal(body, &doc); err != nil {
		return Manifest{}, services.Wrap(services.ErrManifestParse, "resolve", "decode", "invalid playlist JSON", err)
	}
	return doc, nil
}

func (r *Resolver) fetch(ctx context.Context, manifestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrManifestFetch, "resolve", "build request", "", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrManifestFetch, "resolve", "get playlist", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrManifestFetch, "resolve", "get playlist",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, services.Wrap(services.ErrManifestFetch, "resolve", "read playlist", "", err)
	}
	if int64(len(body)) > r.maxBytes {
		return nil, services.Wrap(services.ErrManifestFetch, "resolve", "read playlist",
			fmt.Sprintf("body exceeds %d bytes", r.maxBytes), nil)
	}
	return body, nil
}
