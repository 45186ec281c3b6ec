package download

import (
	"context"
	"time"

	"vimeodl/internal/history"
	"vimeodl/internal/manifest"
	"vimeodl/internal/media/ffprobe"
)

// Job is one playlist to download.
type Job struct {
	// ID correlates logs and history. A UUID is assigned when empty.
	ID        string
	SourceURL string
	OutputDir string
	Title     string
	// HTML, when set, is saved as {title}.html next to a successful download.
	HTML string

	name string
}

// Result reports the outcome of a single job.
type Result struct {
	JobID      string
	SourceURL  string
	Title      string
	OutputPath string
	Video      manifest.ResolvedStream
	Audio      manifest.ResolvedStream
	Elapsed    time.Duration
	Err        error
}

// Succeeded reports whether the job produced its merged file.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Resolver turns a playlist URL into bound streams.
type Resolver interface {
	Resolve(ctx context.Context, manifestURL string) (manifest.Resolution, error)
}

// Tool is an external program that can report its version.
type Tool interface {
	Name() string
	Version(ctx context.Context) (string, error)
}

// Fetcher downloads a single stream URL to a local path.
type Fetcher interface {
	Tool
	Fetch(ctx context.Context, url, dest string) error
}

// Merger combines a video and an audio file into one container.
type Merger interface {
	Tool
	Merge(ctx context.Context, videoPath, audioPath, output string) error
}

// Verifier inspects a merged file.
type Verifier interface {
	Verify(ctx context.Context, path string) (ffprobe.Result, error)
}

// Recorder persists job lifecycle transitions.
type Recorder interface {
	Begin(ctx context.Context, rec history.Record) error
	Complete(ctx context.Context, jobID string, outcome history.Outcome) error
	Fail(ctx context.Context, jobID string, outcome history.Outcome) error
}
