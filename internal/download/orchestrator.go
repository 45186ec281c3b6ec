package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vimeodl/internal/fileutil"
	"vimeodl/internal/history"
	"vimeodl/internal/logging"
	"vimeodl/internal/selection"
	"vimeodl/internal/services"
	"vimeodl/internal/textutil"
)

const (
	tempDirName   = "temp"
	lockFileName  = ".vimeodl.lock"
	videoFileName = "video.mp4"
	audioFileName = "audio.aac"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.NewComponentLogger(logger, "download")
	}
}

// WithVerifier enables post-merge stream verification.
func WithVerifier(v Verifier) Option {
	return func(o *Orchestrator) {
		o.verifier = v
	}
}

// WithRecorder persists every job to history.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithResolver replaces the manifest resolver.
func WithResolver(r Resolver) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithMaxTitleLength overrides the sanitized title limit.
func WithMaxTitleLength(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTitle = n
		}
	}
}

// Orchestrator executes download jobs.
type Orchestrator struct {
	resolver Resolver
	fetcher  Fetcher
	merger   Merger
	verifier Verifier
	recorder Recorder
	logger   *slog.Logger
	maxTitle int
}

// NewOrchestrator wires the resolver and external tools used by Run.
func NewOrchestrator(resolver Resolver, fetcher Fetcher, merger Merger, opts ...Option) (*Orchestrator, error) {
	if resolver == nil || fetcher == nil || merger == nil {
		return nil, errors.New("download: resolver, fetcher and merger are required")
	}
	o := &Orchestrator{
		resolver: resolver,
		fetcher:  fetcher,
		merger:   merger,
		logger:   logging.NewComponentLogger(nil, "download"),
		maxTitle: textutil.DefaultMaxTitleLength,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunBatch runs jobs one after another and returns a result per job, in order.
// Jobs whose names collide within the batch get a job id suffix so each one
// owns its directory and merged file.
func (o *Orchestrator) RunBatch(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, 0, len(jobs))
	taken := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if strings.TrimSpace(job.ID) == "" {
			job.ID = uuid.NewString()
		}
		job.name = o.jobName(job)
		key := filepath.Join(job.OutputDir, job.name)
		if _, dup := taken[key]; dup {
			job.name = textutil.WithJobSuffix(job.name, job.ID, o.maxTitle)
			key = filepath.Join(job.OutputDir, job.name)
		}
		taken[key] = struct{}{}

		if err := ctx.Err(); err != nil {
			results = append(results, Result{
				JobID:     job.ID,
				SourceURL: job.SourceURL,
				Err:       services.Wrap(nil, "batch", "", "not started", err),
			})
			continue
		}
		results = append(results, o.Run(ctx, job))
	}
	return results
}

// Run executes one job. The returned Result carries either the merged file
// path or the error that stopped the job; there is no partial success.
func (o *Orchestrator) Run(ctx context.Context, job Job) Result {
	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}
	ctx = services.WithJobID(ctx, job.ID)
	start := time.Now()

	safeTitle := job.name
	if safeTitle == "" {
		safeTitle = o.jobName(job)
	}
	result := Result{JobID: job.ID, SourceURL: job.SourceURL, Title: safeTitle}
	logger := logging.WithContext(ctx, o.logger).With(logging.String(logging.FieldURL, job.SourceURL))

	logger.Info("download started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("title", safeTitle),
		logging.String("output_dir", job.OutputDir),
	)
	o.recordBegin(ctx, logger, job, safeTitle)

	result.Err = o.execute(ctx, logger, job, safeTitle, &result)
	result.Elapsed = time.Since(start)

	if result.Err != nil {
		logging.ErrorWithContext(logger, "download failed", "job_failed",
			logging.String(logging.FieldErrorKind, services.Kind(result.Err)),
			logging.Error(result.Err),
			logging.Duration("elapsed", result.Elapsed),
			logging.String(logging.FieldImpact, "no file was produced for this url"),
		)
	} else {
		logger.Info("download completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.String("output", result.OutputPath),
			logging.String("resolution", result.Video.Dimensions()),
			logging.Duration("elapsed", result.Elapsed),
		)
	}
	o.recordFinish(ctx, logger, result)
	return result
}

// jobName is the directory and file stem for job. Untitled jobs are
// suffixed with their id.
func (o *Orchestrator) jobName(job Job) string {
	name := textutil.SanitizeTitle(job.Title, o.maxTitle)
	if name == textutil.DefaultTitle {
		name = textutil.WithJobSuffix(name, job.ID, o.maxTitle)
	}
	return name
}

func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, job Job, safeTitle string, result *Result) (err error) {
	jobDir := filepath.Join(job.OutputDir, safeTitle)
	tempDir := filepath.Join(jobDir, tempDirName)

	if strings.TrimSpace(job.OutputDir) == "" {
		return services.Wrap(services.ErrDirectoryCreate, "prepare", "", "output directory not set", nil)
	}
	if mkErr := os.MkdirAll(tempDir, 0o755); mkErr != nil {
		return services.Wrap(services.ErrDirectoryCreate, "prepare", "mkdir", tempDir, mkErr)
	}

	lock := flock.New(filepath.Join(jobDir, lockFileName))
	locked, lockErr := lock.TryLock()
	if lockErr != nil || !locked {
		// Another process owns jobDir; its temp files are left alone.
		return services.Wrap(services.ErrJobLocked, "prepare", "lock", jobDir, lockErr)
	}
	// The lock file stays in place after a run; it is only unlinked together
	// with an otherwise empty job directory, and only while still held.
	defer func() {
		o.cleanupTemp(logger, tempDir)
		if err != nil {
			if removed, rmErr := fileutil.RemoveDirIfEmpty(jobDir, lockFileName); rmErr != nil {
				logger.Debug("job directory cleanup failed", logging.Error(rmErr))
			} else if removed {
				logger.Debug("removed empty job directory", logging.String("dir", jobDir))
			}
		}
		_ = lock.Unlock()
	}()

	if err := o.probeTools(services.WithStage(ctx, "preflight"), logger); err != nil {
		return err
	}

	resolution, err := o.resolver.Resolve(services.WithStage(ctx, "resolve"), job.SourceURL)
	if err != nil {
		return err
	}
	pair, err := selection.Best(resolution)
	if err != nil {
		return err
	}
	result.Video = pair.Video
	result.Audio = pair.Audio
	logger.Info("streams selected",
		logging.String(logging.FieldEventType, "streams_selected"),
		logging.String("resolution", pair.Resolution()),
		logging.Int("audio_bitrate", pair.Audio.Bitrate),
		logging.Int("video_candidates", len(resolution.Video)),
		logging.Int("audio_candidates", len(resolution.Audio)),
	)

	videoPath := filepath.Join(tempDir, videoFileName)
	audioPath := filepath.Join(tempDir, audioFileName)
	fetchCtx := services.WithStage(ctx, "fetch")
	if err := o.fetcher.Fetch(fetchCtx, pair.Video.AssetURL, videoPath); err != nil {
		return err
	}
	if err := o.fetcher.Fetch(fetchCtx, pair.Audio.AssetURL, audioPath); err != nil {
		return err
	}
	for _, artifact := range []string{videoPath, audioPath} {
		if _, statErr := fileutil.NonEmptyFile(artifact); statErr != nil {
			return services.Wrap(services.ErrEmptyArtifact, "fetch", "verify", filepath.Base(artifact), statErr)
		}
	}

	output := filepath.Join(jobDir, fmt.Sprintf("%s_%s.mp4", safeTitle, pair.Resolution()))
	if err := o.mux(services.WithStage(ctx, "mux"), logger, videoPath, audioPath, output); err != nil {
		return err
	}
	result.OutputPath = output

	if job.HTML != "" {
		o.saveSnapshot(logger, filepath.Join(jobDir, safeTitle+".html"), job.HTML)
	}
	return nil
}

func (o *Orchestrator) probeTools(ctx context.Context, logger *slog.Logger) error {
	for _, tool := range []Tool{o.fetcher, o.merger} {
		version, err := tool.Version(ctx)
		if err != nil {
			if errors.Is(err, services.ErrToolNotFound) {
				return err
			}
			return services.Wrap(services.ErrToolNotFound, "preflight", tool.Name(), "version probe failed", err)
		}
		logger.Debug("tool available",
			logging.String("tool", tool.Name()),
			logging.String("version", version),
		)
	}
	return nil
}

// mux merges the fetched parcels and removes output on any failure.
func (o *Orchestrator) mux(ctx context.Context, logger *slog.Logger, videoPath, audioPath, output string) error {
	fail := func(err error) error {
		if rmErr := fileutil.RemoveIfExists(output); rmErr != nil {
			logger.Warn("failed to remove partial output",
				logging.String("output", output),
				logging.Error(rmErr),
				logging.String(logging.FieldEventType, "cleanup_failed"),
				logging.String(logging.FieldErrorHint, "delete the file manually"),
				logging.String(logging.FieldImpact, "a broken mp4 remains in the output directory"),
			)
		}
		return err
	}

	if err := o.merger.Merge(ctx, videoPath, audioPath, output); err != nil {
		return fail(err)
	}
	size, err := fileutil.NonEmptyFile(output)
	if err != nil {
		return fail(services.Wrap(services.ErrMerge, "mux", o.merger.Name(), "no output produced", err))
	}
	if o.verifier != nil {
		probe, err := o.verifier.Verify(services.WithStage(ctx, "verify"), output)
		if err != nil {
			return fail(err)
		}
		logger.Debug("merged output verified",
			logging.Int("video_streams", probe.VideoStreamCount()),
			logging.Int("audio_streams", probe.AudioStreamCount()),
			logging.Any("duration_seconds", probe.DurationSeconds()),
		)
	}
	logger.Debug("merged output written", logging.String("output", output), logging.Int64("bytes", size))
	return nil
}

func (o *Orchestrator) cleanupTemp(logger *slog.Logger, tempDir string) {
	if err := os.RemoveAll(tempDir); err != nil {
		logging.WarnWithContext(logger, "temp cleanup failed", "cleanup_failed",
			logging.String("dir", tempDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the temp directory manually"),
			logging.String(logging.FieldImpact, "intermediate parcels remain on disk"),
		)
	}
}

func (o *Orchestrator) saveSnapshot(logger *slog.Logger, path, html string) {
	if err := fileutil.WriteFileAtomic(path, []byte(html), 0o644); err != nil {
		logging.WarnWithContext(logger, "page snapshot not saved", "snapshot_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "video saved without its page snapshot"),
		)
		return
	}
	logger.Debug("page snapshot saved", logging.String("path", path))
}

func (o *Orchestrator) recordBegin(ctx context.Context, logger *slog.Logger, job Job, safeTitle string) {
	if o.recorder == nil {
		return
	}
	err := o.recorder.Begin(ctx, history.Record{
		JobID:     job.ID,
		SourceURL: job.SourceURL,
		Title:     safeTitle,
		OutputDir: job.OutputDir,
	})
	if err != nil {
		logger.Warn("history record not created",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_write_failed"),
			logging.String(logging.FieldErrorHint, "check the history database in state_dir"),
			logging.String(logging.FieldImpact, "job will be missing from history"),
		)
	}
}

func (o *Orchestrator) recordFinish(ctx context.Context, logger *slog.Logger, result Result) {
	if o.recorder == nil {
		return
	}
	// The job context may already be canceled; the outcome is still recorded.
	ctx = context.WithoutCancel(ctx)
	var err error
	if result.Err != nil {
		err = o.recorder.Fail(ctx, result.JobID, history.Outcome{
			ErrorKind:    services.Kind(result.Err),
			ErrorMessage: result.Err.Error(),
		})
	} else {
		err = o.recorder.Complete(ctx, result.JobID, history.Outcome{
			OutputFile:      result.OutputPath,
			VideoResolution: result.Video.Dimensions(),
			AudioBitrate:    result.Audio.Bitrate,
		})
	}
	if err != nil {
		logger.Warn("history record not updated",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_write_failed"),
			logging.String(logging.FieldErrorHint, "check the history database in state_dir"),
			logging.String(logging.FieldImpact, "history shows a stale status for this job"),
		)
	}
}
