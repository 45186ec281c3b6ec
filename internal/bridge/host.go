package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"vimeodl/internal/download"
	"vimeodl/internal/fileutil"
	"vimeodl/internal/logging"
	"vimeodl/internal/services"
)

// State describes whether the host loop is still processing messages.
type State int32

const (
	StateRunning State = iota
	StateStopped
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// BatchRunner executes download jobs in order.
type BatchRunner interface {
	RunBatch(ctx context.Context, jobs []download.Job) []download.Result
}

// Option configures a Host.
type Option func(*Host)

// WithLogger attaches a logger. It must not write to the host's stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logging.NewComponentLogger(logger, "bridge")
	}
}

// WithMaxMessageBytes overrides the inbound frame limit.
func WithMaxMessageBytes(n int) Option {
	return func(h *Host) {
		h.maxBytes = n
	}
}

// Host is a native messaging host bound to one input and output stream.
type Host struct {
	maxBytes int
	runner   BatchRunner
	logger   *slog.Logger
	codec    *Codec
	state    atomic.Int32
}

// NewHost builds a host that reads requests from in and writes responses to out.
func NewHost(in io.Reader, out io.Writer, runner BatchRunner, opts ...Option) *Host {
	h := &Host{
		runner: runner,
		logger: logging.NewComponentLogger(nil, "bridge"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.codec = NewCodec(in, out, h.maxBytes)
	return h
}

// State reports the current loop state.
func (h *Host) State() State {
	return State(h.state.Load())
}

// Serve processes messages until the input stream closes, ctx is canceled,
// or an unrecoverable framing error occurs. A closed stream returns nil.
func (h *Host) Serve(ctx context.Context) error {
	h.state.Store(int32(StateRunning))
	defer h.state.Store(int32(StateStopped))
	h.logger.Info("native host started", logging.String(logging.FieldEventType, "host_start"))

	for {
		if err := ctx.Err(); err != nil {
			h.logger.Info("native host stopping", logging.String("reason", err.Error()))
			return nil
		}
		body, err := h.codec.ReadFrame()
		if errors.Is(err, io.EOF) {
			h.logger.Info("input stream closed", logging.String(logging.FieldEventType, "host_stop"))
			return nil
		}
		if err != nil {
			logging.ErrorWithContext(h.logger, "native messaging stream unusable", "host_fatal",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "restart the browser extension"),
			)
			if errors.Is(err, ErrFrameTooLarge) {
				_ = h.codec.WriteResponse(Response{Success: false, Error: err.Error()})
			}
			return err
		}

		resp := h.Handle(ctx, body)
		if err := h.codec.WriteResponse(resp); err != nil {
			logging.ErrorWithContext(h.logger, "failed to write response", "host_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "browser closed the channel"),
			)
			return err
		}
	}
}

// Handle decodes one frame body and returns its response. Panics raised
// while handling are converted into failure responses.
func (h *Host) Handle(ctx context.Context, body []byte) (resp Response) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, h.logger)

	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "request handler panicked", "host_panic",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			resp = Response{Success: false, Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	req, err := DecodeRequest(body)
	if err != nil {
		logger.Warn("rejected message",
			logging.Error(err),
			logging.String(logging.FieldEventType, "request_rejected"),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "check the extension message format"),
			logging.String(logging.FieldImpact, "request ignored"),
		)
		return Response{Success: false, Error: err.Error()}
	}
	logger.Debug("message received", logging.String("action", req.Action()))

	switch r := req.(type) {
	case Ping:
		return Response{Success: true}
	case Download:
		return h.handleDownload(ctx, logger, r)
	case SavePage:
		return h.handleSavePage(logger, r)
	default:
		return Response{Success: false, Error: (&ActionError{Action: req.Action()}).Error()}
	}
}

func (h *Host) handleDownload(ctx context.Context, logger *slog.Logger, req Download) Response {
	req = req.normalized()
	if err := req.validate(); err != nil {
		logger.Warn("invalid download request",
			logging.Error(err),
			logging.String(logging.FieldEventType, "request_rejected"),
			logging.String(logging.FieldErrorHint, "send a non-empty path and url list"),
			logging.String(logging.FieldImpact, "nothing was downloaded"),
		)
		return Response{Success: false, Error: err.Error()}
	}
	if h.runner == nil {
		return Response{Success: false, Error: "download runner unavailable"}
	}

	outDir, err := filepath.Abs(req.Path)
	if err != nil {
		return Response{Success: false, Error: services.Wrap(services.ErrDirectoryCreate, "bridge", ActionDownload, req.Path, err).Error()}
	}
	jobs := make([]download.Job, len(req.URLs))
	for i, url := range req.URLs {
		jobs[i] = download.Job{SourceURL: url, OutputDir: outDir, Title: req.Titles[i]}
	}
	logger.Info("download request accepted",
		logging.String(logging.FieldEventType, "download_request"),
		logging.Int("urls", len(jobs)),
		logging.String("output_dir", outDir),
	)
	return aggregate(h.runner.RunBatch(ctx, jobs))
}

// aggregate succeeds only when every URL succeeded.
func aggregate(results []download.Result) Response {
	resp := Response{Success: true, Results: make([]URLResult, 0, len(results))}
	var failures []string
	for _, r := range results {
		item := URLResult{URL: r.SourceURL, Success: r.Succeeded(), Output: r.OutputPath}
		if r.Err != nil {
			item.Error = r.Err.Error()
			item.ErrorKind = services.Kind(r.Err)
			failures = append(failures, item.ErrorKind)
		}
		resp.Results = append(resp.Results, item)
	}
	if len(failures) > 0 {
		resp.Success = false
		resp.Error = summarize(len(failures), len(results)) + " (" + strings.Join(failures, ", ") + ")"
	}
	return resp
}

func (h *Host) handleSavePage(logger *slog.Logger, req SavePage) Response {
	path := strings.TrimSpace(req.Path)
	if req.HTML == "" || path == "" {
		err := services.Wrap(services.ErrInvalidRequest, "bridge", ActionSavePage, "html and path are required", nil)
		return Response{Success: false, Error: err.Error()}
	}
	if err := fileutil.WriteFileAtomic(path, []byte(req.HTML), 0o644); err != nil {
		logging.WarnWithContext(logger, "page not saved", "save_page_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "page snapshot missing"),
		)
		return Response{Success: false, Error: err.Error()}
	}
	logger.Info("page saved", logging.String("path", path))
	return Response{Success: true}
}
