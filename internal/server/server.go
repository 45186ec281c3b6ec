package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vimeodl/internal/download"
	"vimeodl/internal/fileutil"
	"vimeodl/internal/logging"
	"vimeodl/internal/services"
)

const (
	maxBodyBytes      = 64 << 20
	batchDirPrefix    = "vimeo_download_"
	batchStampLayout  = "20060102_150405"
	playlistLinksFile = "playlist_links.txt"
	requestIDHeader   = "X-Request-ID"
)

// BatchRunner executes download jobs in order.
type BatchRunner interface {
	RunBatch(ctx context.Context, jobs []download.Job) []download.Result
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logging.NewComponentLogger(logger, "server")
	}
}

// WithClock overrides the time source used for batch folder names.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server is the local HTTP endpoint.
type Server struct {
	bind       string
	outputRoot string
	runner     BatchRunner
	logger     *slog.Logger
	now        func() time.Time

	downloadMu sync.Mutex
	handler    http.Handler
}

// New builds a server that writes batches under outputRoot.
func New(bind, outputRoot string, runner BatchRunner, opts ...Option) *Server {
	s := &Server{
		bind:       strings.TrimSpace(bind),
		outputRoot: outputRoot,
		runner:     runner,
		logger:     logging.NewComponentLogger(nil, "server"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.Handle("POST /download", s.requireJSON(http.HandlerFunc(s.handleDownload)))
	mux.Handle("POST /save_page", s.requireJSON(http.HandlerFunc(s.handleSavePage)))
	s.handler = s.withRequestID(withCORS(mux))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe listens on the configured bind address and serves until ctx
// is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Downloads run inside the request; no write deadline.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("server listening",
		logging.String(logging.FieldEventType, "server_start"),
		logging.String("address", listener.Addr().String()),
		logging.String("output_root", s.outputRoot),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("server shutdown incomplete",
			logging.Error(err),
			logging.String(logging.FieldEventType, "server_shutdown_failed"),
			logging.String(logging.FieldErrorHint, "a download was still running"),
			logging.String(logging.FieldImpact, "in-flight request aborted"),
		)
	}
	s.logger.Info("server stopped", logging.String(logging.FieldEventType, "server_stop"))
	return nil
}

type videoRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

type downloadRequest struct {
	Videos []videoRequest `json:"videos"`
}

type videoResult struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Success   bool   `json:"success"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

type downloadResponse struct {
	Status   string        `json:"status"`
	Message  string        `json:"message"`
	SavePath string        `json:"save_path"`
	Results  []videoResult `json:"results"`
}

type savePageRequest struct {
	HTML string `json:"html"`
	Path string `json:"path"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.log(r).Debug("ping")
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	logger := s.log(r)
	var req downloadRequest
	if err := decodeBody(w, r, &req); err != nil || req.Videos == nil {
		s.writeError(w, http.StatusBadRequest, "No video data received")
		return
	}
	videos := make([]videoRequest, 0, len(req.Videos))
	for _, v := range req.Videos {
		v.URL = strings.TrimSpace(v.URL)
		if v.URL != "" {
			videos = append(videos, v)
		}
	}
	if len(videos) == 0 {
		s.writeError(w, http.StatusBadRequest, "Empty video list")
		return
	}
	if s.runner == nil {
		s.writeError(w, http.StatusServiceUnavailable, "download runner unavailable")
		return
	}

	s.downloadMu.Lock()
	defer s.downloadMu.Unlock()

	batchDir := filepath.Join(s.outputRoot, batchDirPrefix+s.now().Format(batchStampLayout))
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		err = services.Wrap(services.ErrDirectoryCreate, "server", "download", batchDir, err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := writeLinks(batchDir, videos); err != nil {
		logging.WarnWithContext(logger, "playlist links not written", "links_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch folder lacks playlist_links.txt"),
		)
	}

	jobs := make([]download.Job, len(videos))
	for i, v := range videos {
		jobs[i] = download.Job{SourceURL: v.URL, OutputDir: batchDir, Title: v.Title, HTML: v.HTML}
	}
	logger.Info("download batch accepted",
		logging.String(logging.FieldEventType, "download_request"),
		logging.Int("videos", len(jobs)),
		logging.String("save_path", batchDir),
	)

	results := s.runner.RunBatch(r.Context(), jobs)
	resp := downloadResponse{Status: "success", SavePath: batchDir, Results: make([]videoResult, 0, len(results))}
	failed := 0
	for i, res := range results {
		item := videoResult{URL: res.SourceURL, Success: res.Succeeded(), Output: res.OutputPath}
		if i < len(videos) {
			item.Title = videos[i].Title
		}
		if res.Err != nil {
			failed++
			item.Error = res.Err.Error()
			item.ErrorKind = services.Kind(res.Err)
		}
		resp.Results = append(resp.Results, item)
	}
	if failed > 0 {
		resp.Status = "error"
		resp.Message = fmt.Sprintf("%d of %d downloads failed", failed, len(results))
	} else {
		resp.Message = fmt.Sprintf("Downloaded %d videos", len(results))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavePage(w http.ResponseWriter, r *http.Request) {
	var req savePageRequest
	if err := decodeBody(w, r, &req); err != nil || req.HTML == "" || strings.TrimSpace(req.Path) == "" {
		s.writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}
	path, err := s.resolveSavePath(req.Path)
	if err != nil {
		logging.WarnWithContext(s.log(r), "save_page rejected", "request_rejected",
			logging.String("path", req.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "save pages inside the configured output directory"),
			logging.String(logging.FieldImpact, "page not saved"),
		)
		s.writeError(w, http.StatusForbidden, "Path outside output directory")
		return
	}
	if err := fileutil.WriteFileAtomic(path, []byte(req.HTML), 0o644); err != nil {
		logging.ErrorWithContext(s.log(r), "failed to save page", "save_page_failed",
			logging.String("path", path),
			logging.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Page saved successfully"})
}

// resolveSavePath confines a caller-supplied page path to the output root.
// Relative paths are taken relative to the root.
func (s *Server) resolveSavePath(raw string) (string, error) {
	root, err := filepath.Abs(s.outputRoot)
	if err != nil {
		return "", err
	}
	path := filepath.Clean(strings.TrimSpace(raw))
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not inside %s", path, root)
	}
	return path, nil
}

func writeLinks(dir string, videos []videoRequest) error {
	var b strings.Builder
	for _, v := range videos {
		b.WriteString(v.URL)
		b.WriteByte('\n')
	}
	return fileutil.WriteFileAtomic(filepath.Join(dir, playlistLinksFile), []byte(b.String()), 0o644)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

func (s *Server) log(r *http.Request) *slog.Logger {
	return logging.WithContext(r.Context(), s.logger)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("response encode failed", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

// requireJSON rejects bodies that are not declared as JSON. Browsers must
// preflight such cross-origin requests, so a page cannot send them blind.
func (s *Server) requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			s.writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
