package download_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vimeodl/internal/download"
	"vimeodl/internal/history"
	"vimeodl/internal/manifest"
	"vimeodl/internal/testsupport"
)

const ytdlpStub = `echo "$@" >> "$(dirname "$0")/yt-dlp.calls"
if [ "$1" = "--version" ]; then echo 2024.08.06; exit 0; fi
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then shift; printf 'parcel' > "$1"; fi
  shift
done
`

const ffmpegStub = `if [ "$1" = "-version" ]; then echo "ffmpeg version 7.0"; exit 0; fi
for last; do :; done
printf 'merged' > "$last"
`

func TestFromConfigEndToEnd(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"video":[{"id":"v1-a","width":1280,"height":720},{"id":"v2-a","width":1920,"height":1080}],"audio":[{"id":"a1-b","bitrate":96000}]}`))
	}))
	defer server.Close()
	url := server.URL + "/exp=1~hmac=abc/v2/playlist/av/primary/playlist.json"

	cfg := testsupport.NewConfig(t,
		testsupport.WithScript("yt-dlp", ytdlpStub),
		testsupport.WithScript("ffmpeg", ffmpegStub),
	)
	store := testsupport.MustOpenHistory(t, cfg)
	resolver := manifest.NewResolver(time.Second, manifest.WithHTTPClient(server.Client()))

	o, err := download.FromConfig(cfg, nil, download.WithResolver(resolver), download.WithRecorder(store))
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	result := o.Run(context.Background(), download.Job{SourceURL: url, OutputDir: cfg.Paths.OutputDir, Title: "Demo/Reel"})
	if result.Err != nil {
		t.Fatalf("Run: %v", result.Err)
	}

	want := filepath.Join(cfg.Paths.OutputDir, "Demo_Reel", "Demo_Reel_1920x1080.mp4")
	if result.OutputPath != want {
		t.Fatalf("output %q, want %q", result.OutputPath, want)
	}
	if got := testsupport.ReadFile(t, want); got != "merged" {
		t.Fatalf("output contents %q", got)
	}
	testsupport.AssertMissing(t, filepath.Join(cfg.Paths.OutputDir, "Demo_Reel", "temp"))

	calls := testsupport.ReadFile(t, filepath.Join(filepath.Dir(cfg.Tools.YtDlp), "yt-dlp.calls"))
	lines := strings.Split(strings.TrimSpace(calls), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected version probe plus two fetches, got %q", calls)
	}
	if !strings.HasPrefix(lines[1], "-N 16 --no-warnings --no-check-certificate -o ") {
		t.Fatalf("unexpected yt-dlp args %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], "/parcel/video/v2.mp4") || !strings.HasSuffix(lines[2], "/parcel/audio/a1.mp4") {
		t.Fatalf("unexpected fetch order %q", calls)
	}

	rec, err := store.Get(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("history Get: %v", err)
	}
	if rec.Status != history.StatusCompleted {
		t.Fatalf("history status %q", rec.Status)
	}
}

func TestFromConfigFailingDownloaderLeavesNothing(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"video":[{"id":"v1-a","width":1280,"height":720}],"audio":[{"id":"a1-b","bitrate":96000}]}`))
	}))
	defer server.Close()
	url := server.URL + "/exp=1~hmac=abc/v2/playlist/av/primary/playlist.json"

	cfg := testsupport.NewConfig(t,
		testsupport.WithScript("yt-dlp", `if [ "$1" = "--version" ]; then echo 1; exit 0; fi
echo "ERROR: HTTP Error 403: Forbidden" >&2
exit 1
`),
		testsupport.WithScript("ffmpeg", ffmpegStub),
	)
	o, err := download.FromConfig(cfg, nil,
		download.WithResolver(manifest.NewResolver(time.Second, manifest.WithHTTPClient(server.Client()))))
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	result := o.Run(context.Background(), download.Job{SourceURL: url, OutputDir: cfg.Paths.OutputDir, Title: "clip"})
	if result.Err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Err.Error(), "403") {
		t.Fatalf("error should carry downloader output: %v", result.Err)
	}
	testsupport.AssertMissing(t, filepath.Join(cfg.Paths.OutputDir, "clip"))
}
