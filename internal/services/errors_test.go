package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"vimeodl/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrMerge, "mux", "ffmpeg", "exit status 1", base)
	if !errors.Is(err, services.ErrMerge) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"mux", "ffmpeg", "exit status 1", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarker(t *testing.T) {
	if err := services.Wrap(nil, "", "", "", nil); err == nil || err.Error() != "service failure" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrInvalidManifestURL, "resolve", "", "", nil), "invalid_manifest_url"},
		{services.Wrap(services.ErrStreamFetch, "fetch", "video", "", context.DeadlineExceeded), "stream_fetch"},
		{fmt.Errorf("outer: %w", services.ErrEmptyArtifact), "empty_artifact"},
		{context.Canceled, "canceled"},
		{fmt.Errorf("wait: %w", context.DeadlineExceeded), "timeout"},
		{errors.New("other"), "unknown"},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestToolErrorMessage(t *testing.T) {
	err := &services.ToolError{Tool: "yt-dlp", ExitCode: 1, Output: "ERROR: HTTP Error 403\n"}
	if got := err.Error(); got != "yt-dlp exited with status 1: ERROR: HTTP Error 403" {
		t.Fatalf("unexpected message %q", got)
	}
	cause := errors.New("executable file not found")
	wrapped := &services.ToolError{Tool: "ffmpeg", Err: cause}
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected ToolError to unwrap its cause")
	}
}

func TestTailOutput(t *testing.T) {
	if got := services.TailOutput([]byte("  short  "), 100); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	long := strings.Repeat("line\n", 50) + "ERROR: final reason"
	got := services.TailOutput([]byte(long), 30)
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "ERROR: final reason") {
		t.Fatalf("unexpected tail %q", got)
	}
}
