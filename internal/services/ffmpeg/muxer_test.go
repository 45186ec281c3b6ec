package ffmpeg_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"vimeodl/internal/services"
	"vimeodl/internal/services/ffmpeg"
)

func TestMergeArgsStreamCopy(t *testing.T) {
	got := ffmpeg.MergeArgs("v.mp4", "a.aac", "out.mp4")
	want := []string{"-v", "quiet", "-stats", "-y", "-i", "v.mp4", "-i", "a.aac", "-c", "copy", "out.mp4"}
	if !slices.Equal(got, want) {
		t.Fatalf("args %v want %v", got, want)
	}
}

func TestMergeFailureIsMergeError(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Invalid data found when processing input"), errors.New("exit status 1")
	}
	m, err := ffmpeg.New("ffmpeg", ffmpeg.WithCommandRunner(run))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = m.Merge(context.Background(), "v", "a", "o")
	if !errors.Is(err, services.ErrMerge) {
		t.Fatalf("expected ErrMerge, got %v", err)
	}
	var toolErr *services.ToolError
	if !errors.As(err, &toolErr) || toolErr.Output == "" {
		t.Fatalf("expected ToolError with output, got %v", err)
	}
}

func TestVersionFirstLine(t *testing.T) {
	run := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		if !slices.Equal(args, []string{"-version"}) {
			t.Fatalf("unexpected args %v", args)
		}
		return []byte("ffmpeg version 7.1 Copyright (c)\nbuilt with gcc\n"), nil
	}
	m, _ := ffmpeg.New("ffmpeg", ffmpeg.WithCommandRunner(run))
	v, err := m.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != "ffmpeg version 7.1 Copyright (c)" {
		t.Fatalf("version %q", v)
	}
}

func TestVersionFailureIsToolNotFound(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New(`exec: "ffmpeg": executable file not found in $PATH`)
	}
	m, _ := ffmpeg.New("ffmpeg", ffmpeg.WithCommandRunner(run))
	if _, err := m.Version(context.Background()); !errors.Is(err, services.ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}
