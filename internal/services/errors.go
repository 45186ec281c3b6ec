package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error markers for every failure class a download job or bridge message can
// end in. Wrap tags an error with one of them; Kind maps it back.
var (
	ErrInvalidManifestURL = errors.New("invalid manifest url")
	ErrManifestFetch      = errors.New("manifest fetch failed")
	ErrManifestParse      = errors.New("manifest parse failed")
	ErrNoVideoStreams     = errors.New("no video streams")
	ErrMalformedStreamID  = errors.New("malformed stream id")
	ErrEmptyStreamSet     = errors.New("empty stream set")
	ErrToolNotFound       = errors.New("tool not found")
	ErrStreamFetch        = errors.New("stream fetch failed")
	ErrEmptyArtifact      = errors.New("empty artifact")
	ErrMerge              = errors.New("merge failed")
	ErrDirectoryCreate    = errors.New("directory create failed")
	ErrProtocolDecode     = errors.New("protocol decode failed")
	ErrJobLocked          = errors.New("job directory locked")
	ErrInvalidRequest     = errors.New("invalid request")
)

var kinds = []struct {
	marker error
	kind   string
}{
	{ErrInvalidManifestURL, "invalid_manifest_url"},
	{ErrManifestFetch, "manifest_fetch"},
	{ErrManifestParse, "manifest_parse"},
	{ErrNoVideoStreams, "no_video_streams"},
	{ErrMalformedStreamID, "malformed_stream_id"},
	{ErrEmptyStreamSet, "empty_stream_set"},
	{ErrToolNotFound, "tool_not_found"},
	{ErrStreamFetch, "stream_fetch"},
	{ErrEmptyArtifact, "empty_artifact"},
	{ErrMerge, "merge"},
	{ErrDirectoryCreate, "directory_create"},
	{ErrProtocolDecode, "protocol_decode"},
	{ErrJobLocked, "job_locked"},
	{ErrInvalidRequest, "invalid_request"},
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		if err == nil {
			return errors.New(detail)
		}
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the snake_case classification of err. Unmarked context errors
// report "timeout" or "canceled"; anything else is "unknown".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.kind
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "unknown"
}

// ToolError captures a failed external tool invocation together with the
// diagnostic output it printed.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Tool)
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, " exited with status %d", e.ExitCode)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(" failed")
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString(": ")
		b.WriteString(out)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// TailOutput keeps the last limit bytes of tool output, which is where yt-dlp
// and ffmpeg print the reason for a failure.
func TailOutput(output []byte, limit int) string {
	text := strings.TrimSpace(string(output))
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := text[len(text)-limit:]
	if idx := strings.IndexByte(cut, '\n'); idx >= 0 && idx < len(cut)-1 {
		cut = cut[idx+1:]
	}
	return "..." + cut
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
