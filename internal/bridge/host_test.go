package bridge

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vimeodl/internal/download"
	"vimeodl/internal/services"
	"vimeodl/internal/testsupport"
)

type fakeRunner struct {
	jobs    []download.Job
	results func(jobs []download.Job) []download.Result
	panics  bool
}

func (f *fakeRunner) RunBatch(_ context.Context, jobs []download.Job) []download.Result {
	if f.panics {
		panic("boom")
	}
	f.jobs = append(f.jobs, jobs...)
	if f.results != nil {
		return f.results(jobs)
	}
	out := make([]download.Result, len(jobs))
	for i, job := range jobs {
		out[i] = download.Result{SourceURL: job.SourceURL, OutputPath: filepath.Join(job.OutputDir, "out.mp4")}
	}
	return out
}

func serve(t *testing.T, runner BatchRunner, frames ...[]byte) ([]Response, *Host, error) {
	t.Helper()
	var in bytes.Buffer
	for _, f := range frames {
		in.Write(f)
	}
	var out bytes.Buffer
	host := NewHost(&in, &out, runner)
	err := host.Serve(context.Background())
	return decodeAll(t, out.Bytes()), host, err
}

func decodeAll(t *testing.T, raw []byte) []Response {
	t.Helper()
	var responses []Response
	for len(raw) > 0 {
		if len(raw) < 4 {
			t.Fatalf("trailing bytes %q", raw)
		}
		n := binary.LittleEndian.Uint32(raw[:4])
		var resp Response
		if err := json.Unmarshal(raw[4:4+n], &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		responses = append(responses, resp)
		raw = raw[4+n:]
	}
	return responses
}

func TestHostPing(t *testing.T) {
	responses, host, err := serve(t, &fakeRunner{}, frame(`{"action":"ping"}`))
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(responses) != 1 || !responses[0].Success || responses[0].Error != "" {
		t.Fatalf("unexpected responses %+v", responses)
	}
	if host.State() != StateStopped {
		t.Fatalf("state %s after EOF", host.State())
	}
}

func TestHostRecoversFromBadMessages(t *testing.T) {
	responses, _, err := serve(t, &fakeRunner{},
		frame(`{"action":`),
		frame(`{"path":"/tmp"}`),
		frame(`{"action":"fly"}`),
		frame(`{"action":"ping"}`),
	)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(responses) != 4 {
		t.Fatalf("expected one response per message, got %d", len(responses))
	}
	if responses[0].Success || !strings.Contains(responses[0].Error, "protocol decode failed") {
		t.Fatalf("bad json response %+v", responses[0])
	}
	if responses[1].Error != "No action specified" {
		t.Fatalf("missing action response %+v", responses[1])
	}
	if responses[2].Error != "Unknown action: fly" {
		t.Fatalf("unknown action response %+v", responses[2])
	}
	if !responses[3].Success {
		t.Fatalf("ping after errors failed: %+v", responses[3])
	}
}

func TestHostOversizedFrameStops(t *testing.T) {
	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, DefaultMaxMessageBytes+1)
	responses, host, err := serve(t, &fakeRunner{}, header, frame(`{"action":"ping"}`))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	if host.State() != StateStopped {
		t.Fatalf("state %s", host.State())
	}
	if len(responses) != 1 || responses[0].Success {
		t.Fatalf("expected a single failure response, got %+v", responses)
	}
}

func TestHostDownloadValidation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	tests := []struct {
		name string
		body string
	}{
		{"missing path", `{"action":"download","urls":["https://a"]}`},
		{"empty urls", `{"action":"download","path":"` + dir + `","urls":[]}`},
		{"blank urls", `{"action":"download","path":"` + dir + `","urls":["  ",""]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			responses, _, err := serve(t, runner, frame(tt.body))
			if err != nil {
				t.Fatalf("Serve: %v", err)
			}
			if len(responses) != 1 || responses[0].Success {
				t.Fatalf("expected failure, got %+v", responses)
			}
			if !strings.Contains(responses[0].Error, "invalid request") {
				t.Fatalf("unexpected error %q", responses[0].Error)
			}
			if len(runner.jobs) != 0 {
				t.Fatal("runner must not be called")
			}
			testsupport.AssertMissing(t, dir)
		})
	}
}

func TestHostDownloadAllSucceed(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	body := `{"action":"download","path":"` + dir + `","urls":["https://a"," ","https://b"],"titles":["First","skipped","Second"]}`
	responses, _, err := serve(t, runner, frame(body))
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if !responses[0].Success || len(responses[0].Results) != 2 {
		t.Fatalf("unexpected response %+v", responses[0])
	}
	if len(runner.jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(runner.jobs))
	}
	if runner.jobs[0].Title != "First" || runner.jobs[1].Title != "Second" || runner.jobs[1].SourceURL != "https://b" {
		t.Fatalf("titles misaligned: %+v", runner.jobs)
	}
	if runner.jobs[0].OutputDir != dir {
		t.Fatalf("output dir %q", runner.jobs[0].OutputDir)
	}
}

func TestHostDownloadPartialFailure(t *testing.T) {
	runner := &fakeRunner{results: func(jobs []download.Job) []download.Result {
		return []download.Result{
			{SourceURL: jobs[0].SourceURL, OutputPath: "/x.mp4"},
			{SourceURL: jobs[1].SourceURL, Err: services.Wrap(services.ErrMerge, "mux", "ffmpeg", "", nil)},
		}
	}}
	body := `{"action":"download","path":"` + t.TempDir() + `","urls":["https://a","https://b"]}`
	responses, _, err := serve(t, runner, frame(body))
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	resp := responses[0]
	if resp.Success {
		t.Fatal("aggregate must fail when any url fails")
	}
	if resp.Error != "1 of 2 downloads failed (merge)" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
	if !resp.Results[0].Success || resp.Results[1].Success || resp.Results[1].ErrorKind != "merge" {
		t.Fatalf("unexpected results %+v", resp.Results)
	}
}

func TestHostRecoversFromPanic(t *testing.T) {
	body := `{"action":"download","path":"` + t.TempDir() + `","urls":["https://a"]}`
	responses, host, err := serve(t, &fakeRunner{panics: true}, frame(body), frame(`{"action":"ping"}`))
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if responses[0].Success || !strings.Contains(responses[0].Error, "boom") {
		t.Fatalf("panic response %+v", responses[0])
	}
	if !responses[1].Success {
		t.Fatal("loop must continue after a panic")
	}
	if host.State() != StateStopped {
		t.Fatalf("state %s", host.State())
	}
}

func TestHostSavePage(t *testing.T) {
	target := filepath.Join(t.TempDir(), "pages", "lecture.html")
	body, _ := json.Marshal(map[string]string{"action": "save_page", "html": "<html></html>", "path": target})
	responses, _, err := serve(t, &fakeRunner{}, frame(string(body)), frame(`{"action":"save_page","path":"`+target+`"}`))
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if !responses[0].Success {
		t.Fatalf("save_page failed: %+v", responses[0])
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "<html></html>" {
		t.Fatalf("saved page %q, err %v", data, err)
	}
	if responses[1].Success {
		t.Fatal("save_page without html must fail")
	}
}

func TestHostStopsOnCanceledContext(t *testing.T) {
	var out bytes.Buffer
	host := NewHost(bytes.NewReader(frame(`{"action":"ping"}`)), &out, &fakeRunner{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := host.Serve(ctx); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if out.Len() != 0 {
		t.Fatal("no response expected after cancellation")
	}
}
