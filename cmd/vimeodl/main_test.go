package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vimeodl/internal/config"
	"vimeodl/internal/history"
	"vimeodl/internal/testsupport"
)

type cliEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLI(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)...)
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{cfg: cfg, configPath: path}
}

func (e *cliEnv) run(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigInit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "vimeodl", "config.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out.String(), target) {
		t.Fatalf("unexpected output %q", out.String())
	}
	if got := testsupport.ReadFile(t, target); got != config.SampleConfig() {
		t.Fatal("written config differs from sample")
	}

	again := newRootCommand()
	again.SetOut(&bytes.Buffer{})
	again.SetArgs([]string{"config", "init", "--path", target})
	if err := again.Execute(); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
}

func TestConfigShowAndValidate(t *testing.T) {
	env := setupCLI(t)
	out, err := env.run(t, nil, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "[paths]") || !strings.Contains(out, env.cfg.Paths.OutputDir) {
		t.Fatalf("unexpected config output:\n%s", out)
	}

	out, err = env.run(t, nil, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.configPath) {
		t.Fatalf("unexpected validate output %q", out)
	}
}

func pingFrame() []byte {
	body := []byte(`{"action":"ping"}`)
	in := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(in, uint32(len(body)))
	copy(in[4:], body)
	return in
}

func TestHostAnswersPingOnStdout(t *testing.T) {
	env := setupCLI(t)
	out, err := env.run(t, pingFrame(), "host", "chrome-extension://abcdef/")
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	assertSinglePingResponse(t, out)
}

func TestNativeHostArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"chrome origin", []string{"chrome-extension://abc/"}, []string{"host", "chrome-extension://abc/"}},
		{"chrome on windows", []string{"chrome-extension://abc/", "--parent-window=42"}, []string{"host", "chrome-extension://abc/", "--parent-window=42"}},
		{"firefox", []string{"/home/u/.mozilla/native-messaging-hosts/vimeodl.json", "vimeodl@example.org"}, []string{"host", "/home/u/.mozilla/native-messaging-hosts/vimeodl.json", "vimeodl@example.org"}},
		{"subcommand", []string{"download", "https://example.com"}, []string{"download", "https://example.com"}},
		{"relative json is not a launch", []string{"config.json"}, []string{"config.json"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nativeHostArgs(tt.args)
			if strings.Join(got, " ") != strings.Join(tt.want, " ") || len(got) != len(tt.want) {
				t.Fatalf("nativeHostArgs(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestBrowserLaunchRunsHost(t *testing.T) {
	env := setupCLI(t)
	defaultPath := filepath.Join(os.Getenv("HOME"), ".config", "vimeodl", "config.toml")
	if err := os.MkdirAll(filepath.Dir(defaultPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(defaultPath, []byte(testsupport.ReadFile(t, env.configPath)), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(bytes.NewReader(pingFrame()))
	cmd.SetArgs(nativeHostArgs([]string{"chrome-extension://abcdef/", "--parent-window=0"}))
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("browser launch: %v", err)
	}
	assertSinglePingResponse(t, out.String())
}

func assertSinglePingResponse(t *testing.T, out string) {
	t.Helper()
	raw := []byte(out)
	if len(raw) < 4 {
		t.Fatalf("no frame written: %q", out)
	}
	n := binary.LittleEndian.Uint32(raw[:4])
	if int(n) != len(raw)-4 {
		t.Fatalf("stdout holds more than one frame: %q", out)
	}
	if string(raw[4:]) != `{"success":true}` {
		t.Fatalf("unexpected response %q", raw[4:])
	}
}

func TestStatusReady(t *testing.T) {
	env := setupCLI(t)
	out, err := env.run(t, nil, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	for _, want := range []string{"Directories", "yt-dlp", "ffmpeg", "Output directory"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusReportsMissingTool(t *testing.T) {
	env := setupCLI(t)
	env.cfg.Tools.YtDlp = filepath.Join(testsupport.BaseDir(env.cfg), "missing", "yt-dlp")
	data, err := env.cfg.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(env.configPath, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := env.run(t, nil, "status", "--json")
	if err == nil {
		t.Fatal("expected status to fail without yt-dlp")
	}
	var report statusReport
	if jsonErr := json.Unmarshal([]byte(out), &report); jsonErr != nil {
		t.Fatalf("decode report: %v\n%s", jsonErr, out)
	}
	if report.Ready {
		t.Fatal("report should not be ready")
	}
}

func TestResolveRejectsNonPlaylistURL(t *testing.T) {
	env := setupCLI(t)
	_, err := env.run(t, nil, "resolve", "https://vimeo.com/76979871")
	if err == nil || !strings.Contains(err.Error(), "invalid manifest url") {
		t.Fatalf("expected invalid manifest url error, got %v", err)
	}
}

func TestDownloadFailureIsRecorded(t *testing.T) {
	env := setupCLI(t)
	out, err := env.run(t, nil, "download", "--json", "--title", "Talk", "https://vimeo.com/76979871")
	if err == nil || !strings.Contains(err.Error(), "1 of 1 downloads failed") {
		t.Fatalf("expected batch failure, got %v", err)
	}
	var views []downloadView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(views) != 1 || views[0].ErrorKind != "invalid_manifest_url" || views[0].Title != "Talk" {
		t.Fatalf("unexpected views %+v", views)
	}
	testsupport.AssertMissing(t, filepath.Join(env.cfg.Paths.OutputDir, "Talk"))

	out, err = env.run(t, nil, "history", "list", "--json")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var records []history.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0].Status != history.StatusFailed || records[0].JobID != views[0].JobID {
		t.Fatalf("unexpected history %+v", records)
	}

	out, err = env.run(t, nil, "history", "show", views[0].JobID)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	if !strings.Contains(out, "[invalid_manifest_url]") {
		t.Fatalf("show output missing error kind:\n%s", out)
	}
}

func TestHistoryListAndPrune(t *testing.T) {
	env := setupCLI(t)
	out, err := env.run(t, nil, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "No jobs recorded") {
		t.Fatalf("unexpected output %q", out)
	}

	store := testsupport.MustOpenHistory(t, env.cfg)
	ctx := context.Background()
	if err := store.Begin(ctx, history.Record{JobID: "0f8e-job", SourceURL: "u", Title: "Lecture", OutputDir: "/out"}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Complete(ctx, "0f8e-job", history.Outcome{OutputFile: "/out/x.mp4", VideoResolution: "1280x720"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	out, err = env.run(t, nil, "history", "list", "--status", "completed")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "Lecture") || !strings.Contains(out, "1280x720") {
		t.Fatalf("list output:\n%s", out)
	}

	if _, err := env.run(t, nil, "history", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}

	out, err = env.run(t, nil, "history", "prune", "--older-than", "1h")
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	if !strings.Contains(out, "Removed 0 job(s)") {
		t.Fatalf("prune output %q", out)
	}
}
