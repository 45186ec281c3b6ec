package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vimeodl/internal/config"
	"vimeodl/internal/download"
	"vimeodl/internal/services"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir string
		titles    []string
		htmlPath  string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "download <playlist-url>...",
		Short: "Download one or more playlist URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(titles) > len(args) {
				return fmt.Errorf("%d titles given for %d urls", len(titles), len(args))
			}
			out := cfg.Paths.OutputDir
			if strings.TrimSpace(outputDir) != "" {
				if out, err = config.ExpandPath(outputDir); err != nil {
					return fmt.Errorf("resolve output dir: %w", err)
				}
			}
			var html string
			if htmlPath != "" {
				data, err := os.ReadFile(htmlPath)
				if err != nil {
					return fmt.Errorf("read html snapshot: %w", err)
				}
				html = string(data)
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			orch, cleanup, err := ctx.newOrchestrator(cmd, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			jobs := make([]download.Job, len(args))
			for i, url := range args {
				jobs[i] = download.Job{SourceURL: url, OutputDir: out, HTML: html}
				if i < len(titles) {
					jobs[i].Title = titles[i]
				}
			}
			results := orch.RunBatch(cmd.Context(), jobs)

			if jsonOut {
				if err := writeJSON(cmd, toDownloadViews(results)); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
			}

			failed := 0
			for _, r := range results {
				if !r.Succeeded() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to paths.output_dir)")
	cmd.Flags().StringSliceVarP(&titles, "title", "t", nil, "Title for each URL, in order")
	cmd.Flags().StringVar(&htmlPath, "html", "", "HTML file saved next to each download")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	return cmd
}

type downloadView struct {
	JobID      string `json:"job_id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Success    bool   `json:"success"`
	Output     string `json:"output,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Seconds    int64  `json:"seconds"`
}

func toDownloadViews(results []download.Result) []downloadView {
	views := make([]downloadView, 0, len(results))
	for _, r := range results {
		v := downloadView{
			JobID:   r.JobID,
			URL:     r.SourceURL,
			Title:   r.Title,
			Success: r.Succeeded(),
			Output:  r.OutputPath,
			Seconds: int64(r.Elapsed / time.Second),
		}
		if r.Video.Width > 0 {
			v.Resolution = r.Video.Dimensions()
		}
		if r.Err != nil {
			v.Error = r.Err.Error()
			v.ErrorKind = services.Kind(r.Err)
		}
		views = append(views, v)
	}
	return views
}

func renderResults(results []download.Result) string {
	rows := make([][]string, 0, len(results))
	for _, v := range toDownloadViews(results) {
		outcome := v.Output
		if !v.Success {
			outcome = v.ErrorKind
			var toolErr *services.ToolError
			for _, r := range results {
				if r.JobID == v.JobID && errors.As(r.Err, &toolErr) && toolErr.Output != "" {
					outcome += ": " + lastLine(toolErr.Output)
				}
			}
		}
		rows = append(rows, []string{shortJobID(v.JobID), v.Title, statusWord(v.Success), v.Resolution, outcome})
	}
	return renderTable(
		[]string{"Job", "Title", "Status", "Resolution", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func statusWord(ok bool) string {
	if ok {
		return "done"
	}
	return "failed"
}

func shortJobID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

func lastLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return text
}
