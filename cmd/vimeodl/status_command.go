package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vimeodl/internal/deps"
	"vimeodl/internal/history"
	"vimeodl/internal/preflight"
	"vimeodl/internal/services"
)

type statusReport struct {
	ConfigPath   string             `json:"config_path"`
	OutputDir    string             `json:"output_dir"`
	Directories  []preflight.Result `json:"directories"`
	Dependencies []deps.Status      `json:"dependencies"`
	History      *history.Summary   `json:"history,omitempty"`
	Ready        bool               `json:"ready"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, external tools, and job history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{
				ConfigPath:   ctx.configPath,
				OutputDir:    cfg.Paths.OutputDir,
				Directories:  preflight.RunAll(cmd.Context(), cfg),
				Dependencies: preflight.CheckSystemDeps(cmd.Context(), cfg, services.RunCommand),
			}
			report.Ready = len(preflight.Failed(report.Directories)) == 0
			for _, dep := range report.Dependencies {
				if !dep.Optional && !dep.Available {
					report.Ready = false
				}
			}
			if cfg.History.Enabled {
				if store, err := history.Open(cfg); err == nil {
					if summary, err := store.Summarize(cmd.Context()); err == nil {
						report.History = &summary
					}
					_ = store.Close()
				}
			}

			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderStatusReport(report, shouldColorize(cmd.OutOrStdout())))
			}
			if !report.Ready {
				return fmt.Errorf("vimeodl is not ready; fix the errors above")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}

func renderStatusReport(r statusReport, colorize bool) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(renderSectionHeader("Configuration", colorize))
	configPath := r.ConfigPath
	if configPath == "" {
		configPath = "(defaults)"
	}
	line(renderStatusLine("Config", statusInfo, configPath, colorize))
	line(renderStatusLine("Output", statusInfo, r.OutputDir, colorize))
	line("")

	line(renderSectionHeader("Directories", colorize))
	for _, d := range r.Directories {
		kind := statusOK
		if !d.Passed {
			kind = statusError
		}
		line(renderStatusLine(d.Name, kind, d.Detail, colorize))
	}
	line("")

	line(renderSectionHeader("Dependencies", colorize))
	rows := make([][]string, 0, len(r.Dependencies))
	for _, dep := range r.Dependencies {
		state := "missing"
		if dep.Available {
			state = "ok"
		}
		detail := dep.Version
		if !dep.Available {
			detail = dep.Detail
		}
		rows = append(rows, []string{dep.Name, state, yesNo(!dep.Optional), dep.Path, detail})
	}
	line(renderTable([]string{"Tool", "State", "Required", "Path", "Detail"}, rows, nil))

	if r.History != nil {
		line("")
		line(renderSectionHeader("History", colorize))
		h := r.History
		line(renderStatusLine("Jobs", statusInfo,
			fmt.Sprintf("%d total, %d completed, %d failed, %d running", h.Total, h.Completed, h.Failed, h.Running), colorize))
	}
	return b.String()
}
