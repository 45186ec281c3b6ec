package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vimeodl/internal/manifest"
	"vimeodl/internal/selection"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "resolve <playlist-url>",
		Short: "Show the streams a playlist offers and which pair would be downloaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			resolver := manifest.NewResolver(cfg.HTTPTimeout(),
				manifest.WithUserAgent(cfg.HTTP.UserAgent),
				manifest.WithMaxBytes(cfg.HTTP.MaxManifestBytes),
				manifest.WithLogger(logger),
			)
			res, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			video := selection.RankVideo(res.Video)
			audio := selection.RankAudio(res.Audio)

			if jsonOut {
				return writeJSON(cmd, resolveView{BaseURL: res.BaseURL, Video: video, Audio: audio})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Base URL: %s\n\n", res.BaseURL)
			fmt.Fprintln(out, renderStreams(video))
			fmt.Fprintln(out, renderStreams(audio))
			if pair, err := selection.Best(res); err == nil {
				fmt.Fprintf(out, "Selected: video %s (%s), audio %s (%d bps)\n",
					pair.Video.CanonicalID, pair.Resolution(), pair.Audio.CanonicalID, pair.Audio.Bitrate)
			} else {
				fmt.Fprintf(out, "No downloadable pair: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print ranked streams as JSON")
	return cmd
}

type resolveView struct {
	BaseURL string                    `json:"base_url"`
	Video   []manifest.ResolvedStream `json:"video"`
	Audio   []manifest.ResolvedStream `json:"audio"`
}

func renderStreams(streams []manifest.ResolvedStream) string {
	rows := make([][]string, 0, len(streams))
	for rank, s := range streams {
		quality := strconv.Itoa(s.Bitrate)
		if s.Kind == manifest.KindVideo {
			quality = s.Dimensions()
		}
		rows = append(rows, []string{
			strconv.Itoa(rank + 1),
			string(s.Kind),
			s.CanonicalID,
			quality,
			strings.TrimSpace(s.Codecs),
		})
	}
	return renderTable(
		[]string{"Rank", "Kind", "ID", "Quality", "Codecs"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
