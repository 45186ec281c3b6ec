// Package selection ranks resolved streams and picks the best video/audio pair.
package selection

import (
	"cmp"
	"fmt"
	"slices"

	"vimeodl/internal/manifest"
	"vimeodl/internal/services"
)

// Pair is the chosen video and audio stream for one job.
type Pair struct {
	Video manifest.ResolvedStream
	Audio manifest.ResolvedStream
}

// Resolution renders the chosen video size as WxH.
func (p Pair) Resolution() string {
	return p.Video.Dimensions()
}

// RankVideo returns a copy of streams ordered by width then height, largest
// first. Equal sizes keep manifest order.
func RankVideo(streams []manifest.ResolvedStream) []manifest.ResolvedStream {
	ranked := slices.Clone(streams)
	slices.SortStableFunc(ranked, func(a, b manifest.ResolvedStream) int {
		if c := cmp.Compare(b.Width, a.Width); c != 0 {
			return c
		}
		return cmp.Compare(b.Height, a.Height)
	})
	return ranked
}

// RankAudio returns a copy of streams ordered by bitrate, highest first.
// Equal bitrates keep manifest order.
func RankAudio(streams []manifest.ResolvedStream) []manifest.ResolvedStream {
	ranked := slices.Clone(streams)
	slices.SortStableFunc(ranked, func(a, b manifest.ResolvedStream) int {
		return cmp.Compare(b.Bitrate, a.Bitrate)
	})
	return ranked
}

// Best picks the top-ranked video and audio stream of a resolution.
func Best(res manifest.Resolution) (Pair, error) {
	if len(res.Video) == 0 || len(res.Audio) == 0 {
		return Pair{}, services.Wrap(services.ErrEmptyStreamSet, "select", "best pair",
			fmt.Sprintf("%d video and %d audio streams available", len(res.Video), len(res.Audio)), nil)
	}
	return Pair{
		Video: RankVideo(res.Video)[0],
		Audio: RankAudio(res.Audio)[0],
	}, nil
}
