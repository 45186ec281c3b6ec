package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"vimeodl/internal/services"
)

// StreamKind distinguishes video parcels from audio parcels.
type StreamKind string

const (
	KindVideo StreamKind = "video"
	KindAudio StreamKind = "audio"
)

// playlistPattern mirrors the shape of signed playlist links:
// https://<cdn>/exp=...~hmac=.../v2/playlist/av/primary/playlist.json?...
// The capture is greedy so the base ends at the last /v2/playlist.
var playlistPattern = regexp.MustCompile(`(https:.*exp.*hmac.*)/v2/playlist`)

// Manifest is the playlist document served for one video.
type Manifest struct {
	Video []StreamDescriptor `json:"video"`
	Audio []StreamDescriptor `json:"audio"`
}

// StreamDescriptor is one entry of the video or audio collection.
type StreamDescriptor struct {
	ID      string `json:"id"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Codecs  string `json:"codecs,omitempty"`
	Codec   string `json:"codec,omitempty"`
	Bitrate int    `json:"bitrate,omitempty"`
}

// CodecName returns the codec string regardless of which key the manifest used.
func (d StreamDescriptor) CodecName() string {
	if d.Codecs != "" {
		return d.Codecs
	}
	return d.Codec
}

// ResolvedStream is a descriptor bound to its downloadable asset URL.
type ResolvedStream struct {
	Kind        StreamKind `json:"kind"`
	CanonicalID string     `json:"id"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	Bitrate     int        `json:"bitrate,omitempty"`
	Codecs      string     `json:"codecs,omitempty"`
	AssetURL    string     `json:"url"`
	// Order is the position in the manifest collection; rankers use it to keep ties stable.
	Order int `json:"order"`
}

// Dimensions renders the video size as WxH.
func (s ResolvedStream) Dimensions() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Resolution is the outcome of resolving one playlist URL.
type Resolution struct {
	ManifestURL string
	BaseURL     string
	Video       []ResolvedStream
	Audio       []ResolvedStream
}

// ExtractBaseURL returns the asset base for a signed playlist URL: everything
// before the final /v2/playlist segment.
func ExtractBaseURL(rawURL string) (string, error) {
	match := playlistPattern.FindStringSubmatch(strings.TrimSpace(rawURL))
	if match == nil {
		return "", services.Wrap(services.ErrInvalidManifestURL, "resolve", "extract base url",
			fmt.Sprintf("url %q does not look like a signed playlist link", truncateURL(rawURL)), nil)
	}
	return match[1], nil
}

// CanonicalID returns the leading segment of a composite stream id.
func CanonicalID(id string) (string, error) {
	head, _, found := strings.Cut(id, "-")
	if !found || strings.TrimSpace(head) == "" {
		return "", services.Wrap(services.ErrMalformedStreamID, "resolve", "canonical id",
			fmt.Sprintf("stream id %q has no leading segment", id), nil)
	}
	return head, nil
}

// AssetURL builds the parcel URL for a stream.
func AssetURL(baseURL string, kind StreamKind, canonicalID string) string {
	return baseURL + "/parcel/" + string(kind) + "/" + canonicalID + ".mp4"
}

// Bind converts a decoded manifest into resolved streams under baseURL.
// An empty video collection or any malformed id fails the whole manifest.
func Bind(manifestURL, baseURL string, doc Manifest) (Resolution, error) {
	if len(doc.Video) == 0 {
		return Resolution{}, services.Wrap(services.ErrNoVideoStreams, "resolve", "bind", "manifest lists no video streams", nil)
	}
	video, err := bindStreams(baseURL, KindVideo, doc.Video)
	if err != nil {
		return Resolution{}, err
	}
	audio, err := bindStreams(baseURL, KindAudio, doc.Audio)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{
		ManifestURL: manifestURL,
		BaseURL:     baseURL,
		Video:       video,
		Audio:       audio,
	}, nil
}

func bindStreams(baseURL string, kind StreamKind, descriptors []StreamDescriptor) ([]ResolvedStream, error) {
	out := make([]ResolvedStream, 0, len(descriptors))
	for idx, d := range descriptors {
		id, err := CanonicalID(d.ID)
		if err != nil {
			return nil, fmt.Errorf("%s stream %d: %w", kind, idx, err)
		}
		out = append(out, ResolvedStream{
			Kind:        kind,
			CanonicalID: id,
			Width:       d.Width,
			Height:      d.Height,
			Bitrate:     d.Bitrate,
			Codecs:      d.CodecName(),
			AssetURL:    AssetURL(baseURL, kind, id),
			Order:       idx,
		})
	}
	return out, nil
}

// truncateURL keeps error messages readable; signed URLs are long.
func truncateURL(value string) string {
	const limit = 120
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
