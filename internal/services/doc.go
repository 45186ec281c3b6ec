// Package services defines shared utilities consumed by the download pipeline
// and its external tool clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Error markers for every failure class plus the Wrap helper that
//     attaches stage context, and Kind which maps an error back to a stable
//     snake_case label for history records and bridge responses.
//   - ToolError, the common shape of a failed yt-dlp/ffmpeg/ffprobe run.
//
// Subpackages wrap the individual command-line tools.
package services
