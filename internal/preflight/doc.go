// Package preflight provides readiness checks for the filesystem paths and
// external binaries vimeodl depends on.
//
// These checks run in two contexts:
//   - `vimeodl serve` and `vimeodl host` check directories at startup and log
//     failures so a broken install shows up before the first download.
//   - The CLI "vimeodl status" command renders every check, including the
//     yt-dlp/ffmpeg/ffprobe version probes from CheckSystemDeps.
package preflight
