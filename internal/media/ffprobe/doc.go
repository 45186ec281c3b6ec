// Package ffprobe inspects merged downloads with ffprobe.
//
// Prober.Verify is the optional post-merge check: a file that ffmpeg wrote
// successfully but that lacks a video or an audio stream is reported as a
// merge failure.
package ffprobe
