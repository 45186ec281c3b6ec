// Package ffmpeg remuxes separately fetched video and audio into one MP4
// without re-encoding.
package ffmpeg
