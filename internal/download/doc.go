// Package download runs Vimeo download jobs end to end.
//
// An Orchestrator takes one Job through a fixed sequence: sanitize the
// title, prepare and lock {output}/{title}/temp, probe yt-dlp and ffmpeg,
// resolve the playlist manifest, select the best video/audio pair, fetch
// both parcels, stream-copy them into {title}_{W}x{H}.mp4, optionally verify
// the result with ffprobe, and clean up. Failures stop the job at the step
// that failed and are reported through Result.Err, tagged with a
// services marker. Nothing is retried.
//
// RunBatch processes several jobs strictly in order; a failed job never
// prevents the next one from running.
package download
