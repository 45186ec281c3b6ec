// Package ytdlp drives the yt-dlp binary to fetch single parcel streams.
//
// The client probes the binary with --version before a job starts and
// fetches each stream with parallel fragment downloads into an explicit
// output path. Failures surface as services.ErrToolNotFound or
// services.ErrStreamFetch wrapping a *services.ToolError.
package ytdlp
