// Package bridge implements the browser native messaging host.
//
// Chrome talks to the host over stdin/stdout using frames made of a 4-byte
// little-endian length followed by that many bytes of UTF-8 JSON. Codec
// handles the framing; Host reads requests, dispatches them, and writes
// exactly one response per request until the browser closes the stream.
//
// Requests are a closed set of tagged variants (Ping, Download, SavePage)
// decoded from an envelope carrying an "action" discriminator. Malformed
// JSON is answered with a failure response and the loop continues; an
// oversized length prefix cannot be resynchronised and stops the host.
//
// Nothing but frames may be written to stdout while the host runs, so
// callers must point loggers at stderr or a file.
package bridge
