// Package textutil turns untrusted strings into safe filesystem names.
//
// Titles scraped from a browser page may contain path separators, reserved
// Windows characters, control characters or unbounded length. SanitizeTitle
// normalizes them into a stable, idempotent form used for both the job
// directory and the merged file name.
package textutil
