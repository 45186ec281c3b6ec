package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxTitleLength bounds sanitized names so the merged file path
	// ({dir}/{title}/{title}_{WxH}.mp4) stays below common path limits.
	DefaultMaxTitleLength = 200
	// DefaultTitle replaces names that are empty after cleaning.
	DefaultTitle = "untitled_video"
	// TruncationMarker is appended when a name had to be cut.
	TruncationMarker = "~"

	jobTokenLen = 8
)

// fileNameReplacer replaces filesystem-unsafe characters with underscores.
var fileNameReplacer = strings.NewReplacer(
	"\\", "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeTitle turns an untrusted title into a filesystem-safe name.
//
// Unsafe characters become underscores, control characters are dropped,
// whitespace runs collapse to one space, and trailing dots are removed.
// NFC composition runs after control characters are dropped. Names longer
// than maxLen runes are cut and end with TruncationMarker.
// The result is never empty and SanitizeTitle(SanitizeTitle(x)) equals
// SanitizeTitle(x).
func SanitizeTitle(name string, maxLen int) string {
	if maxLen <= len(TruncationMarker) {
		maxLen = DefaultMaxTitleLength
	}
	if !utf8.ValidString(name) {
		name = strings.ToValidUTF8(name, "_")
	}
	name = fileNameReplacer.Replace(name)

	var b strings.Builder
	b.Grow(len(name))
	pendingSpace := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsControl(r):
			continue
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}

	out := trimName(norm.NFC.String(b.String()))
	if utf8.RuneCountInString(out) > maxLen {
		runes := []rune(out)
		cut := maxLen - utf8.RuneCountInString(TruncationMarker)
		out = trimName(string(runes[:cut])) + TruncationMarker
	}
	if out == "" {
		return DefaultTitle
	}
	return out
}

// trimName strips surrounding whitespace and trailing dots; Windows rejects
// names ending in a dot.
func trimName(value string) string {
	return strings.TrimRight(strings.TrimSpace(value), ". ")
}

// WithJobSuffix appends "_<token>" to an already sanitized name, where token
// is the first block of jobID reduced to lowercase ASCII letters and digits.
// The name is shortened first so the token survives the maxLen limit. An id
// without usable characters leaves name unchanged.
func WithJobSuffix(name, jobID string, maxLen int) string {
	if maxLen <= len(TruncationMarker) {
		maxLen = DefaultMaxTitleLength
	}
	token := jobToken(jobID)
	if token == "" {
		return name
	}
	room := maxLen - len(token) - 1
	if room < 1 {
		return token
	}
	if runes := []rune(name); len(runes) > room {
		name = trimName(string(runes[:room]))
	}
	if name == "" {
		return token
	}
	return name + "_" + token
}

func jobToken(jobID string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(jobID)) {
		if r == '-' && b.Len() > 0 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == jobTokenLen {
			break
		}
	}
	return b.String()
}
