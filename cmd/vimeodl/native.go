package main

import (
	"path/filepath"
	"strings"
)

// nativeHostArgs rewrites the argument list a browser uses to launch a
// native messaging host into a `host` invocation. Chrome passes the caller
// origin (plus --parent-window on Windows); Firefox passes the absolute path
// of the host manifest followed by the extension id. Any other argument list
// is returned unchanged.
func nativeHostArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	first := args[0]
	switch {
	case strings.HasPrefix(first, "chrome-extension://"),
		strings.HasPrefix(first, "moz-extension://"),
		strings.HasPrefix(first, "--parent-window="):
	case strings.HasSuffix(first, ".json") && filepath.IsAbs(first):
	default:
		return args
	}
	return append([]string{"host"}, args...)
}
