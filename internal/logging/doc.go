// Package logging assembles structured slog loggers for vimeodl.
//
// It owns the console (pretty or JSON) handler, the daily JSON log file sink
// with its own minimum level, retention pruning, and the attribute helpers
// used across packages. Context helpers tag records with job IDs, stages and
// correlation IDs so one download can be followed across components.
//
// Console output goes to stderr unless a caller asks otherwise: in native
// messaging mode stdout carries the framed protocol and must stay clean.
package logging
