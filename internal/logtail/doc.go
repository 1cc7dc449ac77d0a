// Package logtail reads the end of the explorer's log file for the in-app
// log overlay.
//
// Read walks the file backwards in fixed-size blocks until it has enough
// lines, so opening the overlay stays cheap however large the log grows.
// Each line carries the level parsed from slog's text format, which the UI
// uses to colour warnings and errors.
package logtail
