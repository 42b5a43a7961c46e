// Package logging provides structured logging for geb-core built on log/slog.
//
// The Logger type adds service/version default fields and config-driven
// level, format, and output selection on top of the standard library.
package logging
