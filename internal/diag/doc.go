// Package diag defines the diagnostic model shared by the lirc pipeline.
//
// A Diagnostic is a severity, a stable Code, a short message, a primary
// source.Span and optional notes. Producers emit through a Reporter (usually a
// BagReporter) and consumers read a Bag. FromError turns the structured errors
// returned by internal/lir into diagnostics; rendering lives in internal/diagfmt.
//
// Keep the model deterministic: diagnostics are sorted by file, span,
// severity and code before they are printed or compared in tests.
package diag
