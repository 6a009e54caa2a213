// Package trace records what the checker is doing while it runs.
//
// It is the logging layer of lirc: every pipeline stage, bundle, procedure
// check and instantiation opens a span, and interesting decisions (cache hits,
// simplification cut-offs) are emitted as point events.
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeProc, "check:main", parentID)
//	defer span.End("")
//
// Verbosity is controlled by Level; each Level admits a range of Scopes:
//
//   - LevelPhase: driver and stage boundaries
//   - LevelDetail: per-bundle and per-procedure events
//   - LevelDebug: everything including individual expressions
package trace
