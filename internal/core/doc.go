// Package core runs dictionary exports and imports.
//
// A [Service] sits between a [Store], the codec and the wire formats. It is
// used by the HTTP server and the dictx CLI alike.
//
// # Runs
//
// Every export or import is a run. A run takes a slot from the [RunLimiter],
// gets a UUID and a timeout, and is recorded in the [RunHistory] when it
// ends. Log lines written during a run carry its run_id.
//
// # Imports
//
// An import decodes the document, loads the stored dictionary, merges the
// document into it and saves the result with one Store.Save call. Imports
// are serialized so two runs never merge into the same stale dictionary. A
// failed or cancelled import saves nothing.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code for support reference:
//
//   - DOC001-DOC004: document errors (decode, structure, format, size)
//   - TYP001: undefined table type
//   - MRG001: conflicting shared definition
//   - IMP001-IMP002: import stopped or ambiguous
//   - EXP001: unknown table
//   - RUN001-RUN003: busy, cancelled, timed out
//   - DB001-DB008: store errors
package core
