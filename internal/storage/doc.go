package storage

// Package storage provides a minimal persistence layer used by the pipeline.
//
// It currently supports:
//   - Post/cancel audit appends (what was shown, when, why it went away)
//   - Optional content-hash dedup state (to avoid reposting identical
//     islands across restarts)
