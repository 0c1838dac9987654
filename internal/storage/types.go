package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one sink-visible transition of an island.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At          time.Time
	Key         string
	SourceID    string
	Type        string
	IslandID    int
	Action      string // "post" | "cancel" | "evict" | "expire"
	ContentHash uint64
	Error       string
}
