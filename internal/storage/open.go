package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "islandbridge/pkg/logx"
)

// Store is the minimal persistence API used by the pipeline and janitor.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	PutHash(ctx context.Context, key string, hash uint64) error
	GetHash(ctx context.Context, key string) (hash uint64, ok bool, err error)
	DeleteHash(ctx context.Context, key string) error
	PruneAudit(ctx context.Context, before time.Time) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
