package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "islandbridge/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.audit.jsonl         (append-only JSON Lines)
//   - <prefix>.hash.snapshot.json  (periodic snapshot)
//   - <prefix>.hash.journal.jsonl  (append-only journal)
//
// The journal is periodically compacted into the snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	auditPath string
	auditFile *os.File

	hashSnapshotPath string
	hashJournalFile  *os.File
	hashes           map[string]uint64

	hashWrites int
}

type hashRecord struct {
	Key  string `json:"key"`
	Hash uint64 `json:"hash"`
	// Deleted marks a journal tombstone (key removed).
	Deleted bool `json:"deleted,omitempty"`
}

type auditRecord struct {
	At          int64  `json:"at"` // unix milli
	Key         string `json:"key"`
	SourceID    string `json:"source_id"`
	Type        string `json:"type,omitempty"`
	IslandID    int    `json:"island_id"`
	Action      string `json:"action"`
	ContentHash uint64 `json:"content_hash,omitempty"`
	Error       string `json:"err,omitempty"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	auditPath := prefix + ".audit.jsonl"
	snapPath := prefix + ".hash.snapshot.json"
	journalPath := prefix + ".hash.journal.jsonl"

	af, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	// Load hashes from snapshot + journal.
	hashes := map[string]uint64{}
	_ = loadHashSnapshot(snapPath, hashes)
	_ = replayHashJournal(journalPath, hashes)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		_ = af.Close()
		return nil, err
	}

	return &fileStore{
		log:              log,
		auditPath:        auditPath,
		auditFile:        af,
		hashSnapshotPath: snapPath,
		hashJournalFile:  jf,
		hashes:           hashes,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.auditFile != nil {
		err1 = s.auditFile.Close()
		s.auditFile = nil
	}
	if s.hashJournalFile != nil {
		err2 = s.hashJournalFile.Close()
		s.hashJournalFile = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}
	enc := json.NewEncoder(s.auditFile)
	return enc.Encode(auditRecord{
		At:          e.At.UnixMilli(),
		Key:         e.Key,
		SourceID:    e.SourceID,
		Type:        e.Type,
		IslandID:    e.IslandID,
		Action:      e.Action,
		ContentHash: e.ContentHash,
		Error:       e.Error,
	})
}

func (s *fileStore) PutHash(ctx context.Context, key string, hash uint64) error {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hashJournalFile == nil {
		return errors.New("hash journal closed")
	}
	if s.hashes == nil {
		s.hashes = map[string]uint64{}
	}
	s.hashes[key] = hash

	enc := json.NewEncoder(s.hashJournalFile)
	if err := enc.Encode(hashRecord{Key: key, Hash: hash}); err != nil {
		return err
	}
	s.hashWrites++
	if s.hashWrites%1000 == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("hash compact failed", logx.Any("err", err))
		}
	}
	return nil
}

func (s *fileStore) GetHash(ctx context.Context, key string) (uint64, bool, error) {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	return h, ok, nil
}

func (s *fileStore) DeleteHash(ctx context.Context, key string) error {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[key]; !ok {
		return nil
	}
	delete(s.hashes, key)
	if s.hashJournalFile == nil {
		return errors.New("hash journal closed")
	}
	enc := json.NewEncoder(s.hashJournalFile)
	return enc.Encode(hashRecord{Key: key, Deleted: true})
}

// PruneAudit rewrites the audit file keeping entries at or after the cutoff.
func (s *fileStore) PruneAudit(ctx context.Context, before time.Time) error {
	_ = ctx
	cutoff := before.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}

	f, err := os.Open(s.auditPath)
	if err != nil {
		return err
	}
	kept := make([]auditRecord, 0, 256)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec auditRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue // skip torn/corrupt lines
		}
		if rec.At >= cutoff {
			kept = append(kept, rec)
		}
	}
	_ = f.Close()
	if err := sc.Err(); err != nil {
		return err
	}

	tmp := s.auditPath + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, rec := range kept {
		if err := enc.Encode(rec); err != nil {
			_ = out.Close()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return err
	}

	_ = s.auditFile.Close()
	if err := os.Rename(tmp, s.auditPath); err != nil {
		// Reopen the old file so appends keep working.
		s.auditFile, _ = os.OpenFile(s.auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		return err
	}
	s.auditFile, err = os.OpenFile(s.auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	return err
}

// compactLocked writes the in-memory hash map as a fresh snapshot and
// truncates the journal. Caller holds s.mu.
func (s *fileStore) compactLocked() error {
	tmp := s.hashSnapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(s.hashes); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.hashSnapshotPath); err != nil {
		return err
	}
	if s.hashJournalFile != nil {
		if err := s.hashJournalFile.Truncate(0); err != nil {
			return err
		}
		if _, err := s.hashJournalFile.Seek(0, 0); err != nil {
			return err
		}
	}
	return nil
}

func loadHashSnapshot(path string, into map[string]uint64) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &into)
}

func replayHashJournal(path string, into map[string]uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec hashRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue // torn write at shutdown; ignore
		}
		if rec.Deleted {
			delete(into, rec.Key)
		} else {
			into[rec.Key] = rec.Hash
		}
	}
	return sc.Err()
}
