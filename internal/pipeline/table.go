package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"islandbridge/internal/model"
)

// AdmitStatus is the admission controller's verdict.
type AdmitStatus int

const (
	// Admitted is a new key that fit within capacity.
	Admitted AdmitStatus = iota
	// Updated is an existing key; updates bypass capacity entirely.
	Updated
	// Evicted means another island was removed to make room.
	Evicted
	// Rejected means capacity is full and the policy kept the table as is.
	Rejected
)

func (s AdmitStatus) String() string {
	switch s {
	case Admitted:
		return "admitted"
	case Updated:
		return "updated"
	case Evicted:
		return "evicted"
	default:
		return "rejected"
	}
}

// Admission is the outcome of one admit call. Epoch identifies this
// incarnation of the key: a commit whose epoch no longer matches the table
// entry is stale and must be dropped.
type Admission struct {
	Status  AdmitStatus
	Epoch   uint64
	Evicted *Expired
}

type tableEntry struct {
	island model.ActiveIsland
	epoch  uint64
}

// Table is the mutex-guarded active-island store. Its size never exceeds
// model.MaxIslands between calls; admission reserves the slot before the
// slow translation work starts, so concurrent admits cannot overshoot.
type Table struct {
	mu    sync.Mutex
	items map[string]*tableEntry

	// Epochs are globally unique so a key that is removed and re-admitted
	// can never match a stale commit from its previous life.
	epoch atomic.Uint64
}

func NewTable() *Table {
	return &Table{items: map[string]*tableEntry{}}
}

// Admit applies capacity control for one event. rank maps a source id onto
// its priority index (lower wins, math.MaxInt when absent); it is consulted
// only in PRIORITY mode.
func (t *Table) Admit(key, sourceID string, typ model.NotificationType, mode model.LimitMode, rank func(string) int, now time.Time) Admission {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.items[key]; ok {
		e.island.Type = typ
		return Admission{Status: Updated, Epoch: e.epoch}
	}

	if len(t.items) < model.MaxIslands {
		return Admission{Status: Admitted, Epoch: t.reserveLocked(key, sourceID, typ, now)}
	}

	switch mode {
	case model.LimitFirstCome:
		return Admission{Status: Rejected}

	case model.LimitPriority:
		newRank := rank(sourceID)
		var victim string
		worst := -1
		for k, e := range t.items {
			if r := rank(e.island.SourceID); r > worst {
				worst, victim = r, k
			}
		}
		if newRank >= worst {
			return Admission{Status: Rejected}
		}
		ev := t.evictLocked(victim)
		return Admission{Status: Evicted, Epoch: t.reserveLocked(key, sourceID, typ, now), Evicted: ev}

	default: // MOST_RECENT
		var victim string
		var oldest time.Time
		first := true
		for k, e := range t.items {
			if first || e.island.PostTime.Before(oldest) {
				first, oldest, victim = false, e.island.PostTime, k
			}
		}
		ev := t.evictLocked(victim)
		return Admission{Status: Evicted, Epoch: t.reserveLocked(key, sourceID, typ, now), Evicted: ev}
	}
}

func (t *Table) reserveLocked(key, sourceID string, typ model.NotificationType, now time.Time) uint64 {
	ep := t.epoch.Add(1)
	t.items[key] = &tableEntry{
		island: model.ActiveIsland{
			ID:       model.IslandID(key),
			Type:     typ,
			SourceID: sourceID,
			PostTime: now,
		},
		epoch: ep,
	}
	return ep
}

func (t *Table) evictLocked(key string) *Expired {
	e := t.items[key]
	if e == nil {
		return nil
	}
	delete(t.items, key)
	return &Expired{Key: key, Island: e.island}
}

// Commit applies the post-translation mutation if the key still belongs to
// the same incarnation. Returns false when a removal or re-admission raced
// ahead; the caller must not touch the sink for a stale epoch.
func (t *Table) Commit(key string, epoch uint64, mutate func(*model.ActiveIsland)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.items[key]
	if !ok || e.epoch != epoch {
		return false
	}
	mutate(&e.island)
	return true
}

// Discard rolls back a reservation that never reached the sink. The slot is
// released only while the key still belongs to the same incarnation.
func (t *Table) Discard(key string, epoch uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.items[key]
	if !ok || e.epoch != epoch {
		return false
	}
	delete(t.items, key)
	return true
}

// Remove deletes the key and returns its last state. Safe to call for
// unknown keys.
func (t *Table) Remove(key string) (model.ActiveIsland, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.items[key]
	if !ok {
		return model.ActiveIsland{}, false
	}
	delete(t.items, key)
	return e.island, true
}

// Get returns a copy of the island for key.
func (t *Table) Get(key string) (model.ActiveIsland, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.items[key]
	if !ok {
		return model.ActiveIsland{}, false
	}
	return e.island, true
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// All returns a snapshot copy of every active island.
func (t *Table) All() []model.ActiveIsland {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.ActiveIsland, 0, len(t.items))
	for _, e := range t.items {
		out = append(out, e.island)
	}
	return out
}

// Expired pairs a removed island with its tracked key.
type Expired struct {
	Key    string
	Island model.ActiveIsland
}

// TakeExpired removes and returns every island whose deadline passed.
func (t *Table) TakeExpired(now time.Time) []Expired {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Expired
	for k, e := range t.items {
		if !e.island.ExpireAt.IsZero() && !now.Before(e.island.ExpireAt) {
			out = append(out, Expired{Key: k, Island: e.island})
			delete(t.items, k)
		}
	}
	return out
}
