// Package sink defines the rendering-sink contract and the in-process
// implementations used by the daemon and its tests.
//
// Post/Cancel are fire-and-forget from the pipeline's point of view, but an
// implementation must preserve per-id ordering: a Cancel for id N must not
// overtake a still-in-flight Post for the same N.
package sink

import (
	"context"
	"sync"

	"islandbridge/internal/model"
	logx "islandbridge/pkg/logx"
)

// Sink receives fully translated display payloads.
type Sink interface {
	Post(ctx context.Context, id int, payload model.DisplayPayload) error
	Cancel(ctx context.Context, id int) error
}

// Ordered wraps a sink with per-id serialization. Calls for different ids
// proceed concurrently; calls for the same id are strictly ordered.
type Ordered struct {
	inner Sink

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewOrdered(inner Sink) *Ordered {
	return &Ordered{inner: inner, locks: map[int]*sync.Mutex{}}
}

func (o *Ordered) lockFor(id int) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[id]
	if !ok {
		l = &sync.Mutex{}
		o.locks[id] = l
	}
	return l
}

// Release drops the per-id lock once the island is gone. Optional; unreleased
// locks only cost a map entry.
func (o *Ordered) Release(id int) {
	o.mu.Lock()
	delete(o.locks, id)
	o.mu.Unlock()
}

func (o *Ordered) Post(ctx context.Context, id int, payload model.DisplayPayload) error {
	l := o.lockFor(id)
	l.Lock()
	defer l.Unlock()
	return o.inner.Post(ctx, id, payload)
}

func (o *Ordered) Cancel(ctx context.Context, id int) error {
	l := o.lockFor(id)
	l.Lock()
	defer l.Unlock()
	return o.inner.Cancel(ctx, id)
}

// LogSink writes every call to the structured log. Used when no platform
// sink is attached (dry runs, development).
type LogSink struct {
	Log logx.Logger
}

func (s *LogSink) Post(ctx context.Context, id int, payload model.DisplayPayload) error {
	_ = ctx
	s.Log.Info("island post",
		logx.Int("id", id),
		logx.Int("pictures", len(payload.Pictures)),
		logx.Int("actions", len(payload.Actions)),
		logx.Uint64("content_hash", payload.ContentHash()),
	)
	return nil
}

func (s *LogSink) Cancel(ctx context.Context, id int) error {
	_ = ctx
	s.Log.Info("island cancel", logx.Int("id", id))
	return nil
}
