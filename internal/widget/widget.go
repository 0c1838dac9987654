// Package widget defines the contract to the widget-hosting subsystem and an
// in-memory registry implementation used by the daemon and its tests.
package widget

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"islandbridge/internal/model"
)

var ErrNoView = errors.New("widget: no view available")

// Provider is the narrow surface the pipeline depends on.
type Provider interface {
	// LatestView returns the most recent live view reference for the widget.
	LatestView(widgetID int) (model.ViewRef, bool)

	// Snapshot rasterizes the widget at the target pixel size. May be slow;
	// always called off the event-delivery goroutine.
	Snapshot(ctx context.Context, widgetID, widthPx, heightPx int) (*model.Bitmap, error)

	// Updates streams widget ids whose content changed (user interaction or
	// host-side refresh).
	Updates(buffer int) (ch <-chan int, unsubscribe func())
}

// Registry is an in-memory Provider. The host pushes views and snapshots in;
// the pipeline reads them out.
type Registry struct {
	mu     sync.RWMutex
	views  map[int]model.ViewRef
	raster map[int]*model.Bitmap

	subMu sync.Mutex
	subs  map[uint64]chan int
	seq   atomic.Uint64
}

func NewRegistry() *Registry {
	return &Registry{
		views:  map[int]model.ViewRef{},
		raster: map[int]*model.Bitmap{},
		subs:   map[uint64]chan int{},
	}
}

// PushView stores the latest live view for a widget and notifies
// subscribers.
func (r *Registry) PushView(widgetID int, v model.ViewRef) {
	r.mu.Lock()
	r.views[widgetID] = v
	r.mu.Unlock()
	r.notify(widgetID)
}

// PushBitmap stores a pre-rendered raster for snapshot requests. Tests and
// hosts without a live renderer use this.
func (r *Registry) PushBitmap(widgetID int, b *model.Bitmap) {
	r.mu.Lock()
	r.raster[widgetID] = b
	r.mu.Unlock()
	r.notify(widgetID)
}

// Drop forgets everything about the widget.
func (r *Registry) Drop(widgetID int) {
	r.mu.Lock()
	delete(r.views, widgetID)
	delete(r.raster, widgetID)
	r.mu.Unlock()
}

func (r *Registry) LatestView(widgetID int) (model.ViewRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[widgetID]
	return v, ok
}

func (r *Registry) Snapshot(ctx context.Context, widgetID, widthPx, heightPx int) (*model.Bitmap, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	r.mu.RLock()
	b := r.raster[widgetID]
	r.mu.RUnlock()
	if b == nil {
		return nil, ErrNoView
	}
	// The registry serves whatever raster the host pushed; the requested
	// size is advisory here. A real host scales before pushing.
	out := *b
	if out.Width == 0 {
		out.Width = widthPx
	}
	if out.Height == 0 {
		out.Height = heightPx
	}
	return &out, nil
}

func (r *Registry) Updates(buffer int) (<-chan int, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan int, buffer)
	id := r.seq.Add(1)

	r.subMu.Lock()
	r.subs[id] = ch
	r.subMu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subs, id)
			r.subMu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

func (r *Registry) notify(widgetID int) {
	r.subMu.Lock()
	chs := make([]chan int, 0, len(r.subs))
	for _, ch := range r.subs {
		chs = append(chs, ch)
	}
	r.subMu.Unlock()

	for _, ch := range chs {
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- widgetID:
			default:
			}
		}()
	}
}
