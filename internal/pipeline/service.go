// Package pipeline implements the notification-to-island service loop:
// junk filtering, classification, admission control, deduplication, and
// the hand-off to the per-type translators and the rendering sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"islandbridge/internal/eventbus"
	"islandbridge/internal/model"
	"islandbridge/internal/settings"
	"islandbridge/internal/sink"
	"islandbridge/internal/storage"
	"islandbridge/internal/translate"
	"islandbridge/internal/widget"
	logx "islandbridge/pkg/logx"
)

var (
	ErrQueueFull = errors.New("pipeline queue full")
	ErrStopped   = errors.New("pipeline stopped")
)

type jobKind int

const (
	jobEvent jobKind = iota
	jobWidget
)

type job struct {
	kind jobKind

	// jobEvent
	ev  model.NotificationEvent
	typ model.NotificationType
	adm Admission

	// jobWidget
	widgetID int
}

// Service owns the active-island table and the worker pool that performs
// the slow translation work off the host's event-delivery path.
//
// It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log      logx.Logger
	settings *settings.Cache
	set      *translate.Set
	out      *sink.Ordered
	store    storage.Store
	bus      eventbus.Bus
	widgets  widget.Provider

	table   *Table
	limiter *keyLimiter

	accepting bool
	sendWG    sync.WaitGroup

	queue    chan job
	stopDone chan struct{}

	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}

// New wires the pipeline. store and widgets may be nil (auditing and widget
// hosting disabled); bus may be nil.
func New(cache *settings.Cache, set *translate.Set, out sink.Sink, store storage.Store, bus eventbus.Bus, widgets widget.Provider, log logx.Logger) *Service {
	snap := cache.Current()
	return &Service{
		log:      log,
		settings: cache,
		set:      set,
		out:      sink.NewOrdered(out),
		store:    store,
		bus:      bus,
		widgets:  widgets,
		table:    NewTable(),
		limiter:  newKeyLimiter(snap.QuietInterval()),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.queue != nil {
		// already running
		s.mu.Unlock()
		return
	}
	snap := s.settings.Current()
	s.queue = make(chan job, snap.QueueSize())
	s.accepting = true
	s.stopDone = make(chan struct{})
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	workers := snap.Workers()
	runCtx := s.runCtx
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		i := i
		s.workerWG.Add(1)
		go func() {
			defer s.workerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic in pipeline worker",
						logx.Int("worker", i),
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())),
					)
				}
			}()
			s.workerLoop()
		}()
	}

	if s.widgets != nil {
		s.workerWG.Add(1)
		go func() {
			defer s.workerWG.Done()
			s.widgetLoop(runCtx)
		}()
	}
}

// Stop blocks intake and drains the queue best-effort until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	done := s.stopDone
	cancel := s.runCancel
	if q == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.mu.Unlock()

	// Let in-flight enqueues and detached cancels finish before closing.
	ch := make(chan struct{})
	go func() {
		s.sendWG.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		return
	case <-ch:
	}

	func() {
		defer func() { _ = recover() }()
		close(q)
	}()

	go func() {
		s.workerWG.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
	case <-done:
	}
	if cancel != nil {
		cancel()
	}

	s.mu.Lock()
	s.queue = nil
	s.stopDone = nil
	s.runCtx = nil
	s.runCancel = nil
	s.mu.Unlock()
}

// Active returns a snapshot of the current islands.
func (s *Service) Active() []model.ActiveIsland { return s.table.All() }

// OnEvent is the host's entry point for posted/updated notifications. It
// runs only the cheap gate checks inline; translation happens on a worker.
func (s *Service) OnEvent(ev model.NotificationEvent) error {
	if ev.IsRemoval {
		s.OnRemoved(ev.Key)
		return nil
	}

	snap := s.settings.Current()

	if snap.SourceIgnored(ev.SourceID) {
		return nil
	}
	if IsJunk(ev, snap.Keywords().Junk, nil) {
		s.log.Trace("junk discarded", logx.String("key", ev.Key), logx.String("source", ev.SourceID))
		return nil
	}
	if !snap.SourceAllowed(ev.SourceID) {
		return nil
	}
	if snap.BlockedTermHit(ev.SourceID, ev.Title+" "+ev.Text) {
		s.log.Debug("blocked term hit", logx.String("key", ev.Key), logx.String("source", ev.SourceID))
		return nil
	}

	typ := Classify(ev)
	if !snap.TypeEnabled(ev.SourceID, typ) {
		return nil
	}

	// Quiet-interval limiter. New keys and text changes always pass.
	if snap.RateLimitEnabled() {
		changed := true
		if prev, ok := s.table.Get(ev.Key); ok {
			changed = prev.LastTitle != ev.Title || prev.LastText != ev.Text || prev.LastSubText != ev.SubText
		}
		if !s.limiter.Allow(ev.Key, changed) {
			s.publish(eventbus.Event{Type: eventbus.IslandDeduped, Key: ev.Key, SourceID: ev.SourceID, Island: string(typ)})
			return nil
		}
	}

	adm := s.table.Admit(ev.Key, ev.SourceID, typ, snap.LimitMode(), snap.PriorityRank, time.Now())
	if adm.Status == Rejected {
		s.log.Debug("island rejected at capacity",
			logx.String("key", ev.Key),
			logx.String("source", ev.SourceID),
			logx.String("mode", string(snap.LimitMode())),
		)
		s.publish(eventbus.Event{Type: eventbus.IslandRejected, Key: ev.Key, SourceID: ev.SourceID, Island: string(typ)})
		return nil
	}

	// An eviction decided at admission owes the sink a cancel even if the
	// winning event never makes it onto the queue.
	if adm.Evicted != nil {
		s.limiter.Forget(adm.Evicted.Key)
		s.detachedCancel(adm.Evicted.Key, adm.Evicted.Island, "evict", eventbus.IslandEvicted)
	}

	if err := s.enqueue(job{kind: jobEvent, ev: ev, typ: typ, adm: adm}); err != nil {
		// The reserved slot would otherwise sit in the table with no
		// deadline. Updates keep their previous committed state.
		if adm.Status != Updated && s.table.Discard(ev.Key, adm.Epoch) {
			s.limiter.Forget(ev.Key)
		}
		return err
	}
	return nil
}

// OnRemoved drops the tracked key and cancels its island. Idempotent: a
// second removal for the same key is a no-op.
func (s *Service) OnRemoved(key string) {
	island, ok := s.table.Remove(key)
	s.limiter.Forget(key)
	if !ok {
		return
	}
	s.detachedCancel(key, island, "cancel", eventbus.IslandCanceled)
}

// HandleWidget schedules a re-render of a saved widget. Called by the host
// when the widget's content changed; unsaved widgets are ignored.
func (s *Service) HandleWidget(widgetID int) error {
	if s.set.Widget == nil {
		return nil
	}
	if !s.settings.Current().WidgetSaved(widgetID) {
		return nil
	}
	return s.enqueue(job{kind: jobWidget, widgetID: widgetID})
}

// DropWidget cancels the widget's island.
func (s *Service) DropWidget(widgetID int) {
	id := model.WidgetIslandID(widgetID)
	s.sendWG.Add(1)
	go func() {
		defer s.sendWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.out.Cancel(ctx, id); err != nil {
			s.log.Warn("widget cancel failed", logx.Int("island_id", id), logx.Err(err))
		}
		s.out.Release(id)
		s.publish(eventbus.Event{Type: eventbus.IslandCanceled, Island: "WIDGET", IslandID: id})
	}()
}

// SweepExpired cancels every island whose resolved timeout elapsed.
// Called by the janitor; safe to call concurrently with event intake.
func (s *Service) SweepExpired(now time.Time) int {
	expired := s.table.TakeExpired(now)
	for _, e := range expired {
		s.limiter.Forget(e.Key)
		s.detachedCancel(e.Key, e.Island, "expire", eventbus.IslandExpired)
	}
	return len(expired)
}

// PruneLimiters drops idle per-key limiter state.
func (s *Service) PruneLimiters() int { return s.limiter.Prune() }

func (s *Service) enqueue(j job) error {
	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	select {
	case q <- j:
		return nil
	default:
		s.log.Warn("pipeline queue full", logx.String("key", j.ev.Key))
		return ErrQueueFull
	}
}

// detachedCancel performs the sink cancel and bookkeeping off the caller's
// goroutine so the host's callback path never blocks.
func (s *Service) detachedCancel(key string, island model.ActiveIsland, action, busType string) {
	s.sendWG.Add(1)
	go func() {
		defer s.sendWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		errStr := ""
		if err := s.out.Cancel(ctx, island.ID); err != nil {
			// The sink's view is best-effort; the table entry is already gone.
			errStr = err.Error()
			s.log.Warn("island cancel failed", logx.Int("island_id", island.ID), logx.Err(err))
		}
		s.out.Release(island.ID)
		s.audit(ctx, storage.AuditEntry{
			Key: key, SourceID: island.SourceID, Type: string(island.Type),
			IslandID: island.ID, Action: action, Error: errStr,
		})
		if s.store != nil {
			if err := s.store.DeleteHash(ctx, key); err != nil {
				s.log.Debug("hash delete failed", logx.String("key", key), logx.Err(err))
			}
		}
		s.publish(eventbus.Event{Type: busType, Key: key, SourceID: island.SourceID, Island: string(island.Type), IslandID: island.ID})
	}()
}

func (s *Service) workerLoop() {
	s.mu.Lock()
	q := s.queue
	runCtx := s.runCtx
	s.mu.Unlock()

	for j := range q {
		select {
		case <-runCtx.Done():
			return
		default:
		}
		s.process(runCtx, j)
	}
}

func (s *Service) process(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic processing job",
				logx.String("key", j.ev.Key),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()

	switch j.kind {
	case jobWidget:
		s.processWidget(ctx, j.widgetID)
	default:
		s.processEvent(ctx, j)
	}
}

func (s *Service) processEvent(ctx context.Context, j job) {
	ev := j.ev
	snap := s.settings.Current()
	id := model.IslandID(ev.Key)

	cfg := snap.Resolve(ev.SourceID)
	tc := translate.Context{
		Config:    cfg,
		Keywords:  snap.Keywords(),
		NavLayout: snap.NavLayout(ev.SourceID),
	}
	payload := s.set.ForType(j.typ).Translate(ev, fmt.Sprintf("icon_%d", id), tc)
	hash := payload.ContentHash()

	// Content dedup: identical rendered content for a live key is a no-op.
	// Fresh keys consult the persisted hash, so an island whose content
	// did not change across a restart is not reposted.
	if j.adm.Status == Updated {
		if prev, ok := s.table.Get(ev.Key); ok && prev.LastContentHash == hash {
			s.publish(eventbus.Event{Type: eventbus.IslandDeduped, Key: ev.Key, SourceID: ev.SourceID, Island: string(j.typ), IslandID: id})
			return
		}
	} else if s.store != nil {
		if prev, ok, err := s.store.GetHash(ctx, ev.Key); err == nil && ok && prev == hash {
			s.commitIsland(ev, j, hash, cfg.Timeout)
			s.publish(eventbus.Event{Type: eventbus.IslandDeduped, Key: ev.Key, SourceID: ev.SourceID, Island: string(j.typ), IslandID: id})
			return
		}
	}

	// Stale check before touching the sink; a removal observed here wins.
	alive := s.table.Commit(ev.Key, j.adm.Epoch, func(*model.ActiveIsland) {})
	if !alive {
		return
	}

	if err := s.out.Post(ctx, id, payload); err != nil {
		s.log.Warn("island post failed",
			logx.String("key", ev.Key),
			logx.Int("island_id", id),
			logx.Err(err),
		)
		s.audit(ctx, storage.AuditEntry{
			Key: ev.Key, SourceID: ev.SourceID, Type: string(j.typ),
			IslandID: id, Action: "post", ContentHash: hash, Error: err.Error(),
		})
		// A fresh reservation that never reached the screen has no
		// deadline; give the slot back.
		if j.adm.Status != Updated && s.table.Discard(ev.Key, j.adm.Epoch) {
			s.limiter.Forget(ev.Key)
		}
		return
	}

	if !s.commitIsland(ev, j, hash, cfg.Timeout) {
		// Removal raced the post; make sure nothing stays on screen.
		if err := s.out.Cancel(ctx, id); err != nil {
			s.log.Warn("compensating cancel failed", logx.Int("island_id", id), logx.Err(err))
		}
		s.out.Release(id)
		return
	}

	if s.store != nil {
		if err := s.store.PutHash(ctx, ev.Key, hash); err != nil {
			s.log.Debug("hash put failed", logx.String("key", ev.Key), logx.Err(err))
		}
	}
	s.audit(ctx, storage.AuditEntry{
		Key: ev.Key, SourceID: ev.SourceID, Type: string(j.typ),
		IslandID: id, Action: "post", ContentHash: hash,
	})
	s.publish(eventbus.Event{Type: eventbus.IslandPosted, Key: ev.Key, SourceID: ev.SourceID, Island: string(j.typ), IslandID: id})
}

// commitIsland records the rendered state under the admission's epoch.
// Returns false when a removal or re-admission raced ahead.
func (s *Service) commitIsland(ev model.NotificationEvent, j job, hash uint64, timeout time.Duration) bool {
	now := time.Now()
	var expireAt time.Time
	if timeout > 0 {
		expireAt = now.Add(timeout)
	}
	return s.table.Commit(ev.Key, j.adm.Epoch, func(is *model.ActiveIsland) {
		is.Type = j.typ
		is.PostTime = now
		is.LastTitle = ev.Title
		is.LastText = ev.Text
		is.LastSubText = ev.SubText
		is.LastContentHash = hash
		is.ExpireAt = expireAt
	})
}

func (s *Service) processWidget(ctx context.Context, widgetID int) {
	snap := s.settings.Current()
	cfg := snap.WidgetConfig(widgetID)
	id := model.WidgetIslandID(widgetID)

	payload, err := s.set.Widget.Translate(ctx, widgetID, cfg)
	if err != nil {
		if errors.Is(err, widget.ErrNoView) {
			s.log.Debug("widget has no view yet", logx.Int("widget_id", widgetID))
			return
		}
		s.log.Warn("widget translate failed", logx.Int("widget_id", widgetID), logx.Err(err))
		return
	}
	if err := s.out.Post(ctx, id, payload); err != nil {
		s.log.Warn("widget post failed", logx.Int("island_id", id), logx.Err(err))
		return
	}
	s.publish(eventbus.Event{Type: eventbus.IslandPosted, Island: "WIDGET", IslandID: id})
}

func (s *Service) widgetLoop(ctx context.Context) {
	ch, unsub := s.widgets.Updates(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case widgetID, ok := <-ch:
			if !ok {
				return
			}
			if err := s.HandleWidget(widgetID); err != nil && !errors.Is(err, ErrStopped) {
				s.log.Debug("widget update dropped", logx.Int("widget_id", widgetID), logx.Err(err))
			}
		}
	}
}

func (s *Service) publish(e eventbus.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(e)
}

func (s *Service) audit(ctx context.Context, e storage.AuditEntry) {
	if s.store == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if err := s.store.AppendAudit(ctx, e); err != nil {
		s.log.Debug("audit append failed", logx.String("key", e.Key), logx.Err(err))
	}
}
